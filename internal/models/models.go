package models

import (
	"time"

	"github.com/google/uuid"
)

// EntityKind classifies a code entity
type EntityKind string

const (
	KindSourceUnit     EntityKind = "source_unit"
	KindTypeDefinition EntityKind = "type_definition"
	KindCallable       EntityKind = "callable"
	KindMethod         EntityKind = "method"
)

// RelationshipKind classifies a directed edge between entities
type RelationshipKind string

const (
	RelImports   RelationshipKind = "imports"
	RelInvokes   RelationshipKind = "invokes"
	RelExtends   RelationshipKind = "extends"
	RelDefinedIn RelationshipKind = "defined_in"
)

// AllRelationshipKinds lists every relationship kind in weight order
var AllRelationshipKinds = []RelationshipKind{RelExtends, RelInvokes, RelImports, RelDefinedIn}

// Attribute keys used in CodeEntity.Attributes
const (
	AttrBases                 = "bases"
	AttrParameters            = "parameters"
	AttrIsAsync               = "is_async"
	AttrUnresolvedCallTargets = "unresolved_call_targets"
)

// entityNamespace scopes name-based entity ids to this project
var entityNamespace = uuid.MustParse("6f1c2b7e-4a53-5d0e-9a55-8c3e2f0b1d47")

// NewEntityID derives a stable id from kind and fully-qualified name.
// Identical inputs always produce identical ids.
func NewEntityID(kind EntityKind, qualifiedName string) string {
	return uuid.NewSHA1(entityNamespace, []byte(string(kind)+"\x00"+qualifiedName)).String()
}

// CodeEntity is a named, located unit of source structure
type CodeEntity struct {
	ID            string         `json:"id" db:"id"`
	Kind          EntityKind     `json:"kind" db:"kind"`
	Name          string         `json:"name" db:"name"`
	QualifiedName string         `json:"qualified_name" db:"qualified_name"`
	FilePath      string         `json:"file_path" db:"file_path"`
	Language      string         `json:"language" db:"language"`
	StartLine     int            `json:"start_line" db:"start_line"`
	EndLine       int            `json:"end_line" db:"end_line"`
	Body          string         `json:"body,omitempty" db:"body"`
	DocComment    string         `json:"doc_comment,omitempty" db:"doc_comment"`
	ImportedNames []string       `json:"imported_names,omitempty"`
	InvokedNames  []string       `json:"invoked_names,omitempty"`
	Annotations   []string       `json:"annotations,omitempty"`
	OwnerID       string         `json:"owner_id,omitempty" db:"owner_id"`
	Attributes    map[string]any `json:"attributes,omitempty"`
}

// SetAttribute stores a kind-specific fact, allocating the bag on first use
func (e *CodeEntity) SetAttribute(key string, value any) {
	if e.Attributes == nil {
		e.Attributes = make(map[string]any)
	}
	e.Attributes[key] = value
}

// StringsAttribute returns a string-slice attribute, tolerating JSON-decoded []any
func (e *CodeEntity) StringsAttribute(key string) []string {
	switch v := e.Attributes[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Relationship is a directed typed edge. TargetID holds a symbolic name
// until resolution replaces it with an entity id.
type Relationship struct {
	SourceID string           `json:"source_id" db:"source_id"`
	TargetID string           `json:"target_id" db:"target_id"`
	Kind     RelationshipKind `json:"kind" db:"kind"`
	Line     int              `json:"line,omitempty" db:"line"`
	Resolved bool             `json:"resolved" db:"resolved"`
}

// Key identifies a relationship for de-duplication
func (r Relationship) Key() string {
	return r.SourceID + "|" + string(r.Kind) + "|" + r.TargetID
}

// SnapshotMetadata describes one persisted analysis pass
type SnapshotMetadata struct {
	ID                string    `json:"id" yaml:"id" db:"id"`
	Root              string    `json:"root" yaml:"root" db:"root"`
	EntityCount       int       `json:"entity_count" yaml:"entity_count" db:"entity_count"`
	RelationshipCount int       `json:"relationship_count" yaml:"relationship_count" db:"relationship_count"`
	UnresolvedCount   int       `json:"unresolved_count" yaml:"unresolved_count" db:"unresolved_count"`
	CreatedAt         time.Time `json:"created_at" yaml:"created_at" db:"created_at"`
}
