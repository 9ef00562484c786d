package treesitter

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/rohankatakam/codeimpact/internal/models"
)

// scopeFrame is one entry on the owner stack
type scopeFrame struct {
	entity *models.CodeEntity
}

func (f scopeFrame) isType() bool {
	return f.entity.Kind == models.KindTypeDefinition
}

// scopeContext carries traversal state for one source unit. It is created
// per unit and never shared, which keeps analysis safe to run in parallel.
type scopeContext struct {
	path     string
	language string
	code     []byte

	unit          *models.CodeEntity
	entities      []*models.CodeEntity
	relationships []models.Relationship

	stack    []scopeFrame
	nameUses map[string]int
}

func newScopeContext(path, language string, code []byte, root *sitter.Node) *scopeContext {
	unit := &models.CodeEntity{
		ID:            models.NewEntityID(models.KindSourceUnit, path),
		Kind:          models.KindSourceUnit,
		Name:          path,
		QualifiedName: path,
		FilePath:      path,
		Language:      language,
		StartLine:     1,
		EndLine:       endLine(root),
		Body:          string(code),
	}
	return &scopeContext{
		path:     path,
		language: language,
		code:     code,
		unit:     unit,
		entities: []*models.CodeEntity{unit},
		nameUses: make(map[string]int),
	}
}

// owner returns the innermost entity on the stack, or the unit
func (sc *scopeContext) owner() *models.CodeEntity {
	if len(sc.stack) == 0 {
		return sc.unit
	}
	return sc.stack[len(sc.stack)-1].entity
}

// enclosingCallable returns the nearest callable or method on the stack
func (sc *scopeContext) enclosingCallable() *models.CodeEntity {
	for i := len(sc.stack) - 1; i >= 0; i-- {
		if !sc.stack[i].isType() {
			return sc.stack[i].entity
		}
	}
	return nil
}

// qualify builds <path>::<Outer>.<Inner>.<name>, suffixing repeats so ids stay unique
func (sc *scopeContext) qualify(name string) string {
	parts := make([]string, 0, len(sc.stack)+1)
	for _, frame := range sc.stack {
		parts = append(parts, frame.entity.Name)
	}
	parts = append(parts, name)
	qualified := sc.path + "::" + strings.Join(parts, ".")

	sc.nameUses[qualified]++
	if n := sc.nameUses[qualified]; n > 1 {
		qualified = fmt.Sprintf("%s#%d", qualified, n)
	}
	return qualified
}

func (sc *scopeContext) newEntity(kind models.EntityKind, name string, node *sitter.Node) *models.CodeEntity {
	qualified := sc.qualify(name)
	entity := &models.CodeEntity{
		ID:            models.NewEntityID(kind, qualified),
		Kind:          kind,
		Name:          name,
		QualifiedName: qualified,
		FilePath:      sc.path,
		Language:      sc.language,
		StartLine:     startLine(node),
		EndLine:       endLine(node),
		Body:          nodeText(node, sc.code),
		OwnerID:       sc.owner().ID,
	}
	sc.entities = append(sc.entities, entity)
	return entity
}

// beginType registers a type definition, emits its extends/defined_in
// relationships and pushes it as the current owner
func (sc *scopeContext) beginType(name string, node *sitter.Node, bases []string) *models.CodeEntity {
	entity := sc.newEntity(models.KindTypeDefinition, name, node)
	if bases == nil {
		bases = []string{}
	}
	entity.SetAttribute(models.AttrBases, bases)

	for _, base := range bases {
		sc.relate(entity.ID, base, models.RelExtends, node)
	}
	sc.relate(entity.ID, sc.unit.ID, models.RelDefinedIn, node)
	sc.relationships[len(sc.relationships)-1].Resolved = true

	sc.stack = append(sc.stack, scopeFrame{entity: entity})
	return entity
}

// beginCallable registers a function or method and pushes it as the current owner.
// A callable directly inside a type is a method.
func (sc *scopeContext) beginCallable(name string, node *sitter.Node, params []string, isAsync bool) *models.CodeEntity {
	kind := models.KindCallable
	if len(sc.stack) > 0 && sc.stack[len(sc.stack)-1].isType() {
		kind = models.KindMethod
	}
	entity := sc.newEntity(kind, name, node)
	if params == nil {
		params = []string{}
	}
	entity.SetAttribute(models.AttrParameters, params)
	entity.SetAttribute(models.AttrIsAsync, isAsync)

	sc.stack = append(sc.stack, scopeFrame{entity: entity})
	return entity
}

// end pops the current owner
func (sc *scopeContext) end() {
	if len(sc.stack) > 0 {
		sc.stack = sc.stack[:len(sc.stack)-1]
	}
}

func (sc *scopeContext) relate(sourceID, target string, kind models.RelationshipKind, node *sitter.Node) {
	if target == "" {
		return
	}
	sc.relationships = append(sc.relationships, models.Relationship{
		SourceID: sourceID,
		TargetID: target,
		Kind:     kind,
		Line:     startLine(node),
	})
}

// addImport records an import from the unit and, inside a callable, on the callable
func (sc *scopeContext) addImport(fullName string, node *sitter.Node) {
	if fullName == "" {
		return
	}
	sc.relate(sc.unit.ID, fullName, models.RelImports, node)
	if callable := sc.enclosingCallable(); callable != nil {
		callable.ImportedNames = append(callable.ImportedNames, fullName)
	}
}

// addInvocation records a call made from the enclosing callable.
// Calls outside any callable are dropped.
func (sc *scopeContext) addInvocation(target string, node *sitter.Node) {
	if target == "" {
		return
	}
	callable := sc.enclosingCallable()
	if callable == nil {
		return
	}
	sc.relate(callable.ID, target, models.RelInvokes, node)
	callable.InvokedNames = append(callable.InvokedNames, target)
}

func (sc *scopeContext) result(hash string) *UnitResult {
	entities := make([]models.CodeEntity, len(sc.entities))
	for i, e := range sc.entities {
		entities[i] = *e
	}
	return &UnitResult{
		Path:          sc.path,
		Language:      sc.language,
		Hash:          hash,
		Entities:      entities,
		Relationships: sc.relationships,
	}
}
