package graph

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// identifierPattern: letter or underscore, then alphanumerics or underscores
var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// CypherBuilder builds safe, parameterized Cypher queries
// Security: every value is a parameter; labels, keys and relationship types
// are validated identifiers because Cypher cannot parameterize them
type CypherBuilder struct {
	params  map[string]any
	counter int
}

// NewCypherBuilder creates a query builder
func NewCypherBuilder() *CypherBuilder {
	return &CypherBuilder{
		params: make(map[string]any),
	}
}

// AddParam adds a parameter and returns its placeholder
func (b *CypherBuilder) AddParam(value any) string {
	paramName := fmt.Sprintf("p%d", b.counter)
	b.counter++
	b.params[paramName] = value
	return "$" + paramName
}

// Params returns all parameters for the query
func (b *CypherBuilder) Params() map[string]any {
	return b.params
}

// BuildMergeNode creates a MERGE query for a single node. Properties are
// set in key order so the query text is stable.
func (b *CypherBuilder) BuildMergeNode(label string, uniqueKey string, uniqueValue any, properties map[string]any) (string, error) {
	if !isValidIdentifier(label) {
		return "", fmt.Errorf("invalid node label: %s (must be alphanumeric + underscore)", label)
	}
	if !isValidIdentifier(uniqueKey) {
		return "", fmt.Errorf("invalid unique key: %s (must be alphanumeric + underscore)", uniqueKey)
	}

	uniqueParam := b.AddParam(uniqueValue)

	keys := make([]string, 0, len(properties))
	for key := range properties {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	setClauses := []string{}
	for _, key := range keys {
		if !isValidIdentifier(key) {
			return "", fmt.Errorf("invalid property key: %s (must be alphanumeric + underscore)", key)
		}
		paramName := b.AddParam(properties[key])
		setClauses = append(setClauses, fmt.Sprintf("n.%s = %s", key, paramName))
	}

	query := fmt.Sprintf("MERGE (n:%s {%s: %s})", label, uniqueKey, uniqueParam)
	if len(setClauses) > 0 {
		query += " SET " + strings.Join(setClauses, ", ")
	}
	return query + " RETURN n." + uniqueKey + " AS id", nil
}

// BuildUnwindNodes creates a batch MERGE over $nodes. Every node also
// carries the shared match label so edges can be matched by key alone.
func (b *CypherBuilder) BuildUnwindNodes(matchLabel, label, uniqueKey string, rows []map[string]any) (string, error) {
	for _, ident := range []string{matchLabel, label, uniqueKey} {
		if !isValidIdentifier(ident) {
			return "", fmt.Errorf("invalid identifier in node batch: %s", ident)
		}
	}
	b.params["nodes"] = rows

	extraLabel := ""
	if label != matchLabel {
		extraLabel = fmt.Sprintf(" SET n:%s", label)
	}
	return fmt.Sprintf(
		"UNWIND $nodes AS node MERGE (n:%s {%s: node.%s}) SET n += node%s RETURN count(n) AS written",
		matchLabel, uniqueKey, uniqueKey, extraLabel,
	), nil
}

// BuildUnwindEdges creates a batch MERGE over $edges, each row holding
// from, to and props
func (b *CypherBuilder) BuildUnwindEdges(fromLabel, fromKey, toLabel, toKey, relType string, rows []map[string]any) (string, error) {
	for _, ident := range []string{fromLabel, fromKey, toLabel, toKey, relType} {
		if !isValidIdentifier(ident) {
			return "", fmt.Errorf("invalid identifier in edge batch: %s", ident)
		}
	}
	b.params["edges"] = rows

	return fmt.Sprintf(
		"UNWIND $edges AS e MATCH (a:%s {%s: e.from}) MATCH (b:%s {%s: e.to}) MERGE (a)-[r:%s]->(b) SET r += e.props RETURN count(r) AS written",
		fromLabel, fromKey, toLabel, toKey, relType,
	), nil
}

// BuildReachable creates a variable-length match from one node. Hop
// bounds are literals in Cypher, so hops is validated and formatted.
func (b *CypherBuilder) BuildReachable(label, key string, id any, relTypes []string, hops int) (string, error) {
	if !isValidIdentifier(label) || !isValidIdentifier(key) {
		return "", fmt.Errorf("invalid label or key: %s.%s", label, key)
	}
	if hops < 1 {
		return "", fmt.Errorf("hops must be at least 1, got %d", hops)
	}
	for _, rt := range relTypes {
		if !isValidIdentifier(rt) {
			return "", fmt.Errorf("invalid relationship type: %s", rt)
		}
	}

	pattern := ""
	if len(relTypes) > 0 {
		pattern = ":" + strings.Join(relTypes, "|")
	}
	idParam := b.AddParam(id)
	return fmt.Sprintf(
		"MATCH (s:%s {%s: %s})-[%s*1..%d]->(t:%s) WHERE t.%s <> s.%s RETURN DISTINCT t.%s AS id ORDER BY id",
		label, key, idParam, pattern, hops, label, key, key, key,
	), nil
}

// isValidIdentifier validates that a string can be safely used as a Cypher identifier
func isValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}
