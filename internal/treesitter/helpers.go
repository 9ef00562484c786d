package treesitter

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// nodeText extracts text from a node using byte offsets
func nodeText(node *sitter.Node, code []byte) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if int(end) > len(code) {
		end = uint32(len(code))
	}
	if start > end {
		return ""
	}
	return string(code[start:end])
}

func startLine(node *sitter.Node) int {
	return int(node.StartPoint().Row) + 1
}

func endLine(node *sitter.Node) int {
	return int(node.EndPoint().Row) + 1
}

// children returns all children of a node in order
func children(node *sitter.Node) []*sitter.Node {
	count := int(node.ChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		if child := node.Child(i); child != nil {
			out = append(out, child)
		}
	}
	return out
}

// namedChildren returns the named children of a node in order
func namedChildren(node *sitter.Node) []*sitter.Node {
	count := int(node.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		if child := node.NamedChild(i); child != nil {
			out = append(out, child)
		}
	}
	return out
}

// hasChildOfType reports whether any direct child has the given type
func hasChildOfType(node *sitter.Node, nodeType string) bool {
	for _, child := range children(node) {
		if child.Type() == nodeType {
			return true
		}
	}
	return false
}

func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

// isIdentifierChain reports whether text looks like a.b.c with plain identifiers
func isIdentifierChain(text string) bool {
	if text == "" {
		return false
	}
	for _, part := range strings.Split(text, ".") {
		if part == "" {
			return false
		}
		for i, r := range part {
			isLetter := r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
			isDigit := r >= '0' && r <= '9'
			if !isLetter && !(isDigit && i > 0) {
				return false
			}
		}
	}
	return true
}

// invocationName renders a call target as bare_name or receiver.attribute.
// Receivers that are not identifier chains collapse to the attribute name.
func invocationName(receiver, attribute string) string {
	if attribute == "" {
		return ""
	}
	if isIdentifierChain(receiver) {
		return receiver + "." + attribute
	}
	return attribute
}

// trimQuotes strips matching string delimiters from a literal
func trimQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '\'' || first == '`') && first == last {
			return s[1 : len(s)-1]
		}
	}
	return s
}
