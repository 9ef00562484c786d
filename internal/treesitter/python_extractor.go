package treesitter

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// walkPython visits a Python syntax node, maintaining the owner stack
func walkPython(sc *scopeContext, node *sitter.Node) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "decorated_definition":
		definition := node.ChildByFieldName("definition")
		for _, child := range children(node) {
			if child.Type() == "decorator" {
				// calls inside decorator arguments belong to the enclosing scope
				walkChildren(sc, child, walkPython)
			}
		}
		if definition != nil {
			visitPythonDefinition(sc, definition, pythonDecorators(node, sc.code))
		}
		return

	case "class_definition", "function_definition":
		visitPythonDefinition(sc, node, nil)
		return

	case "import_statement":
		extractPythonImport(sc, node)
		return

	case "import_from_statement":
		extractPythonImportFrom(sc, node)
		return

	case "call":
		sc.addInvocation(pythonCallTarget(node, sc.code), node)
	}

	walkChildren(sc, node, walkPython)
}

func visitPythonDefinition(sc *scopeContext, node *sitter.Node, decorators []string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		walkChildren(sc, node, walkPython)
		return
	}
	name := nodeText(nameNode, sc.code)
	body := node.ChildByFieldName("body")

	if node.Type() == "class_definition" {
		entity := sc.beginType(name, node, pythonBases(node, sc.code))
		entity.Annotations = decorators
		entity.DocComment = pythonDocstring(body, sc.code)
		if body != nil {
			walkChildren(sc, body, walkPython)
		}
		sc.end()
		return
	}

	entity := sc.beginCallable(name, node, pythonParameters(node, sc.code), hasChildOfType(node, "async"))
	entity.Annotations = decorators
	entity.DocComment = pythonDocstring(body, sc.code)
	if body != nil {
		walkChildren(sc, body, walkPython)
	}
	sc.end()
}

// pythonBases returns declared base classes, skipping keyword arguments like metaclass=
func pythonBases(node *sitter.Node, code []byte) []string {
	superclasses := node.ChildByFieldName("superclasses")
	if superclasses == nil {
		return nil
	}

	var bases []string
	for _, arg := range namedChildren(superclasses) {
		switch arg.Type() {
		case "identifier", "attribute":
			bases = append(bases, nodeText(arg, code))
		case "subscript":
			// Generic[T] -> Generic
			if value := arg.ChildByFieldName("value"); value != nil {
				bases = append(bases, nodeText(value, code))
			}
		}
	}
	return bases
}

func pythonParameters(node *sitter.Node, code []byte) []string {
	params := node.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	var names []string
	for _, p := range namedChildren(params) {
		if name := pythonParameterName(p, code); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func pythonParameterName(node *sitter.Node, code []byte) string {
	switch node.Type() {
	case "identifier":
		return nodeText(node, code)
	case "default_parameter", "typed_default_parameter":
		if name := node.ChildByFieldName("name"); name != nil {
			return pythonParameterName(name, code)
		}
	case "typed_parameter", "list_splat_pattern", "dictionary_splat_pattern":
		for _, child := range namedChildren(node) {
			if name := pythonParameterName(child, code); name != "" {
				return name
			}
		}
	}
	return ""
}

// pythonDecorators extracts a best-effort name per decorator:
// @name, @pkg.name, or the callee of @name(args)
func pythonDecorators(node *sitter.Node, code []byte) []string {
	var decorators []string
	for _, child := range children(node) {
		if child.Type() != "decorator" {
			continue
		}
		named := namedChildren(child)
		if len(named) == 0 {
			continue
		}
		expr := named[0]
		switch expr.Type() {
		case "identifier", "attribute":
			decorators = append(decorators, nodeText(expr, code))
		case "call":
			if fn := expr.ChildByFieldName("function"); fn != nil {
				decorators = append(decorators, nodeText(fn, code))
			}
		}
	}
	return decorators
}

// pythonCallTarget renders the callee of a call node
func pythonCallTarget(node *sitter.Node, code []byte) string {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier":
		return nodeText(fn, code)
	case "attribute":
		object := fn.ChildByFieldName("object")
		attr := fn.ChildByFieldName("attribute")
		return invocationName(nodeText(object, code), nodeText(attr, code))
	}
	return ""
}

func extractPythonImport(sc *scopeContext, node *sitter.Node) {
	for _, child := range namedChildren(node) {
		switch child.Type() {
		case "dotted_name":
			sc.addImport(nodeText(child, sc.code), node)
		case "aliased_import":
			if name := child.ChildByFieldName("name"); name != nil {
				sc.addImport(nodeText(name, sc.code), node)
			}
		}
	}
}

func extractPythonImportFrom(sc *scopeContext, node *sitter.Node) {
	moduleNode := node.ChildByFieldName("module_name")
	if moduleNode == nil {
		return
	}
	module := nodeText(moduleNode, sc.code)

	join := func(name string) string {
		if strings.HasSuffix(module, ".") {
			return module + name
		}
		return module + "." + name
	}

	imported := false
	for _, child := range namedChildren(node) {
		if sameNode(child, moduleNode) {
			continue
		}
		switch child.Type() {
		case "dotted_name":
			sc.addImport(join(nodeText(child, sc.code)), node)
			imported = true
		case "aliased_import":
			if name := child.ChildByFieldName("name"); name != nil {
				sc.addImport(join(nodeText(name, sc.code)), node)
				imported = true
			}
		}
	}

	// from mod import *
	if !imported {
		sc.addImport(module, node)
	}
}

// pythonDocstring returns the leading string literal of a block
func pythonDocstring(body *sitter.Node, code []byte) string {
	if body == nil {
		return ""
	}
	named := namedChildren(body)
	if len(named) == 0 || named[0].Type() != "expression_statement" {
		return ""
	}
	inner := namedChildren(named[0])
	if len(inner) == 0 || inner[0].Type() != "string" {
		return ""
	}
	return cleanDocstring(nodeText(inner[0], code))
}

func cleanDocstring(literal string) string {
	s := strings.TrimLeft(literal, "rRuUbBfF")
	for _, quote := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(s, quote) && strings.HasSuffix(s, quote) && len(s) >= 2*len(quote) {
			s = s[len(quote) : len(s)-len(quote)]
			break
		}
	}
	return strings.TrimSpace(s)
}
