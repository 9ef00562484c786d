package treesitter

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// walkJavaScript visits a JavaScript, TypeScript or TSX syntax node.
// The TypeScript grammars are supersets, so one walker serves all three.
func walkJavaScript(sc *scopeContext, node *sitter.Node) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "class_declaration", "abstract_class_declaration", "class":
		if nameNode := node.ChildByFieldName("name"); nameNode != nil {
			visitJSClass(sc, node, nodeText(nameNode, sc.code), node)
			return
		}

	case "interface_declaration":
		visitJSInterface(sc, node)
		return

	case "function_declaration", "generator_function_declaration", "method_definition":
		if nameNode := node.ChildByFieldName("name"); nameNode != nil {
			visitJSFunction(sc, node, nodeText(nameNode, sc.code), node)
			return
		}

	case "variable_declarator":
		// const handler = () => {...}; const Model = class {...}
		nameNode := node.ChildByFieldName("name")
		value := node.ChildByFieldName("value")
		if nameNode != nil && nameNode.Type() == "identifier" && value != nil {
			name := nodeText(nameNode, sc.code)
			if isJSFunction(value) {
				visitJSFunction(sc, value, name, node)
				return
			}
			if value.Type() == "class" && value.ChildByFieldName("name") == nil {
				visitJSClass(sc, value, name, node)
				return
			}
		}

	case "field_definition", "public_field_definition":
		// class property initialised with an arrow function
		nameNode := node.ChildByFieldName("property")
		if nameNode == nil {
			nameNode = node.ChildByFieldName("name")
		}
		value := node.ChildByFieldName("value")
		if nameNode != nil && value != nil && isJSFunction(value) {
			visitJSFunction(sc, value, nodeText(nameNode, sc.code), node)
			return
		}

	case "import_statement":
		extractJSImport(sc, node)
		return

	case "export_statement":
		// export { a } from './mod' re-exports behave like imports
		if source := node.ChildByFieldName("source"); source != nil {
			extractJSReexport(sc, node, source)
			return
		}

	case "call_expression":
		if extractJSRequire(sc, node) {
			return
		}
		sc.addInvocation(jsCallTarget(node.ChildByFieldName("function"), sc.code), node)

	case "new_expression":
		sc.addInvocation(jsCallTarget(node.ChildByFieldName("constructor"), sc.code), node)
	}

	walkChildren(sc, node, walkJavaScript)
}

func isJSFunction(node *sitter.Node) bool {
	switch node.Type() {
	case "arrow_function", "function_expression", "function", "generator_function":
		return true
	}
	return false
}

// visitJSClass handles class declarations and class expressions. span is
// the node whose text and lines the entity covers.
func visitJSClass(sc *scopeContext, node *sitter.Node, name string, span *sitter.Node) {
	entity := sc.beginType(name, span, jsBases(node, sc.code))
	entity.Annotations = jsDecorators(node, sc.code)
	entity.DocComment = jsDocComment(span, sc.code)
	if body := node.ChildByFieldName("body"); body != nil {
		walkChildren(sc, body, walkJavaScript)
	}
	sc.end()
}

func visitJSInterface(sc *scopeContext, node *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	entity := sc.beginType(nodeText(nameNode, sc.code), node, jsBases(node, sc.code))
	entity.DocComment = jsDocComment(node, sc.code)
	sc.end()
}

// visitJSFunction registers fn as a callable. For bound arrow functions
// span is the declarator, so the entity covers the whole binding.
func visitJSFunction(sc *scopeContext, fn *sitter.Node, name string, span *sitter.Node) {
	entity := sc.beginCallable(name, span, jsParameters(fn, sc.code), hasChildOfType(fn, "async"))
	entity.Annotations = jsDecorators(span, sc.code)
	entity.DocComment = jsDocComment(span, sc.code)
	if body := fn.ChildByFieldName("body"); body != nil {
		walkJavaScript(sc, body)
	}
	sc.end()
}

// jsBases collects extends and implements targets of classes and interfaces
func jsBases(node *sitter.Node, code []byte) []string {
	var bases []string
	add := func(t *sitter.Node) {
		if name := jsTypeName(t, code); name != "" {
			bases = append(bases, name)
		}
	}

	for _, child := range children(node) {
		switch child.Type() {
		case "class_heritage":
			for _, h := range namedChildren(child) {
				switch h.Type() {
				case "extends_clause", "implements_clause":
					for _, t := range namedChildren(h) {
						add(t)
					}
				default:
					// plain JavaScript: class_heritage holds the expression directly
					add(h)
				}
			}
		case "extends_type_clause":
			for _, t := range namedChildren(child) {
				add(t)
			}
		}
	}
	return bases
}

func jsTypeName(node *sitter.Node, code []byte) string {
	switch node.Type() {
	case "identifier", "type_identifier", "member_expression", "nested_type_identifier":
		return nodeText(node, code)
	case "generic_type":
		// Base<T> -> Base
		if name := node.ChildByFieldName("name"); name != nil {
			return nodeText(name, code)
		}
		if named := namedChildren(node); len(named) > 0 {
			return nodeText(named[0], code)
		}
	}
	return ""
}

func jsParameters(fn *sitter.Node, code []byte) []string {
	// x => x * 2
	if single := fn.ChildByFieldName("parameter"); single != nil {
		return []string{nodeText(single, code)}
	}
	params := fn.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	var names []string
	for _, p := range namedChildren(params) {
		if name := jsParameterName(p, code); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// jsParameterName returns the bound name; destructuring patterns yield ""
func jsParameterName(node *sitter.Node, code []byte) string {
	switch node.Type() {
	case "identifier":
		return nodeText(node, code)
	case "assignment_pattern":
		if left := node.ChildByFieldName("left"); left != nil {
			return jsParameterName(left, code)
		}
	case "required_parameter", "optional_parameter":
		if pattern := node.ChildByFieldName("pattern"); pattern != nil {
			return jsParameterName(pattern, code)
		}
	case "rest_pattern":
		for _, child := range namedChildren(node) {
			if name := jsParameterName(child, code); name != "" {
				return name
			}
		}
	}
	return ""
}

// jsDecorators reads decorators attached to node. The TypeScript grammar
// places method decorators as preceding siblings in the class body, and
// class decorators may sit on the enclosing export statement.
func jsDecorators(node *sitter.Node, code []byte) []string {
	var decorators []string
	collect := func(n *sitter.Node) {
		if name := decoratorName(n, code); name != "" {
			decorators = append(decorators, name)
		}
	}

	if parent := node.Parent(); parent != nil {
		switch parent.Type() {
		case "class_body":
			var preceding []*sitter.Node
			for prev := node.PrevSibling(); prev != nil && prev.Type() == "decorator"; prev = prev.PrevSibling() {
				preceding = append(preceding, prev)
			}
			for i := len(preceding) - 1; i >= 0; i-- {
				collect(preceding[i])
			}
		case "export_statement":
			for _, child := range children(parent) {
				if child.Type() == "decorator" {
					collect(child)
				}
			}
		}
	}

	for _, child := range children(node) {
		if child.Type() == "decorator" {
			collect(child)
		}
	}
	return decorators
}

func decoratorName(decorator *sitter.Node, code []byte) string {
	named := namedChildren(decorator)
	if len(named) == 0 {
		return ""
	}
	expr := named[0]
	switch expr.Type() {
	case "identifier", "member_expression":
		return nodeText(expr, code)
	case "call_expression":
		if fn := expr.ChildByFieldName("function"); fn != nil {
			return nodeText(fn, code)
		}
	}
	return ""
}

// jsCallTarget renders a callee as name or receiver.property
func jsCallTarget(fn *sitter.Node, code []byte) string {
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier":
		return nodeText(fn, code)
	case "member_expression":
		object := fn.ChildByFieldName("object")
		property := fn.ChildByFieldName("property")
		return invocationName(nodeText(object, code), nodeText(property, code))
	}
	return ""
}

// extractJSRequire records require('mod') and import('mod') as imports
func extractJSRequire(sc *scopeContext, node *sitter.Node) bool {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return false
	}
	isRequire := fn.Type() == "identifier" && nodeText(fn, sc.code) == "require"
	if !isRequire && fn.Type() != "import" {
		return false
	}

	args := node.ChildByFieldName("arguments")
	if args == nil {
		return false
	}
	named := namedChildren(args)
	if len(named) == 0 || (named[0].Type() != "string" && named[0].Type() != "template_string") {
		return false
	}
	sc.addImport(trimQuotes(nodeText(named[0], sc.code)), node)
	return true
}

// extractJSImport emits mod.binding per named import, mod for default,
// namespace and side-effect imports
func extractJSImport(sc *scopeContext, node *sitter.Node) {
	source := node.ChildByFieldName("source")
	if source == nil {
		return
	}
	module := trimQuotes(nodeText(source, sc.code))
	if module == "" {
		return
	}

	wholeModule := true
	for _, clause := range children(node) {
		if clause.Type() != "import_clause" {
			continue
		}
		wholeModule = false
		for _, part := range namedChildren(clause) {
			switch part.Type() {
			case "identifier", "namespace_import":
				sc.addImport(module, node)
			case "named_imports":
				for _, spec := range namedChildren(part) {
					if spec.Type() != "import_specifier" {
						continue
					}
					if name := spec.ChildByFieldName("name"); name != nil {
						sc.addImport(module+"."+nodeText(name, sc.code), node)
					}
				}
			}
		}
	}

	if wholeModule {
		sc.addImport(module, node)
	}
}

func extractJSReexport(sc *scopeContext, node, source *sitter.Node) {
	module := trimQuotes(nodeText(source, sc.code))
	if module == "" {
		return
	}

	named := false
	for _, clause := range children(node) {
		if clause.Type() != "export_clause" {
			continue
		}
		for _, spec := range namedChildren(clause) {
			if spec.Type() != "export_specifier" {
				continue
			}
			if name := spec.ChildByFieldName("name"); name != nil {
				sc.addImport(module+"."+nodeText(name, sc.code), node)
				named = true
			}
		}
	}

	// export * from './mod'
	if !named {
		sc.addImport(module, node)
	}
}

// jsDocComment returns the comment directly above a declaration, looking
// through export and variable declaration wrappers and decorators
func jsDocComment(node *sitter.Node, code []byte) string {
	candidate := node
	for p := candidate.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "export_statement", "lexical_declaration", "variable_declaration":
			candidate = p
			continue
		}
		break
	}

	prev := candidate.PrevSibling()
	for prev != nil && prev.Type() == "decorator" {
		prev = prev.PrevSibling()
	}
	if prev == nil || prev.Type() != "comment" {
		return ""
	}
	if prev.EndPoint().Row+1 < candidate.StartPoint().Row {
		return ""
	}
	return cleanJSComment(nodeText(prev, code))
}

func cleanJSComment(comment string) string {
	if strings.HasPrefix(comment, "//") {
		return strings.TrimSpace(strings.TrimPrefix(comment, "//"))
	}

	comment = strings.TrimPrefix(comment, "/**")
	comment = strings.TrimPrefix(comment, "/*")
	comment = strings.TrimSuffix(comment, "*/")

	lines := strings.Split(comment, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "*")
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
