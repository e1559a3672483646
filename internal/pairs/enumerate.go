package pairs

import "github.com/mvp-joe/code-pairs/internal/syntax"

// Functions returns the functions declared directly in mod followed by, for
// each class declared directly in mod, the methods declared directly in its
// body. Each group keeps source order. Nested functions and methods of nested
// classes are never returned.
func Functions(mod *syntax.Module) []*syntax.FunctionDef {
	if mod == nil {
		return nil
	}

	var (
		functions []*syntax.FunctionDef
		classes   []*syntax.ClassDef
	)
	for _, stmt := range mod.Body {
		switch n := stmt.(type) {
		case *syntax.FunctionDef:
			functions = append(functions, n)
		case *syntax.ClassDef:
			classes = append(classes, n)
		}
	}

	for _, cls := range classes {
		for _, stmt := range cls.Body {
			if fn, ok := stmt.(*syntax.FunctionDef); ok {
				functions = append(functions, fn)
			}
		}
	}
	return functions
}
