package parsers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mvp-joe/code-pairs/internal/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for PythonParser:
// - Parse module-level functions and classes with accurate lines
// - Detect docstrings (value, raw body and its span) only for bare leading string literals
// - Keep decorators in the function source, line of the def keyword
// - Detect async functions and async for loops
// - Nest elif chains, flatten chained assignments, split raise cause
// - Order call arguments, dictionary keys/values and conditional expressions
// - Drop names bound by except/import/global/parameters
// - Decode string, bytes, concatenated and formatted literals
// - Report ErrSyntax (including Python 2 except and <> forms), ErrDecode and ErrTooDeep
// - Honour context cancellation

func parse(t *testing.T, src string) *syntax.Module {
	t.Helper()
	mod, err := NewPythonParser().Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	require.NotNil(t, mod)
	return mod
}

// firstFunction returns the first module-level function.
func firstFunction(t *testing.T, mod *syntax.Module) *syntax.FunctionDef {
	t.Helper()
	for _, n := range mod.Body {
		if fn, ok := n.(*syntax.FunctionDef); ok {
			return fn
		}
	}
	t.Fatal("no function in module")
	return nil
}

// body returns the statements of the first function in src.
func body(t *testing.T, src string) []syntax.Node {
	t.Helper()
	return firstFunction(t, parse(t, src)).Body
}

// names collects every Name identifier below n in depth-first order.
func names(n syntax.Node) []string {
	var out []string
	var walk func(syntax.Node)
	walk = func(n syntax.Node) {
		if name, ok := n.(*syntax.Name); ok {
			out = append(out, name.ID)
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(n)
	return out
}

func TestPythonParser_ParseFile(t *testing.T) {
	t.Parallel()

	src, err := os.ReadFile(filepath.Join("..", "..", "testdata", "python", "service.py"))
	require.NoError(t, err)

	mod, err := NewPythonParser().Parse(context.Background(), src)
	require.NoError(t, err)

	var (
		functions []*syntax.FunctionDef
		classes   []*syntax.ClassDef
	)
	for _, n := range mod.Body {
		switch n := n.(type) {
		case *syntax.FunctionDef:
			functions = append(functions, n)
		case *syntax.ClassDef:
			classes = append(classes, n)
		}
	}

	require.Len(t, classes, 1)
	assert.Equal(t, "UserService", classes[0].Name)
	assert.Equal(t, 12, classes[0].Position().Line)

	require.Len(t, functions, 2)
	assert.Equal(t, "load_config", functions[0].Name)
	assert.Equal(t, 6, functions[0].Line())
	assert.Equal(t, "main", functions[1].Name)
	assert.Equal(t, 45, functions[1].Line())

	var methods []string
	for _, n := range classes[0].Body {
		if fn, ok := n.(*syntax.FunctionDef); ok {
			methods = append(methods, fn.Name)
		}
	}
	assert.Equal(t, []string{"__init__", "getUser", "fetch_all", "validate"}, methods)
}

func TestPythonParser_Docstring(t *testing.T) {
	t.Parallel()

	t.Run("triple quoted", func(t *testing.T) {
		t.Parallel()
		fn := firstFunction(t, parse(t, "def f():\n    \"\"\"Line one.\\n\n    Line two.\n    \"\"\"\n    return 1\n"))
		require.NotNil(t, fn.Docstring)
		assert.Equal(t, "Line one.\n\n    Line two.\n    ", fn.Docstring.Value)
		assert.Equal(t, "Line one.\\n\n    Line two.\n    ", fn.Docstring.Raw)
		require.Len(t, fn.Body, 2)
		assert.IsType(t, &syntax.Str{}, fn.Body[0])
	})

	t.Run("single quoted", func(t *testing.T) {
		t.Parallel()
		fn := firstFunction(t, parse(t, "def f():\n    'Short.'\n"))
		require.NotNil(t, fn.Docstring)
		assert.Equal(t, "Short.", fn.Docstring.Value)
		assert.Equal(t, "Short.", fn.Docstring.Raw)
	})

	t.Run("span within source", func(t *testing.T) {
		t.Parallel()
		fn := firstFunction(t, parse(t, "x = 1

@wrap
def doc():
    """doc"""
    return doc
"))
		require.NotNil(t, fn.Docstring)
		assert.Equal(t, "doc", fn.Source[fn.Docstring.Start:fn.Docstring.End])
		assert.Equal(t, len("@wrap
def doc():
    """"), fn.Docstring.Start)
	})

	t.Run("concatenated span", func(t *testing.T) {
		t.Parallel()
		fn := firstFunction(t, parse(t, "def f():
    'a' 'b'
"))
		require.NotNil(t, fn.Docstring)
		assert.Equal(t, "ab", fn.Docstring.Value)
		assert.Equal(t, "'a' 'b'", fn.Source[fn.Docstring.Start:fn.Docstring.End])
	})

	t.Run("not first statement", func(t *testing.T) {
		t.Parallel()
		fn := firstFunction(t, parse(t, "def f():\n    x = 1\n    \"\"\"Late.\"\"\"\n"))
		assert.Nil(t, fn.Docstring)
	})

	t.Run("bytes and f-strings are not docstrings", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, firstFunction(t, parse(t, "def f():\n    b'data'\n")).Docstring)
		assert.Nil(t, firstFunction(t, parse(t, "def f(x):\n    f'{x}'\n")).Docstring)
	})

	t.Run("comment before docstring", func(t *testing.T) {
		t.Parallel()
		fn := firstFunction(t, parse(t, "def f():\n    # note\n    \"\"\"Doc.\"\"\"\n"))
		require.NotNil(t, fn.Docstring)
		assert.Equal(t, "Doc.", fn.Docstring.Value)
	})
}

func TestPythonParser_DecoratedSource(t *testing.T) {
	t.Parallel()

	src := "import functools\n\n@functools.lru_cache(maxsize=None)\n@trace\ndef cached(x):\n    return x\n"
	fn := firstFunction(t, parse(t, src))

	assert.Equal(t, "cached", fn.Name)
	assert.Equal(t, 5, fn.Line())
	assert.Equal(t, "@functools.lru_cache(maxsize=None)\n@trace\ndef cached(x):\n    return x", fn.Source)
	require.Len(t, fn.Decorators, 2)
	assert.Equal(t, []string{"functools"}, names(fn.Decorators[0]))
}

func TestPythonParser_Async(t *testing.T) {
	t.Parallel()

	fn := firstFunction(t, parse(t, "async def f(stream):\n    async for x in stream:\n        pass\n    for y in z:\n        pass\n"))
	assert.True(t, fn.Async)
	require.Len(t, fn.Body, 2)

	first, ok := fn.Body[0].(*syntax.For)
	require.True(t, ok)
	assert.True(t, first.Async)
	second, ok := fn.Body[1].(*syntax.For)
	require.True(t, ok)
	assert.False(t, second.Async)
}

func TestPythonParser_Statements(t *testing.T) {
	t.Parallel()

	t.Run("elif chain nests", func(t *testing.T) {
		t.Parallel()
		stmts := body(t, "def f():\n    if a:\n        pass\n    elif b:\n        pass\n    elif c:\n        pass\n    else:\n        return\n")
		require.Len(t, stmts, 1)

		outer, ok := stmts[0].(*syntax.If)
		require.True(t, ok)
		require.Len(t, outer.Orelse, 1)
		middle, ok := outer.Orelse[0].(*syntax.If)
		require.True(t, ok)
		assert.Equal(t, []string{"b"}, names(middle.Test))
		require.Len(t, middle.Orelse, 1)
		inner, ok := middle.Orelse[0].(*syntax.If)
		require.True(t, ok)
		require.Len(t, inner.Orelse, 1)
		assert.IsType(t, &syntax.Return{}, inner.Orelse[0])
	})

	t.Run("chained assignment", func(t *testing.T) {
		t.Parallel()
		stmts := body(t, "def f():\n    a = b = c\n")
		assign, ok := stmts[0].(*syntax.Assign)
		require.True(t, ok)
		require.Len(t, assign.Targets, 2)
		assert.Equal(t, []string{"a", "b", "c"}, names(assign))
	})

	t.Run("annotated assignment is not an Assign", func(t *testing.T) {
		t.Parallel()
		stmts := body(t, "def f():\n    a: int = b\n")
		c, ok := stmts[0].(*syntax.Compound)
		require.True(t, ok)
		assert.Equal(t, "annotated_assignment", c.Kind)
		assert.Equal(t, []string{"a", "int", "b"}, names(c))
	})

	t.Run("raise with cause", func(t *testing.T) {
		t.Parallel()
		stmts := body(t, "def f():\n    raise Error(msg) from exc\n")
		r, ok := stmts[0].(*syntax.Raise)
		require.True(t, ok)
		assert.Equal(t, []string{"Error", "msg"}, names(r.Exc))
		assert.Equal(t, []string{"exc"}, names(r.Cause))
	})

	t.Run("for else and while else", func(t *testing.T) {
		t.Parallel()
		stmts := body(t, "def f():\n    for i in r:\n        a()\n    else:\n        b()\n    while x:\n        c()\n    else:\n        d()\n")
		loop, ok := stmts[0].(*syntax.For)
		require.True(t, ok)
		assert.Equal(t, []string{"i"}, names(loop.Target))
		assert.Equal(t, []string{"r"}, names(loop.Iter))
		require.Len(t, loop.Orelse, 1)

		w, ok := stmts[1].(*syntax.While)
		require.True(t, ok)
		require.Len(t, w.Body, 1)
		require.Len(t, w.Orelse, 1)
	})

	t.Run("bound names are not expressions", func(t *testing.T) {
		t.Parallel()
		src := `def f(a, b: Type = default, *args, **kwargs):
    import os.path as p
    global counter
    try:
        run()
    except (KeyError, ValueError) as err:
        handle()
`
		fn := firstFunction(t, parse(t, src))
		var all []string
		for _, s := range fn.Body {
			all = append(all, names(s)...)
		}
		assert.Equal(t, []string{"run", "KeyError", "ValueError", "handle"}, all)

		var params []string
		for _, p := range fn.Params {
			params = append(params, names(p)...)
		}
		assert.Equal(t, []string{"Type", "default"}, params)
	})

	t.Run("parameter expressions follow the arguments node order", func(t *testing.T) {
		t.Parallel()
		src := "def f(a: A, b: B = bd, *args: V, k: K = kd, j=jd, **kw: W) -> R:\n    pass\n"
		fn := firstFunction(t, parse(t, src))

		var params []string
		for _, p := range fn.Params {
			params = append(params, names(p)...)
		}
		assert.Equal(t, []string{"A", "B", "V", "K", "kd", "jd", "W", "bd"}, params)
	})

	t.Run("bare star starts keyword-only parameters", func(t *testing.T) {
		t.Parallel()
		fn := firstFunction(t, parse(t, "def f(a=ad, *, k=kd):\n    pass\n"))

		var params []string
		for _, p := range fn.Params {
			params = append(params, names(p)...)
		}
		assert.Equal(t, []string{"kd", "ad"}, params)
	})
}

func TestPythonParser_Expressions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr string
		want []string
	}{
		{"keyword arguments after positional", "call(a, k=v, *rest)", []string{"call", "a", "rest", "v"}},
		{"dictionary keys then values", "{k1: v1, **extra, k2: v2}", []string{"k1", "k2", "v1", "extra", "v2"}},
		{"conditional test first", "body if test else other", []string{"test", "body", "other"}},
		{"comprehension", "[y for y in ys if y]", []string{"y", "y", "ys", "y"}},
		{"lambda", "lambda q, r=dflt: q + r", []string{"dflt", "q", "r"}},
		{"subscript and slice", "items[lo:hi]", []string{"items", "lo", "hi"}},
		{"f-string", "f'{user.name!r:>{width}}'", []string{"user", "width"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			stmts := body(t, "def f():\n    return "+tt.expr+"\n")
			ret, ok := stmts[0].(*syntax.Return)
			require.True(t, ok)
			assert.Equal(t, tt.want, names(ret.Value))
		})
	}
}

func TestPythonParser_Literals(t *testing.T) {
	t.Parallel()

	value := func(t *testing.T, expr string) syntax.Node {
		stmts := body(t, "def f():\n    return "+expr+"\n")
		ret, ok := stmts[0].(*syntax.Return)
		require.True(t, ok)
		return ret.Value
	}

	t.Run("constants", func(t *testing.T) {
		t.Parallel()
		for expr, want := range map[string]string{"True": "True", "False": "False", "None": "None", "...": "Ellipsis"} {
			c, ok := value(t, expr).(*syntax.Constant)
			require.True(t, ok, expr)
			assert.Equal(t, want, c.Value.String())
		}
	})

	t.Run("numbers", func(t *testing.T) {
		t.Parallel()
		n, ok := value(t, "0xff").(*syntax.Num)
		require.True(t, ok)
		assert.Equal(t, "255", n.Value.String())
	})

	t.Run("escaped string", func(t *testing.T) {
		t.Parallel()
		s, ok := value(t, `"tab\there"`).(*syntax.Str)
		require.True(t, ok)
		assert.Equal(t, "tab\there", s.Value)
	})

	t.Run("raw string", func(t *testing.T) {
		t.Parallel()
		s, ok := value(t, `r"\d+"`).(*syntax.Str)
		require.True(t, ok)
		assert.Equal(t, `\d+`, s.Value)
	})

	t.Run("implicit concatenation", func(t *testing.T) {
		t.Parallel()
		s, ok := value(t, `"abc" 'def'`).(*syntax.Str)
		require.True(t, ok)
		assert.Equal(t, "abcdef", s.Value)
	})

	t.Run("bytes", func(t *testing.T) {
		t.Parallel()
		b, ok := value(t, `b"\x00A" b'B'`).(*syntax.Bytes)
		require.True(t, ok)
		assert.Equal(t, []byte{0, 'A', 'B'}, b.Value)
	})

	t.Run("f-string parts", func(t *testing.T) {
		t.Parallel()
		c, ok := value(t, `"Hello " f"{name}!" " bye"`).(*syntax.Compound)
		require.True(t, ok)
		assert.Equal(t, "fstring", c.Kind)
		require.Len(t, c.Items, 3)
		assert.Equal(t, "Hello ", c.Items[0].(*syntax.Str).Value)
		assert.Equal(t, []string{"name"}, names(c.Items[1]))
		assert.Equal(t, "! bye", c.Items[2].(*syntax.Str).Value)
	})
}

func TestPythonParser_Errors(t *testing.T) {
	t.Parallel()

	parser := NewPythonParser()
	ctx := context.Background()

	_, err := parser.Parse(ctx, []byte("def f(:\n    pass\n"))
	assert.ErrorIs(t, err, ErrSyntax)
	assert.Contains(t, err.Error(), "line 1")

	_, err = parser.Parse(ctx, []byte("def f():\n    print \"legacy\"\n"))
	assert.ErrorIs(t, err, ErrSyntax)

	_, err = parser.Parse(ctx, []byte("def f():\n    try:\n        g()\n    except ValueError, e:\n        pass\n"))
	assert.ErrorIs(t, err, ErrSyntax)
	assert.Contains(t, err.Error(), "line 4")

	_, err = parser.Parse(ctx, []byte("def f(a, b):\n    return a <> b\n"))
	assert.ErrorIs(t, err, ErrSyntax)

	_, err = parser.Parse(ctx, []byte("def f(a, b):\n    try:\n        return a != b\n    except (KeyError, ValueError):\n        pass\n"))
	assert.NoError(t, err)

	_, err = parser.Parse(ctx, []byte("x = b'a' 'b'\n"))
	assert.ErrorIs(t, err, ErrSyntax)

	_, err = parser.Parse(ctx, []byte("x = 10L\n"))
	assert.ErrorIs(t, err, ErrSyntax)

	_, err = parser.Parse(ctx, []byte("x = '\xfe'\n"))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestPythonParser_MaxDepth(t *testing.T) {
	t.Parallel()

	src := []byte("x = " + nested(30) + "\n")

	_, err := NewPythonParser(WithMaxDepth(10)).Parse(context.Background(), src)
	assert.ErrorIs(t, err, ErrTooDeep)

	_, err = NewPythonParser().Parse(context.Background(), src)
	assert.NoError(t, err)
}

func nested(depth int) string {
	s := "x"
	for i := 0; i < depth; i++ {
		s = "[" + s + "]"
	}
	return s
}

func TestPythonParser_ContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPythonParser().Parse(ctx, []byte("x = 1\n"))
	assert.ErrorIs(t, err, context.Canceled)
}
