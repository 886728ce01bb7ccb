package eval_test

import (
	"context"
	"errors"
	"testing"

	"grol.io/rhai/ast"
	"grol.io/rhai/eval"
	"grol.io/rhai/object"
	"grol.io/rhai/token"
)

func push(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
	arr, _ := args[0].AsArray()
	*arr = append(*arr, args[1].Clone())
	return object.Unit, nil
}

func length(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
	arr, _ := args[0].AsArray()
	return object.Int(int64(len(*arr))), nil
}

func isKind(err error, kind eval.ErrorKind) bool {
	return errors.Is(err, &eval.EvalError{Kind: kind})
}

func TestNativeFunctions(t *testing.T) {
	e := eval.NewEngine()
	e.RegisterMutFn("push", push, object.IDArray, object.IDAny)
	e.RegisterFn("len", length, object.IDArray)
	tests := []struct {
		input    string
		expected string
	}{
		{"let a = [1]; a.push(2); a", "[1, 2]"},
		{"let a = [1]; push(a, 3); a", "[1, 3]"},
		{"let a = [1]; a.push([2]); a.len()", "2"},
		{"let m = #{a: [1]}; m.a.push(2); m", `#{"a": [1, 2]}`},
		{"len([1, 2, 3])", "3"},
		// pushed values are copies.
		{"let a = []; let b = [1]; a.push(b); b.push(2); a", "[[1]]"},
	}
	for _, tt := range tests {
		if got := testEval(t, e, tt.input); got != tt.expected {
			t.Errorf("%q: got %s, expected %s", tt.input, got, tt.expected)
		}
	}
	_, err := e.Eval("const A = [1]; A.push(2);")
	if !isKind(err, eval.ErrAssignmentToConstant) {
		t.Errorf("expected constant error, got %v", err)
	}
	_, err = e.Eval("let x = [1]; let f = || x; x.push(x);")
	if !isKind(err, eval.ErrDataRace) {
		t.Errorf("expected data race error, got %v", err)
	}
}

func TestOpAssignSingleEvaluation(t *testing.T) {
	e := eval.NewEngine()
	indexCalls, plusCalls := 0, 0
	e.RegisterFn("next", func(_ *eval.NativeCallContext, _ []*object.Dynamic) (object.Dynamic, error) {
		indexCalls++
		return object.Int(0), nil
	})
	e.RegisterFn("+", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		plusCalls++
		x, _ := args[0].AsInt()
		y, _ := args[1].AsInt()
		return object.Int(x + y), nil
	}, object.IDInt, object.IDInt)
	v, err := e.Eval("let a = [1, 2]; a[next()] += 10; a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Debug() != "[11, 2]" {
		t.Errorf("got %s, expected [11, 2]", v.Debug())
	}
	if indexCalls != 1 || plusCalls != 1 {
		t.Errorf("index evaluated %d times, + called %d times, expected 1 and 1", indexCalls, plusCalls)
	}
}

type point struct {
	X, Y int64
}

func TestCustomType(t *testing.T) {
	e := eval.NewEngine()
	typeID := object.NewVariant(point{}).TypeID()
	e.RegisterTypeName(typeID, "Point")
	e.RegisterFn("new_point", func(_ *eval.NativeCallContext, _ []*object.Dynamic) (object.Dynamic, error) {
		return object.NewVariant(point{X: 1, Y: 2}), nil
	})
	e.RegisterGetter(typeID, "x", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		p, _ := object.Downcast[point](args[0])
		return object.Int(p.X), nil
	})
	e.RegisterSetter(typeID, "x", object.IDInt, func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		p, _ := object.Downcast[point](args[0])
		p.X, _ = args[1].AsInt()
		return object.Unit, nil
	})
	e.RegisterIndexer(typeID, object.IDInt,
		func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
			p, _ := object.Downcast[point](args[0])
			if i, _ := args[1].AsInt(); i == 0 {
				return object.Int(p.X), nil
			}
			return object.Int(p.Y), nil
		},
		func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
			p, _ := object.Downcast[point](args[0])
			v, _ := args[2].AsInt()
			if i, _ := args[1].AsInt(); i == 0 {
				p.X = v
			} else {
				p.Y = v
			}
			return object.Unit, nil
		})
	tests := []struct {
		input    string
		expected string
	}{
		{"let p = new_point(); p.x", "1"},
		{"let p = new_point(); p.x = 10; p.x", "10"},
		{"let p = new_point(); p.x += 5; p.x", "6"},
		{"let p = new_point(); p[1]", "2"},
		{"let p = new_point(); p[1] = 7; p[1] + p[0]", "8"},
		{"type_of(new_point())", `"Point"`},
		// copies are independent.
		{"let p = new_point(); let q = p; q.x = 5; p.x", "1"},
	}
	for _, tt := range tests {
		if got := testEval(t, e, tt.input); got != tt.expected {
			t.Errorf("%q: got %s, expected %s", tt.input, got, tt.expected)
		}
	}
	_, err := e.Eval("let p = new_point(); p.z")
	if err == nil {
		t.Errorf("expected an error for an unknown property")
	}
	_, err = e.Eval(`let p = new_point(); p["a"]`)
	if err == nil {
		t.Errorf("expected an error for an unknown indexer")
	}
}

func TestModules(t *testing.T) {
	e := eval.NewEngine()
	tree, err := e.Compile(`
export const ANSWER = 42;
let hidden = 1;
fn double(x) { x * 2 }
fn quad(x) { double(double(x)) }
fn answer() { global::ANSWER }
private fn helper() { 0 }
`)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	m, err := e.EvalASTAsModule("math", object.NewScope(), tree)
	if err != nil {
		t.Fatalf("module error: %v", err)
	}
	if _, ok := m.GetVar("hidden"); ok {
		t.Errorf("non exported variable in module")
	}
	e.SetModuleResolver(eval.NewStaticResolver().Insert("math", m))
	tests := []struct {
		input    string
		expected string
	}{
		{`import "math" as m; m::double(m::ANSWER)`, "84"},
		{`import "math" as m; m::quad(1)`, "4"},
		{`import "math" as m; m::answer()`, "42"},
		{`import "math" as m; fn f() { m::ANSWER } f()`, "42"},
		{`import "math" as m; { import "math" as m2; } m::ANSWER`, "42"},
	}
	for _, tt := range tests {
		if got := testEval(t, e, tt.input); got != tt.expected {
			t.Errorf("%q: got %s, expected %s", tt.input, got, tt.expected)
		}
	}
	errTests := []struct {
		input string
		kind  eval.ErrorKind
	}{
		{`import "math" as m; m::helper()`, eval.ErrFunctionNotFound},
		{`import "math" as m; m::hidden`, eval.ErrVariableNotFound},
		{`import "math" as m; m::ANSWER = 1;`, eval.ErrAssignmentToConstant},
		{`import "other" as o;`, eval.ErrModuleNotFound},
	}
	for _, tt := range errTests {
		if _, err := e.Eval(tt.input); !isKind(err, tt.kind) {
			t.Errorf("%q: got %v, expected %v", tt.input, err, tt.kind)
		}
	}
	e.Limits.MaxModules = 1
	if _, err := e.Eval(`import "math" as a; import "math" as b;`); !isKind(err, eval.ErrTooManyModules) {
		t.Errorf("expected too many modules, got %v", err)
	}
}

func TestStaticModule(t *testing.T) {
	e := eval.NewEngine()
	m := eval.NewModule()
	m.SetFn("triple", []string{object.IDInt}, func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		x, _ := args[0].AsInt()
		return object.Int(3 * x), nil
	})
	m.SetVar("PI", 3.0)
	e.RegisterStaticModule("util", m)
	if got := testEval(t, e, "util::triple(2)"); got != "6" {
		t.Errorf("got %s, expected 6", got)
	}
	if got := testEval(t, e, "util::PI"); got != "3.0" {
		t.Errorf("got %s, expected 3.0", got)
	}
	if names := e.StaticModules(); len(names) != 1 || names[0] != "util" {
		t.Errorf("unexpected static modules %v", names)
	}
	// global modules make their functions available unqualified.
	e.RegisterGlobalModule(m)
	if got := testEval(t, e, "triple(3)"); got != "9" {
		t.Errorf("got %s, expected 9", got)
	}
}

func TestImportGlobalFunctions(t *testing.T) {
	e := eval.NewEngine()
	m := eval.NewModule()
	h := m.SetFn("triple", []string{object.IDInt}, func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		x, _ := args[0].AsInt()
		return object.Int(3 * x), nil
	})
	f, _ := m.GetFn(h)
	f.Namespace = eval.NamespaceGlobal
	e.SetModuleResolver(eval.NewStaticResolver().Insert("glob", m))
	tests := []struct {
		input    string
		expected string
	}{
		{`import "glob" as g; triple(2)`, "6"},
		{`import "glob" as g; g::triple(2)`, "6"},
		{`let r = 0; { import "glob" as g; r = triple(4); } r`, "12"},
		// the miss recorded before the import doesn't stick.
		{`let r = 0; try { triple(1); } catch { r = 100; } import "glob" as g; r + triple(r) / 3`, "200"},
		{`let r = 0; for i in [0, 1] { try { r += triple(1); } catch { r += 10; } } r`, "20"},
	}
	for _, tt := range tests {
		if got := testEval(t, e, tt.input); got != tt.expected {
			t.Errorf("%q: got %s, expected %s", tt.input, got, tt.expected)
		}
	}
	for _, input := range []string{
		`triple(2)`,
		`{ import "glob" as g; triple(1); } triple(2)`,
	} {
		if _, err := e.Eval(input); !isKind(err, eval.ErrFunctionNotFound) {
			t.Errorf("%q: got %v, expected function not found", input, err)
		}
	}
}

func TestResolverChain(t *testing.T) {
	e := eval.NewEngine()
	calls := 0
	fallback := eval.ResolverFunc(func(_ *eval.Engine, _, path string, _ token.Position) (*eval.Module, error) {
		calls++
		return eval.NewModule().SetVar("NAME", path), nil
	})
	e.SetModuleResolver(eval.ResolverChain{eval.NewStaticResolver(), fallback})
	if got := testEval(t, e, `import "x" as x; x::NAME`); got != `"x"` {
		t.Errorf("got %s, expected \"x\"", got)
	}
	if calls != 1 {
		t.Errorf("fallback called %d times", calls)
	}
}

func TestVariableResolver(t *testing.T) {
	e := eval.NewEngine()
	e.OnVar = func(name string, _ int, _ *eval.EvalContext) (object.Dynamic, bool, error) {
		if name == "magic" {
			return object.Int(42), true, nil
		}
		return object.Unit, false, nil
	}
	if got := testEval(t, e, "magic + 1"); got != "43" {
		t.Errorf("got %s, expected 43", got)
	}
	if got := testEval(t, e, "let x = 1; x"); got != "1" {
		t.Errorf("got %s, expected 1", got)
	}
}

func TestCustomSyntax(t *testing.T) {
	e := eval.NewEngine()
	err := e.RegisterCustomSyntax([]string{"double_it", "$expr$"}, false,
		func(ctx *eval.EvalContext, inputs []ast.Expr) (object.Dynamic, error) {
			v, err := ctx.EvalExpressionTree(inputs[0])
			if err != nil {
				return object.Unit, err
			}
			x, _ := v.AsInt()
			return object.Int(2 * x), nil
		})
	if err != nil {
		t.Fatalf("register error: %v", err)
	}
	err = e.RegisterCustomSyntax([]string{"set_var", "$ident$", "=", "$expr$"}, true,
		func(ctx *eval.EvalContext, inputs []ast.Expr) (object.Dynamic, error) {
			v, err := ctx.EvalExpressionTree(inputs[1])
			if err != nil {
				return object.Unit, err
			}
			ctx.Scope().Push(inputs[0].(*ast.Variable).Name, v)
			return object.Unit, nil
		})
	if err != nil {
		t.Fatalf("register error: %v", err)
	}
	err = e.RegisterCustomSyntax([]string{"hidden_var", "$ident$"}, false,
		func(ctx *eval.EvalContext, inputs []ast.Expr) (object.Dynamic, error) {
			ctx.Scope().Push(inputs[0].(*ast.Variable).Name, 1)
			return object.Unit, nil
		})
	if err != nil {
		t.Fatalf("register error: %v", err)
	}
	if err = e.RegisterCustomSyntax([]string{"let", "$expr$"}, false, nil); err == nil {
		t.Errorf("expected an error registering a keyword")
	}
	tests := []struct {
		input    string
		expected string
	}{
		{"double_it 21", "42"},
		{"let y = 4; double_it y + 1", "10"},
		{"set_var x = 5; x + 1", "6"},
		{"let a = 1; set_var b = a + 1; let c = 3; a + b + c", "6"},
		{`hidden_var z; is_def_var("z")`, "false"},
	}
	for _, tt := range tests {
		if got := testEval(t, e, tt.input); got != tt.expected {
			t.Errorf("%q: got %s, expected %s", tt.input, got, tt.expected)
		}
	}
}

func TestLimits(t *testing.T) {
	e := eval.NewEngine()
	e.Limits.MaxOperations = 100
	var maxOps uint64
	e.OnProgress = func(ops uint64) (object.Dynamic, bool) {
		maxOps = ops
		return object.Unit, false
	}
	err := e.Run("loop {}")
	if !isKind(err, eval.ErrTooManyOperations) {
		t.Fatalf("expected too many operations, got %v", err)
	}
	if maxOps > 100 {
		t.Errorf("progress reported %d operations, over the limit", maxOps)
	}
	// resource limits are not catchable.
	err = e.Run("try { loop {} } catch { }")
	if !isKind(err, eval.ErrTooManyOperations) {
		t.Errorf("expected too many operations through try, got %v", err)
	}
	e.Limits.MaxOperations = 0
	e.Limits.MaxCallLevels = 10
	err = e.Run("fn r(n) { r(n + 1) } r(0)")
	if !isKind(err, eval.ErrStackOverflow) {
		t.Errorf("expected stack overflow, got %v", err)
	}
	if got := testEval(t, e, "fn r(n) { if n == 0 { 0 } else { r(n - 1) } } r(5)"); got != "0" {
		t.Errorf("got %s, expected 0", got)
	}
}

func TestDataSizeLimits(t *testing.T) {
	tests := []struct {
		limits func(l *eval.Limits)
		input  string
	}{
		{func(l *eval.Limits) { l.MaxArraySize = 3 }, "let a = [1, 2, 3]; a += [4];"},
		{func(l *eval.Limits) { l.MaxStringSize = 5 }, `let s = "abc"; s += "def";`},
		{func(l *eval.Limits) { l.MaxMapSize = 1 }, `let m = #{a: 1}; m.b = 2;`},
		{func(l *eval.Limits) { l.MaxArraySize = 3 }, "let a = [1, 2, 3]; try { a += [4]; } catch { }"},
	}
	for _, tt := range tests {
		e := eval.NewEngine()
		tt.limits(&e.Limits)
		if err := e.Run(tt.input); !isKind(err, eval.ErrDataTooLarge) {
			t.Errorf("%q: expected data too large, got %v", tt.input, err)
		}
	}
}

func TestTermination(t *testing.T) {
	e := eval.NewEngine()
	e.OnProgress = func(ops uint64) (object.Dynamic, bool) {
		return object.String("stop"), ops > 50
	}
	_, err := e.Eval("let i = 0; loop { i += 1; }")
	var ee *eval.EvalError
	if !errors.As(err, &ee) || ee.Kind != eval.ErrTerminated {
		t.Fatalf("expected termination, got %v", err)
	}
	if ee.Value.Debug() != `"stop"` {
		t.Errorf("unexpected termination token %s", ee.Value.Debug())
	}
	e.OnProgress = nil
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e.Context = ctx
	err = e.Run("loop {}")
	if !isKind(err, eval.ErrTerminated) || !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation, got %v", err)
	}
}
