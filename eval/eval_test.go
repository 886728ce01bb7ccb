package eval_test

import (
	"errors"
	"testing"

	"grol.io/rhai/eval"
	"grol.io/rhai/object"
	"grol.io/rhai/token"
)

func testEval(t *testing.T, e *eval.Engine, input string) string {
	t.Helper()
	v, err := e.Eval(input)
	if err != nil {
		t.Fatalf("Eval(%q) unexpected error: %v", input, err)
	}
	return v.Debug()
}

func TestEvalExpressions(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"40 + 2", "42"},
		{"5 + 2 * 10", "25"},
		{"(5 + 10 * 2 + 15 / 3) * 2 + -10", "50"},
		{"7 / 2", "3"},
		{"-7 % 3", "-1"},
		{"2 ** 10", "1024"},
		{"5 & 3", "1"},
		{"1 + 2.5", "3.5"},
		{"3.0 * 2", "6.0"},
		{"1 < 2 && 2 < 3", "true"},
		{"!(1 == 1)", "false"},
		{`"a" + "b"`, `"ab"`},
		{`"abc" + 'd'`, `"abcd"`},
		{"()", "()"},
		{"let x = 5; `x = ${x + 1}`", `"x = 6"`},
		{"2 in [1, 2, 3]", "true"},
		{`"b" in #{a: 1}`, "false"},
		{"let a = [1, 2]; a += [3]; a", "[1, 2, 3]"},
		{"let m = #{b: 1, a: 2}; m", `#{"b": 1, "a": 2}`},
	}
	e := eval.NewEngine()
	for _, tt := range tests {
		if got := testEval(t, e, tt.input); got != tt.expected {
			t.Errorf("%q: got %s, expected %s", tt.input, got, tt.expected)
		}
	}
}

func TestStatements(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"let x = 1; { let x = 2; } x", "1"},
		{"let x = 1; { x = 2; } x", "2"},
		{"let x = 1; if x > 0 { 10 } else { 20 }", "10"},
		{"let x = -1; if x > 0 { 10 } else if x == 0 { 0 } else { 20 }", "20"},
		{"let s = 0; for i in range(0, 5) { s += i; } s", "10"},
		{"let s = 0; for i in range(10, 0, -3) { s += i; } s", "22"},
		{"let r = []; for (c, i) in ['a', 'b'] { r += [i]; } r", "[0, 1]"},
		{`let n = 0; for c in "héllo" { n += 1; } n`, "5"},
		{"let n = 0; for i in range(0, 3) { for j in range(0, 3) { if j == 1 { break; } n += 1; } } n", "3"},
		{"let n = 0; for i in range(0, 5) { if i % 2 == 0 { continue; } n += i; } n", "4"},
		{"let i = 0; while i < 5 { i += 1; } i", "5"},
		{"let i = 0; loop { i += 1; if i == 7 { break; } } i", "7"},
		{"let i = 0; do { i += 1; } until i >= 3; i", "3"},
		{"let i = 10; do { i += 1; } while i < 3; i", "11"},
		{`let x = 2; switch x { 1 => "one", 2 => "two", _ => "many" }`, `"two"`},
		{`let x = 5; switch x { 1 => "one", 2 => "two", _ => "many" }`, `"many"`},
		{`let x = 2; let y = -1; switch x { 2 if y > 0 => "pos", _ => "other" }`, `"other"`},
		{`let x = 2; let y = 1; switch x { 2 if y > 0 => "pos", _ => "other" }`, `"pos"`},
		{"let x = 3; switch x { 1 => 10 }", "()"},
	}
	e := eval.NewEngine()
	for _, tt := range tests {
		if got := testEval(t, e, tt.input); got != tt.expected {
			t.Errorf("%q: got %s, expected %s", tt.input, got, tt.expected)
		}
	}
}

func TestIndexing(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"let a = [1, 2, 3]; a[0]", "1"},
		{"let a = [1, 2, 3]; a[-1]", "3"},
		{"let a = [1, 2, 3]; a[-3]", "1"},
		{"let a = [1, [2, 3]]; a[1][0] = 5; a", "[1, [5, 3]]"},
		{`let s = "héllo"; s[1]`, `'é'`},
		{`let s = "héllo"; s[-1]`, `'o'`},
		{`let s = "abc"; s[1] = 'X'; s`, `"aXc"`},
		{`let s = "héllo"; s[1] = 'e'; s`, `"hello"`},
		{"let a = #{x: 1}; a.x = 2; a.x", "2"},
		{`let a = #{x: 1}; a["y"] = 3; a`, `#{"x": 1, "y": 3}`},
		{"let m = #{a: 1, b: #{c: [1, 2]}}; m.b.c[1] += 5; m", `#{"a": 1, "b": #{"c": [1, 7]}}`},
		{"let x = 0; x[3] = true; x", "8"},
		{"let x = 5; x[0]", "true"},
		{"let x = 5; x[1]", "false"},
		{"let x = -1; x[63]", "true"},
		{"let x = 1; x[-64]", "true"},
		{"let x = 1; x[-1]", "false"},
		{"let x = 15; x[0] = false; x", "14"},
	}
	e := eval.NewEngine()
	for _, tt := range tests {
		if got := testEval(t, e, tt.input); got != tt.expected {
			t.Errorf("%q: got %s, expected %s", tt.input, got, tt.expected)
		}
	}
}

func TestFunctions(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"fn add(a, b) { a + b } add(1, 2)", "3"},
		{"fn fib(n) { if n < 2 { n } else { fib(n - 1) + fib(n - 2) } } fib(10)", "55"},
		{"fn f(x) { if x > 0 { return 1; } -1 } f(5)", "1"},
		{"fn f(x) { if x > 0 { return 1; } -1 } f(-5)", "-1"},
		{"fn f() { } f()", "()"},
		// arguments are passed by value, even the first one.
		{"fn f(a) { a.x = 5; } let m = #{x: 1}; f(m); m.x", "1"},
		{"fn inc() { this += 1; } let x = 1; x.inc(); x", "2"},
		{"fn get() { this.x } let m = #{x: 7}; m.get()", "7"},
		{"let x = 1; let f = || x + 1; x = 10; f.call()", "11"},
		{"let n = 0; let inc = || { n += 1; }; inc.call(); inc.call(); n", "2"},
		{"let n = 0; let inc = || { n += 1; }; inc.call(); is_shared(n)", "true"},
		{`fn add(a, b) { a + b } let f = Fn("add"); f.call(1, 2)`, "3"},
		{`fn add(a, b) { a + b } let g = Fn("add").curry(10); g.call(5)`, "15"},
		{`fn add(a, b) { a + b } call(Fn("add"), 2, 3)`, "5"},
		{"call(|x| x * 2, 21)", "42"},
		{"let f = |x| x * 2; f(21)", "42"},
		{"let m = #{v: 2, double: || this.v * 2}; m.double()", "4"},
		{"const K = 3; fn f() { global::K * 2 } f()", "6"},
		{"fn f(a) { a } is_def_fn(\"f\", 1)", "true"},
		{"fn f(a) { a } is_def_fn(\"f\", 2)", "false"},
		{`let x = 1; is_def_var("x")`, "true"},
		{`is_def_var("y")`, "false"},
		{`let x = 1; eval("x + 1")`, "2"},
		{`eval("let y = 5;"); y`, "5"},
		{"let t = 1; t.tag = 42; t.tag", "42"},
		{"to_string([1, \"a\"])", `"[1, \"a\"]"`},
	}
	e := eval.NewEngine()
	for _, tt := range tests {
		if got := testEval(t, e, tt.input); got != tt.expected {
			t.Errorf("%q: got %s, expected %s", tt.input, got, tt.expected)
		}
	}
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1", "i64"},
		{"1.5", "f64"},
		{"true", "bool"},
		{`"a"`, "string"},
		{"'a'", "char"},
		{"[]", "array"},
		{"#{}", "map"},
		{"()", "()"},
		{"|x| x", "Fn"},
		{"range(0, 3)", "range"},
	}
	e := eval.NewEngine()
	for _, tt := range tests {
		input := "type_of(" + tt.input + ")"
		if got := testEval(t, e, input); got != `"`+tt.expected+`"` {
			t.Errorf("%q: got %s, expected %q", input, got, tt.expected)
		}
		method := "let v = " + tt.input + "; v.type_of()"
		if got := testEval(t, e, method); got != `"`+tt.expected+`"` {
			t.Errorf("%q: got %s, expected %q", method, got, tt.expected)
		}
	}
}

func TestTryCatch(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"let r = 0; try { throw 42; } catch (e) { r = e; } r", "42"},
		{"let r = 0; try { let a = [1]; a[5]; } catch (e) { r = e.index; } r", "5"},
		{`let r = 0; try { let a = [1]; a[5]; } catch (e) { r = e.error; } r`, `"ErrArrayBounds"`},
		{`let r = (); try { try { throw "a"; } catch { throw; } } catch (e) { r = e; } r`, `"a"`},
		{`fn f() { throw "boom"; } let r = (); try { f(); } catch (e) { r = e; } r`, `"boom"`},
		{`let r = 1; try { r = 2; } catch { r = 3; } r`, "2"},
		{`let r = (); try { foo(1); } catch (e) { r = e.function; } r`, `"foo (i64)"`},
	}
	e := eval.NewEngine()
	for _, tt := range tests {
		if got := testEval(t, e, tt.input); got != tt.expected {
			t.Errorf("%q: got %s, expected %s", tt.input, got, tt.expected)
		}
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		input string
		kind  eval.ErrorKind
	}{
		{"let x = 1; x / 0", eval.ErrArithmetic},
		{"let x = 9223372036854775807; x + 1", eval.ErrArithmetic},
		{"y", eval.ErrVariableNotFound},
		{`foo(1, "a")`, eval.ErrFunctionNotFound},
		{"const X = 1; X = 2;", eval.ErrAssignmentToConstant},
		{"const A = [1]; A[0] = 2;", eval.ErrAssignmentToConstant},
		{"const M = #{x: 1}; M.x += 1;", eval.ErrAssignmentToConstant},
		{"let a = [1, 2, 3]; a[3]", eval.ErrArrayBounds},
		{"let a = [1, 2, 3]; a[-4]", eval.ErrArrayBounds},
		{"let a = []; a[0]", eval.ErrArrayBounds},
		{`let s = "abc"; s[3]`, eval.ErrStringBounds},
		{"let x = 1; x[64]", eval.ErrBitFieldBounds},
		{"let x = 1; x[-65]", eval.ErrBitFieldBounds},
		{"let n = 42; for x in n {}", eval.ErrFor},
		{"let c = 1; if c {}", eval.ErrMismatchDataType},
		{`throw "boom";`, eval.ErrRuntime},
		{"fn f() { throw 1; } f()", eval.ErrInFunctionCall},
		{`import "nope" as n;`, eval.ErrModuleNotFound},
		{"let x = 1 +", eval.ErrParsing},
		{"range(0, 5, 0)", eval.ErrRuntime},
	}
	e := eval.NewEngine()
	for _, tt := range tests {
		_, err := e.Eval(tt.input)
		if err == nil {
			t.Errorf("%q: expected an error", tt.input)
			continue
		}
		var ee *eval.EvalError
		if !errors.As(err, &ee) {
			t.Errorf("%q: error %v is not an EvalError", tt.input, err)
			continue
		}
		if ee.Kind != tt.kind {
			t.Errorf("%q: got %v (%v), expected %v", tt.input, ee.Kind, err, tt.kind)
		}
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"let a = [1, 2, 3]; a[3]", "Array index 3 out of bounds: only 3 elements in the array"},
		{"let a = [1]; a[-2]", "Array index -2 out of bounds: only 1 element in the array"},
		{`let s = ""; s[0]`, "String index 0 out of bounds: string is empty"},
		{`foo(1, "a")`, "Function not found: foo (i64, string)"},
		{"const X = 1; X = 2;", "Cannot modify constant X"},
		{`throw "boom";`, "Runtime error: boom"},
	}
	e := eval.NewEngine()
	for _, tt := range tests {
		_, err := e.Eval(tt.input)
		var ee *eval.EvalError
		if !errors.As(err, &ee) {
			t.Errorf("%q: expected an EvalError, got %v", tt.input, err)
			continue
		}
		if got := ee.Message(); got != tt.expected {
			t.Errorf("%q: got %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestErrorInFunction(t *testing.T) {
	e := eval.NewEngine()
	_, err := e.Eval("fn f() { throw 1; }\nf()")
	if !errors.Is(err, &eval.EvalError{Kind: eval.ErrRuntime}) {
		t.Fatalf("expected the thrown error to be wrapped, got %v", err)
	}
	var ee *eval.EvalError
	if !errors.As(err, &ee) || ee.Name != "f" {
		t.Errorf("expected an error in call to f, got %#v", ee)
	}
	if inner := ee.Innermost(); inner.Kind != eval.ErrRuntime || inner.Value.Debug() != "1" {
		t.Errorf("unexpected innermost error %v", inner)
	}
}

func TestPrintAndDebug(t *testing.T) {
	e := eval.NewEngine()
	var printed, debugged []string
	e.OnPrint = func(text string) { printed = append(printed, text) }
	e.OnDebug = func(text, _ string, _ token.Position) { debugged = append(debugged, text) }
	err := e.Run(`for i in [1, 2, 3] { print(i); if i == 2 { break; } } debug("hi"); print("hi");`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(printed) != 3 || printed[0] != "1" || printed[1] != "2" || printed[2] != "hi" {
		t.Errorf("unexpected prints %q", printed)
	}
	if len(debugged) != 1 || debugged[0] != `"hi"` {
		t.Errorf("unexpected debug output %q", debugged)
	}
}

func TestScopeRoundTrip(t *testing.T) {
	e := eval.NewEngine()
	scope := object.NewScope().Push("x", 40)
	v, err := e.EvalWithScope(scope, "x += 2; x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if i, ok := v.AsInt(); !ok || i != 42 {
		t.Errorf("got %s, expected 42", v.Debug())
	}
	if x, ok := object.GetValue[int64](scope, "x"); !ok || x != 42 {
		t.Errorf("scope x is %d, expected 42", x)
	}
	// top level definitions stay in the scope for the next run.
	if err = e.RunWithScope(scope, "let y = x * 2;"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if y, ok := object.GetValue[int64](scope, "y"); !ok || y != 84 {
		t.Errorf("scope y is %d, expected 84", y)
	}
	scope.PushConstant("C", 1)
	err = e.RunWithScope(scope, "C = 2;")
	if !errors.Is(err, &eval.EvalError{Kind: eval.ErrAssignmentToConstant}) {
		t.Errorf("expected constant error, got %v", err)
	}
}

func TestEvalAs(t *testing.T) {
	e := eval.NewEngine()
	i, err := eval.EvalAs[int64](e, "40 + 2")
	if err != nil || i != 42 {
		t.Errorf("got %d, %v, expected 42", i, err)
	}
	s, err := eval.EvalAs[string](e, `"a" + "b"`)
	if err != nil || s != "ab" {
		t.Errorf("got %q, %v, expected ab", s, err)
	}
	_, err = eval.EvalAs[string](e, "42")
	if !errors.Is(err, &eval.EvalError{Kind: eval.ErrMismatchOutputType}) {
		t.Errorf("expected output type error, got %v", err)
	}
}

func TestCallFn(t *testing.T) {
	e := eval.NewEngine()
	tree, err := e.Compile("let base = 100; fn add(a, b) { a + b }")
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	scope := object.NewScope()
	v, err := e.CallFn(scope, tree, "add", 1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Debug() != "3" {
		t.Errorf("got %s, expected 3", v.Debug())
	}
	if !scope.Contains("base") {
		t.Errorf("top level statements were not run")
	}
	_, err = e.CallFn(object.NewScope(), tree, "sub", 1, 2)
	if !errors.Is(err, &eval.EvalError{Kind: eval.ErrFunctionNotFound}) {
		t.Errorf("expected function not found, got %v", err)
	}
}

func TestCompileExpression(t *testing.T) {
	e := eval.NewEngine()
	if _, err := e.CompileExpression("let x = 1"); err == nil {
		t.Errorf("statements should not parse as an expression")
	}
	v, err := e.EvalExpressionWithScope(object.NewScope().Push("x", 2), "x * 21")
	if err != nil || v.Debug() != "42" {
		t.Errorf("got %s, %v, expected 42", v.Debug(), err)
	}
}
