package repl_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"grol.io/rhai/eval"
	"grol.io/rhai/extensions"
	"grol.io/rhai/object"
	"grol.io/rhai/repl"
)

func TestEvalString(t *testing.T) {
	s := `
fn fact(n) {
    print(` + "`called fact ${n}`" + `); // printed to the result
    if n <= 1 {
        return 1;
    }
    n * fact(n - 1)
}
let result = fact(5);
print(` + "`Factorial of 5 is ${result}`" + `);
result`
	expected := `called fact 5
called fact 4
called fact 3
called fact 2
called fact 1
Factorial of 5 is 120
120
`
	if got, errs := repl.EvalString(s); got != expected || len(errs) > 0 {
		t.Errorf("EvalString() got %v\n---\n%s\n---want---\n%s\n---", errs, got, expected)
	}
}

func TestEvalStringUnitNotShown(t *testing.T) {
	res, errs := repl.EvalString(` print("ab\nc")  `)
	if len(errs) != 0 {
		t.Fatalf("EvalString() got errors expected none %v", errs)
	}
	if expected := "ab\nc\n"; res != expected {
		t.Errorf("EvalString() result %q want %q", res, expected)
	}
}

func TestEvalStringParsingError(t *testing.T) {
	res, errs := repl.EvalString("let x = 1;\nlet = 2;")
	if len(errs) != 1 {
		t.Fatalf("EvalString() got %v, expected one error", errs)
	}
	if !strings.Contains(errs[0], "line 2") {
		t.Errorf("error should have the line: %q", errs[0])
	}
	// the offending line and a caret under the error.
	if !strings.HasPrefix(res, "let = 2;\n") || !strings.Contains(res, "^") {
		t.Errorf("missing error context in %q", res)
	}
}

func TestEvalStringEvalError(t *testing.T) {
	res, errs := repl.EvalString("\t y\n\n")
	if len(errs) != 1 {
		t.Fatalf("EvalString() got %v (res %q), expected one error", errs, res)
	}
	if !strings.HasPrefix(errs[0], "Variable not found: y (line 1, position") {
		t.Errorf("EvalString() error %q", errs[0])
	}
	if !strings.HasPrefix(res, "Variable not found: y") {
		t.Errorf("EvalString() result should be just the error, got %q", res)
	}
}

func TestPreInputHook(t *testing.T) {
	opts := repl.EvalStringOptions()
	opts.PreInput = func(e *eval.Engine) {
		e.RegisterFn("test_hook", func(_ *eval.NativeCallContext, _ []*object.Dynamic) (object.Dynamic, error) {
			return object.Int(42), nil
		})
	}
	res, errs := repl.EvalStringWithOption(context.Background(), opts, `test_hook()`)
	if res != "42\n" || len(errs) > 0 {
		t.Errorf("EvalString() got %v %q", errs, res)
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, errs := repl.EvalStringWithOption(ctx, repl.EvalStringOptions(), `let x = 0; loop { x += 1; }`)
	if len(errs) != 1 || !strings.HasPrefix(errs[0], "Script terminated") {
		t.Errorf("expected termination, got %v", errs)
	}
}

func TestSessionKeepsState(t *testing.T) {
	e := eval.NewEngine()
	s := repl.NewSession(e)
	var out bytes.Buffer
	opts := repl.EvalStringOptions()
	if errs := s.EvalOne("fn twice(x) { x * 2 } let base = 20;", &out, opts); len(errs) > 0 {
		t.Fatalf("first input: %v", errs)
	}
	if errs := s.EvalOne("base += 1; twice(base)", &out, opts); len(errs) > 0 {
		t.Fatalf("second input: %v", errs)
	}
	if out.String() != "42\n" {
		t.Errorf("got %q", out.String())
	}
	if len(s.Functions()) != 1 || s.Functions()[0].Name != "twice" {
		t.Errorf("functions %v", s.Functions())
	}
	// a failed input doesn't lose the functions.
	out.Reset()
	if errs := s.EvalOne("twice(nope)", &out, opts); len(errs) != 1 {
		t.Errorf("expected an error, got %q", out.String())
	}
	out.Reset()
	s.EvalOne("twice(base)", &out, opts)
	if out.String() != "42\n" {
		t.Errorf("got %q", out.String())
	}
}

func TestEvalAll(t *testing.T) {
	s := repl.NewSession(eval.NewEngine())
	var out bytes.Buffer
	errs := repl.EvalAll(s, strings.NewReader("let a = [1, 2, 3];\na[-1] = 9;\na"), &out, repl.EvalStringOptions())
	if len(errs) > 0 || out.String() != "[1, 2, 9]\n" {
		t.Errorf("EvalAll() got %v %q", errs, out.String())
	}
}

func TestShowParse(t *testing.T) {
	opts := repl.EvalStringOptions()
	opts.ShowParse = true
	res, errs := repl.EvalStringWithOption(context.Background(), opts, "1+2*3")
	if len(errs) > 0 {
		t.Fatalf("errors %v", errs)
	}
	if expected := "== Parse ==> (1 + (2 * 3))\n7\n"; res != expected {
		t.Errorf("got %q want %q", res, expected)
	}
}

func TestCompletion(t *testing.T) {
	e := eval.NewEngine()
	if err := extensions.Init(e, nil); err != nil {
		t.Fatal(err)
	}
	c := repl.NewCompletion(e)
	tests := []struct {
		line    string
		pos     int
		newLine string
		listed  bool
	}{
		{"x = type_o", 10, "x = type_of(", false},
		{"to_up", 5, "to_upper(", false},
		{"pri", 3, "pri", true}, // print( and private.
		{"zzz", 3, "", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got, _, ok := c.Complete(&out, tt.line, tt.pos)
		if got != tt.newLine {
			t.Errorf("Complete(%q) = %q (%v), want %q", tt.line, got, ok, tt.newLine)
		}
		if listed := out.Len() > 0; listed != tt.listed {
			t.Errorf("Complete(%q) listed %q", tt.line, out.String())
		}
	}
}
