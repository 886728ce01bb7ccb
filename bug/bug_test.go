package bug_test

import (
	"strings"
	"testing"

	"grol.io/rhai/repl"
)

func TestEvalStringFact20(t *testing.T) {
	s := `
fn fact(n) { // recursive
    if n <= 1 {
        return 1;
    }
    n * fact(n - 1)
}
fact(20)`
	expected := "2432902008176640000\n"
	if got, errs := repl.EvalString(s); got != expected || len(errs) > 0 {
		t.Errorf("EvalString() got %v\n---\n%s\n---want---\n%s\n---", errs, got, expected)
	}
}

func TestClosureSeesLaterAssignment(t *testing.T) {
	s := `
let x = 1;
let f = || x + 1;
x = 10;
f.call()`
	if got, errs := repl.EvalString(s); got != "11\n" || len(errs) > 0 {
		t.Errorf("EvalString() got %v %q", errs, got)
	}
}

// a loop around the call doesn't make break valid in the function body.
func TestBreakInFunctionBody(t *testing.T) {
	_, errs := repl.EvalString("fn f() { break; } loop { f(); }")
	if len(errs) != 1 {
		t.Fatalf("expected one error, got %v", errs)
	}
	if !strings.Contains(errs[0], "should only be used inside a loop") {
		t.Errorf("unexpected error %q", errs[0])
	}
}
