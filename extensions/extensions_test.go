package extensions_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"grol.io/rhai/eval"
	"grol.io/rhai/extensions"
)

func newEngine(t *testing.T, c *extensions.Config) *eval.Engine {
	t.Helper()
	e := eval.NewEngine()
	if err := extensions.Init(e, c); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return e
}

func run(t *testing.T, e *eval.Engine, tests []struct{ input, expected string }) {
	t.Helper()
	for _, tt := range tests {
		v, err := e.Eval(tt.input)
		if err != nil {
			t.Errorf("Eval(%q) error: %v", tt.input, err)
			continue
		}
		if got := v.Debug(); got != tt.expected {
			t.Errorf("Eval(%q) = %s, want %s", tt.input, got, tt.expected)
		}
	}
}

func TestMath(t *testing.T) {
	e := newEngine(t, nil)
	run(t, e, []struct{ input, expected string }{
		{"abs(-3)", "3"},
		{"abs(-2.5)", "2.5"},
		{"sign(-7)", "-1"},
		{"min(3, 1)", "1"},
		{"max(1.5, 2.5)", "2.5"},
		{"sqrt(16.0)", "4.0"},
		{"sqrt(16)", "4.0"},
		{"floor(2.7)", "2.0"},
		{"to_int(2.9)", "2"},
		{"to_int('A')", "65"},
		{"to_float(3)", "3.0"},
		{"to_char(97)", "'a'"},
		{`parse_int("42")`, "42"},
		{`parse_int("ff", 16)`, "255"},
		{`parse_float("1.5")`, "1.5"},
		{"pow(2.0, 3.0)", "8.0"},
		{"is_nan(sqrt(-1.0))", "true"},
	})
}

func TestMathErrors(t *testing.T) {
	e := newEngine(t, nil)
	for _, input := range []string{
		"abs(-9223372036854775807 - 1)",
		`parse_int("abc")`,
		"to_int(pow(10.0, 300.0))",
	} {
		_, err := e.Eval(input)
		if err == nil {
			t.Errorf("Eval(%q) expected an error", input)
			continue
		}
		if ee := eval.AsEvalError(err); ee.Kind != eval.ErrRuntime {
			t.Errorf("Eval(%q) error kind %v, want runtime", input, ee.Kind)
		}
	}
}

func TestStrings(t *testing.T) {
	e := newEngine(t, nil)
	run(t, e, []struct{ input, expected string }{
		{`len("héllo")`, "5"},
		{`is_empty("")`, "true"},
		{`width("日本")`, "4"},
		{"graphemes(\"e\u0301a\")", "[\"e\u0301\", \"a\"]"}, // combining accent stays with its base.
		{`chars("ab")`, `['a', 'b']`},
		{`sub_string("hello", 1, 3)`, `"ell"`},
		{`sub_string("hello", -2)`, `"lo"`},
		{`sub_string("hello", 3, 100)`, `"lo"`},
		{`"hello".contains("ell")`, "true"},
		{`"hello".contains('z')`, "false"},
		{`"héllo".index_of('l')`, "2"},
		{`"hello".index_of("z")`, "-1"},
		{`"hello".starts_with("he")`, "true"},
		{`"Hello".to_upper()`, `"HELLO"`},
		{`"a,b,c".split(",")`, `["a", "b", "c"]`},
		{`"a b  c".split()`, `["a", "b", "c"]`},
		{`let s = "  x  "; s.trim(); s`, `"x"`},
		{`let s = "aXbX"; s.replace("X", "-"); s`, `"a-b-"`},
		{`let s = "ab"; s.pad(4, '*'); s`, `"ab**"`},
		{`"n=" + 3`, `"n=3"`},
		{`1.5 + " units"`, `"1.5 units"`},
	})
}

func TestStringsDataSize(t *testing.T) {
	e := newEngine(t, nil)
	e.Limits.MaxStringSize = 10
	_, err := e.Eval(`let s = "a"; s.pad(100, 'b')`)
	if ee := eval.AsEvalError(err); ee == nil || ee.Kind != eval.ErrDataTooLarge {
		t.Errorf("expected data too large error, got %v", err)
	}
}

func TestArrays(t *testing.T) {
	e := newEngine(t, nil)
	run(t, e, []struct{ input, expected string }{
		{"let a = [1, 2]; a.push(3); a", "[1, 2, 3]"},
		{"let a = [1, 2, 3]; a.pop()", "3"},
		{"let a = [1, 2, 3]; a.shift(); a", "[2, 3]"},
		{"let a = [1, 3]; a.insert(1, 2); a", "[1, 2, 3]"},
		{"let a = [1, 2, 3]; a.remove(-1); a", "[1, 2]"},
		{"let a = [1, 2, 3]; a.reverse(); a", "[3, 2, 1]"},
		{"let a = [1, 2, 3]; a.truncate(1); a", "[1]"},
		{"let a = [1, 2, 3]; a.clear(); a.is_empty()", "true"},
		{"[1, 2, 3, 4].extract(1, 2)", "[2, 3]"},
		{"[1, 2, 3].index_of(3)", "2"},
		{"[1] + [2, 3]", "[1, 2, 3]"},
		{`[1, "a", 'b'].join("-")`, `"1-a-b"`},
		{"[1, 2, 3].map(|x| x * 2)", "[2, 4, 6]"},
		{"[1, 2, 3, 4].filter(|x| x % 2 == 0)", "[2, 4]"},
		{"[1, 2, 3].reduce(|acc, x| acc + x, 0)", "6"},
		{"[1, 2, 3].some(|x| x > 2)", "true"},
		{"[1, 2, 3].all(|x| x > 2)", "false"},
		{"let a = [3, 1, 2]; a.sort(); a", "[1, 2, 3]"},
		{`let a = ["b", "a"]; a.sort(); a`, `["a", "b"]`},
		{"let a = [1, 3, 2]; a.sort(|x, y| y - x); a", "[3, 2, 1]"},
		{"fn double(x) { x * 2 } [1, 2].map(Fn(\"double\"))", "[2, 4]"},
	})
}

func TestArrayErrors(t *testing.T) {
	e := newEngine(t, nil)
	for _, input := range []string{
		`let a = [1, "a"]; a.sort()`,
		"[1, 2].filter(|x| x)",
		"[1, 2].map(|x| x / 0)",
	} {
		if _, err := e.Eval(input); err == nil {
			t.Errorf("Eval(%q) expected an error", input)
		}
	}
}

func TestMaps(t *testing.T) {
	e := newEngine(t, nil)
	run(t, e, []struct{ input, expected string }{
		{"#{a: 1, b: 2}.len()", "2"},
		{`#{a: 1}.contains("a")`, "true"},
		{`#{a: 1}.has("a")`, "true"},
		{`has(#{a: 1}, "b")`, "false"},
		{`"a" in #{a: 1}`, "true"},
		{"#{b: 1, a: 2}.keys()", `["b", "a"]`},
		{"#{a: 1, b: 2}.values()", "[1, 2]"},
		{`let m = #{a: 1, b: 2}; m.remove("a")`, "1"},
		{`let m = #{a: 1}; m.remove("z")`, "()"},
		{"let m = #{a: 1}; m.mixin(#{b: 2, a: 3}); m", `#{"a": 3, "b": 2}`},
		{"let m = #{a: 1}; m += #{c: 3}; m", `#{"a": 1, "c": 3}`},
		{"let m = #{a: 1}; m.fill_with(#{a: 5, b: 2}); m", `#{"a": 1, "b": 2}`},
		{"let m = #{a: 1}; let n = m + #{b: 2}; [m.len(), n.len()]", "[1, 2]"},
		{"let m = #{a: 1}; m.clear(); m.is_empty()", "true"},
	})
}

func TestFormat(t *testing.T) {
	e := newEngine(t, nil)
	run(t, e, []struct{ input, expected string }{
		{`to_json(#{b: [1, 2.5, "x"], a: (), c: true})`, `"{\"b\":[1,2.5,\"x\"],\"a\":null,\"c\":true}"`},
		{`parse_json("{\"z\": 1, \"a\": [1.5, null, false]}")`, `#{"z": 1, "a": [1.5, (), false]}`},
		{`parse_yaml("b: 1\na:\n  - x\n  - 2.5\n")`, `#{"b": 1, "a": ["x", 2.5]}`},
		{`parse_yaml(to_yaml(#{k: [1, "two"], z: 3.0}))`, `#{"k": [1, "two"], "z": 3.0}`},
	})
	if _, err := e.Eval(`parse_json("{} 1")`); err == nil {
		t.Error("expected an error for trailing json data")
	}
	if _, err := e.Eval(`to_json(Fn("x"))`); err == nil {
		t.Error("expected an error serializing a function pointer")
	}
}

func TestTime(t *testing.T) {
	e := newEngine(t, nil)
	run(t, e, []struct{ input, expected string }{
		{`parse_duration("1m30s")`, "90.0"},
		{`parse_duration("1d")`, "86400.0"},
		{"let t = timestamp(); t.elapsed >= 0.0", "true"},
		{"let t = timestamp(); let u = t + 2.0; u - t", "2.0"},
		{"let t = timestamp(); t < t + 1.0", "true"},
		{"sleep(0)", "()"},
	})
}

func TestSleepCanceled(t *testing.T) {
	e := newEngine(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	e.Context = ctx
	start := time.Now()
	_, err := e.Eval(`sleep("1h")`)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if ee := eval.AsEvalError(err); ee == nil || ee.Kind != eval.ErrTerminated {
		t.Errorf("expected a terminated error, got %v", err)
	}
	if time.Since(start) > 10*time.Second {
		t.Error("sleep not interrupted")
	}
}

func TestIO(t *testing.T) {
	e := newEngine(t, &extensions.Config{HasIO: true, In: strings.NewReader("first line\nsecond")})
	run(t, e, []struct{ input, expected string }{
		{"read_line()", `"first line"`},
		{"eof()", "false"},
		{"read_line()", `"second"`},
		{"eof()", "true"},
		{"term_size()", "()"},
	})
	if _, err := e.Eval("read(0)"); err == nil {
		t.Error("expected an error reading 0 bytes")
	}
}

func TestNoIOByDefault(t *testing.T) {
	e := newEngine(t, nil)
	for _, input := range []string{"read_line()", `exec("echo hi")`} {
		_, err := e.Eval(input)
		if ee := eval.AsEvalError(err); ee == nil || ee.Kind != eval.ErrFunctionNotFound {
			t.Errorf("Eval(%q) expected function not found, got %v", input, err)
		}
	}
}

func TestShell(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	e := newEngine(t, &extensions.Config{HasShell: true})
	run(t, e, []struct{ input, expected string }{
		{`exec("echo hello world").stdout`, `"hello world\n"`},
		{`exec(["sh", "-c", "echo oops >&2; exit 3"]).stderr`, `"oops\n"`},
		{`exec("cat", "piped").stdout`, `"piped"`},
		{`exec("true").error`, "()"},
	})
	v, err := e.Eval(`exec(["sh", "-c", "exit 3"]).error`)
	if err != nil {
		t.Fatalf("exec error: %v", err)
	}
	if s, _ := v.AsString(); !strings.Contains(s, "exit status 3") {
		t.Errorf("unexpected error field %s", v.Debug())
	}
	if _, err := e.Eval(`exec("")`); err == nil {
		t.Error("expected an error for an empty command")
	}
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		input   string
		want    []string
		wantErr bool
	}{
		{"ls -la  /tmp", []string{"ls", "-la", "/tmp"}, false},
		{" \t\n ", []string{}, false},
		{`echo "a b" 'c d' e\ f`, []string{"echo", "a b", "c d", "e f"}, false},
		{`printf '' "x"`, []string{"printf", "", "x"}, false},
		{`echo 'lit\n' "esc\"q\\"`, []string{"echo", `lit\n`, `esc"q\`}, false},
		{`grep --exclude='*.log' "search term"`, []string{"grep", "--exclude=*.log", "search term"}, false},
		{`echo "open`, nil, true},
		{`echo 'open`, nil, true},
		{`echo trailing\`, nil, true},
	}
	for _, tt := range tests {
		got, err := extensions.SplitCommand(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("SplitCommand(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !slices.Equal(got, tt.want) {
			t.Errorf("SplitCommand(%q) = %#v, want %#v", tt.input, got, tt.want)
		}
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestFileResolver(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "greet.rhai", `
const GREETING = "hello";
export GREETING;
fn greet(name) { global::GREETING + " " + name }
`)
	writeFile(t, dir, "private.rhai", `
const SECRET = 42;
fn peek() { global::SECRET + 1 }
`)
	writeFile(t, dir, "lib/geo.rhai", `
import "greet" as g;
fn area(w, h) { w * h }
fn hi() { g::greet("geo") }
`)
	writeFile(t, dir, "a.rhai", `import "b" as b;`)
	writeFile(t, dir, "b.rhai", `import "a" as a;`)
	writeFile(t, dir, "bad.rhai", `fn (`)
	e := newEngine(t, &extensions.Config{ModulesDir: dir})
	run(t, e, []struct{ input, expected string }{
		{`import "greet" as g; g::greet("you")`, `"hello you"`},
		{`import "greet" as g; g::GREETING`, `"hello"`},
		{`import "lib/geo" as geo; geo::area(2, 3)`, "6"},
		{`import "lib/geo" as geo; geo::hi()`, `"hello geo"`},
		{`import "private" as p; p::peek()`, "43"},
	})
	for _, tt := range []struct {
		input string
		kind  eval.ErrorKind
	}{
		{`import "missing" as m;`, eval.ErrModuleNotFound},
		{`import "../etc/passwd" as m;`, eval.ErrInModule},
		{`import "/etc/passwd" as m;`, eval.ErrInModule},
		{`import "a" as a;`, eval.ErrInModule},
		{`import "bad" as b;`, eval.ErrParsing},
	} {
		_, err := e.Eval(tt.input)
		if ee := eval.AsEvalError(err); ee == nil || ee.Kind != tt.kind {
			t.Errorf("Eval(%q) expected %v error, got %v", tt.input, tt.kind, err)
		}
	}
}

func TestFileResolverCache(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "v.rhai", "const V = 1; export V;")
	r := extensions.NewFileResolver(dir)
	e := eval.NewEngine()
	e.SetModuleResolver(r)
	run(t, e, []struct{ input, expected string }{{`import "v" as v; v::V`, "1"}})
	writeFile(t, dir, "v.rhai", "const V = 2; export V;")
	run(t, e, []struct{ input, expected string }{{`import "v" as v; v::V`, "1"}})
	r.Clear()
	run(t, e, []struct{ input, expected string }{{`import "v" as v; v::V`, "2"}})
}

func TestInitBadModulesDir(t *testing.T) {
	if err := extensions.Init(eval.NewEngine(), &extensions.Config{ModulesDir: "/does/not/exist"}); err == nil {
		t.Error("expected an error for a missing modules directory")
	}
	f := filepath.Join(t.TempDir(), "file")
	writeFile(t, filepath.Dir(f), "file", "")
	if err := extensions.Init(eval.NewEngine(), &extensions.Config{ModulesDir: f}); err == nil {
		t.Error("expected an error for a non directory modules path")
	}
}

func TestVersion(t *testing.T) {
	e := newEngine(t, nil)
	v, err := e.Eval("version()")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := v.AsString(); !ok {
		t.Errorf("version() should be a string, got %s", v.Debug())
	}
}
