// Package repl evaluates scripts for the command line: whole inputs, one
// string, or interactively with line editing, history and completion.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"fortio.org/log"
	"fortio.org/terminal"
	"github.com/rivo/uniseg"
	"grol.io/rhai/ast"
	"grol.io/rhai/eval"
	"grol.io/rhai/extensions"
	"grol.io/rhai/object"
	"grol.io/rhai/parser"
)

const (
	PROMPT       = "$ "
	CONTINUATION = "> "
)

type Options struct {
	ShowParse bool
	ShowEval  bool
	All       bool // input is a whole script, not a line at a time.
	NoColor   bool
	// Source is the name errors and debug() report, the file name usually.
	Source      string
	HistoryFile string
	MaxHistory  int
	// PreInput is called with the engine before any evaluation, to register
	// additional functions.
	PreInput func(*eval.Engine)
}

// Session is the state kept between evaluations: the engine, the top level
// variables and the script functions defined so far.
type Session struct {
	Engine *eval.Engine
	Scope  *object.Scope
	lib    *ast.AST
}

func NewSession(e *eval.Engine) *Session {
	return &Session{Engine: e, Scope: object.NewScope(), lib: &ast.AST{}}
}

// Functions defined in the session so far.
func (s *Session) Functions() []*ast.ScriptFnDef {
	return s.lib.Functions
}

func EvalStringOptions() Options {
	return Options{ShowEval: true, All: true, NoColor: true}
}

// EvalString runs what with the standard library and no io, and returns
// what it printed followed by its result, if not unit.
func EvalString(what string) (res string, errs []string) {
	return EvalStringWithOption(context.Background(), EvalStringOptions(), what)
}

func EvalStringWithOption(ctx context.Context, o Options, what string) (res string, errs []string) {
	e := eval.NewEngine()
	if err := extensions.Init(e, nil); err != nil {
		return "", []string{err.Error()}
	}
	e.Context = ctx
	out := strings.Builder{}
	e.OnPrint = func(text string) {
		out.WriteString(text)
		out.WriteByte('\n')
	}
	if o.PreInput != nil {
		o.PreInput(e)
	}
	errs = NewSession(e).EvalOne(what, &out, o)
	return out.String(), errs
}

// EvalAll reads all of in and evaluates it in s.
func EvalAll(s *Session, in io.Reader, out io.Writer, options Options) []string {
	b, err := io.ReadAll(in)
	if err != nil {
		log.Errf("Error reading input: %v", err)
		return []string{err.Error()}
	}
	return s.EvalOne(string(b), out, options)
}

func (o Options) color(c string) string {
	if o.NoColor {
		return ""
	}
	return c
}

// ErrorContext is the source line of a parse error with a caret under the
// error's column, "" when there is no position.
func ErrorContext(source string, err error) string {
	var pe *parser.Error
	if !errors.As(err, &pe) || pe.Pos.IsNone() {
		return ""
	}
	lines := strings.Split(source, "\n")
	if pe.Pos.Line > len(lines) {
		return ""
	}
	line := strings.TrimRight(lines[pe.Pos.Line-1], "\r")
	col := min(max(pe.Pos.Col-1, 0), len(line))
	// tabs keep their width by being copied.
	pad := strings.Builder{}
	for _, r := range line[:col] {
		if r == '\t' {
			pad.WriteRune('\t')
		}
	}
	width := uniseg.StringWidth(strings.ReplaceAll(line[:col], "\t", ""))
	return line + "\n" + pad.String() + strings.Repeat(" ", width) + "^"
}

// EvalOne compiles and runs what. Functions it defines and its top level
// variables stay in the session.
func (s *Session) EvalOne(what string, out io.Writer, options Options) (errs []string) {
	tree, err := s.Engine.Compile(what)
	if err != nil {
		if c := ErrorContext(what, err); c != "" {
			fmt.Fprintln(out, c)
		}
		fmt.Fprintf(out, "%s%v%s\n", options.color(log.Colors.Red), err, options.color(log.Colors.Reset))
		return []string{err.Error()}
	}
	if options.ShowParse {
		fmt.Fprint(out, "== Parse ==> ")
		fmt.Fprintln(out, tree.String())
	}
	merged := (&ast.AST{Source: tree.Source, Functions: s.lib.Functions}).Merge(tree)
	v, err := s.Engine.EvalASTWithState(eval.NewEvalState(options.Source), s.Scope, merged)
	if err != nil {
		fmt.Fprintf(out, "%s%v%s\n", options.color(log.Colors.Red), err, options.color(log.Colors.Reset))
		return []string{err.Error()}
	}
	s.lib = &ast.AST{Functions: merged.Functions}
	if !options.ShowEval || v.IsUnit() {
		return nil
	}
	fmt.Fprintf(out, "%s%s%s\n", options.color(log.Colors.Green), v.Debug(), options.color(log.Colors.Reset))
	return nil
}

func isIncomplete(err error) bool {
	var pe *parser.Error
	return errors.As(err, &pe) && pe.Incomplete
}

// Interactive reads lines from the terminal and evaluates them until EOF
// (^D). Lines starting with ! are run as commands; inputs not complete yet
// (open blocks) continue on the next line.
func Interactive(s *Session, options Options) int {
	options.All = false
	t, err := terminal.Open(context.Background())
	if err != nil {
		return log.FErrf("Error creating terminal: %v", err)
	}
	defer t.Close()
	t.SetPrompt(PROMPT)
	terminal.LoggerSetup(t.Out)
	s.Engine.OnPrint = func(text string) {
		fmt.Fprintln(t.Out, text)
	}
	if options.MaxHistory > 0 {
		t.NewHistory(options.MaxHistory)
		t.SetAutoHistory(false)
		if err := t.SetHistoryFile(options.HistoryFile); err != nil {
			log.Warnf("History file %q: %v", options.HistoryFile, err)
		}
	}
	if options.PreInput != nil {
		options.PreInput(s.Engine)
	}
	t.SetAutoCompleteCallback(NewCompletion(s.Engine).AutoComplete())
	pending := ""
	for {
		rd, err := t.ReadLine()
		if errors.Is(err, io.EOF) {
			log.Infof("Exit requested")
			return 0
		}
		if errors.Is(err, terminal.ErrUserInterrupt) {
			pending = ""
			t.SetPrompt(PROMPT)
			continue
		}
		if err != nil {
			return log.FErrf("Error reading line: %v", err)
		}
		if pending == "" && strings.HasPrefix(strings.TrimSpace(rd), "!") {
			t.AddToHistory(rd)
			if err := RunCommand(s.Engine.Context, strings.TrimSpace(rd)[1:], t.Out); err != nil {
				fmt.Fprintf(t.Out, "%s%v%s\n", log.Colors.Red, err, log.Colors.Reset)
			}
			continue
		}
		what := pending + rd
		if strings.TrimSpace(what) == "" {
			continue
		}
		if _, err := s.Engine.Compile(what); isIncomplete(err) {
			pending = what + "\n"
			t.SetPrompt(CONTINUATION)
			continue
		}
		pending = ""
		t.SetPrompt(PROMPT)
		t.AddToHistory(what)
		s.EvalOne(what, t.Out, options)
	}
}
