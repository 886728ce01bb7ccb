package repl

import (
	"fmt"
	"io"
	"strings"

	"fortio.org/terminal"
	"grol.io/rhai/eval"
	"grol.io/rhai/token"
	"grol.io/rhai/trie"
)

type AutoComplete struct {
	Trie *trie.Trie
}

// NewCompletion completes the keywords and the names of the functions
// registered on e, functions with their opening parenthesis.
func NewCompletion(e *eval.Engine) *AutoComplete {
	a := &AutoComplete{trie.NewTrie()}
	info := token.Info()
	for k := range info.Keywords {
		a.Trie.Insert(k)
	}
	for k := range info.Builtins {
		a.Trie.Insert(k + "(")
	}
	for _, sig := range e.FunctionSignatures() {
		name, _, _ := strings.Cut(sig, "(")
		if isIdentifier(name) {
			a.Trie.Insert(name + "(")
		}
	}
	return a
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// isIdentifier excludes operators and the get$/set$ property accessors.
func isIdentifier(name string) bool {
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		return false
	}
	for i := range len(name) {
		if !isIdentChar(name[i]) {
			return false
		}
	}
	return true
}

func (a *AutoComplete) AutoComplete() terminal.AutoCompleteCallback {
	return func(t *terminal.Terminal, line string, pos int, key rune) (newLine string, newPos int, ok bool) {
		if key != '\t' {
			return // only tab for now
		}
		return a.Complete(t.Out, line, pos)
	}
}

// Complete extends the word before pos to the longest common prefix of the
// matching names, listing them on out when there are several.
func (a *AutoComplete) Complete(out io.Writer, line string, pos int) (newLine string, newPos int, ok bool) {
	start := pos
	for start > 0 && isIdentChar(line[start-1]) {
		start--
	}
	if start == pos {
		return
	}
	l, commands := a.Trie.PrefixAll(line[start:pos])
	if len(commands) == 0 {
		return
	}
	if len(commands) > 1 {
		fmt.Fprint(out, "One of: ")
		for _, c := range commands {
			if strings.HasSuffix(c, "(") {
				fmt.Fprint(out, c, ") ")
			} else {
				fmt.Fprint(out, c, " ")
			}
		}
		fmt.Fprintln(out)
	}
	return line[:start] + commands[0][:l] + line[pos:], start + l, true
}
