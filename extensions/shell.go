package extensions

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"fortio.org/log"
	"grol.io/rhai/eval"
	"grol.io/rhai/object"
)

// SplitCommand splits cmd into arguments the way a shell would for the
// simple cases: whitespace separated, with '...' taken literally and "..."
// or a backslash escaping the next character.
func SplitCommand(cmd string) ([]string, error) {
	parts := []string{}
	var cur strings.Builder
	var quote rune
	inWord, escaped := false, false
	for _, r := range cmd {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped, inWord = true, true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote, inWord = r, true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if inWord {
				parts = append(parts, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if escaped {
		return nil, errors.New("unterminated escape at end of command")
	}
	if quote != 0 {
		return nil, fmt.Errorf("unclosed quote: missing closing %c", quote)
	}
	if inWord {
		parts = append(parts, cur.String())
	}
	return parts, nil
}

func createCmd(ctx *eval.NativeCallContext, args []string) (*exec.Cmd, error) {
	if len(args) == 0 || args[0] == "" {
		return nil, fmt.Errorf("%s: no command given", ctx.FnName())
	}
	c := ctx.Engine().Context
	if c == nil {
		c = context.Background()
	}
	//nolint:gosec // we do want to run the command given by the script.
	return exec.CommandContext(c, args[0], args[1:]...), nil
}

// execCmd runs the command and returns its stdout, stderr and error
// message, unit when it succeeded.
func execCmd(ctx *eval.NativeCallContext, args []string, stdin string) (object.Dynamic, error) {
	cmd, err := createCmd(ctx, args)
	if err != nil {
		return object.Unit, err
	}
	log.Infof("Running %#v", cmd.Args)
	var sout, serr bytes.Buffer
	cmd.Stdout = &sout
	cmd.Stderr = &serr
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	err = cmd.Run()
	res := object.NewMap()
	res.Set("stdout", object.String(sout.String()))
	res.Set("stderr", object.String(serr.String()))
	if err != nil {
		res.Set("error", object.String(err.Error()))
	} else {
		res.Set("error", object.Unit)
	}
	return object.NewMapValue(res), nil
}

func cmdArgs(v object.Dynamic) ([]string, error) {
	if s, ok := v.AsString(); ok {
		return SplitCommand(s)
	}
	arr, _ := v.AsArray()
	res := make([]string, 0, len(*arr))
	for _, el := range *arr {
		s, ok := el.AsString()
		if !ok {
			return nil, fmt.Errorf("exec: argument %s not a string", el.Debug())
		}
		res = append(res, s)
	}
	return res, nil
}

// ShellModule has exec(), running commands with the engine's context.
func ShellModule() *eval.Module {
	m := eval.NewModule()
	m.ID = "shell"
	run := func(ctx *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		parts, err := cmdArgs(*args[0])
		if err != nil {
			return object.Unit, err
		}
		stdin := ""
		if len(args) == 2 {
			stdin = strArg(args, 1)
		}
		return execCmd(ctx, parts, stdin)
	}
	for _, t := range []string{object.IDString, object.IDArray} {
		pure(m, "exec", run, t)
		pure(m, "exec", run, t, object.IDString)
	}
	return m
}
