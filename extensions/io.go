package extensions

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"fortio.org/log"
	"fortio.org/safecast"
	"grol.io/rhai/eval"
	"grol.io/rhai/object"
)

// stdinReader reads from the terminal when there is one, c.In otherwise,
// and remembers hitting the end of the input.
type stdinReader struct {
	c       *Config
	seenEOF bool
}

// read returns one line (without its end of line) or at most n bytes.
func (r *stdinReader) read(n int, lineMode bool) (string, error) {
	from := r.c.In
	if from == nil {
		from = os.Stdin
	}
	to := io.Discard
	if r.c.Term != nil {
		from = r.c.Term.IntrReader
		to = r.c.Term.Out
	}
	// one byte at a time in line mode, the terminal is in raw mode.
	var linebuf strings.Builder
	b := make([]byte, n)
	for done := false; !done; {
		if !lineMode {
			done = true
		}
		k, err := from.Read(b)
		if lineMode && k > 0 {
			if r.c.Term != nil {
				_, _ = to.Write(b[:k]) // echo.
			}
			if b[k-1] == '\r' || b[k-1] == '\n' {
				k--
				done = true
			}
		}
		if k >= 1 {
			linebuf.Write(b[:k])
		}
		if errors.Is(err, io.EOF) {
			r.seenEOF = true
			break
		}
		if err != nil {
			log.Errf("Error reading stdin: %v", err)
			return "", err
		}
	}
	return linebuf.String(), nil
}

// IOModule has the console input functions. read_line() can block, not to
// be enabled for unattended scripts.
func IOModule(c *Config) *eval.Module {
	m := eval.NewModule()
	m.ID = "io"
	r := &stdinReader{c: c}
	pure(m, "read_line", func(_ *eval.NativeCallContext, _ []*object.Dynamic) (object.Dynamic, error) {
		s, err := r.read(1, true)
		return object.String(s), err
	})
	pure(m, "read", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		n, err := safecast.Convert[int](intArg(args, 0))
		if err != nil || n <= 0 {
			return object.Unit, fmt.Errorf("invalid number of bytes to read: %d", intArg(args, 0))
		}
		s, err := r.read(n, false)
		return object.String(s), err
	}, object.IDInt)
	pure(m, "eof", func(_ *eval.NativeCallContext, _ []*object.Dynamic) (object.Dynamic, error) {
		res := r.seenEOF
		r.seenEOF = false
		return object.Bool(res), nil
	})
	pure(m, "term_size", func(_ *eval.NativeCallContext, _ []*object.Dynamic) (object.Dynamic, error) {
		t := c.Term
		if t == nil {
			return object.Unit, nil
		}
		if err := t.UpdateSize(); err != nil {
			return object.Unit, err
		}
		res := object.NewMap()
		res.Set("width", object.Int(int64(t.Width)))
		res.Set("height", object.Int(int64(t.Height)))
		return object.NewMapValue(res), nil
	})
	return m
}
