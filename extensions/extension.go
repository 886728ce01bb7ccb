// Package extensions is the standard library of natives scripts run with:
// math, strings, arrays, maps, time, json/yaml and, when enabled, io and
// shell access. It also provides the file based module resolver.
package extensions

import (
	"fmt"
	"io"
	"os"

	"fortio.org/log"
	"fortio.org/terminal"
	"fortio.org/version"
	"grol.io/rhai/eval"
	"grol.io/rhai/object"
)

// RhaiFileExtension is appended to import paths by the file resolver.
const RhaiFileExtension = ".rhai"

// Config of the optional features.
type Config struct {
	HasIO           bool   // read_line(), eof() and term_size() present when true.
	HasShell        bool   // exec() present when true.
	ModulesDir      string // import resolves files from this directory when not empty.
	UnrestrictedIOs bool   // Dangerous when true: imports can read any readable file.
	// In is where read_line() reads from when no terminal is set, defaults to os.Stdin.
	In   io.Reader
	Term *terminal.Terminal
}

// Init registers the standard library on e. If the passed [Config] pointer
// is nil, default (safe) values are used.
func Init(e *eval.Engine, c *Config) error {
	if c == nil {
		c = &Config{}
	}
	for _, m := range []*eval.Module{
		MathModule(), StringModule(), ArrayModule(), MapModule(), TimeModule(), FormatModule(), VersionModule(),
	} {
		e.RegisterGlobalModule(m)
	}
	if c.HasIO {
		e.RegisterGlobalModule(IOModule(c))
	}
	if c.HasShell {
		e.RegisterGlobalModule(ShellModule())
	}
	if c.ModulesDir == "" {
		return nil
	}
	st, err := os.Stat(c.ModulesDir)
	if err != nil {
		return err
	}
	if !st.IsDir() {
		return fmt.Errorf("modules path %q is not a directory", c.ModulesDir)
	}
	r := NewFileResolver(c.ModulesDir)
	r.Unrestricted = c.UnrestrictedIOs
	if prev := e.ModuleResolver(); prev != nil {
		e.SetModuleResolver(eval.ResolverChain{prev, r})
	} else {
		e.SetModuleResolver(r)
	}
	log.LogVf("Modules resolved from %s", c.ModulesDir)
	return nil
}

// pure and mut add natives to m; mut ones may modify their first argument.
func pure(m *eval.Module, name string, fn eval.NativeFn, types ...string) {
	m.SetFn(name, types, fn)
}

func mut(m *eval.Module, name string, fn eval.NativeFn, types ...string) {
	m.SetNative(&eval.FuncInfo{Name: name, ParamTypes: types, Native: fn})
}

// Argument accessors: types are checked by the dispatch so the conversions
// can't fail.

func intArg(args []*object.Dynamic, i int) int64 {
	v, _ := args[i].AsInt()
	return v
}

func floatArg(args []*object.Dynamic, i int) float64 {
	if v, ok := args[i].AsFloat(); ok {
		return v
	}
	v, _ := args[i].AsInt()
	return float64(v)
}

func strArg(args []*object.Dynamic, i int) string {
	v, _ := args[i].AsString()
	return v
}

func charArg(args []*object.Dynamic, i int) rune {
	v, _ := args[i].AsChar()
	return v
}

func arrayArg(args []*object.Dynamic, i int) *[]object.Dynamic {
	v, _ := args[i].AsArray()
	return v
}

func mapArg(args []*object.Dynamic, i int) *object.Map {
	v, _ := args[i].AsMap()
	return v
}

func fnPtrArg(args []*object.Dynamic, i int) *object.FnPtr {
	v, _ := args[i].AsFnPtr()
	return v
}

var rhaiVersion string

// VersionModule has version(), the version of the runtime.
func VersionModule() *eval.Module {
	m := eval.NewModule()
	m.ID = "version"
	pure(m, "version", func(_ *eval.NativeCallContext, _ []*object.Dynamic) (object.Dynamic, error) {
		if rhaiVersion == "" {
			rhaiVersion, _, _ = version.FromBuildInfoPath("grol.io/rhai")
		}
		return object.String(rhaiVersion), nil
	})
	return m
}
