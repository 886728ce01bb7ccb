package object

import (
	"strings"

	"grol.io/rhai/token"
)

// FnPtr is a function pointer: a function name plus curried arguments.
type FnPtr struct {
	Name  string
	Curry []Dynamic
}

// IsValidFnName is true for names Fn("...") accepts: identifiers that are
// neither keywords nor keyword functions.
func IsValidFnName(name string) bool {
	if name == "" {
		return false
	}
	for i := range len(name) {
		ch := name[i]
		isLetter := ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_'
		if !isLetter && (i == 0 || ch < '0' || ch > '9') {
			return false
		}
	}
	return token.LookupIdent(name) == token.IDENT && !token.IsKeywordFunction(name)
}

func NewFnPtr(name string, curry ...Dynamic) (FnPtr, bool) {
	if !IsValidFnName(name) && !strings.HasPrefix(name, "anon$") {
		return FnPtr{}, false
	}
	return FnPtr{Name: name, Curry: curry}, true
}

func (f *FnPtr) IsAnonymous() bool {
	return strings.HasPrefix(f.Name, "anon$")
}

// Clone copies the pointer and its curried arguments.
func (f *FnPtr) Clone() *FnPtr {
	res := &FnPtr{Name: f.Name}
	if len(f.Curry) > 0 {
		res.Curry = make([]Dynamic, len(f.Curry))
		for i, c := range f.Curry {
			res.Curry[i] = c.Clone()
		}
	}
	return res
}

// AddCurry returns a new pointer with extra curried arguments appended.
func (f *FnPtr) AddCurry(args ...Dynamic) FnPtr {
	c := f.Clone()
	c.Curry = append(c.Curry, args...)
	return *c
}

func (f *FnPtr) String() string {
	return "Fn(" + f.Name + ")"
}

func (f *FnPtr) Debug() string {
	if len(f.Curry) == 0 {
		return f.String()
	}
	out := strings.Builder{}
	out.WriteString("Fn(")
	out.WriteString(f.Name)
	out.WriteString(", [")
	for i, c := range f.Curry {
		if i > 0 {
			out.WriteString(", ")
		}
		c.debug(&out)
	}
	out.WriteString("])")
	return out.String()
}
