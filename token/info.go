package token

import "fortio.org/sets"

// LangInfo enables introspection of known keywords, keyword functions and operators.
type LangInfo struct {
	// Keywords is a map of all known keywords.
	Keywords sets.Set[string]
	Reserved sets.Set[string]
	Builtins sets.Set[string]
	Tokens   sets.Set[string]
}

var info = LangInfo{}

func Info() LangInfo {
	return info
}
