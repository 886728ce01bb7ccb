package extensions

import (
	"strings"
	"unicode/utf8"

	"fortio.org/safecast"
	"github.com/rivo/uniseg"
	"grol.io/rhai/eval"
	"grol.io/rhai/object"
)

// charRange converts a start (negative from the end) and length in
// characters into a clamped rune slice range.
func charRange(n int, start, length int64) (int, int) {
	l := int64(n)
	if start < 0 {
		start = max(l+start, 0)
	}
	start = min(start, l)
	length = min(max(length, 0), l-start)
	return int(start), int(start + length)
}

func indexOf(s, sub string) int64 {
	i := strings.Index(s, sub)
	if i < 0 {
		return -1
	}
	return int64(utf8.RuneCountInString(s[:i]))
}

// StringModule has the string functions. Indices and lengths count
// characters (code points); graphemes and width use grapheme clusters.
func StringModule() *eval.Module {
	m := eval.NewModule()
	m.ID = "string"
	pure(m, "len", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.Int(int64(utf8.RuneCountInString(strArg(args, 0)))), nil
	}, object.IDString)
	pure(m, "is_empty", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.Bool(strArg(args, 0) == ""), nil
	}, object.IDString)
	pure(m, "width", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.Int(int64(uniseg.StringWidth(strArg(args, 0)))), nil
	}, object.IDString)
	pure(m, "graphemes", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		s := strArg(args, 0)
		res := object.MakeArray(uniseg.GraphemeClusterCount(s))
		g := uniseg.NewGraphemes(s)
		for g.Next() {
			res = append(res, object.String(g.Str()))
		}
		return object.NewArray(res), nil
	}, object.IDString)
	pure(m, "chars", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		s := strArg(args, 0)
		res := object.MakeArray(utf8.RuneCountInString(s))
		for _, r := range s {
			res = append(res, object.Char(r))
		}
		return object.NewArray(res), nil
	}, object.IDString)
	subString := func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		runes := []rune(strArg(args, 0))
		length := int64(len(runes))
		if len(args) == 3 {
			length = intArg(args, 2)
		}
		from, to := charRange(len(runes), intArg(args, 1), length)
		return object.String(string(runes[from:to])), nil
	}
	pure(m, "sub_string", subString, object.IDString, object.IDInt, object.IDInt)
	pure(m, "sub_string", subString, object.IDString, object.IDInt)
	pure(m, "contains", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.Bool(strings.Contains(strArg(args, 0), strArg(args, 1))), nil
	}, object.IDString, object.IDString)
	pure(m, "contains", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.Bool(strings.ContainsRune(strArg(args, 0), charArg(args, 1))), nil
	}, object.IDString, object.IDChar)
	pure(m, "index_of", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.Int(indexOf(strArg(args, 0), strArg(args, 1))), nil
	}, object.IDString, object.IDString)
	pure(m, "index_of", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.Int(indexOf(strArg(args, 0), string(charArg(args, 1)))), nil
	}, object.IDString, object.IDChar)
	pure(m, "starts_with", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.Bool(strings.HasPrefix(strArg(args, 0), strArg(args, 1))), nil
	}, object.IDString, object.IDString)
	pure(m, "ends_with", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.Bool(strings.HasSuffix(strArg(args, 0), strArg(args, 1))), nil
	}, object.IDString, object.IDString)
	pure(m, "to_upper", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.String(strings.ToUpper(strArg(args, 0))), nil
	}, object.IDString)
	pure(m, "to_lower", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.String(strings.ToLower(strArg(args, 0))), nil
	}, object.IDString)
	pure(m, "split", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return stringsArray(strings.Split(strArg(args, 0), strArg(args, 1))), nil
	}, object.IDString, object.IDString)
	pure(m, "split", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return stringsArray(strings.Split(strArg(args, 0), string(charArg(args, 1)))), nil
	}, object.IDString, object.IDChar)
	pure(m, "split", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return stringsArray(strings.Fields(strArg(args, 0))), nil
	}, object.IDString)
	// the following modify the string in place.
	mut(m, "trim", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		*args[0] = object.String(strings.TrimSpace(strArg(args, 0)))
		return object.Unit, nil
	}, object.IDString)
	mut(m, "replace", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		*args[0] = object.String(strings.ReplaceAll(strArg(args, 0), strArg(args, 1), strArg(args, 2)))
		return object.Unit, nil
	}, object.IDString, object.IDString, object.IDString)
	mut(m, "pad", func(ctx *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		s := strArg(args, 0)
		target, err := safecast.Convert[int](intArg(args, 1))
		if err != nil {
			return object.Unit, err
		}
		if limit := ctx.Engine().Limits.MaxStringSize; limit > 0 && target > limit {
			return object.Unit, &eval.EvalError{Kind: eval.ErrDataTooLarge, Name: "Length of string"}
		}
		if n := utf8.RuneCountInString(s); n < target {
			*args[0] = object.String(s + strings.Repeat(string(charArg(args, 2)), target-n))
		}
		return object.Unit, nil
	}, object.IDString, object.IDInt, object.IDChar)
	// string + anything appends its display form.
	pure(m, "+", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.String(strArg(args, 0) + args[1].Inspect()), nil
	}, object.IDString, object.IDAny)
	pure(m, "+", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.String(args[0].Inspect() + strArg(args, 1)), nil
	}, object.IDAny, object.IDString)
	return m
}

func stringsArray(parts []string) object.Dynamic {
	res := object.MakeArray(len(parts))
	for _, p := range parts {
		res = append(res, object.String(p))
	}
	return object.NewArray(res)
}
