package extensions

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"grol.io/rhai/eval"
	"grol.io/rhai/object"
)

// arrayIndex resolves a possibly negative index, ok is false out of bounds.
func arrayIndex(n int, i int64) (int, bool) {
	if i < 0 {
		i += int64(n)
	}
	if i < 0 || i >= int64(n) {
		return 0, false
	}
	return int(i), true
}

func boolResult(v object.Dynamic, fn string) (bool, error) {
	b, ok := v.AsBool()
	if !ok {
		return false, fmt.Errorf("%s callback must return a bool, not %s", fn, v.TypeName())
	}
	return b, nil
}

// ArrayModule has the array functions, the ones named after verbs (push,
// pop, sort...) modify the array in place.
func ArrayModule() *eval.Module {
	m := eval.NewModule()
	m.ID = "array"
	pure(m, "len", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.Int(int64(len(*arrayArg(args, 0)))), nil
	}, object.IDArray)
	pure(m, "is_empty", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.Bool(len(*arrayArg(args, 0)) == 0), nil
	}, object.IDArray)
	mut(m, "push", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		arr := arrayArg(args, 0)
		*arr = append(*arr, args[1].Clone())
		return object.Unit, nil
	}, object.IDArray, object.IDAny)
	mut(m, "pop", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		arr := arrayArg(args, 0)
		if len(*arr) == 0 {
			return object.Unit, nil
		}
		last := (*arr)[len(*arr)-1]
		*arr = (*arr)[:len(*arr)-1]
		return last, nil
	}, object.IDArray)
	mut(m, "shift", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		arr := arrayArg(args, 0)
		if len(*arr) == 0 {
			return object.Unit, nil
		}
		first := (*arr)[0]
		*arr = slices.Delete(*arr, 0, 1)
		return first, nil
	}, object.IDArray)
	mut(m, "insert", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		arr := arrayArg(args, 0)
		i := intArg(args, 1)
		if i < 0 {
			i = max(i+int64(len(*arr)), 0)
		}
		i = min(i, int64(len(*arr)))
		*arr = slices.Insert(*arr, int(i), args[2].Clone())
		return object.Unit, nil
	}, object.IDArray, object.IDInt, object.IDAny)
	mut(m, "remove", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		arr := arrayArg(args, 0)
		i, ok := arrayIndex(len(*arr), intArg(args, 1))
		if !ok {
			return object.Unit, nil
		}
		v := (*arr)[i]
		*arr = slices.Delete(*arr, i, i+1)
		return v, nil
	}, object.IDArray, object.IDInt)
	mut(m, "reverse", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		slices.Reverse(*arrayArg(args, 0))
		return object.Unit, nil
	}, object.IDArray)
	mut(m, "clear", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		*arrayArg(args, 0) = object.MakeArray(0)
		return object.Unit, nil
	}, object.IDArray)
	mut(m, "truncate", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		arr := arrayArg(args, 0)
		if n := intArg(args, 1); n < int64(len(*arr)) {
			*arr = (*arr)[:max(n, 0)]
		}
		return object.Unit, nil
	}, object.IDArray, object.IDInt)
	extract := func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		arr := *arrayArg(args, 0)
		length := int64(len(arr))
		if len(args) == 3 {
			length = intArg(args, 2)
		}
		from, to := charRange(len(arr), intArg(args, 1), length)
		res := object.MakeArray(to - from)
		for _, el := range arr[from:to] {
			res = append(res, el.Clone())
		}
		return object.NewArray(res), nil
	}
	pure(m, "extract", extract, object.IDArray, object.IDInt, object.IDInt)
	pure(m, "extract", extract, object.IDArray, object.IDInt)
	pure(m, "index_of", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		for i, el := range *arrayArg(args, 0) {
			if object.Equal(el, *args[1]) {
				return object.Int(int64(i)), nil
			}
		}
		return object.Int(-1), nil
	}, object.IDArray, object.IDAny)
	pure(m, "join", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		arr := *arrayArg(args, 0)
		parts := make([]string, 0, len(arr))
		for _, el := range arr {
			parts = append(parts, el.Inspect())
		}
		return object.String(strings.Join(parts, strArg(args, 1))), nil
	}, object.IDArray, object.IDString)
	pure(m, "map", func(ctx *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		arr, fp := *arrayArg(args, 0), fnPtrArg(args, 1)
		res := object.MakeArray(len(arr))
		for _, el := range arr {
			v, err := ctx.CallFnPtr(fp, el)
			if err != nil {
				return object.Unit, err
			}
			res = append(res, v)
		}
		return object.NewArray(res), nil
	}, object.IDArray, object.IDFnPtr)
	pure(m, "filter", func(ctx *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		arr, fp := *arrayArg(args, 0), fnPtrArg(args, 1)
		res := object.MakeArray(0)
		for _, el := range arr {
			v, err := ctx.CallFnPtr(fp, el)
			if err != nil {
				return object.Unit, err
			}
			keep, err := boolResult(v, "filter")
			if err != nil {
				return object.Unit, err
			}
			if keep {
				res = append(res, el.Clone())
			}
		}
		return object.NewArray(res), nil
	}, object.IDArray, object.IDFnPtr)
	pure(m, "reduce", func(ctx *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		arr, fp := *arrayArg(args, 0), fnPtrArg(args, 1)
		acc := args[2].Clone()
		for _, el := range arr {
			v, err := ctx.CallFnPtr(fp, acc, el)
			if err != nil {
				return object.Unit, err
			}
			acc = v
		}
		return acc, nil
	}, object.IDArray, object.IDFnPtr, object.IDAny)
	some := func(want bool) eval.NativeFn {
		return func(ctx *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
			arr, fp := *arrayArg(args, 0), fnPtrArg(args, 1)
			for _, el := range arr {
				v, err := ctx.CallFnPtr(fp, el)
				if err != nil {
					return object.Unit, err
				}
				b, err := boolResult(v, ctx.FnName())
				if err != nil {
					return object.Unit, err
				}
				if b == want {
					return object.Bool(want), nil
				}
			}
			return object.Bool(!want), nil
		}
	}
	pure(m, "some", some(true), object.IDArray, object.IDFnPtr)
	pure(m, "all", some(false), object.IDArray, object.IDFnPtr)
	mut(m, "sort", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		arr := arrayArg(args, 0)
		var err error
		slices.SortStableFunc(*arr, func(a, b object.Dynamic) int {
			c, cerr := compare(a, b)
			if cerr != nil && err == nil {
				err = cerr
			}
			return c
		})
		return object.Unit, err
	}, object.IDArray)
	mut(m, "sort", func(ctx *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		arr, fp := arrayArg(args, 0), fnPtrArg(args, 1)
		var err error
		slices.SortStableFunc(*arr, func(a, b object.Dynamic) int {
			if err != nil {
				return 0
			}
			v, cerr := ctx.CallFnPtr(fp, a, b)
			if cerr != nil {
				err = cerr
				return 0
			}
			c, ok := v.AsInt()
			if !ok {
				err = fmt.Errorf("sort callback must return an integer, not %s", v.TypeName())
			}
			return cmp.Compare(c, 0)
		})
		return object.Unit, err
	}, object.IDArray, object.IDFnPtr)
	return m
}

var errNotComparable = errors.New("sort needs elements of the same primitive type")

// compare orders ints, floats, strings and chars of the same type.
func compare(a, b object.Dynamic) (int, error) {
	if x, ok := a.AsInt(); ok {
		if y, ok := b.AsInt(); ok {
			return cmp.Compare(x, y), nil
		}
	}
	if x, ok := a.AsFloat(); ok {
		if y, ok := b.AsFloat(); ok {
			return cmp.Compare(x, y), nil
		}
	}
	if x, ok := a.AsString(); ok {
		if y, ok := b.AsString(); ok {
			return cmp.Compare(x, y), nil
		}
	}
	if x, ok := a.AsChar(); ok {
		if y, ok := b.AsChar(); ok {
			return cmp.Compare(x, y), nil
		}
	}
	return 0, errNotComparable
}
