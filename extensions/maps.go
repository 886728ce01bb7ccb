package extensions

import (
	"grol.io/rhai/eval"
	"grol.io/rhai/object"
)

// MapModule has the object map functions.
func MapModule() *eval.Module {
	m := eval.NewModule()
	m.ID = "map"
	pure(m, "len", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.Int(int64(mapArg(args, 0).Len())), nil
	}, object.IDMap)
	pure(m, "is_empty", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.Bool(mapArg(args, 0).Len() == 0), nil
	}, object.IDMap)
	pure(m, "keys", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return stringsArray(mapArg(args, 0).Keys()), nil
	}, object.IDMap)
	pure(m, "values", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.NewArray(mapArg(args, 0).Values()), nil
	}, object.IDMap)
	has := func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.Bool(mapArg(args, 0).Has(strArg(args, 1))), nil
	}
	pure(m, "has", has, object.IDMap, object.IDString)
	pure(m, "contains", has, object.IDMap, object.IDString)
	mut(m, "remove", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		v, ok := mapArg(args, 0).Delete(strArg(args, 1))
		if !ok {
			return object.Unit, nil
		}
		return v, nil
	}, object.IDMap, object.IDString)
	mut(m, "clear", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		mapArg(args, 0).Clear()
		return object.Unit, nil
	}, object.IDMap)
	mixin := func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		dst := mapArg(args, 0)
		mapArg(args, 1).Range(func(k string, v *object.Dynamic) bool {
			dst.Set(k, v.Clone())
			return true
		})
		return object.Unit, nil
	}
	mut(m, "mixin", mixin, object.IDMap, object.IDMap)
	mut(m, "+=", mixin, object.IDMap, object.IDMap)
	mut(m, "fill_with", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		dst := mapArg(args, 0)
		mapArg(args, 1).Range(func(k string, v *object.Dynamic) bool {
			if !dst.Has(k) {
				dst.Set(k, v.Clone())
			}
			return true
		})
		return object.Unit, nil
	}, object.IDMap, object.IDMap)
	pure(m, "+", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		res := mapArg(args, 0).Clone()
		mapArg(args, 1).Range(func(k string, v *object.Dynamic) bool {
			res.Set(k, v.Clone())
			return true
		})
		return object.NewMapValue(res), nil
	}, object.IDMap, object.IDMap)
	return m
}
