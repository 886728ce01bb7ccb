package eval

import (
	"errors"
	"iter"
	"strconv"

	"fortio.org/safecast"
	"grol.io/rhai/object"
)

// Range is the value of range(from, to[, step]): the integers from `from`
// up to, and excluding, `to`.
type Range struct {
	From, To, Step int64
}

// RangeTypeID is the type id ranges are registered under.
var RangeTypeID = object.NewVariant(Range{}).TypeID()

func (r Range) String() string {
	s := strconv.FormatInt(r.From, 10) + ".." + strconv.FormatInt(r.To, 10)
	if r.Step != 1 {
		s += " step " + strconv.FormatInt(r.Step, 10)
	}
	return s
}

// All yields the values of the range, counting down for negative steps.
func (r Range) All() iter.Seq[int64] {
	return func(yield func(int64) bool) {
		switch {
		case r.Step > 0:
			for i := r.From; i < r.To; i += r.Step {
				if !yield(i) {
					return
				}
			}
		case r.Step < 0:
			for i := r.From; i > r.To; i += r.Step {
				if !yield(i) {
					return
				}
			}
		}
	}
}

var errZeroStep = errors.New("range step cannot be zero")

func intArg(args []*object.Dynamic, i int) int64 {
	v, _ := args[i].AsInt()
	return v
}

// CoreModule has what scripts can't do without: the iterators of arrays,
// strings and ranges, range() itself and the tag property.
func CoreModule() *Module {
	m := NewModule()
	m.ID = "core"
	m.SetIter(object.IDArray, func(v object.Dynamic) iter.Seq[object.Dynamic] {
		return func(yield func(object.Dynamic) bool) {
			arr, _ := v.AsArray()
			for _, el := range *arr {
				if !yield(el.Clone()) {
					return
				}
			}
		}
	})
	m.SetIter(object.IDString, func(v object.Dynamic) iter.Seq[object.Dynamic] {
		return func(yield func(object.Dynamic) bool) {
			s, _ := v.AsString()
			for _, c := range s {
				if !yield(object.Char(c)) {
					return
				}
			}
		}
	})
	m.SetIter(RangeTypeID, func(v object.Dynamic) iter.Seq[object.Dynamic] {
		return func(yield func(object.Dynamic) bool) {
			r, _ := object.Downcast[Range](&v)
			for i := range r.All() {
				if !yield(object.Int(i)) {
					return
				}
			}
		}
	})
	m.SetFn("range", []string{object.IDInt, object.IDInt}, func(_ *NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.NewVariant(Range{From: intArg(args, 0), To: intArg(args, 1), Step: 1}), nil
	})
	m.SetFn("range", []string{object.IDInt, object.IDInt, object.IDInt},
		func(_ *NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
			step := intArg(args, 2)
			if step == 0 {
				return object.Unit, errZeroStep
			}
			return object.NewVariant(Range{From: intArg(args, 0), To: intArg(args, 1), Step: step}), nil
		})
	m.SetFn("get$tag", []string{object.IDAny}, func(_ *NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.Int(int64(args[0].Tag())), nil
	})
	m.SetNative(&FuncInfo{
		Name:       "set$tag",
		ParamTypes: []string{object.IDAny, object.IDInt},
		Native: func(_ *NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
			t, err := safecast.Convert[int32](intArg(args, 1))
			if err != nil {
				return object.Unit, err
			}
			args[0].SetTag(t)
			return object.Unit, nil
		},
	})
	m.SetFn("to_string", []string{object.IDAny}, func(_ *NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.String(args[0].Inspect()), nil
	})
	m.SetFn("to_debug", []string{object.IDAny}, func(_ *NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.String(args[0].Debug()), nil
	})
	return m
}
