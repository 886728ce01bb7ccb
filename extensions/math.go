package extensions

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"fortio.org/safecast"
	"grol.io/rhai/eval"
	"grol.io/rhai/object"
)

type OneFloatInOutFunc func(float64) float64

// MathModule has the float functions (taking ints too), integer helpers
// and the numeric conversions.
func MathModule() *eval.Module {
	m := eval.NewModule()
	m.ID = "math"
	for _, function := range []struct {
		fn   OneFloatInOutFunc
		name string
	}{
		{math.Sin, "sin"},
		{math.Cos, "cos"},
		{math.Tan, "tan"},
		{math.Log, "ln"},
		{math.Sqrt, "sqrt"},
		{math.Exp, "exp"},
		{math.Asin, "asin"},
		{math.Acos, "acos"},
		{math.Atan, "atan"},
		{math.Log10, "log10"},
		{math.Log2, "log2"},
	} {
		cb := func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
			return object.Float(function.fn(floatArg(args, 0))), nil
		}
		pure(m, function.name, cb, object.IDFloat)
		pure(m, function.name, cb, object.IDInt)
	}
	// rounding keeps floats floats, to_int converts.
	for _, function := range []struct {
		fn   OneFloatInOutFunc
		name string
	}{
		{math.Round, "round"},
		{math.Trunc, "trunc"},
		{math.Floor, "floor"},
		{math.Ceil, "ceil"},
	} {
		pure(m, function.name, func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
			return object.Float(function.fn(floatArg(args, 0))), nil
		}, object.IDFloat)
	}
	pure(m, "pow", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.Float(math.Pow(floatArg(args, 0), floatArg(args, 1))), nil
	}, object.IDFloat, object.IDFloat)
	pure(m, "PI", func(_ *eval.NativeCallContext, _ []*object.Dynamic) (object.Dynamic, error) {
		return object.Float(math.Pi), nil
	})
	pure(m, "E", func(_ *eval.NativeCallContext, _ []*object.Dynamic) (object.Dynamic, error) {
		return object.Float(math.E), nil
	})
	pure(m, "abs", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		x := intArg(args, 0)
		if x == math.MinInt64 {
			return object.Unit, fmt.Errorf("abs overflow: %d", x)
		}
		if x < 0 {
			x = -x
		}
		return object.Int(x), nil
	}, object.IDInt)
	pure(m, "abs", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.Float(math.Abs(floatArg(args, 0))), nil
	}, object.IDFloat)
	pure(m, "sign", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		x := intArg(args, 0)
		switch {
		case x > 0:
			return object.Int(1), nil
		case x < 0:
			return object.Int(-1), nil
		}
		return object.Int(0), nil
	}, object.IDInt)
	pure(m, "min", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.Int(min(intArg(args, 0), intArg(args, 1))), nil
	}, object.IDInt, object.IDInt)
	pure(m, "max", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.Int(max(intArg(args, 0), intArg(args, 1))), nil
	}, object.IDInt, object.IDInt)
	pure(m, "min", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.Float(math.Min(floatArg(args, 0), floatArg(args, 1))), nil
	}, object.IDFloat, object.IDFloat)
	pure(m, "max", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.Float(math.Max(floatArg(args, 0), floatArg(args, 1))), nil
	}, object.IDFloat, object.IDFloat)
	pure(m, "is_nan", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.Bool(math.IsNaN(floatArg(args, 0))), nil
	}, object.IDFloat)
	pure(m, "to_int", toInt, object.IDFloat)
	pure(m, "to_int", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.Int(intArg(args, 0)), nil
	}, object.IDInt)
	pure(m, "to_int", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.Int(int64(charArg(args, 0))), nil
	}, object.IDChar)
	pure(m, "to_float", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.Float(floatArg(args, 0)), nil
	}, object.IDInt)
	pure(m, "to_float", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.Float(floatArg(args, 0)), nil
	}, object.IDFloat)
	pure(m, "to_char", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		r, err := safecast.Convert[int32](intArg(args, 0))
		if err != nil {
			return object.Unit, err
		}
		return object.Char(r), nil
	}, object.IDInt)
	pure(m, "parse_int", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		i, err := strconv.ParseInt(strings.TrimSpace(strArg(args, 0)), 0, 64)
		if err != nil {
			return object.Unit, err
		}
		return object.Int(i), nil
	}, object.IDString)
	pure(m, "parse_int", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		radix, err := safecast.Convert[int](intArg(args, 1))
		if err != nil {
			return object.Unit, err
		}
		i, err := strconv.ParseInt(strings.TrimSpace(strArg(args, 0)), radix, 64)
		if err != nil {
			return object.Unit, err
		}
		return object.Int(i), nil
	}, object.IDString, object.IDInt)
	pure(m, "parse_float", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		f, err := strconv.ParseFloat(strings.TrimSpace(strArg(args, 0)), 64)
		if err != nil {
			return object.Unit, err
		}
		return object.Float(f), nil
	}, object.IDString)
	return m
}

// toInt truncates, failing for values out of the int64 range.
func toInt(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
	f := floatArg(args, 0)
	i, err := safecast.Convert[int64](math.Trunc(f))
	if err != nil {
		return object.Unit, fmt.Errorf("cannot convert %s to an integer: %w", object.FormatFloat(f), err)
	}
	return object.Int(i), nil
}
