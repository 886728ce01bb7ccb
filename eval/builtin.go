package eval

import (
	"math"
	"strings"

	"grol.io/rhai/object"
	"grol.io/rhai/token"
)

// builtinFn implements an operator on primitive types, used when no
// registered function matches.
type builtinFn func(args []object.Dynamic, pos token.Position) (object.Dynamic, *EvalError)

// builtinOp returns the built in implementation of op for the argument
// types, nil if there is none.
func builtinOp(op string, args []*object.Dynamic) builtinFn {
	switch len(args) {
	case 1:
		return unaryOp(op, args[0].Type())
	case 2:
		return binaryOp(op, args[0].Type(), args[1].Type())
	}
	return nil
}

func unaryOp(op string, t object.Type) builtinFn {
	switch {
	case op == "-" && t == object.INT:
		return func(args []object.Dynamic, pos token.Position) (object.Dynamic, *EvalError) {
			x, _ := args[0].AsInt()
			if x == math.MinInt64 {
				return object.Unit, ArithmeticError(pos, "Negation overflow: -%d", x)
			}
			return object.Int(-x), nil
		}
	case op == "-" && t == object.FLOAT:
		return func(args []object.Dynamic, _ token.Position) (object.Dynamic, *EvalError) {
			x, _ := args[0].AsFloat()
			return object.Float(-x), nil
		}
	case op == "+" && (t == object.INT || t == object.FLOAT):
		return func(args []object.Dynamic, _ token.Position) (object.Dynamic, *EvalError) {
			return args[0].Flatten(), nil
		}
	case op == "!" && t == object.BOOL:
		return func(args []object.Dynamic, _ token.Position) (object.Dynamic, *EvalError) {
			b, _ := args[0].AsBool()
			return object.Bool(!b), nil
		}
	}
	return nil
}

func isNumber(t object.Type) bool {
	return t == object.INT || t == object.FLOAT
}

func binaryOp(op string, t1, t2 object.Type) builtinFn {
	switch {
	case t1 == object.INT && t2 == object.INT:
		return intOp(op)
	case isNumber(t1) && isNumber(t2):
		return floatOp(op)
	case t1 == object.BOOL && t2 == object.BOOL:
		return boolOp(op)
	case t1 == object.STRING && t2 == object.STRING:
		return stringOp(op)
	case t1 == object.CHAR && t2 == object.CHAR:
		return charOp(op)
	case t1 == object.STRING && t2 == object.CHAR, t1 == object.CHAR && t2 == object.STRING:
		return stringCharOp(op, t1 == object.STRING)
	case t1 == object.ARRAY:
		return arrayOp(op, t2)
	case t1 == object.MAP && t2 == object.STRING && op == "contains":
		return func(args []object.Dynamic, _ token.Position) (object.Dynamic, *EvalError) {
			m, _ := args[0].AsMap()
			k, _ := args[1].AsString()
			return object.Bool(m.Has(k)), nil
		}
	case t1 == object.UNIT && t2 == object.UNIT:
		switch op {
		case "==":
			return constOp(true)
		case "!=":
			return constOp(false)
		}
	case t1 != t2:
		switch op {
		case "!=":
			return constOp(true)
		case "==", "<", "<=", ">", ">=":
			return constOp(false)
		}
	}
	return nil
}

func constOp(b bool) builtinFn {
	return func([]object.Dynamic, token.Position) (object.Dynamic, *EvalError) {
		return object.Bool(b), nil
	}
}

func ints(args []object.Dynamic) (int64, int64) {
	x, _ := args[0].AsInt()
	y, _ := args[1].AsInt()
	return x, y
}

func compare[T int64 | float64 | string | rune](op string, x, y T) (bool, bool) {
	switch op {
	case "==":
		return x == y, true
	case "!=":
		return x != y, true
	case "<":
		return x < y, true
	case "<=":
		return x <= y, true
	case ">":
		return x > y, true
	case ">=":
		return x >= y, true
	}
	return false, false
}

func isComparison(op string) bool {
	_, ok := compare(op, int64(0), int64(0))
	return ok
}

// checkedPow is integer exponentiation with overflow detection.
func checkedPow(x, y int64) (int64, bool) {
	res := int64(1)
	for y > 0 {
		if y&1 == 1 {
			r := res * x
			if x != 0 && (r/x != res || (x == -1 && res == math.MinInt64)) {
				return 0, false
			}
			res = r
		}
		y >>= 1
		if y > 0 {
			sq := x * x
			if x != 0 && sq/x != x {
				return 0, false
			}
			x = sq
		}
	}
	return res, true
}

func intArith(op string, x, y int64, pos token.Position) (object.Dynamic, *EvalError) {
	switch op {
	case "+":
		if (y > 0 && x > math.MaxInt64-y) || (y < 0 && x < math.MinInt64-y) {
			return object.Unit, ArithmeticError(pos, "Addition overflow: %d + %d", x, y)
		}
		return object.Int(x + y), nil
	case "-":
		if (y < 0 && x > math.MaxInt64+y) || (y > 0 && x < math.MinInt64+y) {
			return object.Unit, ArithmeticError(pos, "Subtraction overflow: %d - %d", x, y)
		}
		return object.Int(x - y), nil
	case "*":
		r := x * y
		if x != 0 && (r/x != y || (x == -1 && y == math.MinInt64) || (y == -1 && x == math.MinInt64)) {
			return object.Unit, ArithmeticError(pos, "Multiplication overflow: %d * %d", x, y)
		}
		return object.Int(r), nil
	case "/":
		if y == 0 {
			return object.Unit, ArithmeticError(pos, "Division by zero: %d / %d", x, y)
		}
		if x == math.MinInt64 && y == -1 {
			return object.Unit, ArithmeticError(pos, "Division overflow: %d / %d", x, y)
		}
		return object.Int(x / y), nil
	case "%":
		if y == 0 || (x == math.MinInt64 && y == -1) {
			return object.Unit, ArithmeticError(pos, "Modulo division by zero or overflow: %d %% %d", x, y)
		}
		return object.Int(x % y), nil
	case "**":
		if y > math.MaxUint32 {
			return object.Unit, ArithmeticError(pos, "Integer raised to too large an index: %d ~ %d", x, y)
		}
		if y < 0 {
			return object.Unit, ArithmeticError(pos, "Integer raised to a negative index: %d ~ %d", x, y)
		}
		r, ok := checkedPow(x, y)
		if !ok {
			return object.Unit, ArithmeticError(pos, "Exponential overflow: %d ~ %d", x, y)
		}
		return object.Int(r), nil
	case "<<":
		if y < 0 {
			return object.Unit, ArithmeticError(pos, "Left-shift by a negative number: %d << %d", x, y)
		}
		if y >= bitFieldWidth {
			return object.Unit, ArithmeticError(pos, "Left-shift by too many bits: %d << %d", x, y)
		}
		return object.Int(x << y), nil
	case ">>":
		if y < 0 {
			return object.Unit, ArithmeticError(pos, "Right-shift by a negative number: %d >> %d", x, y)
		}
		if y >= bitFieldWidth {
			return object.Unit, ArithmeticError(pos, "Right-shift by too many bits: %d >> %d", x, y)
		}
		return object.Int(x >> y), nil
	case "&":
		return object.Int(x & y), nil
	case "|":
		return object.Int(x | y), nil
	case "^":
		return object.Int(x ^ y), nil
	}
	b, _ := compare(op, x, y)
	return object.Bool(b), nil
}

var intOps = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true, "**": true, "<<": true, ">>": true,
	"&": true, "|": true, "^": true,
}

func intOp(op string) builtinFn {
	if !intOps[op] && !isComparison(op) {
		return nil
	}
	return func(args []object.Dynamic, pos token.Position) (object.Dynamic, *EvalError) {
		x, y := ints(args)
		return intArith(op, x, y, pos)
	}
}

func asFloat(v object.Dynamic) float64 {
	if f, ok := v.AsFloat(); ok {
		return f
	}
	i, _ := v.AsInt()
	return float64(i)
}

func floatOp(op string) builtinFn {
	var f func(x, y float64) float64
	switch op {
	case "+":
		f = func(x, y float64) float64 { return x + y }
	case "-":
		f = func(x, y float64) float64 { return x - y }
	case "*":
		f = func(x, y float64) float64 { return x * y }
	case "/":
		f = func(x, y float64) float64 { return x / y }
	case "%":
		f = math.Mod
	case "**":
		f = math.Pow
	default:
		if !isComparison(op) {
			return nil
		}
		return func(args []object.Dynamic, _ token.Position) (object.Dynamic, *EvalError) {
			b, _ := compare(op, asFloat(args[0]), asFloat(args[1]))
			return object.Bool(b), nil
		}
	}
	return func(args []object.Dynamic, _ token.Position) (object.Dynamic, *EvalError) {
		return object.Float(f(asFloat(args[0]), asFloat(args[1]))), nil
	}
}

func boolOp(op string) builtinFn {
	if op != "&" && op != "|" && op != "^" && !isComparison(op) {
		return nil
	}
	return func(args []object.Dynamic, _ token.Position) (object.Dynamic, *EvalError) {
		x, _ := args[0].AsBool()
		y, _ := args[1].AsBool()
		switch op {
		case "&":
			return object.Bool(x && y), nil
		case "|":
			return object.Bool(x || y), nil
		case "^":
			return object.Bool(x != y), nil
		}
		xi, yi := int64(0), int64(0)
		if x {
			xi = 1
		}
		if y {
			yi = 1
		}
		b, _ := compare(op, xi, yi)
		return object.Bool(b), nil
	}
}

func stringOp(op string) builtinFn {
	switch op {
	case "+", "-", "contains":
	default:
		if !isComparison(op) {
			return nil
		}
	}
	return func(args []object.Dynamic, _ token.Position) (object.Dynamic, *EvalError) {
		x, _ := args[0].AsString()
		y, _ := args[1].AsString()
		switch op {
		case "+":
			return object.String(x + y), nil
		case "-":
			return object.String(strings.ReplaceAll(x, y, "")), nil
		case "contains":
			return object.Bool(strings.Contains(x, y)), nil
		}
		b, _ := compare(op, x, y)
		return object.Bool(b), nil
	}
}

func charOp(op string) builtinFn {
	if op == "+" {
		return func(args []object.Dynamic, _ token.Position) (object.Dynamic, *EvalError) {
			x, _ := args[0].AsChar()
			y, _ := args[1].AsChar()
			return object.String(string([]rune{x, y})), nil
		}
	}
	if !isComparison(op) {
		return nil
	}
	return func(args []object.Dynamic, _ token.Position) (object.Dynamic, *EvalError) {
		x, _ := args[0].AsChar()
		y, _ := args[1].AsChar()
		b, _ := compare(op, x, y)
		return object.Bool(b), nil
	}
}

// stringCharOp mixes a string and a character, in either order.
func stringCharOp(op string, stringFirst bool) builtinFn {
	text := func(v object.Dynamic) string {
		if c, ok := v.AsChar(); ok {
			return string(c)
		}
		s, _ := v.AsString()
		return s
	}
	switch {
	case op == "+":
		return func(args []object.Dynamic, _ token.Position) (object.Dynamic, *EvalError) {
			return object.String(text(args[0]) + text(args[1])), nil
		}
	case op == "-" && stringFirst:
		return func(args []object.Dynamic, _ token.Position) (object.Dynamic, *EvalError) {
			return object.String(strings.ReplaceAll(text(args[0]), text(args[1]), "")), nil
		}
	case op == "contains" && stringFirst:
		return func(args []object.Dynamic, _ token.Position) (object.Dynamic, *EvalError) {
			return object.Bool(strings.Contains(text(args[0]), text(args[1]))), nil
		}
	case isComparison(op):
		return func(args []object.Dynamic, _ token.Position) (object.Dynamic, *EvalError) {
			b, _ := compare(op, text(args[0]), text(args[1]))
			return object.Bool(b), nil
		}
	}
	return nil
}

func arrayOp(op string, t2 object.Type) builtinFn {
	switch {
	case op == "contains":
		return func(args []object.Dynamic, _ token.Position) (object.Dynamic, *EvalError) {
			arr, _ := args[0].AsArray()
			for _, el := range *arr {
				if object.Equal(el, args[1]) {
					return object.True, nil
				}
			}
			return object.False, nil
		}
	case t2 != object.ARRAY:
		switch op {
		case "!=":
			return constOp(true)
		case "==":
			return constOp(false)
		}
	case op == "+":
		return func(args []object.Dynamic, _ token.Position) (object.Dynamic, *EvalError) {
			x, _ := args[0].AsArray()
			y, _ := args[1].AsArray()
			res := object.MakeArray(len(*x) + len(*y))
			for _, el := range *x {
				res = append(res, el.Clone())
			}
			for _, el := range *y {
				res = append(res, el.Clone())
			}
			return object.NewArray(res), nil
		}
	case op == "==":
		return func(args []object.Dynamic, _ token.Position) (object.Dynamic, *EvalError) {
			return object.Bool(object.Equal(args[0], args[1])), nil
		}
	case op == "!=":
		return func(args []object.Dynamic, _ token.Position) (object.Dynamic, *EvalError) {
			return object.Bool(!object.Equal(args[0], args[1])), nil
		}
	}
	return nil
}
