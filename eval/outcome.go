package eval

import (
	"grol.io/rhai/object"
)

//go:generate stringer -type=OutcomeKind
type OutcomeKind uint8

const (
	OutValue OutcomeKind = iota
	OutBreak
	OutContinue
	OutReturn
	OutThrow
	OutError
)

// Outcome is the result of evaluating a statement or an expression: a value
// or one of the signals unwinding the evaluation. Loops own break and
// continue, function calls own return and throw, errors go up to the
// nearest try/catch or to the caller of the engine.
type Outcome struct {
	Kind  OutcomeKind
	Value object.Dynamic
	Err   *EvalError // OutThrow and OutError.
}

func value(v object.Dynamic) Outcome {
	return Outcome{Value: v}
}

var unitOutcome = Outcome{}

func failure(err *EvalError) Outcome {
	return Outcome{Kind: OutError, Err: err}
}

// result is the bridge from the (value, error) helpers.
func result(v object.Dynamic, err *EvalError) Outcome {
	if err != nil {
		return failure(err)
	}
	return value(v)
}

func (o Outcome) IsValue() bool {
	return o.Kind == OutValue
}

// AsError turns signals escaping their owner into errors. Return is not an
// error, the value is returned.
func (o Outcome) AsError() (object.Dynamic, *EvalError) {
	switch o.Kind {
	case OutValue, OutReturn:
		return o.Value, nil
	case OutBreak:
		return object.Unit, &EvalError{Kind: ErrLoopBreak, Name: "break"}
	case OutContinue:
		return object.Unit, &EvalError{Kind: ErrLoopBreak, Name: "continue"}
	default:
		return object.Unit, o.Err
	}
}
