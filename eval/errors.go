package eval

import (
	"errors"
	"fmt"
	"strings"

	"grol.io/rhai/ast"
	"grol.io/rhai/object"
	"grol.io/rhai/parser"
	"grol.io/rhai/token"
)

//go:generate stringer -type=ErrorKind
type ErrorKind uint8

const (
	ErrSystem ErrorKind = iota
	ErrParsing
	ErrVariableNotFound
	ErrFunctionNotFound
	ErrModuleNotFound
	ErrInFunctionCall
	ErrInModule
	ErrUnboundThis
	ErrMismatchDataType
	ErrMismatchOutputType
	ErrIndexingType
	ErrArrayBounds
	ErrStringBounds
	ErrBitFieldBounds
	ErrFor
	ErrDataRace
	ErrAssignmentToConstant
	ErrPropertyNotFound
	ErrArithmetic
	ErrRuntime
	ErrCustomSyntax
	ErrTooManyOperations
	ErrTooManyModules
	ErrStackOverflow
	ErrDataTooLarge
	ErrTerminated
	ErrLoopBreak // break or continue escaping its loop.
)

// EvalError is the error type of evaluations. Which fields are set depends
// on the Kind: Name is the variable, function, module or type involved,
// Other the secondary text (source of a function, actual type...), Value
// the thrown value or termination token, Index/Max the failed bounds check
// and Inner the error wrapped by ErrInFunctionCall and ErrInModule.
type EvalError struct {
	Kind  ErrorKind
	Name  string
	Other string
	Value object.Dynamic
	Index int64
	Max   int64
	Inner *EvalError
	Pos   token.Position
	Err   error // host error, for ErrSystem and errors.Is/As.
}

func newError(kind ErrorKind, name string, pos token.Position) *EvalError {
	return &EvalError{Kind: kind, Name: name, Pos: pos}
}

// TypeMismatch is the "data type is incorrect" error.
func TypeMismatch(expected, actual string, pos token.Position) *EvalError {
	return &EvalError{Kind: ErrMismatchDataType, Name: expected, Other: actual, Pos: pos}
}

// RuntimeError is what `throw` and failing host functions produce.
func RuntimeError(value object.Dynamic, pos token.Position) *EvalError {
	return &EvalError{Kind: ErrRuntime, Value: value, Pos: pos}
}

// ArithmeticError is the error of overflowing or invalid operations.
func ArithmeticError(pos token.Position, format string, args ...any) *EvalError {
	return &EvalError{Kind: ErrArithmetic, Name: fmt.Sprintf(format, args...), Pos: pos}
}

func bounds(kind ErrorKind, length int, index int64, pos token.Position) *EvalError {
	return &EvalError{Kind: kind, Max: int64(length), Index: index, Pos: pos}
}

// AsEvalError converts any error a host function returned. Plain errors
// become runtime errors with the message as value.
func AsEvalError(err error) *EvalError {
	if err == nil {
		return nil
	}
	var ee *EvalError
	if errors.As(err, &ee) {
		return ee
	}
	var pe *parser.Error
	if errors.As(err, &pe) {
		return &EvalError{Kind: ErrParsing, Name: pe.Msg, Pos: pe.Pos, Err: err}
	}
	var ce *object.CastError
	if errors.As(err, &ce) {
		return &EvalError{Kind: ErrMismatchDataType, Name: ce.To, Other: ce.From, Err: err}
	}
	return &EvalError{Kind: ErrRuntime, Value: object.String(err.Error()), Err: err}
}

func (e *EvalError) Unwrap() []error {
	var res []error
	if e.Inner != nil {
		res = append(res, e.Inner)
	}
	if e.Err != nil {
		res = append(res, e.Err)
	}
	return res
}

// Is matches on the kind: errors.Is(err, &EvalError{Kind: ErrStackOverflow}).
func (e *EvalError) Is(target error) bool {
	t, ok := target.(*EvalError)
	return ok && t.Kind == e.Kind && (t.Name == "" || t.Name == e.Name)
}

// IsPseudo is true for loop control escaping its loop; they are never caught.
func (e *EvalError) IsPseudo() bool {
	return e.Kind == ErrLoopBreak
}

// IsSystem is true for errors passed as is through function calls.
func (e *EvalError) IsSystem() bool {
	switch e.Kind { //nolint:exhaustive // the rest are not.
	case ErrSystem, ErrParsing, ErrTooManyOperations, ErrTooManyModules, ErrStackOverflow,
		ErrDataTooLarge, ErrTerminated:
		return true
	}
	return false
}

// Catchable reports whether try/catch can intercept the error. Resource
// limits and termination are not.
func (e *EvalError) Catchable() bool {
	return !e.IsSystem() && !e.IsPseudo()
}

// FillPosition sets the position only when none is known yet.
func (e *EvalError) FillPosition(pos token.Position) *EvalError {
	if e.Pos.IsNone() {
		e.Pos = pos
	}
	return e
}

func (e *EvalError) SetPosition(pos token.Position) *EvalError {
	e.Pos = pos
	return e
}

// Innermost unwraps the function call and module layers.
func (e *EvalError) Innermost() *EvalError {
	for e.Inner != nil && (e.Kind == ErrInFunctionCall || e.Kind == ErrInModule) {
		e = e.Inner
	}
	return e
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}

func mismatch(what, expected, actual string) string {
	switch {
	case actual == "":
		return what + " type is incorrect, expecting " + expected
	case expected == "":
		return what + " type is incorrect: " + actual
	default:
		return what + " type is incorrect: " + actual + " (expecting " + expected + ")"
	}
}

// Message is the error text without the position.
func (e *EvalError) Message() string {
	switch e.Kind {
	case ErrSystem:
		if e.Name == "" {
			return fmt.Sprint(e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Name, e.Err)
	case ErrParsing:
		return "Syntax error: " + e.Name
	case ErrInFunctionCall:
		var msg string
		if strings.HasPrefix(e.Name, ast.AnonFnPrefix) {
			msg = e.Inner.Error() + " in call to closure"
		} else {
			msg = e.Inner.Error() + " in call to function " + e.Name
		}
		if e.Other != "" {
			msg += " @ '" + e.Other + "'"
		}
		return msg
	case ErrInModule:
		if e.Name == "" {
			return "Error in module: " + e.Inner.Error()
		}
		return "Error in module '" + e.Name + "': " + e.Inner.Error()
	case ErrFunctionNotFound:
		return "Function not found: " + e.Name
	case ErrVariableNotFound:
		return "Variable not found: " + e.Name
	case ErrModuleNotFound:
		return "Module not found: '" + e.Name + "'"
	case ErrDataRace:
		return "Data race detected when accessing variable: " + e.Name
	case ErrPropertyNotFound:
		if e.Other != "" {
			return "Unknown property '" + e.Name + "' - " + e.Other
		}
		return "Unknown property '" + e.Name + "'"
	case ErrIndexingType:
		return "Indexer not registered for '" + e.Name + "'"
	case ErrUnboundThis:
		return "'this' is not bound"
	case ErrFor:
		return "For loop expects a type with an iterator defined"
	case ErrTooManyOperations:
		return "Too many operations"
	case ErrTooManyModules:
		return "Too many modules imported"
	case ErrStackOverflow:
		return "Stack overflow"
	case ErrTerminated:
		return "Script terminated"
	case ErrRuntime:
		if s, ok := e.Value.AsString(); (ok && s == "") || e.Value.IsUnit() {
			return "Runtime error"
		}
		return "Runtime error: " + e.Value.Inspect()
	case ErrAssignmentToConstant:
		return "Cannot modify constant " + e.Name
	case ErrMismatchOutputType:
		return mismatch("Output", e.Name, e.Other)
	case ErrMismatchDataType:
		return mismatch("Data", e.Name, e.Other)
	case ErrArithmetic:
		if e.Name == "" {
			return "Arithmetic error"
		}
		return e.Name
	case ErrCustomSyntax:
		return e.Name
	case ErrLoopBreak:
		if e.Name == "continue" {
			return "'continue' not inside a loop"
		}
		return "'break' not inside a loop"
	case ErrArrayBounds:
		if e.Max == 0 {
			return fmt.Sprintf("Array index %d out of bounds: array is empty", e.Index)
		}
		return fmt.Sprintf("Array index %d out of bounds: only %s in the array", e.Index, plural(e.Max, "element", "elements"))
	case ErrStringBounds:
		if e.Max == 0 {
			return fmt.Sprintf("String index %d out of bounds: string is empty", e.Index)
		}
		return fmt.Sprintf("String index %d out of bounds: only %s in the string", e.Index, plural(e.Max, "character", "characters"))
	case ErrBitFieldBounds:
		return fmt.Sprintf("Bit-field index %d out of bounds: only %d bits in the bit-field", e.Index, e.Max)
	case ErrDataTooLarge:
		return e.Name + " exceeds maximum limit"
	}
	return e.Kind.String()
}

func (e *EvalError) Error() string {
	if e.Pos.IsNone() {
		return e.Message()
	}
	return e.Message() + " (" + e.Pos.String() + ")"
}

// ToMap is the value a catch block sees for errors that aren't thrown
// values: message, position and the kind specific fields.
func (e *EvalError) ToMap(source string) object.Dynamic {
	m := object.NewMap()
	m.Set("message", object.String(e.Message()))
	if source != "" {
		m.Set("source", object.String(source))
	}
	if !e.Pos.IsNone() {
		m.Set("line", object.Int(int64(e.Pos.Line)))
		m.Set("position", object.Int(int64(e.Pos.Col)))
	}
	m.Set("error", object.String(e.Kind.String()))
	str := func(k, v string) { m.Set(k, object.String(v)) }
	switch e.Kind { //nolint:exhaustive // no extra fields for the others.
	case ErrFunctionNotFound:
		str("function", e.Name)
	case ErrInFunctionCall:
		str("function", e.Name)
		str("source", e.Other)
	case ErrInModule, ErrModuleNotFound:
		str("module", e.Name)
	case ErrMismatchDataType, ErrMismatchOutputType:
		str("requested", e.Name)
		str("actual", e.Other)
	case ErrArrayBounds, ErrStringBounds, ErrBitFieldBounds:
		m.Set("length", object.Int(e.Max))
		m.Set("index", object.Int(e.Index))
	case ErrIndexingType, ErrDataTooLarge:
		str("type", e.Name)
	case ErrVariableNotFound, ErrDataRace, ErrAssignmentToConstant:
		str("variable", e.Name)
	case ErrPropertyNotFound:
		str("property", e.Name)
	case ErrTerminated:
		m.Set("token", e.Value)
	}
	return object.NewMapValue(m)
}
