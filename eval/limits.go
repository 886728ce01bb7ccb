package eval

import (
	"fortio.org/log"
	"grol.io/rhai/object"
	"grol.io/rhai/token"
)

// Limits bound the resources a script can use. Zero means unlimited.
type Limits struct {
	MaxOperations        uint64 `yaml:"max_operations"`
	MaxCallLevels        int    `yaml:"max_call_levels"`
	MaxExprDepth         int    `yaml:"max_expr_depth"`
	MaxFunctionExprDepth int    `yaml:"max_function_expr_depth"`
	MaxModules           int    `yaml:"max_modules"`
	MaxStringSize        int    `yaml:"max_string_size"`
	MaxArraySize         int    `yaml:"max_array_size"`
	MaxMapSize           int    `yaml:"max_map_size"`
}

const (
	DefaultMaxCallLevels        = 64
	DefaultMaxExprDepth         = 64
	DefaultMaxFunctionExprDepth = 32
)

func DefaultLimits() Limits {
	return Limits{
		MaxCallLevels:        DefaultMaxCallLevels,
		MaxExprDepth:         DefaultMaxExprDepth,
		MaxFunctionExprDepth: DefaultMaxFunctionExprDepth,
	}
}

func (l *Limits) checksSize() bool {
	return l.MaxStringSize > 0 || l.MaxArraySize > 0 || l.MaxMapSize > 0
}

// incOperations counts one more operation and polls the progress callback
// and the engine's context for termination.
func (w *walker) incOperations(pos token.Position) *EvalError {
	st := w.state
	st.Operations++
	e := w.e
	if e.Limits.MaxOperations > 0 && st.Operations > e.Limits.MaxOperations {
		log.LogVf("Too many operations: %d > %d", st.Operations, e.Limits.MaxOperations)
		return newError(ErrTooManyOperations, "", pos)
	}
	if e.OnProgress != nil {
		if tok, stop := e.OnProgress(st.Operations); stop {
			return &EvalError{Kind: ErrTerminated, Value: tok, Pos: pos}
		}
	}
	if e.Context != nil {
		if err := e.Context.Err(); err != nil {
			return &EvalError{Kind: ErrTerminated, Value: object.String(err.Error()), Pos: pos, Err: err}
		}
	}
	return nil
}

// dataSize returns the total number of array elements, map entries and
// string bytes in v, containers counted recursively.
func dataSize(v object.Dynamic) (arrays, maps, strs int) {
	if s, ok := v.AsString(); ok {
		return 0, 0, len(s)
	}
	if arr, ok := v.AsArray(); ok {
		arrays = len(*arr)
		for _, el := range *arr {
			a, m, s := dataSize(el)
			arrays, maps, strs = arrays+a, maps+m, strs+s
		}
		return arrays, maps, strs
	}
	if mp, ok := v.AsMap(); ok {
		maps = mp.Len()
		mp.Range(func(_ string, el *object.Dynamic) bool {
			a, m, s := dataSize(*el)
			arrays, maps, strs = arrays+a, maps+m, strs+s
			return true
		})
	}
	return arrays, maps, strs
}

// checkDataSize enforces the string, array and map size limits on v.
func (w *walker) checkDataSize(v object.Dynamic, pos token.Position) *EvalError {
	l := &w.e.Limits
	if !l.checksSize() {
		return nil
	}
	switch v.Type() { //nolint:exhaustive // only containers and strings have a size.
	case object.STRING, object.ARRAY, object.MAP:
	default:
		return nil
	}
	arrays, maps, strs := dataSize(v)
	switch {
	case l.MaxStringSize > 0 && strs > l.MaxStringSize:
		return newError(ErrDataTooLarge, "Length of string", pos)
	case l.MaxArraySize > 0 && arrays > l.MaxArraySize:
		return newError(ErrDataTooLarge, "Size of array", pos)
	case l.MaxMapSize > 0 && maps > l.MaxMapSize:
		return newError(ErrDataTooLarge, "Size of object map", pos)
	}
	return nil
}
