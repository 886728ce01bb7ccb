package extensions

import (
	"context"
	"time"

	"fortio.org/duration"
	"grol.io/rhai/eval"
	"grol.io/rhai/object"
)

func timeArg(args []*object.Dynamic, i int) time.Time {
	t, _ := args[i].AsTimestamp()
	return t
}

// sleep waits for d or until the engine's context is done.
func sleep(ctx *eval.NativeCallContext, d time.Duration) (object.Dynamic, error) {
	if d <= 0 {
		return object.Unit, nil
	}
	c := ctx.Engine().Context
	if c == nil {
		c = context.Background()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return object.Unit, nil
	case <-c.Done():
		return object.Unit, &eval.EvalError{Kind: eval.ErrTerminated, Value: object.String(c.Err().Error()), Err: c.Err()}
	}
}

// TimeModule has timestamps and durations. Durations are float seconds,
// parse_duration and sleep also take strings like "1h30m" or "2d".
func TimeModule() *eval.Module {
	m := eval.NewModule()
	m.ID = "time"
	pure(m, "timestamp", func(_ *eval.NativeCallContext, _ []*object.Dynamic) (object.Dynamic, error) {
		return object.Timestamp(time.Now()), nil
	})
	pure(m, "get$elapsed", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.Float(time.Since(timeArg(args, 0)).Seconds()), nil
	}, object.IDTimestamp)
	pure(m, "elapsed", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.Float(time.Since(timeArg(args, 0)).Seconds()), nil
	}, object.IDTimestamp)
	pure(m, "-", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return object.Float(timeArg(args, 0).Sub(timeArg(args, 1)).Seconds()), nil
	}, object.IDTimestamp, object.IDTimestamp)
	pure(m, "+", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		d := time.Duration(floatArg(args, 1) * float64(time.Second))
		return object.Timestamp(timeArg(args, 0).Add(d)), nil
	}, object.IDTimestamp, object.IDFloat)
	for _, op := range []string{"<", "<=", ">", ">=", "==", "!="} {
		pure(m, op, func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
			c := timeArg(args, 0).Compare(timeArg(args, 1))
			var res bool
			switch op {
			case "<":
				res = c < 0
			case "<=":
				res = c <= 0
			case ">":
				res = c > 0
			case ">=":
				res = c >= 0
			case "==":
				res = c == 0
			case "!=":
				res = c != 0
			}
			return object.Bool(res), nil
		}, object.IDTimestamp, object.IDTimestamp)
	}
	pure(m, "parse_duration", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		d, err := duration.Parse(strArg(args, 0))
		if err != nil {
			return object.Unit, err
		}
		return object.Float(d.Seconds()), nil
	}, object.IDString)
	pure(m, "sleep", func(ctx *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return sleep(ctx, time.Duration(floatArg(args, 0)*float64(time.Second)))
	}, object.IDFloat)
	pure(m, "sleep", func(ctx *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return sleep(ctx, time.Duration(intArg(args, 0))*time.Second)
	}, object.IDInt)
	pure(m, "sleep", func(ctx *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		d, err := duration.Parse(strArg(args, 0))
		if err != nil {
			return object.Unit, err
		}
		return sleep(ctx, d)
	}, object.IDString)
	return m
}
