package object

// Unwrap converts to plain Go values: nil, bool, int64, float64, string,
// []any, map[string]any (key order is lost), and the payload of variants.
// Shared values are seen through, characters become strings and function
// pointers their name.
func (d Dynamic) Unwrap() any {
	f := d.flat()
	switch f.kind {
	case UNIT:
		return nil
	case BOOL:
		return f.i != 0
	case INT:
		return f.i
	case FLOAT:
		return f.f
	case STRING:
		return f.p.(string)
	case CHAR:
		return string(rune(f.i))
	case ARRAY:
		return UnwrapArray(*f.p.(*[]Dynamic))
	case MAP:
		m := f.p.(*Map)
		res := make(map[string]any, m.Len())
		m.Range(func(k string, v *Dynamic) bool {
			res[k] = v.Unwrap()
			return true
		})
		return res
	case FNPTR:
		return f.p.(*FnPtr).Name
	case TIMESTAMP:
		return f.p
	case VARIANT:
		return f.p.(variant).value()
	case SHARED, ANY, LAST:
	}
	return nil
}

func UnwrapArray(arr []Dynamic) []any {
	res := make([]any, len(arr))
	for i, o := range arr {
		res[i] = o.Unwrap()
	}
	return res
}
