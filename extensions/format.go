package extensions

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
	"grol.io/rhai/eval"
	"grol.io/rhai/object"
)

// FormatModule converts values from and to json and yaml. Maps keep their
// key order both ways.
func FormatModule() *eval.Module {
	m := eval.NewModule()
	m.ID = "format"
	pure(m, "to_json", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		v, err := toGo(*args[0])
		if err != nil {
			return object.Unit, err
		}
		b, err := json.Marshal(v)
		if err != nil {
			return object.Unit, err
		}
		return object.String(string(b)), nil
	}, object.IDAny)
	pure(m, "parse_json", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		return ParseJSON(strArg(args, 0))
	}, object.IDString)
	pure(m, "to_yaml", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		n, err := toYAML(*args[0])
		if err != nil {
			return object.Unit, err
		}
		b, err := yaml.Marshal(n)
		if err != nil {
			return object.Unit, err
		}
		return object.String(string(b)), nil
	}, object.IDAny)
	pure(m, "parse_yaml", func(_ *eval.NativeCallContext, args []*object.Dynamic) (object.Dynamic, error) {
		var n yaml.Node
		if err := yaml.Unmarshal([]byte(strArg(args, 0)), &n); err != nil {
			return object.Unit, err
		}
		return fromYAML(&n)
	}, object.IDString)
	return m
}

// toGo converts to what encoding/json knows how to write, maps as ordered
// maps.
func toGo(d object.Dynamic) (any, error) {
	d = d.Flatten()
	switch d.Type() { //nolint:exhaustive // the rest can't be serialized.
	case object.UNIT:
		return nil, nil
	case object.BOOL:
		b, _ := d.AsBool()
		return b, nil
	case object.INT:
		i, _ := d.AsInt()
		return i, nil
	case object.FLOAT:
		f, _ := d.AsFloat()
		return f, nil
	case object.STRING, object.CHAR:
		return d.Inspect(), nil
	case object.TIMESTAMP:
		t, _ := d.AsTimestamp()
		return t, nil
	case object.ARRAY:
		arr, _ := d.AsArray()
		res := make([]any, 0, len(*arr))
		for _, el := range *arr {
			v, err := toGo(el)
			if err != nil {
				return nil, err
			}
			res = append(res, v)
		}
		return res, nil
	case object.MAP:
		m, _ := d.AsMap()
		res := orderedmap.New[string, any]()
		var err error
		m.Range(func(k string, v *object.Dynamic) bool {
			var gv any
			gv, err = toGo(*v)
			res.Set(k, gv)
			return err == nil
		})
		return res, err
	}
	return nil, fmt.Errorf("cannot serialize a value of type %s", d.TypeName())
}

// ParseJSON converts a json document, numbers without a fraction or
// exponent become integers.
func ParseJSON(s string) (object.Dynamic, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	v, err := fromJSON(dec)
	if err != nil {
		return object.Unit, err
	}
	if _, err = dec.Token(); !errors.Is(err, io.EOF) {
		return object.Unit, errors.New("unexpected data after the json value")
	}
	return v, nil
}

func fromJSON(dec *json.Decoder) (object.Dynamic, error) {
	tok, err := dec.Token()
	if err != nil {
		return object.Unit, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '[':
			arr := object.MakeArray(0)
			for dec.More() {
				v, err := fromJSON(dec)
				if err != nil {
					return object.Unit, err
				}
				arr = append(arr, v)
			}
			_, err = dec.Token()
			return object.NewArray(arr), err
		case '{':
			m := object.NewMap()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return object.Unit, err
				}
				key, _ := kt.(string)
				v, err := fromJSON(dec)
				if err != nil {
					return object.Unit, err
				}
				m.Set(key, v)
			}
			_, err = dec.Token()
			return object.NewMapValue(m), err
		}
		return object.Unit, fmt.Errorf("unexpected %v", t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return object.Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return object.Unit, err
		}
		return object.Float(f), nil
	case string:
		return object.String(t), nil
	case bool:
		return object.Bool(t), nil
	}
	return object.Unit, nil
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func toYAML(d object.Dynamic) (*yaml.Node, error) {
	d = d.Flatten()
	switch d.Type() { //nolint:exhaustive // the rest can't be serialized.
	case object.UNIT:
		return scalar("!!null", "null"), nil
	case object.BOOL:
		b, _ := d.AsBool()
		return scalar("!!bool", strconv.FormatBool(b)), nil
	case object.INT:
		i, _ := d.AsInt()
		return scalar("!!int", strconv.FormatInt(i, 10)), nil
	case object.FLOAT:
		f, _ := d.AsFloat()
		return scalar("!!float", object.FormatFloat(f)), nil
	case object.STRING, object.CHAR:
		return scalar("!!str", d.Inspect()), nil
	case object.TIMESTAMP:
		t, _ := d.AsTimestamp()
		return scalar("!!timestamp", t.Format(time.RFC3339Nano)), nil
	case object.ARRAY:
		arr, _ := d.AsArray()
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, el := range *arr {
			c, err := toYAML(el)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, c)
		}
		return n, nil
	case object.MAP:
		m, _ := d.AsMap()
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		var err error
		m.Range(func(k string, v *object.Dynamic) bool {
			var c *yaml.Node
			c, err = toYAML(*v)
			if err != nil {
				return false
			}
			n.Content = append(n.Content, scalar("!!str", k), c)
			return true
		})
		return n, err
	}
	return nil, fmt.Errorf("cannot serialize a value of type %s", d.TypeName())
}

func fromYAML(n *yaml.Node) (object.Dynamic, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return object.Unit, nil
		}
		return fromYAML(n.Content[0])
	case yaml.AliasNode:
		return fromYAML(n.Alias)
	case yaml.SequenceNode:
		arr := object.MakeArray(len(n.Content))
		for _, c := range n.Content {
			v, err := fromYAML(c)
			if err != nil {
				return object.Unit, err
			}
			arr = append(arr, v)
		}
		return object.NewArray(arr), nil
	case yaml.MappingNode:
		m := object.NewMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := fromYAML(n.Content[i+1])
			if err != nil {
				return object.Unit, err
			}
			m.Set(n.Content[i].Value, v)
		}
		return object.NewMapValue(m), nil
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			return object.Unit, nil
		case "!!bool":
			var b bool
			err := n.Decode(&b)
			return object.Bool(b), err
		case "!!int":
			var i int64
			err := n.Decode(&i)
			return object.Int(i), err
		case "!!float":
			var f float64
			err := n.Decode(&f)
			return object.Float(f), err
		case "!!timestamp":
			var t time.Time
			err := n.Decode(&t)
			return object.Timestamp(t), err
		}
		return object.String(n.Value), nil
	}
	return object.Unit, fmt.Errorf("unsupported yaml node kind %v", n.Kind)
}
