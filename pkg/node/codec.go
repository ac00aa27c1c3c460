package node

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Decode a raw payload map (as found in a persisted snapshot)
// into the Data variant for the kind.
//
// If the map contains a 'kind' key, it must match the provided kind.
func Decode(kind Kind, raw map[string]any) (Data, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown node kind %q", kind)
	}
	if k, ok := raw["kind"]; ok {
		if ks, _ := k.(string); Kind(ks) != kind {
			return nil, fmt.Errorf("data kind %v does not match node type %s", k, kind)
		}
	}

	switch kind {
	case ManualTrigger:
		return decodeInto[ManualTriggerData](raw)
	case WebhookTrigger:
		return decodeInto[WebhookTriggerData](raw)
	case HTTPRequest:
		return decodeInto[HTTPRequestData](raw)
	case Email:
		return decodeInto[EmailData](raw)
	case SMS:
		return decodeInto[SMSData](raw)
	case IfElse:
		return decodeInto[IfElseData](raw)
	case Delay:
		return decodeInto[DelayData](raw)
	case Transform:
		return decodeInto[TransformData](raw)
	}
	panic(fmt.Sprintf("node: no payload decoder registered for kind %s", kind))
}

func decodeInto[T Data](raw map[string]any) (Data, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	// 'kind' is carried alongside the payload fields.
	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		if k != "kind" {
			fields[k] = v
		}
	}
	if err := dec.Decode(fields); err != nil {
		return nil, errors.Wrapf(err, "decoding %s data", out.Kind())
	}
	return out, nil
}

// Encode a payload into a raw map, including its 'kind'.
// It is the inverse of Decode. Nested structs and lists are
// converted to plain maps and slices, so the result can be
// serialised to YAML or JSON directly.
func Encode(d Data) (map[string]any, error) {
	v, err := plain(d)
	if err != nil {
		return nil, errors.Wrapf(err, "encoding %s data", d.Kind())
	}
	out, _ := v.(map[string]any)
	if out == nil {
		out = map[string]any{}
	}
	out["kind"] = string(d.Kind())
	return out, nil
}

func plain(v any) (any, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, nil
	}
	switch rv.Kind() {
	case reflect.Struct:
		m := map[string]any{}
		if err := mapstructure.Decode(v, &m); err != nil {
			return nil, err
		}
		for k, child := range m {
			p, err := plain(child)
			if err != nil {
				return nil, err
			}
			m[k] = p
		}
		return m, nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil, nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v, nil
		}
		out := make([]any, rv.Len())
		for i := range out {
			p, err := plain(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = p
		}
		return out, nil
	case reflect.Map:
		if rv.IsNil() {
			return nil, nil
		}
		if rv.Type().Key().Kind() != reflect.String {
			return v, nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			p, err := plain(iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			out[iter.Key().String()] = p
		}
		return out, nil
	case reflect.String:
		// named string types such as condition.Operator
		return rv.String(), nil
	}
	return v, nil
}

// Empty returns the zero payload for a kind.
func Empty(kind Kind) Data {
	d, err := Decode(kind, nil)
	if err != nil {
		panic(err)
	}
	return d
}
