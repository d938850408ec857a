package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/datagen/internal/ir"
)

// marshalData converts a row to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON so stored rows hash and diff stably.
func marshalData(bag ir.DataBag) (string, error) {
	data, err := ir.MarshalCanonical(bag)
	if err != nil {
		return "", fmt.Errorf("marshal data: %w", err)
	}
	return string(data), nil
}

// unmarshalData parses canonical JSON TEXT back into a row.
// Numbers are read as json.Number and parsed as exact decimals, so values
// beyond float64 precision survive the round trip. Datetimes come back as
// their DateTimeLayout strings.
func unmarshalData(data string) (ir.DataBag, error) {
	if data == "" || data == "{}" {
		return ir.DataBag{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return ir.DataBag{}, fmt.Errorf("unmarshal data: %w", err)
	}

	values := make(map[ir.Field]ir.IRValue, len(obj))
	for name, raw := range obj {
		v, err := toIRValue(raw)
		if err != nil {
			return ir.DataBag{}, fmt.Errorf("unmarshal data: field %q: %w", name, err)
		}
		values[ir.NewField(name)] = v
	}
	return ir.NewDataBag(values), nil
}

func toIRValue(raw any) (ir.IRValue, error) {
	switch v := raw.(type) {
	case nil:
		return ir.IRNull{}, nil
	case string:
		return ir.NewIRString(v), nil
	case json.Number:
		return ir.ParseIRNumber(v.String())
	default:
		return nil, fmt.Errorf("unsupported JSON value %T", raw)
	}
}
