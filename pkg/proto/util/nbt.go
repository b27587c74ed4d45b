package util

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/Tnze/go-mc/nbt"
)

// BinaryTag is an anonymous network NBT tag (type byte followed by the payload).
type BinaryTag = nbt.RawMessage

// ReadBinaryTag reads a network format binary tag (1.20.2+, root tag without a name).
func ReadBinaryTag(rd io.Reader) (BinaryTag, error) {
	dec := nbt.NewDecoder(rd)
	dec.NetworkFormat(true)
	var m nbt.RawMessage
	if _, err := dec.Decode(&m); err != nil {
		return m, fmt.Errorf("error decoding binary tag: %w", err)
	}
	return m, nil
}

// ReadNamedBinaryTag reads a binary tag whose root carries a name (pre 1.20.2).
func ReadNamedBinaryTag(rd io.Reader) (BinaryTag, error) {
	var m nbt.RawMessage
	if _, err := nbt.NewDecoder(rd).Decode(&m); err != nil {
		return m, fmt.Errorf("error decoding named binary tag: %w", err)
	}
	return m, nil
}

// WriteBinaryTag writes tag in network format.
func WriteBinaryTag(wr io.Writer, tag BinaryTag) error {
	if err := WriteByte(wr, tag.Type); err != nil {
		return err
	}
	_, err := wr.Write(tag.Data)
	return err
}

// WriteNamedBinaryTag writes tag with an empty root name.
func WriteNamedBinaryTag(wr io.Writer, tag BinaryTag) error {
	if err := WriteByte(wr, tag.Type); err != nil {
		return err
	}
	if tag.Type != nbt.TagEnd {
		if err := WriteUint16(wr, 0); err != nil {
			return err
		}
	}
	_, err := wr.Write(tag.Data)
	return err
}

// JsonToBinaryTag converts a JSON text component to its binary tag form.
//
// Booleans become bytes, integral numbers become ints and string
// entries of "extra" and "with" become text compounds, since NBT lists
// can only hold one element type.
func JsonToBinaryTag(j json.RawMessage) (BinaryTag, error) {
	var v any
	if err := json.Unmarshal(j, &v); err != nil {
		return BinaryTag{}, fmt.Errorf("error unmarshalling component json: %w", err)
	}
	v = toTagValue(v)
	buf := new(bytes.Buffer)
	if err := nbt.NewEncoder(buf).Encode(v, ""); err != nil {
		return BinaryTag{}, fmt.Errorf("error encoding component binary tag: %w", err)
	}
	// drop the empty root name (2 length bytes) for the network format
	b := buf.Bytes()
	if len(b) < 3 {
		return BinaryTag{}, fmt.Errorf("encoded binary tag too short (%d bytes)", len(b))
	}
	return BinaryTag{Type: b[0], Data: b[3:]}, nil
}

// BinaryTagToJSON converts a binary tag text component back to JSON.
// Type information such as booleans stored as bytes is lost.
func BinaryTagToJSON(tag BinaryTag) (json.RawMessage, error) {
	var v any
	if err := tag.Unmarshal(&v); err != nil {
		return nil, fmt.Errorf("error unmarshalling binary tag: %w", err)
	}
	return json.Marshal(v)
}

func toTagValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			if l, ok := e.([]any); ok && (k == "extra" || k == "with") {
				m[k] = toCompoundList(l)
				continue
			}
			m[k] = toTagValue(e)
		}
		return m
	case []any:
		return toCompoundList(t)
	case bool:
		if t {
			return int8(1)
		}
		return int8(0)
	case float64:
		if t == math.Trunc(t) && t >= math.MinInt32 && t <= math.MaxInt32 {
			return int32(t)
		}
		return t
	default:
		return v
	}
}

func toCompoundList(l []any) []map[string]any {
	list := make([]map[string]any, 0, len(l))
	for _, e := range l {
		switch t := toTagValue(e).(type) {
		case map[string]any:
			list = append(list, t)
		case string:
			list = append(list, map[string]any{"text": t})
		default:
			list = append(list, map[string]any{"text": fmt.Sprint(t)})
		}
	}
	return list
}
