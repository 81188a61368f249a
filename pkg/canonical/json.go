package canonical

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// JSON serialises a slice of items into a deterministic byte form: object
// keys sorted, nulls literal, numbers in Go's shortest round-trip form, and
// the items themselves sorted by their encoded text so that permutations of
// the input hash identically.
func JSON(items any) ([]byte, error) {
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal items: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var parsed any
	if err := dec.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("reparse items: %w", err)
	}

	list, ok := parsed.([]any)
	if !ok {
		return nil, fmt.Errorf("canonical JSON requires a slice, got %T", parsed)
	}

	encoded := make([]string, 0, len(list))
	for _, item := range list {
		var b strings.Builder
		if err := encodeCanonical(&b, item); err != nil {
			return nil, err
		}
		encoded = append(encoded, b.String())
	}
	sort.Strings(encoded)

	var out bytes.Buffer
	out.WriteByte('[')
	for i, e := range encoded {
		if i > 0 {
			out.WriteByte(',')
		}
		out.WriteString(e)
	}
	out.WriteByte(']')
	return out.Bytes(), nil
}

func encodeCanonical(b *strings.Builder, v any) error {
	switch t := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		if t {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case json.Number:
		// encoding/json already emitted the shortest round-trip literal.
		b.WriteString(t.String())
	case string:
		enc, err := json.Marshal(t)
		if err != nil {
			return err
		}
		b.Write(enc)
	case []any:
		b.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := encodeCanonical(b, e); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			enc, err := json.Marshal(k)
			if err != nil {
				return err
			}
			b.Write(enc)
			b.WriteByte(':')
			if err := encodeCanonical(b, t[k]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	default:
		return fmt.Errorf("unsupported canonical JSON value %T", v)
	}
	return nil
}

// Hash returns the first 16 hex characters of the SHA-256 of the canonical
// JSON form of items. This is the data_hash stored on the latest-batch
// pointers.
func Hash(items any) (string, error) {
	data, err := JSON(items)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16], nil
}
