package planner

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"
)

// Canonical type tags. Each value is prefixed by its tag so that two
// structurally different values (e.g. the string "1" and the number 1)
// never collide in the encoded byte stream.
const (
	tagNil byte = iota
	tagBool
	tagNumber
	tagString
	tagSlice
	tagMap
)

// CanonicalBytes deterministically encodes v for hashing: map keys are
// sorted, numbers use a fixed textual format regardless of their original
// Go type, and every string/container is length-prefixed so that no
// concatenation ambiguity is possible (§4.3 "Determinism",
// "Canonical parameter serialization").
func CanonicalBytes(v any) []byte {
	var buf bytes.Buffer
	encodeValue(&buf, v)
	return buf.Bytes()
}

func encodeValue(buf *bytes.Buffer, v any) {
	switch val := v.(type) {
	case nil:
		buf.WriteByte(tagNil)
	case bool:
		buf.WriteByte(tagBool)
		if val {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case string:
		encodeString(buf, val)
	case []string:
		encodeSlice(buf, len(val), func(i int) any { return val[i] })
	case []any:
		encodeSlice(buf, len(val), func(i int) any { return val[i] })
	case map[string]any:
		encodeMap(buf, val)
	case int:
		encodeNumber(buf, strconv.FormatFloat(float64(val), 'g', -1, 64))
	case int64:
		encodeNumber(buf, strconv.FormatFloat(float64(val), 'g', -1, 64))
	case float64:
		encodeNumber(buf, strconv.FormatFloat(val, 'g', -1, 64))
	case float32:
		encodeNumber(buf, strconv.FormatFloat(float64(val), 'g', -1, 64))
	default:
		// Fall back to a stable textual representation; reached only for
		// types outside the JSON data model this system otherwise sticks to.
		encodeString(buf, fmt.Sprintf("%v", val))
	}
}

func encodeNumber(buf *bytes.Buffer, formatted string) {
	buf.WriteByte(tagNumber)
	writeLengthPrefixed(buf, []byte(formatted))
}

func encodeString(buf *bytes.Buffer, s string) {
	buf.WriteByte(tagString)
	writeLengthPrefixed(buf, []byte(s))
}

func encodeSlice(buf *bytes.Buffer, n int, at func(int) any) {
	buf.WriteByte(tagSlice)
	writeUint32(buf, uint32(n))
	for i := 0; i < n; i++ {
		encodeValue(buf, at(i))
	}
}

func encodeMap(buf *bytes.Buffer, m map[string]any) {
	buf.WriteByte(tagMap)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	writeUint32(buf, uint32(len(keys)))
	for _, k := range keys {
		encodeString(buf, k)
		encodeValue(buf, m[k])
	}
}

func writeLengthPrefixed(buf *bytes.Buffer, data []byte) {
	writeUint32(buf, uint32(len(data)))
	buf.Write(data)
}

func writeUint32(buf *bytes.Buffer, n uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], n)
	buf.Write(tmp[:])
}
