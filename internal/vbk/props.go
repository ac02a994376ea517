package vbk

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// PropType discriminates the tagged values in a property dictionary.
type PropType int32

const (
	PropInt    PropType = 1
	PropUint64 PropType = 2
	PropMBS    PropType = 3 // UTF-8 string
	PropWCS    PropType = 4 // UTF-16LE string
	PropBin    PropType = 5
	PropBool   PropType = 6
)

const (
	propKeyMaxLen   = 0x100
	propValueMaxLen = 0x100000
)

var wcsDecoder = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()

// PropsDictionary is a decoded tagged key/value stream, as used for file
// and snapshot metadata properties.
type PropsDictionary struct {
	Values map[string]any
}

// Valid reports whether the dictionary decoded at least one property.
func (d PropsDictionary) Valid() bool { return len(d.Values) > 0 }

const summaryAbbrevLen = 32

// Summary renders the dictionary as a single-line, key-sorted key=value
// list for report output, abbreviating long string and byte values the
// way the original's __repr__ does rather than dumping them in full.
func (d PropsDictionary) Summary() string {
	if len(d.Values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(d.Values))
	for k := range d.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, summarizeValue(d.Values[k])))
	}
	return strings.Join(parts, " ")
}

func summarizeValue(v any) string {
	switch val := v.(type) {
	case string:
		if len(val) > summaryAbbrevLen {
			return fmt.Sprintf("%q...(%d)", val[:summaryAbbrevLen], len(val))
		}
		return val
	case []byte:
		if len(val) > summaryAbbrevLen {
			return fmt.Sprintf("%x...(%d bytes)", val[:summaryAbbrevLen], len(val))
		}
		return fmt.Sprintf("%x", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func printableASCII(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}

// readPropsDictionary decodes a property dictionary from a fully
// reassembled byte stream (see readMetaBlob). Decoding stops at the first
// malformed or out-of-range entry rather than returning an error: a
// partially decoded dictionary is the expected outcome for a truncated or
// corrupted blob.
func readPropsDictionary(data []byte) PropsDictionary {
	d := PropsDictionary{Values: make(map[string]any)}
	offset := 0

	for offset < len(data) {
		if offset+4 > len(data) {
			break
		}
		propType := PropType(int32(binary.LittleEndian.Uint32(data[offset : offset+4])))
		offset += 4

		if propType == -1 {
			break
		}
		if propType < PropInt || propType > PropBool {
			break
		}

		if offset+4 > len(data) {
			break
		}
		keyLen := binary.LittleEndian.Uint32(data[offset : offset+4])
		offset += 4

		if keyLen > propKeyMaxLen || offset+int(keyLen) > len(data) {
			break
		}
		key := trimNulString(data[offset : offset+int(keyLen)])
		offset += int(keyLen)

		if !printableASCII(key) {
			break
		}

		switch propType {
		case PropInt:
			if offset+4 > len(data) {
				return d
			}
			d.Values[key] = int32(binary.LittleEndian.Uint32(data[offset : offset+4]))
			offset += 4

		case PropUint64:
			if offset+8 > len(data) {
				return d
			}
			d.Values[key] = binary.LittleEndian.Uint64(data[offset : offset+8])
			offset += 8

		case PropBool:
			if offset+4 > len(data) {
				return d
			}
			d.Values[key] = binary.LittleEndian.Uint32(data[offset:offset+4]) != 0
			offset += 4

		case PropMBS, PropWCS, PropBin:
			if offset+4 > len(data) {
				return d
			}
			valLen := binary.LittleEndian.Uint32(data[offset : offset+4])
			offset += 4
			if valLen > propValueMaxLen || offset+int(valLen) > len(data) {
				return d
			}
			raw := data[offset : offset+int(valLen)]
			offset += int(valLen)

			switch propType {
			case PropMBS:
				d.Values[key] = string(raw)
			case PropWCS:
				if s, err := wcsDecoder.String(string(raw)); err == nil {
					d.Values[key] = s
				} else {
					d.Values[key] = raw
				}
			default:
				d.Values[key] = append([]byte(nil), raw...)
			}

		default:
			return d
		}
	}

	return d
}

func trimNulString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
