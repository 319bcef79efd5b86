package document

import (
	"strings"
	"unicode/utf8"
)

const hexDigits = "0123456789abcdef"

// MarshalJSON renders the value as compact JSON, preserving object key order.
func (v *Value) MarshalJSON() ([]byte, error) {
	var sb strings.Builder
	v.write(&sb)
	return []byte(sb.String()), nil
}

// UnmarshalJSON replaces the receiver with the parsed document.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = *parsed
	return nil
}

func (v *Value) write(sb *strings.Builder) {
	switch v.Kind() {
	case Null:
		sb.WriteString("null")
	case Bool:
		if v.b {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case Number:
		sb.WriteString(v.s)
	case String:
		writeString(sb, v.s)
	case Array:
		sb.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				sb.WriteByte(',')
			}
			item.write(sb)
		}
		sb.WriteByte(']')
	case Object:
		sb.WriteByte('{')
		for i, k := range v.keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeString(sb, k)
			sb.WriteByte(':')
			v.fields[k].write(sb)
		}
		sb.WriteByte('}')
	}
}

func writeString(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch c {
			case '"', '\\':
				sb.WriteByte('\\')
				sb.WriteByte(c)
			case '\n':
				sb.WriteString(`\n`)
			case '\r':
				sb.WriteString(`\r`)
			case '\t':
				sb.WriteString(`\t`)
			default:
				if c < 0x20 {
					sb.WriteString(`\u00`)
					sb.WriteByte(hexDigits[c>>4])
					sb.WriteByte(hexDigits[c&0xF])
				} else {
					sb.WriteByte(c)
				}
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			sb.WriteString(`\ufffd`)
		} else {
			sb.WriteString(s[i : i+size])
		}
		i += size
	}
	sb.WriteByte('"')
}
