package writer

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/lvillar/pagekit/reader"
)

// writeObject serializes obj in PDF syntax. Dictionary keys are written in
// sorted order so that output is deterministic.
func writeObject(buf *bytes.Buffer, obj reader.Object) error {
	switch v := obj.(type) {
	case nil, reader.Null:
		buf.WriteString("null")
	case reader.Boolean:
		buf.WriteString(v.String())
	case reader.Integer:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case reader.Real:
		buf.WriteString(formatReal(float64(v)))
	case reader.Name:
		writeName(buf, v)
	case reader.String:
		writeString(buf, v)
	case reader.Reference:
		fmt.Fprintf(buf, "%d %d R", v.Number, v.Generation)
	case reader.Array:
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteByte(' ')
			}
			if err := writeObject(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case reader.Dict:
		buf.WriteString("<<")
		for _, k := range v.Keys() {
			buf.WriteByte(' ')
			writeName(buf, k)
			buf.WriteByte(' ')
			if err := writeObject(buf, v[k]); err != nil {
				return err
			}
		}
		buf.WriteString(" >>")
	case reader.Stream:
		d := v.Dict.Clone()
		d["Length"] = reader.Integer(len(v.Data))
		if err := writeObject(buf, d); err != nil {
			return err
		}
		buf.WriteString("\nstream\n")
		buf.Write(v.Data)
		buf.WriteString("\nendstream")
	default:
		return fmt.Errorf("writer: cannot serialize %T", obj)
	}
	return nil
}

// formatReal writes a real without exponent notation, which PDF does not allow.
func formatReal(f float64) string {
	s := strconv.FormatFloat(f, 'f', 5, 64)
	s = trimZeros(s)
	if s == "-0" {
		return "0"
	}
	return s
}

func trimZeros(s string) string {
	if !bytes.ContainsRune([]byte(s), '.') {
		return s
	}
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}

func writeName(buf *bytes.Buffer, n reader.Name) {
	buf.WriteByte('/')
	for i := 0; i < len(n); i++ {
		c := n[i]
		if c < '!' || c > '~' || c == '#' || isDelimiter(c) {
			fmt.Fprintf(buf, "#%02X", c)
			continue
		}
		buf.WriteByte(c)
	}
}

func writeString(buf *bytes.Buffer, s reader.String) {
	if s.IsHex {
		fmt.Fprintf(buf, "<%X>", s.Value)
		return
	}
	buf.WriteByte('(')
	for _, c := range s.Value {
		switch c {
		case '(', ')', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case '\r':
			buf.WriteString(`\r`)
		default:
			buf.WriteByte(c)
		}
	}
	buf.WriteByte(')')
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}
