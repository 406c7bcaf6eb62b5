// Package reader parses existing PDF files into an object graph and a flat,
// 1-based page list.
//
// It understands classic cross-reference tables, cross-reference streams,
// compressed object streams and hybrid files, resolves inherited page
// attributes, and exposes the raw objects needed to copy pages into a new
// document. Encrypted documents are rejected.
package reader

import (
	"fmt"
	"sort"
)

// Object is the interface satisfied by all PDF object types.
// The unexported method prevents external types from implementing it.
type Object interface {
	pdfObject()
	String() string
}

// Null represents the PDF null object.
type Null struct{}

func (Null) pdfObject()     {}
func (Null) String() string { return "null" }

// Boolean represents a PDF boolean value.
type Boolean bool

func (Boolean) pdfObject() {}
func (b Boolean) String() string {
	if b {
		return "true"
	}
	return "false"
}

// Integer represents a PDF integer value.
type Integer int64

func (Integer) pdfObject()       {}
func (i Integer) String() string { return fmt.Sprintf("%d", int64(i)) }

// Real represents a PDF real (floating-point) value.
type Real float64

func (Real) pdfObject()       {}
func (r Real) String() string { return fmt.Sprintf("%g", float64(r)) }

// Name represents a PDF name object (e.g., /Type, /Pages).
type Name string

func (Name) pdfObject()       {}
func (n Name) String() string { return "/" + string(n) }

// String represents a PDF string (literal or hexadecimal).
type String struct {
	Value []byte
	IsHex bool
}

func (String) pdfObject() {}
func (s String) String() string {
	if s.IsHex {
		return fmt.Sprintf("<%x>", s.Value)
	}
	return fmt.Sprintf("(%s)", s.Value)
}

// Array represents a PDF array of objects.
type Array []Object

func (Array) pdfObject()       {}
func (a Array) String() string { return fmt.Sprintf("[array len=%d]", len(a)) }

// Dict represents a PDF dictionary mapping names to objects.
type Dict map[Name]Object

func (Dict) pdfObject()       {}
func (d Dict) String() string { return fmt.Sprintf("<<dict len=%d>>", len(d)) }

// GetName returns the value of a name entry, or empty string if not found.
func (d Dict) GetName(key Name) Name {
	if n, ok := d[key].(Name); ok {
		return n
	}
	return ""
}

// GetInt returns the value of a numeric entry truncated to an integer.
func (d Dict) GetInt(key Name) (int64, bool) {
	switch n := d[key].(type) {
	case Integer:
		return int64(n), true
	case Real:
		return int64(n), true
	}
	return 0, false
}

// GetDict returns a direct sub-dictionary, or nil.
func (d Dict) GetDict(key Name) Dict {
	if sub, ok := d[key].(Dict); ok {
		return sub
	}
	return nil
}

// GetArray returns a direct array entry, or nil.
func (d Dict) GetArray(key Name) Array {
	if arr, ok := d[key].(Array); ok {
		return arr
	}
	return nil
}

// Keys returns the dictionary keys in sorted order, for stable output.
func (d Dict) Keys() []Name {
	keys := make([]Name, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Clone returns a shallow copy of the dictionary.
func (d Dict) Clone() Dict {
	c := make(Dict, len(d))
	for k, v := range d {
		c[k] = v
	}
	return c
}

// Stream represents a PDF stream object (dictionary + encoded data).
type Stream struct {
	Dict Dict
	Data []byte // raw data as stored, still filtered
}

func (Stream) pdfObject()       {}
func (s Stream) String() string { return fmt.Sprintf("<<stream len=%d>>", len(s.Data)) }

// Reference represents an indirect object reference (e.g., "10 0 R").
type Reference struct {
	Number     int
	Generation int
}

func (Reference) pdfObject() {}
func (r Reference) String() string {
	return fmt.Sprintf("%d %d R", r.Number, r.Generation)
}

// IndirectObject represents a PDF indirect object definition (e.g., "10 0 obj ... endobj").
type IndirectObject struct {
	Reference
	Value Object
}

func (IndirectObject) pdfObject() {}
func (o IndirectObject) String() string {
	return fmt.Sprintf("%d %d obj %s", o.Number, o.Generation, o.Value)
}

// Number returns the numeric value of an Integer or Real object.
func Number(obj Object) (float64, bool) {
	switch n := obj.(type) {
	case Integer:
		return float64(n), true
	case Real:
		return float64(n), true
	}
	return 0, false
}

// DeepCopy returns a copy of obj that shares no dictionaries, arrays or
// stream buffers with the original. References are copied as values.
func DeepCopy(obj Object) Object {
	switch v := obj.(type) {
	case Dict:
		c := make(Dict, len(v))
		for k, item := range v {
			c[k] = DeepCopy(item)
		}
		return c
	case Array:
		c := make(Array, len(v))
		for i, item := range v {
			c[i] = DeepCopy(item)
		}
		return c
	case Stream:
		data := make([]byte, len(v.Data))
		copy(data, v.Data)
		return Stream{Dict: DeepCopy(v.Dict).(Dict), Data: data}
	case String:
		val := make([]byte, len(v.Value))
		copy(val, v.Value)
		return String{Value: val, IsHex: v.IsHex}
	}
	return obj
}
