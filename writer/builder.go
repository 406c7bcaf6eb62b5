// Package writer builds new PDF documents out of objects, most of them copied
// from existing files with the reader package.
//
// A Builder is append-only: objects are reserved or added, pages are placed in
// an ordered list, and the whole document is serialized exactly once by
// WriteTo. Output uses a classic cross-reference table.
package writer

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/text/encoding/unicode"

	"github.com/lvillar/pagekit"
	"github.com/lvillar/pagekit/reader"
)

// Option configures a Builder.
type Option func(*Builder)

// WithCompression sets the zlib level used for unfiltered streams.
// zlib.NoCompression leaves them as they are.
func WithCompression(level int) Option {
	return func(b *Builder) {
		b.level = level
	}
}

// WithRecompression makes WriteTo also inflate and re-deflate streams that
// are already plain FlateDecode, at the configured level.
func WithRecompression(on bool) Option {
	return func(b *Builder) {
		b.recompress = on
	}
}

// WithVersion sets the version written in the file header.
func WithVersion(v string) Option {
	return func(b *Builder) {
		if v != "" {
			b.version = v
		}
	}
}

// Builder accumulates the objects of a destination document.
type Builder struct {
	objects  []reader.Object // object number n is objects[n-1]; nil while reserved
	pages    []reader.Reference
	pagesRef reader.Reference
	info     reader.Dict

	level      int
	recompress bool
	version    string
	sealed     bool
}

// New returns an empty Builder. The page tree root is reserved as object 1.
func New(opts ...Option) *Builder {
	b := &Builder{
		level:   zlib.DefaultCompression,
		version: "1.7",
		info:    reader.Dict{},
	}
	for _, opt := range opts {
		opt(b)
	}
	b.pagesRef = b.Reserve()
	return b
}

// Reserve allocates an object number whose value is supplied later with Set.
func (b *Builder) Reserve() reader.Reference {
	b.objects = append(b.objects, nil)
	return reader.Reference{Number: len(b.objects)}
}

// Add appends obj as a new indirect object and returns its reference.
func (b *Builder) Add(obj reader.Object) reader.Reference {
	b.objects = append(b.objects, obj)
	return reader.Reference{Number: len(b.objects)}
}

// Set assigns the value of a previously reserved or added object.
func (b *Builder) Set(ref reader.Reference, obj reader.Object) error {
	if ref.Number < 1 || ref.Number > len(b.objects) {
		return fmt.Errorf("writer: object %d was not allocated by this builder", ref.Number)
	}
	b.objects[ref.Number-1] = obj
	return nil
}

// Get returns the value stored for ref.
func (b *Builder) Get(ref reader.Reference) (reader.Object, bool) {
	if ref.Number < 1 || ref.Number > len(b.objects) {
		return nil, false
	}
	obj := b.objects[ref.Number-1]
	return obj, obj != nil
}

// PagesRef returns the reference of the page tree root, to be used as the
// /Parent of every page.
func (b *Builder) PagesRef() reader.Reference {
	return b.pagesRef
}

// AddPage stores page as a new object and appends it to the page list.
func (b *Builder) AddPage(page reader.Dict) reader.Reference {
	return b.InsertPage(len(b.pages), page)
}

// InsertPage stores page as a new object and places it at the 0-based index
// of the page list. Indices beyond the end append.
func (b *Builder) InsertPage(index int, page reader.Dict) reader.Reference {
	page["Type"] = reader.Name("Page")
	page["Parent"] = b.pagesRef
	ref := b.Add(page)

	if index < 0 {
		index = 0
	}
	if index >= len(b.pages) {
		b.pages = append(b.pages, ref)
		return ref
	}
	b.pages = append(b.pages, reader.Reference{})
	copy(b.pages[index+1:], b.pages[index:])
	b.pages[index] = ref
	return ref
}

// PageCount returns the number of pages placed so far.
func (b *Builder) PageCount() int {
	return len(b.pages)
}

// SetInfo sets a text entry of the document information dictionary.
// Empty values remove the entry.
func (b *Builder) SetInfo(key, value string) {
	if value == "" {
		delete(b.info, reader.Name(key))
		return
	}
	b.info[reader.Name(key)] = TextString(value)
}

// SetDate sets a date entry such as CreationDate or ModDate.
func (b *Builder) SetDate(key string, t time.Time) {
	b.info[reader.Name(key)] = reader.String{Value: []byte(FormatDate(t))}
}

// TextString encodes s as a PDF text string: as is when it is printable
// ASCII, UTF-16BE with a byte order mark otherwise.
func TextString(s string) reader.String {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7E {
			ascii = false
			break
		}
	}
	if ascii {
		return reader.String{Value: []byte(s)}
	}
	enc := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
	out, err := enc.Bytes([]byte(s))
	if err != nil {
		return reader.String{Value: []byte(s)}
	}
	return reader.String{Value: out, IsHex: true}
}

// FormatDate formats t as a PDF date string, e.g. "D:20240131153000+01'00'".
func FormatDate(t time.Time) string {
	_, offset := t.Zone()
	sign := '+'
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	if offset == 0 {
		return "D:" + t.Format("20060102150405") + "Z"
	}
	return fmt.Sprintf("D:%s%c%02d'%02d'", t.Format("20060102150405"), sign, offset/3600, offset%3600/60)
}

// WriteTo serializes the document. It can be called once; later calls
// fail with pagekit.ErrClosed.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	if b.sealed {
		return 0, fmt.Errorf("writer: %w", pagekit.ErrClosed)
	}
	b.sealed = true

	kids := make(reader.Array, len(b.pages))
	for i, ref := range b.pages {
		kids[i] = ref
	}
	b.objects[b.pagesRef.Number-1] = reader.Dict{
		"Type":  reader.Name("Pages"),
		"Kids":  kids,
		"Count": reader.Integer(len(b.pages)),
	}
	catalog := b.Add(reader.Dict{
		"Type":  reader.Name("Catalog"),
		"Pages": b.pagesRef,
	})
	var infoRef reader.Reference
	if len(b.info) > 0 {
		infoRef = b.Add(b.info)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%%PDF-%s\n%%\xe2\xe3\xcf\xd3\n", b.version)

	offsets := make([]int, len(b.objects))
	for i, obj := range b.objects {
		enc, err := b.encodeStream(obj)
		if err != nil {
			return 0, fmt.Errorf("writer: object %d: %w", i+1, err)
		}
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", i+1)
		if err := writeObject(&buf, enc); err != nil {
			return 0, fmt.Errorf("writer: object %d: %w", i+1, err)
		}
		buf.WriteString("\nendobj\n")
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(b.objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}

	id := md5.Sum(buf.Bytes())
	trailer := reader.Dict{
		"Size": reader.Integer(len(b.objects) + 1),
		"Root": catalog,
		"ID": reader.Array{
			reader.String{Value: id[:], IsHex: true},
			reader.String{Value: id[:], IsHex: true},
		},
	}
	if infoRef.Number != 0 {
		trailer["Info"] = infoRef
	}
	buf.WriteString("trailer\n")
	if err := writeObject(&buf, trailer); err != nil {
		return 0, fmt.Errorf("writer: trailer: %w", err)
	}
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// encodeStream applies the configured compression to a stream object.
// Other objects are returned unchanged.
func (b *Builder) encodeStream(obj reader.Object) (reader.Object, error) {
	s, ok := obj.(reader.Stream)
	if !ok || b.level == zlib.NoCompression {
		return obj, nil
	}

	switch filter := s.Dict["Filter"].(type) {
	case nil:
		return b.deflate(s, s.Data)
	case reader.Name:
		if filter != "FlateDecode" || !b.recompress || s.Dict["DecodeParms"] != nil {
			return obj, nil
		}
		raw, err := reader.DecodeStream(s)
		if err != nil {
			// Leave streams we cannot inflate exactly as they were.
			return obj, nil
		}
		return b.deflate(s, raw)
	}
	return obj, nil
}

func (b *Builder) deflate(s reader.Stream, raw []byte) (reader.Object, error) {
	var out bytes.Buffer
	zw, err := zlib.NewWriterLevel(&out, b.level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	// Keep whichever encoding is smaller.
	if out.Len() >= len(s.Data) {
		return s, nil
	}
	d := s.Dict.Clone()
	d["Filter"] = reader.Name("FlateDecode")
	delete(d, "DecodeParms")
	return reader.Stream{Dict: d, Data: out.Bytes()}, nil
}
