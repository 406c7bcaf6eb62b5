package reader

import (
	"bytes"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"

	"github.com/lvillar/pagekit"
)

// Document represents a parsed PDF document.
// A Document is not safe for concurrent use.
type Document struct {
	Version string // PDF version from file header (e.g., "1.7")
	xref    xrefTable
	trailer Dict
	data    []byte
	pages   []*Page

	objStreams map[int]*objectStream
	resolving  map[int]bool
}

// Open opens and parses a PDF file from disk.
func Open(filename string) (*Document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reader: opening %s: %w", filename, err)
	}
	return parse(data)
}

// ReadFrom parses a PDF document from a reader.
// The reader content is read entirely into memory for random access.
func ReadFrom(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reader: reading input: %w", err)
	}
	return parse(data)
}

// parse builds a Document from raw PDF bytes. A damaged cross-reference
// section is rebuilt by scanning the file.
func parse(data []byte) (*Document, error) {
	if !bytes.Contains(data[:min(1024, len(data))], []byte("%PDF-")) {
		return nil, fmt.Errorf("reader: missing %%PDF header")
	}

	doc := &Document{
		data:       data,
		Version:    parseVersion(data),
		objStreams: make(map[int]*objectStream),
		resolving:  make(map[int]bool),
	}

	xref, trailer, err := doc.loadXRef()
	if err != nil {
		return nil, err
	}
	doc.xref = xref
	doc.trailer = trailer

	if _, ok := doc.trailer["Encrypt"]; ok {
		return nil, fmt.Errorf("reader: %w", pagekit.ErrEncrypted)
	}

	if err := doc.buildPageList(); err != nil {
		// The table may be intact but point at the wrong places.
		rebuilt, rebuiltTrailer, rerr := rebuildXRef(data)
		if rerr != nil {
			return nil, err
		}
		doc.xref, doc.trailer = rebuilt, rebuiltTrailer
		doc.objStreams = make(map[int]*objectStream)
		if err2 := doc.buildPageList(); err2 != nil {
			return nil, err
		}
	}
	return doc, nil
}

func (d *Document) loadXRef() (xrefTable, Dict, error) {
	startXRef, err := findStartXRef(d.data)
	if err == nil {
		table, trailer, err := readXRef(d.data, startXRef)
		if err == nil && trailer["Root"] != nil {
			return table, trailer, nil
		}
	}
	return rebuildXRef(d.data)
}

// parseVersion extracts the PDF version from the file header (e.g., "%PDF-1.7").
func parseVersion(data []byte) string {
	header := string(data[:min(32, len(data))])
	idx := strings.Index(header, "%PDF-")
	if idx < 0 {
		return ""
	}
	end := idx + 5
	for end < len(header) && header[end] != '\n' && header[end] != '\r' && header[end] != ' ' {
		end++
	}
	return header[idx+5 : end]
}

// NumPages returns the total number of pages in the document.
func (d *Document) NumPages() int {
	return len(d.pages)
}

// Page returns the page at the given 1-based index.
func (d *Document) Page(n int) (*Page, error) {
	if n < 1 || n > len(d.pages) {
		return nil, fmt.Errorf("reader: page %d out of range [1, %d]: %w", n, len(d.pages), pagekit.ErrOutOfRange)
	}
	return d.pages[n-1], nil
}

// Pages returns an iterator over all pages. Index is 1-based.
func (d *Document) Pages() iter.Seq2[int, *Page] {
	return func(yield func(int, *Page) bool) {
		for i, page := range d.pages {
			if !yield(i+1, page) {
				return
			}
		}
	}
}

// Trailer returns the newest trailer dictionary.
func (d *Document) Trailer() Dict {
	return d.trailer
}

// Metadata returns the text entries of the /Info dictionary.
func (d *Document) Metadata() map[string]string {
	meta := make(map[string]string)

	infoObj, err := d.Resolve(d.trailer["Info"])
	if err != nil {
		return meta
	}
	info, ok := infoObj.(Dict)
	if !ok {
		return meta
	}

	for _, key := range []Name{"Title", "Author", "Subject", "Keywords", "Creator", "Producer"} {
		v, err := d.Resolve(info[key])
		if err != nil {
			continue
		}
		if s, ok := v.(String); ok {
			meta[string(key)] = DecodeText(s.Value)
		}
	}
	return meta
}

// DecodeText decodes a PDF text string: UTF-16BE when it carries a byte
// order mark, PDFDocEncoding (treated as Latin-1) otherwise.
func DecodeText(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		if out, err := dec.Bytes(b); err == nil {
			return string(out)
		}
	}
	var sb strings.Builder
	for _, c := range b {
		sb.WriteRune(rune(c))
	}
	return sb.String()
}

// Resolve follows obj while it is a Reference. Other objects are returned
// unchanged; nil resolves to Null.
func (d *Document) Resolve(obj Object) (Object, error) {
	for i := 0; i < 32; i++ {
		ref, ok := obj.(Reference)
		if !ok {
			if obj == nil {
				return Null{}, nil
			}
			return obj, nil
		}
		var err error
		obj, err = d.resolve(ref)
		if err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("reader: reference chain too deep")
}

// ResolveReference resolves an indirect reference to the actual object.
func (d *Document) ResolveReference(ref Reference) (Object, error) {
	return d.resolve(ref)
}

// resolve loads one indirect object. Missing or free objects are null.
func (d *Document) resolve(ref Reference) (Object, error) {
	entry, ok := d.xref[ref.Number]
	if !ok || !entry.InUse {
		return Null{}, nil
	}
	if entry.Compressed {
		return d.resolveCompressed(ref.Number, entry)
	}

	if entry.Offset < 0 || int(entry.Offset) >= len(d.data) {
		return nil, fmt.Errorf("reader: object %d offset %d out of bounds", ref.Number, entry.Offset)
	}
	if d.resolving[ref.Number] {
		return nil, fmt.Errorf("reader: object %d refers to itself while loading", ref.Number)
	}
	d.resolving[ref.Number] = true
	defer delete(d.resolving, ref.Number)

	p := newParser(d.data[entry.Offset:])
	p.resolveLength = d.lengthOf
	obj, err := p.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("reader: parsing object %d: %w", ref.Number, err)
	}
	if obj.Number != ref.Number {
		return nil, fmt.Errorf("reader: xref for object %d points at object %d", ref.Number, obj.Number)
	}
	return obj.Value, nil
}

// lengthOf resolves an indirect stream /Length.
func (d *Document) lengthOf(ref Reference) (int, bool) {
	obj, err := d.resolve(ref)
	if err != nil {
		return 0, false
	}
	n, ok := obj.(Integer)
	return int(n), ok
}
