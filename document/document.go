// Package document provides handles over existing PDF files and copies their
// pages into new documents built with the writer package.
//
// A Handle is opened read-only with Open, or read-write with OpenForUpdate.
// Only a read-write handle accepts rotation changes; they are recorded as
// overrides and applied when pages are copied, so the source file is never
// modified.
package document

import (
	"bytes"
	"fmt"
	"os"

	"github.com/lvillar/pagekit"
	"github.com/lvillar/pagekit/reader"
	"github.com/lvillar/pagekit/writer"
)

// Mode is the access mode of a Handle.
type Mode int

const (
	ReadOnly Mode = iota
	ReadWrite
)

func (m Mode) String() string {
	if m == ReadWrite {
		return "read-write"
	}
	return "read-only"
}

// Option configures a Handle.
type Option func(*Handle)

// WithDefaultPageSize sets the MediaBox given to copied pages that have none.
func WithDefaultPageSize(s pagekit.SizeType) Option {
	return func(h *Handle) {
		if s.Valid() {
			h.defaultSize = s
		}
	}
}

// Handle is an open source document.
// A Handle is not safe for concurrent use.
type Handle struct {
	path        string
	doc         *reader.Document
	mode        Mode
	rotations   map[int]int
	defaultSize pagekit.SizeType
	closed      bool

	pageTree map[reader.Reference]bool
	copies   map[*writer.Builder]map[reader.Reference]reader.Reference
}

// Open opens path read-only.
func Open(path string, opts ...Option) (*Handle, error) {
	return open(path, ReadOnly, opts)
}

// OpenForUpdate opens path read-write.
func OpenForUpdate(path string, opts ...Option) (*Handle, error) {
	return open(path, ReadWrite, opts)
}

// OpenBytes opens an in-memory document read-only. name is used in
// error messages only.
func OpenBytes(name string, data []byte, opts ...Option) (*Handle, error) {
	doc, err := reader.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("document: %s: %w: %w", name, pagekit.ErrDocumentUnreadable, err)
	}
	return newHandle(name, doc, ReadOnly, opts), nil
}

func open(path string, mode Mode, opts []Option) (*Handle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("document: %w: %w", pagekit.ErrDocumentUnreadable, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("document: %s is a directory: %w", path, pagekit.ErrDocumentUnreadable)
	}
	doc, err := reader.Open(path)
	if err != nil {
		return nil, fmt.Errorf("document: %w: %w", pagekit.ErrDocumentUnreadable, err)
	}
	return newHandle(path, doc, mode, opts), nil
}

func newHandle(path string, doc *reader.Document, mode Mode, opts []Option) *Handle {
	h := &Handle{
		path:        path,
		doc:         doc,
		mode:        mode,
		rotations:   make(map[int]int),
		defaultSize: pagekit.PageSizeA4,
		copies:      make(map[*writer.Builder]map[reader.Reference]reader.Reference),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.pageTree = h.collectPageTree()
	return h
}

// collectPageTree records every page and intermediate node reachable from
// the pages through /Parent. Copies never follow references into this set.
func (h *Handle) collectPageTree() map[reader.Reference]bool {
	tree := make(map[reader.Reference]bool)
	for _, page := range h.doc.Pages() {
		if page.Ref.Number != 0 {
			tree[page.Ref] = true
		}
		parent := page.Dict()["Parent"]
		for depth := 0; depth < 64; depth++ {
			ref, ok := parent.(reader.Reference)
			if !ok || tree[ref] {
				break
			}
			tree[ref] = true
			obj, err := h.doc.Resolve(ref)
			if err != nil {
				break
			}
			node, ok := obj.(reader.Dict)
			if !ok {
				break
			}
			parent = node["Parent"]
		}
	}
	return tree
}

// Path returns the path the handle was opened from.
func (h *Handle) Path() string {
	return h.path
}

// Mode returns the access mode.
func (h *Handle) Mode() Mode {
	return h.mode
}

// Close releases the handle. Closing twice returns pagekit.ErrClosed.
func (h *Handle) Close() error {
	if h.closed {
		return fmt.Errorf("document: %w", pagekit.ErrClosed)
	}
	h.closed = true
	h.doc = nil
	h.copies = nil
	return nil
}

func (h *Handle) check() error {
	if h.closed {
		return fmt.Errorf("document: %w", pagekit.ErrClosed)
	}
	return nil
}

// PageCount returns the number of pages, or 0 for a closed handle.
func (h *Handle) PageCount() int {
	if h.closed {
		return 0
	}
	return h.doc.NumPages()
}

func (h *Handle) page(index int) (*reader.Page, error) {
	if err := h.check(); err != nil {
		return nil, err
	}
	page, err := h.doc.Page(index)
	if err != nil {
		return nil, fmt.Errorf("document: %w", err)
	}
	return page, nil
}

// Rotation returns the rotation of page index in degrees, including any
// override set with SetRotation.
func (h *Handle) Rotation(index int) (int, error) {
	page, err := h.page(index)
	if err != nil {
		return 0, err
	}
	if r, ok := h.rotations[index]; ok {
		return r, nil
	}
	return page.Rotate, nil
}

// SetRotation sets the absolute rotation of page index. degrees must be a
// multiple of 90; it is normalised to [0, 360).
func (h *Handle) SetRotation(index, degrees int) error {
	if err := h.check(); err != nil {
		return err
	}
	if h.mode != ReadWrite {
		return fmt.Errorf("document: set rotation on %s: %w", h.path, pagekit.ErrReadOnly)
	}
	if _, err := h.page(index); err != nil {
		return err
	}
	if degrees%90 != 0 {
		return fmt.Errorf("document: rotation %d is not a multiple of 90: %w", degrees, pagekit.ErrInvalidParam)
	}
	h.rotations[index] = reader.NormalizeRotation(degrees)
	return nil
}

// PageSize returns the unrotated MediaBox size of page index, or the default
// page size when the page declares none.
func (h *Handle) PageSize(index int) (pagekit.SizeType, error) {
	page, err := h.page(index)
	if err != nil {
		return pagekit.SizeType{}, err
	}
	size := pagekit.SizeType{Wd: page.MediaBox.Width(), Ht: page.MediaBox.Height()}
	if !size.Valid() {
		return h.defaultSize, nil
	}
	return size, nil
}

// Metadata returns the text entries of the source /Info dictionary.
func (h *Handle) Metadata() map[string]string {
	if h.closed {
		return map[string]string{}
	}
	return h.doc.Metadata()
}

// Version returns the PDF version of the source file header.
func (h *Handle) Version() string {
	if h.closed {
		return ""
	}
	return h.doc.Version
}

// CopyRange appends pages first..last (inclusive, 1-based) to dst in order.
func (h *Handle) CopyRange(dst *writer.Builder, first, last int) error {
	if err := h.check(); err != nil {
		return err
	}
	n := h.doc.NumPages()
	if first < 1 || last > n || first > last {
		return fmt.Errorf("document: range [%d, %d] not within [1, %d]: %w", first, last, n, pagekit.ErrOutOfRange)
	}
	for i := first; i <= last; i++ {
		if err := h.CopyPage(dst, i); err != nil {
			return err
		}
	}
	return nil
}

// CopyPage appends page index to dst.
func (h *Handle) CopyPage(dst *writer.Builder, index int) error {
	page, err := h.ImportPage(dst, index)
	if err != nil {
		return err
	}
	dst.AddPage(page)
	return nil
}
