package pageops

import (
	"github.com/lvillar/pagekit/document"
	"github.com/lvillar/pagekit/selection"
	"github.com/lvillar/pagekit/writer"
)

// DeletePages removes the given pages. The remaining pages keep their
// original order. Deleting every page yields a document with no pages.
func (e *Engine) DeletePages(src string, pages []int) (string, error) {
	return e.transform("DeletePages", src, TagDeleted, document.ReadOnly, func(h *document.Handle, dst *writer.Builder) error {
		sel, err := selection.Validate(pages, h.PageCount())
		if err != nil {
			return err
		}
		return copySequence(h, dst, sel.Complement(h.PageCount()))
	})
}

// ReorderPages writes the pages in exactly the given order. Pages left out
// are dropped and repeated pages are copied each time they appear.
func (e *Engine) ReorderPages(src string, order []int) (string, error) {
	return e.transform("ReorderPages", src, TagReordered, document.ReadOnly, func(h *document.Handle, dst *writer.Builder) error {
		if err := selection.RequireNonEmpty(order); err != nil {
			return err
		}
		sel, err := selection.Validate(order, h.PageCount())
		if err != nil {
			return err
		}
		return copySequence(h, dst, sel)
	})
}

// MovePage takes page from out of the document and reinserts it so that it
// ends up at position to. to is clamped to the page range.
func (e *Engine) MovePage(src string, from, to int) (string, error) {
	return e.transform("MovePage", src, TagReordered, document.ReadOnly, func(h *document.Handle, dst *writer.Builder) error {
		order, err := selection.MoveOrder(h.PageCount(), from, to)
		if err != nil {
			return err
		}
		return copySequence(h, dst, order)
	})
}

// DuplicatePage inserts a copy of page k directly after it.
func (e *Engine) DuplicatePage(src string, k int) (string, error) {
	return e.transform("DuplicatePage", src, TagDuplicated, document.ReadOnly, func(h *document.Handle, dst *writer.Builder) error {
		if _, err := selection.Validate([]int{k}, h.PageCount()); err != nil {
			return err
		}
		for i := 1; i <= h.PageCount(); i++ {
			if err := h.CopyPage(dst, i); err != nil {
				return err
			}
			if i == k {
				if err := h.CopyPage(dst, i); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
