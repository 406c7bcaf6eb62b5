package pageops

import (
	"github.com/lvillar/pagekit"
	"github.com/lvillar/pagekit/document"
	"github.com/lvillar/pagekit/selection"
	"github.com/lvillar/pagekit/stamp"
	"github.com/lvillar/pagekit/writer"
)

// AddPageNumbers stamps a page number on every page.
func (e *Engine) AddPageNumbers(src string, style stamp.PageNumberStyle) (string, error) {
	return e.transform("AddPageNumbers", src, TagNumbered, document.ReadOnly, func(h *document.Handle, dst *writer.Builder) error {
		sel := selection.All(h.PageCount())
		if err := selection.RequireNonEmpty(sel); err != nil {
			return err
		}
		return overlayPages(h, dst, sel, func(sizes []pagekit.SizeType) ([]byte, error) {
			return stamp.PageNumberOverlay(sizes, h.PageCount(), style)
		})
	})
}

// AddTextWatermark stamps wm across the given pages, or across every page
// when pages is nil.
func (e *Engine) AddTextWatermark(src string, wm stamp.TextWatermark, pages []int) (string, error) {
	return e.transform("AddTextWatermark", src, TagWatermarked, document.ReadOnly, func(h *document.Handle, dst *writer.Builder) error {
		sel := selection.All(h.PageCount())
		if pages != nil {
			var err error
			if sel, err = selection.Validate(pages, h.PageCount()); err != nil {
				return err
			}
		}
		if err := selection.RequireNonEmpty(sel); err != nil {
			return err
		}
		return overlayPages(h, dst, sel, func(sizes []pagekit.SizeType) ([]byte, error) {
			return stamp.WatermarkOverlay(sizes, wm)
		})
	})
}

// overlayPages copies every page of h into dst and paints one overlay page
// over each page in sel. render receives the sizes of the selected pages in
// ascending page order and returns a document with one page per size.
func overlayPages(h *document.Handle, dst *writer.Builder, sel selection.Selection, render func([]pagekit.SizeType) ([]byte, error)) error {
	targets := sel.Set()
	var sizes []pagekit.SizeType
	overlayIndex := make(map[int]int, len(targets))
	for i := 1; i <= h.PageCount(); i++ {
		if !targets[i] {
			continue
		}
		size, err := h.PageSize(i)
		if err != nil {
			return err
		}
		sizes = append(sizes, size)
		overlayIndex[i] = len(sizes)
	}

	data, err := render(sizes)
	if err != nil {
		return err
	}
	overlay, err := document.OpenBytes("overlay", data)
	if err != nil {
		return err
	}
	defer overlay.Close()

	for i := 1; i <= h.PageCount(); i++ {
		d, err := h.ImportPage(dst, i)
		if err != nil {
			return err
		}
		if n, ok := overlayIndex[i]; ok {
			if err := overlay.Overlay(dst, d, n); err != nil {
				return err
			}
		}
		dst.AddPage(d)
	}
	return nil
}
