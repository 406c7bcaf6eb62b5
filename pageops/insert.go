package pageops

import (
	"fmt"
	"image"
	"os"

	"github.com/lvillar/pagekit"
	"github.com/lvillar/pagekit/document"
	"github.com/lvillar/pagekit/reader"
	"github.com/lvillar/pagekit/selection"
	"github.com/lvillar/pagekit/stamp"
	"github.com/lvillar/pagekit/writer"
)

// AddBlankPage inserts an empty page of the given size. after selects the
// position: 0 inserts before the first page, -1 or anything past the last
// page appends, and n inserts after page n.
func (e *Engine) AddBlankPage(src string, after int, size pagekit.SizeType) (string, error) {
	if !size.Valid() {
		err := fmt.Errorf("pageops: page size %gx%g: %w", size.Wd, size.Ht, pagekit.ErrInvalidParam)
		return "", pagekit.NewOpError("AddBlankPage", src, err)
	}
	return e.transform("AddBlankPage", src, TagAdded, document.ReadOnly, func(h *document.Handle, dst *writer.Builder) error {
		return insertAt(h, dst, after, func() error {
			dst.AddPage(blankPage(size))
			return nil
		})
	})
}

func blankPage(size pagekit.SizeType) reader.Dict {
	return reader.Dict{
		"MediaBox": reader.Array{
			reader.Integer(0), reader.Integer(0),
			reader.Real(size.Wd), reader.Real(size.Ht),
		},
		"Resources": reader.Dict{},
	}
}

// insertAt copies every page of h into dst in one pass and calls add once,
// at the position that selection.InsertPosition resolves after to.
func insertAt(h *document.Handle, dst *writer.Builder, after int, add func() error) error {
	n := h.PageCount()
	pos, err := selection.InsertPosition(after, n)
	if err != nil {
		return err
	}
	for i := 1; i <= n; i++ {
		if i-1 == pos {
			if err := add(); err != nil {
				return err
			}
		}
		if err := h.CopyPage(dst, i); err != nil {
			return err
		}
	}
	if pos == n {
		return add()
	}
	return nil
}

// readImage loads and identifies the image file at path.
func readImage(path string) (*stamp.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pageops: reading image: %w", err)
	}
	return stamp.DecodeImage(data)
}

// AddImageAsPage inserts a page that shows the image at imagePath. The page
// measures one point per image pixel. after is interpreted as in
// AddBlankPage.
func (e *Engine) AddImageAsPage(src, imagePath string, after int) (string, error) {
	img, err := readImage(imagePath)
	if err != nil {
		return "", pagekit.NewOpError("AddImageAsPage", src, err)
	}
	return e.transform("AddImageAsPage", src, TagWithImage, document.ReadOnly, func(h *document.Handle, dst *writer.Builder) error {
		data, err := stamp.ImagePage(img)
		if err != nil {
			return err
		}
		imgDoc, err := document.OpenBytes(imagePath, data)
		if err != nil {
			return err
		}
		defer imgDoc.Close()

		return insertAt(h, dst, after, func() error {
			return imgDoc.CopyPage(dst, 1)
		})
	})
}

// AddImageToPage paints the image at imagePath onto page. rect is in
// document space, measured in points from the bottom-left corner of the
// page; a zero width or height takes the image's pixel size.
func (e *Engine) AddImageToPage(src string, page int, imagePath string, rect stamp.Rect) (string, error) {
	img, err := readImage(imagePath)
	if err != nil {
		return "", pagekit.NewOpError("AddImageToPage", src, err)
	}
	return e.stampImage("AddImageToPage", src, page, img, func(pagekit.SizeType) stamp.Rect { return rect })
}

// AddBitmapToPage paints an in-memory bitmap onto page. rect is in screen
// space, measured from the top-left corner of the page.
func (e *Engine) AddBitmapToPage(src string, page int, bitmap image.Image, rect stamp.Rect) (string, error) {
	img, err := stamp.FromBitmap(bitmap)
	if err != nil {
		return "", pagekit.NewOpError("AddBitmapToPage", src, err)
	}
	return e.stampImage("AddBitmapToPage", src, page, img, func(size pagekit.SizeType) stamp.Rect {
		return rect.Resolve(img).FlipY(size.Ht)
	})
}

// stampImage overlays img on page. place maps the page's unrotated size to
// the document-space rectangle the image occupies.
func (e *Engine) stampImage(op, src string, page int, img *stamp.Image, place func(pagekit.SizeType) stamp.Rect) (string, error) {
	return e.transform(op, src, TagImageAdded, document.ReadOnly, func(h *document.Handle, dst *writer.Builder) error {
		sel, err := selection.Validate([]int{page}, h.PageCount())
		if err != nil {
			return err
		}
		return overlayPages(h, dst, sel, func(sizes []pagekit.SizeType) ([]byte, error) {
			return stamp.ImageOverlay(img, sizes[0], place(sizes[0]))
		})
	})
}
