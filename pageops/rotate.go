package pageops

import (
	"bytes"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/gofpdi"
	"github.com/sirupsen/logrus"

	"github.com/lvillar/pagekit"
	"github.com/lvillar/pagekit/document"
	"github.com/lvillar/pagekit/selection"
	"github.com/lvillar/pagekit/writer"
)

// RotatePages adds degrees to the rotation of the given pages. degrees must
// be a multiple of 90; the resulting rotation is normalised to [0, 360).
// Pages not selected keep their rotation.
func (e *Engine) RotatePages(src string, pages []int, degrees int) (string, error) {
	return e.rotate("RotatePages", src, pages, degrees)
}

// RotateAllPages adds degrees to the rotation of every page.
func (e *Engine) RotateAllPages(src string, degrees int) (string, error) {
	return e.rotate("RotateAllPages", src, nil, degrees)
}

func (e *Engine) rotate(op, src string, pages []int, degrees int) (string, error) {
	if degrees%90 != 0 {
		err := fmt.Errorf("pageops: rotation angle must be a multiple of 90, got %d: %w", degrees, pagekit.ErrInvalidParam)
		return "", pagekit.NewOpError(op, src, err)
	}

	return e.transform(op, src, TagRotated, document.ReadWrite, func(h *document.Handle, dst *writer.Builder) error {
		sel := selection.All(h.PageCount())
		if pages != nil {
			var err error
			if sel, err = selection.Validate(pages, h.PageCount()); err != nil {
				return err
			}
		}

		for n := range sel.Set() {
			cur, err := h.Rotation(n)
			if err != nil {
				return err
			}
			if err := h.SetRotation(n, cur+degrees); err != nil {
				return err
			}
		}
		return copyAll(h, dst)
	})
}

// NormalizeRotation re-imposes every page upright: a page displayed with a
// /Rotate of 90, 180 or 270 becomes an unrotated page of the displayed size
// with its content turned accordingly. The output has no /Rotate entries,
// for consumers that ignore the attribute.
func (e *Engine) NormalizeRotation(src string) (string, error) {
	const op = "NormalizeRotation"
	log := e.log.WithFields(logrus.Fields{"op": op, "source": src})

	h, err := e.open(src, document.ReadOnly)
	if err != nil {
		log.WithError(err).Warn("page operation failed")
		return "", pagekit.NewOpError(op, src, err)
	}
	defer h.Close()

	out, err := e.normalize(h, src)
	if err != nil {
		log.WithError(err).Warn("page operation failed")
		return "", pagekit.NewOpError(op, src, err)
	}
	log.WithFields(logrus.Fields{"output": out, "pages": h.PageCount()}).Debug("page operation completed")
	return out, nil
}

func (e *Engine) normalize(h *document.Handle, src string) (string, error) {
	n := h.PageCount()
	if n == 0 {
		return "", fmt.Errorf("pageops: nothing to normalise: %w", pagekit.ErrEmptySelection)
	}

	first, err := h.PageSize(1)
	if err != nil {
		return "", err
	}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: first.Wd, Ht: first.Ht},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCompression(e.cfg.CompressionLevel != 0)
	meta := h.Metadata()
	pdf.SetTitle(meta["Title"], true)
	pdf.SetAuthor(meta["Author"], true)
	pdf.SetSubject(meta["Subject"], true)
	pdf.SetKeywords(meta["Keywords"], true)
	pdf.SetCreator(meta["Creator"], true)
	pdf.SetProducer(Producer, true)
	pdf.SetCreationDate(e.cfg.Now())

	imp := gofpdi.NewImporter()
	for i := 1; i <= n; i++ {
		size, err := h.PageSize(i)
		if err != nil {
			return "", err
		}
		rot, err := h.Rotation(i)
		if err != nil {
			return "", err
		}
		tpl, err := importTemplate(pdf, imp, src, i)
		if err != nil {
			return "", err
		}
		drawUpright(pdf, imp, tpl, size, rot)
	}
	if pdf.Err() {
		return "", fmt.Errorf("pageops: normalise: %w", pdf.Error())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return "", fmt.Errorf("pageops: normalise: %w", err)
	}

	out, err := e.alloc.Allocate(src, TagNormalized)
	if err != nil {
		return "", err
	}
	err = e.publish(out, n, func(w io.Writer) (int64, error) {
		return buf.WriteTo(w)
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// importTemplate imports page n of file as a gofpdi template. gofpdi panics
// on parse failures; those are returned as errors.
func importTemplate(pdf *gofpdf.Fpdf, imp *gofpdi.Importer, file string, n int) (tpl int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pageops: importing page %d: %v: %w", n, r, pagekit.ErrDocumentUnreadable)
		}
	}()
	return imp.ImportPage(pdf, file, n, "/MediaBox"), nil
}

// drawUpright adds a page showing template tpl, of unrotated size size,
// turned clockwise by rot degrees. The template is centred on the new page
// and rotated about the centre, which maps its box onto the page exactly.
func drawUpright(pdf *gofpdf.Fpdf, imp *gofpdi.Importer, tpl int, size pagekit.SizeType, rot int) {
	pageW, pageH := size.Wd, size.Ht
	if rot == 90 || rot == 270 {
		pageW, pageH = pageH, pageW
	}
	pdf.AddPageFormat("P", gofpdf.SizeType{Wd: pageW, Ht: pageH})

	if rot == 0 {
		imp.UseImportedTemplate(pdf, tpl, 0, 0, size.Wd, size.Ht)
		return
	}

	cx, cy := pageW/2, pageH/2
	pdf.TransformBegin()
	// gofpdf angles are counter-clockwise; /Rotate is clockwise.
	pdf.TransformRotate(float64(-rot), cx, cy)
	imp.UseImportedTemplate(pdf, tpl, cx-size.Wd/2, cy-size.Ht/2, size.Wd, size.Ht)
	pdf.TransformEnd()
}
