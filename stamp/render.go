package stamp

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/lvillar/pagekit"
)

// newPDF returns a gofpdf document in points with page breaks disabled.
func newPDF(first pagekit.SizeType) *gofpdf.Fpdf {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: first.Wd, Ht: first.Ht},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	return pdf
}

func output(pdf *gofpdf.Fpdf, what string) ([]byte, error) {
	if pdf.Err() {
		return nil, fmt.Errorf("stamp: %s: %w", what, pdf.Error())
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("stamp: %s: %w", what, err)
	}
	return buf.Bytes(), nil
}

func placeImage(pdf *gofpdf.Fpdf, img *Image, x, y, w, h float64) {
	opts := gofpdf.ImageOptions{ImageType: img.Type}
	name := fmt.Sprintf("img%dx%d_%d", img.Width, img.Height, len(img.Data))
	if info := pdf.GetImageInfo(name); info == nil {
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.Data))
	}
	pdf.ImageOptions(name, x, y, w, h, false, opts, 0, "")
}

// ImagePage renders a one-page PDF sized to the image, one pixel per point,
// with the image filling the page.
func ImagePage(img *Image) ([]byte, error) {
	size := pagekit.SizeType{Wd: float64(img.Width), Ht: float64(img.Height)}
	pdf := newPDF(size)
	pdf.AddPageFormat("P", gofpdf.SizeType{Wd: size.Wd, Ht: size.Ht})
	placeImage(pdf, img, 0, 0, size.Wd, size.Ht)
	return output(pdf, "image page")
}

// ImageOverlay renders a transparent page of the given size with img drawn
// at rect. rect is in document space: its origin is the bottom-left corner
// of the page.
func ImageOverlay(img *Image, page pagekit.SizeType, rect Rect) ([]byte, error) {
	rect = rect.Resolve(img)
	pdf := newPDF(page)
	pdf.AddPageFormat("P", gofpdf.SizeType{Wd: page.Wd, Ht: page.Ht})
	// gofpdf measures y from the top edge.
	placeImage(pdf, img, rect.X, page.Ht-rect.Y-rect.H, rect.W, rect.H)
	return output(pdf, "image overlay")
}

// Position specifies where to place an element on a page.
type Position int

const (
	BottomCenter Position = iota
	Center
	TopLeft
	TopCenter
	TopRight
	BottomLeft
	BottomRight
)

var positionNames = map[string]Position{
	"bottom-center": BottomCenter,
	"center":        Center,
	"top-left":      TopLeft,
	"top-center":    TopCenter,
	"top-right":     TopRight,
	"bottom-left":   BottomLeft,
	"bottom-right":  BottomRight,
}

// ParsePosition maps names such as "top-right" to a Position.
func ParsePosition(s string) (Position, bool) {
	p, ok := positionNames[strings.ToLower(strings.TrimSpace(s))]
	return p, ok
}

// RGBColor represents an RGB color value.
type RGBColor struct {
	R, G, B int
}

// PageNumberStyle defines the appearance and position of page numbers.
type PageNumberStyle struct {
	Format   string   // fmt format string, e.g. "Page %d of %d" (receives pageNum, totalPages)
	Position Position // where to place the number (default: BottomCenter)
	FontSize float64  // font size in points (default: 10)
	Color    RGBColor // text color (default: black)
	Margin   float64  // margin from page edge in points (default: 30)
}

func (s *PageNumberStyle) defaults() {
	if s.Format == "" {
		s.Format = "Page %d of %d"
	}
	if s.FontSize <= 0 {
		s.FontSize = 10
	}
	if s.Margin <= 0 {
		s.Margin = 30
	}
}

// Label formats the number of page n out of total.
func (s PageNumberStyle) Label(n, total int) string {
	s.defaults()
	switch strings.Count(s.Format, "%d") {
	case 0:
		return s.Format
	case 1:
		return fmt.Sprintf(s.Format, n)
	default:
		return fmt.Sprintf(s.Format, n, total)
	}
}

// PageNumberOverlay renders one overlay page per entry of sizes, each
// carrying its page number. total is the page count the numbers refer to.
func PageNumberOverlay(sizes []pagekit.SizeType, total int, style PageNumberStyle) ([]byte, error) {
	if len(sizes) == 0 {
		return nil, fmt.Errorf("stamp: page numbers: %w", pagekit.ErrEmptySelection)
	}
	style.defaults()

	pdf := newPDF(sizes[0])
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for i, size := range sizes {
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: size.Wd, Ht: size.Ht})
		pdf.SetFont("Helvetica", "", style.FontSize)
		pdf.SetTextColor(style.Color.R, style.Color.G, style.Color.B)

		text := tr(style.Label(i+1, total))
		textW := pdf.GetStringWidth(text)
		x, y := calculatePosition(style.Position, size.Wd, size.Ht, textW, style.FontSize, style.Margin)
		pdf.Text(x, y, text)
	}
	return output(pdf, "page numbers")
}

// TextWatermark defines a text-based watermark.
type TextWatermark struct {
	Text     string   // watermark text
	FontSize float64  // font size in points (default: 60)
	Color    RGBColor // text color (default: light gray)
	Opacity  float64  // 0.0 to 1.0 (default: 0.3)
	Angle    float64  // rotation angle in degrees (default: 45)
}

func (wm *TextWatermark) defaults() {
	if wm.FontSize <= 0 {
		wm.FontSize = 60
	}
	if wm.Opacity <= 0 || wm.Opacity > 1 {
		wm.Opacity = 0.3
	}
	if wm.Angle == 0 {
		wm.Angle = 45
	}
	if wm.Color == (RGBColor{}) {
		wm.Color = RGBColor{200, 200, 200}
	}
}

// WatermarkOverlay renders one overlay page per entry of sizes with the
// watermark text rotated about the page centre.
func WatermarkOverlay(sizes []pagekit.SizeType, wm TextWatermark) ([]byte, error) {
	if strings.TrimSpace(wm.Text) == "" {
		return nil, fmt.Errorf("stamp: empty watermark text: %w", pagekit.ErrInvalidParam)
	}
	if len(sizes) == 0 {
		return nil, fmt.Errorf("stamp: watermark: %w", pagekit.ErrEmptySelection)
	}
	wm.defaults()

	pdf := newPDF(sizes[0])
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	text := tr(wm.Text)
	for _, size := range sizes {
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: size.Wd, Ht: size.Ht})
		drawTextWatermark(pdf, text, wm, size.Wd, size.Ht)
	}
	return output(pdf, "watermark")
}

// drawTextWatermark renders the watermark text centered on the current page.
func drawTextWatermark(pdf *gofpdf.Fpdf, text string, wm TextWatermark, pageW, pageH float64) {
	pdf.SetFont("Helvetica", "B", wm.FontSize)
	pdf.SetTextColor(wm.Color.R, wm.Color.G, wm.Color.B)
	pdf.SetAlpha(wm.Opacity, "Normal")

	textW := pdf.GetStringWidth(text)
	cx := pageW / 2
	cy := pageH / 2

	pdf.TransformBegin()
	pdf.TransformRotate(wm.Angle, cx, cy)
	pdf.Text(cx-textW/2, cy+wm.FontSize/3, text)
	pdf.TransformEnd()

	pdf.SetAlpha(1.0, "Normal")
}

// calculatePosition returns x, y coordinates for text placement, with y the
// baseline measured from the top edge.
func calculatePosition(pos Position, pageW, pageH, textW, textH, margin float64) (x, y float64) {
	switch pos {
	case TopLeft:
		return margin, margin + textH
	case TopCenter:
		return (pageW - textW) / 2, margin + textH
	case TopRight:
		return pageW - textW - margin, margin + textH
	case BottomLeft:
		return margin, pageH - margin
	case BottomRight:
		return pageW - textW - margin, pageH - margin
	case Center:
		return (pageW - textW) / 2, pageH / 2
	default:
		return (pageW - textW) / 2, pageH - margin
	}
}
