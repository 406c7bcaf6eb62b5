package stamp_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/lvillar/pagekit"
	"github.com/lvillar/pagekit/reader"
	"github.com/lvillar/pagekit/stamp"
)

func testBitmap(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 128, A: 255})
		}
	}
	return img
}

func readPDF(t *testing.T, data []byte) *reader.Document {
	t.Helper()
	doc, err := reader.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reading rendered PDF: %v", err)
	}
	return doc
}

func TestDecodeImageFormats(t *testing.T) {
	src := testBitmap(12, 8)
	encoders := map[string]func(*bytes.Buffer) error{
		"png":  func(b *bytes.Buffer) error { return png.Encode(b, src) },
		"jpeg": func(b *bytes.Buffer) error { return jpeg.Encode(b, src, nil) },
		"gif":  func(b *bytes.Buffer) error { return gif.Encode(b, src, nil) },
		"bmp":  func(b *bytes.Buffer) error { return bmp.Encode(b, src) },
		"tiff": func(b *bytes.Buffer) error { return tiff.Encode(b, src, nil) },
	}
	for name, enc := range encoders {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := enc(&buf); err != nil {
				t.Fatalf("encoding: %v", err)
			}
			img, err := stamp.DecodeImage(buf.Bytes())
			if err != nil {
				t.Fatalf("DecodeImage: %v", err)
			}
			if img.Width != 12 || img.Height != 8 {
				t.Errorf("size = %dx%d, want 12x8", img.Width, img.Height)
			}
			wantType := "PNG"
			if name == "jpeg" {
				wantType = "JPG"
			}
			if img.Type != wantType {
				t.Errorf("Type = %s, want %s", img.Type, wantType)
			}
		})
	}
}

func TestDecodeImageRejectsGarbage(t *testing.T) {
	_, err := stamp.DecodeImage([]byte("definitely not an image"))
	if !errors.Is(err, pagekit.ErrUnsupportedImageFormat) {
		t.Errorf("expected ErrUnsupportedImageFormat, got %v", err)
	}
}

func TestFromBitmapNil(t *testing.T) {
	if _, err := stamp.FromBitmap(nil); !errors.Is(err, pagekit.ErrUnsupportedImageFormat) {
		t.Errorf("expected ErrUnsupportedImageFormat, got %v", err)
	}
}

func TestRect(t *testing.T) {
	img := &stamp.Image{Width: 64, Height: 32}

	r := stamp.Rect{X: 5, Y: 6, W: 0, H: 10}.Resolve(img)
	if r.W != 64 || r.H != 10 {
		t.Errorf("Resolve = %+v, want W=64 H=10", r)
	}

	flipped := stamp.Rect{X: 10, Y: 20, W: 50, H: 30}.FlipY(800)
	if flipped.Y != 800-20-30 {
		t.Errorf("FlipY: Y = %g, want %g", flipped.Y, 800.0-20-30)
	}
	if flipped.X != 10 || flipped.W != 50 || flipped.H != 30 {
		t.Errorf("FlipY changed other fields: %+v", flipped)
	}
}

func TestImagePage(t *testing.T) {
	img, err := stamp.FromBitmap(testBitmap(120, 80))
	if err != nil {
		t.Fatalf("FromBitmap: %v", err)
	}
	data, err := stamp.ImagePage(img)
	if err != nil {
		t.Fatalf("ImagePage: %v", err)
	}

	doc := readPDF(t, data)
	if doc.NumPages() != 1 {
		t.Fatalf("expected 1 page, got %d", doc.NumPages())
	}
	page, _ := doc.Page(1)
	if page.MediaBox.Width() != 120 || page.MediaBox.Height() != 80 {
		t.Errorf("MediaBox = %+v, want 120x80", page.MediaBox)
	}
	content, _ := page.ContentStream()
	if !bytes.Contains(content, []byte("Do")) {
		t.Error("image not painted")
	}
}

func TestImageOverlay(t *testing.T) {
	img, _ := stamp.FromBitmap(testBitmap(4, 4))
	data, err := stamp.ImageOverlay(img, pagekit.PageSizeLetter, stamp.Rect{X: 72, Y: 72})
	if err != nil {
		t.Fatalf("ImageOverlay: %v", err)
	}
	page, _ := readPDF(t, data).Page(1)
	if page.MediaBox.Width() != 612 || page.MediaBox.Height() != 792 {
		t.Errorf("overlay MediaBox = %+v, want Letter", page.MediaBox)
	}
}

func TestPageNumberOverlay(t *testing.T) {
	sizes := []pagekit.SizeType{pagekit.PageSizeA4, pagekit.PageSizeLetter, pagekit.PageSizeA5}
	data, err := stamp.PageNumberOverlay(sizes, 3, stamp.PageNumberStyle{Position: stamp.TopRight})
	if err != nil {
		t.Fatalf("PageNumberOverlay: %v", err)
	}
	doc := readPDF(t, data)
	if doc.NumPages() != 3 {
		t.Fatalf("expected 3 pages, got %d", doc.NumPages())
	}
	page, _ := doc.Page(2)
	if page.MediaBox.Width() != 612 {
		t.Errorf("page 2 width = %g, want 612", page.MediaBox.Width())
	}
	content, _ := page.ContentStream()
	if !bytes.Contains(content, []byte("Page 2 of 3")) {
		t.Errorf("page number missing from %q", content)
	}
}

func TestPageNumberLabel(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"", "Page 4 of 9"},
		{"%d", "4"},
		{"- %d / %d -", "- 4 / 9 -"},
		{"Draft", "Draft"},
	}
	for _, tt := range tests {
		if got := (stamp.PageNumberStyle{Format: tt.format}).Label(4, 9); got != tt.want {
			t.Errorf("Label(%q) = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestWatermarkOverlay(t *testing.T) {
	data, err := stamp.WatermarkOverlay([]pagekit.SizeType{pagekit.PageSizeA4}, stamp.TextWatermark{Text: "CONFIDENTIAL"})
	if err != nil {
		t.Fatalf("WatermarkOverlay: %v", err)
	}
	page, _ := readPDF(t, data).Page(1)
	content, _ := page.ContentStream()
	if !bytes.Contains(content, []byte("CONFIDENTIAL")) {
		t.Error("watermark text missing")
	}

	if _, err := stamp.WatermarkOverlay([]pagekit.SizeType{pagekit.PageSizeA4}, stamp.TextWatermark{}); !errors.Is(err, pagekit.ErrInvalidParam) {
		t.Errorf("empty text: expected ErrInvalidParam, got %v", err)
	}
}

func TestParsePosition(t *testing.T) {
	if p, ok := stamp.ParsePosition(" Top-Right "); !ok || p != stamp.TopRight {
		t.Errorf("ParsePosition = %v, %v", p, ok)
	}
	if _, ok := stamp.ParsePosition("middle"); ok {
		t.Error("unknown position accepted")
	}
}
