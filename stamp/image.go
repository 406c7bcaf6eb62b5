// Package stamp renders the content that the page engine adds to documents:
// pages made of a single image, image overlays placed on existing pages, and
// text overlays for page numbers and watermarks.
//
// Everything is drawn with gofpdf into small in-memory PDFs whose pages are
// then imported or overlaid by the document package.
package stamp

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif" // register GIF decoding
	"image/png"

	_ "golang.org/x/image/bmp"  // register BMP decoding
	_ "golang.org/x/image/tiff" // register TIFF decoding
	_ "golang.org/x/image/webp" // register WebP decoding

	"github.com/lvillar/pagekit"
)

// Image is an encoded image ready to embed, with its pixel dimensions.
type Image struct {
	Data   []byte
	Type   string // gofpdf image type: "JPG" or "PNG"
	Width  int
	Height int
}

// DecodeImage identifies raw image bytes. JPEG data is embedded as is; PNG,
// GIF, BMP, TIFF and WebP are normalised to 8-bit PNG.
func DecodeImage(data []byte) (*Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("stamp: %w: %w", pagekit.ErrUnsupportedImageFormat, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("stamp: empty %s image: %w", format, pagekit.ErrUnsupportedImageFormat)
	}

	if format == "jpeg" {
		return &Image{Data: data, Type: "JPG", Width: cfg.Width, Height: cfg.Height}, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("stamp: decoding %s: %w: %w", format, pagekit.ErrUnsupportedImageFormat, err)
	}
	return FromBitmap(img)
}

// FromBitmap encodes an in-memory bitmap as PNG.
func FromBitmap(img image.Image) (*Image, error) {
	if img == nil {
		return nil, fmt.Errorf("stamp: nil bitmap: %w", pagekit.ErrUnsupportedImageFormat)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("stamp: empty bitmap: %w", pagekit.ErrUnsupportedImageFormat)
	}

	// gofpdf reads neither 16-bit nor interlaced PNG; NRGBA encodes as
	// 8-bit non-interlaced.
	nrgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, nrgba); err != nil {
		return nil, fmt.Errorf("stamp: encoding PNG: %w", err)
	}
	return &Image{Data: buf.Bytes(), Type: "PNG", Width: b.Dx(), Height: b.Dy()}, nil
}

// Rect is a placement rectangle in points.
type Rect struct {
	X, Y, W, H float64
}

// Resolve fills a zero width or height from the image's pixel size,
// one pixel per point.
func (r Rect) Resolve(img *Image) Rect {
	if r.W <= 0 {
		r.W = float64(img.Width)
	}
	if r.H <= 0 {
		r.H = float64(img.Height)
	}
	return r
}

// FlipY converts a rectangle with a top-left origin (screen space) to one
// with a bottom-left origin (document space) on a page of the given height.
func (r Rect) FlipY(pageHeight float64) Rect {
	r.Y = pageHeight - r.Y - r.H
	return r
}
