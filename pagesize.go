package pagekit

// SizeType is a page size in points (1/72 inch).
type SizeType struct {
	Wd, Ht float64
}

// Common page sizes, portrait orientation.
var (
	PageSizeA3     = SizeType{Wd: 841.89, Ht: 1190.55}
	PageSizeA4     = SizeType{Wd: 595.28, Ht: 841.89}
	PageSizeA5     = SizeType{Wd: 420.94, Ht: 595.28}
	PageSizeLetter = SizeType{Wd: 612, Ht: 792}
	PageSizeLegal  = SizeType{Wd: 612, Ht: 1008}
)

// Landscape returns the size with width and height swapped so that the
// longer edge is horizontal.
func (s SizeType) Landscape() SizeType {
	if s.Wd >= s.Ht {
		return s
	}
	return SizeType{Wd: s.Ht, Ht: s.Wd}
}

// Valid reports whether both dimensions are positive.
func (s SizeType) Valid() bool {
	return s.Wd > 0 && s.Ht > 0
}

// PageSizeByName returns a preset size for names such as "A4" or "Letter".
func PageSizeByName(name string) (SizeType, bool) {
	switch name {
	case "A3", "a3":
		return PageSizeA3, true
	case "A4", "a4":
		return PageSizeA4, true
	case "A5", "a5":
		return PageSizeA5, true
	case "Letter", "letter", "LETTER":
		return PageSizeLetter, true
	case "Legal", "legal", "LEGAL":
		return PageSizeLegal, true
	}
	return SizeType{}, false
}
