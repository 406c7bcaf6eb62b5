package reader

import (
	"fmt"
)

// Rectangle represents a PDF rectangle (typically [llx lly urx ury]).
type Rectangle struct {
	LLX, LLY, URX, URY float64
}

// Width returns the width of the rectangle.
func (r Rectangle) Width() float64 { return r.URX - r.LLX }

// Height returns the height of the rectangle.
func (r Rectangle) Height() float64 { return r.URY - r.LLY }

// inheritable lists the page attributes a /Pages node passes to its kids.
var inheritable = []Name{"MediaBox", "CropBox", "Resources", "Rotate"}

// Page represents a single page in a PDF document.
type Page struct {
	Number    int
	Ref       Reference // zero when the page dictionary is not indirect
	MediaBox  Rectangle
	CropBox   *Rectangle
	Resources Dict
	Contents  []Stream
	Rotate    int // normalised to 0, 90, 180 or 270

	dict      Dict // page dictionary as stored
	inherited Dict // inheritable attributes in effect, unresolved
	doc       *Document
}

// Dict returns the page dictionary as stored in the file.
func (p *Page) Dict() Dict {
	return p.dict
}

// Attr returns an inheritable attribute in effect for this page, taken from
// the page itself or the nearest ancestor. The value is not resolved.
func (p *Page) Attr(key Name) (Object, bool) {
	v, ok := p.inherited[key]
	return v, ok
}

// ContentStream returns the decompressed content stream data for this page.
// If the page has multiple content streams, they are concatenated.
func (p *Page) ContentStream() ([]byte, error) {
	var result []byte
	for _, s := range p.Contents {
		decoded, err := decodeStream(s)
		if err != nil {
			return nil, fmt.Errorf("reader: decoding page %d content: %w", p.Number, err)
		}
		result = append(result, decoded...)
		result = append(result, '\n')
	}
	return result, nil
}

// NormalizeRotation maps any multiple of 90 to the range [0, 360).
// Values that are not multiples of 90 are treated as 0.
func NormalizeRotation(deg int) int {
	if deg%90 != 0 {
		return 0
	}
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg
}

// parseRectangle parses a PDF rectangle array [llx lly urx ury].
// Corners are normalised so that LLX <= URX and LLY <= URY.
func parseRectangle(obj Object) (Rectangle, error) {
	arr, ok := obj.(Array)
	if !ok || len(arr) != 4 {
		return Rectangle{}, fmt.Errorf("reader: rectangle must be a 4-element array")
	}

	vals := make([]float64, 4)
	for i, v := range arr {
		n, ok := Number(v)
		if !ok {
			return Rectangle{}, fmt.Errorf("reader: rectangle element %d is not numeric", i)
		}
		vals[i] = n
	}
	return Rectangle{
		LLX: min(vals[0], vals[2]), LLY: min(vals[1], vals[3]),
		URX: max(vals[0], vals[2]), URY: max(vals[1], vals[3]),
	}, nil
}

// Catalog returns the resolved document catalog.
func (d *Document) Catalog() (Dict, error) {
	rootObj, err := d.Resolve(d.trailer["Root"])
	if err != nil {
		return nil, fmt.Errorf("reader: resolving root: %w", err)
	}
	catalog, ok := rootObj.(Dict)
	if !ok {
		return nil, fmt.Errorf("reader: /Root is not a dictionary")
	}
	return catalog, nil
}

// buildPageList traverses the page tree and returns a flat list of pages.
func (d *Document) buildPageList() error {
	catalog, err := d.Catalog()
	if err != nil {
		return err
	}

	root := catalog["Pages"]
	pagesObj, err := d.Resolve(root)
	if err != nil {
		return fmt.Errorf("reader: resolving /Pages: %w", err)
	}
	pagesDict, ok := pagesObj.(Dict)
	if !ok {
		return fmt.Errorf("reader: /Pages is not a dictionary")
	}

	d.pages = nil
	visited := make(map[Reference]bool)
	if ref, ok := root.(Reference); ok {
		visited[ref] = true
	}
	return d.traversePageTree(pagesDict, Reference{}, nil, visited)
}

// traversePageTree recursively traverses the page tree collecting leaf pages.
func (d *Document) traversePageTree(node Dict, ref Reference, inherited Dict, visited map[Reference]bool) error {
	merged := inherited.Clone()
	for _, key := range inheritable {
		if v, ok := node[key]; ok {
			merged[key] = v
		}
	}

	// Some producers omit /Type on leaves; a node without /Kids is a page.
	nodeType := node.GetName("Type")
	if nodeType == "Page" || (nodeType == "" && node["Kids"] == nil) {
		page, err := d.newPage(node, ref, merged)
		if err != nil {
			return err
		}
		d.pages = append(d.pages, page)
		return nil
	}

	kidsObj, err := d.Resolve(node["Kids"])
	if err != nil {
		return fmt.Errorf("reader: resolving /Kids: %w", err)
	}
	kids, _ := kidsObj.(Array)

	for _, kid := range kids {
		var kidRef Reference
		if r, ok := kid.(Reference); ok {
			if visited[r] {
				return fmt.Errorf("reader: page tree cycle at %s", r)
			}
			visited[r] = true
			kidRef = r
		}
		kidObj, err := d.Resolve(kid)
		if err != nil {
			return fmt.Errorf("reader: resolving page tree kid: %w", err)
		}
		kidDict, ok := kidObj.(Dict)
		if !ok {
			continue
		}
		if err := d.traversePageTree(kidDict, kidRef, merged, visited); err != nil {
			return err
		}
	}

	return nil
}

func (d *Document) newPage(node Dict, ref Reference, attrs Dict) (*Page, error) {
	page := &Page{
		Number:    len(d.pages) + 1,
		Ref:       ref,
		dict:      node,
		inherited: attrs,
		doc:       d,
	}

	if mb, err := d.Resolve(attrs["MediaBox"]); err == nil {
		if rect, err := parseRectangle(mb); err == nil {
			page.MediaBox = rect
		}
	}
	if cb, err := d.Resolve(attrs["CropBox"]); err == nil {
		if rect, err := parseRectangle(cb); err == nil {
			page.CropBox = &rect
		}
	}
	if res, err := d.Resolve(attrs["Resources"]); err == nil {
		if resDict, ok := res.(Dict); ok {
			page.Resources = resDict
		}
	}
	if rot, err := d.Resolve(attrs["Rotate"]); err == nil {
		if n, ok := rot.(Integer); ok {
			page.Rotate = NormalizeRotation(int(n))
		}
	}

	contents, err := d.Resolve(node["Contents"])
	if err != nil {
		return nil, fmt.Errorf("reader: page %d contents: %w", page.Number, err)
	}
	switch c := contents.(type) {
	case Stream:
		page.Contents = []Stream{c}
	case Array:
		for _, item := range c {
			streamObj, err := d.Resolve(item)
			if err != nil {
				continue
			}
			if s, ok := streamObj.(Stream); ok {
				page.Contents = append(page.Contents, s)
			}
		}
	}
	return page, nil
}
