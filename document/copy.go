package document

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/lvillar/pagekit/reader"
	"github.com/lvillar/pagekit/writer"
)

// Keys dropped from copied page dictionaries. /Parent is set by the
// destination; the others only make sense inside the source's tree.
var droppedPageKeys = map[reader.Name]bool{
	"Parent":        true,
	"Type":          true,
	"StructParents": true,
}

// ImportPage copies the object graph of page index into dst and returns the
// new page dictionary without placing it in the page list. Inherited
// attributes are materialised and the rotation override, if any, applied.
// Objects shared between pages are copied once per destination.
func (h *Handle) ImportPage(dst *writer.Builder, index int) (reader.Dict, error) {
	page, err := h.page(index)
	if err != nil {
		return nil, err
	}

	out := reader.Dict{}
	for k, v := range page.Dict() {
		if droppedPageKeys[k] {
			continue
		}
		c, err := h.copyObject(dst, v)
		if err != nil {
			return nil, fmt.Errorf("document: page %d /%s: %w", index, k, err)
		}
		out[k] = c
	}

	for _, key := range []reader.Name{"MediaBox", "CropBox", "Resources"} {
		if _, own := out[key]; own {
			continue
		}
		if v, ok := page.Attr(key); ok {
			c, err := h.copyObject(dst, v)
			if err != nil {
				return nil, fmt.Errorf("document: page %d inherited /%s: %w", index, key, err)
			}
			out[key] = c
		}
	}
	if page.MediaBox.Width() <= 0 || page.MediaBox.Height() <= 0 {
		out["MediaBox"] = reader.Array{
			reader.Integer(0), reader.Integer(0),
			reader.Real(h.defaultSize.Wd), reader.Real(h.defaultSize.Ht),
		}
	}
	if _, ok := out["Resources"]; !ok {
		out["Resources"] = reader.Dict{}
	}

	rotate := page.Rotate
	if r, ok := h.rotations[index]; ok {
		rotate = r
	}
	if rotate != 0 {
		out["Rotate"] = reader.Integer(rotate)
	} else {
		delete(out, "Rotate")
	}
	return out, nil
}

// copyObject deep-copies obj into dst, translating references through the
// per-destination reference map.
func (h *Handle) copyObject(dst *writer.Builder, obj reader.Object) (reader.Object, error) {
	switch v := obj.(type) {
	case reader.Reference:
		return h.copyReference(dst, v)
	case reader.Dict:
		out := make(reader.Dict, len(v))
		for k, item := range v {
			c, err := h.copyObject(dst, item)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	case reader.Array:
		out := make(reader.Array, len(v))
		for i, item := range v {
			c, err := h.copyObject(dst, item)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case reader.Stream:
		d, err := h.copyObject(dst, v.Dict)
		if err != nil {
			return nil, err
		}
		data := make([]byte, len(v.Data))
		copy(data, v.Data)
		return reader.Stream{Dict: d.(reader.Dict), Data: data}, nil
	default:
		return reader.DeepCopy(obj), nil
	}
}

func (h *Handle) copyReference(dst *writer.Builder, ref reader.Reference) (reader.Object, error) {
	if h.pageTree[ref] {
		return reader.Null{}, nil
	}

	refs := h.copies[dst]
	if refs == nil {
		refs = make(map[reader.Reference]reader.Reference)
		h.copies[dst] = refs
	}
	if mapped, ok := refs[ref]; ok {
		return mapped, nil
	}

	// Reserve first so that cycles resolve to the new number.
	newRef := dst.Reserve()
	refs[ref] = newRef

	obj, err := h.doc.ResolveReference(ref)
	if err != nil {
		return nil, err
	}
	c, err := h.copyObject(dst, obj)
	if err != nil {
		return nil, err
	}
	if err := dst.Set(newRef, c); err != nil {
		return nil, err
	}
	return newRef, nil
}

// Overlay paints page overlayIndex of overlay on top of target, a page
// dictionary already imported into dst. The overlay page becomes a form
// XObject; the existing content is wrapped in q/Q so that its graphics
// state cannot leak into the overlay.
func (h *Handle) Overlay(dst *writer.Builder, target reader.Dict, overlayIndex int) error {
	page, err := h.page(overlayIndex)
	if err != nil {
		return err
	}

	content, err := page.ContentStream()
	if err != nil {
		return fmt.Errorf("document: overlay content: %w", err)
	}
	var resources reader.Object = reader.Dict{}
	if v, ok := page.Attr("Resources"); ok {
		if resources, err = h.copyObject(dst, v); err != nil {
			return fmt.Errorf("document: overlay resources: %w", err)
		}
	}

	mb := page.MediaBox
	form := dst.Add(reader.Stream{
		Dict: reader.Dict{
			"Type":      reader.Name("XObject"),
			"Subtype":   reader.Name("Form"),
			"BBox":      reader.Array{reader.Real(mb.LLX), reader.Real(mb.LLY), reader.Real(mb.URX), reader.Real(mb.URY)},
			"Resources": resources,
		},
		Data: bytes.TrimRight(content, "\n"),
	})

	res, err := directDict(dst, target["Resources"])
	if err != nil {
		return err
	}
	xobjects, err := directDict(dst, res["XObject"])
	if err != nil {
		return err
	}
	name := freeName(xobjects, "Stamp")
	xobjects[name] = form
	res["XObject"] = xobjects
	target["Resources"] = res

	// Align the overlay's origin with the target's MediaBox origin.
	var llx, lly float64
	if box, ok := target["MediaBox"].(reader.Array); ok && len(box) == 4 {
		llx, _ = reader.Number(box[0])
		lly, _ = reader.Number(box[1])
	}

	existing, err := contentRefs(dst, target["Contents"])
	if err != nil {
		return err
	}
	open := dst.Add(reader.Stream{Dict: reader.Dict{}, Data: []byte("q")})
	paint := dst.Add(reader.Stream{
		Dict: reader.Dict{},
		Data: []byte(fmt.Sprintf("\nQ q 1 0 0 1 %s %s cm /%s Do Q", fmtNum(llx-mb.LLX), fmtNum(lly-mb.LLY), name)),
	})
	contents := reader.Array{open}
	contents = append(contents, existing...)
	contents = append(contents, paint)
	target["Contents"] = contents
	return nil
}

// directDict returns a private, direct copy of a dictionary held directly or
// by reference in dst, so edits do not affect other pages sharing it.
func directDict(dst *writer.Builder, obj reader.Object) (reader.Dict, error) {
	switch v := obj.(type) {
	case nil, reader.Null:
		return reader.Dict{}, nil
	case reader.Dict:
		return v.Clone(), nil
	case reader.Reference:
		stored, ok := dst.Get(v)
		if !ok {
			return reader.Dict{}, nil
		}
		d, ok := stored.(reader.Dict)
		if !ok {
			return nil, fmt.Errorf("document: %s is %T, not a dictionary", v, stored)
		}
		return d.Clone(), nil
	}
	return nil, fmt.Errorf("document: expected dictionary, got %T", obj)
}

// contentRefs flattens a page /Contents value into a list of stream objects.
func contentRefs(dst *writer.Builder, obj reader.Object) (reader.Array, error) {
	switch v := obj.(type) {
	case nil, reader.Null:
		return nil, nil
	case reader.Array:
		return append(reader.Array{}, v...), nil
	case reader.Stream:
		return reader.Array{dst.Add(v)}, nil
	case reader.Reference:
		if stored, ok := dst.Get(v); ok {
			if arr, ok := stored.(reader.Array); ok {
				return append(reader.Array{}, arr...), nil
			}
		}
		return reader.Array{v}, nil
	}
	return nil, fmt.Errorf("document: unexpected /Contents %T", obj)
}

func freeName(d reader.Dict, prefix string) reader.Name {
	for i := 1; ; i++ {
		name := reader.Name(fmt.Sprintf("%s%d", prefix, i))
		if _, taken := d[name]; !taken {
			return name
		}
	}
}

func fmtNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
