package mcp

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/lvillar/pagekit"
	"github.com/lvillar/pagekit/document"
	"github.com/lvillar/pagekit/pageops"
	"github.com/lvillar/pagekit/selection"
	"github.com/lvillar/pagekit/stamp"
)

// RegisterDefaultTools adds every page operation of e to the server.
func RegisterDefaultTools(s *Server, e *pageops.Engine) {
	s.AddTool(pageCountTool(e))
	s.AddTool(deletePagesTool(e))
	s.AddTool(rotatePagesTool(e))
	s.AddTool(reorderPagesTool(e))
	s.AddTool(movePageTool(e))
	s.AddTool(addBlankPageTool(e))
	s.AddTool(duplicatePageTool(e))
	s.AddTool(extractPagesTool(e))
	s.AddTool(splitPagesTool(e))
	s.AddTool(mergePDFsTool(e))
	s.AddTool(addImagePageTool(e))
	s.AddTool(addImageToPageTool(e))
	s.AddTool(compressPDFTool(e))
	s.AddTool(addPageNumbersTool(e))
	s.AddTool(addWatermarkTool(e))
	s.AddTool(normalizeRotationTool(e))
	s.AddTool(pdfInfoTool())
}

// objectSchema builds a JSON schema for an object with the given properties.
func objectSchema(props map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{"type": typ, "description": description}
}

var (
	inputPathProp = prop("string", "Path to the input PDF")
	pagesProp     = map[string]interface{}{
		"type":        []string{"array", "string"},
		"items":       map[string]interface{}{"type": "number"},
		"description": "1-based page numbers, as an array or a range list such as \"1-3,5,8-\"",
	}
)

func textResult(format string, args ...interface{}) ToolResult {
	return ToolResult{Content: []ContentBlock{{Type: "text", Text: fmt.Sprintf(format, args...)}}}
}

func jsonResult(v interface{}) (ToolResult, error) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ToolResult{}, fmt.Errorf("encoding result: %w", err)
	}
	return ToolResult{Content: []ContentBlock{{Type: "text", Text: string(jsonBytes)}}}, nil
}

func stringArg(args map[string]interface{}, key string) (string, error) {
	v, _ := args[key].(string)
	if v == "" {
		return "", fmt.Errorf("missing '%s' argument", key)
	}
	return v, nil
}

// intArg reads a whole number. JSON numbers arrive as float64.
func intArg(args map[string]interface{}, key string) (int, bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	f, ok := raw.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false, fmt.Errorf("'%s' must be an integer: %w", key, pagekit.ErrInvalidParam)
	}
	return int(f), true, nil
}

func requiredIntArg(args map[string]interface{}, key string) (int, error) {
	n, ok, err := intArg(args, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("missing '%s' argument", key)
	}
	return n, nil
}

func floatArg(args map[string]interface{}, key string) float64 {
	f, _ := args[key].(float64)
	return f
}

// pagesArg reads a page list given either as a JSON array or as a range
// string. A range string needs the page count of src. A missing argument
// yields nil.
func pagesArg(e *pageops.Engine, src string, args map[string]interface{}, key string) ([]int, error) {
	switch v := args[key].(type) {
	case nil:
		return nil, nil
	case string:
		n, err := e.PageCount(src)
		if err != nil {
			return nil, err
		}
		return selection.Parse(v, n)
	case []interface{}:
		pages := make([]int, 0, len(v))
		for _, p := range v {
			f, ok := p.(float64)
			if !ok || f != math.Trunc(f) {
				return nil, fmt.Errorf("'%s' entries must be integers: %w", key, pagekit.ErrInvalidParam)
			}
			pages = append(pages, int(f))
		}
		return pages, nil
	default:
		return nil, fmt.Errorf("'%s' must be an array or a range string: %w", key, pagekit.ErrInvalidParam)
	}
}

func pageCountTool(e *pageops.Engine) Tool {
	return Tool{
		Name:        "page_count",
		Description: "Return the number of pages in a PDF file.",
		InputSchema: objectSchema(map[string]interface{}{"inputPath": inputPathProp}, "inputPath"),
		Handler: func(args map[string]interface{}) (ToolResult, error) {
			src, err := stringArg(args, "inputPath")
			if err != nil {
				return ToolResult{}, err
			}
			n, err := e.PageCount(src)
			if err != nil {
				return ToolResult{}, err
			}
			return textResult("%d", n), nil
		},
	}
}

func deletePagesTool(e *pageops.Engine) Tool {
	return Tool{
		Name:        "delete_pages",
		Description: "Delete pages from a PDF. The result is written to a new file; the input is not modified.",
		InputSchema: objectSchema(map[string]interface{}{
			"inputPath": inputPathProp,
			"pages":     pagesProp,
		}, "inputPath", "pages"),
		Handler: func(args map[string]interface{}) (ToolResult, error) {
			src, err := stringArg(args, "inputPath")
			if err != nil {
				return ToolResult{}, err
			}
			pages, err := pagesArg(e, src, args, "pages")
			if err != nil {
				return ToolResult{}, err
			}
			if pages == nil {
				return ToolResult{}, fmt.Errorf("missing 'pages' argument")
			}
			out, err := e.DeletePages(src, pages)
			if err != nil {
				return ToolResult{}, err
			}
			return textResult("Deleted pages %s from %s -> %s", selection.Selection(pages), src, out), nil
		},
	}
}

func rotatePagesTool(e *pageops.Engine) Tool {
	return Tool{
		Name:        "rotate_pages",
		Description: "Rotate pages in a PDF by a multiple of 90 degrees, added to their current rotation.",
		InputSchema: objectSchema(map[string]interface{}{
			"inputPath": inputPathProp,
			"angle":     prop("number", "Rotation in degrees, a multiple of 90; negative values rotate counter-clockwise"),
			"pages":     pagesProp,
		}, "inputPath", "angle"),
		Handler: func(args map[string]interface{}) (ToolResult, error) {
			src, err := stringArg(args, "inputPath")
			if err != nil {
				return ToolResult{}, err
			}
			angle, err := requiredIntArg(args, "angle")
			if err != nil {
				return ToolResult{}, err
			}
			pages, err := pagesArg(e, src, args, "pages")
			if err != nil {
				return ToolResult{}, err
			}

			var out string
			pagesDesc := "all pages"
			if pages == nil {
				out, err = e.RotateAllPages(src, angle)
			} else {
				pagesDesc = "pages " + selection.Selection(pages).String()
				out, err = e.RotatePages(src, pages, angle)
			}
			if err != nil {
				return ToolResult{}, err
			}
			return textResult("Rotated %s by %d degrees in %s -> %s", pagesDesc, angle, src, out), nil
		},
	}
}

func reorderPagesTool(e *pageops.Engine) Tool {
	return Tool{
		Name:        "reorder_pages",
		Description: "Write the pages of a PDF in a new order. Pages left out are dropped; pages listed twice are repeated.",
		InputSchema: objectSchema(map[string]interface{}{
			"inputPath": inputPathProp,
			"order":     pagesProp,
		}, "inputPath", "order"),
		Handler: func(args map[string]interface{}) (ToolResult, error) {
			src, err := stringArg(args, "inputPath")
			if err != nil {
				return ToolResult{}, err
			}
			order, err := pagesArg(e, src, args, "order")
			if err != nil {
				return ToolResult{}, err
			}
			out, err := e.ReorderPages(src, order)
			if err != nil {
				return ToolResult{}, err
			}
			return textResult("Reordered %s -> %s", src, out), nil
		},
	}
}

func movePageTool(e *pageops.Engine) Tool {
	return Tool{
		Name:        "move_page",
		Description: "Move one page of a PDF to a new position.",
		InputSchema: objectSchema(map[string]interface{}{
			"inputPath": inputPathProp,
			"from":      prop("number", "Page to move (1-based)"),
			"to":        prop("number", "Position the page ends up at (1-based)"),
		}, "inputPath", "from", "to"),
		Handler: func(args map[string]interface{}) (ToolResult, error) {
			src, err := stringArg(args, "inputPath")
			if err != nil {
				return ToolResult{}, err
			}
			from, err := requiredIntArg(args, "from")
			if err != nil {
				return ToolResult{}, err
			}
			to, err := requiredIntArg(args, "to")
			if err != nil {
				return ToolResult{}, err
			}
			out, err := e.MovePage(src, from, to)
			if err != nil {
				return ToolResult{}, err
			}
			return textResult("Moved page %d to position %d in %s -> %s", from, to, src, out), nil
		},
	}
}

// afterProp documents the insertion position shared by page insertions.
var afterProp = prop("number", "Insert after this page; 0 inserts at the start, -1 (default) appends")

func afterArg(args map[string]interface{}) (int, error) {
	after, ok, err := intArg(args, "after")
	if err != nil {
		return 0, err
	}
	if !ok {
		return -1, nil
	}
	return after, nil
}

func addBlankPageTool(e *pageops.Engine) Tool {
	return Tool{
		Name:        "add_blank_page",
		Description: "Insert a blank page into a PDF.",
		InputSchema: objectSchema(map[string]interface{}{
			"inputPath": inputPathProp,
			"after":     afterProp,
			"pageSize":  prop("string", "A3, A4 (default), A5, Letter or Legal"),
			"landscape": prop("boolean", "Use the landscape orientation of the page size"),
		}, "inputPath"),
		Handler: func(args map[string]interface{}) (ToolResult, error) {
			src, err := stringArg(args, "inputPath")
			if err != nil {
				return ToolResult{}, err
			}
			after, err := afterArg(args)
			if err != nil {
				return ToolResult{}, err
			}
			size := pagekit.PageSizeA4
			if name, _ := args["pageSize"].(string); name != "" {
				var ok bool
				if size, ok = pagekit.PageSizeByName(name); !ok {
					return ToolResult{}, fmt.Errorf("unknown page size %q: %w", name, pagekit.ErrInvalidParam)
				}
			}
			if landscape, _ := args["landscape"].(bool); landscape {
				size = size.Landscape()
			}
			out, err := e.AddBlankPage(src, after, size)
			if err != nil {
				return ToolResult{}, err
			}
			return textResult("Added a blank page to %s -> %s", src, out), nil
		},
	}
}

func duplicatePageTool(e *pageops.Engine) Tool {
	return Tool{
		Name:        "duplicate_page",
		Description: "Insert a copy of a page directly after it.",
		InputSchema: objectSchema(map[string]interface{}{
			"inputPath": inputPathProp,
			"page":      prop("number", "Page to duplicate (1-based)"),
		}, "inputPath", "page"),
		Handler: func(args map[string]interface{}) (ToolResult, error) {
			src, err := stringArg(args, "inputPath")
			if err != nil {
				return ToolResult{}, err
			}
			page, err := requiredIntArg(args, "page")
			if err != nil {
				return ToolResult{}, err
			}
			out, err := e.DuplicatePage(src, page)
			if err != nil {
				return ToolResult{}, err
			}
			return textResult("Duplicated page %d of %s -> %s", page, src, out), nil
		},
	}
}

func extractPagesTool(e *pageops.Engine) Tool {
	return Tool{
		Name:        "extract_pages",
		Description: "Copy selected pages, in the given order, into a new PDF.",
		InputSchema: objectSchema(map[string]interface{}{
			"inputPath": inputPathProp,
			"pages":     pagesProp,
		}, "inputPath", "pages"),
		Handler: func(args map[string]interface{}) (ToolResult, error) {
			src, err := stringArg(args, "inputPath")
			if err != nil {
				return ToolResult{}, err
			}
			pages, err := pagesArg(e, src, args, "pages")
			if err != nil {
				return ToolResult{}, err
			}
			out, err := e.ExtractPages(src, pages)
			if err != nil {
				return ToolResult{}, err
			}
			return textResult("Extracted pages %s from %s -> %s", selection.Selection(pages), src, out), nil
		},
	}
}

func splitPagesTool(e *pageops.Engine) Tool {
	return Tool{
		Name:        "split_pages",
		Description: "Split a PDF into one single-page file per page.",
		InputSchema: objectSchema(map[string]interface{}{"inputPath": inputPathProp}, "inputPath"),
		Handler: func(args map[string]interface{}) (ToolResult, error) {
			src, err := stringArg(args, "inputPath")
			if err != nil {
				return ToolResult{}, err
			}
			paths, err := e.SplitAllPages(src)
			if err != nil {
				return ToolResult{}, err
			}
			return textResult("Split %s into %d files:\n%s", src, len(paths), strings.Join(paths, "\n")), nil
		},
	}
}

func mergePDFsTool(e *pageops.Engine) Tool {
	return Tool{
		Name:        "merge_pdfs",
		Description: "Merge multiple PDF files into a single PDF.",
		InputSchema: objectSchema(map[string]interface{}{
			"inputPaths": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Paths to PDF files to merge, in order",
			},
			"name": prop("string", "Base name of the merged file (default: merged)"),
		}, "inputPaths"),
		Handler: func(args map[string]interface{}) (ToolResult, error) {
			pathsRaw, _ := args["inputPaths"].([]interface{})
			paths := make([]string, 0, len(pathsRaw))
			for _, p := range pathsRaw {
				path, ok := p.(string)
				if !ok || path == "" {
					return ToolResult{}, fmt.Errorf("'inputPaths' entries must be file paths: %w", pagekit.ErrInvalidParam)
				}
				paths = append(paths, path)
			}
			name, _ := args["name"].(string)
			out, err := e.MergeDocuments(paths, name)
			if err != nil {
				return ToolResult{}, err
			}
			return textResult("Merged %d PDFs into %s", len(paths), out), nil
		},
	}
}

func addImagePageTool(e *pageops.Engine) Tool {
	return Tool{
		Name:        "add_image_page",
		Description: "Insert a page showing an image (PNG, JPEG, GIF, BMP, TIFF or WebP), sized one point per pixel.",
		InputSchema: objectSchema(map[string]interface{}{
			"inputPath": inputPathProp,
			"imagePath": prop("string", "Path to the image file"),
			"after":     afterProp,
		}, "inputPath", "imagePath"),
		Handler: func(args map[string]interface{}) (ToolResult, error) {
			src, err := stringArg(args, "inputPath")
			if err != nil {
				return ToolResult{}, err
			}
			img, err := stringArg(args, "imagePath")
			if err != nil {
				return ToolResult{}, err
			}
			after, err := afterArg(args)
			if err != nil {
				return ToolResult{}, err
			}
			out, err := e.AddImageAsPage(src, img, after)
			if err != nil {
				return ToolResult{}, err
			}
			return textResult("Added image page %s to %s -> %s", img, src, out), nil
		},
	}
}

func addImageToPageTool(e *pageops.Engine) Tool {
	return Tool{
		Name:        "add_image_to_page",
		Description: "Draw an image onto an existing page. Coordinates are in points from the bottom-left corner of the page.",
		InputSchema: objectSchema(map[string]interface{}{
			"inputPath": inputPathProp,
			"page":      prop("number", "Target page (1-based)"),
			"imagePath": prop("string", "Path to the image file"),
			"x":         prop("number", "Left edge in points"),
			"y":         prop("number", "Bottom edge in points"),
			"width":     prop("number", "Width in points (default: image width in pixels)"),
			"height":    prop("number", "Height in points (default: image height in pixels)"),
		}, "inputPath", "page", "imagePath"),
		Handler: func(args map[string]interface{}) (ToolResult, error) {
			src, err := stringArg(args, "inputPath")
			if err != nil {
				return ToolResult{}, err
			}
			page, err := requiredIntArg(args, "page")
			if err != nil {
				return ToolResult{}, err
			}
			img, err := stringArg(args, "imagePath")
			if err != nil {
				return ToolResult{}, err
			}
			rect := stamp.Rect{
				X: floatArg(args, "x"),
				Y: floatArg(args, "y"),
				W: floatArg(args, "width"),
				H: floatArg(args, "height"),
			}
			out, err := e.AddImageToPage(src, page, img, rect)
			if err != nil {
				return ToolResult{}, err
			}
			return textResult("Added %s to page %d of %s -> %s", img, page, src, out), nil
		},
	}
}

func compressPDFTool(e *pageops.Engine) Tool {
	return Tool{
		Name:        "compress_pdf",
		Description: "Recompress the streams of a PDF at the best Flate level.",
		InputSchema: objectSchema(map[string]interface{}{"inputPath": inputPathProp}, "inputPath"),
		Handler: func(args map[string]interface{}) (ToolResult, error) {
			src, err := stringArg(args, "inputPath")
			if err != nil {
				return ToolResult{}, err
			}
			out, err := e.CompressPdf(src)
			if err != nil {
				return ToolResult{}, err
			}
			return textResult("Compressed %s -> %s", src, out), nil
		},
	}
}

func addPageNumbersTool(e *pageops.Engine) Tool {
	return Tool{
		Name:        "add_page_numbers",
		Description: "Add page numbers to a PDF file.",
		InputSchema: objectSchema(map[string]interface{}{
			"inputPath": inputPathProp,
			"format":    prop("string", "Format string, e.g. 'Page %d of %d' (default: 'Page %d of %d')"),
			"position":  prop("string", "Position: bottom-center, bottom-left, bottom-right, top-center, top-left, top-right, center"),
			"fontSize":  prop("number", "Font size in points (default: 10)"),
		}, "inputPath"),
		Handler: func(args map[string]interface{}) (ToolResult, error) {
			src, err := stringArg(args, "inputPath")
			if err != nil {
				return ToolResult{}, err
			}
			style := stamp.PageNumberStyle{FontSize: floatArg(args, "fontSize")}
			style.Format, _ = args["format"].(string)
			if pos, _ := args["position"].(string); pos != "" {
				var ok bool
				if style.Position, ok = stamp.ParsePosition(pos); !ok {
					return ToolResult{}, fmt.Errorf("unknown position %q: %w", pos, pagekit.ErrInvalidParam)
				}
			}
			out, err := e.AddPageNumbers(src, style)
			if err != nil {
				return ToolResult{}, err
			}
			return textResult("Page numbers added to %s -> %s", src, out), nil
		},
	}
}

func addWatermarkTool(e *pageops.Engine) Tool {
	return Tool{
		Name:        "add_watermark",
		Description: "Add a text watermark to a PDF file.",
		InputSchema: objectSchema(map[string]interface{}{
			"inputPath": inputPathProp,
			"text":      prop("string", "Watermark text (e.g. 'CONFIDENTIAL', 'DRAFT')"),
			"fontSize":  prop("number", "Font size in points (default: 60)"),
			"opacity":   prop("number", "Opacity from 0.0 to 1.0 (default: 0.3)"),
			"angle":     prop("number", "Rotation angle in degrees (default: 45)"),
			"pages":     pagesProp,
		}, "inputPath", "text"),
		Handler: func(args map[string]interface{}) (ToolResult, error) {
			src, err := stringArg(args, "inputPath")
			if err != nil {
				return ToolResult{}, err
			}
			text, err := stringArg(args, "text")
			if err != nil {
				return ToolResult{}, err
			}
			pages, err := pagesArg(e, src, args, "pages")
			if err != nil {
				return ToolResult{}, err
			}
			wm := stamp.TextWatermark{
				Text:     text,
				FontSize: floatArg(args, "fontSize"),
				Opacity:  floatArg(args, "opacity"),
				Angle:    floatArg(args, "angle"),
			}
			out, err := e.AddTextWatermark(src, wm, pages)
			if err != nil {
				return ToolResult{}, err
			}
			return textResult("Watermark '%s' added to %s -> %s", text, src, out), nil
		},
	}
}

func normalizeRotationTool(e *pageops.Engine) Tool {
	return Tool{
		Name:        "normalize_rotation",
		Description: "Redraw rotated pages upright so that viewers ignoring /Rotate show them correctly.",
		InputSchema: objectSchema(map[string]interface{}{"inputPath": inputPathProp}, "inputPath"),
		Handler: func(args map[string]interface{}) (ToolResult, error) {
			src, err := stringArg(args, "inputPath")
			if err != nil {
				return ToolResult{}, err
			}
			out, err := e.NormalizeRotation(src)
			if err != nil {
				return ToolResult{}, err
			}
			return textResult("Normalized page rotation of %s -> %s", src, out), nil
		},
	}
}

func pdfInfoTool() Tool {
	return Tool{
		Name:        "pdf_info",
		Description: "Get information about a PDF file: version, metadata and the size and rotation of every page.",
		InputSchema: objectSchema(map[string]interface{}{"path": prop("string", "Path to the PDF file")}, "path"),
		Handler: func(args map[string]interface{}) (ToolResult, error) {
			path, err := stringArg(args, "path")
			if err != nil {
				return ToolResult{}, err
			}
			info, err := documentInfo(path)
			if err != nil {
				return ToolResult{}, err
			}
			return jsonResult(info)
		},
	}
}

// documentInfo summarises the document at path.
func documentInfo(path string) (map[string]interface{}, error) {
	h, err := document.Open(path)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	pages := make([]map[string]interface{}, 0, h.PageCount())
	for i := 1; i <= h.PageCount(); i++ {
		size, err := h.PageSize(i)
		if err != nil {
			return nil, err
		}
		rot, err := h.Rotation(i)
		if err != nil {
			return nil, err
		}
		pages = append(pages, map[string]interface{}{
			"page":   i,
			"width":  size.Wd,
			"height": size.Ht,
			"rotate": rot,
		})
	}
	return map[string]interface{}{
		"version":  h.Version(),
		"numPages": h.PageCount(),
		"metadata": h.Metadata(),
		"pages":    pages,
	}, nil
}
