// Package pageops restructures existing PDF documents: it deletes, rotates,
// reorders, moves, duplicates, extracts, splits and merges pages, inserts
// blank and image pages, stamps images and text onto pages and recompresses
// streams.
//
// Every operation reads its source through the document package, builds a
// new document with the writer package and publishes it under a fresh name
// chosen by the output package. The source file is never modified, and a
// failed operation leaves no output file behind.
package pageops

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lvillar/pagekit"
	"github.com/lvillar/pagekit/document"
	"github.com/lvillar/pagekit/output"
	"github.com/lvillar/pagekit/validate"
	"github.com/lvillar/pagekit/writer"
)

// Output tags, embedded in output file names.
const (
	TagDeleted     = "deleted"
	TagRotated     = "rotated"
	TagReordered   = "reordered"
	TagAdded       = "added"
	TagDuplicated  = "duplicated"
	TagExtracted   = "extracted"
	TagMerged      = "merged"
	TagWithImage   = "with_image"
	TagImageAdded  = "image_added"
	TagCompressed  = "compressed"
	TagNumbered    = "numbered"
	TagWatermarked = "watermarked"
	TagNormalized  = "normalized"
)

// SplitTag returns the tag of the single-page document for page i.
func SplitTag(i int) string {
	return fmt.Sprintf("page_%d", i)
}

// Producer is written to the /Producer entry of every output.
const Producer = "pagekit"

// carriedInfo lists the source /Info entries copied to outputs.
var carriedInfo = []string{"Title", "Author", "Subject", "Keywords", "Creator"}

// Engine performs page operations. It keeps no state between calls and is
// safe for concurrent use on different sources.
type Engine struct {
	cfg   pagekit.Config
	alloc output.Allocator
	log   logrus.FieldLogger
}

// New returns an Engine configured by opts.
func New(opts ...pagekit.Option) *Engine {
	cfg := pagekit.NewConfig(opts...)
	return &Engine{
		cfg:   cfg,
		alloc: output.Allocator{Dirs: cfg.Dirs, Now: cfg.Now},
		log:   cfg.Logger,
	}
}

// PageCount returns the number of pages of the document at path.
func (e *Engine) PageCount(path string) (int, error) {
	h, err := e.open(path, document.ReadOnly)
	if err != nil {
		return 0, pagekit.NewOpError("PageCount", path, err)
	}
	defer h.Close()
	return h.PageCount(), nil
}

func (e *Engine) open(path string, mode document.Mode) (*document.Handle, error) {
	opt := document.WithDefaultPageSize(e.cfg.DefaultPageSize)
	if mode == document.ReadWrite {
		return document.OpenForUpdate(path, opt)
	}
	return document.Open(path, opt)
}

func (e *Engine) newBuilder(opts ...writer.Option) *writer.Builder {
	base := []writer.Option{writer.WithCompression(e.cfg.CompressionLevel)}
	return writer.New(append(base, opts...)...)
}

// carryInfo copies descriptive metadata from h into dst and stamps the
// producer and modification date.
func (e *Engine) carryInfo(h *document.Handle, dst *writer.Builder) {
	if h != nil {
		meta := h.Metadata()
		for _, key := range carriedInfo {
			dst.SetInfo(key, meta[key])
		}
	}
	dst.SetInfo("Producer", Producer)
	dst.SetDate("ModDate", e.cfg.Now())
}

// fillFunc copies pages from an open source into a destination builder.
type fillFunc func(h *document.Handle, dst *writer.Builder) error

// transform runs one single-output operation: it opens src, lets fill build
// the new document and publishes it under a name tagged with tag.
func (e *Engine) transform(op, src, tag string, mode document.Mode, fill fillFunc, opts ...writer.Option) (string, error) {
	start := time.Now()
	log := e.log.WithFields(logrus.Fields{"op": op, "source": src})

	out, pages, err := e.build(src, tag, mode, fill, opts...)
	if err != nil {
		log.WithError(err).Warn("page operation failed")
		return "", pagekit.NewOpError(op, src, err)
	}

	log.WithFields(logrus.Fields{
		"output":  out,
		"pages":   pages,
		"elapsed": time.Since(start),
	}).Debug("page operation completed")
	return out, nil
}

func (e *Engine) build(src, tag string, mode document.Mode, fill fillFunc, opts ...writer.Option) (string, int, error) {
	h, err := e.open(src, mode)
	if err != nil {
		return "", 0, err
	}
	defer h.Close()

	dst := e.newBuilder(opts...)
	e.carryInfo(h, dst)
	if err := fill(h, dst); err != nil {
		return "", 0, err
	}

	out, err := e.alloc.Allocate(src, tag)
	if err != nil {
		return "", 0, err
	}
	if err := e.publish(out, dst.PageCount(), dst.WriteTo); err != nil {
		return "", 0, err
	}
	return out, dst.PageCount(), nil
}

// publish writes a document to a temporary file next to path, validates it
// when configured to, and renames it into place. On failure no file is
// left at path or at the temporary location.
func (e *Engine) publish(path string, pages int, write func(io.Writer) (int64, error)) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pagekit-*.pdf")
	if err != nil {
		return fmt.Errorf("pageops: creating temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("pageops: writing %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("pageops: writing %s: %w", path, err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("pageops: %w", err)
	}

	if e.cfg.Validate {
		if err = validate.Pages(tmpName, pages); err != nil {
			return err
		}
	}

	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("pageops: publishing %s: %w", path, err)
	}
	return nil
}

// copyAll appends every page of h to dst.
func copyAll(h *document.Handle, dst *writer.Builder) error {
	if h.PageCount() == 0 {
		return nil
	}
	return h.CopyRange(dst, 1, h.PageCount())
}

// copySequence appends the given pages of h to dst in order.
func copySequence(h *document.Handle, dst *writer.Builder, pages []int) error {
	for _, i := range pages {
		if err := h.CopyPage(dst, i); err != nil {
			return err
		}
	}
	return nil
}
