package pageops

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lvillar/pagekit"
	"github.com/lvillar/pagekit/document"
	"github.com/lvillar/pagekit/selection"
	"github.com/lvillar/pagekit/writer"
)

// ExtractPages writes the given pages, in the given order, to a new
// document.
func (e *Engine) ExtractPages(src string, pages []int) (string, error) {
	return e.transform("ExtractPages", src, TagExtracted, document.ReadOnly, func(h *document.Handle, dst *writer.Builder) error {
		if err := selection.RequireNonEmpty(pages); err != nil {
			return err
		}
		sel, err := selection.Validate(pages, h.PageCount())
		if err != nil {
			return err
		}
		return copySequence(h, dst, sel)
	})
}

// SplitAllPages writes every page to its own single-page document and
// returns the paths in page order. If any page fails, the documents
// already written are removed.
func (e *Engine) SplitAllPages(src string) ([]string, error) {
	const op = "SplitAllPages"
	start := time.Now()
	log := e.log.WithFields(logrus.Fields{"op": op, "source": src})

	paths, err := e.split(src)
	if err != nil {
		for _, p := range paths {
			os.Remove(p)
		}
		log.WithError(err).Warn("page operation failed")
		return nil, pagekit.NewOpError(op, src, err)
	}

	log.WithFields(logrus.Fields{
		"outputs": len(paths),
		"elapsed": time.Since(start),
	}).Debug("page operation completed")
	return paths, nil
}

func (e *Engine) split(src string) ([]string, error) {
	h, err := e.open(src, document.ReadOnly)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	var paths []string
	for i := 1; i <= h.PageCount(); i++ {
		dst := e.newBuilder()
		e.carryInfo(h, dst)
		if err := h.CopyPage(dst, i); err != nil {
			return paths, err
		}
		out, err := e.alloc.Allocate(src, SplitTag(i))
		if err != nil {
			return paths, err
		}
		if err := e.publish(out, 1, dst.WriteTo); err != nil {
			return paths, err
		}
		paths = append(paths, out)
	}
	return paths, nil
}
