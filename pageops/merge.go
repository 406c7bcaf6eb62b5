package pageops

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lvillar/pagekit"
	"github.com/lvillar/pagekit/document"
	"github.com/lvillar/pagekit/output"
)

// MergeDocuments concatenates the documents at paths, in order, into a new
// document named <name>_merged_<timestamp>.pdf in the directory chosen by
// dirs. A nil dirs places the output next to the first input; an empty name
// becomes "merged".
func MergeDocuments(paths []string, dirs pagekit.DirectoryProvider, name string, opts ...pagekit.Option) (string, error) {
	if dirs != nil {
		opts = append(opts, pagekit.WithOutputDir(dirs))
	}
	return New(opts...).MergeDocuments(paths, name)
}

// MergeDocuments concatenates the documents at paths, in order. Without an
// explicit output directory the result is placed next to the first input.
func (e *Engine) MergeDocuments(paths []string, name string) (string, error) {
	const op = "MergeDocuments"
	start := time.Now()
	var first string
	if len(paths) > 0 {
		first = paths[0]
	}
	log := e.log.WithFields(logrus.Fields{"op": op, "source": first, "inputs": len(paths)})

	out, pages, err := e.merge(paths, name)
	if err != nil {
		log.WithError(err).Warn("page operation failed")
		return "", pagekit.NewOpError(op, first, err)
	}

	log.WithFields(logrus.Fields{
		"output":  out,
		"pages":   pages,
		"elapsed": time.Since(start),
	}).Debug("page operation completed")
	return out, nil
}

func (e *Engine) merge(paths []string, name string) (string, int, error) {
	if len(paths) == 0 {
		return "", 0, fmt.Errorf("pageops: %w", pagekit.ErrNoDocumentsToMerge)
	}
	if name == "" {
		name = TagMerged
	}

	dst := e.newBuilder()
	for i, path := range paths {
		h, err := e.open(path, document.ReadOnly)
		if err != nil {
			return "", 0, err
		}
		if i == 0 {
			e.carryInfo(h, dst)
		}
		err = copyAll(h, dst)
		h.Close()
		if err != nil {
			return "", 0, fmt.Errorf("pageops: merging %s: %w", path, err)
		}
	}

	alloc := e.alloc
	if e.cfg.Dirs == nil {
		alloc.Dirs = output.Dir(filepath.Dir(paths[0]))
	}
	out, err := alloc.AllocateNamed(name, TagMerged)
	if err != nil {
		return "", 0, err
	}
	if err := e.publish(out, dst.PageCount(), dst.WriteTo); err != nil {
		return "", 0, err
	}
	return out, dst.PageCount(), nil
}
