package pageops

import (
	"github.com/klauspost/compress/zlib"

	"github.com/lvillar/pagekit/document"
	"github.com/lvillar/pagekit/writer"
)

// CompressPdf rewrites the document with every unfiltered or plain
// Flate-encoded stream deflated at the best compression level. A stream is
// only replaced when the result is smaller. Page order and count are
// unchanged.
func (e *Engine) CompressPdf(src string) (string, error) {
	return e.transform("CompressPdf", src, TagCompressed, document.ReadOnly, copyAll,
		writer.WithCompression(zlib.BestCompression),
		writer.WithRecompression(true),
	)
}
