package reader

import (
	"bytes"
	"encoding/ascii85"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// DecodeStream returns the stream data with its filter chain removed.
// Image codecs (DCTDecode, JPXDecode, ...) are not supported.
func DecodeStream(s Stream) ([]byte, error) {
	return decodeStream(s)
}

// decodeStream applies the filter chain specified in the stream dictionary to decompress data.
func decodeStream(s Stream) ([]byte, error) {
	filters, params, err := filterChain(s.Dict)
	if err != nil {
		return nil, err
	}

	data := s.Data
	for i, f := range filters {
		data, err = applyFilter(f, data)
		if err != nil {
			return nil, fmt.Errorf("reader: applying filter %s: %w", f, err)
		}
		if i < len(params) && params[i] != nil {
			data, err = unpredict(data, params[i])
			if err != nil {
				return nil, fmt.Errorf("reader: predictor after %s: %w", f, err)
			}
		}
	}
	return data, nil
}

// filterChain returns the /Filter names and matching /DecodeParms.
func filterChain(d Dict) ([]Name, []Dict, error) {
	var filters []Name
	switch f := d["Filter"].(type) {
	case nil:
		return nil, nil, nil
	case Name:
		filters = []Name{f}
	case Array:
		for _, item := range f {
			n, ok := item.(Name)
			if !ok {
				return nil, nil, fmt.Errorf("reader: filter array contains non-name: %T", item)
			}
			filters = append(filters, n)
		}
	default:
		return nil, nil, fmt.Errorf("reader: unexpected filter type: %T", f)
	}

	var params []Dict
	switch p := d["DecodeParms"].(type) {
	case Dict:
		params = []Dict{p}
	case Array:
		for _, item := range p {
			pd, _ := item.(Dict)
			params = append(params, pd)
		}
	}
	return filters, params, nil
}

// applyFilter applies a single decompression filter to the data.
func applyFilter(name Name, data []byte) ([]byte, error) {
	switch name {
	case "FlateDecode", "Fl":
		return flateDecode(data)
	case "ASCIIHexDecode", "AHx":
		return asciiHexDecode(data)
	case "ASCII85Decode", "A85":
		return ascii85Decode(data)
	default:
		return nil, fmt.Errorf("unsupported filter: %s", name)
	}
}

// flateDecode decompresses zlib/deflate encoded data.
func flateDecode(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib init: %w", err)
	}
	defer r.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		// Truncated streams are common; keep what was inflated.
		if buf.Len() > 0 && errors.Is(err, io.ErrUnexpectedEOF) {
			return buf.Bytes(), nil
		}
		return nil, fmt.Errorf("zlib decompress: %w", err)
	}
	return buf.Bytes(), nil
}

// asciiHexDecode decodes ASCII hex-encoded data (terminated by '>').
func asciiHexDecode(data []byte) ([]byte, error) {
	var clean bytes.Buffer
	for _, b := range data {
		if b == '>' {
			break
		}
		if !isWhitespace(b) {
			clean.WriteByte(b)
		}
	}

	src := clean.Bytes()
	if len(src)%2 != 0 {
		src = append(src, '0')
	}
	dst := make([]byte, hex.DecodedLen(len(src)))
	if _, err := hex.Decode(dst, src); err != nil {
		return nil, fmt.Errorf("ascii hex decode: %w", err)
	}
	return dst, nil
}

// ascii85Decode decodes ASCII85-encoded data (terminated by "~>").
func ascii85Decode(data []byte) ([]byte, error) {
	if end := bytes.Index(data, []byte("~>")); end >= 0 {
		data = data[:end]
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, ascii85.NewDecoder(bytes.NewReader(data))); err != nil {
		return nil, fmt.Errorf("ascii85 decode: %w", err)
	}
	return buf.Bytes(), nil
}

// unpredict reverses a PNG (>= 10) predictor. TIFF predictor 2 is not
// produced for content or xref streams and is rejected.
func unpredict(data []byte, params Dict) ([]byte, error) {
	predictor, _ := params.GetInt("Predictor")
	if predictor <= 1 {
		return data, nil
	}
	if predictor < 10 {
		return nil, fmt.Errorf("unsupported predictor %d", predictor)
	}

	colors, ok := params.GetInt("Colors")
	if !ok || colors < 1 {
		colors = 1
	}
	bpc, ok := params.GetInt("BitsPerComponent")
	if !ok || bpc < 1 {
		bpc = 8
	}
	columns, ok := params.GetInt("Columns")
	if !ok || columns < 1 {
		columns = 1
	}

	bpp := int((colors*bpc + 7) / 8)
	rowLen := int((colors*bpc*columns + 7) / 8)
	stride := rowLen + 1
	if len(data)%stride != 0 {
		return nil, fmt.Errorf("predicted data length %d is not a multiple of row size %d", len(data), stride)
	}

	out := make([]byte, 0, len(data)/stride*rowLen)
	prev := make([]byte, rowLen)
	for off := 0; off < len(data); off += stride {
		kind := data[off]
		row := make([]byte, rowLen)
		copy(row, data[off+1:off+stride])
		for i := range row {
			var left, upLeft byte
			if i >= bpp {
				left = row[i-bpp]
				upLeft = prev[i-bpp]
			}
			up := prev[i]
			switch kind {
			case 0:
			case 1:
				row[i] += left
			case 2:
				row[i] += up
			case 3:
				row[i] += byte((int(left) + int(up)) / 2)
			case 4:
				row[i] += paeth(left, up, upLeft)
			default:
				return nil, fmt.Errorf("invalid PNG filter type %d", kind)
			}
		}
		out = append(out, row...)
		prev = row
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	default:
		return c
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
