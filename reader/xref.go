package reader

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
)

// xrefEntry locates one object. Objects stored inside an object stream
// have Compressed set, with Stream the containing stream's object number
// and Index the position within it.
type xrefEntry struct {
	Offset     int64
	Generation int
	InUse      bool
	Compressed bool
	Stream     int
	Index      int
}

// xrefTable maps object numbers to their locations.
type xrefTable map[int]xrefEntry

// merge adds entries from older that are not already present.
func (t xrefTable) merge(older xrefTable) {
	for num, entry := range older {
		if _, exists := t[num]; !exists {
			t[num] = entry
		}
	}
}

// findStartXRef locates the "startxref" position from the end of the file.
func findStartXRef(data []byte) (int64, error) {
	searchLen := 2048
	if len(data) < searchLen {
		searchLen = len(data)
	}
	tail := data[len(data)-searchLen:]

	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("reader: startxref not found")
	}

	p := newParser(tail[idx+len("startxref"):])
	tok := p.readToken()
	offset, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("reader: invalid startxref offset %q: %w", tok, err)
	}
	return offset, nil
}

// readXRef reads the cross-reference section at offset and every older
// section chained through /Prev. The returned trailer is the newest one.
func readXRef(data []byte, offset int64) (xrefTable, Dict, error) {
	table := make(xrefTable)
	var trailer Dict
	seen := make(map[int64]bool)

	for offset >= 0 {
		if seen[offset] {
			break // /Prev loop
		}
		seen[offset] = true

		section, sectionTrailer, err := readXRefSection(data, offset)
		if err != nil {
			return nil, nil, err
		}

		// Hybrid files carry the stream part in /XRefStm; it overrides the
		// classic section it is attached to.
		if stmOff, ok := sectionTrailer.GetInt("XRefStm"); ok && !seen[stmOff] {
			seen[stmOff] = true
			if stm, _, err := parseXRefStream(data, stmOff); err == nil {
				stm.merge(section)
				section = stm
			}
		}

		table.merge(section)
		if trailer == nil {
			trailer = sectionTrailer
		}

		prev, ok := sectionTrailer.GetInt("Prev")
		if !ok {
			break
		}
		offset = prev
	}
	return table, trailer, nil
}

// readXRefSection parses a single classic table or cross-reference stream.
func readXRefSection(data []byte, offset int64) (xrefTable, Dict, error) {
	if offset < 0 || int(offset) >= len(data) {
		return nil, nil, fmt.Errorf("reader: xref offset %d out of bounds", offset)
	}
	p := newParser(data[offset:])
	p.skipWhitespace()
	if p.hasPrefix("xref") {
		return parseXRefTable(p)
	}
	return parseXRefStream(data, offset)
}

// parseXRefTable parses a classic "xref ... trailer << >>" section.
func parseXRefTable(p *parser) (xrefTable, Dict, error) {
	p.readToken() // "xref"
	table := make(xrefTable)

	for {
		p.skipWhitespace()
		if p.pos >= len(p.data) {
			return nil, nil, fmt.Errorf("reader: xref table without trailer")
		}
		if p.hasPrefix("trailer") {
			p.pos += len("trailer")
			break
		}

		startTok := p.readToken()
		startObj, err := strconv.ParseInt(startTok, 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("reader: xref start obj %q: %w", startTok, err)
		}
		countTok := p.readToken()
		count, err := strconv.ParseInt(countTok, 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("reader: xref count %q: %w", countTok, err)
		}

		for i := int64(0); i < count; i++ {
			entryOffset, err := strconv.ParseInt(p.readToken(), 10, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("reader: xref entry offset: %w", err)
			}
			gen, err := strconv.ParseInt(p.readToken(), 10, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("reader: xref entry generation: %w", err)
			}
			kind := p.readToken()

			objNum := int(startObj + i)
			if _, exists := table[objNum]; !exists {
				table[objNum] = xrefEntry{
					Offset:     entryOffset,
					Generation: int(gen),
					InUse:      kind == "n",
				}
			}
		}
	}

	obj, err := p.ParseObject()
	if err != nil {
		return nil, nil, fmt.Errorf("reader: trailer dict: %w", err)
	}
	trailer, ok := obj.(Dict)
	if !ok {
		return nil, nil, fmt.Errorf("reader: trailer is not a dictionary")
	}
	return table, trailer, nil
}

// parseXRefStream parses a cross-reference stream (PDF 1.5+).
func parseXRefStream(data []byte, offset int64) (xrefTable, Dict, error) {
	if offset < 0 || int(offset) >= len(data) {
		return nil, nil, fmt.Errorf("reader: xref stream offset %d out of bounds", offset)
	}
	p := newParser(data[offset:])
	obj, err := p.ParseIndirectObject()
	if err != nil {
		return nil, nil, fmt.Errorf("reader: xref stream object: %w", err)
	}
	stream, ok := obj.Value.(Stream)
	if !ok || stream.Dict.GetName("Type") != "XRef" {
		return nil, nil, fmt.Errorf("reader: no xref table or stream at offset %d", offset)
	}

	decoded, err := decodeStream(stream)
	if err != nil {
		return nil, nil, fmt.Errorf("reader: decoding xref stream: %w", err)
	}

	wArr := stream.Dict.GetArray("W")
	if len(wArr) != 3 {
		return nil, nil, fmt.Errorf("reader: xref stream /W must have 3 elements")
	}
	var widths [3]int
	for i, w := range wArr {
		if n, ok := w.(Integer); ok {
			widths[i] = int(n)
		}
	}
	entrySize := widths[0] + widths[1] + widths[2]
	if entrySize == 0 {
		return nil, nil, fmt.Errorf("reader: xref stream /W is all zero")
	}

	var index []int
	if idxArr := stream.Dict.GetArray("Index"); idxArr != nil {
		for _, v := range idxArr {
			if n, ok := v.(Integer); ok {
				index = append(index, int(n))
			}
		}
	} else {
		size, _ := stream.Dict.GetInt("Size")
		index = []int{0, int(size)}
	}

	table := make(xrefTable)
	pos := 0
	for i := 0; i+1 < len(index); i += 2 {
		first, count := index[i], index[i+1]
		for j := 0; j < count && pos+entrySize <= len(decoded); j++ {
			var fields [3]int64
			for f := 0; f < 3; f++ {
				for k := 0; k < widths[f]; k++ {
					fields[f] = fields[f]<<8 | int64(decoded[pos])
					pos++
				}
			}
			kind := fields[0]
			if widths[0] == 0 {
				kind = 1
			}

			objNum := first + j
			switch kind {
			case 0:
				table[objNum] = xrefEntry{Generation: int(fields[2])}
			case 1:
				table[objNum] = xrefEntry{Offset: fields[1], Generation: int(fields[2]), InUse: true}
			case 2:
				table[objNum] = xrefEntry{InUse: true, Compressed: true, Stream: int(fields[1]), Index: int(fields[2])}
			}
		}
	}

	return table, stream.Dict, nil
}

var objHeader = regexp.MustCompile(`(?m)(?:^|[\r\n\s])(\d+)\s+(\d+)\s+obj\b`)

// rebuildXRef reconstructs a table by scanning the file for "N G obj"
// headers. Later definitions win, as with incremental updates. The trailer
// is taken from the last "trailer" dictionary, or synthesised from the
// first catalog found.
func rebuildXRef(data []byte) (xrefTable, Dict, error) {
	table := make(xrefTable)
	var catalog *Reference

	for _, m := range objHeader.FindAllSubmatchIndex(data, -1) {
		num, _ := strconv.Atoi(string(data[m[2]:m[3]]))
		gen, _ := strconv.Atoi(string(data[m[4]:m[5]]))
		table[num] = xrefEntry{Offset: int64(m[2]), Generation: gen, InUse: true}

		if catalog == nil {
			p := newParser(data[m[2]:])
			if obj, err := p.ParseIndirectObject(); err == nil {
				if d, ok := obj.Value.(Dict); ok && d.GetName("Type") == "Catalog" {
					ref := obj.Reference
					catalog = &ref
				}
			}
		}
	}
	if len(table) == 0 {
		return nil, nil, fmt.Errorf("reader: no objects found")
	}

	if idx := bytes.LastIndex(data, []byte("trailer")); idx >= 0 {
		p := newParser(data[idx+len("trailer"):])
		if obj, err := p.ParseObject(); err == nil {
			if trailer, ok := obj.(Dict); ok && trailer["Root"] != nil {
				return table, trailer, nil
			}
		}
	}
	if catalog == nil {
		return nil, nil, fmt.Errorf("reader: no document catalog found")
	}
	return table, Dict{"Root": *catalog}, nil
}
