package reader

import (
	"fmt"
	"strconv"
)

// objectStream is a decoded /Type /ObjStm with its offset table.
type objectStream struct {
	data    []byte
	first   int
	numbers []int
	offsets []int
}

// resolveCompressed loads an object stored inside an object stream.
func (d *Document) resolveCompressed(num int, entry xrefEntry) (Object, error) {
	stm, err := d.objectStream(entry.Stream)
	if err != nil {
		return nil, fmt.Errorf("reader: object %d: %w", num, err)
	}

	idx := entry.Index
	if idx < 0 || idx >= len(stm.numbers) || stm.numbers[idx] != num {
		// Index is a hint; fall back to a search by number.
		idx = -1
		for i, n := range stm.numbers {
			if n == num {
				idx = i
				break
			}
		}
		if idx < 0 {
			return Null{}, nil
		}
	}

	start := stm.first + stm.offsets[idx]
	if start < 0 || start >= len(stm.data) {
		return nil, fmt.Errorf("reader: object %d offset outside object stream %d", num, entry.Stream)
	}
	p := newParser(stm.data[start:])
	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("reader: object %d in stream %d: %w", num, entry.Stream, err)
	}
	return obj, nil
}

// objectStream decodes and caches the object stream with the given number.
func (d *Document) objectStream(num int) (*objectStream, error) {
	if stm, ok := d.objStreams[num]; ok {
		return stm, nil
	}

	obj, err := d.resolve(Reference{Number: num})
	if err != nil {
		return nil, err
	}
	stream, ok := obj.(Stream)
	if !ok || stream.Dict.GetName("Type") != "ObjStm" {
		return nil, fmt.Errorf("object %d is not an object stream", num)
	}

	data, err := decodeStream(stream)
	if err != nil {
		return nil, fmt.Errorf("decoding object stream %d: %w", num, err)
	}
	n, _ := stream.Dict.GetInt("N")
	first, _ := stream.Dict.GetInt("First")

	stm := &objectStream{data: data, first: int(first)}
	p := newParser(data)
	for i := int64(0); i < n; i++ {
		objNum, err1 := strconv.Atoi(p.readToken())
		off, err2 := strconv.Atoi(p.readToken())
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("object stream %d: malformed offset table", num)
		}
		stm.numbers = append(stm.numbers, objNum)
		stm.offsets = append(stm.offsets, off)
	}

	d.objStreams[num] = stm
	return stm, nil
}
