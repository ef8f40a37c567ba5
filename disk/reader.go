// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package disk

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"

	"github.com/h3tree/h3tree/cell"
	"github.com/h3tree/h3tree/h3err"
)

// Tree is a memory-mapped, read-only on-disk tree. The zero value is not
// usable; construct one with Open. No node is parsed eagerly: Get and
// Iter walk the mapping on demand.
//
// A Tree is safe to share across concurrent readers; each caller's Get
// or Iterator holds no shared mutable state (spec.md §5).
type Tree struct {
	data  []byte
	unmap func() error
}

// Open memory-maps the file at path, validates its magic and version,
// and returns a Tree retaining the mapping until Close.
func Open(path string) (*Tree, error) {
	data, cleanup, err := mmapFile(path)
	if err != nil {
		if !errors.Is(err, h3err.ErrCorruptFile) {
			err = fmt.Errorf("%w: %v", h3err.ErrIO, err)
		}
		return nil, err
	}

	t := &Tree{data: data, unmap: cleanup}
	if err := t.validateHeader(); err != nil {
		_ = cleanup()
		return nil, err
	}
	return t, nil
}

// Close unmaps the file. The Tree and any Iterator derived from it must
// not be used afterward.
func (t *Tree) Close() error {
	if t.unmap == nil {
		return nil
	}
	return t.unmap()
}

func (t *Tree) validateHeader() error {
	if len(t.data) < NodeRegionStart {
		return corruptf("file too small (%d bytes)", len(t.data))
	}
	if string(t.data[:len(Magic)]) != Magic {
		return corruptf("bad magic %q", t.data[:len(Magic)])
	}
	if v := t.data[len(Magic)]; v != Version {
		return corruptf("unsupported version %d", v)
	}
	return nil
}

// rootOffset returns the absolute file offset of base's root node, or 0
// if base has no root.
func (t *Tree) rootOffset(base uint8) (uint64, error) {
	off := RootTableEntryOffset(base)
	if off+OffsetWidth > len(t.data) {
		return 0, corruptf("root table truncated at base cell %d", base)
	}
	return GetOffset(t.data[off : off+OffsetWidth]), nil
}

// readTag returns the tag byte at pos.
func (t *Tree) readTag(pos uint64) (byte, error) {
	if pos >= uint64(len(t.data)) {
		return 0, corruptf("node position %d out of bounds", pos)
	}
	return t.data[pos], nil
}

// readLeaf decodes the value following a Leaf tag byte at tagPos.
func readLeaf[V any](t *Tree, tagPos uint64, decode DecodeFunc[V]) (V, error) {
	var zero V

	body := t.data[tagPos+1:]
	length, n := binary.Uvarint(body)
	if n <= 0 {
		return zero, corruptf("bad varint length at offset %d", tagPos+1)
	}
	start := tagPos + 1 + uint64(n)
	end := start + length
	if end > uint64(len(t.data)) || end < start {
		return zero, corruptf("leaf value at offset %d exceeds file bounds", start)
	}

	v, err := decode(t.data[start:end])
	if err != nil {
		return zero, corruptf("value decode failed at offset %d: %v", start, err)
	}
	return v, nil
}

// childPos returns the absolute file offset of the child at digit within
// the Parent header that starts at tagPos, given the header's bitmap.
func (t *Tree) childPos(tagPos uint64, bitmap byte, digit uint8) (uint64, error) {
	k := bits.OnesCount8(bitmap & ((1 << digit) - 1))
	headerEnd := tagPos + 1 + uint64(bits.OnesCount8(bitmap))*OffsetWidth

	offPos := tagPos + 1 + uint64(k)*OffsetWidth
	if offPos+OffsetWidth > uint64(len(t.data)) {
		return 0, corruptf("parent header at offset %d truncated", tagPos)
	}
	rel := GetOffset(t.data[offPos : offPos+OffsetWidth])
	if rel > headerEnd {
		return 0, corruptf("relative offset %d at parent %d points before file start", rel, tagPos)
	}

	child := headerEnd - rel
	if child >= headerEnd || child >= uint64(len(t.data)) {
		return 0, corruptf("child offset %d out of bounds", child)
	}
	return child, nil
}

// Get performs the same hierarchical lookup as Tree.Get, walking the
// memory-mapped file instead of in-memory nodes (spec.md §4.7).
func Get[V any](t *Tree, c uint64, decode DecodeFunc[V]) (matched uint64, value V, ok bool, err error) {
	d, derr := cell.Decode(c)
	if derr != nil {
		return 0, value, false, fmt.Errorf("%w: %v", h3err.ErrInvalidCell, derr)
	}

	pos, err := t.rootOffset(d.Base)
	if err != nil {
		return 0, value, false, err
	}
	if pos == 0 {
		return 0, value, false, nil
	}

	digits := d.Path()
	depth := 0

	for {
		tag, err := t.readTag(pos)
		if err != nil {
			return 0, value, false, err
		}

		if tag == TagLeaf {
			v, err := readLeaf(t, pos, decode)
			if err != nil {
				return 0, value, false, err
			}
			matchedCell, encErr := cell.Encode(d.Base, digits[:depth])
			if encErr != nil {
				return 0, value, false, fmt.Errorf("%w: %v", h3err.ErrInvalidCell, encErr)
			}
			return matchedCell, v, true, nil
		}

		if tag&TagParentBit == 0 {
			return 0, value, false, corruptf("undefined tag bits 0x%02x at offset %d", tag, pos)
		}

		if depth == len(digits) {
			// Finer descendants exist below, but this exact cell was
			// never inserted: ancestor-covers-descendant only.
			return 0, value, false, nil
		}

		bitmap := tag & TagDigitsMask
		digit := digits[depth]
		if bitmap&(1<<digit) == 0 {
			return 0, value, false, nil
		}

		child, err := t.childPos(pos, bitmap, digit)
		if err != nil {
			return 0, value, false, err
		}
		pos = child
		depth++
	}
}
