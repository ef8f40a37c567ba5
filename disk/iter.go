// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package disk

import "github.com/h3tree/h3tree/cell"

// Iterator enumerates (cell, value) pairs from a memory-mapped Tree in
// the same deterministic order as the in-memory tree's Iterator: ascending
// base cell, depth-first with children in digit order 0..6 (spec.md
// §4.7). It walks the file with a small explicit stack of
// (node position, digit path, next digit to visit) and materializes no
// node beyond the current search path.
type Iterator[V any] struct {
	t      *Tree
	decode DecodeFunc[V]
	base   int
	stack  []diskFrame
	cur    uint64
	val    V
	err    error
}

type diskFrame struct {
	pos       uint64
	baseCell  uint8
	digits    []uint8
	bitmap    byte // 0 until the tag byte at pos has been read
	tagRead   bool
	nextDigit uint8
}

// Iter returns a fresh Iterator over t.
func Iter[V any](t *Tree, decode DecodeFunc[V]) *Iterator[V] {
	return &Iterator[V]{t: t, decode: decode}
}

// Next advances the iterator and reports whether a pair is available.
func (it *Iterator[V]) Next() bool {
	for {
		if len(it.stack) == 0 {
			for it.base < cell.NumBaseCells {
				off, err := it.t.rootOffset(uint8(it.base))
				if err != nil {
					it.err = err
					return false
				}
				if off != 0 {
					it.stack = append(it.stack, diskFrame{pos: off, baseCell: uint8(it.base)})
					it.base++
					break
				}
				it.base++
			}
			if len(it.stack) == 0 {
				return false
			}
		}

		top := &it.stack[len(it.stack)-1]

		if !top.tagRead {
			tag, err := it.t.readTag(top.pos)
			if err != nil {
				it.err = err
				return false
			}
			if tag != TagLeaf && tag&TagParentBit == 0 {
				it.err = corruptf("undefined tag bits 0x%02x at offset %d", tag, top.pos)
				return false
			}
			top.bitmap = tag
			top.tagRead = true
		}

		if top.bitmap == TagLeaf {
			v, err := readLeaf(it.t, top.pos, it.decode)
			if err != nil {
				it.err = err
				return false
			}
			c, err := cell.Encode(top.baseCell, top.digits)
			if err != nil {
				it.err = err
				return false
			}
			it.cur, it.val = c, v
			it.stack = it.stack[:len(it.stack)-1]
			return true
		}

		bitmap := top.bitmap & TagDigitsMask
		advanced := false
		for top.nextDigit < 7 {
			d := top.nextDigit
			top.nextDigit++
			if bitmap&(1<<d) == 0 {
				continue
			}
			childPos, err := it.t.childPos(top.pos, bitmap, d)
			if err != nil {
				it.err = err
				return false
			}
			childDigits := make([]uint8, len(top.digits)+1)
			copy(childDigits, top.digits)
			childDigits[len(top.digits)] = d
			it.stack = append(it.stack, diskFrame{pos: childPos, baseCell: top.baseCell, digits: childDigits})
			advanced = true
			break
		}
		if !advanced {
			it.stack = it.stack[:len(it.stack)-1]
		}
	}
}

// Cell returns the cell from the most recent successful Next.
func (it *Iterator[V]) Cell() uint64 { return it.cur }

// Value returns the value from the most recent successful Next.
func (it *Iterator[V]) Value() V { return it.val }

// Err returns the first error encountered during iteration, if any.
func (it *Iterator[V]) Err() error { return it.err }
