// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package h3tree

import "github.com/h3tree/h3tree/cell"

// Iterator enumerates (cell, value) pairs in ascending base-cell order,
// depth-first with children visited in digit order 0..6. When a Leaf is
// reached at an interior resolution, a single pair is produced for that
// leaf's cell, not its descendants (spec.md §4.5).
//
// An Iterator is single-pass; call Tree.Iter again for a fresh pass. It
// is not safe to use while the tree is being mutated.
type Iterator[V any] struct {
	roots   *[cell.NumBaseCells]*node[V]
	base    int
	stack   []frame[V]
	curCell uint64
	curVal  V
	err     error
}

// frame is one level of the explicit traversal stack: the node at this
// position, its digit path from the base cell, and the next child digit
// still to be visited.
type frame[V any] struct {
	n         *node[V]
	baseCell  uint8
	digits    []uint8
	nextDigit uint8
}

// Iter returns a fresh Iterator over the tree.
func (t *Tree[V]) Iter() *Iterator[V] {
	return &Iterator[V]{roots: &t.roots, base: 0}
}

// Next advances the iterator and reports whether a pair is available. On
// the first call that returns false, the iteration is exhausted; Cell and
// Value then return their last valid values and err (if any).
func (it *Iterator[V]) Next() bool {
	for {
		if len(it.stack) == 0 {
			// Advance to the next non-empty base cell.
			for it.base < cell.NumBaseCells && it.roots[it.base] == nil {
				it.base++
			}
			if it.base >= cell.NumBaseCells {
				return false
			}
			it.stack = append(it.stack, frame[V]{
				n:        it.roots[it.base],
				baseCell: uint8(it.base),
			})
			it.base++
		}

		top := &it.stack[len(it.stack)-1]

		if top.n.isLeaf {
			c, err := cell.Encode(top.baseCell, top.digits)
			it.stack = it.stack[:len(it.stack)-1]
			if err != nil {
				it.err = err
				return false
			}
			it.curCell = c
			it.curVal = top.n.value
			return true
		}

		advanced := false
		for top.nextDigit < 7 {
			d := top.nextDigit
			top.nextDigit++
			child := top.n.children[d]
			if child == nil {
				continue
			}
			childDigits := make([]uint8, len(top.digits)+1)
			copy(childDigits, top.digits)
			childDigits[len(top.digits)] = d
			it.stack = append(it.stack, frame[V]{
				n:        child,
				baseCell: top.baseCell,
				digits:   childDigits,
			})
			advanced = true
			break
		}
		if !advanced {
			it.stack = it.stack[:len(it.stack)-1]
		}
	}
}

// Cell returns the cell produced by the most recent call to Next that
// returned true.
func (it *Iterator[V]) Cell() uint64 { return it.curCell }

// Value returns the value produced by the most recent call to Next that
// returned true.
func (it *Iterator[V]) Value() V { return it.curVal }

// Err returns the first error encountered during iteration, if any. A
// well-formed in-memory tree never produces one; it exists for symmetry
// with disk.Iterator, whose backing bytes can be corrupt.
func (it *Iterator[V]) Err() error { return it.err }
