// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Package h3tree provides an in-memory associative container keyed by H3
// cells: hierarchical insert, ancestor-covers-descendant lookup, septet
// compaction, and deterministic iteration. See package disk for the
// companion memory-mapped on-disk representation.
package h3tree

import (
	"fmt"

	"github.com/h3tree/h3tree/cell"
	"github.com/h3tree/h3tree/compact"
	"github.com/h3tree/h3tree/h3err"
)

// Tree is a 122-root, 7-ary associative container keyed by H3 cells. The
// zero value is ready to use.
//
// A Tree must not be copied after first use and is safe for a single
// writer with any number of readers that don't race the writer (spec.md
// §5); it is not safe for concurrent writers.
type Tree[V any] struct {
	roots     [cell.NumBaseCells]*node[V]
	compactor compact.Func[V]
	size      int
}

// NewTree constructs an empty Tree using compactor for all inserts that
// don't specify their own (via InsertWithCompactor). A nil compactor
// disables automatic coalescing; compaction can still be forced by
// calling Compact with an explicit compactor.
func NewTree[V any](compactor compact.Func[V]) *Tree[V] {
	return &Tree[V]{compactor: compactor}
}

// Len returns the number of inserts that placed a Leaf at a position that
// held no Leaf. Overwriting an existing Leaf is not counted again, and
// neither is an insert that is a no-op because an ancestor Leaf already
// carries the same value. A Leaf created by expanding an ancestor Leaf or
// by coalescing a septet counts as existing, so an insert landing on one
// (including the insert that caused the expansion) is not counted. A
// coarser insert that supersedes a finer subtree counts once and does not
// subtract the positions it replaced. Compact does not change Len.
func (t *Tree[V]) Len() int { return t.size }

// IsEmpty reports whether the tree has no roots at all.
func (t *Tree[V]) IsEmpty() bool {
	for _, r := range t.roots {
		if r != nil {
			return false
		}
	}
	return true
}

// Insert establishes that c (and all of its leaf-resolution descendants)
// map to value, using the tree's default compactor.
func (t *Tree[V]) Insert(c uint64, value V) error {
	return t.InsertWithCompactor(c, value, t.compactor)
}

// InsertWithCompactor is Insert with an explicit compactor for this call,
// overriding the tree's default. A nil compactor skips coalescing.
func (t *Tree[V]) InsertWithCompactor(c uint64, value V, compactor compact.Func[V]) error {
	d, err := cell.Decode(c)
	if err != nil {
		return fmt.Errorf("%w: %v", h3err.ErrInvalidCell, err)
	}

	digits := d.Path()
	var path []*node[V]
	existed := insertAtDigits(&t.roots[d.Base], digits, 0, value, &path)

	if compactor != nil && len(path) > 0 {
		bubbleCompact(path, compactor)
	}

	if !existed {
		t.size++
	}
	return nil
}

// Get performs a hierarchical lookup for c: if c itself or any ancestor
// of c was inserted and not since superseded, it returns the matched
// (possibly coarser) cell and its value. Otherwise it returns ok=false.
func (t *Tree[V]) Get(c uint64) (matched uint64, value V, ok bool) {
	d, err := cell.Decode(c)
	if err != nil {
		return 0, value, false
	}

	n := t.roots[d.Base]
	digits := d.Path()

	for depth := 0; ; depth++ {
		if n == nil {
			return 0, value, false
		}
		if n.isLeaf {
			matchedCell, encErr := cell.Encode(d.Base, digits[:depth])
			if encErr != nil {
				return 0, value, false
			}
			return matchedCell, n.value, true
		}
		if depth == len(digits) {
			// Parent subtree exists below, but this exact cell was never
			// inserted itself: ancestor-covers-descendant, not the
			// reverse (spec.md §4.3).
			return 0, value, false
		}
		n = n.children[digits[depth]]
	}
}

// Compact performs a postorder sweep of the whole tree, applying
// compactor at every Parent whose children are all Leafs. It is the bulk
// counterpart to the automatic per-insert coalescing.
func (t *Tree[V]) Compact(compactor compact.Func[V]) {
	if compactor == nil {
		return
	}
	for i := range t.roots {
		compactSubtree(t.roots[i], compactor)
	}
}

// compactSubtree recursively compacts n's children before attempting to
// coalesce n itself, so a septet of freshly-coalesced children can in
// turn coalesce into their own parent.
func compactSubtree[V any](n *node[V], compactor compact.Func[V]) {
	if n == nil || n.isLeaf {
		return
	}
	for i := 0; i < 7; i++ {
		compactSubtree(n.children[i], compactor)
	}
	coalesce(n, compactor)
}

// Set is the degenerate case of Tree where every inserted key maps to
// the unit value: a pure membership structure over the H3 hierarchy. It
// embeds *Tree[struct{}] so Get, Len, IsEmpty, and Compact carry over
// unchanged; Add and Contains are the set-flavored names for Insert/Get.
type Set struct {
	*Tree[struct{}]
}

// NewSet constructs an empty Set. Septets always coalesce (there is only
// one possible value), so Set needs no compactor argument.
func NewSet() *Set {
	return &Set{NewTree[struct{}](compact.Equal[struct{}]())}
}

// Add inserts c into the set.
func (s *Set) Add(c uint64) error {
	return s.Insert(c, struct{}{})
}

// Contains reports whether c or an ancestor of c was added to the set.
func (s *Set) Contains(c uint64) bool {
	_, _, ok := s.Get(c)
	return ok
}
