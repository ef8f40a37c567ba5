// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package h3tree

import (
	"reflect"

	"github.com/h3tree/h3tree/compact"
)

// node is a position in the 7-ary trie. It is either a leaf, carrying a
// value that covers this position and everything below it, or a parent
// with up to seven children indexed by digit.
//
// In contrast to the teacher's 256-ary popcount-compressed sparse array,
// the branching factor here is fixed at 7, so a plain array plus a small
// presence bitmap is the simpler and faster representation; there is no
// benefit to popcount compression at this width.
type node[V any] struct {
	// isLeaf is true iff this node is a Leaf; children is unused in that
	// case and value holds the leaf's payload.
	isLeaf bool
	value  V

	// children[i] is non-nil iff digit i is present. present is the
	// bitmap mirror, kept so callers can test/count without touching the
	// array (mirrors the teacher's bitset-backed sparse.Array).
	children [7]*node[V]
	present  uint8 // low 7 bits
}

func newLeaf[V any](v V) *node[V] {
	return &node[V]{isLeaf: true, value: v}
}

// isEmpty reports whether n is a Parent with no children, which must
// never happen in a well-formed tree (N3); insertAtDigits panics if it
// ever produces one.
func (n *node[V]) isEmpty() bool {
	return !n.isLeaf && n.present == 0
}

func (n *node[V]) hasChild(digit uint8) bool {
	return n.present&(1<<digit) != 0
}

func (n *node[V]) childCount() int {
	c := 0
	for i := 0; i < 7; i++ {
		if n.present&(1<<i) != 0 {
			c++
		}
	}
	return c
}

func (n *node[V]) setChild(digit uint8, c *node[V]) {
	n.children[digit] = c
	n.present |= 1 << digit
}

// expand turns a Leaf into a Parent whose seven children are Leafs
// carrying the Leaf's old value, preserving the coverage it used to
// represent (N2). n must currently be a Leaf.
func (n *node[V]) expand() {
	v := n.value
	n.isLeaf = false
	var zero V
	n.value = zero
	for i := uint8(0); i < 7; i++ {
		n.setChild(i, newLeaf(v))
	}
}

// insertAtDigits walks digits[depth:] from slot, materializing a chain of
// single-child Parents for any digits that don't yet exist, expanding
// Leafs that sit above the target position, and writing value at the
// final position. Every Parent node it descends through (pre-existing or
// freshly materialized) is appended to path, deepest last, so the caller
// can run bubbleCompact afterward.
//
// It reports whether a Leaf already existed at that exact position
// (including one just created by expanding an ancestor), or whether the
// insert was a no-op because an ancestor Leaf already carries value.
func insertAtDigits[V any](slot **node[V], digits []uint8, depth int, value V, path *[]*node[V]) (existed bool) {
	if depth == len(digits) {
		// Target position reached. A Leaf here is overwritten
		// (last-writer-wins); a Parent subtree is superseded entirely,
		// per spec.md §9's resolved open question.
		existed = *slot != nil && (*slot).isLeaf
		*slot = newLeaf(value)
		return existed
	}

	if *slot == nil {
		*slot = &node[V]{}
	} else if (*slot).isLeaf {
		// Short-circuit: inserting the same value an ancestor already
		// carries is a no-op, avoiding the expand allocation (spec.md §9).
		if reflect.DeepEqual((*slot).value, value) {
			return true
		}
		(*slot).expand()
	}

	cur := *slot
	*path = append(*path, cur)

	digit := digits[depth]
	existed = insertAtDigits(&cur.children[digit], digits, depth+1, value, path)
	cur.present |= 1 << digit
	if cur.isEmpty() {
		// Unreachable: the line above always sets at least one bit. Mirrors
		// the teacher's trailing panic("unreachable") in insertAtDepth (N3).
		panic("h3tree: internal error: parent node has no children")
	}
	return existed
}

// coalesce runs the compactor over n (which must currently be a Parent)
// and, if all seven children are Leafs and the compactor fuses them,
// replaces n with a single Leaf. It reports whether it coalesced.
func coalesce[V any](n *node[V], compactor compact.Func[V]) bool {
	if n.isLeaf || n.present != 0b1111111 {
		return false
	}

	var vals [7]V
	for i := 0; i < 7; i++ {
		c := n.children[i]
		if c == nil || !c.isLeaf {
			return false
		}
		vals[i] = c.value
	}

	merged, ok := compactor(vals)
	if !ok {
		return false
	}

	n.isLeaf = true
	n.value = merged
	n.children = [7]*node[V]{}
	n.present = 0
	return true
}

// bubbleCompact re-applies coalesce bottom-up along path (a stack of
// ancestors from root to the just-modified node, path[len-1] deepest),
// stopping at the first level that does not coalesce.
func bubbleCompact[V any](path []*node[V], compactor compact.Func[V]) {
	for i := len(path) - 1; i >= 0; i-- {
		if !coalesce(path[i], compactor) {
			return
		}
	}
}
