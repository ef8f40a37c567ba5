// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package h3tree

import (
	"fmt"
	"io"
	"strings"

	"github.com/h3tree/h3tree/cell"
)

// String returns a hierarchical diagram of the tree's covered cells,
// one line per leaf, indented by depth. Mirrors the teacher's
// Table.String/Fprint debug dump.
func (t *Tree[V]) String() string {
	w := new(strings.Builder)
	// Fprint only fails if w.Write fails, and strings.Builder never does.
	_ = t.Fprint(w)
	return w.String()
}

// Fprint writes the same diagram as String to w.
func (t *Tree[V]) Fprint(w io.Writer) error {
	it := t.Iter()
	for it.Next() {
		d, err := cell.Decode(it.Cell())
		if err != nil {
			return err
		}
		indent := strings.Repeat("  ", int(d.Res))
		if _, err := fmt.Fprintf(w, "%s%#x (res %d) = %v\n", indent, it.Cell(), d.Res, it.Value()); err != nil {
			return err
		}
	}
	return it.Err()
}
