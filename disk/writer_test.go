// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package disk_test

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	h3tree "github.com/h3tree/h3tree"
	"github.com/h3tree/h3tree/cell"
	"github.com/h3tree/h3tree/compact"
	"github.com/h3tree/h3tree/disk"
	"github.com/h3tree/h3tree/h3err"
)

func encodeInt(v int) ([]byte, error) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	return buf[:], nil
}

func decodeInt(data []byte) (int, error) {
	if len(data) != 8 {
		return 0, errors.New("bad length")
	}
	return int(binary.LittleEndian.Uint64(data)), nil
}

func mustEncode(t *testing.T, base uint8, digits ...uint8) uint64 {
	t.Helper()
	c, err := cell.Encode(base, digits)
	require.NoErrorf(t, err, "Encode(%d, %v)", base, digits)
	return c
}

func writeTemp(t *testing.T, tr *h3tree.Tree[int]) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tree.h3t")
	f, err := os.Create(path)
	require.NoError(t, err, "Create")
	err = h3tree.WriteDisk(tr, f, encodeInt)
	require.NoError(t, f.Close())
	require.NoError(t, err, "WriteDisk")
	return path
}

// cellValuePairs flattens a (cell -> value) map into a slice, so it can be
// compared order-independently with assert.ElementsMatch.
func cellValuePairs(m map[uint64]int) []cellValue {
	pairs := make([]cellValue, 0, len(m))
	for c, v := range m {
		pairs = append(pairs, cellValue{c, v})
	}
	return pairs
}

type cellValue struct {
	Cell  uint64
	Value int
}

// S6: a disk round-trip of the S5 (non-coalescing) scenario preserves
// every distinct leaf and its value.
func TestRoundTripNonCoalescing(t *testing.T) {
	t.Parallel()

	tr := h3tree.NewTree[int](compact.Equal[int]())
	parent := []uint8{4}
	want := map[uint64]int{}
	for d := uint8(0); d < 7; d++ {
		c := mustEncode(t, 5, append(append([]uint8{}, parent...), d)...)
		require.NoError(t, tr.Insert(c, int(d)))
		want[c] = int(d)
	}

	path := writeTemp(t, tr)

	dt, err := disk.Open(path)
	require.NoError(t, err, "Open")
	defer dt.Close()

	for c, v := range want {
		matched, got, ok, err := disk.Get(dt, c, decodeInt)
		require.NoErrorf(t, err, "Get(%#x)", c)
		assert.Truef(t, ok, "Get(%#x) missing", c)
		assert.Equal(t, c, matched)
		assert.Equal(t, v, got)
	}

	seen := map[uint64]int{}
	it := disk.Iter(dt, decodeInt)
	for it.Next() {
		seen[it.Cell()] = it.Value()
	}
	require.NoError(t, it.Err())
	assert.ElementsMatch(t, cellValuePairs(want), cellValuePairs(seen))
}

// P6: a disk Get for a cell never inserted, but covered by a coarser
// ancestor, returns the ancestor's matched cell and value.
func TestRoundTripAncestorCoverage(t *testing.T) {
	t.Parallel()

	tr := h3tree.NewTree[int](nil)
	root := mustEncode(t, 11)
	require.NoError(t, tr.Insert(root, 42))

	path := writeTemp(t, tr)
	dt, err := disk.Open(path)
	require.NoError(t, err, "Open")
	defer dt.Close()

	deep := mustEncode(t, 11, 1, 2, 3)
	matched, v, ok, err := disk.Get(dt, deep, decodeInt)
	require.NoError(t, err, "Get")
	require.True(t, ok)
	assert.Equal(t, root, matched)
	assert.Equal(t, 42, v)
}

// P7: disk iteration order matches the in-memory tree's iteration order
// (ascending base cell, digit-order depth-first).
func TestRoundTripIterationOrderMatchesMemory(t *testing.T) {
	t.Parallel()

	tr := h3tree.NewTree[int](compact.Never[int]())
	cells := []uint64{
		mustEncode(t, 1, 0),
		mustEncode(t, 1, 1, 2),
		mustEncode(t, 1, 1, 3),
		mustEncode(t, 40),
	}
	for i, c := range cells {
		require.NoError(t, tr.Insert(c, i))
	}

	var memOrder []uint64
	mit := tr.Iter()
	for mit.Next() {
		memOrder = append(memOrder, mit.Cell())
	}

	path := writeTemp(t, tr)
	dt, err := disk.Open(path)
	require.NoError(t, err, "Open")
	defer dt.Close()

	var diskOrder []uint64
	it := disk.Iter(dt, decodeInt)
	for it.Next() {
		diskOrder = append(diskOrder, it.Cell())
	}
	require.NoError(t, it.Err())

	assert.Equal(t, memOrder, diskOrder)
}

func TestStatCountsPresentRoots(t *testing.T) {
	t.Parallel()

	tr := h3tree.NewTree[int](nil)
	require.NoError(t, tr.Insert(mustEncode(t, 1), 1))
	require.NoError(t, tr.Insert(mustEncode(t, 2), 2))

	path := writeTemp(t, tr)
	dt, err := disk.Open(path)
	require.NoError(t, err, "Open")
	defer dt.Close()

	info, err := dt.Stat()
	require.NoError(t, err, "Stat")
	assert.Equal(t, 2, info.RootsPresent)
	assert.EqualValues(t, disk.Version, info.Version)
}

func TestOpenRejectsBadMagic(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.h3t")
	require.NoError(t, os.WriteFile(path, []byte("XXXX\x01"), 0o644))

	_, err := disk.Open(path)
	assert.ErrorIs(t, err, h3err.ErrCorruptFile)
}

func TestOpenRejectsTruncatedHeader(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "short.h3t")
	require.NoError(t, os.WriteFile(path, []byte(disk.Magic), 0o644))

	_, err := disk.Open(path)
	assert.ErrorIs(t, err, h3err.ErrCorruptFile)
}
