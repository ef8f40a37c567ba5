// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Package disk implements the on-disk, memory-mapped tree format: a
// fixed header, a 122-entry root offset table, and a postorder node
// region, all little-endian, readable without deserializing the whole
// structure (spec.md §4.6/§4.7).
package disk

import (
	"fmt"

	"github.com/h3tree/h3tree/cell"
	"github.com/h3tree/h3tree/h3err"
)

const (
	// Magic is the fixed 4-byte ASCII tag at the start of every file.
	Magic = "H3TT"

	// Version is the current wire format version.
	Version = 1

	// OffsetWidth is the byte width of every file offset in the format:
	// root table entries and parent-to-child back-references alike.
	// 40 bits caps a single file at 1 TiB (spec.md §9); exceeding that
	// requires widening this and bumping Version.
	OffsetWidth = 5
	OffsetMax   = 1<<40 - 1

	headerSize   = len(Magic) + 1
	rootTableLen = cell.NumBaseCells * OffsetWidth

	// NodeRegionStart is the absolute file offset where the postorder
	// node region begins.
	NodeRegionStart = headerSize + rootTableLen

	TagLeaf       byte = 0x00
	TagParentBit       = 0x80 // set on every Parent tag byte
	TagDigitsMask      = 0x7f // low 7 bits: present-child bitmap
)

// PutOffset writes v as a 5-byte little-endian integer into buf.
func PutOffset(buf []byte, v uint64) {
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
	buf[3] = byte(v >> 24)
	buf[4] = byte(v >> 32)
}

// GetOffset reads a 5-byte little-endian integer from buf.
func GetOffset(buf []byte) uint64 {
	return uint64(buf[0]) | uint64(buf[1])<<8 | uint64(buf[2])<<16 |
		uint64(buf[3])<<24 | uint64(buf[4])<<32
}

// RootTableEntryOffset returns the absolute file offset of base's entry
// in the root offset table.
func RootTableEntryOffset(base uint8) int {
	return headerSize + int(base)*OffsetWidth
}

// corruptf wraps h3err.ErrCorruptFile with a formatted reason.
func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{h3err.ErrCorruptFile}, args...)...)
}
