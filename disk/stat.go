// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package disk

import "github.com/h3tree/h3tree/cell"

// Info summarizes a Tree's header without walking its node region,
// grounded on scigolib-hdf5's superblock-inspection helpers that report
// a binary container's header fields cheaply.
type Info struct {
	FileSize     int64
	NodeRegion   int64 // FileSize - NodeRegionStart
	RootsPresent int   // number of the 122 base cells with a root node
	Version      byte
}

// Stat reports t's header summary.
func (t *Tree) Stat() (Info, error) {
	info := Info{
		FileSize:   int64(len(t.data)),
		NodeRegion: int64(len(t.data) - NodeRegionStart),
		Version:    t.data[len(Magic)],
	}
	for base := 0; base < cell.NumBaseCells; base++ {
		off, err := t.rootOffset(uint8(base))
		if err != nil {
			return Info{}, err
		}
		if off != 0 {
			info.RootsPresent++
		}
	}
	return info, nil
}
