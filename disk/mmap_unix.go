//go:build unix

// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package disk

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// mmapFile maps path's contents into memory read-only and returns the
// mapping alongside a cleanup function that unmaps it. The general shape
// (open, stat for size, Mmap, wrap Munmap for Close) follows hivekit's
// internal/mmfile.Map; the size validation and the unmap guard below are
// reworked for this format's own constraints rather than copied over.
func mmapFile(path string) ([]byte, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close() // the mapping stays valid once opened; the fd need not

	size, err := mappableSize(f)
	if err != nil {
		return nil, nil, err
	}

	data, err := syscall.Mmap(int(f.Fd()), 0, size, syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		return nil, nil, fmt.Errorf("disk: mmap %s: %w", path, err)
	}
	return data, unmapper(data), nil
}

// mappableSize validates f's length: it rejects anything too small to
// hold a valid header and anything beyond the platform's int range, which
// a single mmap call cannot address. It does not check the length against
// the 40-bit offset limit.
func mappableSize(f *os.File) (int, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}

	size := info.Size()
	switch {
	case size < int64(NodeRegionStart):
		return 0, corruptf("file too small to map (%d bytes)", size)
	case size > int64(^uint(0)>>1):
		return 0, fmt.Errorf("disk: file too large to map (%d bytes)", size)
	}
	return int(size), nil
}

// unmapper builds a Tree.Close callback that tolerates being invoked more
// than once: syscall.Munmap on an already-unmapped region reports EINVAL,
// which Close should swallow rather than surface to the caller.
func unmapper(data []byte) func() error {
	return func() error {
		switch err := syscall.Munmap(data); {
		case err == nil:
			return nil
		case errors.Is(err, syscall.EINVAL):
			return nil
		default:
			return err
		}
	}
}
