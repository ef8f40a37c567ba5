// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Command h3dump opens an on-disk h3tree file and prints its header
// summary: file size, node-region size, and how many of the 122 base
// cells have a root node. Grounded on the teacher's debug dumpers
// (dumper.go/liteDumper.go) and scigolib-hdf5's cmd/dump_hdf5 inspector.
package main

import (
	"flag"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/h3tree/h3tree/disk"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	path := flag.String("file", "", "path to a .h3t disk tree")
	flag.Parse()

	if *path == "" {
		log.Fatal().Msg("missing -file")
	}

	t, err := disk.Open(*path)
	if err != nil {
		log.Fatal().Err(err).Str("path", *path).Msg("open failed")
	}
	defer func() {
		if err := t.Close(); err != nil {
			log.Error().Err(err).Msg("close failed")
		}
	}()

	info, err := t.Stat()
	if err != nil {
		log.Fatal().Err(err).Msg("stat failed")
	}

	log.Info().
		Str("path", *path).
		Int64("file_size", info.FileSize).
		Int64("node_region", info.NodeRegion).
		Int("roots_present", info.RootsPresent).
		Uint8("version", info.Version).
		Msg("disk tree")
}
