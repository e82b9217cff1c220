// Package geometry describes the fixed capacity of a file system instance
// before it's created: how many inodes and how many data blocks it has.
// Named presets are loaded from an embedded CSV, the same way the teacher
// lineage's disk-geometry catalog is loaded, so a caller can pick
// "tiny"/"default"/"large" instead of hand-tuning numbers.
package geometry

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/pasha112sergey/minifs/errors"
)

// Geometry is the full set of parameters needed to construct a file system:
// how many inode slots it has and how many 64-byte data blocks back it.
type Geometry struct {
	Slug        string `csv:"slug"`
	InodeCount  uint   `csv:"inode_count"`
	DblockCount uint   `csv:"dblock_count"`
	Notes       string `csv:"notes"`
}

// Validate reports whether g describes a usable file system: at least the
// root inode and at least enough blocks to hold one empty directory.
func (g Geometry) Validate() error {
	if g.InodeCount == 0 {
		return errors.ErrInvalidInput.WithMessage("inode_count must be at least 1")
	}
	if g.DblockCount == 0 {
		return errors.ErrInvalidInput.WithMessage("dblock_count must be at least 1")
	}
	// u16 header fields (spec section on the on-disk image format) cap both
	// counts at 65535.
	if g.InodeCount > 0xFFFF || g.DblockCount > 0xFFFF {
		return errors.ErrInvalidInput.WithMessage("inode_count and dblock_count must each fit in 16 bits")
	}
	return nil
}

//go:embed presets.csv
var presetsRawCSV string

var presets map[string]Geometry

func init() {
	presets = make(map[string]Geometry)
	reader := strings.NewReader(presetsRawCSV)
	err := gocsv.UnmarshalToCallback(reader, func(row Geometry) error {
		if _, exists := presets[row.Slug]; exists {
			return fmt.Errorf("duplicate geometry preset slug %q", row.Slug)
		}
		presets[row.Slug] = row
		return nil
	})
	if err != nil {
		panic(err)
	}
}

// Preset looks up a named geometry (e.g. "tiny", "default", "large").
func Preset(slug string) (Geometry, error) {
	g, ok := presets[slug]
	if !ok {
		return Geometry{}, errors.ErrInvalidInput.WithMessage(
			fmt.Sprintf("no predefined geometry named %q", slug),
		)
	}
	return g, nil
}

// PresetNames returns every known preset slug.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	return names
}
