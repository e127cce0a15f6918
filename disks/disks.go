// Package disks is a catalog of the standard FAT12 floppy formats: their
// physical geometry and the boot sector values a formatter writes for them.
package disks

import (
	_ "embed"
	"fmt"

	"github.com/gocarina/gocsv"
)

// FloppyGeometry describes one standard floppy format.
type FloppyGeometry struct {
	Slug       string `csv:"slug"`
	Name       string `csv:"name"`
	FormFactor string `csv:"form_factor"`

	BytesPerSector  uint `csv:"bytes_per_sector"`
	SectorsPerTrack uint `csv:"sectors_per_track"`
	Heads           uint `csv:"heads"`
	// Tracks gives the number of tracks per head.
	Tracks uint `csv:"tracks"`

	// The rest are the values DOS's FORMAT writes into the boot sector.
	SectorsPerCluster uint `csv:"sectors_per_cluster"`
	ReservedSectors   uint `csv:"reserved_sectors"`
	NumFATs           uint `csv:"num_fats"`
	RootEntries       uint `csv:"root_entries"`
	SectorsPerFAT     uint `csv:"sectors_per_fat"`
	Media             uint `csv:"media"`
}

// TotalSectors gives the number of sectors on the disk.
func (g *FloppyGeometry) TotalSectors() uint {
	return g.SectorsPerTrack * g.Heads * g.Tracks
}

// TotalSizeBytes gives the size of an image of this disk, in bytes.
func (g *FloppyGeometry) TotalSizeBytes() int64 {
	return int64(g.TotalSectors()) * int64(g.BytesPerSector)
}

// https://en.wikipedia.org/wiki/List_of_floppy_disk_formats
//
//go:embed floppy-geometries.csv
var floppyGeometriesRawCSV []byte
var floppyGeometries []FloppyGeometry
var floppyGeometriesBySlug map[string]FloppyGeometry

// GetPredefinedGeometry returns the floppy format with the given slug, e.g.
// "1440k".
func GetPredefinedGeometry(slug string) (FloppyGeometry, error) {
	geometry, ok := floppyGeometriesBySlug[slug]
	if ok {
		return geometry, nil
	}

	err := fmt.Errorf("no predefined disk geometry exists with slug %q", slug)
	return FloppyGeometry{}, err
}

// MatchGeometry returns the floppy format with the given total size. The second
// return value is false if the size doesn't correspond to any standard format.
func MatchGeometry(totalSectors uint, bytesPerSector uint) (FloppyGeometry, bool) {
	for _, geometry := range floppyGeometries {
		if geometry.TotalSectors() == totalSectors && geometry.BytesPerSector == bytesPerSector {
			return geometry, true
		}
	}
	return FloppyGeometry{}, false
}

// All returns every predefined format, smallest first.
func All() []FloppyGeometry {
	result := make([]FloppyGeometry, len(floppyGeometries))
	copy(result, floppyGeometries)
	return result
}

func init() {
	err := gocsv.UnmarshalBytes(floppyGeometriesRawCSV, &floppyGeometries)
	if err != nil {
		panic(fmt.Errorf("failed to decode floppy geometry table: %w", err))
	}

	floppyGeometriesBySlug = make(map[string]FloppyGeometry, len(floppyGeometries))
	for i, row := range floppyGeometries {
		_, exists := floppyGeometriesBySlug[row.Slug]
		if exists {
			panic(fmt.Errorf("duplicate definition for disk %q found on row %d", row.Slug, i+1))
		}
		floppyGeometriesBySlug[row.Slug] = row
	}
}
