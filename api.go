// Package fatcat extracts files from the root directory of FAT12 disk images.
//
// The functions here are one-shot conveniences: each opens a [fat12.Session],
// does one thing with it, and closes it. Use the session directly to perform
// several operations on the same image.
package fatcat

import (
	"fmt"

	"github.com/dargueta/fatcat/disks"
	"github.com/dargueta/fatcat/errors"
	"github.com/dargueta/fatcat/file_systems/fat12"
	"github.com/spf13/afero"
)

// Info summarizes an image for display.
type Info struct {
	Geometry fat12.Geometry
	// Format is the standard floppy format whose size matches the image. It's only
	// meaningful if KnownFormat is true.
	Format      disks.FloppyGeometry
	KnownFormat bool

	TotalClusters uint
	UsedClusters  uint
	FreeClusters  uint
	BadClusters   uint
	// FirstFreeCluster is where the next single-cluster allocation would go.
	// It's 0 if the disk is full.
	FirstFreeCluster fat12.ClusterID
	// LargestFreeRun is the length of the longest run of contiguous free
	// clusters.
	LargestFreeRun uint
}

// Extract returns the contents of the root directory file `name`. The name can
// be given in on-disk form ("TEST    TXT") or dotted form ("test.txt").
func Extract(image fat12.Image, name string) ([]byte, error) {
	shortName, err := fat12.ParseShortName(name)
	if err != nil {
		return nil, err
	}

	session, err := fat12.Open(image)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	return session.ReadFileByName(shortName)
}

// ExtractFile is like [Extract] but opens the image at `path` in `fsys` first.
// The image file is always closed before returning.
func ExtractFile(fsys afero.Fs, path string, name string) ([]byte, error) {
	imageFile, err := fsys.Open(path)
	if err != nil {
		return nil, errors.ErrRead.Wrap(err).WithMessage(
			fmt.Sprintf("failed to open image %q", path))
	}
	defer imageFile.Close()

	return Extract(imageFile, name)
}

// List returns the live entries of the root directory, in on-disk order.
func List(image fat12.Image) ([]fat12.DirectoryEntry, error) {
	session, err := fat12.Open(image)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	return session.List(), nil
}

// Inspect decodes the boot sector and tallies cluster usage from the FAT.
// Clusters the FAT is too small to describe are counted as used.
func Inspect(image fat12.Image) (Info, error) {
	session, err := fat12.Open(image)
	if err != nil {
		return Info{}, err
	}
	defer session.Close()

	geo := session.Geometry()
	info := Info{Geometry: geo}
	info.Format, info.KnownFormat = disks.MatchGeometry(
		geo.TotalSectors(), uint(geo.BytesPerSector))

	usage := session.ClusterUsage()
	info.TotalClusters = usage.TotalClusters
	info.UsedClusters, info.FreeClusters, info.BadClusters = usage.Counts()
	info.FirstFreeCluster, _ = usage.FindContiguousFree(1)
	info.LargestFreeRun = usage.LargestFreeRun()
	return info, nil
}
