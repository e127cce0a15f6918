package fat12

import (
	"fmt"

	"github.com/boljen/go-bitmap"
	"github.com/dargueta/fatcat/errors"
)

// ChainWalker follows cluster chains through the FAT and reads the clusters
// they point to.
type ChainWalker struct {
	reader *SectorReader
	table  *Table
	geo    *Geometry
}

func NewChainWalker(reader *SectorReader, table *Table, geo *Geometry) *ChainWalker {
	return &ChainWalker{
		reader: reader,
		table:  table,
		geo:    geo,
	}
}

// checkCluster verifies that `cluster` can hold data: it must be numbered from
// 2 and have an entry in the FAT.
func (walker *ChainWalker) checkCluster(cluster ClusterID) error {
	if cluster < 2 || uint(cluster) >= walker.table.EntryCount() {
		return errors.ErrCorruptChain.WithMessage(
			fmt.Sprintf(
				"cluster %d not in range [2, %d)", cluster, walker.table.EntryCount()))
	}
	return nil
}

// next decodes the link out of `cluster` and classifies it. If the chain ends
// at `cluster`, the second return value is true. Links that can't appear in a
// valid chain fail with [errors.ErrCorruptChain]; this includes the bad-cluster
// marker, since there's no way to know what the data after it should be.
func (walker *ChainWalker) next(cluster ClusterID) (ClusterID, bool, error) {
	link, err := walker.table.Entry(cluster)
	if err != nil {
		return 0, false, err
	}

	switch {
	case IsEndOfChain(link):
		return 0, true, nil
	case IsBadCluster(link):
		return 0, false, errors.ErrCorruptChain.WithMessage(
			fmt.Sprintf("cluster %d is followed by a bad cluster marker (0x%03X)", cluster, link))
	case link == EntryFree:
		return 0, false, errors.ErrCorruptChain.WithMessage(
			fmt.Sprintf("cluster %d is in a chain but marked free", cluster))
	case IsReservedEntry(link):
		return 0, false, errors.ErrCorruptChain.WithMessage(
			fmt.Sprintf("cluster %d is followed by reserved value 0x%03X", cluster, link))
	}

	nextCluster := ClusterID(link)
	err = walker.checkCluster(nextCluster)
	if err != nil {
		return 0, false, errors.ErrCorruptChain.WithMessage(
			fmt.Sprintf("cluster %d links outside the FAT to %d", cluster, nextCluster))
	}
	return nextCluster, false, nil
}

// Chain returns every cluster in the chain beginning at `start`, in order.
//
// A chain that visits a cluster twice would never end, so it fails with
// [errors.ErrCorruptChain] the first time a cluster repeats.
func (walker *ChainWalker) Chain(start ClusterID) ([]ClusterID, error) {
	err := walker.checkCluster(start)
	if err != nil {
		return nil, err
	}

	visited := bitmap.New(int(walker.table.EntryCount()))
	chain := []ClusterID{}
	currentCluster := start

	for {
		if visited.Get(int(currentCluster)) {
			return chain, errors.ErrCorruptChain.WithMessage(
				fmt.Sprintf(
					"cycle detected: cluster %d appears twice in chain from %d",
					currentCluster,
					start))
		}
		visited.Set(int(currentCluster), true)
		chain = append(chain, currentCluster)

		nextCluster, atEnd, err := walker.next(currentCluster)
		if err != nil {
			return chain, err
		}
		if atEnd {
			return chain, nil
		}
		currentCluster = nextCluster
	}
}

// ReadFile returns the contents of the file described by `entry`: exactly
// FileSize bytes, with the slack at the end of the last cluster cut off.
//
// Clusters are read one at a time while walking the chain, each into the next
// unfilled part of a buffer sized to the file rounded up to whole clusters. A
// chain that runs out before FileSize bytes have been read fails with
// [errors.ErrCorruptChain]; clusters beyond FileSize are still read and
// discarded.
func (walker *ChainWalker) ReadFile(entry *DirectoryEntry) ([]byte, error) {
	fileSize := uint(entry.FileSize)
	if fileSize == 0 && entry.FirstCluster() == 0 {
		// Empty files have no clusters allocated.
		return []byte{}, nil
	}

	start := entry.FirstCluster()
	err := walker.checkCluster(start)
	if err != nil {
		return nil, err
	}

	bytesPerCluster := walker.geo.BytesPerCluster()
	sectorsPerCluster := uint(walker.geo.SectorsPerCluster)
	totalClusters := (fileSize + bytesPerCluster - 1) / bytesPerCluster

	// A chain can't visit a cluster twice, so it holds at most one of each
	// cluster the FAT can address.
	maxClusters := walker.table.EntryCount() - 2
	if totalClusters > maxClusters {
		return nil, errors.ErrCorruptChain.WithMessage(
			fmt.Sprintf(
				"file size %d needs %d clusters but the FAT only addresses %d",
				fileSize,
				totalClusters,
				maxClusters))
	}
	buffer := make([]byte, totalClusters*bytesPerCluster)

	visited := bitmap.New(int(walker.table.EntryCount()))
	currentCluster := start
	offset := uint(0)

	for {
		if visited.Get(int(currentCluster)) {
			return nil, errors.ErrCorruptChain.WithMessage(
				fmt.Sprintf(
					"cycle detected: cluster %d appears twice in chain from %d",
					currentCluster,
					start))
		}
		visited.Set(int(currentCluster), true)

		if offset+bytesPerCluster > uint(len(buffer)) {
			// The chain is longer than the file needs. Keep reading so that
			// I/O errors in the slack clusters still surface.
			buffer = append(buffer, make([]byte, bytesPerCluster)...)
		}

		lba := walker.geo.ClusterToLBA(currentCluster)
		err = walker.reader.ReadSectorsInto(lba, sectorsPerCluster, buffer[offset:])
		if err != nil {
			return nil, err
		}
		offset += bytesPerCluster

		nextCluster, atEnd, err := walker.next(currentCluster)
		if err != nil {
			return nil, err
		}
		if atEnd {
			break
		}
		currentCluster = nextCluster
	}

	if offset < fileSize {
		return nil, errors.ErrCorruptChain.WithMessage(
			fmt.Sprintf(
				"chain from cluster %d holds %d bytes but the file is %d bytes",
				start,
				offset,
				fileSize))
	}
	return buffer[:fileSize], nil
}
