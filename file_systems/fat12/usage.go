// Cluster usage bitmap

package fat12

import (
	"github.com/boljen/go-bitmap"
)

// ClusterUsage records which clusters of the data region the FAT marks as
// allocated. Bit 0 corresponds to cluster 2.
type ClusterUsage struct {
	allocated     bitmap.Bitmap
	bad           bitmap.Bitmap
	TotalClusters uint
}

// NewClusterUsage builds the usage map for the first `totalClusters` clusters
// of the data region. Clusters that have no entry in the table are counted as
// allocated, since nothing can ever be stored in them.
func NewClusterUsage(table *Table, totalClusters uint) ClusterUsage {
	usage := ClusterUsage{
		allocated:     bitmap.New(int(totalClusters)),
		bad:           bitmap.New(int(totalClusters)),
		TotalClusters: totalClusters,
	}

	for i := uint(0); i < totalClusters; i++ {
		value, err := table.Entry(ClusterID(i + 2))
		if err != nil {
			usage.allocated.Set(int(i), true)
			continue
		}
		if value != EntryFree {
			usage.allocated.Set(int(i), true)
		}
		if IsBadCluster(value) {
			usage.bad.Set(int(i), true)
		}
	}
	return usage
}

// IsAllocated returns true if `cluster` is in use or marked bad. Clusters
// outside the data region are always reported as allocated.
func (usage *ClusterUsage) IsAllocated(cluster ClusterID) bool {
	if cluster < 2 || uint(cluster-2) >= usage.TotalClusters {
		return true
	}
	return usage.allocated.Get(int(cluster - 2))
}

// Counts returns the number of clusters holding data, the number of free
// clusters, and the number marked bad.
func (usage *ClusterUsage) Counts() (used uint, free uint, bad uint) {
	for i := 0; i < int(usage.TotalClusters); i++ {
		switch {
		case usage.bad.Get(i):
			bad++
		case usage.allocated.Get(i):
			used++
		default:
			free++
		}
	}
	return used, free, bad
}

// FindContiguousFree returns the first cluster of the first run of `count` free
// clusters. The second return value is false if there's no such run.
func (usage *ClusterUsage) FindContiguousFree(count uint) (ClusterID, bool) {
	if count == 0 {
		return 0, false
	}

	runSize := uint(0)
	runStart := ClusterID(0)

	for cluster := ClusterID(2); uint(cluster-2) < usage.TotalClusters; cluster++ {
		if usage.IsAllocated(cluster) {
			runSize = 0
			continue
		}

		runSize++
		if runSize == 1 {
			runStart = cluster
		}
		if runSize == count {
			return runStart, true
		}
	}
	return 0, false
}

// LargestFreeRun gives the length of the longest run of free clusters.
func (usage *ClusterUsage) LargestFreeRun() uint {
	largest := uint(0)
	runSize := uint(0)

	for cluster := ClusterID(2); uint(cluster-2) < usage.TotalClusters; cluster++ {
		if usage.IsAllocated(cluster) {
			runSize = 0
			continue
		}
		runSize++
		if runSize > largest {
			largest = runSize
		}
	}
	return largest
}
