package testing

import (
	"fmt"
	"io"
	"testing"

	"github.com/dargueta/fatcat/disks"
	"github.com/dargueta/fatcat/file_systems/fat12"
	"github.com/noxer/bytewriter"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// FillerByte is what the data region of a freshly formatted floppy is filled
// with. Using a nonzero value makes it obvious when cluster slack leaks into
// file contents.
const FillerByte = 0xF6

// ImageBuilder assembles a FAT12 image in memory. Files are allocated from the
// lowest free cluster upward. For malformed images, the FAT and directory can be
// edited directly with [ImageBuilder.SetFATEntry] and [ImageBuilder.AddEntry].
//
// All failures abort the test; none of the methods return errors.
type ImageBuilder struct {
	t            *testing.T
	geometry     fat12.Geometry
	totalSectors uint
	fat          []byte
	rootDir      []fat12.DirectoryEntry
	dataRegion   []byte
	nextCluster  fat12.ClusterID
}

// NewImageBuilder creates a builder for an empty, formatted image of one of the
// predefined floppy formats in [disks], e.g. "1440k".
func NewImageBuilder(t *testing.T, slug string) *ImageBuilder {
	floppy, err := disks.GetPredefinedGeometry(slug)
	require.NoError(t, err)

	geo := fat12.Geometry{
		JmpBoot:           [3]byte{0xEB, 0x3C, 0x90},
		BytesPerSector:    uint16(floppy.BytesPerSector),
		SectorsPerCluster: uint8(floppy.SectorsPerCluster),
		ReservedSectors:   uint16(floppy.ReservedSectors),
		NumFATs:           uint8(floppy.NumFATs),
		RootEntryCount:    uint16(floppy.RootEntries),
		TotalSectors16:    uint16(floppy.TotalSectors()),
		Media:             uint8(floppy.Media),
		SectorsPerFAT:     uint16(floppy.SectorsPerFAT),
		SectorsPerTrack:   uint16(floppy.SectorsPerTrack),
		NumHeads:          uint16(floppy.Heads),
		BootSignature:     0x29,
		SerialNumber:      [4]byte{0x78, 0x56, 0x34, 0x12},
	}
	copy(geo.OEMNameRaw[:], "MSDOS5.0")
	copy(geo.VolumeLabelRaw[:], "NO NAME    ")
	copy(geo.FileSystemTypeID[:], "FAT12   ")

	return NewImageBuilderFromGeometry(t, geo)
}

// NewImageBuilderFromGeometry creates a builder for an image with arbitrary
// geometry. The size of the image is taken from geo.TotalSectors().
func NewImageBuilderFromGeometry(t *testing.T, geo fat12.Geometry) *ImageBuilder {
	totalSectors := geo.TotalSectors()
	dataStart := uint(geo.DataRegionStart())
	require.Greaterf(
		t,
		totalSectors,
		dataStart,
		"image of %d sectors has no room for data after sector %d",
		totalSectors,
		dataStart)

	dataRegion := make([]byte, (totalSectors-dataStart)*uint(geo.BytesPerSector))
	for i := range dataRegion {
		dataRegion[i] = FillerByte
	}

	builder := &ImageBuilder{
		t:            t,
		geometry:     geo,
		totalSectors: totalSectors,
		fat:          make([]byte, geo.FATSize()),
		rootDir:      make([]fat12.DirectoryEntry, 0, geo.RootEntryCount),
		dataRegion:   dataRegion,
		nextCluster:  2,
	}

	// Entry 0 holds the media descriptor, entry 1 an end-of-chain marker.
	if builder.FATEntryCount() >= 2 {
		fat12.PutEntry12(builder.fat, 0, 0xF00|uint16(geo.Media))
		fat12.PutEntry12(builder.fat, 1, fat12.EntryMask)
	}
	return builder
}

// Geometry returns the geometry the image is built with.
func (builder *ImageBuilder) Geometry() fat12.Geometry {
	return builder.geometry
}

// FATEntryCount gives the number of addressable entries in the FAT.
func (builder *ImageBuilder) FATEntryCount() uint {
	return fat12.EntryCount(uint(len(builder.fat)))
}

// TotalClusters gives the number of clusters that fit in the data region.
func (builder *ImageBuilder) TotalClusters() uint {
	return uint(len(builder.dataRegion)) / builder.geometry.BytesPerCluster()
}

// SetFATEntry sets the raw value of the FAT entry for `cluster`.
func (builder *ImageBuilder) SetFATEntry(cluster fat12.ClusterID, value uint16) {
	require.Lessf(
		builder.t,
		uint(cluster),
		builder.FATEntryCount(),
		"cluster %d has no entry in the FAT",
		cluster)
	fat12.PutEntry12(builder.fat, uint(cluster), value)
}

// AllocateClusters reserves the next `count` free clusters without linking
// them.
func (builder *ImageBuilder) AllocateClusters(count uint) []fat12.ClusterID {
	clusters := make([]fat12.ClusterID, count)
	for i := range clusters {
		require.Lessf(
			builder.t,
			uint(builder.nextCluster)-2,
			builder.TotalClusters(),
			"image is out of space after %d clusters",
			builder.TotalClusters())
		clusters[i] = builder.nextCluster
		builder.nextCluster++
	}
	return clusters
}

// LinkChain writes `clusters` into the FAT as a single chain terminated with
// 0xFFF.
func (builder *ImageBuilder) LinkChain(clusters []fat12.ClusterID) {
	for i, cluster := range clusters {
		if i == len(clusters)-1 {
			builder.SetFATEntry(cluster, fat12.EntryMask)
		} else {
			builder.SetFATEntry(cluster, uint16(clusters[i+1]))
		}
	}
}

// WriteCluster copies `data` to the start of `cluster`. Bytes of the cluster
// not covered by `data` are left alone.
func (builder *ImageBuilder) WriteCluster(cluster fat12.ClusterID, data []byte) {
	bytesPerCluster := builder.geometry.BytesPerCluster()
	require.LessOrEqual(builder.t, uint(len(data)), bytesPerCluster, "data larger than a cluster")
	require.GreaterOrEqual(builder.t, uint(cluster), uint(2), "clusters begin at 2")

	start := uint(cluster-2) * bytesPerCluster
	require.LessOrEqualf(
		builder.t,
		start+bytesPerCluster,
		uint(len(builder.dataRegion)),
		"cluster %d is past the end of the image",
		cluster)
	copy(builder.dataRegion[start:], data)
}

// WriteChain splits `data` across `clusters` in order.
func (builder *ImageBuilder) WriteChain(clusters []fat12.ClusterID, data []byte) {
	bytesPerCluster := builder.geometry.BytesPerCluster()
	for i, cluster := range clusters {
		start := uint(i) * bytesPerCluster
		if start >= uint(len(data)) {
			break
		}
		end := start + bytesPerCluster
		if end > uint(len(data)) {
			end = uint(len(data))
		}
		builder.WriteCluster(cluster, data[start:end])
	}
}

// AddEntry appends a raw directory entry to the root directory.
func (builder *ImageBuilder) AddEntry(entry fat12.DirectoryEntry) {
	require.Lessf(
		builder.t,
		len(builder.rootDir),
		int(builder.geometry.RootEntryCount),
		"root directory is full (%d entries)",
		builder.geometry.RootEntryCount)
	builder.rootDir = append(builder.rootDir, entry)
}

// AddFile stores `contents` in newly allocated contiguous clusters and adds a
// root directory entry for it. `name` is anything [fat12.ParseShortName]
// accepts.
func (builder *ImageBuilder) AddFile(name string, contents []byte) fat12.DirectoryEntry {
	shortName, err := fat12.ParseShortName(name)
	require.NoError(builder.t, err)

	entry := fat12.DirectoryEntry{
		Name:             shortName,
		AttributeFlags:   fat12.AttrArchived,
		LastModifiedDate: (41 << 9) | (7 << 5) | 28, // 2021-07-28
		LastModifiedTime: (13 << 11) | (37 << 5) | 21,
		FileSize:         uint32(len(contents)),
	}

	if len(contents) > 0 {
		bytesPerCluster := builder.geometry.BytesPerCluster()
		count := (uint(len(contents)) + bytesPerCluster - 1) / bytesPerCluster
		clusters := builder.AllocateClusters(count)
		builder.LinkChain(clusters)
		builder.WriteChain(clusters, contents)
		entry.FirstClusterLow = uint16(clusters[0])
	}

	builder.AddEntry(entry)
	return entry
}

// Bytes assembles the full image: boot sector, every copy of the FAT, the root
// directory, and the data region.
func (builder *ImageBuilder) Bytes() []byte {
	geo := &builder.geometry
	bytesPerSector := uint(geo.BytesPerSector)
	image := make([]byte, builder.totalSectors*bytesPerSector)

	bootWriter := bytewriter.New(image[:bytesPerSector])
	_, err := bootWriter.Write(geo.Encode())
	require.NoError(builder.t, err, "boot sector doesn't fit in the first sector")
	if bytesPerSector >= 512 {
		image[510] = 0x55
		image[511] = 0xAA
	}

	for i := uint(0); i < uint(geo.NumFATs); i++ {
		start := (uint(geo.FATStart()) + i*uint(geo.SectorsPerFAT)) * bytesPerSector
		copy(image[start:], builder.fat)
	}

	rootStart := uint(geo.RootDirStart()) * bytesPerSector
	rootEnd := rootStart + geo.RootDirSectors()*bytesPerSector
	direntWriter := bytewriter.New(image[rootStart:rootEnd])
	for i, entry := range builder.rootDir {
		_, err = direntWriter.Write(entry.Encode())
		require.NoErrorf(builder.t, err, "failed to write directory entry %d", i)
	}

	copy(image[uint(geo.DataRegionStart())*bytesPerSector:], builder.dataRegion)
	return image
}

// Stream assembles the image and returns a stream over it.
func (builder *ImageBuilder) Stream() io.ReadWriteSeeker {
	return bytesextra.NewReadWriteSeeker(builder.Bytes())
}

// ReadRecord is a single read observed by a [RecordingImage].
type ReadRecord struct {
	Offset int64
	Length int
}

func (r ReadRecord) String() string {
	return fmt.Sprintf("%d bytes at %d", r.Length, r.Offset)
}

// RecordingImage wraps an image and records every read made through it.
type RecordingImage struct {
	image    fat12.Image
	position int64
	Reads    []ReadRecord
}

func NewRecordingImage(image fat12.Image) *RecordingImage {
	return &RecordingImage{image: image}
}

func (r *RecordingImage) Read(p []byte) (int, error) {
	n, err := r.image.Read(p)
	if n > 0 {
		r.Reads = append(r.Reads, ReadRecord{Offset: r.position, Length: n})
		r.position += int64(n)
	}
	return n, err
}

func (r *RecordingImage) Seek(offset int64, whence int) (int64, error) {
	newPosition, err := r.image.Seek(offset, whence)
	if err == nil {
		r.position = newPosition
	}
	return newPosition, err
}

// ReadOffsetsSince returns the offsets of all reads after the first `skip`
// reads.
func (r *RecordingImage) ReadOffsetsSince(skip int) []int64 {
	offsets := []int64{}
	for _, record := range r.Reads[skip:] {
		offsets = append(offsets, record.Offset)
	}
	return offsets
}
