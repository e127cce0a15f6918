package fat12_test

import (
	"bytes"
	"io"
	"runtime"
	"testing"

	"github.com/dargueta/fatcat/errors"
	"github.com/dargueta/fatcat/file_systems/fat12"
	diskotest "github.com/dargueta/fatcat/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFileContents = "Hello, FAT12 disk"

func mustParseShortName(t *testing.T, name string) fat12.ShortName {
	shortName, err := fat12.ParseShortName(name)
	require.NoErrorf(t, err, "failed to parse %q", name)
	return shortName
}

func openSession(t *testing.T, image fat12.Image) *fat12.Session {
	session, err := fat12.Open(image)
	require.NoError(t, err, "failed to open image")
	t.Cleanup(func() { session.Close() })
	return session
}

// patternData returns `size` bytes that differ from cluster to cluster, so that
// reading clusters out of order is detectable.
func patternData(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i/512) ^ byte(i*7)
	}
	return data
}

func TestReadFileByName__1440K(t *testing.T) {
	builder := diskotest.NewImageBuilder(t, "1440k")
	builder.AddFile("OTHER   BIN", patternData(1000))
	builder.AddFile("TEST    TXT", []byte(testFileContents))

	session := openSession(t, builder.Stream())
	contents, err := session.ReadFileByName(mustParseShortName(t, "TEST    TXT"))
	require.NoError(t, err)

	require.Len(t, contents, 17)
	assert.Equal(t, testFileContents, string(contents))
}

func TestReadFileByName__NotFound(t *testing.T) {
	builder := diskotest.NewImageBuilder(t, "1440k")
	builder.AddFile("TEST    TXT", []byte(testFileContents))

	session := openSession(t, builder.Stream())
	_, err := session.ReadFileByName(mustParseShortName(t, "MISSING TXT"))
	assert.ErrorIs(t, err, errors.ErrNotFound)
	assert.Equal(t, errors.KindNotFound, errors.KindOf(err))
}

func TestReadFile__ReadsClustersInChainOrder(t *testing.T) {
	builder := diskotest.NewImageBuilder(t, "1440k")
	data := patternData(1500)
	builder.AddFile("THREE   BIN", data)

	image := diskotest.NewRecordingImage(builder.Stream())
	session := openSession(t, image)
	readsBeforeFile := len(image.Reads)

	contents, err := session.ReadFileByName(mustParseShortName(t, "three.bin"))
	require.NoError(t, err)
	assert.Equal(t, data, contents)

	assert.Equal(
		t,
		[]int64{33 * 512, 34 * 512, 35 * 512},
		image.ReadOffsetsSince(readsBeforeFile),
		"clusters 2, 3, 4 should've been read in that order")
}

func TestReadFile__FollowsScatteredChain(t *testing.T) {
	builder := diskotest.NewImageBuilder(t, "1440k")
	data := patternData(1400)
	clusters := []fat12.ClusterID{9, 4, 12}

	builder.LinkChain(clusters)
	builder.WriteChain(clusters, data)
	builder.AddEntry(
		fat12.DirectoryEntry{
			Name:            mustParseShortName(t, "SCATTER DAT"),
			FirstClusterLow: 9,
			FileSize:        uint32(len(data)),
		},
	)

	image := diskotest.NewRecordingImage(builder.Stream())
	session := openSession(t, image)

	chain, err := session.Chain(9)
	require.NoError(t, err)
	assert.Equal(t, clusters, chain)

	readsBeforeFile := len(image.Reads)
	contents, err := session.ReadFileByName(mustParseShortName(t, "SCATTER DAT"))
	require.NoError(t, err)
	assert.Equal(t, data, contents)
	assert.Equal(
		t,
		[]int64{(33 + 7) * 512, (33 + 2) * 512, (33 + 10) * 512},
		image.ReadOffsetsSince(readsBeforeFile))
}

func TestReadFile__MultiSectorClusters(t *testing.T) {
	builder := diskotest.NewImageBuilder(t, "720k")
	geo := builder.Geometry()
	require.EqualValues(t, 1024, geo.BytesPerCluster())

	data := patternData(2500)
	builder.AddFile("BIG     DAT", data)

	session := openSession(t, builder.Stream())
	contents, err := session.ReadFileByName(mustParseShortName(t, "BIG     DAT"))
	require.NoError(t, err)
	assert.Equal(t, data, contents)
}

func TestReadFile__ExactClusterMultiple(t *testing.T) {
	builder := diskotest.NewImageBuilder(t, "1440k")
	data := patternData(1024)
	builder.AddFile("EXACT   BIN", data)

	session := openSession(t, builder.Stream())
	contents, err := session.ReadFileByName(mustParseShortName(t, "EXACT   BIN"))
	require.NoError(t, err)
	assert.Equal(t, data, contents)
}

func TestReadFile__EmptyFile(t *testing.T) {
	builder := diskotest.NewImageBuilder(t, "1440k")
	builder.AddFile("EMPTY   TXT", []byte{})

	session := openSession(t, builder.Stream())
	contents, err := session.ReadFileByName(mustParseShortName(t, "EMPTY   TXT"))
	require.NoError(t, err)
	assert.NotNil(t, contents)
	assert.Empty(t, contents)
}

func TestReadFile__ChainLongerThanFile(t *testing.T) {
	builder := diskotest.NewImageBuilder(t, "1440k")
	data := patternData(1024)
	clusters := builder.AllocateClusters(2)
	builder.LinkChain(clusters)
	builder.WriteChain(clusters, data)
	builder.AddEntry(
		fat12.DirectoryEntry{
			Name:            mustParseShortName(t, "SHORT   TXT"),
			FirstClusterLow: uint16(clusters[0]),
			FileSize:        100,
		},
	)

	session := openSession(t, builder.Stream())
	contents, err := session.ReadFileByName(mustParseShortName(t, "SHORT   TXT"))
	require.NoError(t, err)
	assert.Equal(t, data[:100], contents)
}

func TestReadFile__Directory(t *testing.T) {
	builder := diskotest.NewImageBuilder(t, "1440k")
	clusters := builder.AllocateClusters(1)
	builder.LinkChain(clusters)
	builder.AddEntry(
		fat12.DirectoryEntry{
			Name:            mustParseShortName(t, "SUBDIR     "),
			AttributeFlags:  fat12.AttrDirectory,
			FirstClusterLow: uint16(clusters[0]),
		},
	)

	session := openSession(t, builder.Stream())
	_, err := session.ReadFileByName(mustParseShortName(t, "SUBDIR     "))
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
}

func TestReadFile__CorruptChains(t *testing.T) {
	tests := []struct {
		name         string
		firstCluster uint16
		fileSize     uint32
		fat          map[fat12.ClusterID]uint16
	}{
		{
			name:         "start cluster beyond FAT",
			firstCluster: 4000,
			fileSize:     10,
		},
		{
			name:         "start cluster reserved",
			firstCluster: 1,
			fileSize:     10,
		},
		{
			name:         "link beyond FAT",
			firstCluster: 2,
			fileSize:     1000,
			fat:          map[fat12.ClusterID]uint16{2: 0xF00},
		},
		{
			name:         "bad cluster",
			firstCluster: 2,
			fileSize:     1000,
			fat:          map[fat12.ClusterID]uint16{2: 0xFF7},
		},
		{
			name:         "free cluster in chain",
			firstCluster: 2,
			fileSize:     1000,
			fat:          map[fat12.ClusterID]uint16{2: 0x000},
		},
		{
			name:         "reserved value in chain",
			firstCluster: 2,
			fileSize:     1000,
			fat:          map[fat12.ClusterID]uint16{2: 0xFF3},
		},
		{
			name:         "cycle",
			firstCluster: 2,
			fileSize:     5000,
			fat:          map[fat12.ClusterID]uint16{2: 3, 3: 4, 4: 2},
		},
		{
			name:         "chain shorter than file",
			firstCluster: 2,
			fileSize:     2000,
			fat:          map[fat12.ClusterID]uint16{2: 3, 3: 0xFFF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := diskotest.NewImageBuilder(t, "1440k")
			for cluster, value := range tt.fat {
				builder.SetFATEntry(cluster, value)
			}
			builder.AddEntry(
				fat12.DirectoryEntry{
					Name:            mustParseShortName(t, "BROKEN  BIN"),
					FirstClusterLow: tt.firstCluster,
					FileSize:        tt.fileSize,
				},
			)

			session := openSession(t, builder.Stream())
			_, err := session.ReadFileByName(mustParseShortName(t, "BROKEN  BIN"))
			assert.ErrorIs(t, err, errors.ErrCorruptChain)
			assert.Equal(t, errors.KindCorruptChain, errors.KindOf(err))
		})
	}
}

func TestReadFile__SizeLargerThanVolume(t *testing.T) {
	builder := diskotest.NewImageBuilder(t, "1440k")
	builder.SetFATEntry(2, fat12.EntryMask)
	builder.AddEntry(
		fat12.DirectoryEntry{
			Name:            mustParseShortName(t, "HUGE    BIN"),
			FirstClusterLow: 2,
			FileSize:        0xFFFFFFFF,
		},
	)

	image := diskotest.NewRecordingImage(builder.Stream())
	session := openSession(t, image)
	readsBeforeFile := len(image.Reads)

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	_, err := session.ReadFileByName(mustParseShortName(t, "HUGE    BIN"))
	runtime.ReadMemStats(&after)

	assert.ErrorIs(t, err, errors.ErrCorruptChain)
	assert.Empty(t, image.ReadOffsetsSince(readsBeforeFile), "no clusters should be read")
	assert.Less(
		t,
		after.TotalAlloc-before.TotalAlloc,
		uint64(16*1024*1024),
		"buffer must not be sized from an impossible file size")
}

func TestReadFile__SizeFillsWholeFAT(t *testing.T) {
	// The largest size the FAT can describe is still accepted, and fails only
	// because the chain is short.
	builder := diskotest.NewImageBuilder(t, "1440k")
	builder.SetFATEntry(2, fat12.EntryMask)
	builder.AddEntry(
		fat12.DirectoryEntry{
			Name:            mustParseShortName(t, "FULL    BIN"),
			FirstClusterLow: 2,
			FileSize:        (3072 - 2) * 512,
		},
	)

	image := diskotest.NewRecordingImage(builder.Stream())
	session := openSession(t, image)
	readsBeforeFile := len(image.Reads)

	_, err := session.ReadFileByName(mustParseShortName(t, "FULL    BIN"))
	assert.ErrorIs(t, err, errors.ErrCorruptChain)
	assert.Equal(t, []int64{33 * 512}, image.ReadOffsetsSince(readsBeforeFile))
}

func TestChain__Cycle(t *testing.T) {
	builder := diskotest.NewImageBuilder(t, "1440k")
	builder.SetFATEntry(5, 6)
	builder.SetFATEntry(6, 5)

	session := openSession(t, builder.Stream())
	chain, err := session.Chain(5)
	assert.ErrorIs(t, err, errors.ErrCorruptChain)
	assert.Equal(t, []fat12.ClusterID{5, 6}, chain, "partial chain should be returned")
}

func TestOpen__TruncatedBootSector(t *testing.T) {
	full := diskotest.NewImageBuilder(t, "1440k").Bytes()
	image := diskotest.NewRecordingImage(bytes.NewReader(full[:40]))

	_, err := fat12.Open(image)
	assert.ErrorIs(t, err, errors.ErrTruncatedImage)
	assert.Equal(t, errors.KindTruncatedImage, errors.KindOf(err))

	for _, record := range image.Reads {
		assert.EqualValuesf(t, 0, record.Offset, "nothing past the boot sector should be read: %s", record)
	}
}

func TestOpen__EmptyImage(t *testing.T) {
	_, err := fat12.Open(bytes.NewReader([]byte{}))
	assert.ErrorIs(t, err, errors.ErrTruncatedImage)
}

func TestOpen__TruncatedFAT(t *testing.T) {
	full := diskotest.NewImageBuilder(t, "1440k").Bytes()

	_, err := fat12.Open(bytes.NewReader(full[:512*5]))
	assert.ErrorIs(t, err, errors.ErrTruncatedImage)
	assert.ErrorIs(t, err, errors.ErrRead, "original read error should be kept")
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestOpen__TruncatedRootDirectory(t *testing.T) {
	full := diskotest.NewImageBuilder(t, "1440k").Bytes()

	_, err := fat12.Open(bytes.NewReader(full[:512*19]))
	assert.ErrorIs(t, err, errors.ErrTruncatedImage)
}

func TestOpen__BlankImage(t *testing.T) {
	_, err := fat12.Open(bytes.NewReader(make([]byte, 4096)))
	assert.ErrorIs(t, err, errors.ErrInvalidGeometry)
}

func TestReadFile__TruncatedDataRegion(t *testing.T) {
	builder := diskotest.NewImageBuilder(t, "1440k")
	builder.AddFile("TEST    TXT", []byte(testFileContents))
	full := builder.Bytes()

	// Metadata is intact; cluster 2 at sector 33 is gone.
	session := openSession(t, bytes.NewReader(full[:512*33]))
	_, err := session.ReadFileByName(mustParseShortName(t, "TEST    TXT"))
	assert.ErrorIs(t, err, errors.ErrRead)
}

func TestSession__List(t *testing.T) {
	builder := diskotest.NewImageBuilder(t, "1440k")
	builder.AddEntry(
		fat12.DirectoryEntry{
			Name:           mustParseShortName(t, "FLOPPY     "),
			AttributeFlags: fat12.AttrVolumeLabel,
		},
	)
	builder.AddFile("a.txt", []byte("a"))
	builder.AddFile("b.txt", []byte("bb"))

	session := openSession(t, builder.Stream())
	assert.Len(t, session.RootDirectory(), 224)

	listing := session.List()
	require.Len(t, listing, 2)
	assert.Equal(t, "A.TXT", listing[0].Name.String())
	assert.Equal(t, "B.TXT", listing[1].Name.String())
	assert.EqualValues(t, 2, listing[1].FileSize)
}

func TestSession__Table(t *testing.T) {
	builder := diskotest.NewImageBuilder(t, "1440k")
	builder.AddFile("TEST    TXT", []byte(testFileContents))

	session := openSession(t, builder.Stream())
	table := session.Table()
	assert.EqualValues(t, 3072, table.EntryCount())

	value, err := table.Entry(0)
	require.NoError(t, err)
	assert.EqualValues(t, 0xFF0, value, "media descriptor should be in entry 0")

	value, err = table.Entry(2)
	require.NoError(t, err)
	assert.True(t, fat12.IsEndOfChain(value))
}
