package fat12

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/dargueta/fatcat/errors"
)

const (
	// AttrReadOnly is an attribute flag marking a directory entry as read-only.
	AttrReadOnly = 1 << iota

	// AttrHidden is an attribute flag marking a directory entry as "hidden", meaning it
	// wouldn't show up in normal directory listings.
	AttrHidden

	// AttrSystem is an attribute flag marking a directory entry as essential to the
	// operating system.
	AttrSystem

	// AttrVolumeLabel is an attribute flag that marks the entry as holding the volume
	// label instead of a file. It must reside in the root directory.
	AttrVolumeLabel

	// AttrDirectory is an attribute flag marking a directory entry as being a directory.
	AttrDirectory

	// AttrArchived is an attribute flag set by some systems whenever the entry is
	// created or modified, so backup tools know what to copy.
	AttrArchived
)

// Markers found in the first byte of a directory entry's name.
const (
	MarkerEndOfDirectory = 0x00
	MarkerDeleted        = 0xE5
)

// ShortNameLength is the size of an 8.3 name as stored on disk, without the dot.
const ShortNameLength = 11

// ShortName is an 8.3 file name in its on-disk form: eight bytes of stem and
// three of extension, both space-padded, no separator.
type ShortName [ShortNameLength]byte

// ParseShortName converts `name` into a ShortName.
//
// A name of exactly 11 bytes with no dot is taken verbatim, case included,
// since that's already the on-disk form ("TEST    TXT"). Anything else is
// treated as a dotted name ("test.txt"): it's upper-cased, and the stem and
// extension are padded with spaces.
func ParseShortName(name string) (ShortName, error) {
	var result ShortName

	if len(name) == ShortNameLength && !strings.Contains(name, ".") {
		copy(result[:], name)
		return result, nil
	}

	stem, extension, _ := strings.Cut(name, ".")
	if len(stem) == 0 || len(stem) > 8 {
		return result, errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("filename stem must be 1-8 characters: %q", stem))
	}
	if len(extension) > 3 {
		return result, errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("filename extension can be at most three characters: %q", extension))
	}

	paddedName := fmt.Sprintf("%-8s%-3s", stem, extension)
	copy(result[:], strings.ToUpper(paddedName))
	return result, nil
}

// String converts the name to its user-friendly form, e.g. "TEST    TXT" becomes
// "TEST.TXT".
func (name ShortName) String() string {
	stem := bytes.TrimRight(name[:8], " ")
	extension := bytes.TrimRight(name[8:], " ")

	if len(extension) > 0 {
		return string(stem) + "." + string(extension)
	}
	return string(stem)
}

// DirectoryEntry is the on-disk representation of a directory entry, broken down
// into its constituent fields.
type DirectoryEntry struct {
	Name              ShortName
	AttributeFlags    uint8
	NTReserved        uint8
	CreatedTimeTenths uint8
	CreatedTime       uint16
	CreatedDate       uint16
	LastAccessedDate  uint16
	FirstClusterHigh  uint16
	LastModifiedTime  uint16
	LastModifiedDate  uint16
	FirstClusterLow   uint16
	FileSize          uint32
}

// DecodeDirectoryEntry deserializes 32 bytes into a DirectoryEntry.
func DecodeDirectoryEntry(data []byte) (DirectoryEntry, error) {
	if len(data) < DirentSize {
		return DirectoryEntry{}, errors.ErrTruncatedImage.WithMessage(
			fmt.Sprintf("directory entry needs %d bytes, got %d", DirentSize, len(data)))
	}

	dirent := DirectoryEntry{
		AttributeFlags:    data[11],
		NTReserved:        data[12],
		CreatedTimeTenths: data[13],
		CreatedTime:       binary.LittleEndian.Uint16(data[14:16]),
		CreatedDate:       binary.LittleEndian.Uint16(data[16:18]),
		LastAccessedDate:  binary.LittleEndian.Uint16(data[18:20]),
		FirstClusterHigh:  binary.LittleEndian.Uint16(data[20:22]),
		LastModifiedTime:  binary.LittleEndian.Uint16(data[22:24]),
		LastModifiedDate:  binary.LittleEndian.Uint16(data[24:26]),
		FirstClusterLow:   binary.LittleEndian.Uint16(data[26:28]),
		FileSize:          binary.LittleEndian.Uint32(data[28:32]),
	}
	copy(dirent.Name[:], data[:ShortNameLength])
	return dirent, nil
}

// Encode serializes the entry into its 32-byte on-disk form.
func (d *DirectoryEntry) Encode() []byte {
	data := make([]byte, DirentSize)
	copy(data[:ShortNameLength], d.Name[:])
	data[11] = d.AttributeFlags
	data[12] = d.NTReserved
	data[13] = d.CreatedTimeTenths
	binary.LittleEndian.PutUint16(data[14:16], d.CreatedTime)
	binary.LittleEndian.PutUint16(data[16:18], d.CreatedDate)
	binary.LittleEndian.PutUint16(data[18:20], d.LastAccessedDate)
	binary.LittleEndian.PutUint16(data[20:22], d.FirstClusterHigh)
	binary.LittleEndian.PutUint16(data[22:24], d.LastModifiedTime)
	binary.LittleEndian.PutUint16(data[24:26], d.LastModifiedDate)
	binary.LittleEndian.PutUint16(data[26:28], d.FirstClusterLow)
	binary.LittleEndian.PutUint32(data[28:32], d.FileSize)
	return data
}

// FirstCluster returns the first cluster of the entry's data. FAT12 only uses
// the low word; the high word is always zero.
func (d *DirectoryEntry) FirstCluster() ClusterID {
	return ClusterID(d.FirstClusterLow)
}

func (d *DirectoryEntry) IsDeleted() bool {
	return d.Name[0] == MarkerDeleted
}

func (d *DirectoryEntry) IsEndOfDirectory() bool {
	return d.Name[0] == MarkerEndOfDirectory
}

func (d *DirectoryEntry) IsDirectory() bool {
	return d.AttributeFlags&AttrDirectory != 0
}

func (d *DirectoryEntry) IsVolumeLabel() bool {
	return d.AttributeFlags&AttrVolumeLabel != 0
}

// LastModified converts the packed last-modified date and time into a
// time.Time in UTC. A zero day or month makes the date invalid, in which case
// the zero time.Time is returned.
func (d *DirectoryEntry) LastModified() time.Time {
	return TimestampFromParts(d.LastModifiedDate, d.LastModifiedTime)
}

// TimestampFromParts converts a FAT date and time into a time.Time.
//
// Date bits 0-4 are the day, 5-8 the month, 9-15 years since 1980. Time bits
// 0-4 are seconds divided by 2, 5-10 minutes, 11-15 hours.
func TimestampFromParts(datePart uint16, timePart uint16) time.Time {
	day := int(datePart & 0x001f)
	month := time.Month((datePart >> 5) & 0x000f)
	year := 1980 + int(datePart>>9)

	if day == 0 || month == 0 {
		return time.Time{}
	}

	seconds := int(timePart&0x001f) * 2
	minutes := int((timePart >> 5) & 0x003f)
	hours := int(timePart >> 11)

	return time.Date(year, month, day, hours, minutes, seconds, 0, time.UTC)
}

// LoadRootDirectory reads the root directory and splits it into exactly
// RootEntryCount entries. Entries are returned as they are on disk, including
// deleted and unused ones.
func LoadRootDirectory(reader *SectorReader, geo *Geometry) ([]DirectoryEntry, error) {
	if geo.RootEntryCount == 0 {
		return []DirectoryEntry{}, nil
	}

	data, err := reader.ReadSectors(geo.RootDirStart(), geo.RootDirSectors())
	if err != nil {
		return nil, err
	}

	entries := make([]DirectoryEntry, geo.RootEntryCount)
	for i := range entries {
		offset := i * DirentSize
		entries[i], err = DecodeDirectoryEntry(data[offset : offset+DirentSize])
		if err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// FindEntry returns the first entry whose raw name is exactly `name`, compared
// byte for byte. Deleted entries and entries past the end-of-directory marker
// are compared like any other; a deleted entry's first byte is 0xE5, so it can
// only match a name that itself starts with 0xE5.
//
// The second return value is false if nothing matched. That's a normal outcome,
// not an error.
func FindEntry(entries []DirectoryEntry, name ShortName) (DirectoryEntry, bool) {
	for _, entry := range entries {
		if entry.Name == name {
			return entry, true
		}
	}
	return DirectoryEntry{}, false
}

// LiveEntries returns the entries a directory listing would show: everything
// before the first end-of-directory marker, minus deleted entries and the
// volume label.
func LiveEntries(entries []DirectoryEntry) []DirectoryEntry {
	live := []DirectoryEntry{}
	for _, entry := range entries {
		if entry.IsEndOfDirectory() {
			break
		}
		if entry.IsDeleted() || entry.IsVolumeLabel() {
			continue
		}
		live = append(live, entry)
	}
	return live
}
