// Package fat12 reads files out of the root directory of a FAT12 disk image by
// walking the boot sector, the file allocation table, and cluster chains.
//
// The reader is read-only and never consults anything but the first copy of
// the FAT. Subdirectories are not traversed.
package fat12

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/dargueta/fatcat/errors"
)

type SectorID uint32
type ClusterID uint16

// BootSectorSize is the number of bytes of the boot sector that are decoded:
// the BIOS parameter block followed by the extended boot record.
const BootSectorSize = 62

// DirentSize is the size of a single raw directory entry, in bytes.
const DirentSize = 32

// Geometry is the decoded boot sector. All on-disk positions used by the
// reader are derived from it; nothing is hardcoded.
//
// Derived quantities (root directory span, start of the data region, etc.) are
// computed by methods and never stored, so they can't drift from the fields.
type Geometry struct {
	JmpBoot           [3]byte
	OEMNameRaw        [8]byte
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	RootEntryCount    uint16
	TotalSectors16    uint16
	Media             uint8
	SectorsPerFAT     uint16
	SectorsPerTrack   uint16
	NumHeads          uint16
	HiddenSectors     uint32
	LargeSectorCount  uint32

	// Extended boot record
	DriveNumber      uint8
	Reserved         uint8
	BootSignature    uint8
	SerialNumber     [4]byte
	VolumeLabelRaw   [11]byte
	FileSystemTypeID [8]byte
}

// DecodeBootSector decodes the fixed-layout header at the start of `data`.
// `data` may be longer than [BootSectorSize] (normally it's the whole first
// sector); the extra bytes are ignored.
//
// Fields are decoded one by one at their documented offsets, all multi-byte
// values little-endian. The FAT extended boot signature is not checked: images
// without it are accepted, with whatever happens to be in the extended boot
// record fields.
func DecodeBootSector(data []byte) (Geometry, error) {
	if len(data) < BootSectorSize {
		return Geometry{}, errors.ErrTruncatedImage.WithMessage(
			fmt.Sprintf(
				"boot sector needs %d bytes, only %d available", BootSectorSize, len(data)))
	}

	geo := Geometry{
		BytesPerSector:    binary.LittleEndian.Uint16(data[11:13]),
		SectorsPerCluster: data[13],
		ReservedSectors:   binary.LittleEndian.Uint16(data[14:16]),
		NumFATs:           data[16],
		RootEntryCount:    binary.LittleEndian.Uint16(data[17:19]),
		TotalSectors16:    binary.LittleEndian.Uint16(data[19:21]),
		Media:             data[21],
		SectorsPerFAT:     binary.LittleEndian.Uint16(data[22:24]),
		SectorsPerTrack:   binary.LittleEndian.Uint16(data[24:26]),
		NumHeads:          binary.LittleEndian.Uint16(data[26:28]),
		HiddenSectors:     binary.LittleEndian.Uint32(data[28:32]),
		LargeSectorCount:  binary.LittleEndian.Uint32(data[32:36]),
		DriveNumber:       data[36],
		Reserved:          data[37],
		BootSignature:     data[38],
	}

	copy(geo.JmpBoot[:], data[0:3])
	copy(geo.OEMNameRaw[:], data[3:11])
	copy(geo.SerialNumber[:], data[39:43])
	copy(geo.VolumeLabelRaw[:], data[43:54])
	copy(geo.FileSystemTypeID[:], data[54:62])

	// These three are divisors or multipliers of everything else. A zero here
	// means this isn't a FAT file system at all (or the image is blank).
	if geo.BytesPerSector == 0 {
		return Geometry{}, errors.ErrInvalidGeometry.WithMessage("bytes per sector is 0")
	}
	if geo.SectorsPerCluster == 0 {
		return Geometry{}, errors.ErrInvalidGeometry.WithMessage("sectors per cluster is 0")
	}
	if geo.NumFATs == 0 {
		return Geometry{}, errors.ErrInvalidGeometry.WithMessage("number of FATs is 0")
	}

	return geo, nil
}

// Encode serializes the geometry back into its on-disk form. The returned slice
// is exactly [BootSectorSize] bytes.
func (geo *Geometry) Encode() []byte {
	data := make([]byte, BootSectorSize)

	copy(data[0:3], geo.JmpBoot[:])
	copy(data[3:11], geo.OEMNameRaw[:])
	binary.LittleEndian.PutUint16(data[11:13], geo.BytesPerSector)
	data[13] = geo.SectorsPerCluster
	binary.LittleEndian.PutUint16(data[14:16], geo.ReservedSectors)
	data[16] = geo.NumFATs
	binary.LittleEndian.PutUint16(data[17:19], geo.RootEntryCount)
	binary.LittleEndian.PutUint16(data[19:21], geo.TotalSectors16)
	data[21] = geo.Media
	binary.LittleEndian.PutUint16(data[22:24], geo.SectorsPerFAT)
	binary.LittleEndian.PutUint16(data[24:26], geo.SectorsPerTrack)
	binary.LittleEndian.PutUint16(data[26:28], geo.NumHeads)
	binary.LittleEndian.PutUint32(data[28:32], geo.HiddenSectors)
	binary.LittleEndian.PutUint32(data[32:36], geo.LargeSectorCount)
	data[36] = geo.DriveNumber
	data[37] = geo.Reserved
	data[38] = geo.BootSignature
	copy(data[39:43], geo.SerialNumber[:])
	copy(data[43:54], geo.VolumeLabelRaw[:])
	copy(data[54:62], geo.FileSystemTypeID[:])
	return data
}

// RootDirSectors gives the number of sectors occupied by the root directory,
// rounded up to a whole sector.
func (geo *Geometry) RootDirSectors() uint {
	bytesPerSector := uint(geo.BytesPerSector)
	return (uint(geo.RootEntryCount)*DirentSize + bytesPerSector - 1) / bytesPerSector
}

// FATStart is the first sector of the first copy of the FAT.
func (geo *Geometry) FATStart() SectorID {
	return SectorID(geo.ReservedSectors)
}

// RootDirStart is the first sector of the root directory, immediately after all
// copies of the FAT.
func (geo *Geometry) RootDirStart() SectorID {
	return SectorID(uint(geo.ReservedSectors) + uint(geo.NumFATs)*uint(geo.SectorsPerFAT))
}

// DataRegionStart is the sector where cluster 2 begins.
func (geo *Geometry) DataRegionStart() SectorID {
	return geo.RootDirStart() + SectorID(geo.RootDirSectors())
}

// ClusterToLBA returns the first sector of `cluster`. Clusters are numbered from
// 2; the caller must not pass 0 or 1.
func (geo *Geometry) ClusterToLBA(cluster ClusterID) SectorID {
	return geo.DataRegionStart() + SectorID(uint(cluster-2)*uint(geo.SectorsPerCluster))
}

// FATSize gives the size of one copy of the FAT, in bytes.
func (geo *Geometry) FATSize() uint {
	return uint(geo.SectorsPerFAT) * uint(geo.BytesPerSector)
}

// BytesPerCluster gives the size of a single cluster, in bytes.
func (geo *Geometry) BytesPerCluster() uint {
	return uint(geo.SectorsPerCluster) * uint(geo.BytesPerSector)
}

// TotalSectors gives the size of the volume in sectors. The 16-bit field is
// used unless it's 0, in which case the volume is too big for it and the 32-bit
// field holds the count.
func (geo *Geometry) TotalSectors() uint {
	if geo.TotalSectors16 != 0 {
		return uint(geo.TotalSectors16)
	}
	return uint(geo.LargeSectorCount)
}

// TotalClusters gives the number of whole clusters that fit in the data region.
func (geo *Geometry) TotalClusters() uint {
	dataStart := uint(geo.DataRegionStart())
	if geo.TotalSectors() <= dataStart {
		return 0
	}
	return (geo.TotalSectors() - dataStart) / uint(geo.SectorsPerCluster)
}

// HasExtendedBootSignature returns true if the boot signature byte marks the
// extended boot record fields as valid. DOS 4.0 uses 0x29; 0x28 only has the
// serial number.
func (geo *Geometry) HasExtendedBootSignature() bool {
	return geo.BootSignature == 0x29 || geo.BootSignature == 0x28
}

// OEMName returns the OEM name with trailing spaces and nulls removed.
func (geo *Geometry) OEMName() string {
	return string(bytes.TrimRight(geo.OEMNameRaw[:], " \x00"))
}

// VolumeLabel returns the volume label from the extended boot record with
// trailing spaces and nulls removed.
func (geo *Geometry) VolumeLabel() string {
	return string(bytes.TrimRight(geo.VolumeLabelRaw[:], " \x00"))
}

// SerialNumberValue returns the volume serial number as a single integer.
func (geo *Geometry) SerialNumberValue() uint32 {
	return binary.LittleEndian.Uint32(geo.SerialNumber[:])
}
