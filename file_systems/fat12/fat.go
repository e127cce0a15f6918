package fat12

import (
	"fmt"

	"github.com/dargueta/fatcat/errors"
)

// Special values of FAT12 entries.
const (
	EntryFree             = 0x000
	EntryReserved         = 0x001
	EntryFirstReservedEnd = 0xFF0
	EntryLastReservedEnd  = 0xFF6
	EntryBadCluster       = 0xFF7
	// EntryEndOfChain is the smallest end-of-chain marker. Any value in
	// [0xFF8, 0xFFF] ends a chain; 0xFFF is what formatters normally write.
	EntryEndOfChain = 0xFF8
	EntryMask       = 0xFFF
)

// GetEntry12 returns the `index`th 12-bit entry of a packed FAT12 table. Two
// entries are packed into three bytes, little-endian: an even entry is the low
// 12 bits of the 16-bit word at byte `index*3/2`, an odd entry the high 12
// bits of the word at the same offset.
//
// `table` must be long enough to hold the entry; see [EntryCount].
func GetEntry12(table []byte, index uint) uint16 {
	offset := index + index/2
	word := uint16(table[offset]) | uint16(table[offset+1])<<8

	if index%2 == 0 {
		return word & EntryMask
	}
	return word >> 4
}

// PutEntry12 stores `value` as the `index`th 12-bit entry of a packed FAT12
// table without disturbing the neighboring entry that shares a byte with it.
// Only the low 12 bits of `value` are used.
func PutEntry12(table []byte, index uint, value uint16) {
	offset := index + index/2
	value &= EntryMask

	if index%2 == 0 {
		table[offset] = byte(value)
		table[offset+1] = (table[offset+1] & 0xF0) | byte(value>>8)
	} else {
		table[offset] = (table[offset] & 0x0F) | byte(value<<4)
		table[offset+1] = byte(value >> 4)
	}
}

// EntryCount gives the number of complete 12-bit entries that fit in a table of
// `tableSize` bytes.
func EntryCount(tableSize uint) uint {
	return tableSize * 2 / 3
}

// IsEndOfChain returns true if `value` marks the last cluster of a chain.
func IsEndOfChain(value uint16) bool {
	return value >= EntryEndOfChain && value <= EntryMask
}

// IsBadCluster returns true if `value` marks a cluster as unusable.
func IsBadCluster(value uint16) bool {
	return value == EntryBadCluster
}

// IsReservedEntry returns true if `value` is one of the values that must never
// appear as a link in a chain.
func IsReservedEntry(value uint16) bool {
	return value == EntryReserved ||
		(value >= EntryFirstReservedEnd && value <= EntryLastReservedEnd)
}

// Table is an in-memory copy of the first FAT of the volume. It's never
// modified once loaded.
type Table struct {
	data []byte
}

// NewTable wraps a raw FAT12 table. The slice is not copied.
func NewTable(data []byte) *Table {
	return &Table{data: data}
}

// LoadTable reads the first copy of the FAT. Additional copies are never read,
// and the copies aren't compared against each other.
func LoadTable(reader *SectorReader, geo *Geometry) (*Table, error) {
	if geo.SectorsPerFAT == 0 {
		return NewTable([]byte{}), nil
	}

	data, err := reader.ReadSectors(geo.FATStart(), uint(geo.SectorsPerFAT))
	if err != nil {
		return nil, err
	}
	return NewTable(data), nil
}

// Bytes returns the raw table. It must not be modified.
func (table *Table) Bytes() []byte {
	return table.data
}

// EntryCount gives the number of addressable entries in the table, including
// the two reserved ones at the start.
func (table *Table) EntryCount() uint {
	return EntryCount(uint(len(table.data)))
}

// Entry returns the raw value of the entry for `cluster`. If the cluster is
// outside the table, it fails with [errors.ErrCorruptChain] instead of reading
// out of bounds.
func (table *Table) Entry(cluster ClusterID) (uint16, error) {
	if uint(cluster) >= table.EntryCount() {
		return 0, errors.ErrCorruptChain.WithMessage(
			fmt.Sprintf(
				"cluster %d not in range [0, %d) of the FAT", cluster, table.EntryCount()))
	}
	return GetEntry12(table.data, uint(cluster)), nil
}
