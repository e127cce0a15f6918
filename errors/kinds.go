// Error kinds reported by the FAT12 reader. Every failure the reader can return
// belongs to exactly one of these, and callers are expected to branch on the
// kind rather than on the message.

package errors

import (
	"fmt"
)

type Kind int

const (
	KindOK Kind = iota
	// KindTruncatedImage means the boot sector, FAT, or root directory region
	// is shorter than the geometry declares.
	KindTruncatedImage
	// KindRead is an I/O fault or short read on a sector read.
	KindRead
	// KindCorruptChain means a cluster chain referenced a cluster outside the
	// FAT, a free or reserved cluster, a bad cluster, or looped back on itself.
	KindCorruptChain
	// KindNotFound is returned when a directory lookup has no match. It is an
	// absence result, not a hard failure.
	KindNotFound
	KindInvalidArgument
	// KindInvalidGeometry means the boot sector has a zero value in a field
	// that every other computation divides or multiplies by.
	KindInvalidGeometry
	// KindUnknown is reported by [KindOf] for errors that didn't originate in
	// this package.
	KindUnknown
)

var messagesByKind = map[Kind]string{
	KindOK:              "Success",
	KindTruncatedImage:  "Truncated disk image",
	KindRead:            "Input/output error",
	KindCorruptChain:    "Corrupted cluster chain",
	KindNotFound:        "No such file or directory",
	KindInvalidArgument: "Invalid argument",
	KindInvalidGeometry: "Invalid file system geometry",
	KindUnknown:         "Unknown error",
}

var ErrTruncatedImage = New(KindTruncatedImage)
var ErrRead = New(KindRead)
var ErrCorruptChain = New(KindCorruptChain)
var ErrNotFound = New(KindNotFound)
var ErrInvalidArgument = New(KindInvalidArgument)
var ErrInvalidGeometry = New(KindInvalidGeometry)

// String returns the default message for the error kind.
func (k Kind) String() string {
	message, ok := messagesByKind[k]
	if ok {
		return message
	}
	return fmt.Sprintf("error kind %d not recognized", int(k))
}
