package fat12

import (
	"fmt"
	"io"

	"github.com/dargueta/fatcat/errors"
)

// Image is the backing stream of a disk image. [os.File] and [afero.File]
// both satisfy it.
//
//go:generate mockgen -destination=../../testing/mockimage/image_mock.go -package=mockimage github.com/dargueta/fatcat/file_systems/fat12 Image
type Image interface {
	io.Reader
	io.Seeker
}

// SectorReader reads whole sectors from an image by absolute sector number.
//
// Every read seeks to its own offset and puts the stream pointer back at the
// start of the image afterward, so no read depends on where a previous one left
// the stream.
type SectorReader struct {
	image          Image
	bytesPerSector uint
}

// NewSectorReader creates a SectorReader over `image` using the sector size
// from the file system's geometry.
func NewSectorReader(image Image, bytesPerSector uint) *SectorReader {
	return &SectorReader{
		image:          image,
		bytesPerSector: bytesPerSector,
	}
}

// BytesPerSector returns the size of a single sector, in bytes.
func (reader *SectorReader) BytesPerSector() uint {
	return reader.bytesPerSector
}

// ReadSectors reads `count` sectors starting at `lba` into a new buffer.
func (reader *SectorReader) ReadSectors(lba SectorID, count uint) ([]byte, error) {
	buffer := make([]byte, count*reader.bytesPerSector)
	err := reader.ReadSectorsInto(lba, count, buffer)
	if err != nil {
		return nil, err
	}
	return buffer, nil
}

// ReadSectorsInto reads `count` sectors starting at `lba` into the beginning of
// `buffer`, which must hold at least `count` sectors.
//
// Bounds aren't checked against the size of the image. Reading past the end
// shows up as a short read, which fails with [errors.ErrRead].
func (reader *SectorReader) ReadSectorsInto(lba SectorID, count uint, buffer []byte) error {
	if count == 0 {
		return errors.ErrInvalidArgument.WithMessage("sector count must be at least 1")
	}

	readSize := count * reader.bytesPerSector
	if uint(len(buffer)) < readSize {
		return errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"buffer of %d bytes can't hold %d sectors of %d bytes",
				len(buffer),
				count,
				reader.bytesPerSector))
	}

	offset := int64(lba) * int64(reader.bytesPerSector)
	_, err := reader.image.Seek(offset, io.SeekStart)
	if err != nil {
		return errors.ErrRead.Wrap(err).WithMessage(
			fmt.Sprintf("failed to seek to sector %d (offset %d)", lba, offset))
	}

	nRead, readErr := io.ReadFull(reader.image, buffer[:readSize])

	// Rewind even if the read failed. The read error takes precedence.
	_, rewindErr := reader.image.Seek(0, io.SeekStart)

	if readErr != nil {
		return errors.ErrRead.Wrap(readErr).WithMessage(
			fmt.Sprintf(
				"read %d of %d bytes from sector %d (%d sectors)", nRead, readSize, lba, count))
	}
	if rewindErr != nil {
		return errors.ErrRead.Wrap(rewindErr).WithMessage("failed to rewind image")
	}
	return nil
}
