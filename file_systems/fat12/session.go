package fat12

import (
	stderrors "errors"
	"fmt"
	"io"

	"github.com/dargueta/fatcat/errors"
)

// Session is an open FAT12 file system. The boot sector, FAT and root directory
// are loaded once by [Open] and never modified.
//
// A Session is not safe for concurrent use: every read seeks the shared image
// stream.
type Session struct {
	image   Image
	geo     Geometry
	reader  *SectorReader
	table   *Table
	rootDir []DirectoryEntry
	walker  *ChainWalker
}

// Open decodes the boot sector of `image`, then loads the FAT and root
// directory. Nothing beyond the boot sector is read if it's truncated or its
// geometry is unusable.
//
// The Session doesn't take ownership of `image`; the caller must close it
// after calling [Session.Close].
func Open(image Image) (*Session, error) {
	geo, err := readBootSector(image)
	if err != nil {
		return nil, err
	}

	reader := NewSectorReader(image, uint(geo.BytesPerSector))

	table, err := LoadTable(reader, &geo)
	if err != nil {
		return nil, asTruncation(err, "FAT")
	}

	rootDir, err := LoadRootDirectory(reader, &geo)
	if err != nil {
		return nil, asTruncation(err, "root directory")
	}

	session := &Session{
		image:   image,
		geo:     geo,
		reader:  reader,
		table:   table,
		rootDir: rootDir,
	}
	session.walker = NewChainWalker(reader, table, &session.geo)
	return session, nil
}

// readBootSector reads up to one 512-byte sector from the start of the image
// and decodes it. The sector size isn't known yet, so this can't go through a
// SectorReader.
func readBootSector(image Image) (Geometry, error) {
	_, err := image.Seek(0, io.SeekStart)
	if err != nil {
		return Geometry{}, errors.ErrRead.Wrap(err).WithMessage("failed to seek to boot sector")
	}

	buffer := make([]byte, 512)
	nRead, err := io.ReadFull(image, buffer)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return Geometry{}, errors.ErrRead.Wrap(err).WithMessage("failed to read boot sector")
	}

	_, err = image.Seek(0, io.SeekStart)
	if err != nil {
		return Geometry{}, errors.ErrRead.Wrap(err).WithMessage("failed to rewind image")
	}

	return DecodeBootSector(buffer[:nRead])
}

// asTruncation converts a short read of a metadata region into
// [errors.ErrTruncatedImage]. The original read error stays in the chain, so
// the result matches [errors.ErrRead] too. Other failures pass through as-is.
func asTruncation(err error, region string) error {
	if stderrors.Is(err, io.ErrUnexpectedEOF) || stderrors.Is(err, io.EOF) {
		return errors.ErrTruncatedImage.Wrap(err).WithMessage(
			fmt.Sprintf("image ends inside the %s", region))
	}
	return err
}

// Close drops the session's references to the FAT and root directory so they
// can be garbage collected. It doesn't close the image, which still belongs to
// the caller. The Session must not be used afterward.
func (session *Session) Close() error {
	session.table = nil
	session.rootDir = nil
	session.walker = nil
	session.reader = nil
	session.image = nil
	return nil
}

// Geometry returns a copy of the decoded boot sector.
func (session *Session) Geometry() Geometry {
	return session.geo
}

// Table returns the loaded FAT.
func (session *Session) Table() *Table {
	return session.table
}

// ClusterUsage maps which clusters of the data region are allocated.
func (session *Session) ClusterUsage() ClusterUsage {
	return NewClusterUsage(session.table, session.geo.TotalClusters())
}

// RootDirectory returns every entry of the root directory as stored on disk.
// The returned slice must not be modified.
func (session *Session) RootDirectory() []DirectoryEntry {
	return session.rootDir
}

// List returns the live entries of the root directory; see [LiveEntries].
func (session *Session) List() []DirectoryEntry {
	return LiveEntries(session.rootDir)
}

// Find looks up an entry in the root directory by its exact 8.3 name. The
// second return value is false if there's no such entry.
func (session *Session) Find(name ShortName) (DirectoryEntry, bool) {
	return FindEntry(session.rootDir, name)
}

// Chain returns the clusters of the chain beginning at `start`.
func (session *Session) Chain(start ClusterID) ([]ClusterID, error) {
	return session.walker.Chain(start)
}

// ReadFile returns exactly entry.FileSize bytes of the entry's data.
func (session *Session) ReadFile(entry *DirectoryEntry) ([]byte, error) {
	if entry.IsDirectory() {
		return nil, errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("%q is a directory", entry.Name.String()))
	}
	return session.walker.ReadFile(entry)
}

// ReadFileByName looks up `name` in the root directory and reads it. If there's
// no such entry it fails with [errors.ErrNotFound].
func (session *Session) ReadFileByName(name ShortName) ([]byte, error) {
	entry, found := session.Find(name)
	if !found {
		return nil, errors.ErrNotFound.WithMessage(fmt.Sprintf("%q", string(name[:])))
	}
	return session.ReadFile(&entry)
}
