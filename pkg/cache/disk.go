package cache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"
)

// ErrCorruptEntry is returned when a disk entry cannot be decoded.
var ErrCorruptEntry = errors.New("corrupt cache entry")

// Entry layout: magic, encoding byte, little-endian uint32 plain length,
// then the payload.
const (
	entryMagic     = "rb2j"
	headerSize     = len(entryMagic) + 1 + 4
	encodingRaw    = byte(0)
	encodingLZ4    = byte(1)
	entryExtension = ".lz4"
	dirPerm        = 0o750
	filePerm       = 0o600
	fanoutWidth    = 2
)

// Disk persists results as LZ4-compressed files under a directory,
// fanned out by the first byte of the key.
type Disk struct {
	dir string
}

// NewDisk creates the cache directory if needed.
func NewDisk(dir string) (*Disk, error) {
	err := os.MkdirAll(dir, dirPerm)
	if err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	return &Disk{dir: dir}, nil
}

// Dir returns the cache directory.
func (disk *Disk) Dir() string {
	return disk.dir
}

func (disk *Disk) path(key Key) string {
	name := key.String()

	return filepath.Join(disk.dir, name[:fanoutWidth], name[fanoutWidth:]+entryExtension)
}

// Get reads the entry for key. A missing entry is not an error.
func (disk *Disk) Get(key Key) (string, bool, error) {
	data, err := os.ReadFile(disk.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("read cache entry: %w", err)
	}

	output, err := decodeEntry(data)
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", key, err)
	}

	return output, true, nil
}

// Put writes the entry for key atomically.
func (disk *Disk) Put(key Key, output string) error {
	path := disk.path(key)

	err := os.MkdirAll(filepath.Dir(path), dirPerm)
	if err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".entry-*")
	if err != nil {
		return fmt.Errorf("create cache entry: %w", err)
	}

	_, writeErr := tmp.Write(encodeEntry(output))
	closeErr := tmp.Close()

	if writeErr != nil || closeErr != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("write cache entry: %w", errors.Join(writeErr, closeErr))
	}

	err = os.Chmod(tmp.Name(), filePerm)
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}

	if err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("commit cache entry: %w", err)
	}

	return nil
}

func encodeEntry(output string) []byte {
	plain := []byte(output)
	header := make([]byte, headerSize)

	copy(header, entryMagic)
	binary.LittleEndian.PutUint32(header[len(entryMagic)+1:], uint32(len(plain))) //nolint:gosec // outputs are far below 4 GiB.

	compressed := make([]byte, lz4.CompressBlockBound(len(plain)))

	written, err := lz4.CompressBlock(plain, compressed, nil)
	if err != nil || written == 0 || written >= len(plain) {
		header[len(entryMagic)] = encodingRaw

		return append(header, plain...)
	}

	header[len(entryMagic)] = encodingLZ4

	return append(header, compressed[:written]...)
}

func decodeEntry(data []byte) (string, error) {
	if len(data) < headerSize || !bytes.HasPrefix(data, []byte(entryMagic)) {
		return "", ErrCorruptEntry
	}

	encoding := data[len(entryMagic)]
	size := binary.LittleEndian.Uint32(data[len(entryMagic)+1:])
	payload := data[headerSize:]

	switch encoding {
	case encodingRaw:
		if uint32(len(payload)) != size { //nolint:gosec // bounded by file size.
			return "", ErrCorruptEntry
		}

		return string(payload), nil
	case encodingLZ4:
		plain := make([]byte, size)

		read, err := lz4.UncompressBlock(payload, plain)
		if err != nil || uint32(read) != size { //nolint:gosec // bounded by size.
			return "", ErrCorruptEntry
		}

		return string(plain), nil
	default:
		return "", ErrCorruptEntry
	}
}
