package storage

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	stagingDir = "0_unprocessed"
	fileExt    = ".json.zst.enc"
	dirPerm    = 0o750
	filePerm   = 0o640
)

var ErrCorruptFile = errors.New("raw file is corrupt or was encrypted with another key")

// Location is the permanent folder of a raw file.
type Location struct {
	ConsortiumID int64
	InstID       int64
	ProvID       int64
}

// FileName derives a raw file name from the harvest ID, which keeps
// concurrent workers from ever writing the same file.
func FileName(harvestID int64, report, begin, end string) string {
	return fmt.Sprintf("%d_%s_%s_%s%s", harvestID, strings.ToUpper(report), begin, end, fileExt)
}

// Store keeps raw payloads zstd-compressed and XChaCha20-Poly1305 sealed.
// The file name is bound as additional data, so a file renamed onto
// another harvest fails to open.
type Store struct {
	root string
	aead cipher.AEAD
	enc  *zstd.Encoder
	dec  *zstd.Decoder
}

func NewStore(root string, key []byte) (*Store, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create raw file cipher")
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create zstd encoder")
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create zstd decoder")
	}
	return &Store{root: root, aead: aead, enc: enc, dec: dec}, nil
}

func (s *Store) Close() {
	s.enc.Close()
	s.dec.Close()
}

func (s *Store) stagingPath(consortiumID int64, name string) string {
	return filepath.Join(s.root, strconv.FormatInt(consortiumID, 10), stagingDir, name)
}

// Path returns where a promoted raw file lives.
func (s *Store) Path(loc Location, name string) string {
	return filepath.Join(s.root,
		strconv.FormatInt(loc.ConsortiumID, 10),
		strconv.FormatInt(loc.InstID, 10),
		strconv.FormatInt(loc.ProvID, 10),
		name)
}

// Stage writes raw into the consortium's unprocessed folder.
func (s *Store) Stage(consortiumID int64, name string, raw []byte) error {
	path := s.stagingPath(consortiumID, name)
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return errors.Wrap(err, "failed to create staging directory")
	}
	sealed, err := s.seal(name, raw)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, sealed, filePerm); err != nil {
		return errors.Wrapf(err, "failed to write staged file %s", name)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "failed to finalize staged file %s", name)
	}
	return nil
}

// Promote moves a staged file into its permanent folder, replacing any
// earlier copy.
func (s *Store) Promote(loc Location, name string) error {
	dst := s.Path(loc, name)
	if err := os.MkdirAll(filepath.Dir(dst), dirPerm); err != nil {
		return errors.Wrap(err, "failed to create report directory")
	}
	if err := os.Rename(s.stagingPath(loc.ConsortiumID, name), dst); err != nil {
		return errors.Wrapf(err, "failed to promote %s", name)
	}
	return nil
}

// Discard removes a staged file. A missing file is not an error.
func (s *Store) Discard(consortiumID int64, name string) error {
	return removeIfExists(s.stagingPath(consortiumID, name))
}

// Remove deletes a promoted file. A missing file is not an error.
func (s *Store) Remove(loc Location, name string) error {
	return removeIfExists(s.Path(loc, name))
}

// Read opens a promoted file and returns the original payload.
func (s *Store) Read(loc Location, name string) ([]byte, error) {
	sealed, err := os.ReadFile(s.Path(loc, name))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", name)
	}
	return s.open(name, sealed)
}

func (s *Store) seal(name string, raw []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(raw)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Wrap(err, "failed to generate nonce")
	}
	compressed := s.enc.EncodeAll(raw, nil)
	return s.aead.Seal(nonce, nonce, compressed, []byte(name)), nil
}

func (s *Store) open(name string, sealed []byte) ([]byte, error) {
	ns := s.aead.NonceSize()
	if len(sealed) < ns+s.aead.Overhead() {
		return nil, ErrCorruptFile
	}
	compressed, err := s.aead.Open(nil, sealed[:ns], sealed[ns:], []byte(name))
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, name), ErrCorruptFile)
	}
	raw, err := s.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decompress %s", name)
	}
	return raw, nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrapf(err, "failed to remove %s", filepath.Base(path))
	}
	return nil
}
