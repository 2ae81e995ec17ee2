package store

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/docdex/docdex/internal/document"
)

const (
	// VectorFile and MetadataFile form the persisted store pair. Both
	// must be present and agree on record count for a load to succeed.
	VectorFile   = "vectors.dxi"
	MetadataFile = "metadata.json"

	fileMagic   = "DXI1"
	fileVersion = uint32(1)
)

// Save writes the store to dir as the vectors.dxi + metadata.json
// pair. Each file is written to a temp file in the same directory and
// renamed into place, so a crash mid-write never leaves a truncated
// artifact under the final name.
func (s *Store) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	if err := s.saveVectors(filepath.Join(dir, VectorFile)); err != nil {
		return err
	}
	if err := s.saveMetadata(filepath.Join(dir, MetadataFile)); err != nil {
		return err
	}
	return nil
}

func (s *Store) saveVectors(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".vectors-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp vector file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if _, err := w.WriteString(fileMagic); err != nil {
		tmp.Close()
		return fmt.Errorf("write vector header: %w", err)
	}
	hdr := []uint32{fileVersion, uint32(s.dim), uint32(len(s.vectors))}
	for _, v := range hdr {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			tmp.Close()
			return fmt.Errorf("write vector header: %w", err)
		}
	}

	buf := make([]byte, 4)
	for _, vec := range s.vectors {
		for _, f := range vec {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(f))
			if _, err := w.Write(buf); err != nil {
				tmp.Close()
				return fmt.Errorf("write vector data: %w", err)
			}
		}
	}

	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush vector file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close vector file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("finalize vector file: %w", err)
	}
	return nil
}

func (s *Store) saveMetadata(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".metadata-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp metadata file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.meta); err != nil {
		tmp.Close()
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close metadata file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("finalize metadata file: %w", err)
	}
	return nil
}

// Load reads a persisted store pair from dir. A header/payload size
// disagreement or a vector/metadata count mismatch yields
// ErrCorruptStore.
func Load(dir string) (*Store, error) {
	vectors, dim, err := loadVectors(filepath.Join(dir, VectorFile))
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var meta []document.Chunk
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", ErrCorruptStore, err)
	}

	if len(meta) != len(vectors) {
		return nil, fmt.Errorf("%w: %d vectors but %d metadata records",
			ErrCorruptStore, len(vectors), len(meta))
	}
	return &Store{vectors: vectors, meta: meta, dim: dim}, nil
}

func loadVectors(path string) ([][]float32, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read vector file: %w", err)
	}

	headerLen := len(fileMagic) + 12
	if len(data) < headerLen {
		return nil, 0, fmt.Errorf("%w: vector file truncated", ErrCorruptStore)
	}
	if string(data[:len(fileMagic)]) != fileMagic {
		return nil, 0, fmt.Errorf("%w: bad vector file magic", ErrCorruptStore)
	}
	off := len(fileMagic)
	version := binary.LittleEndian.Uint32(data[off:])
	dim := binary.LittleEndian.Uint32(data[off+4:])
	count := binary.LittleEndian.Uint32(data[off+8:])
	if version != fileVersion {
		return nil, 0, fmt.Errorf("%w: unsupported vector file version %d", ErrCorruptStore, version)
	}

	payload := data[headerLen:]
	want := int(dim) * int(count) * 4
	if len(payload) != want {
		return nil, 0, fmt.Errorf("%w: expected %d bytes of vector data, got %d",
			ErrCorruptStore, want, len(payload))
	}

	vectors := make([][]float32, count)
	for i := range vectors {
		row := make([]float32, dim)
		base := i * int(dim) * 4
		for j := range row {
			bits := binary.LittleEndian.Uint32(payload[base+j*4:])
			row[j] = math.Float32frombits(bits)
		}
		vectors[i] = row
	}
	return vectors, int(dim), nil
}
