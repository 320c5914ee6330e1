// Package storage provides the directory-based artifact read/write helpers
// a segment snapshot is built from: one named, binary-encoded file per
// artifact, so a segment's snapshot artifacts can share the same on-disk
// plumbing.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelindar/binary"
)

// WriteArtifact encodes v with kelindar/binary and writes it to name under
// dir, creating dir if it does not already exist.
func WriteArtifact(dir, name string, v any) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create artifact dir %s: %w", dir, err)
	}

	data, err := binary.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode artifact %s: %w", name, err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write artifact %s: %w", name, err)
	}
	return nil
}

// ReadArtifact reads name under dir and decodes it into v.
func ReadArtifact(dir, name string, v any) error {
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read artifact %s: %w", name, err)
	}
	if err := binary.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode artifact %s: %w", name, err)
	}
	return nil
}
