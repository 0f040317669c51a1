// Package metadata provides content hashing and review signatures for files
// that are handed to a human for editing and read back afterwards.
package metadata

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SidecarSuffix is appended to a file path to name its signature file.
const SidecarSuffix = ".sig.yaml"

// Signature verification errors.
var (
	ErrNoSignature  = errors.New("no signature file found")
	ErrNoHashFound  = errors.New("no hash found in signature")
	ErrHashMismatch = errors.New("hash mismatch")
	ErrNotValidated = errors.New("content has not been marked as reviewed")
)

// Metadata describes the review status of a file.
type Metadata struct {
	LastModify time.Time `yaml:"last_modify"`
	Version    string    `yaml:"version"`
	Hash       string    `yaml:"hash"`
	Reviewer   string    `yaml:"reviewer,omitempty"`
	Validation bool      `yaml:"validation"`
}

// CalculateHash computes the SHA-256 hash of content. Line endings are
// normalized and trailing newlines ignored so that re-saving a file in a
// spreadsheet editor does not invalidate it.
func CalculateHash(content []byte) string {
	clean := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	clean = bytes.TrimRight(clean, "\n")
	hash := sha256.Sum256(clean)

	return hex.EncodeToString(hash[:])
}

// Sign returns fresh metadata for content.
func Sign(content []byte, validated bool, version string) *Metadata {
	return &Metadata{
		LastModify: time.Now().UTC().Truncate(time.Second),
		Version:    version,
		Hash:       CalculateHash(content),
		Validation: validated,
	}
}

// Verify checks that content matches the hash in meta.
func Verify(content []byte, meta *Metadata) error {
	if meta == nil {
		return ErrNoSignature
	}

	if meta.Hash == "" {
		return ErrNoHashFound
	}

	calculated := CalculateHash(content)
	if calculated != meta.Hash {
		return fmt.Errorf("%w: expected %s, got %s", ErrHashMismatch, meta.Hash, calculated)
	}

	return nil
}

// SidecarPath returns the signature file path for path.
func SidecarPath(path string) string {
	return path + SidecarSuffix
}

// Write stores meta as the signature of the file at path.
func Write(path string, meta *Metadata) error {
	data, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal signature: %w", err)
	}

	if err := os.WriteFile(SidecarPath(path), data, 0644); err != nil {
		return fmt.Errorf("failed to write signature file: %w", err)
	}

	return nil
}

// Read loads the signature of the file at path.
func Read(path string) (*Metadata, error) {
	data, err := os.ReadFile(SidecarPath(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoSignature, SidecarPath(path))
		}

		return nil, fmt.Errorf("failed to read signature file: %w", err)
	}

	var meta Metadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse signature file: %w", err)
	}

	return &meta, nil
}

// SignFile hashes the file at path and writes its signature.
func SignFile(path string, validated bool, version, reviewer string) (*Metadata, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	meta := Sign(content, validated, version)
	meta.Reviewer = reviewer

	if err := Write(path, meta); err != nil {
		return nil, err
	}

	return meta, nil
}

// VerifyFile checks the file at path against its signature and requires it
// to be marked as reviewed. The signature is returned whenever it could be
// read, even if verification fails.
func VerifyFile(path string) (*Metadata, error) {
	meta, err := Read(path)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return meta, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := Verify(content, meta); err != nil {
		return meta, err
	}

	if !meta.Validation {
		return meta, ErrNotValidated
	}

	return meta, nil
}
