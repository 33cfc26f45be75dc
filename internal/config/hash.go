package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

const checksumFilename = ".checksums"

// ChecksumManifest records integrity hashes for config files.
type ChecksumManifest struct {
	Version     int               `yaml:"version"`
	GeneratedAt string            `yaml:"generated_at"`
	Hashes      map[string]string `yaml:"hashes"`
}

// ComputeBlake3Hash computes the BLAKE3 hash of a file.
func ComputeBlake3Hash(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}

// VerifyFileHash verifies a file against an expected BLAKE3 hash.
func VerifyFileHash(filePath, expectedHash string) error {
	actualHash, err := ComputeBlake3Hash(filePath)
	if err != nil {
		return fmt.Errorf("failed to compute hash: %w", err)
	}

	if actualHash != expectedHash {
		return fmt.Errorf("hash mismatch for %s: expected %s, got %s",
			filepath.Base(filePath), expectedHash, actualHash)
	}

	return nil
}

// Lock computes the BLAKE3 hash of the config file and writes the
// .checksums manifest next to it, authorizing the current content.
func Lock(configPath string) error {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	hash, err := ComputeBlake3Hash(absPath)
	if err != nil {
		return err
	}

	manifest := ChecksumManifest{
		Version:     1,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Hashes: map[string]string{
			filepath.Base(absPath): hash,
		},
	}

	data, err := yaml.Marshal(&manifest)
	if err != nil {
		return fmt.Errorf("marshal checksum manifest: %w", err)
	}

	checksumPath := filepath.Join(filepath.Dir(absPath), checksumFilename)
	if err := os.WriteFile(checksumPath, data, 0o600); err != nil {
		return fmt.Errorf("write checksum manifest: %w", err)
	}

	return nil
}

// VerifyChecksums verifies the config file against the .checksums manifest.
// A manifest that exists but does not cover the file is a failure (fail closed).
func VerifyChecksums(configPath string) error {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	checksumPath := filepath.Join(filepath.Dir(absPath), checksumFilename)
	data, err := os.ReadFile(checksumPath)
	if err != nil {
		return fmt.Errorf("read checksum manifest: %w", err)
	}

	var manifest ChecksumManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("parse checksum manifest: %w", err)
	}

	expected, ok := manifest.Hashes[filepath.Base(absPath)]
	if !ok {
		return fmt.Errorf("no checksum recorded for %s; run 'config lock' to authorize", filepath.Base(absPath))
	}

	return VerifyFileHash(absPath, expected)
}
