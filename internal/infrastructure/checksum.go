package infrastructure

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// ComputeFileChecksum computes the hex digest of a file using the given
// algorithm tag (SHA256, SHA1 or MD5, case-insensitive).
func ComputeFileChecksum(path, algorithm string) (string, error) {
	var h hash.Hash
	switch strings.ToUpper(strings.TrimSpace(algorithm)) {
	case "", "SHA256", "SHA-256":
		h = sha256.New()
	case "SHA1", "SHA-1":
		h = sha1.New()
	case "MD5":
		h = md5.New()
	default:
		return "", fmt.Errorf("unsupported checksum algorithm: %s", algorithm)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for checksum: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to read file for checksum: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyFileChecksum recomputes a file's digest and compares it to the
// expected hex digest, ignoring case.
func VerifyFileChecksum(path, algorithm, expected string) (bool, error) {
	if strings.TrimSpace(expected) == "" {
		return false, fmt.Errorf("no expected checksum to verify against")
	}
	actual, err := ComputeFileChecksum(path, algorithm)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(actual, strings.TrimSpace(expected)), nil
}
