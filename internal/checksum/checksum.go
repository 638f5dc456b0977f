// Package checksum computes content digests of stored artifacts.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// SHA256Reader digests everything readable from r and returns the digest as
// 64 lowercase hex characters.
func SHA256Reader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("checksum: read failed: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SHA256File digests the file at path. The file is streamed, not loaded
// into memory; recomputing over the same bytes always yields the same
// digest.
func SHA256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("checksum: open %s: %w", path, err)
	}
	defer f.Close()
	return SHA256Reader(f)
}
