package output

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ChecksumSuffix is appended to an output file's name to form its sidecar.
const ChecksumSuffix = ".sha256"

// fileChecksum hashes a file's content.
func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// WriteChecksum writes the sidecar for path, in the conventional
// "<hex>  <basename>" layout so standard tools can verify it.
func WriteChecksum(path string) error {
	sum, err := fileChecksum(path)
	if err != nil {
		return err
	}
	line := fmt.Sprintf("%s  %s\n", sum, filepath.Base(path))
	if err := os.WriteFile(path+ChecksumSuffix, []byte(line), 0o644); err != nil {
		return fmt.Errorf("write checksum sidecar: %w", err)
	}
	return nil
}

// VerifyChecksum recomputes a file's hash and compares it to its sidecar.
func VerifyChecksum(path string) error {
	raw, err := os.ReadFile(path + ChecksumSuffix)
	if err != nil {
		return fmt.Errorf("read checksum sidecar: %w", err)
	}
	want, _, _ := strings.Cut(strings.TrimSpace(string(raw)), " ")

	got, err := fileChecksum(path)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("checksum mismatch for %s: have %s, sidecar says %s", path, got, want)
	}
	return nil
}
