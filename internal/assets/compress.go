package assets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

func compressible(path string) bool {
	switch filepath.Ext(path) {
	case ".js", ".css":
		return true
	}
	return false
}

// compressFile writes a zstd compressed copy of path next to it and returns
// the new file's path.
func compressFile(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open output: %w", err)
	}
	defer src.Close()

	dstPath := path + ".zst"
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("failed to create compressed output: %w", err)
	}
	defer dst.Close()

	enc, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return "", fmt.Errorf("failed to create encoder: %w", err)
	}

	if _, err := io.Copy(enc, src); err != nil {
		enc.Close()
		os.Remove(dstPath)
		return "", fmt.Errorf("failed to compress: %w", err)
	}

	// Close encoder to flush
	if err := enc.Close(); err != nil {
		os.Remove(dstPath)
		return "", fmt.Errorf("failed to finalize compressed output: %w", err)
	}

	return dstPath, dst.Close()
}
