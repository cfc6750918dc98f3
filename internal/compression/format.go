// Package compression packs chunk letters for transmission.
package compression

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/pierrec/lz4/v4"
)

// FormatLZ4 is the only supported wire format.
const FormatLZ4 = "lz4"

// CompressedChunk is compressed chunk data ready for JSON transmission.
type CompressedChunk struct {
	Format           string `json:"format"`           // "lz4"
	Data             string `json:"data"`             // Base64-encoded lz4 frame
	Size             int    `json:"size"`             // Compressed size in bytes
	UncompressedSize int    `json:"uncompressedSize"` // Size of the newline-joined rows
}

// CompressRows joins rows with '\n' and compresses them as an lz4 frame.
func CompressRows(rows []string) (*CompressedChunk, error) {
	raw := []byte(strings.Join(rows, "\n"))

	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return nil, fmt.Errorf("failed to compress chunk rows: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish lz4 frame: %w", err)
	}
	return FormatCompressed(buf.Bytes(), len(raw)), nil
}

// FormatCompressed wraps an lz4 frame for JSON transmission.
func FormatCompressed(compressed []byte, uncompressedSize int) *CompressedChunk {
	return &CompressedChunk{
		Format:           FormatLZ4,
		Data:             base64.StdEncoding.EncodeToString(compressed),
		Size:             len(compressed),
		UncompressedSize: uncompressedSize,
	}
}

// DecompressRows reverses CompressRows.
func DecompressRows(c *CompressedChunk) ([]string, error) {
	if c == nil {
		return nil, fmt.Errorf("compressed chunk is nil")
	}
	if c.Format != FormatLZ4 {
		return nil, fmt.Errorf("unsupported compression format %q", c.Format)
	}
	compressed, err := base64.StdEncoding.DecodeString(c.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 data: %w", err)
	}

	raw, err := io.ReadAll(lz4.NewReader(bytes.NewReader(compressed)))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress chunk rows: %w", err)
	}
	if c.UncompressedSize > 0 && len(raw) != c.UncompressedSize {
		return nil, fmt.Errorf("decompressed size %d does not match expected %d", len(raw), c.UncompressedSize)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return strings.Split(string(raw), "\n"), nil
}
