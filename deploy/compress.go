package deploy

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// maxBytecodeSize bounds what Decompress inflates.
const maxBytecodeSize = 16 << 20

// Compress raw-deflates bytecode, without zlib or gzip framing.
func Compress(bytecode []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(bytecode); err != nil {
		return nil, fmt.Errorf("failed to compress bytecode: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress bytecode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress inflates data produced by Compress.
func Decompress(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	out, err := io.ReadAll(io.LimitReader(r, maxBytecodeSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress bytecode: %w", err)
	}
	if len(out) > maxBytecodeSize {
		return nil, fmt.Errorf("bytecode exceeds %d bytes", maxBytecodeSize)
	}
	return out, nil
}
