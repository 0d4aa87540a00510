//go:build windows

package mmap

import (
	"io"
	"os"
)

// Windows builds fall back to reading the whole file. The blob access
// pattern is sequential model loading, so this costs memory, not time.
func mapFile(f *os.File, size int) ([]byte, bool, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, false, err
	}
	return data, false, nil
}

func unmapFile(data []byte) error { return nil }
