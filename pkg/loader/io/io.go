package io

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/OFFIS-RIT/argmap/pkg/loader"
)

// IOTextLoader reads text files from the local filesystem.
type IOTextLoader struct{}

// NewIOTextLoader creates a new filesystem-based text loader.
func NewIOTextLoader() *IOTextLoader {
	return &IOTextLoader{}
}

// GetText reads the file at path. Files larger than loader.MaxTextBytes are
// rejected.
func (l *IOTextLoader) GetText(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, loader.MaxTextBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) > loader.MaxTextBytes {
		return nil, fmt.Errorf("%s: %w", path, loader.ErrTooLarge)
	}
	return data, nil
}
