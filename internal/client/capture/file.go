package capture

import (
	"context"
	"fmt"
	"os"
)

// FileDevice plays back an audio file as if it were being recorded.
type FileDevice struct {
	Path      string
	ChunkSize int
}

func (d FileDevice) Open(ctx context.Context, _ Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(d.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	return newReaderStream(f, d.ChunkSize, nil, f.Close), nil
}
