package labels

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/sitekeeper/internal/filex"
)

// FileSink writes labels into a directory, creating it on first use.
// Relative directories are resolved against the working directory.
type FileSink struct {
	dir string
}

func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

func (s *FileSink) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir, err := filex.EnsureDir(s.dir)
	if err != nil {
		return "", fmt.Errorf("label dir: %w", err)
	}
	return filex.WriteFile(dir, name, data)
}
