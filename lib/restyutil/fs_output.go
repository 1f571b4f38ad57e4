package restyutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FilesystemOutput writes each captured HTTP exchange to its own file
// under a directory. The directory is cleared lazily on the first
// write so a run that captures nothing leaves no trace.
type FilesystemOutput struct {
	directory string
	prepare   *sync.Once
}

func NewFilesystemOutput(dir string) FilesystemOutput {
	return FilesystemOutput{
		directory: dir,
		prepare:   &sync.Once{},
	}
}

func (o FilesystemOutput) Write(id string, contents string) {
	o.prepare.Do(func() {
		os.RemoveAll(o.directory)
		err := os.MkdirAll(o.directory, 0755)
		if err != nil {
			slog.Warn("failed to create resty debug directory", "dir", o.directory, "err", err)
		}
	})

	path := filepath.Join(o.directory, fmt.Sprintf("%s.txt", id))
	err := os.WriteFile(path, []byte(contents), 0644)
	if err != nil {
		slog.Warn("failed to write resty debug file", "path", path, "err", err)
	}
}
