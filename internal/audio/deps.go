package audio

import (
	"errors"
	"io/fs"
	"os"
)

// tempDirCreator creates temporary directories.
type tempDirCreator interface {
	MkdirTemp(dir, pattern string) (string, error)
}

// fileStatter retrieves file information.
type fileStatter interface {
	Stat(name string) (os.FileInfo, error)
}

// fileCreator creates chunk files.
type fileCreator interface {
	Create(name string) (*os.File, error)
}

// fileRemover removes files and directories.
type fileRemover interface {
	Remove(name string) error
	RemoveAll(path string) error
}

// --- Default implementations using real OS functions ---

// osFS implements every filesystem dependency with the os package.
type osFS struct{}

// Compile-time interface verification.
var (
	_ tempDirCreator = osFS{}
	_ fileStatter    = osFS{}
	_ fileCreator    = osFS{}
	_ fileRemover    = osFS{}
)

func (osFS) MkdirTemp(dir, pattern string) (string, error) { return os.MkdirTemp(dir, pattern) }

func (osFS) Stat(name string) (os.FileInfo, error) { return os.Stat(name) }

func (osFS) Create(name string) (*os.File, error) {
	// #nosec G304 -- chunk paths are built by the segmenter inside its own temp dir
	return os.Create(name)
}

func (osFS) Remove(name string) error { return os.Remove(name) }

func (osFS) RemoveAll(path string) error { return os.RemoveAll(path) }

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
