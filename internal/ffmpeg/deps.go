package ffmpeg

import (
	"os"
	"os/exec"
)

// fileStatter abstracts os.Stat for resolution tests.
type fileStatter interface {
	Stat(name string) (os.FileInfo, error)
}

// pathLooker abstracts exec.LookPath.
type pathLooker interface {
	LookPath(file string) (string, error)
}

// Compile-time interface verification.
var (
	_ fileStatter = osStatter{}
	_ pathLooker  = execLooker{}
)

type osStatter struct{}

func (osStatter) Stat(name string) (os.FileInfo, error) { return os.Stat(name) }

type execLooker struct{}

func (execLooker) LookPath(file string) (string, error) { return exec.LookPath(file) }
