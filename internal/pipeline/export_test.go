package pipeline

import "os"

// StatFunc adapts a function to the pipeline's stat dependency.
type StatFunc func(name string) (os.FileInfo, error)

func (f StatFunc) Stat(name string) (os.FileInfo, error) { return f(name) }

// WithStatter replaces os.Stat.
func WithStatter(f StatFunc) Option { return withStatter(f) }
