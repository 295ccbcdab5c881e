package ffmpeg

import (
	"fmt"
	"runtime"
)

const binaryName = "ffmpeg"

// Resolver locates the ffmpeg binary.
type Resolver struct {
	configured string
	stat       fileStatter
	look       pathLooker
	goos       string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithConfiguredPath sets an explicit binary path (FFMPEG_PATH).
func WithConfiguredPath(path string) ResolverOption {
	return func(r *Resolver) { r.configured = path }
}

// WithStatter sets a custom stat implementation (for testing).
func WithStatter(s fileStatter) ResolverOption {
	return func(r *Resolver) { r.stat = s }
}

// WithPathLooker sets a custom PATH lookup (for testing).
func WithPathLooker(l pathLooker) ResolverOption {
	return func(r *Resolver) { r.look = l }
}

// WithGOOS overrides the platform used to pick the binary name (for testing).
func WithGOOS(goos string) ResolverOption {
	return func(r *Resolver) { r.goos = goos }
}

// NewResolver creates a Resolver with production defaults.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		stat: osStatter{},
		look: execLooker{},
		goos: runtime.GOOS,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds ffmpeg using the following precedence:
//  1. the configured path (error if set but missing)
//  2. system PATH
//
// There is no download fallback: the bot can decode WAV and OGG/Opus
// without ffmpeg, so a missing binary only narrows the accepted formats.
func (r *Resolver) Resolve() (string, error) {
	if r.configured != "" {
		if _, err := r.stat.Stat(r.configured); err != nil {
			return "", fmt.Errorf("%w: FFMPEG_PATH is set to %q but the binary does not exist", ErrNotFound, r.configured)
		}
		return r.configured, nil
	}

	name := binaryName
	if r.goos == "windows" {
		name += ".exe"
	}
	path, err := r.look.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: not on PATH (install ffmpeg or set FFMPEG_PATH)", ErrNotFound)
	}
	return path, nil
}
