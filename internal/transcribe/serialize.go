package transcribe

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// limited bounds the number of in-flight calls into a shared backend.
type limited struct {
	Backend
	sem *semaphore.Weighted
}

// Serialize wraps b so that at most n Transcribe calls run at once.
// Waiting callers give up when their context ends. n < 1 means 1.
func Serialize(b Backend, n int) Backend {
	if n < 1 {
		n = 1
	}
	return &limited{Backend: b, sem: semaphore.NewWeighted(int64(n))}
}

func (l *limited) Transcribe(ctx context.Context, audioPath string, opts Options) (string, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer l.sem.Release(1)
	return l.Backend.Transcribe(ctx, audioPath, opts)
}
