package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/logging"
)

// Request owns the scratch directory of one inbound message. Everything a
// run writes lives under Dir, and Close removes it.
type Request struct {
	ID     string
	UserID int64
	Dir    string
	logger *log.Logger
}

// NewRequest creates <baseDir>/tg_audio_<user>_<uuid>.
// The uuid keeps two messages from the same user apart.
func NewRequest(baseDir string, userID int64, logger *log.Logger) (*Request, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	id := uuid.NewString()
	dir := filepath.Join(baseDir, "tg_audio_"+strconv.FormatInt(userID, 10)+"_"+id)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}
	return &Request{ID: id, UserID: userID, Dir: dir, logger: logger}, nil
}

// Path returns a file name inside the scratch directory.
func (r *Request) Path(name string) string {
	return filepath.Join(r.Dir, filepath.Base(name))
}

// Close removes the scratch directory. Failures are logged at warn level
// and never returned.
func (r *Request) Close() {
	if err := os.RemoveAll(r.Dir); err != nil {
		r.logger.Warn("remove scratch directory failed", "dir", r.Dir, "request", r.ID, "err", err)
	}
}
