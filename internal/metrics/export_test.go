package metrics

import (
	"context"
	"net"

	"github.com/charmbracelet/log"
)

// ServeListener runs the metrics server on an existing listener.
func (m *Metrics) ServeListener(ctx context.Context, ln net.Listener, logger *log.Logger) error {
	return m.serve(ctx, ln, logger)
}
