//go:build windows

package debugsrv

import (
	"context"
	"net/http"
)

func (s *Server) serveWithSignals(srv *http.Server, serveFn func() error) error {
	// Signals aren't reliably injectable on windows; run under a plain
	// background context and rely on Shutdown being called by the host.
	return s.ServeContext(context.Background(), srv, serveFn)
}
