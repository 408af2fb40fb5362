// Package server wires the workspace renderer, HTTP surface and telemetry
// into a runnable web server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/strongdm/supportdesk/internal/config"
	"github.com/strongdm/supportdesk/internal/httpserver"
	"github.com/strongdm/supportdesk/internal/listen"
	"github.com/strongdm/supportdesk/internal/logging"
	"github.com/strongdm/supportdesk/internal/page"
	"github.com/strongdm/supportdesk/internal/telemetry/otel"
	"github.com/strongdm/supportdesk/internal/ui"
)

const (
	healthPath      = "/healthz"
	shutdownTimeout = 5 * time.Second
)

// Server is a configured workspace web server.
type Server struct {
	cfg       config.Config
	logger    log.FieldLogger
	telemetry *otel.Provider
	view      page.View
	document  []byte
	handler   http.Handler

	// openURL is replaceable so tests never launch a browser.
	openURL func(string) error
}

// New renders the workspace document once and assembles the HTTP handler
// chain. The caller owns Close.
func New(ctx context.Context, cfg config.Config, logger log.FieldLogger) (*Server, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}

	telemetryCfg := cfg.Telemetry
	if telemetryCfg.Logger == nil {
		telemetryCfg.Logger = logger
	}
	provider, err := otel.Setup(ctx, telemetryCfg)
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		telemetry: provider,
		view:      page.NewView(cfg),
		openURL:   listen.OpenURL,
	}

	renderer, err := page.NewRenderer()
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, err
	}
	_, end := provider.HTTP().StartSpan(ctx, "page.render",
		attribute.String("workspace.title", s.view.Metadata.Title),
		attribute.String("workspace.title_source", string(cfg.TitleSource)),
	)
	s.document, err = renderer.Document(s.view)
	end(err)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, err
	}

	workspace, err := ui.NewHandler(s.document, s.view, nil)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc(healthPath, httpserver.HealthHandler)
	mux.Handle("/", workspace)

	s.handler = httpserver.Chain(mux, middleware(logger, provider.HTTP())...)

	logging.Event(logger, "page.render", log.Fields{
		"title":        s.view.Metadata.Title,
		"title_source": cfg.TitleSource,
		"bytes":        len(s.document),
	})
	return s, nil
}

// Handler returns the full HTTP handler chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Document returns the rendered workspace document.
func (s *Server) Document() []byte {
	return s.document
}

// View returns the view the document was rendered from.
func (s *Server) View() page.View {
	return s.view
}

// Telemetry exposes the telemetry provider.
func (s *Server) Telemetry() *otel.Provider {
	return s.telemetry
}

// Run listens on the configured address and serves until ctx is cancelled.
// A disabled listener returns immediately after logging.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.Listen.Disable {
		logging.Event(s.logger, "frontend.disabled", log.Fields{"addr": ""})
		s.logger.Warn("workspace UI disabled: no listen address configured (SUPPORTDESK_LISTEN empty)")
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.Listen.Address())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Listen.Address(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := httpserver.NewWebServer(ctx, ln.Addr().String(), s.handler)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.Event(s.logger, "frontend.start", log.Fields{"addr": ln.Addr().String()})
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("web server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		logging.Event(s.logger, "frontend.stop", log.Fields{"addr": ln.Addr().String()})
		return err
	})

	if s.cfg.Open {
		url := displayURL(s.cfg.Listen, ln.Addr())
		if err := s.openURL(url); err != nil {
			logging.Event(s.logger, "browser.open", log.Fields{"url": url, "error": err})
		} else {
			logging.Event(s.logger, "browser.open", log.Fields{"url": url})
		}
	}

	return g.Wait()
}

// Close flushes telemetry.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return s.telemetry.Shutdown(ctx)
}

// displayURL prefers the bound port so ":0" listeners report the real one.
func displayURL(cfg listen.Config, addr net.Addr) string {
	if tcp, ok := addr.(*net.TCPAddr); ok && tcp.Port > 0 {
		cfg.Port = fmt.Sprint(tcp.Port)
	}
	return cfg.DisplayURL()
}

// middleware lists the request layers, outermost first. Instruments wrap
// Recover so a panicking request is still counted and its span closed.
func middleware(logger log.FieldLogger, inst *otel.HTTPInstruments) []httpserver.Middleware {
	return []httpserver.Middleware{
		httpserver.WithRequestID(),
		httpserver.WithAccessLog(logger),
		httpserver.WithInstruments(inst, routeLabel),
		httpserver.WithRecover(logger),
	}
}

func routeLabel(r *http.Request) string {
	p := path.Clean("/" + r.URL.Path)
	switch {
	case p == "/" || p == "/index.html":
		return "/"
	case p == healthPath || p == ui.WorkspacePath:
		return p
	case strings.Contains(path.Base(p), "."):
		return "asset"
	default:
		return "other"
	}
}
