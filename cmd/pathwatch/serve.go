package main

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/vango-dev/pathwatch/internal/errors"
	"github.com/vango-dev/pathwatch/internal/feed"
	"github.com/vango-dev/pathwatch/pkg/depmon"
	"github.com/vango-dev/pathwatch/pkg/middleware"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		docPath string
		addr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a document with a WebSocket change feed",
		Long: `Serve loads a JSON document and exposes it over HTTP.

Routes:
  GET    /doc            the whole document
  GET    /doc/{path...}  one value, e.g. /doc/b/c
  PUT    /doc/{path...}  replace a value with the JSON request body
  DELETE /doc/{path...}  remove a key
  GET    /events         WebSocket stream of every read and write
  GET    /events?reads=b.c,d
                         stream only writes that affect b.c or d
  GET    /metrics        Prometheus metrics (when enabled)

Examples:
  pathwatch serve --doc doc.json
  pathwatch serve --doc doc.json --addr=0.0.0.0:7070`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if addr != "" {
				e.cfg.Addr = addr
			}
			root, err := e.loadDocument(docPath)
			if err != nil {
				return err
			}

			mw := []func(http.Handler) http.Handler{
				chimw.Recoverer,
				middleware.OpenTelemetry(),
			}
			if e.registry != nil {
				mw = append(mw, middleware.Prometheus(
					middleware.WithNamespace(e.cfg.Metrics.Namespace),
					middleware.WithRegistry(e.registry),
				))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, e, feed.New(root, feed.Config{
				SendBuffer:   e.cfg.Feed.SendBuffer,
				WriteTimeout: e.cfg.Feed.WriteTimeout,
				Logger:       e.logger,
				Metrics:      e.metrics,
				Gatherer:     e.gatherer(),
				MonitorOptions: []depmon.Option{
					depmon.WithLogger(e.logger),
					depmon.WithMetrics(e.metrics),
				},
				Middleware: mw,
			}))
		},
	}

	cmd.Flags().StringVarP(&docPath, "doc", "d", "", "JSON document to serve")
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from pathwatch.json)")
	cmd.MarkFlagRequired("doc")

	return cmd
}

// runServe serves until ctx is done, then disconnects feed clients and
// shuts the HTTP server down.
func runServe(ctx context.Context, e *env, srv *feed.Server) error {
	ln, err := net.Listen("tcp", e.cfg.Addr)
	if err != nil {
		return errors.New("P401").WithDetail(e.cfg.Addr).Wrap(err)
	}

	httpServer := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()
	e.logger.Info("serving", "addr", ln.Addr().String(), "metrics", e.cfg.Metrics.Enabled)

	select {
	case err := <-errCh:
		if !stderrors.Is(err, http.ErrServerClosed) {
			return errors.New("P401").WithDetail(e.cfg.Addr).Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	e.logger.Info("shutting down")
	srv.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
