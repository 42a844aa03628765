package cmd

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/etnz/fintrack/server"
	"github.com/google/subcommands"
	"go.uber.org/zap"
)

type serveCmd struct {
	addr string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the recalculation trigger over HTTP" }
func (*serveCmd) Usage() string {
	return `fintrack serve [-addr <host:port>]

  Serves POST /v1/recalculate, GET /healthz and GET /metrics until
  interrupted.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "Listen address. Defaults to the configured server address.")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return fail("Error: %v", err)
	}
	defer a.close(context.Background())

	engine, err := a.engine()
	if err != nil {
		return fail("Error: %v", err)
	}
	addr := c.addr
	if addr == "" {
		addr = a.config.Server.Addr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.NewRouter(engine, server.NewMetrics(), a.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fail("Error: %v", err)
	case <-ctx.Done():
	}
	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fail("Error: %v", err)
	}
	return subcommands.ExitSuccess
}
