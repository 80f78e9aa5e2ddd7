package webui

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/leofalp/aitasks/core/artifact"
	"github.com/leofalp/aitasks/internal/cli"
	"github.com/leofalp/aitasks/internal/config"
)

const (
	DefaultAddr = "localhost:8501"

	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
	cleanupInterval   = time.Minute
	maxImageBytes     = 256 << 20
)

// Command is the webui program.
func Command() cli.Command {
	return cli.Command{
		Name: "webui",
		Usage: "usage: webui [-addr host:port] [-roster file] [-expiry duration]\n\n" +
			"Serves the multi-LLM chat and the image generator in the browser.",
		Run: run,
	}
}

func run(ctx context.Context, env *cli.Env, args []string) error {
	fs := env.FlagSet(Command())
	addr := fs.String("addr", DefaultAddr, "listen address")
	rosterPath := fs.String("roster", env.Config.RosterPath, "YAML roster file (default: built-in roster)")
	expiry := fs.Duration("expiry", time.Hour, "how long generated images stay downloadable")
	if err := cli.Parse(fs, args); err != nil {
		return err
	}

	roster := config.DefaultRoster()
	if *rosterPath != "" {
		var err error
		if roster, err = config.LoadRoster(*rosterPath); err != nil {
			return err
		}
	}

	images := artifact.NewMemorySink(*expiry, maxImageBytes, cleanupInterval)
	defer images.Close()

	handler, err := NewServer(env, roster, images)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              *addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return Serve(ctx, env, srv)
}

// Serve runs srv until ctx is cancelled, then shuts it down gracefully.
func Serve(ctx context.Context, env *cli.Env, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		env.Notef("Serving on http://%s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	env.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
