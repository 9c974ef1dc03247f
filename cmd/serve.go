package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spinnelein/familybook/internal/server"
	"github.com/spinnelein/familybook/internal/services"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP service until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	d, err := r.buildDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	cookies, err := server.NewCookieStore(r.config.Server.SessionSecret)
	if err != nil {
		return err
	}

	handler := server.NewAPI(r.config.Server, server.Deps{
		Flow:     services.NewOAuthFlow(d.oauth, d.credentials, r.logger),
		Cookies:  cookies,
		Picker:   d.picker,
		Importer: d.importer,
		Tokens:   d.credentials,
		Auth:     d.credentials,
		Storage:  d.storage,
		Ledger:   d.ledger,
		Logger:   r.logger,
	})

	srv := &http.Server{
		Addr:              r.config.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Serve(ctx, srv, r.logger)
}
