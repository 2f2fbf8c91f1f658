package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/toptracks/internal/server"
	"github.com/desertthunder/toptracks/internal/services"
	"github.com/desertthunder/toptracks/internal/session"
	"github.com/desertthunder/toptracks/internal/shared"
	"github.com/desertthunder/toptracks/internal/web"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 5 * time.Second

// buildHandler wires the Spotify services, session store and web app behind the router.
func (r *Runner) buildHandler(config *shared.Config) (http.Handler, error) {
	spotifyConfig := config.Credentials.Spotify

	auth, err := services.NewSpotifyAuth(spotifyConfig, &http.Client{Timeout: spotifyConfig.Timeout()})
	if err != nil {
		return nil, fmt.Errorf("failed to create Spotify auth: %w", err)
	}

	sessions, err := session.NewStore(config.Session.Secret, session.Options{
		Name:   config.Session.Name,
		MaxAge: config.Session.MaxAge,
		Secure: config.Session.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session store: %w", err)
	}

	app, err := web.New(web.Options{
		Auth:      auth,
		Libraries: auth.Libraries(spotifyConfig.APIURL),
		Sessions:  sessions,
		Logger:    shared.WithLogger(r.logger, "component", "web"),
	})
	if err != nil {
		return nil, err
	}

	router := server.NewBasicRouter()
	router.Use(
		server.RequestIDMiddleware(),
		server.LoggingMiddleware(shared.WithLogger(r.logger, "component", "http")),
		server.RecoverMiddleware(r.logger),
		server.RateLimitMiddleware(server.RateLimitConfig{
			RequestsPerMinute: config.Server.RequestsPerMinute,
			Burst:             config.Server.Burst,
		}),
	)
	router.Handler(server.Health{})
	app.Register(router)

	return router, nil
}

// Serve runs the web server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := *r.config
	if addr := cmd.String("addr"); addr != "" {
		if err := config.Server.SetAddr(addr); err != nil {
			return fmt.Errorf("%w: --addr: %v", shared.ErrInvalidFlag, err)
		}
	}

	if err := config.Validate(); err != nil {
		return err
	}

	handler, err := r.buildHandler(&config)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", config.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", config.Server.Addr(), err)
	}

	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	appURL := "http://" + ln.Addr().String() + "/"
	r.logger.Info("listening", "url", appURL, "redirect_uri", config.Credentials.Spotify.RedirectURI)

	if cmd.Bool("open") {
		if err := r.openBrowser(appURL); err != nil {
			r.logger.Warn("failed to open browser automatically", "error", err)
			r.writePlain("Open %s in your browser\n", appURL)
		}
	}

	select {
	case err := <-serverErrors:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	return nil
}
