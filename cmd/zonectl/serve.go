package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"zonectl/internal/config"
	"zonectl/internal/handlers"
	"zonectl/internal/repository"
	"zonectl/internal/server"
	"zonectl/internal/service"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var errPlaceholderKey = errors.New("auth.signing_key is the sample value " + config.PlaceholderSigningKey +
	"; set a secret in the config file or ZONECTL_AUTH_SIGNING_KEY")

func newServeCmd(opts *globalOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP gateway",
		Long:  `Starts the HTTP gateway: command execution, zone status, the execution journal and a websocket result stream.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, port)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides http.port)")
	return cmd
}

func runServe(ctx context.Context, opts *globalOptions, port string) error {
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()
	log := a.log

	if a.cfg.Auth.HasPlaceholderKey() {
		return errPlaceholderKey
	}

	// open DB
	db, err := repository.InitDB(a.cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("init sqlite: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies
	repos := repository.NewRepository(db)
	services := service.NewService(service.Deps{
		Repos:        repos,
		Engine:       a.engine,
		Table:        a.table,
		Anomalies:    a.anomalies,
		Rate:         a.cfg.Dispatch.Rate,
		Burst:        a.cfg.Dispatch.Burst,
		ProbeCommand: a.cfg.Probe.Command,
		SigningKey:   a.cfg.Auth.SigningKey,
		TokenTTL:     a.cfg.Auth.TokenTTL,
		Log:          log,
	})
	apiHandler := handlers.NewHandler(services, log.Named("http"))

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// start prober (stopped by ctx)
	go services.Prober.Run(ctx, a.cfg.Probe.Interval)

	if port == "" {
		port = a.cfg.HTTP.Port
	}
	srv := server.New(port, apiHandler.InitRoutes())

	serverErrors := make(chan error, 1)
	go func() {
		log.Infow("http_server_starting", "addr", srv.Addr(), "transport", a.cfg.Transport.Mode, "commands", a.table.Len())
		serverErrors <- srv.Run()
	}()

	select {
	case err := <-serverErrors:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Infow("shutting down server...")
	stop()

	// allow in-flight requests to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
