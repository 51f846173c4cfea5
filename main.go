package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"

	"github.com/imjasonh/chessd/internal/store"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "chessd",
	})

	cfg, err := loadConfig(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		logger.Fatal("bad configuration", "err", err)
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server exited", "err", err)
	}
}

func run(ctx context.Context, cfg config, logger *log.Logger) error {
	var st store.Store
	if cfg.DBPath != "" {
		db, err := store.OpenSQLite(ctx, cfg.DBPath, logger)
		if err != nil {
			return err
		}
		st = db
		logger.Info("storing games in sqlite", "path", cfg.DBPath)
	} else {
		st = store.NewMemory()
		logger.Info("storing games in memory")
	}
	defer st.Close()

	games := NewGameManager(st, logger)
	defer games.Close()

	hostKey, err := loadHostKey(ctx, cfg, logger)
	if err != nil {
		return err
	}

	s, err := newSSHServer(cfg, hostKey, games, logger)
	if err != nil {
		return err
	}

	errc := make(chan error, 2)
	go func() {
		logger.Info("starting SSH chess server", "port", cfg.SSHPort)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			errc <- fmt.Errorf("ssh server: %w", err)
		}
	}()

	var hs *http.Server
	if cfg.HTTPPort != "" {
		hs = &http.Server{
			Addr:              ":" + cfg.HTTPPort,
			Handler:           NewAPI(games, logger, fmt.Sprintf(":%d", cfg.SSHPort), cfg.HTTPTimeout),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("starting HTTP API and WebSocket to SSH proxy", "port", cfg.HTTPPort)
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- fmt.Errorf("http server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errc:
		return err
	}
	logger.Info("stopping servers")

	tctx, tcancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer tcancel()
	if hs != nil {
		if err := hs.Shutdown(tctx); err != nil {
			logger.Error("http shutdown", "err", err)
		}
	}
	return s.Shutdown(tctx)
}
