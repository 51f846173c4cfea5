package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

type config struct {
	SSHPort     int
	HTTPPort    string // From PORT; empty disables the HTTP server
	Local       bool
	HostKeyPath string
	HostSecret  string
	DBPath      string // Empty keeps games in memory
	LogLevel    log.Level
	HTTPTimeout time.Duration
}

// loadConfig reads .env (if present), then the environment, then flags.
// Flags win over the environment.
func loadConfig(args []string) (config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config{}, fmt.Errorf("loading .env: %w", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	flags := flag.NewFlagSet("chessd", flag.ContinueOnError)
	var (
		sshPort  = flags.Int("port", 2222, "SSH server port")
		local    = flags.Bool("local", false, "run in local mode (generates/uses local host key instead of Secret Manager)")
		keyPath  = flags.String("host-key", filepath.Join(home, ".chessd", "host_key"), "host key path in local mode")
		dbPath   = flags.String("db", os.Getenv("CHESSD_DB"), "sqlite database path (empty keeps games in memory)")
		logLevel = flags.String("log-level", getEnv("LOG_LEVEL", "info"), "log level (debug, info, warn, error)")
		timeout  = flags.Duration("http-timeout", 10*time.Second, "per-request timeout for the HTTP API")
	)
	if err := flags.Parse(args); err != nil {
		return config{}, err
	}

	lvl, err := log.ParseLevel(*logLevel)
	if err != nil {
		return config{}, fmt.Errorf("log level: %w", err)
	}

	cfg := config{
		SSHPort:     *sshPort,
		HTTPPort:    os.Getenv("PORT"),
		Local:       *local,
		HostKeyPath: *keyPath,
		HostSecret:  os.Getenv("SSH_HOST_KEY_SECRET"),
		DBPath:      *dbPath,
		LogLevel:    lvl,
		HTTPTimeout: *timeout,
	}

	// CHESSD_HTTP_TIMEOUT applies unless -http-timeout was given.
	if v := os.Getenv("CHESSD_HTTP_TIMEOUT"); v != "" && !isSet(flags, "http-timeout") {
		d, err := time.ParseDuration(v)
		if err != nil {
			return config{}, fmt.Errorf("CHESSD_HTTP_TIMEOUT: %w", err)
		}
		cfg.HTTPTimeout = d
	}

	if !cfg.Local && cfg.HostSecret == "" {
		return config{}, errors.New("SSH_HOST_KEY_SECRET must be set unless running with -local")
	}
	return cfg, nil
}

func isSet(flags *flag.FlagSet, name string) bool {
	set := false
	flags.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
