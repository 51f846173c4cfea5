package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/keygen"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"
)

// loadHostKey returns the SSH host key PEM, generated on first use in local
// mode and read from Secret Manager otherwise.
func loadHostKey(ctx context.Context, cfg config, logger *log.Logger) ([]byte, error) {
	if cfg.Local {
		if err := os.MkdirAll(filepath.Dir(cfg.HostKeyPath), 0700); err != nil {
			return nil, fmt.Errorf("failed to create key directory: %w", err)
		}
		_, statErr := os.Stat(cfg.HostKeyPath)
		kp, err := keygen.New(cfg.HostKeyPath, keygen.WithKeyType(keygen.Ed25519), keygen.WithWrite())
		if err != nil {
			return nil, fmt.Errorf("failed to generate/load host key: %w", err)
		}
		if os.IsNotExist(statErr) {
			logger.Info("generated new SSH host key", "path", cfg.HostKeyPath)
		}
		logger.Info("running in local mode")
		return kp.RawPrivateKey(), nil
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	defer client.Close()
	resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: cfg.HostSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access secret version: %w", err)
	}
	logger.Info("running in cloud mode with Secret Manager")
	return resp.Payload.Data, nil
}

func newSSHServer(cfg config, hostKey []byte, games *GameManager, logger *log.Logger) (*ssh.Server, error) {
	return wish.NewServer(
		wish.WithAddress(fmt.Sprintf(":%d", cfg.SSHPort)),
		wish.WithHostKeyPEM(hostKey),
		wish.WithMiddleware(
			bubbletea.Middleware(teaHandler(games, logger)),
			logging.StructuredMiddlewareWithLogger(logger, log.InfoLevel),
		),
	)
}

// teaHandler seats each SSH session. `ssh host bot` starts a game against
// the computer; anything else joins the matchmaking queue.
func teaHandler(games *GameManager, logger *log.Logger) bubbletea.Handler {
	return func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
		player := &Player{
			ID:         fmt.Sprintf("player_%d", time.Now().UnixNano()),
			Name:       s.User(),
			Connected:  true,
			UpdateChan: make(chan GameUpdate, 10),
		}

		m := newModel(player, games, newStyles(bubbletea.MakeRenderer(s)))

		if cmd := s.Command(); len(cmd) > 0 && strings.EqualFold(cmd[0], "bot") {
			games.AddBotGame(player)
		} else {
			games.AddPlayer(player)
		}
		logger.Debug("player connected", "player", player.ID, "name", player.Name)

		// Handle cleanup on session end
		go func() {
			<-s.Context().Done()
			games.RemovePlayer(player.ID)
			logger.Debug("player disconnected", "player", player.ID)
		}()

		return m, []tea.ProgramOption{tea.WithAltScreen(), tea.WithInput(s), tea.WithOutput(s)}
	}
}
