// Package app wires the client's components together for one process.
package app

import (
	"go.uber.org/zap"

	"github.com/zhouzirui/mindpeers/client/internal/config"
	"github.com/zhouzirui/mindpeers/client/internal/service/api"
	"github.com/zhouzirui/mindpeers/client/internal/service/chat"
	"github.com/zhouzirui/mindpeers/client/internal/service/health"
	"github.com/zhouzirui/mindpeers/client/internal/service/session"
	"github.com/zhouzirui/mindpeers/client/internal/service/severity"
	"github.com/zhouzirui/mindpeers/client/internal/service/trend"
)

// App is the composed client.
type App struct {
	Config       *config.Config
	Log          *zap.Logger
	Client       *api.Client
	Session      *session.Manager
	Conversation *chat.Store
	Severity     *severity.Machine
	Trend        *trend.Aggregator
	Health       *health.Monitor
}

// New builds an App around cfg, persisting identity in store.
func New(cfg *config.Config, store session.Store, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := api.NewClient(cfg.API, logger)
	if err != nil {
		return nil, err
	}
	return Assemble(cfg, client, store, logger), nil
}

// Assemble wires components around an existing client.
func Assemble(cfg *config.Config, client *api.Client, store session.Store, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}

	sessions := session.NewManager(client, store, logger)
	machine := severity.NewMachine(logger)
	conversation := chat.NewStore(client, sessions, machine, logger)
	aggregator := trend.NewAggregator(client, logger)

	// Logging out ends the session: conversation, banner and trend go with it.
	sessions.OnLogout(conversation.Reset)
	sessions.OnLogout(machine.Reset)
	sessions.OnLogout(aggregator.Reset)

	return &App{
		Config:       cfg,
		Log:          logger,
		Client:       client,
		Session:      sessions,
		Conversation: conversation,
		Severity:     machine,
		Trend:        aggregator,
		Health:       health.NewMonitor(client, logger),
	}
}

// FileStore returns the identity store configured by cfg.
func FileStore(cfg *config.Config) *session.FileStore {
	return session.NewFileStore(cfg.Session.IdentityFile)
}
