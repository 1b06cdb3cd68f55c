package server

import (
	"errors"
	"log/slog"
	"time"

	"github.com/malbeclabs/airdrop/api/handlers"
	"github.com/malbeclabs/airdrop/core/pkg/airdrop"
)

// VersionInfo contains build-time version information.
type VersionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

type Config struct {
	Logger            *slog.Logger
	Engine            *airdrop.Engine
	ListenAddr        string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	VersionInfo       VersionInfo

	// AllowedOrigins configures CORS for the claim frontend. Empty means
	// same-origin only.
	AllowedOrigins []string

	// AuthDisabled is passed through to the handlers. Local development only.
	AuthDisabled bool
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Engine == nil {
		return errors.New("engine is required")
	}
	if cfg.ListenAddr == "" {
		return errors.New("listen addr is required")
	}
	if cfg.ReadHeaderTimeout == 0 {
		cfg.ReadHeaderTimeout = 10 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	handlersCfg := handlers.Config{
		Logger:       cfg.Logger,
		Engine:       cfg.Engine,
		AuthDisabled: cfg.AuthDisabled,
	}
	return handlersCfg.Validate()
}
