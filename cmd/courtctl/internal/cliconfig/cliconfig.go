package cliconfig

import (
	"context"

	"github.com/terraconstructs/courtbook/internal/app"
	"github.com/terraconstructs/courtbook/internal/config"
)

type contextKey string

const configKey contextKey = "courtctl-config"

// GlobalConfig holds what every courtctl command shares. The root command's
// PersistentPreRunE injects it into the command context.
type GlobalConfig struct {
	Settings *config.Config
	App      *app.App
}

// InjectConfig adds cfg to ctx.
func InjectConfig(ctx context.Context, cfg *GlobalConfig) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from ctx. Returns (nil, false) if it is not present.
func FromContext(ctx context.Context) (*GlobalConfig, bool) {
	cfg, ok := ctx.Value(configKey).(*GlobalConfig)
	return cfg, ok
}

// MustFromContext retrieves config from ctx or panics. Only use it in RunE
// functions, after the root command has injected the config.
func MustFromContext(ctx context.Context) *GlobalConfig {
	cfg, ok := FromContext(ctx)
	if !ok {
		panic("courtctl: config not found in context - this is a bug in courtctl")
	}
	return cfg
}
