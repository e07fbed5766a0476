package cmd

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khanhnv2901/netdiag/internal/application"
)

// AppContext carries per-invocation state shared by all commands.
type AppContext struct {
	Logger *zap.Logger
	Config *CLIConfig

	// Services is built on first use so commands that need no analyzers
	// (version, locations) never touch the cache directory.
	Services *application.Container

	once      sync.Once
	initErr   error
	closeOnce sync.Once
}

type appContextKey struct{}

var globalAppContext *AppContext

func storeAppContext(cmd *cobra.Command, appCtx *AppContext) {
	globalAppContext = appCtx
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, appContextKey{}, appCtx))
}

func getAppContext(cmd *cobra.Command) *AppContext {
	if ctx := cmd.Context(); ctx != nil {
		if appCtx, ok := ctx.Value(appContextKey{}).(*AppContext); ok {
			return appCtx
		}
	}
	if globalAppContext != nil {
		return globalAppContext
	}
	return &AppContext{Logger: zap.NewNop(), Config: newCLIConfig()}
}

// Container returns the analyzers, constructing them once.
func (a *AppContext) Container() (*application.Container, error) {
	a.once.Do(func() {
		if a.Services != nil {
			return
		}
		cfg, err := a.Config.containerConfig()
		if err != nil {
			a.initErr = err
			return
		}
		services, err := application.NewContainer(cfg, a.Logger)
		if err != nil {
			a.initErr = fmt.Errorf("failed to initialize analyzers: %w", err)
			return
		}
		a.Services = services
	})
	return a.Services, a.initErr
}

// Close releases the analyzers and flushes the logger. Later calls are no-ops.
func (a *AppContext) Close() {
	a.closeOnce.Do(func() {
		if a.Services != nil {
			if err := a.Services.Close(); err != nil && a.Logger != nil {
				a.Logger.Warn("failed to close result cache", zap.Error(err))
			}
		}
		if a.Logger != nil {
			_ = a.Logger.Sync()
		}
	})
}

// closeAppContext runs when the root command finishes, whether or not RunE
// failed; PersistentPostRun is skipped on errors.
func closeAppContext() {
	if globalAppContext != nil {
		globalAppContext.Close()
	}
}
