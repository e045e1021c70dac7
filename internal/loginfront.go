package internal

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dgellow/login-front/internal/config"
	"github.com/dgellow/login-front/internal/fbsdk"
	"github.com/dgellow/login-front/internal/idp"
	"github.com/dgellow/login-front/internal/log"
	"github.com/dgellow/login-front/internal/server"
	"github.com/dgellow/login-front/internal/storage"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

// LoginFront represents the complete login application
type LoginFront struct {
	config     config.Config
	handler    http.Handler
	httpServer *server.HTTPServer
	store      storage.AttemptStore
	cleanup    *storage.CleanupManager
}

// NewLoginFront creates a new login application with all dependencies built
func NewLoginFront(ctx context.Context, cfg config.Config) (*LoginFront, error) {
	log.LogInfoWithFields("loginfront", "Building login application", map[string]any{
		"baseURL":   cfg.Server.BaseURL,
		"providers": cfg.Providers.Count(),
		"storage":   string(cfg.Storage.Kind),
	})

	metrics := server.NewMetrics()

	// Only the Facebook dialog keeps state between requests
	var store storage.AttemptStore
	var dialog *fbsdk.DialogSDK
	if cfg.Providers.FacebookEnabled() {
		var err error
		store, err = storage.NewStore(ctx, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to setup storage: %w", err)
		}
		dialog, err = NewDialogSDK(cfg, store)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	registry, err := NewRegistry(cfg, dialog, idp.WithFacebookObserver(metrics.ObserveFacebookResult))
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, fmt.Errorf("failed to register providers: %w", err)
	}

	var completer server.FacebookCompleter
	if dialog != nil {
		completer = dialog
	}
	handlers := server.NewLoginHandlers(cfg, registry, completer, &fbsdk.ScriptLoader{}, metrics)
	handler := server.NewRouter(handlers, metrics)

	lf := &LoginFront{
		config:     cfg,
		handler:    handler,
		httpServer: server.NewHTTPServer(handler, cfg.Server.Addr),
		store:      store,
	}
	if store != nil && cfg.Storage.CleanupInterval > 0 {
		lf.cleanup = storage.NewCleanupManager(store, cfg.Storage.CleanupInterval)
	}

	log.LogInfoWithFields("loginfront", "Providers registered", map[string]any{
		"enabled": fmt.Sprint(registry.Enabled()),
	})
	return lf, nil
}

// NewDialogSDK builds the Facebook dialog SDK for cfg on top of store
func NewDialogSDK(cfg config.Config, store storage.AttemptStore) (*fbsdk.DialogSDK, error) {
	dialog, err := fbsdk.NewDialogSDK(string(cfg.Providers.Facebook.AppSecret), []byte(cfg.SigningKey), store, cfg.AttemptTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to setup facebook dialog: %w", err)
	}
	return dialog, nil
}

// NewRegistry registers the configured providers. dialog may be nil when
// Facebook is not configured. Attempts started by another replica complete
// through the Facebook adapter's Resume.
func NewRegistry(cfg config.Config, dialog *fbsdk.DialogSDK, opts ...idp.FacebookOption) (*idp.Registry, error) {
	var sdk idp.FacebookSDK
	if dialog != nil {
		sdk = dialog
	}

	registry, err := idp.NewRegistryFromConfig(cfg.Providers, sdk, opts...)
	if err != nil {
		return nil, err
	}

	if dialog != nil {
		reg, err := registry.Lookup(idp.Facebook)
		if err != nil {
			return nil, err
		}
		if adapter, ok := reg.Starter.(*idp.FacebookAdapter); ok {
			dialog.SetFallbackCallback(adapter.Resume)
		}
	}
	return registry, nil
}

// Handler returns the application's HTTP handler
func (lf *LoginFront) Handler() http.Handler {
	return lf.handler
}

// Run serves until ctx is cancelled or the server fails, then shuts down
// gracefully
func (lf *LoginFront) Run(ctx context.Context) error {
	log.LogInfoWithFields("loginfront", "Starting login application", map[string]any{
		"addr": lf.config.Server.Addr,
	})

	if lf.cleanup != nil {
		lf.cleanup.Start(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := lf.httpServer.Start(); err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		reason := "context cancelled"
		if ctx.Err() == nil {
			reason = "server error"
		}
		log.LogInfoWithFields("loginfront", "Starting graceful shutdown", map[string]any{
			"reason":  reason,
			"timeout": shutdownTimeout.String(),
		})

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return lf.httpServer.Stop(shutdownCtx)
	})

	err := g.Wait()

	if lf.cleanup != nil {
		lf.cleanup.Stop()
	}
	if lf.store != nil {
		if cerr := lf.store.Close(); cerr != nil {
			log.LogErrorWithFields("loginfront", "Failed to close attempt store", map[string]any{
				"error": cerr.Error(),
			})
		}
	}

	if err != nil {
		log.LogErrorWithFields("loginfront", "Application stopped with error", map[string]any{
			"error": err.Error(),
		})
		return err
	}
	log.LogInfoWithFields("loginfront", "Application shutdown complete", nil)
	return nil
}
