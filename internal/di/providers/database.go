package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/askhub/askhub-server/internal/config"
	"github.com/askhub/askhub-server/internal/docstore"
	"github.com/askhub/askhub-server/internal/logger"
	"github.com/askhub/askhub-server/internal/metrics"
	"github.com/askhub/askhub-server/internal/session"
	"github.com/askhub/askhub-server/internal/sse"
	"github.com/askhub/askhub-server/internal/store"
	"github.com/askhub/askhub-server/internal/watcher"
)

// ProvideMetrics provides the Prometheus registry shared by every component.
func ProvideMetrics(i do.Injector) (*metrics.Metrics, error) {
	return metrics.New(), nil
}

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Component("sse"))

	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the document store and wraps it in the collection
// accessors. Records are stamped from the session the API attaches to each
// request context.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	indexes := docstore.DefaultIndexes()
	if cfg.Store.IndexFile != "" {
		loaded, err := docstore.LoadIndexFile(cfg.Store.IndexFile)
		if err != nil {
			return nil, err
		}
		indexes = loaded
	}

	db, err := docstore.Open(docstore.Options{
		Path:           cfg.Store.Path,
		Logger:         log.Component("docstore"),
		Indexes:        indexes,
		EnforceIndexes: cfg.Store.EnforceIndexes,
	})
	if err != nil {
		return nil, err
	}

	log.Info("Document store opened",
		"path", cfg.Store.Path,
		"indexes", len(indexes.Defs()),
		"enforce_indexes", cfg.Store.EnforceIndexes,
	)

	return &StoreHandle{Store: store.New(db, store.Options{
		Sessions: session.ContextProvider{},
		Metrics:  m,
		Logger:   log.Component("store"),
	})}, nil
}

// IndexWatcherHandle reloads index declarations when the index file changes.
type IndexWatcherHandle struct {
	watcher *watcher.Watcher
	cancel  context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *IndexWatcherHandle) Shutdown() error {
	h.cancel()
	if h.watcher == nil {
		return nil
	}
	return h.watcher.Stop()
}

// ProvideIndexWatcher watches the configured index file. Without one there
// is nothing to reload.
func ProvideIndexWatcher(i do.Injector) (*IndexWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	ctx, cancel := context.WithCancel(context.Background())
	if cfg.Store.IndexFile == "" {
		return &IndexWatcherHandle{cancel: cancel}, nil
	}

	wlog := log.Component("index-watcher")
	w, err := watcher.New(cfg.Store.IndexFile, wlog, watcher.Options{})
	if err != nil {
		cancel()
		return nil, err
	}

	indexes := storeHandle.DB().Indexes()
	go w.Start(ctx)
	go func() {
		for {
			select {
			case <-w.Changes():
				n, err := indexes.ReloadFile(cfg.Store.IndexFile)
				if err != nil {
					wlog.Warn("Index file reload failed, keeping previous declarations",
						"path", cfg.Store.IndexFile, "error", err)
					continue
				}
				wlog.Info("Index declarations reloaded", "path", cfg.Store.IndexFile, "indexes", n)
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Index file watcher started", "path", cfg.Store.IndexFile)

	return &IndexWatcherHandle{watcher: w, cancel: cancel}, nil
}
