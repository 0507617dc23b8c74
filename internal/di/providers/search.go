package providers

import (
	"github.com/samber/do/v2"

	"github.com/askhub/askhub-server/internal/config"
	"github.com/askhub/askhub-server/internal/logger"
	"github.com/askhub/askhub-server/internal/metrics"
	"github.com/askhub/askhub-server/internal/search"
)

// SearchHandle holds the configured search backend and the indexers fed on
// question writes.
type SearchHandle struct {
	Searcher search.Searcher
	Indexer  search.Indexer

	index *search.Index
}

// Shutdown implements do.Shutdownable. Closing the index waits for a
// running fill.
func (h *SearchHandle) Shutdown() error {
	if h.index != nil {
		return h.index.Close()
	}
	return nil
}

// ProvideSearch builds the search backend named by configuration. The index
// backend opens a bleve index and refills it from the store when it was
// created empty. A Meilisearch host adds a write-only mirror.
func ProvideSearch(i do.Injector) (*SearchHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	h := &SearchHandle{}
	var indexers search.Indexers

	switch cfg.Search.Backend {
	case config.SearchBackendIndex:
		index, err := search.NewIndex(search.Options{
			DataPath: cfg.Search.Path,
			Logger:   log.Component("search"),
		})
		if err != nil {
			return nil, err
		}
		h.index = index
		h.Searcher = search.NewIndexSearcher(index, storeHandle.Questions, m, log.Component("search"))
		indexers = append(indexers, index)

		if index.Created() {
			index.FillInBackground(storeHandle.Questions.List)
		}

		docCount, _ := index.DocumentCount()
		log.Info("Search index initialized", "path", cfg.Search.Path, "documents", docCount)
	default:
		h.Searcher = search.NewAggregator(storeHandle.Questions, m, log.Component("search"))
		log.Info("Prefix search enabled")
	}

	if cfg.Search.MeiliHost != "" {
		indexers = append(indexers, search.NewMeiliMirror(cfg.Search.MeiliHost, cfg.Search.MeiliAPIKey, log.Component("meilisearch")))
		log.Info("Meilisearch mirror enabled", "host", cfg.Search.MeiliHost)
	}
	if len(indexers) > 0 {
		h.Indexer = indexers
	}

	return h, nil
}
