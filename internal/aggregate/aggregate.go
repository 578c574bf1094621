// Package aggregate fans one query out to every registered site
// adapter and joins all outcomes, success or failure alike.
package aggregate

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/gardenshed/seedscout/internal/metrics"
	"github.com/gardenshed/seedscout/internal/plant"
	"github.com/gardenshed/seedscout/internal/sites"
)

// Outcome is the settled result of one fan-out. BySource has an entry
// (possibly empty) for every registered adapter; Errors has one entry
// per failed source.
type Outcome struct {
	BySource map[plant.Source][]plant.SearchResult
	Errors   []plant.SourceError
}

// ErrorStrings renders the error list in "{source}: {reason}" form.
func (o Outcome) ErrorStrings() []string {
	out := make([]string, 0, len(o.Errors))
	for _, err := range o.Errors {
		out = append(out, err.Error())
	}
	return out
}

// Aggregator dispatches searches across adapters. Adapters are
// stateless and share no mutable data, so no locking is needed beyond
// the join itself.
type Aggregator struct {
	adapters []sites.Adapter
	logger   *zap.Logger
}

// New builds an Aggregator over the given adapters.
func New(adapters []sites.Adapter, logger *zap.Logger) *Aggregator {
	return &Aggregator{adapters: adapters, logger: logger}
}

// Sources lists the registered source tags in registration order.
func (a *Aggregator) Sources() []plant.Source {
	out := make([]plant.Source, 0, len(a.adapters))
	for _, ad := range a.adapters {
		out = append(out, ad.Source())
	}
	return out
}

// AdapterFor returns the registered adapter owning source.
func (a *Aggregator) AdapterFor(source plant.Source) (sites.Adapter, bool) {
	for _, ad := range a.adapters {
		if ad.Source() == source {
			return ad, true
		}
	}
	return nil, false
}

// SearchAll dispatches query to every adapter concurrently and waits
// for all to settle. It never short-circuits on the first failure or
// first success, and the aggregate call itself never fails: each
// source independently contributes either results or one error entry.
func (a *Aggregator) SearchAll(ctx context.Context, query string) Outcome {
	type slot struct {
		source  plant.Source
		results []plant.SearchResult
		err     error
	}

	slots := make([]slot, len(a.adapters))
	var wg sync.WaitGroup
	for i, ad := range a.adapters {
		wg.Add(1)
		go func(i int, ad sites.Adapter) {
			defer wg.Done()
			results, err := ad.Search(ctx, query)
			slots[i] = slot{source: ad.Source(), results: results, err: err}
		}(i, ad)
	}
	wg.Wait()

	outcome := Outcome{BySource: make(map[plant.Source][]plant.SearchResult, len(a.adapters))}
	for _, s := range slots {
		if s.err != nil {
			outcome.BySource[s.source] = nil
			outcome.Errors = append(outcome.Errors, plant.SourceError{Source: s.source, Err: s.err})
			metrics.ObserveSearch(s.source, s.err)
			a.logger.Warn("source search failed",
				zap.String("source", string(s.source)),
				zap.Error(s.err),
			)
			continue
		}
		outcome.BySource[s.source] = s.results
		metrics.ObserveSearch(s.source, nil)
	}
	return outcome
}
