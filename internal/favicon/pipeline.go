package favicon

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/nikbrunner/bmbox/internal/logging"
)

// Pipeline resolves favicons for rendering: cached payloads are returned
// as-is, misses get the remote lookup URL as a placeholder and a detached
// background task keyed by domain fills the cache.
//
// Detached tasks are never cancelled. A task started before Cache.Clear
// still completes and writes into the cleared cache; last write wins.
type Pipeline struct {
	cache   *Cache
	fetcher Fetcher
	service string
	log     *logrus.Entry

	inflight singleflight.Group
	wg       sync.WaitGroup
}

// PipelineParams holds parameters for creating a Pipeline.
type PipelineParams struct {
	Cache   *Cache
	Fetcher Fetcher       // optional, HTTPFetcher with default timeout if nil
	Service string        // optional, DefaultService if empty
	Logger  *logrus.Entry // optional
}

// NewPipeline creates a Pipeline.
func NewPipeline(params PipelineParams) *Pipeline {
	fetcher := params.Fetcher
	if fetcher == nil {
		fetcher = NewHTTPFetcher(0)
	}
	service := params.Service
	if service == "" {
		service = DefaultService
	}
	log := params.Logger
	if log == nil {
		log = logging.NewLogger("favicon")
	}
	return &Pipeline{
		cache:   params.Cache,
		fetcher: fetcher,
		service: service,
		log:     log,
	}
}

// Cache returns the underlying cache.
func (p *Pipeline) Cache() *Cache {
	return p.cache
}

// Placeholder returns the uncached remote lookup URL for a domain.
func (p *Pipeline) Placeholder(domain string) string {
	return LookupURL(p.service, domain)
}

// Resolve returns the icon source to render for domain right now.
// On a miss it also starts the background fill and returns the placeholder.
func (p *Pipeline) Resolve(domain string) (src string, hit bool) {
	if payload, ok := p.cache.Get(domain); ok {
		return payload, true
	}
	p.Enqueue(domain)
	return p.Placeholder(domain), false
}

// Enqueue starts a detached fill task for domain.
// Concurrent tasks for the same domain share one fetch.
func (p *Pipeline) Enqueue(domain string) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		_, _, _ = p.inflight.Do(domain, func() (any, error) {
			if _, ok := p.cache.Get(domain); ok {
				return nil, nil
			}
			p.populate(context.Background(), domain)
			return nil, nil
		})
	}()
}

// Wait blocks until every detached task started so far has finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

type outcome int

const (
	outcomeFetched outcome = iota
	outcomeFallback
	outcomeCanceled
)

// populate fetches and stores the icon for domain, falling back to
// FallbackIcon on failure. Nothing is stored when ctx ended mid-fetch.
func (p *Pipeline) populate(ctx context.Context, domain string) outcome {
	log := p.log.WithField("domain", domain)

	result := outcomeFetched
	payload, err := p.fetcher.Fetch(ctx, p.Placeholder(domain))
	if err != nil {
		if ctx.Err() != nil {
			return outcomeCanceled
		}
		log.WithError(err).Debug("favicon load failed, caching fallback")
		payload = FallbackIcon
		result = outcomeFallback
	}

	if err := p.cache.Put(domain, payload); err != nil {
		log.WithError(err).Warn("failed to persist favicon cache")
	}
	return result
}

// ProgressFunc is called after each domain is processed.
// completed is the number of domains processed so far, total is the total count.
type ProgressFunc func(completed, total int)

// WarmResult summarises a Warm run.
type WarmResult struct {
	Fetched  int // real icons stored
	Failed   int // fallback stored
	Skipped  int // already cached
	Canceled int // not attempted because ctx ended
}

// Warm fills the cache for every uncached domain with at most concurrency
// fetches in flight. Unlike Enqueue it honours ctx.
func (p *Pipeline) Warm(ctx context.Context, domains []string, concurrency int, onProgress ProgressFunc) WarmResult {
	if concurrency <= 0 {
		concurrency = 1
	}

	seen := make(map[string]bool, len(domains))
	var todo []string
	var result WarmResult
	for _, d := range domains {
		if seen[d] {
			continue
		}
		seen[d] = true
		if _, ok := p.cache.Get(d); ok {
			result.Skipped++
			continue
		}
		todo = append(todo, d)
	}

	var mu sync.Mutex
	completed := 0
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, domain := range todo {
		if gctx.Err() != nil {
			mu.Lock()
			result.Canceled++
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				mu.Lock()
				result.Canceled++
				mu.Unlock()
				return nil
			}
			res := p.populate(gctx, domain)

			mu.Lock()
			switch res {
			case outcomeFetched:
				result.Fetched++
			case outcomeFallback:
				result.Failed++
			case outcomeCanceled:
				result.Canceled++
			}
			completed++
			if onProgress != nil {
				onProgress(completed, len(todo))
			}
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return result
}
