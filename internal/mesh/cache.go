package mesh

import (
	"sort"
	"sync"
)

// Cache deduplicates conversion requests within one conversion run: each
// canonical location is converted at most once no matter how many entries
// reference it. The cache is an explicit per-run object, not global state,
// so independent runs in one process cannot interfere.
type Cache struct {
	svc Service

	mu      sync.Mutex
	results map[string]Handle
}

// NewCache wraps a Service with per-run result caching.
func NewCache(svc Service) *Cache {
	return &Cache{svc: svc, results: make(map[string]Handle)}
}

// Lookup returns the cached handle for a canonical location.
func (c *Cache) Lookup(source string) (Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.results[source]
	return h, ok
}

// CopyTexture forwards to the underlying service.
func (c *Cache) CopyTexture(source string) (string, error) {
	return c.svc.CopyTexture(source)
}

// ConvertAll converts every unique location on a bounded worker pool and
// caches the results. The first failure aborts the run; remaining queued
// work is drained without being issued.
func (c *Cache) ConvertAll(sources []string, scale float64, workers int) error {
	unique := c.dedupe(sources)
	if len(unique) == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(unique) {
		workers = len(unique)
	}

	jobs := make(chan string, len(unique))
	for _, s := range unique {
		jobs <- s
	}
	close(jobs)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
		failed   = make(chan struct{})
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for src := range jobs {
				select {
				case <-failed:
					return
				default:
				}
				h, err := c.svc.Convert(src, scale)
				if err != nil {
					errOnce.Do(func() {
						firstErr = err
						close(failed)
					})
					return
				}
				c.mu.Lock()
				c.results[src] = h
				c.mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return firstErr
}

// dedupe returns the not-yet-cached unique locations in sorted order, so
// conversion requests are deterministic run to run.
func (c *Cache) dedupe(sources []string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]bool, len(sources))
	var unique []string
	for _, s := range sources {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		if _, done := c.results[s]; !done {
			unique = append(unique, s)
		}
	}
	sort.Strings(unique)
	return unique
}
