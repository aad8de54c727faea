// Package cache provides a duplicate-suppressing cache with per-entry
// expiry: concurrent Gets of the same key share one in-flight fetch, and
// a completed entry is reused until its TTL elapses.
package cache

import "time"

// Func fetches the value for a key.
type Func func(key string) ([]byte, error)

type Cache struct {
	requests chan request
	ttl      time.Duration
}

type request struct {
	key      string
	response chan result
}

type result struct {
	value []byte
	err   error
}

type entry struct {
	res       result
	ready     chan struct{}
	fetchedAt time.Time
}

// New starts a cache around f. A ttl of zero caches forever.
func New(f Func, ttl time.Duration) *Cache {
	cache := &Cache{requests: make(chan request), ttl: ttl}
	go cache.server(f)
	return cache
}

// Get returns the cached value for key, fetching it at most once per TTL
// window no matter how many callers ask concurrently.
func (c *Cache) Get(key string) ([]byte, error) {
	response := make(chan result)
	c.requests <- request{key, response}
	res := <-response
	return res.value, res.err
}

// Close stops the serving goroutine. Get must not be called afterwards.
func (c *Cache) Close() {
	close(c.requests)
}

func (c *Cache) server(f Func) {
	entries := make(map[string]*entry)
	for req := range c.requests {
		e, ok := entries[req.key]
		if !ok || c.expired(e) {
			e = &entry{ready: make(chan struct{}), fetchedAt: time.Now()}
			entries[req.key] = e
			go e.call(f, req.key)
		}
		go e.deliver(req.response)
	}
}

func (c *Cache) expired(e *entry) bool {
	return c.ttl > 0 && time.Since(e.fetchedAt) > c.ttl
}

func (e *entry) call(f Func, key string) {
	e.res.value, e.res.err = f(key)
	close(e.ready)
}

func (e *entry) deliver(response chan<- result) {
	<-e.ready
	response <- e.res
}
