package monitor

import (
	"strings"
	"sync"
	"time"
)

const (
	defaultMaxDedupEntries = 5000
	minDedupTTL            = time.Second
)

type dedupEntry struct {
	key string
	at  time.Time
}

// DedupCache suprime activities ya vistas en ciclos anteriores. Las entradas
// caducan por TTL y, si el cache se llena, se expulsa la más antigua (FIFO
// por inserción). Un duplicado no refresca la edad de su entrada.
type DedupCache struct {
	mu         sync.Mutex
	entries    map[string]time.Time
	order      []dedupEntry // orden de inserción == orden temporal
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// NewDedupCache crea el cache con el TTL dado (suelo de 1s) y el máximo de
// entradas (5000 si maxEntries <= 0).
func NewDedupCache(ttl time.Duration, maxEntries int) *DedupCache {
	if ttl < minDedupTTL {
		ttl = minDedupTTL
	}
	if maxEntries <= 0 {
		maxEntries = defaultMaxDedupEntries
	}
	return &DedupCache{
		entries:    make(map[string]time.Time),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// CheckAndRemember devuelve true si la clave no estaba presente (y la
// registra); false si ya se había visto. Barre las entradas caducadas antes
// de mirar, así que una clave caducada puede readmitirse.
func (c *DedupCache) CheckAndRemember(key string) bool {
	key = strings.ToLower(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.sweep(now)

	if _, seen := c.entries[key]; seen {
		return false
	}

	c.entries[key] = now
	c.order = append(c.order, dedupEntry{key: key, at: now})

	if len(c.order) > c.maxEntries {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest.key)
	}
	return true
}

// Len devuelve el número de entradas no caducadas.
func (c *DedupCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweep(c.now())
	return len(c.entries)
}

// sweep expulsa las entradas más viejas que el TTL. Como la inserción es
// monótona en el tiempo, basta con recortar el prefijo.
func (c *DedupCache) sweep(now time.Time) {
	for len(c.order) > 0 && now.Sub(c.order[0].at) > c.ttl {
		delete(c.entries, c.order[0].key)
		c.order = c.order[1:]
	}
}
