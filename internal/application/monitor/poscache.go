package monitor

import (
	"sync"
	"time"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

const defaultPositionTTL = time.Minute

type posEntry struct {
	address string
	pos     domain.Position
	at      time.Time
}

// PositionCache guarda la última foto de posiciones de cada líder para la
// consola. Clave address|asset|conditionId. Una posición idéntica y fresca
// no se reescribe; las entradas caducan por TTL si el líder deja de verse.
type PositionCache struct {
	mu      sync.Mutex
	entries map[string]posEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewPositionCache crea el cache con el TTL dado (60s si ttl <= 0).
func NewPositionCache(ttl time.Duration) *PositionCache {
	if ttl <= 0 {
		ttl = defaultPositionTTL
	}
	return &PositionCache{
		entries: make(map[string]posEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Update incorpora la foto de posiciones de un líder y devuelve cuántas
// entradas se escribieron. Las posiciones que el líder cerró se retiran.
func (c *PositionCache) Update(address string, positions []domain.Position) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	written := 0
	seen := make(map[string]struct{}, len(positions))

	for _, p := range positions {
		key := posKey(address, p.Asset, p.ConditionID)
		seen[key] = struct{}{}

		if e, ok := c.entries[key]; ok && e.pos == p && now.Sub(e.at) <= c.ttl {
			continue
		}
		c.entries[key] = posEntry{address: address, pos: p, at: now}
		written++
	}

	for key, e := range c.entries {
		if e.address != address {
			continue
		}
		if _, ok := seen[key]; !ok {
			delete(c.entries, key)
		}
	}
	return written
}

// Snapshot devuelve las posiciones no caducadas agrupadas por líder.
func (c *PositionCache) Snapshot() map[string][]domain.Position {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	out := make(map[string][]domain.Position)
	for key, e := range c.entries {
		if now.Sub(e.at) > c.ttl {
			delete(c.entries, key)
			continue
		}
		out[e.address] = append(out[e.address], e.pos)
	}
	return out
}

// Len devuelve el número de entradas vivas.
func (c *PositionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for _, e := range c.entries {
		if now.Sub(e.at) <= c.ttl {
			n++
		}
	}
	return n
}

func posKey(address, asset, conditionID string) string {
	return address + "|" + asset + "|" + conditionID
}
