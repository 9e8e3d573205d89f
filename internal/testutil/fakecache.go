package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"carepath/internal/model"
)

// ComposedCache is an in-memory ComposedCache that counts hits.
type ComposedCache struct {
	mu      sync.Mutex
	entries map[int]map[string]*model.ComposedDay
	Hits    int
	Misses  int
}

func NewComposedCache() *ComposedCache {
	return &ComposedCache{entries: map[int]map[string]*model.ComposedDay{}}
}

func (c *ComposedCache) Get(_ context.Context, day int, language string) (*model.ComposedDay, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.entries[day][language]; ok {
		c.Hits++
		cp := *d
		return &cp, nil
	}
	c.Misses++
	return nil, nil
}

func (c *ComposedCache) Set(_ context.Context, composed *model.ComposedDay) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries[composed.DayNumber] == nil {
		c.entries[composed.DayNumber] = map[string]*model.ComposedDay{}
	}
	cp := *composed
	c.entries[composed.DayNumber][composed.Language] = &cp
	return nil
}

func (c *ComposedCache) Invalidate(_ context.Context, day int) error {
	c.mu.Lock()
	delete(c.entries, day)
	c.mu.Unlock()
	return nil
}

// Cached reports whether day is cached for language.
func (c *ComposedCache) Cached(day int, language string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[day][language]
	return ok
}

// UnlockIndex is an in-memory UnlockIndex.
type UnlockIndex struct {
	mu  sync.Mutex
	due map[string]time.Time
}

func NewUnlockIndex() *UnlockIndex {
	return &UnlockIndex{due: map[string]time.Time{}}
}

func (u *UnlockIndex) Track(_ context.Context, participantID string, at time.Time) error {
	u.mu.Lock()
	u.due[participantID] = at
	u.mu.Unlock()
	return nil
}

func (u *UnlockIndex) Untrack(_ context.Context, participantID string) error {
	u.mu.Lock()
	delete(u.due, participantID)
	u.mu.Unlock()
	return nil
}

func (u *UnlockIndex) Due(_ context.Context, now time.Time, limit int) ([]string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	var ids []string
	for id, at := range u.due {
		if !at.After(now) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		if u.due[ids[i]].Equal(u.due[ids[j]]) {
			return ids[i] < ids[j]
		}
		return u.due[ids[i]].Before(u.due[ids[j]])
	})
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// At returns the tracked time for participantID.
func (u *UnlockIndex) At(participantID string) (time.Time, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	at, ok := u.due[participantID]
	return at, ok
}
