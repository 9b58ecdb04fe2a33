// internal/audio/types.go
//
// Core audio types for the Concentration game.
// Defines:
//   - PoolKind: the event category a sound belongs to (mistake/success/victory).
//   - Handle:   an opaque playable resource (name + volume).
//   - Library:  the three loaded pools.
//   - Catalog:  an atomically swappable Library shared by all sessions.

package audio

import "sync/atomic"

// PoolKind names a collection of interchangeable sounds for one event category.
type PoolKind string

const (
	PoolMistake PoolKind = "mistake"
	PoolSuccess PoolKind = "success"
	PoolVictory PoolKind = "victory"
)

// Handle is a playable resource. Name is the resource path relative to the
// asset root (e.g. "sounds/sound3.mp3").
type Handle struct {
	Name   string  `json:"src"`
	Volume float64 `json:"volume"`
}

// Source exposes pools by kind.
type Source interface {
	Pool(kind PoolKind) []Handle
}

// Library holds the loaded pools. It is treated as immutable once published.
type Library struct {
	Mistake []Handle `json:"mistake"`
	Success []Handle `json:"success"`
	Victory []Handle `json:"victory"`
}

// Pool returns the handles for kind, or nil for an unknown kind.
func (l *Library) Pool(kind PoolKind) []Handle {
	if l == nil {
		return nil
	}
	switch kind {
	case PoolMistake:
		return l.Mistake
	case PoolSuccess:
		return l.Success
	case PoolVictory:
		return l.Victory
	}
	return nil
}

// Catalog publishes a Library to concurrent readers. The zero value is an
// empty catalog whose pools are all empty.
type Catalog struct {
	cur atomic.Pointer[Library]
}

// Publish replaces the current library.
func (c *Catalog) Publish(l *Library) { c.cur.Store(l) }

// Current returns the published library, or an empty one.
func (c *Catalog) Current() *Library {
	if l := c.cur.Load(); l != nil {
		return l
	}
	return &Library{}
}

func (c *Catalog) Pool(kind PoolKind) []Handle { return c.Current().Pool(kind) }
