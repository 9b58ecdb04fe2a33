// internal/game/types.go
//
// Core type definitions for the Concentration game engine.
// Defines:
//   - PairID / Position: a card's face value and its slot in the deck.
//   - State:     coarse session state (idle/one_selected/resolving/won).
//   - Presenter: render commands the session emits.
//   - Audio:     playback requests the session emits.
//   - Config, Summary, Snapshot.

package game

import (
	"time"

	"github.com/robalobadob/concentration/internal/audio"
)

// PairID identifies which two cards belong together (1..pairs).
type PairID int

// Position is the index of a card slot in the deck.
type Position int

// State is the session's coarse state.
type State string

const (
	StateIdle        State = "idle"
	StateOneSelected State = "one_selected"
	StateResolving   State = "resolving"
	StateWon         State = "won"
)

// Presenter receives render commands. Calls are made while the session is
// locked; implementations must not call back into the session.
type Presenter interface {
	Reveal(p Position, face PairID)
	MarkMatched(a, b Position)
	Unreveal(a, b Position)
	GameFinished(s Summary)
}

// Audio receives playback requests. The same locking rule as Presenter applies.
type Audio interface {
	RequestPlayback(kind audio.PoolKind)
}

// Config is fixed when a session is constructed.
type Config struct {
	PairCount             int
	MatchDelay            time.Duration
	MismatchDelay         time.Duration
	VictoryRepeatInterval time.Duration
}

// DefaultConfig mirrors the shipped game: 14 pairs, 600ms to lock in a match,
// 1s before a mismatch flips back, victory sound every 2s.
func DefaultConfig() Config {
	return Config{
		PairCount:             14,
		MatchDelay:            600 * time.Millisecond,
		MismatchDelay:         1000 * time.Millisecond,
		VictoryRepeatInterval: 2 * time.Second,
	}
}

// Summary describes a finished game.
type Summary struct {
	Pairs    int           `json:"pairs"`
	Moves    int           `json:"moves"`
	Mistakes int           `json:"mistakes"`
	Elapsed  time.Duration `json:"-"`
}

// ElapsedMs is Elapsed in whole milliseconds.
func (s Summary) ElapsedMs() int64 { return s.Elapsed.Milliseconds() }

// Card is a face-up card in a Snapshot.
type Card struct {
	Position Position `json:"position"`
	Face     PairID   `json:"face"`
}

// Snapshot is a read-only copy of a session's visible state. Faces are only
// included for cards that are face up.
type Snapshot struct {
	ID        string     `json:"id"`
	State     State      `json:"state"`
	Cards     int        `json:"cards"`
	Selection []Position `json:"selection"`
	Matched   []Position `json:"matched"`
	Revealed  []Card     `json:"revealed"`
	Locked    bool       `json:"locked"`
	Finished  bool       `json:"finished"`
	Moves     int        `json:"moves"`
	Mistakes  int        `json:"mistakes"`
}
