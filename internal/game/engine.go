// internal/game/engine.go
//
// Core game engine for a single Concentration session.
// Responsibilities:
//   - Own the shuffled deck, the current selection, the matched set and the lock.
//   - Accept card selections; ignore anything that arrives while locked,
//     finished, out of range, already selected or already matched.
//   - Resolve a pair on the second selection: request the success/mistake sound
//     immediately, then commit or reset on a delayed timer.
//   - Detect victory only inside the delayed match commit; emit GameFinished once
//     and start the repeating victory sound.
//   - Tear down every timer on Close.
//
// Notes:
//   - All state is guarded by one mutex; timer callbacks take the same lock, so
//     the session behaves as a single logical thread.
//   - Invariant violations panic: they are defects, not runtime conditions.
package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/concentration/internal/audio"
	"github.com/robalobadob/concentration/internal/deck"
	"github.com/robalobadob/concentration/internal/timer"
)

// Session is one game from shuffle to victory.
type Session struct {
	mu        sync.Mutex
	id        string
	cfg       Config
	clock     timer.Clock
	presenter Presenter
	audio     Audio

	deck      deck.Deck
	selection []Position
	matched   []bool
	nMatched  int
	locked    bool
	finished  bool
	closed    bool

	moves    int
	mistakes int
	started  time.Time

	pending timer.Handle // match commit or mismatch reset
	victory timer.Handle // repeating victory sound
}

// Option customises a Session.
type Option func(*Session)

// WithClock sets the time source. Defaults to the wall clock.
func WithClock(c timer.Clock) Option { return func(s *Session) { s.clock = c } }

// WithRand shuffles with rng instead of the global source.
func WithRand(rng *rand.Rand) Option {
	return func(s *Session) { s.deck = deck.Shuffle(s.cfg.PairCount, rng) }
}

// WithDeck uses a preset layout. It must be a valid paired deck of PairCount pairs.
func WithDeck(d deck.Deck) Option {
	return func(s *Session) { s.deck = append(deck.Deck(nil), d...) }
}

// WithID sets the session identifier. Defaults to a random UUID.
func WithID(id string) Option { return func(s *Session) { s.id = id } }

// New constructs a session with a freshly shuffled deck.
// p and a may be nil, in which case render commands or sounds are dropped.
func New(cfg Config, p Presenter, a Audio, opts ...Option) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	s := &Session{
		id:        uuid.NewString(),
		cfg:       cfg,
		clock:     timer.Real{},
		presenter: p,
		audio:     a,
	}
	if s.presenter == nil {
		s.presenter = discard{}
	}
	if s.audio == nil {
		s.audio = discard{}
	}
	for _, o := range opts {
		o(s)
	}
	if s.deck == nil {
		s.deck = deck.Shuffle(cfg.PairCount, nil)
	}
	if err := deck.Validate(s.deck); err != nil {
		return nil, fmt.Errorf("deck: %w", err)
	}
	if s.deck.Pairs() != cfg.PairCount {
		return nil, fmt.Errorf("deck has %d pairs, config wants %d", s.deck.Pairs(), cfg.PairCount)
	}
	s.matched = make([]bool, len(s.deck))
	s.selection = make([]Position, 0, 2)
	s.started = s.clock.Now()
	return s, nil
}

func (c Config) validate() error {
	switch {
	case c.PairCount < 1:
		return errors.New("pair count must be at least 1")
	case c.MatchDelay < 0 || c.MismatchDelay < 0:
		return errors.New("delays must not be negative")
	case c.VictoryRepeatInterval <= 0:
		return errors.New("victory repeat interval must be positive")
	}
	return nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Select reveals the card at pos. It reports whether the selection was taken;
// rejected selections change nothing and emit nothing.
func (s *Session) Select(pos Position) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.finished || s.locked {
		return false
	}
	if pos < 0 || int(pos) >= len(s.deck) || s.matched[pos] || s.selected(pos) {
		return false
	}

	s.selection = append(s.selection, pos)
	s.presenter.Reveal(pos, PairID(s.deck[pos]))
	if len(s.selection) == 2 {
		s.locked = true
		s.evaluate()
	}
	return true
}

func (s *Session) selected(pos Position) bool {
	for _, p := range s.selection {
		if p == pos {
			return true
		}
	}
	return false
}

// evaluate resolves the two selected cards. Must hold s.mu.
func (s *Session) evaluate() {
	a, b := s.selection[0], s.selection[1]
	s.moves++
	if s.deck[a] == s.deck[b] {
		s.audio.RequestPlayback(audio.PoolSuccess)
		s.pending = s.clock.AfterFunc(s.cfg.MatchDelay, s.commitMatch)
		return
	}
	s.mistakes++
	s.audio.RequestPlayback(audio.PoolMistake)
	s.pending = s.clock.AfterFunc(s.cfg.MismatchDelay, s.resetMismatch)
}

func (s *Session) commitMatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if len(s.selection) != 2 {
		panic(fmt.Sprintf("game %s: match commit with %d selected", s.id, len(s.selection)))
	}

	a, b := s.selection[0], s.selection[1]
	s.matched[a], s.matched[b] = true, true
	s.nMatched += 2
	if s.nMatched > len(s.deck) {
		panic(fmt.Sprintf("game %s: %d matched exceeds deck of %d", s.id, s.nMatched, len(s.deck)))
	}
	s.selection = s.selection[:0]
	s.locked = false
	s.pending = nil
	s.presenter.MarkMatched(a, b)

	if s.nMatched == len(s.deck) {
		s.finish()
	}
}

func (s *Session) resetMismatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if len(s.selection) != 2 {
		panic(fmt.Sprintf("game %s: mismatch reset with %d selected", s.id, len(s.selection)))
	}

	a, b := s.selection[0], s.selection[1]
	s.selection = s.selection[:0]
	s.locked = false
	s.pending = nil
	s.presenter.Unreveal(a, b)
}

// finish marks the game won. Must hold s.mu.
func (s *Session) finish() {
	if s.finished {
		panic(fmt.Sprintf("game %s: finished twice", s.id))
	}
	s.finished = true
	s.presenter.GameFinished(Summary{
		Pairs:    s.cfg.PairCount,
		Moves:    s.moves,
		Mistakes: s.mistakes,
		Elapsed:  s.clock.Now().Sub(s.started),
	})
	s.startVictory()
}

// startVictory plays the victory sound now and then on a repeat. Calling it
// again while the repeat is running does nothing. Must hold s.mu.
func (s *Session) startVictory() {
	if s.victory != nil {
		return
	}
	s.audio.RequestPlayback(audio.PoolVictory)
	s.victory = s.clock.Every(s.cfg.VictoryRepeatInterval, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return
		}
		s.audio.RequestPlayback(audio.PoolVictory)
	})
}

// Close tears the session down: pending resolutions and the victory repeat are
// cancelled and further selections are ignored. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	if s.victory != nil {
		s.victory.Stop()
	}
}

// State reports the coarse session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state()
}

func (s *Session) state() State {
	switch {
	case s.finished:
		return StateWon
	case len(s.selection) == 2:
		return StateResolving
	case len(s.selection) == 1:
		return StateOneSelected
	}
	return StateIdle
}

// Snapshot copies the visible state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:        s.id,
		State:     s.state(),
		Cards:     len(s.deck),
		Selection: append([]Position{}, s.selection...),
		Matched:   []Position{},
		Revealed:  []Card{},
		Locked:    s.locked,
		Finished:  s.finished,
		Moves:     s.moves,
		Mistakes:  s.mistakes,
	}
	for i, m := range s.matched {
		if m {
			snap.Matched = append(snap.Matched, Position(i))
		}
		if m || s.selected(Position(i)) {
			snap.Revealed = append(snap.Revealed, Card{Position: Position(i), Face: PairID(s.deck[i])})
		}
	}
	return snap
}

// discard drops render commands and sounds.
type discard struct{}

func (discard) Reveal(Position, PairID) {}
func (discard) MarkMatched(Position, Position) {}
func (discard) Unreveal(Position, Position) {}
func (discard) GameFinished(Summary) {}
func (discard) RequestPlayback(audio.PoolKind) {}
