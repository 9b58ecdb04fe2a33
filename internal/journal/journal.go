// internal/journal/journal.go
//
// Ordered, bounded log of the commands a session emits for its presentation
// adapter. A Journal is both the session's game.Presenter and the audio
// selector's audio.Player, so the browser learns what to draw and what to play
// from one stream by polling Since(cursor).
//
// Characteristics:
//   - Entries carry a monotonically increasing Seq starting at 1.
//   - Only the newest Capacity entries are kept; older ones are dropped.
//   - Concurrency-safe; never calls back into the session.

package journal

import (
	"sync"
	"time"

	"github.com/robalobadob/concentration/internal/audio"
	"github.com/robalobadob/concentration/internal/game"
)

// Kind is the entry type.
type Kind string

const (
	KindReveal   Kind = "reveal"
	KindMatched  Kind = "matched"
	KindUnreveal Kind = "unreveal"
	KindFinished Kind = "finished"
	KindPlay     Kind = "play"
)

// DefaultCapacity bounds a journal's memory; the repeating victory sound would
// otherwise grow it forever.
const DefaultCapacity = 512

// Entry is one render command or playback request.
type Entry struct {
	Seq       uint64          `json:"seq"`
	Kind      Kind            `json:"kind"`
	At        time.Time       `json:"at"`
	Positions []game.Position `json:"positions,omitempty"`
	Face      game.PairID     `json:"face,omitempty"`
	Sound     *audio.Handle   `json:"sound,omitempty"`
	Summary   *Summary        `json:"summary,omitempty"`
}

// Summary is game.Summary in wire form.
type Summary struct {
	Pairs     int   `json:"pairs"`
	Moves     int   `json:"moves"`
	Mistakes  int   `json:"mistakes"`
	ElapsedMs int64 `json:"elapsedMs"`
}

// Journal records entries for one session.
type Journal struct {
	mu       sync.Mutex
	now      func() time.Time
	capacity int
	next     uint64
	entries  []Entry

	onFinish func(game.Summary)
}

// New returns a journal keeping up to capacity entries (DefaultCapacity if <= 0).
// now stamps entries; nil uses time.Now.
func New(capacity int, now func() time.Time) *Journal {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if now == nil {
		now = time.Now
	}
	return &Journal{now: now, capacity: capacity, next: 1}
}

// OnFinish registers f to be called (in its own goroutine) when the game
// finishes. Used to record results without holding the session lock.
func (j *Journal) OnFinish(f func(game.Summary)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.onFinish = f
}

func (j *Journal) append(e Entry) {
	j.mu.Lock()
	defer j.mu.Unlock()
	e.Seq = j.next
	e.At = j.now()
	j.next++
	j.entries = append(j.entries, e)
	if over := len(j.entries) - j.capacity; over > 0 {
		j.entries = append(j.entries[:0:0], j.entries[over:]...)
	}
}

// Since returns entries with Seq > seq and the cursor to pass next time.
func (j *Journal) Since(seq uint64) ([]Entry, uint64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := []Entry{}
	for _, e := range j.entries {
		if e.Seq > seq {
			out = append(out, e)
		}
	}
	return out, j.next - 1
}

// Len reports how many entries are retained.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

func (j *Journal) Reveal(p game.Position, face game.PairID) {
	j.append(Entry{Kind: KindReveal, Positions: []game.Position{p}, Face: face})
}

func (j *Journal) MarkMatched(a, b game.Position) {
	j.append(Entry{Kind: KindMatched, Positions: []game.Position{a, b}})
}

func (j *Journal) Unreveal(a, b game.Position) {
	j.append(Entry{Kind: KindUnreveal, Positions: []game.Position{a, b}})
}

func (j *Journal) GameFinished(s game.Summary) {
	j.append(Entry{Kind: KindFinished, Summary: &Summary{
		Pairs:     s.Pairs,
		Moves:     s.Moves,
		Mistakes:  s.Mistakes,
		ElapsedMs: s.ElapsedMs(),
	}})
	j.mu.Lock()
	f := j.onFinish
	j.mu.Unlock()
	if f != nil {
		go f(s)
	}
}

// Play records a playback request for the browser to perform.
func (j *Journal) Play(h audio.Handle) error {
	j.append(Entry{Kind: KindPlay, Sound: &h})
	return nil
}
