package audio

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingPlayer struct {
	played []Handle
	err    error
}

func (r *recordingPlayer) Play(h Handle) error {
	r.played = append(r.played, h)
	return r.err
}

func handles(names ...string) []Handle {
	out := make([]Handle, len(names))
	for i, n := range names {
		out[i] = Handle{Name: n, Volume: 0.6}
	}
	return out
}

func TestPick_EmptyPool(t *testing.T) {
	require.Equal(t, -1, Pick(rand.IntN, 0, -1, MaxPickAttempts))
}

func TestPick_SingleEntryAlwaysZero(t *testing.T) {
	for i := 0; i < 50; i++ {
		require.Equal(t, 0, Pick(rand.IntN, 1, 0, MaxPickAttempts))
	}
}

func TestPick_RetriesPastRepeat(t *testing.T) {
	script := []int{2, 2, 2, 2, 0}
	calls := 0
	intN := func(int) int { v := script[calls]; calls++; return v }
	require.Equal(t, 0, Pick(intN, 3, 2, MaxPickAttempts))
	require.Equal(t, 5, calls)
}

func TestPick_AvoidsRepeat(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	last := -1
	for i := 0; i < 1000; i++ {
		idx := Pick(rng.IntN, 6, last, MaxPickAttempts)
		require.NotEqual(t, last, idx, "draw %d", i)
		last = idx
	}
}

func TestPick_AttemptBoundAcceptsRepeat(t *testing.T) {
	calls := 0
	stuck := func(int) int { calls++; return 1 }
	require.Equal(t, 1, Pick(stuck, 3, 1, MaxPickAttempts))
	require.Equal(t, MaxPickAttempts, calls)
}

func TestSelector_EmptyPoolIsNoop(t *testing.T) {
	p := &recordingPlayer{}
	s := NewSelector(&Library{}, p, nil)
	require.NotPanics(t, func() { s.RequestPlayback(PoolMistake) })
	require.Empty(t, p.played)
	require.Equal(t, -1, s.Last(PoolMistake))
}

func TestSelector_IndependentMemoryPerPool(t *testing.T) {
	lib := &Library{
		Mistake: handles("m1", "m2", "m3"),
		Success: handles("s1", "s2"),
	}
	p := &recordingPlayer{}
	s := NewSelector(lib, p, rand.New(rand.NewPCG(9, 9)))

	s.RequestPlayback(PoolMistake)
	m := s.Last(PoolMistake)
	require.Equal(t, -1, s.Last(PoolSuccess))

	s.RequestPlayback(PoolSuccess)
	require.Equal(t, m, s.Last(PoolMistake))
	require.NotEqual(t, -1, s.Last(PoolSuccess))
	require.Len(t, p.played, 2)
}

func TestSelector_NoBackToBackRepeats(t *testing.T) {
	lib := &Library{Mistake: handles("m1", "m2", "m3", "m4", "m5")}
	p := &recordingPlayer{}
	s := NewSelector(lib, p, rand.New(rand.NewPCG(11, 12)))
	for i := 0; i < 200; i++ {
		s.RequestPlayback(PoolMistake)
	}
	for i := 1; i < len(p.played); i++ {
		require.NotEqual(t, p.played[i-1], p.played[i], "play %d", i)
	}
}

func TestSelector_SwallowsPlaybackErrors(t *testing.T) {
	lib := &Library{Victory: handles("sounds/soundfinal.mp3")}
	p := &recordingPlayer{err: errors.New("autoplay blocked")}
	s := NewSelector(lib, p, nil)
	require.NotPanics(t, func() {
		s.RequestPlayback(PoolVictory)
		s.RequestPlayback(PoolVictory)
	})
	require.Len(t, p.played, 2)
	require.Equal(t, 0, s.Last(PoolVictory))
}

func TestCatalog_PublishSwapsLibrary(t *testing.T) {
	var c Catalog
	require.Empty(t, c.Pool(PoolMistake))

	c.Publish(&Library{Mistake: handles("m1")})
	require.Len(t, c.Pool(PoolMistake), 1)
	require.Nil(t, c.Pool(PoolKind("other")))
}
