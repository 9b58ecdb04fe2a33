// internal/deck/deck.go
//
// Paired deck generation for the Concentration game.
// Responsibilities:
//   - Build the unshuffled deck: each face value 1..pairs appended twice.
//   - Apply an in-place Fisher–Yates shuffle driven by a caller-supplied source.
//   - Validate externally supplied decks (tests, replays).
package deck

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// Deck is the ordered card layout. Index = position, value = pair ID (1..pairs).
type Deck []int

// Pairs reports the number of distinct values the deck holds.
func (d Deck) Pairs() int { return len(d) / 2 }

// Ordered returns the unshuffled deck [1,1,2,2,...,pairs,pairs].
func Ordered(pairs int) Deck {
	if pairs < 1 {
		return Deck{}
	}
	d := make(Deck, 0, 2*pairs)
	for v := 1; v <= pairs; v++ {
		d = append(d, v, v)
	}
	return d
}

// Shuffle returns a uniformly shuffled paired deck of length 2*pairs.
// A nil rng uses the auto-seeded global source.
func Shuffle(pairs int, rng *rand.Rand) Deck {
	d := Ordered(pairs)
	intN := rand.IntN
	if rng != nil {
		intN = rng.IntN
	}
	for i := len(d) - 1; i > 0; i-- {
		j := intN(i + 1) // 0..i inclusive
		d[i], d[j] = d[j], d[i]
	}
	return d
}

// Validate checks that d is a well-formed paired deck: even, non-empty length and
// every value 1..len/2 present exactly twice.
func Validate(d Deck) error {
	if len(d) == 0 || len(d)%2 != 0 {
		return errors.New("deck length must be a positive even number")
	}
	pairs := d.Pairs()
	counts := make([]int, pairs+1)
	for pos, v := range d {
		if v < 1 || v > pairs {
			return fmt.Errorf("position %d: value %d out of range 1..%d", pos, v, pairs)
		}
		counts[v]++
	}
	for v := 1; v <= pairs; v++ {
		if counts[v] != 2 {
			return fmt.Errorf("value %d appears %d times, want 2", v, counts[v])
		}
	}
	return nil
}
