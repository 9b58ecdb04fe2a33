// internal/resource/loader.go
//
// Best-effort discovery of optional audio assets at startup.
// Responsibilities:
//   - Probe numbered mistake sounds in order, stopping at the first gap after a hit.
//   - Fall back to a default mistake sound when nothing loads.
//   - Probe the named success candidates and the victory sound independently.
//   - Bound every attempt with a per-candidate timeout; never fail.
//
// The three pools load concurrently; each pool probes its own candidates in sequence.

package resource

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/concentration/internal/audio"
)

// Plan lists the candidates to probe and the volume each pool plays at.
type Plan struct {
	MistakePattern    string // fmt pattern taking a 1-based index
	MaxMistake        int
	MistakeFallback   string
	SuccessCandidates []string
	Victory           string
	Timeout           time.Duration // per candidate

	MistakeVolume float64
	SuccessVolume float64
	VictoryVolume float64
}

// DefaultPlan returns the game's standard asset layout.
func DefaultPlan(maxMistake int, timeout time.Duration) Plan {
	return Plan{
		MistakePattern:    "sounds/sound%d.mp3",
		MaxMistake:        maxMistake,
		MistakeFallback:   "sounds/sound1.mp3",
		SuccessCandidates: []string{"sounds/soundsuccess1.mp3", "sounds/soundsuccess.mp3"},
		Victory:           "sounds/soundfinal.mp3",
		Timeout:           timeout,
		MistakeVolume:     0.6,
		SuccessVolume:     0.75,
		VictoryVolume:     0.85,
	}
}

// Budget is the longest Load can take: one timeout per candidate.
func (p Plan) Budget() time.Duration {
	n := p.MaxMistake + len(p.SuccessCandidates)
	if p.Victory != "" {
		n++
	}
	return time.Duration(n) * p.Timeout
}

// Loader probes a Plan through a Prober.
type Loader struct {
	prober Prober
	plan   Plan
}

func NewLoader(p Prober, plan Plan) *Loader {
	return &Loader{prober: p, plan: plan}
}

// Load probes every pool and returns what was found. It never returns an error:
// missing or unplayable resources are skipped.
func (l *Loader) Load(ctx context.Context) *audio.Library {
	ctx, cancel := context.WithTimeout(ctx, l.plan.Budget())
	defer cancel()

	lib := &audio.Library{}
	var g errgroup.Group
	g.Go(func() error {
		lib.Mistake = l.loadMistakes(ctx)
		return nil
	})
	g.Go(func() error {
		lib.Success = l.loadNamed(ctx, l.plan.SuccessCandidates, l.plan.SuccessVolume)
		return nil
	})
	g.Go(func() error {
		if l.plan.Victory != "" {
			lib.Victory = l.loadNamed(ctx, []string{l.plan.Victory}, l.plan.VictoryVolume)
		}
		return nil
	})
	_ = g.Wait()

	log.Info().
		Int("mistake", len(lib.Mistake)).
		Int("success", len(lib.Success)).
		Int("victory", len(lib.Victory)).
		Msg("sounds loaded")
	return lib
}

// LoadInto runs Load and publishes the result to c.
func (l *Loader) LoadInto(ctx context.Context, c *audio.Catalog) {
	c.Publish(l.Load(ctx))
}

// loadMistakes probes sound1..soundN. Once at least one sound has loaded, the
// next failure is taken as the end of the set.
func (l *Loader) loadMistakes(ctx context.Context) []audio.Handle {
	var out []audio.Handle
	for i := 1; i <= l.plan.MaxMistake; i++ {
		name := fmt.Sprintf(l.plan.MistakePattern, i)
		if err := l.probe(ctx, name); err != nil {
			if len(out) > 0 {
				break
			}
			continue
		}
		out = append(out, audio.Handle{Name: name, Volume: l.plan.MistakeVolume})
	}
	if len(out) == 0 && l.plan.MistakeFallback != "" {
		// Unverified; playback of it may fail silently.
		out = append(out, audio.Handle{Name: l.plan.MistakeFallback, Volume: l.plan.MistakeVolume})
	}
	return out
}

func (l *Loader) loadNamed(ctx context.Context, names []string, volume float64) []audio.Handle {
	var out []audio.Handle
	for _, name := range names {
		if err := l.probe(ctx, name); err != nil {
			continue
		}
		out = append(out, audio.Handle{Name: name, Volume: volume})
	}
	return out
}

func (l *Loader) probe(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pctx, cancel := context.WithTimeout(ctx, l.plan.Timeout)
	defer cancel()
	err := l.prober.Probe(pctx, name)
	if err != nil {
		log.Debug().Err(err).Str("src", name).Msg("sound unavailable")
	}
	return err
}
