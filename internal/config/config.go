// internal/config/config.go
//
// Typed server configuration, read from the environment.
// Responsibilities:
//   - Declaring every key with its default (caarlos0/env tags).
//   - Validating values before anything is wired.
//   - Mapping the GAME_* block onto game.Config and the sound loading plan.

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/robalobadob/concentration/internal/game"
	"github.com/robalobadob/concentration/internal/resource"
)

// Config is the full server configuration.
type Config struct {
	Port         string        `env:"PORT"           envDefault:"5175"`
	LogLevel     string        `env:"LOG_LEVEL"      envDefault:"info"`
	ClientOrigin string        `env:"CLIENT_ORIGIN"  envDefault:"http://localhost:5173"`
	DBPath       string        `env:"DB_PATH"        envDefault:"./data/concentration.db"`
	AssetDir     string        `env:"ASSET_DIR"      envDefault:"./public"`
	AssetBaseURL string        `env:"ASSET_BASE_URL"`
	FacesFile    string        `env:"FACES_FILE"`
	JWTSecret    string        `env:"JWT_SECRET"     envDefault:"dev_secret_change_me"`
	DailySalt    string        `env:"DAILY_SALT"     envDefault:"concentration"`
	SessionTTL   time.Duration `env:"SESSION_TTL"    envDefault:"2h"`
	EndMessage   string        `env:"END_MESSAGE"    envDefault:"Well done! Every pair found."`
	Production   bool          `env:"PRODUCTION"`

	Game Game `envPrefix:"GAME_"`
}

// Game holds the gameplay tunables.
type Game struct {
	PairCount             int           `env:"PAIR_COUNT"                   envDefault:"14"`
	MatchDelay            time.Duration `env:"MATCH_DELAY"                  envDefault:"600ms"`
	MismatchDelay         time.Duration `env:"MISMATCH_DELAY"               envDefault:"1000ms"`
	VictoryRepeatInterval time.Duration `env:"VICTORY_REPEAT_INTERVAL"      envDefault:"2s"`
	MaxMistakeSounds      int           `env:"MAX_MISTAKE_SOUND_CANDIDATES" envDefault:"50"`
	SoundProbeTimeout     time.Duration `env:"SOUND_PROBE_TIMEOUT"          envDefault:"2s"`
}

// Load parses the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses vars instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var c Config
	if err := env.ParseWithOptions(&c, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validation errors.
var (
	ErrPairCount    = errors.New("GAME_PAIR_COUNT must be at least 1")
	ErrDelay        = errors.New("GAME_MATCH_DELAY and GAME_MISMATCH_DELAY must not be negative")
	ErrVictoryRate  = errors.New("GAME_VICTORY_REPEAT_INTERVAL must be positive")
	ErrCandidates   = errors.New("GAME_MAX_MISTAKE_SOUND_CANDIDATES must be at least 1")
	ErrProbeTimeout = errors.New("GAME_SOUND_PROBE_TIMEOUT must be positive")
	ErrSessionTTL   = errors.New("SESSION_TTL must be positive")
)

// Validate reports the first invalid value.
func (c Config) Validate() error {
	g := c.Game
	switch {
	case g.PairCount < 1:
		return ErrPairCount
	case g.MatchDelay < 0 || g.MismatchDelay < 0:
		return ErrDelay
	case g.VictoryRepeatInterval <= 0:
		return ErrVictoryRate
	case g.MaxMistakeSounds < 1:
		return ErrCandidates
	case g.SoundProbeTimeout <= 0:
		return ErrProbeTimeout
	case c.SessionTTL <= 0:
		return ErrSessionTTL
	}
	return nil
}

// HistoryEnabled reports whether results are recorded. DB_PATH=off disables it.
func (c Config) HistoryEnabled() bool { return c.DBPath != "" && c.DBPath != "off" }

// Session returns the per-session settings.
func (g Game) Session() game.Config {
	return game.Config{
		PairCount:             g.PairCount,
		MatchDelay:            g.MatchDelay,
		MismatchDelay:         g.MismatchDelay,
		VictoryRepeatInterval: g.VictoryRepeatInterval,
	}
}

// Plan returns the sound loading plan.
func (g Game) Plan() resource.Plan {
	return resource.DefaultPlan(g.MaxMistakeSounds, g.SoundProbeTimeout)
}
