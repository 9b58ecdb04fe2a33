// main.go
//
// Entry point for the Concentration game server.
// Startup order:
//   1. Load .env (best effort), parse typed config, set log level.
//   2. Load card faces; open and migrate the results database unless DB_PATH=off.
//   3. Probe the sound library in the background; sessions play nothing until it lands.
//   4. Serve HTTP, sweep idle sessions, shut down cleanly on SIGINT/SIGTERM.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/concentration/assets"
	"github.com/robalobadob/concentration/internal/audio"
	"github.com/robalobadob/concentration/internal/config"
	"github.com/robalobadob/concentration/internal/faces"
	"github.com/robalobadob/concentration/internal/history"
	"github.com/robalobadob/concentration/internal/httpserver"
	"github.com/robalobadob/concentration/internal/resource"
	"github.com/robalobadob/concentration/internal/store"
	"github.com/robalobadob/concentration/internal/timer"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	if err := faces.Init(cfg.FacesFile); err != nil {
		log.Fatal().Err(err).Msg("failed to load card faces")
	}
	if cfg.Game.PairCount > faces.Count() {
		log.Fatal().Int("pairs", cfg.Game.PairCount).Int("faces", faces.Count()).Msg("not enough card faces for GAME_PAIR_COUNT")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := timer.Real{}
	catalog := &audio.Catalog{}
	opts := []httpserver.Option{httpserver.WithClock(clock), httpserver.WithCatalog(catalog)}

	if cfg.HistoryEnabled() {
		db, err := history.Open(cfg.DBPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
		}
		defer db.Close()
		if err := history.Migrate(db, assets.Migrations()); err != nil {
			log.Fatal().Err(err).Msg("migrate database")
		}
		opts = append(opts, httpserver.WithHistory(history.NewStore(db)))
	} else {
		log.Info().Msg("results history disabled")
	}

	go resource.NewLoader(prober(cfg), cfg.Game.Plan()).LoadInto(ctx, catalog)

	mem := store.NewMemoryStore(clock.Now)
	srv := httpserver.New(cfg, mem, opts...)
	sweep := srv.StartSweeper(time.Minute)

	hs := &http.Server{Addr: ":" + cfg.Port, Handler: srv.Router()}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(sctx)
	}()

	log.Info().Str("port", cfg.Port).Msg("starting concentration server")
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server exited")
	}

	sweep.Stop()
	mem.Close()
	log.Info().Msg("server stopped")
}

// prober probes sounds over HTTP when ASSET_BASE_URL is set, otherwise from ASSET_DIR.
func prober(cfg config.Config) resource.Prober {
	if cfg.AssetBaseURL != "" {
		return resource.HTTPProber{BaseURL: cfg.AssetBaseURL, Client: &http.Client{}}
	}
	return resource.FSProber{FS: os.DirFS(cfg.AssetDir)}
}
