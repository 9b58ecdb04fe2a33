package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/concentration/assets"
	"github.com/robalobadob/concentration/internal/audio"
	"github.com/robalobadob/concentration/internal/config"
	"github.com/robalobadob/concentration/internal/daily"
	"github.com/robalobadob/concentration/internal/deck"
	"github.com/robalobadob/concentration/internal/faces"
	"github.com/robalobadob/concentration/internal/game"
	"github.com/robalobadob/concentration/internal/history"
	"github.com/robalobadob/concentration/internal/journal"
	"github.com/robalobadob/concentration/internal/store"
	"github.com/robalobadob/concentration/internal/timer"
)

var start = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

type harness struct {
	t       *testing.T
	srv     *Server
	clock   *timer.Manual
	store   store.Store
	history *history.Store
	catalog *audio.Catalog
	assets  string
	cookies []*http.Cookie
}

func newHarness(t *testing.T, withHistory bool) *harness {
	t.Helper()
	require.NoError(t, faces.Init(""))

	dir := t.TempDir()
	cfg, err := config.LoadFrom(map[string]string{
		"GAME_PAIR_COUNT": "2",
		"DAILY_SALT":      "test-salt",
		"ASSET_DIR":       dir,
		"JWT_SECRET":      "test-secret",
	})
	require.NoError(t, err)

	h := &harness{t: t, clock: timer.NewManual(start), catalog: &audio.Catalog{}, assets: dir}
	h.store = store.NewMemoryStore(h.clock.Now)
	t.Cleanup(h.store.Close)

	opts := []Option{WithClock(h.clock), WithCatalog(h.catalog)}
	if withHistory {
		db, err := history.Open(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		require.NoError(t, history.Migrate(db, assets.Migrations()))
		h.history = history.NewStore(db)
		opts = append(opts, WithHistory(h.history))
	}
	h.srv = New(cfg, h.store, opts...)
	return h
}

// do sends a request carrying the harness cookie jar and keeps any cookies set.
func (h *harness) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for _, c := range h.cookies {
		if c.Name == anonCookieName {
			req.AddCookie(c)
		}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.srv.Router().ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		h.setCookie(c)
	}
	return rec
}

func (h *harness) setCookie(c *http.Cookie) {
	for i, old := range h.cookies {
		if old.Name == c.Name {
			h.cookies[i] = c
			return
		}
	}
	h.cookies = append(h.cookies, c)
}

func (h *harness) newGame(mode string) newGameRes {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/game/new", newGameReq{Mode: mode}, "")
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	var res newGameRes
	require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func (h *harness) selectCard(g newGameRes, pos int) selectRes {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/game/select", selectReq{GameID: g.GameID, Position: &pos}, g.Token)
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	var res selectRes
	require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func (h *harness) events(id string, since uint64) eventsRes {
	h.t.Helper()
	rec := h.do(http.MethodGet, "/game/"+id+"/events?since="+strconv.FormatUint(since, 10), nil, "")
	require.Equal(h.t, http.StatusOK, rec.Code)
	var res eventsRes
	require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

// dailyPairs returns the positions of each pair in today's daily layout.
func dailyPairs(pairs int) map[int][]int {
	d := deck.Shuffle(pairs, daily.Rand(start, "test-salt"))
	out := map[int][]int{}
	for pos, v := range d {
		out[v] = append(out[v], pos)
	}
	return out
}

func kinds(es []journal.Entry) []journal.Kind {
	out := make([]journal.Kind, len(es))
	for i, e := range es {
		out[i] = e.Kind
	}
	return out
}

func TestHealthAndRoot(t *testing.T) {
	h := newHarness(t, false)

	rec := h.do(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"ok":true}`, rec.Body.String())
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = h.do(http.MethodGet, "/", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "concentration-go")

	rec = h.do(http.MethodGet, "/nope", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodOptions, "/game/new", nil, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestNewGame_Response(t *testing.T) {
	h := newHarness(t, false)
	g := h.newGame("")

	require.NotEmpty(t, g.GameID)
	require.NotEmpty(t, g.Token)
	require.Equal(t, modeNormal, g.Mode)
	require.Empty(t, g.Date)
	require.Equal(t, 2, g.PairCount)
	require.Equal(t, 4, g.Cards)
	require.Equal(t, []string{"images/1.jpeg", "images/2.jpeg"}, g.Faces)
	require.EqualValues(t, 600, g.MatchDelayMs)
	require.EqualValues(t, 1000, g.MismatchDelayMs)
	require.NotEmpty(t, g.Message)

	rec := h.do(http.MethodGet, "/game/"+g.GameID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap game.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Equal(t, game.StateIdle, snap.State)
	require.Equal(t, 4, snap.Cards)
	require.Empty(t, snap.Revealed)

	rec = h.do(http.MethodPost, "/game/new", newGameReq{Mode: "hard"}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlayDailyGameToVictory(t *testing.T) {
	h := newHarness(t, true)
	h.catalog.Publish(&audio.Library{
		Mistake: []audio.Handle{{Name: "sounds/sound1.mp3", Volume: 0.6}},
		Success: []audio.Handle{{Name: "sounds/soundsuccess.mp3", Volume: 0.75}},
		Victory: []audio.Handle{{Name: "sounds/soundfinal.mp3", Volume: 0.85}},
	})

	g := h.newGame(modeDaily)
	require.Equal(t, "2026-10-14", g.Date)
	pairs := dailyPairs(2)

	a, b := pairs[1][0], pairs[1][1]
	res := h.selectCard(g, a)
	require.True(t, res.Accepted)
	require.Equal(t, game.StateOneSelected, res.Game.State)
	require.Equal(t, []game.Card{{Position: game.Position(a), Face: 1}}, res.Game.Revealed)

	res = h.selectCard(g, b)
	require.True(t, res.Accepted)
	require.True(t, res.Game.Locked)
	require.Equal(t, game.StateResolving, res.Game.State)

	// input is ignored while resolving
	res = h.selectCard(g, pairs[2][0])
	require.False(t, res.Accepted)

	h.clock.Advance(600 * time.Millisecond)

	c, d := pairs[2][0], pairs[2][1]
	require.True(t, h.selectCard(g, c).Accepted)
	require.True(t, h.selectCard(g, d).Accepted)

	// not won until the delayed commit lands
	rec := h.do(http.MethodGet, "/game/"+g.GameID, nil, "")
	var snap game.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.False(t, snap.Finished)

	h.clock.Advance(600 * time.Millisecond)

	ev := h.events(g.GameID, 0)
	require.Equal(t, []journal.Kind{
		journal.KindReveal, journal.KindReveal, journal.KindPlay, journal.KindMatched,
		journal.KindReveal, journal.KindReveal, journal.KindPlay, journal.KindMatched,
		journal.KindFinished, journal.KindPlay,
	}, kinds(ev.Events))
	last := ev.Events[len(ev.Events)-1]
	require.Equal(t, "sounds/soundfinal.mp3", last.Sound.Name)
	fin := ev.Events[len(ev.Events)-2].Summary
	require.Equal(t, &journal.Summary{Pairs: 2, Moves: 2, Mistakes: 0, ElapsedMs: 1200}, fin)

	// victory sound repeats until the session goes away
	h.clock.Advance(2 * time.Second)
	more := h.events(g.GameID, ev.Next)
	require.Equal(t, []journal.Kind{journal.KindPlay}, kinds(more.Events))
	require.Equal(t, ev.Next+1, more.Next)

	// finished games still ignore input
	require.False(t, h.selectCard(g, a).Accepted)

	require.Eventually(t, func() bool {
		rows, err := h.history.Leaderboard(context.Background(), history.Filter{Mode: modeDaily}, 10)
		return err == nil && len(rows) == 1
	}, time.Second, 10*time.Millisecond)

	rec = h.do(http.MethodGet, "/leaderboard?mode=daily&date=2026-10-14&limit=5", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var board []history.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &board))
	require.Len(t, board, 1)
	assert.Equal(t, g.GameID, board[0].GameID)
	assert.Equal(t, 2, board[0].Moves)
	assert.Equal(t, 0, board[0].Mistakes)
	assert.EqualValues(t, 1200, board[0].ElapsedMs)

	rec = h.do(http.MethodGet, "/games/mine", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []history.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	require.Len(t, mine, 1)

	// a new game tears down the old one, victory loop included
	old, err := h.store.Get(context.Background(), g.GameID)
	require.NoError(t, err)
	n := old.Journal.Len()
	h.newGame(modeNormal)
	h.clock.Advance(10 * time.Second)
	require.Equal(t, n, old.Journal.Len())
	require.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/game/"+g.GameID, nil, "").Code)
}

func TestMismatchResets(t *testing.T) {
	h := newHarness(t, false)
	g := h.newGame(modeDaily)
	pairs := dailyPairs(2)

	require.True(t, h.selectCard(g, pairs[1][0]).Accepted)
	res := h.selectCard(g, pairs[2][0])
	require.True(t, res.Accepted)
	require.Equal(t, 1, res.Game.Mistakes)

	h.clock.Advance(999 * time.Millisecond)
	require.False(t, h.selectCard(g, pairs[2][1]).Accepted)

	h.clock.Advance(time.Millisecond)
	ev := h.events(g.GameID, 0)
	require.Equal(t, []journal.Kind{journal.KindReveal, journal.KindReveal, journal.KindUnreveal}, kinds(ev.Events))

	res = h.selectCard(g, pairs[2][1])
	require.True(t, res.Accepted)
	require.Equal(t, game.StateOneSelected, res.Game.State)
}

func TestSelect_Validation(t *testing.T) {
	h := newHarness(t, false)
	g := h.newGame(modeNormal)
	pos := 0

	// no token
	rec := h.do(http.MethodPost, "/game/select", selectReq{GameID: g.GameID, Position: &pos}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// garbage token
	rec = h.do(http.MethodPost, "/game/select", selectReq{GameID: g.GameID, Position: &pos}, "not-a-jwt")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// token for another game
	rec = h.do(http.MethodPost, "/game/select", selectReq{GameID: "other", Position: &pos}, g.Token)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// missing position
	rec = h.do(http.MethodPost, "/game/select", map[string]string{"gameId": g.GameID}, g.Token)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// out of range positions are ignored, not rejected
	res := h.selectCard(g, 99)
	require.False(t, res.Accepted)
	require.Equal(t, game.StateIdle, res.Game.State)

	// expired token
	h.clock.Advance(3 * time.Hour)
	rec = h.do(http.MethodPost, "/game/select", selectReq{GameID: g.GameID, Position: &pos}, g.Token)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEvents_Validation(t *testing.T) {
	h := newHarness(t, false)
	g := h.newGame(modeNormal)

	require.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/game/"+g.GameID+"/events?since=x", nil, "").Code)
	require.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/game/missing/events", nil, "").Code)

	ev := h.events(g.GameID, 0)
	require.Empty(t, ev.Events)
	require.Zero(t, ev.Next)
}

func TestHistoryDisabled(t *testing.T) {
	h := newHarness(t, false)
	require.Equal(t, http.StatusServiceUnavailable, h.do(http.MethodGet, "/leaderboard", nil, "").Code)
	require.Equal(t, http.StatusServiceUnavailable, h.do(http.MethodGet, "/games/mine", nil, "").Code)
}

func TestLeaderboard_BadParams(t *testing.T) {
	h := newHarness(t, true)
	require.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/leaderboard?limit=-1", nil, "").Code)
	require.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/leaderboard?pairs=x", nil, "").Code)

	rec := h.do(http.MethodGet, "/games/mine", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())
}

func TestSoundsAndStatic(t *testing.T) {
	h := newHarness(t, false)
	lib := &audio.Library{Victory: []audio.Handle{{Name: "sounds/soundfinal.mp3", Volume: 0.85}}}
	h.catalog.Publish(lib)

	rec := h.do(http.MethodGet, "/sounds", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"mistake":null,"success":null,"victory":[{"src":"sounds/soundfinal.mp3","volume":0.85}]}`, rec.Body.String())

	require.NoError(t, os.MkdirAll(filepath.Join(h.assets, "images"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(h.assets, "images", "1.jpeg"), []byte("jpeg"), 0o644))
	rec = h.do(http.MethodGet, "/images/1.jpeg", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	require.Equal(t, "jpeg", rec.Body.String())

	require.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/sounds/missing.mp3", nil, "").Code)
}

func TestSweeperEvictsIdleSessions(t *testing.T) {
	h := newHarness(t, false)
	stop := h.srv.StartSweeper(time.Minute)
	defer stop.Stop()

	g := h.newGame(modeNormal)
	require.Equal(t, 1, h.store.Len())

	h.clock.Advance(time.Hour)
	h.do(http.MethodGet, "/game/"+g.GameID, nil, "") // keeps it alive
	h.clock.Advance(90 * time.Minute)
	require.Equal(t, 1, h.store.Len())

	h.clock.Advance(time.Hour)
	require.Zero(t, h.store.Len())
}
