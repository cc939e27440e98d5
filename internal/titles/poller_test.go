package titles_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dev-Ruco/pressflow/internal/adapters/memory"
	"github.com/Dev-Ruco/pressflow/internal/titles"
)

// titleServer serves a mutable title set, optionally failing.
type titleServer struct {
	mu     sync.Mutex
	titles []string
	fail   bool
	hits   int
}

func (s *titleServer) set(titles []string, fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.titles = titles
	s.fail = fail
}

func (s *titleServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		fail := s.fail
		current := append([]string(nil), s.titles...)
		s.hits++
		s.mu.Unlock()

		if fail {
			http.Error(w, "unavailable", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(titles.TitlesResponse{Titulos: current})
	}
}

// fastPollConfig removes the cadence floors so tests run quickly.
func fastPollConfig() titles.PollConfig {
	return titles.PollConfig{
		Initial:     time.Millisecond,
		Steady:      time.Millisecond,
		Errored:     time.Millisecond,
		MinInterval: 0,
		CacheTTL:    time.Hour,
	}
}

func collectTitles() (func([]string), func() [][]string) {
	var mu sync.Mutex
	var sets [][]string
	record := func(t []string) {
		mu.Lock()
		defer mu.Unlock()
		sets = append(sets, append([]string(nil), t...))
	}
	snapshot := func() [][]string {
		mu.Lock()
		defer mu.Unlock()
		return append([][]string(nil), sets...)
	}
	return record, snapshot
}

func TestPoll_DeliversOnlyChangedSets(t *testing.T) {
	srv := &titleServer{titles: []string{"Título A"}}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	record, snapshot := collectTitles()
	client := titles.NewClient(ts.URL, "", time.Second)
	poller := titles.NewPoller(client, record, titles.WithPollConfig(fastPollConfig()))

	// The same payload twice fires the callback once.
	poller.Poll(context.Background())
	poller.Poll(context.Background())
	require.Equal(t, [][]string{{"Título A"}}, snapshot())

	// A changed payload fires again.
	srv.set([]string{"Título A", "Título B"}, false)
	poller.Poll(context.Background())
	require.Equal(t, [][]string{{"Título A"}, {"Título A", "Título B"}}, snapshot())

	assert.Equal(t, []string{"Título A", "Título B"}, poller.Titles())
}

func TestPoll_MinIntervalDropsRedundantCalls(t *testing.T) {
	srv := &titleServer{titles: []string{"Título A"}}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	cfg := fastPollConfig()
	cfg.MinInterval = time.Hour

	client := titles.NewClient(ts.URL, "", time.Second)
	poller := titles.NewPoller(client, nil, titles.WithPollConfig(cfg))

	poller.Poll(context.Background())
	poller.Poll(context.Background())
	poller.Poll(context.Background())

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Equal(t, 1, srv.hits)
}

func TestPoll_FallsBackToCacheThenDefaults(t *testing.T) {
	srv := &titleServer{titles: []string{"Título A"}}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	record, snapshot := collectTitles()
	cache := memory.NewTitleCache()
	client := titles.NewClient(ts.URL, "", time.Second)
	poller := titles.NewPoller(client, record,
		titles.WithPollConfig(fastPollConfig()),
		titles.WithCache(cache))
	poller.SetArticleID("art-1")

	// Successful poll populates the cache.
	poller.Poll(context.Background())
	require.Equal(t, [][]string{{"Título A"}}, snapshot())

	// Endpoint down: the cached set is redelivered... but it equals the
	// last delivery, so the callback stays quiet and state is kept.
	srv.set(nil, true)
	poller.Poll(context.Background())
	assert.Equal(t, []string{"Título A"}, poller.Titles())

	// With an empty cache the defaults flow through.
	require.NoError(t, cache.Invalidate(context.Background(), "art-1"))
	poller.Poll(context.Background())

	sets := snapshot()
	require.Len(t, sets, 2)
	assert.Equal(t, titles.DefaultTitles, sets[1])
}

func TestStart_PollsUntilStopped(t *testing.T) {
	srv := &titleServer{titles: []string{"Título A"}}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	client := titles.NewClient(ts.URL, "", time.Second)
	poller := titles.NewPoller(client, nil, titles.WithPollConfig(fastPollConfig()))

	stop := poller.Start(context.Background())

	require.Eventually(t, func() bool {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		return srv.hits >= 3
	}, time.Second, time.Millisecond)

	stop()
	srv.mu.Lock()
	after := srv.hits
	srv.mu.Unlock()

	// At most one request was still in flight when the loop stopped.
	time.Sleep(20 * time.Millisecond)
	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.LessOrEqual(t, srv.hits, after+1)
}
