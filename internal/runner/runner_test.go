package runner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimewatch/internal/alerting"
	"github.com/hamed0406/uptimewatch/internal/clock"
	"github.com/hamed0406/uptimewatch/internal/domain"
	"github.com/hamed0406/uptimewatch/internal/probe"
	"github.com/hamed0406/uptimewatch/internal/repo"
	"github.com/hamed0406/uptimewatch/internal/repo/memory"
	"github.com/hamed0406/uptimewatch/internal/targets"
)

// --- fakes ---

type staticTargets []domain.Target

func (s staticTargets) Load(context.Context) ([]domain.Target, error) { return s, nil }

type brokenTargets struct{}

func (brokenTargets) Load(context.Context) ([]domain.Target, error) {
	return nil, errors.New("yaml: bad indent")
}

// scriptedProber answers per URL; ok[url] decides the outcome.
type scriptedProber struct {
	mu    sync.Mutex
	ok    map[string]bool
	calls map[string]int
	delay time.Duration
}

func newScripted() *scriptedProber {
	return &scriptedProber{ok: map[string]bool{}, calls: map[string]int{}}
}

func (p *scriptedProber) set(url string, ok bool) {
	p.mu.Lock()
	p.ok[url] = ok
	p.mu.Unlock()
}

func (p *scriptedProber) Probe(_ context.Context, name, url string) domain.ProbeResult {
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[url]++
	res := domain.ProbeResult{Name: name, URL: url, Timestamp: time.Unix(0, 0).UTC(), LatencyMS: 12}
	if p.ok[url] {
		code := 200
		res.StatusCode = &code
		res.OK = true
		return res
	}
	code := 503
	res.StatusCode = &code
	return res
}

type failingStore struct {
	*memory.Store
	failOn string
}

func (f failingStore) Put(ctx context.Context, name string, data []byte) error {
	if name == f.failOn {
		return errors.New("disk full")
	}
	return f.Store.Put(ctx, name, data)
}

func seqRefs() func() domain.AlertRef {
	var n int64
	return func() domain.AlertRef {
		return domain.AlertRef(fmt.Sprintf("ref-%d", atomic.AddInt64(&n, 1)))
	}
}

func newTestRunner(ts TargetSource, store repo.DocumentStore, p *scriptedProber, mode alerting.Mode) *Runner {
	m := alerting.NewMachine(3, mode)
	m.NewRef = seqRefs()
	r := New(zap.NewNop(), ts, repo.NewDocuments(store), p, m, 0, 1)
	r.Clock = clock.Fixed(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	return r
}

const apiURL = "https://api.example.com/health"

// --- tests ---

func TestRun_AlertThenRecoveryAcrossRuns(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	p := newScripted()
	r := newTestRunner(staticTargets{{Name: "api", URL: apiURL}}, store, p, alerting.ModeTracked)
	docs := repo.NewDocuments(store)

	for i := 1; i <= 2; i++ {
		out, err := r.Run(ctx)
		require.NoError(t, err)
		require.Empty(t, out.Alerts.Alerts, "run %d", i)
		require.Equal(t, i, out.State.Streaks[apiURL])
	}

	out, err := r.Run(ctx)
	require.NoError(t, err)
	require.Len(t, out.Alerts.Alerts, 1)
	require.Equal(t, 3, out.Alerts.Alerts[0].Streak)
	require.Equal(t, domain.AlertRef("ref-1"), out.Alerts.Alerts[0].AlertRef)

	out, err = r.Run(ctx)
	require.NoError(t, err)
	require.Empty(t, out.Alerts.Alerts)
	require.Equal(t, 4, out.State.Streaks[apiURL])

	p.set(apiURL, true)
	out, err = r.Run(ctx)
	require.NoError(t, err)
	require.Len(t, out.Recoveries.Recoveries, 1)
	require.Equal(t, domain.AlertRef("ref-1"), out.Recoveries.Recoveries[0].IssueReference)

	st, err := docs.LoadState(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, st.Streaks[apiURL])
	require.NotContains(t, st.OpenAlerts, apiURL)

	hist, err := docs.LoadHistory(ctx)
	require.NoError(t, err)
	require.Len(t, hist.Events, 5)

	rec, err := docs.LoadRecoveries(ctx)
	require.NoError(t, err)
	require.Len(t, rec.Recoveries, 1)
}

func TestRun_EmptyTargetsWritesEveryDocument(t *testing.T) {
	store := memory.New()
	r := newTestRunner(staticTargets{}, store, newScripted(), alerting.ModeTracked)

	out, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, out.Latest.Results)
	for _, name := range []string{repo.DocLatest, repo.DocHistory, repo.DocState, repo.DocAlerts, repo.DocRecoveries} {
		require.Equal(t, 1, store.Writes(name), name)
	}
	b, err := store.Get(context.Background(), repo.DocAlerts)
	require.NoError(t, err)
	require.Contains(t, string(b), `"alerts": []`)
}

func TestRun_AllHealthyIsStable(t *testing.T) {
	store := memory.New()
	p := newScripted()
	p.set(apiURL, true)
	r := newTestRunner(staticTargets{{Name: "api", URL: apiURL}}, store, p, alerting.ModeTracked)

	for i := 0; i < 3; i++ {
		out, err := r.Run(context.Background())
		require.NoError(t, err)
		require.Empty(t, out.Alerts.Alerts)
		require.Empty(t, out.Recoveries.Recoveries)
		require.Equal(t, 0, out.State.Streaks[apiURL])
		require.Empty(t, out.State.OpenAlerts)
	}
}

func TestRun_HistoryIsCapped(t *testing.T) {
	store := memory.New()
	p := newScripted()
	r := newTestRunner(staticTargets{{Name: "a", URL: "https://a.example"}, {Name: "b", URL: "https://b.example"}}, store, p, alerting.ModeTracked)
	r.MaxHistory = 3

	for i := 0; i < 4; i++ {
		_, err := r.Run(context.Background())
		require.NoError(t, err)
	}
	hist, err := repo.NewDocuments(store).LoadHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, hist.Events, 3)
	// newest entry is the last target of the last run
	require.Equal(t, "https://b.example", hist.Events[2].URL)
}

func TestRun_ConcurrentProbesKeepTargetOrder(t *testing.T) {
	var ts staticTargets
	p := newScripted()
	p.delay = 5 * time.Millisecond
	for i := 0; i < 12; i++ {
		url := fmt.Sprintf("https://t%02d.example", i)
		ts = append(ts, domain.Target{Name: fmt.Sprintf("t%02d", i), URL: url})
		p.set(url, i%2 == 0)
	}
	r := newTestRunner(ts, memory.New(), p, alerting.ModeTracked)
	r.Concurrency = 4

	out, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, out.Latest.Results, len(ts))
	for i, res := range out.Latest.Results {
		require.Equal(t, ts[i].URL, res.URL)
		require.Equal(t, 1, p.calls[res.URL])
	}
}

func TestRun_UntrackedWritesEmptyRecoveries(t *testing.T) {
	store := memory.New()
	p := newScripted()
	r := newTestRunner(staticTargets{{Name: "api", URL: apiURL}}, store, p, alerting.ModeUntracked)

	var alerts int
	for i := 0; i < 4; i++ {
		out, err := r.Run(context.Background())
		require.NoError(t, err)
		alerts += len(out.Alerts.Alerts)
	}
	require.Equal(t, 2, alerts)

	p.set(apiURL, true)
	out, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, out.Recoveries.Recoveries)
	require.Empty(t, out.State.OpenAlerts)

	rec, err := repo.NewDocuments(store).LoadRecoveries(context.Background())
	require.NoError(t, err)
	require.Empty(t, rec.Recoveries)
	require.Equal(t, 5, store.Writes(repo.DocRecoveries))
}

func TestRun_UntrackedReplacesStaleRecoveries(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	docs := repo.NewDocuments(store)
	require.NoError(t, docs.SaveRecoveries(ctx, domain.RecoveriesDoc{Recoveries: []domain.RecoveryEvent{
		{Name: "api", URL: apiURL, IssueReference: "17"},
	}}))

	p := newScripted()
	p.set(apiURL, true)
	r := newTestRunner(staticTargets{{Name: "api", URL: apiURL}}, store, p, alerting.ModeUntracked)
	_, err := r.Run(ctx)
	require.NoError(t, err)

	rec, err := docs.LoadRecoveries(ctx)
	require.NoError(t, err)
	require.Empty(t, rec.Recoveries)
}

// cancellingProber cancels the run's context on its first call and, like
// HTTPProber, reports a failure for any request whose context is done.
type cancellingProber struct {
	cancel context.CancelFunc
}

func (c cancellingProber) Probe(ctx context.Context, name, url string) domain.ProbeResult {
	c.cancel()
	res := domain.ProbeResult{Name: name, URL: url}
	if err := ctx.Err(); err != nil {
		msg := err.Error()
		res.Error = &msg
		return res
	}
	code := 200
	res.StatusCode = &code
	res.OK = true
	return res
}

func TestRun_CancelDuringRoundDoesNotRecordFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := memory.New()
	docs := repo.NewDocuments(store)
	st := domain.NewRunState()
	st.Streaks[apiURL] = 2
	require.NoError(t, docs.SaveState(context.Background(), st))

	ts := staticTargets{{Name: "api", URL: apiURL}, {Name: "web", URL: "https://web.example.com"}}
	m := alerting.NewMachine(3, alerting.ModeTracked)
	m.NewRef = seqRefs()
	r := New(zap.NewNop(), ts, docs, cancellingProber{cancel: cancel}, m, 0, 1)

	out, err := r.Run(ctx)
	require.NoError(t, err)
	require.Empty(t, out.Alerts.Alerts)
	for _, res := range out.Latest.Results {
		require.True(t, res.OK, res.URL)
	}

	saved, err := docs.LoadState(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, saved.Streaks[apiURL])
	require.Empty(t, saved.OpenAlerts)

	alerts, err := docs.LoadAlerts(context.Background())
	require.NoError(t, err)
	require.Empty(t, alerts.Alerts)
}

func TestRun_CancelledBeforeStartWritesNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := memory.New()
	p := newScripted()
	r := newTestRunner(staticTargets{{Name: "api", URL: apiURL}}, store, p, alerting.ModeTracked)

	_, err := r.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, p.calls[apiURL])
	require.Equal(t, 0, store.Writes(repo.DocState))
	require.Equal(t, 0, store.Writes(repo.DocAlerts))
}

func TestRun_TargetLoadErrorIsFatal(t *testing.T) {
	store := memory.New()
	r := newTestRunner(brokenTargets{}, store, newScripted(), alerting.ModeTracked)

	_, err := r.Run(context.Background())
	require.ErrorContains(t, err, "load targets")
	require.Equal(t, 0, store.Writes(repo.DocLatest))
}

func TestRun_MalformedStateIsFatal(t *testing.T) {
	store := memory.New()
	require.NoError(t, store.Put(context.Background(), repo.DocState, []byte(`{"streaks": [1,2]}`)))
	p := newScripted()
	r := newTestRunner(staticTargets{{Name: "api", URL: apiURL}}, store, p, alerting.ModeTracked)

	_, err := r.Run(context.Background())
	require.Error(t, err)
	require.Equal(t, 0, p.calls[apiURL])
	require.Equal(t, 0, store.Writes(repo.DocLatest))
}

func TestRun_SaveErrorIsReturned(t *testing.T) {
	store := failingStore{Store: memory.New(), failOn: repo.DocState}
	r := newTestRunner(staticTargets{{Name: "api", URL: apiURL}}, store, newScripted(), alerting.ModeTracked)

	_, err := r.Run(context.Background())
	require.ErrorContains(t, err, "disk full")
}

func TestExecute_DoesNotMutateInputs(t *testing.T) {
	prior := []domain.ProbeResult{{URL: "https://old.example"}}
	st := domain.NewRunState()
	st.Streaks[apiURL] = 2

	m := alerting.NewMachine(3, alerting.ModeTracked)
	m.NewRef = seqRefs()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	out := Execute([]domain.ProbeResult{{Name: "api", URL: apiURL}}, prior, st, m, 10, now)

	require.Equal(t, 2, st.Streaks[apiURL])
	require.Empty(t, st.OpenAlerts)
	require.Len(t, prior, 1)
	require.Equal(t, 3, out.State.Streaks[apiURL])
	require.Len(t, out.Alerts.Alerts, 1)
	require.Len(t, out.History.Events, 2)
	require.Equal(t, now, out.Latest.GeneratedAt)
	require.Equal(t, now, out.Alerts.GeneratedAt)
}

func TestRun_BadTargetURLIsAFailedResultNotAnAbort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "targets.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
  {"name": "typo", "url": "htps//broken"},
  {"name": "api", "url": "`+srv.URL+`"}
]`), 0o644))

	store := memory.New()
	m := alerting.NewMachine(3, alerting.ModeTracked)
	r := New(zap.NewNop(), targets.File(path), repo.NewDocuments(store), probe.NewHTTPProber(2*time.Second, ""), m, 0, 1)

	out, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, out.Latest.Results, 2)

	bad := out.Latest.Results[0]
	require.False(t, bad.OK)
	require.Nil(t, bad.StatusCode)
	require.NotNil(t, bad.Error)
	require.Equal(t, 1, out.State.Streaks["htps//broken"])

	require.True(t, out.Latest.Results[1].OK)
}
