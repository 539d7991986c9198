package runner

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/neongrid/clock"
	"github.com/nomis52/neongrid/config"
	"github.com/nomis52/neongrid/engine"
	"github.com/nomis52/neongrid/metrics"
)

type staticProvider struct {
	cfg *config.Config
}

func (p *staticProvider) Config() *config.Config { return p.cfg }

// notifications records everything sent to the notifier.
type notifications struct {
	mu   sync.Mutex
	list []engine.Notification
}

func (n *notifications) Notify(note engine.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.list = append(n.list, note)
}

func (n *notifications) last() engine.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.list[len(n.list)-1]
}

func ptr[T any](v T) *T { return &v }

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Operations = map[string]config.OperationOverride{
		"follow":  {StepInterval: ptr(time.Second), SuccessProbability: ptr(1.0)},
		"like":    {StepInterval: ptr(time.Second), SuccessProbability: ptr(0.0)},
		"comment": {StepInterval: ptr(time.Second), SuccessProbability: ptr(1.0), Templates: []string{"nice shot"}},
	}
	return cfg
}

type fixture struct {
	runner  *Runner
	sched   *clock.Manual
	notes   *notifications
	metrics *metrics.ScrapeRegistry
}

func newFixture(t *testing.T, cfg *config.Config, opts ...Option) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	sched := clock.NewManual()
	notes := &notifications{}

	registry, err := metrics.NewScrapeRegistry("")
	require.NoError(t, err)
	m, err := metrics.NewOperationMetrics(registry)
	require.NoError(t, err)

	opts = append([]Option{
		WithNotifier(notes),
		WithMetrics(m),
		WithEngineOptions(engine.WithScheduler(sched), engine.WithSeed(7)),
	}, opts...)

	return &fixture{
		runner:  New(logger, &staticProvider{cfg: cfg}, opts...),
		sched:   sched,
		notes:   notes,
		metrics: registry,
	}
}

func (f *fixture) scrape(t *testing.T) string {
	t.Helper()
	w := httptest.NewRecorder()
	f.metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return w.Body.String()
}

func TestRunner_CompletesAndRecordsHistory(t *testing.T) {
	f := newFixture(t, testConfig())

	snap, err := f.runner.Start(Request{Kind: engine.KindFollow, Items: []string{"alice", "bob", "carol"}})
	require.NoError(t, err)
	assert.Equal(t, engine.RunStateRunning, snap.State)
	assert.Equal(t, 3, snap.Limit)
	assert.Equal(t, "Follow bot started with 3 items", f.notes.last().Message)
	assert.True(t, f.runner.IsRunning())

	f.sched.Advance(4 * time.Second)

	assert.False(t, f.runner.IsRunning())
	history := f.runner.History()
	require.Len(t, history, 1)
	assert.Equal(t, snap.ID, history[0].RunID)
	assert.Equal(t, 3, history[0].Succeeded)
	assert.Equal(t, "follow bot completed: 3 followed, 0 failed", history[0].Description)
	assert.Nil(t, history[0].Logs, "history listing omits logs")

	note := f.notes.last()
	assert.Equal(t, engine.LevelSuccess, note.Level)
	assert.Equal(t, history[0].Description, note.Message)

	stats := f.runner.Stats()["follow"]
	assert.Equal(t, KindStats{Runs: 1, Processed: 3, Succeeded: 3}, stats)
	assert.Equal(t, KindStats{}, f.runner.Stats()["like"])

	activity := f.runner.Activity()
	require.Len(t, activity, 5)
	assert.Equal(t, history[0].Description, activity[0].Message, "newest first")
	assert.Equal(t, "followed @carol", activity[1].Message)
	assert.Equal(t, "Follow bot started with 3 items", activity[4].Message)

	status := f.runner.Status()
	assert.False(t, status.Running)
	assert.Nil(t, status.Active)
	require.NotNil(t, status.Last)
	assert.Equal(t, snap.ID, status.Last.RunID)

	body := f.scrape(t)
	assert.Contains(t, body, `operation_items_total{kind="follow",outcome="success"} 3`)
	assert.Contains(t, body, `operation_runs_total{kind="follow",result="completed"} 1`)
}

func TestRunner_CapturesRunLogs(t *testing.T) {
	f := newFixture(t, testConfig())

	snap, err := f.runner.Start(Request{Kind: engine.KindLike, Items: []string{"#go", "#rust"}})
	require.NoError(t, err)

	f.sched.Advance(time.Second)
	live, ok := f.runner.Logs(snap.ID)
	require.True(t, ok)
	require.NotEmpty(t, live)
	assert.Equal(t, "operation started", live[0].Message)
	assert.Equal(t, snap.ID, live[0].Attributes["run_id"])

	f.sched.Advance(2 * time.Second)
	logs, ok := f.runner.Logs(snap.ID)
	require.True(t, ok)
	assert.Greater(t, len(logs), len(live))
	assert.Equal(t, "like bot completed: 0 liked, 2 failed", logs[len(logs)-1].Message)

	_, ok = f.runner.Logs("no-such-run")
	assert.False(t, ok)
}

func TestRunner_AlreadyRunning(t *testing.T) {
	f := newFixture(t, testConfig())

	first, err := f.runner.Start(Request{Kind: engine.KindFollow, Items: []string{"alice", "bob"}})
	require.NoError(t, err)

	_, err = f.runner.Start(Request{Kind: engine.KindLike, Items: []string{"#go"}})
	require.ErrorIs(t, err, engine.ErrAlreadyRunning)

	note := f.notes.last()
	assert.Equal(t, engine.LevelWarning, note.Level)
	assert.Equal(t, "Another operation is already running", note.Message)

	status := f.runner.Status()
	require.NotNil(t, status.Active)
	assert.Equal(t, first.ID, status.Active.ID)
	assert.Contains(t, f.scrape(t), `operation_start_rejected_total{reason="already_running"} 1`)
}

func TestRunner_EmptyInputMessages(t *testing.T) {
	tests := []struct {
		kind engine.Kind
		want string
	}{
		{engine.KindAccountCheck, "Please select a combo file"},
		{engine.KindLike, "Please enter target hashtags"},
		{engine.KindDownload, "Please enter media URLs"},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			f := newFixture(t, testConfig())

			_, err := f.runner.Start(Request{Kind: tt.kind})
			require.ErrorIs(t, err, engine.ErrEmptyInput)

			note := f.notes.last()
			assert.Equal(t, engine.LevelError, note.Level)
			assert.Equal(t, tt.want, note.Message)
			assert.False(t, f.runner.IsRunning())
			assert.Empty(t, f.runner.Activity())
		})
	}
}

func TestRunner_Stop(t *testing.T) {
	f := newFixture(t, testConfig())
	assert.False(t, f.runner.Stop(), "nothing to stop")

	_, err := f.runner.Start(Request{Kind: engine.KindFollow, Items: []string{"a", "b", "c", "d"}})
	require.NoError(t, err)

	f.sched.Advance(2 * time.Second)
	require.True(t, f.runner.Stop())
	assert.Equal(t, "All operations stopped", f.notes.last().Message)

	f.sched.Advance(time.Second)
	assert.False(t, f.runner.IsRunning())

	history := f.runner.History()
	require.Len(t, history, 1)
	assert.True(t, history[0].Cancelled)
	assert.Equal(t, 2, history[0].Processed)
	assert.Equal(t, "follow bot stopped: 2 followed, 0 failed", history[0].Description)
	assert.Equal(t, engine.LevelWarning, f.notes.last().Level)
	assert.Equal(t, 1, f.runner.Stats()["follow"].Cancelled)
}

func TestRunner_RequestOverrides(t *testing.T) {
	f := newFixture(t, testConfig())

	snap, err := f.runner.Start(Request{
		Kind:     engine.KindFollow,
		Items:    []string{"a", "b", "c", "d", "e"},
		MaxItems: ptr(2),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Limit)

	f.sched.Advance(3 * time.Second)
	require.False(t, f.runner.IsRunning())
	assert.Equal(t, 2, f.runner.History()[0].Processed)
}

func TestRunner_CommentTemplates(t *testing.T) {
	f := newFixture(t, testConfig())

	_, err := f.runner.Start(Request{Kind: engine.KindComment, Items: []string{"post1"}})
	require.NoError(t, err)
	f.sched.Advance(time.Second)
	assert.Equal(t, `commented "nice shot" on post1`, f.runner.Activity()[0].Message)
	f.sched.Advance(time.Second)

	_, err = f.runner.Start(Request{Kind: engine.KindComment, Items: []string{"post2"}, Templates: []string{"wow"}})
	require.NoError(t, err)
	f.sched.Advance(time.Second)
	assert.Equal(t, `commented "wow" on post2`, f.runner.Activity()[0].Message)
}

func TestRunner_HistoryBounded(t *testing.T) {
	cfg := testConfig()
	cfg.History.MaxRuns = 2
	f := newFixture(t, cfg)

	var ids []string
	for range 3 {
		snap, err := f.runner.Start(Request{Kind: engine.KindFollow, Items: []string{"x"}})
		require.NoError(t, err)
		ids = append(ids, snap.ID)
		f.sched.Advance(2 * time.Second)
	}

	history := f.runner.History()
	require.Len(t, history, 2)
	assert.Equal(t, ids[2], history[0].RunID)
	assert.Equal(t, ids[1], history[1].RunID)

	_, ok := f.runner.Logs(ids[0])
	assert.False(t, ok, "evicted run's logs are gone")
}

func TestRunner_Kinds(t *testing.T) {
	f := newFixture(t, testConfig())

	kinds := f.runner.Kinds()
	require.Len(t, kinds, len(engine.Kinds()))

	byKind := make(map[engine.Kind]KindInfo)
	for _, k := range kinds {
		byKind[k.Kind] = k
	}
	assert.Equal(t, time.Second, byKind[engine.KindFollow].Config.StepInterval)
	assert.Equal(t, engine.DefaultConfig(engine.KindDownload), byKind[engine.KindDownload].Config)
	assert.Equal(t, []string{"nice shot"}, byKind[engine.KindComment].Templates)
}

func TestRunner_ExtraSinkSeesRecordedState(t *testing.T) {
	var historyAtSummary int
	var r *Runner
	sink := engine.SinkFuncs{OnSummary: func(engine.Summary) {
		historyAtSummary = len(r.History())
	}}

	f := newFixture(t, testConfig(), WithSink(sink))
	r = f.runner

	_, err := r.Start(Request{Kind: engine.KindFollow, Items: []string{"a"}})
	require.NoError(t, err)
	f.sched.Advance(2 * time.Second)

	assert.Equal(t, 1, historyAtSummary)
}

func TestRunner_Wait(t *testing.T) {
	f := newFixture(t, testConfig())
	f.runner.Wait()

	_, err := f.runner.Start(Request{Kind: engine.KindFollow, Items: []string{"a"}})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		f.runner.Wait()
		close(done)
	}()

	f.sched.Advance(2 * time.Second)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after the run finished")
	}
}

func scrapeRegistry(t *testing.T, reg *metrics.ScrapeRegistry) string {
	t.Helper()
	w := httptest.NewRecorder()
	reg.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return w.Body.String()
}

func TestRunner_RecordsStartsInEveryMetricsSet(t *testing.T) {
	second, err := metrics.NewScrapeRegistry("")
	require.NoError(t, err)
	m, err := metrics.NewOperationMetrics(second)
	require.NoError(t, err)

	f := newFixture(t, testConfig(), WithMetrics(m))

	_, err = f.runner.Start(Request{Kind: engine.KindFollow})
	require.ErrorIs(t, err, engine.ErrEmptyInput)
	_, err = f.runner.Start(Request{Kind: engine.KindFollow, Items: []string{"alice", "bob"}})
	require.NoError(t, err)

	for name, body := range map[string]string{
		"first":  f.scrape(t),
		"second": scrapeRegistry(t, second),
	} {
		assert.Contains(t, body, `operation_start_rejected_total{reason="empty_input"} 1`, name)
		assert.Contains(t, body, "operation_running 1", name)
	}

	f.sched.Advance(3 * time.Second)
	assert.Contains(t, scrapeRegistry(t, second), `operation_runs_total{kind="follow",result="completed"} 1`)
}

func TestRunner_NotifiesEveryNotifier(t *testing.T) {
	other := &notifications{}
	f := newFixture(t, testConfig(), WithNotifier(other))

	_, err := f.runner.Start(Request{Kind: engine.KindLike, Items: []string{"#go"}})
	require.NoError(t, err)

	assert.Equal(t, "Like bot started with 1 items", f.notes.last().Message)
	assert.Equal(t, f.notes.last(), other.last())
}

// failingStore rejects every save.
type failingStore struct {
	saves int
}

func (s *failingStore) History() []RunRecord         { return nil }
func (s *failingStore) Get(string) (RunRecord, bool) { return RunRecord{}, false }
func (s *failingStore) Save(RunRecord) error {
	s.saves++
	return errors.New("disk full")
}

func TestRunner_StoreFailureDoesNotBlockCompletion(t *testing.T) {
	store := &failingStore{}
	f := newFixture(t, testConfig(), WithStateStore(store))

	snap, err := f.runner.Start(Request{Kind: engine.KindFollow, Items: []string{"alice"}})
	require.NoError(t, err)
	f.sched.Advance(2 * time.Second)

	assert.False(t, f.runner.IsRunning())
	assert.Equal(t, 1, store.saves)
	assert.Empty(t, f.runner.History())
	assert.Nil(t, f.runner.Status().Last)

	_, ok := f.runner.Logs(snap.ID)
	assert.False(t, ok, "captured logs are released after the save attempt")
	assert.Equal(t, engine.LevelSuccess, f.notes.last().Level)
}
