package cron

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/neongrid/config"
	"github.com/nomis52/neongrid/engine"
	"github.com/nomis52/neongrid/server/runner"
)

// mockStarter records start requests.
type mockStarter struct {
	mu       sync.Mutex
	requests []runner.Request
	err      error
}

func (m *mockStarter) Start(req runner.Request) (engine.RunSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	return engine.RunSnapshot{Kind: req.Kind}, m.err
}

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "items.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewCronTriggerManager(t *testing.T) {
	manager, err := NewCronTriggerManager([]config.ScheduleConfig{
		{Kind: "follow", Schedule: "0 9 * * *", InputFile: "/tmp/users.txt"},
		{Kind: "like", Schedule: "0 14 * * *", InputFile: "/tmp/tags.txt"},
	}, &mockStarter{}, testLogger())
	require.NoError(t, err)
	assert.Len(t, manager.entries, 2)

	schedules := manager.Schedules()
	require.Len(t, schedules, 2)
	assert.Equal(t, engine.KindFollow, schedules[0].Kind)
	assert.Equal(t, "/tmp/tags.txt", schedules[1].InputFile)
	assert.Equal(t, 9, schedules[0].NextRun.Hour())
}

func TestNewCronTriggerManager_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		schedule config.ScheduleConfig
		want     error
	}{
		{"unknown kind", config.ScheduleConfig{Kind: "retweet", Schedule: "0 2 * * *"}, engine.ErrUnknownKind},
		{"invalid cron", config.ScheduleConfig{Kind: "like", Schedule: "daily"}, ErrInvalidCronSpec},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager, err := NewCronTriggerManager([]config.ScheduleConfig{tt.schedule}, &mockStarter{}, testLogger())
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, manager)
		})
	}
}

func TestStartFromFile(t *testing.T) {
	starter := &mockStarter{}
	path := writeInput(t, "alice\n\n  bob  \r\n")

	run := startFromFile(starter, engine.KindFollow, path)
	require.NoError(t, run())

	require.Len(t, starter.requests, 1)
	assert.Equal(t, engine.KindFollow, starter.requests[0].Kind)
	assert.Equal(t, []string{"alice", "bob"}, starter.requests[0].Items)
}

func TestStartFromFile_Errors(t *testing.T) {
	starter := &mockStarter{err: engine.ErrAlreadyRunning}

	err := startFromFile(starter, engine.KindLike, writeInput(t, "#go\n"))()
	assert.ErrorIs(t, err, engine.ErrAlreadyRunning)

	err = startFromFile(starter, engine.KindLike, filepath.Join(t.TempDir(), "missing.txt"))()
	assert.Error(t, err)
	assert.Len(t, starter.requests, 1, "a missing file never reaches the runner")
}

func TestCronTriggerManager_NextRun(t *testing.T) {
	manager, err := NewCronTriggerManager([]config.ScheduleConfig{
		{Kind: "follow", Schedule: "0 2 * * *", InputFile: "a"},
		{Kind: "like", Schedule: "0 14 * * *", InputFile: "b"},
		{Kind: "comment", Schedule: "0 20 * * *", InputFile: "c"},
	}, &mockStarter{}, testLogger())
	require.NoError(t, err)

	earliest := manager.entries[0].trigger.NextRun()
	for _, e := range manager.entries[1:] {
		if next := e.trigger.NextRun(); next.Before(earliest) {
			earliest = next
		}
	}
	assert.Equal(t, earliest, manager.NextRun())

	empty, err := NewCronTriggerManager(nil, &mockStarter{}, testLogger())
	require.NoError(t, err)
	assert.True(t, empty.NextRun().IsZero())
	assert.Empty(t, empty.Schedules())
}

func TestCronTriggerManager_RunStopsOnCancel(t *testing.T) {
	starter := &mockStarter{}
	manager, err := NewCronTriggerManager([]config.ScheduleConfig{
		{Kind: "follow", Schedule: "0 0 1 1 *", InputFile: "a"},
	}, starter, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- manager.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Empty(t, starter.requests)
}
