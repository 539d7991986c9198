package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/neongrid/engine"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, false)

	p.ItemResult(engine.ItemResult{Kind: engine.KindFollow, Item: "alice", Label: "followed @alice", Outcome: engine.OutcomeSuccess})
	p.Progress(engine.Progress{Processed: 1, Limit: 12})
	p.ItemResult(engine.ItemResult{Kind: engine.KindFollow, Item: "bob", Label: "failed to follow @bob", Outcome: engine.OutcomeFailure})
	p.Progress(engine.Progress{Processed: 2, Limit: 12})
	p.Summary(engine.Summary{Kind: engine.KindFollow, Processed: 2, Succeeded: 1, Failed: 1, Limit: 12, Cancelled: true})
	p.Notify(engine.Notification{Level: engine.LevelWarning, Message: "All operations stopped"})

	assert.Equal(t, "[ 1/12] ✓ followed @alice\n"+
		"[ 2/12] ✗ failed to follow @bob\n"+
		"follow bot stopped: 1 followed, 1 failed\n"+
		"processed 2 of 12 in 0s\n"+
		"All operations stopped\n", buf.String())
}

func TestPrinter_Color(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, true)
	p.Notify(engine.Notification{Level: engine.LevelError, Message: "boom"})
	assert.Equal(t, colorRed+"boom"+colorReset+"\n", buf.String())
}

func TestReadItems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\n\nb\n"), 0o644))

	items, err := readItems(runOptions{inputFile: path})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, items)

	items, err = readItems(runOptions{text: " x \r\ny"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, items)

	_, err = readItems(runOptions{})
	assert.Error(t, err)
}

func TestRunCommand(t *testing.T) {
	out, err := execute(t, "run", "follow",
		"--text", "alice\nbob\ncarol",
		"--interval", "1ms",
		"--probability", "1",
		"--max", "2",
		"--seed", "42",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "followed @alice")
	assert.Contains(t, out, "followed @bob")
	assert.NotContains(t, out, "carol")
	assert.Contains(t, out, "follow bot completed: 2 followed, 0 failed")
}

func TestRunCommand_Errors(t *testing.T) {
	_, err := execute(t, "run", "retweet", "--text", "a")
	assert.ErrorIs(t, err, engine.ErrUnknownKind)

	_, err = execute(t, "run")
	assert.Error(t, err)
}

func TestKindsCommand(t *testing.T) {
	out, err := execute(t, "kinds")
	require.NoError(t, err)

	assert.Contains(t, out, "KIND")
	for _, kind := range engine.Kinds() {
		assert.Contains(t, out, kind.String())
	}
}
