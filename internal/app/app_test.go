package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overfly42/found-gems/internal/field"
	"github.com/overfly42/found-gems/internal/grid"
	"github.com/overfly42/found-gems/internal/observability"
	"github.com/overfly42/found-gems/internal/protocol"
	"github.com/overfly42/found-gems/internal/telemetry"
	"github.com/overfly42/found-gems/logging"
	"github.com/overfly42/found-gems/logging/decision"
	"github.com/overfly42/found-gems/logging/lifecycle"
	"github.com/overfly42/found-gems/logging/observation"
	"github.com/overfly42/found-gems/logging/simulation"
	"github.com/overfly42/found-gems/logging/sinks"
)

const (
	firstLine  = `{"config":{"width":5,"height":5},"tick":1,"bot":[0,0],"floor":[[0,0],[1,0]],"visible_gems":[{"position":[1,0],"ttl":10}]}`
	secondLine = `{"tick":2,"bot":[1,0],"floor":[[0,0],[1,0],[2,0]]}`
)

func runGame(t *testing.T, env map[string]string, lines ...string) (string, *sinks.Memory, error) {
	t.Helper()
	if env == nil {
		env = map[string]string{}
	}
	if _, ok := env["GEMBOT_LOG_SINKS"]; !ok {
		env["GEMBOT_LOG_SINKS"] = ""
	}
	events := sinks.NewMemory()
	var out bytes.Buffer
	err := Run(context.Background(), Config{
		Logger: telemetry.LoggerFunc(func(format string, args ...any) { t.Logf(format, args...) }),
		Input:  strings.NewReader(strings.Join(lines, "\n") + "\n"),
		Output: &out,
		Env:    env,
		Sinks:  map[string]logging.Sink{"memory": events},
	})
	return out.String(), events, err
}

func outputLines(out string) []string {
	return strings.Split(strings.TrimRight(out, "\n"), "\n")
}

func TestRunWritesOneMovePerObservation(t *testing.T) {
	out, events, err := runGame(t, nil, firstLine, secondLine)
	require.NoError(t, err)

	lines := outputLines(out)
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], `E {"highlight":[[1,0,"#FFFF00"]`), "got %q", lines[0])
	for _, line := range lines {
		_, ok := grid.ParseMove(strings.Fields(line)[0])
		assert.True(t, ok, "unparseable move line %q", line)
	}

	started := events.OfType(lifecycle.EventAgentStarted)
	require.Len(t, started, 1)
	assert.NotEmpty(t, started[0].TraceID)

	finished := events.OfType(lifecycle.EventGameFinished)
	require.Len(t, finished, 1)
	assert.Equal(t, started[0].TraceID, finished[0].TraceID)
	payload, ok := finished[0].Payload.(lifecycle.GameFinishedPayload)
	require.True(t, ok)
	assert.Equal(t, lifecycle.GameFinishedPayload{Ticks: 2, GemsCollected: 1, Reason: "input closed"}, payload)
}

func TestRunAnswersMalformedLineWithWait(t *testing.T) {
	out, events, err := runGame(t, map[string]string{"GEMBOT_HIGHLIGHT": "false"}, firstLine, "{not json", secondLine)
	require.NoError(t, err)

	lines := outputLines(out)
	require.Len(t, lines, 3)
	assert.Equal(t, "E", lines[0])
	assert.Equal(t, "WAIT", lines[1])

	malformed := events.OfType(observation.EventMalformedLine)
	require.Len(t, malformed, 1)
	assert.Equal(t, 2, malformed[0].Tick)
}

func TestRunRejectsMissingConfig(t *testing.T) {
	for _, tc := range []struct {
		name  string
		lines []string
	}{
		{name: "no config", lines: []string{secondLine}},
		{name: "zero width", lines: []string{`{"config":{"width":0,"height":4},"tick":1,"bot":[0,0]}`}},
		{name: "garbage", lines: []string{"]]"}},
		{name: "empty input", lines: nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out, _, err := runGame(t, nil, tc.lines...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, protocol.ErrInvalidConfig), "got %v", err)
			assert.Empty(t, out)
		})
	}
}

func TestRunDumpsField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "field.csv")
	out, _, err := runGame(t, map[string]string{
		"GEMBOT_FIELD_DUMP": path,
		"GEMBOT_HIGHLIGHT":  "false",
	}, firstLine, secondLine)
	require.NoError(t, err)
	require.Len(t, outputLines(out), 2)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	rows := outputLines(string(data))
	require.Len(t, rows, 5)
	for _, row := range rows {
		assert.Len(t, strings.Split(row, ";"), 5)
	}
}

func TestRunReportsTickBudgetOverruns(t *testing.T) {
	_, events, err := runGame(t, map[string]string{"GEMBOT_TICK_BUDGET": "1ns"}, firstLine, secondLine)
	require.NoError(t, err)

	overruns := events.OfType(simulation.EventTickBudgetOverrun)
	require.Len(t, overruns, 2)
	last, ok := overruns[1].Payload.(simulation.TickBudgetOverrunPayload)
	require.True(t, ok)
	assert.Equal(t, uint64(2), last.Streak)
}

func TestLoadOptions(t *testing.T) {
	var logged []string
	logger := telemetry.LoggerFunc(func(format string, args ...any) {
		logged = append(logged, format)
	})
	opts := loadOptions(mapLookup(map[string]string{
		"GEMBOT_LOG_LEVEL":      "debug",
		"GEMBOT_LOG_SINKS":      "",
		"GEMBOT_LOG_JSON_PATH":  "/tmp/events.jsonl",
		"GEMBOT_STRATEGY":       "target",
		"GEMBOT_WORKERS":        "abc",
		"GEMBOT_DECAY":          "0.7",
		"GEMBOT_HIGHLIGHT":      "no",
		"GEMBOT_TICK_BUDGET":    "250ms",
		"GEMBOT_SPECTATOR_ADDR": ":9090",
	}), logger, observability.Config{})

	assert.Equal(t, logging.SeverityDebug, opts.logging.MinimumSeverity)
	assert.Equal(t, []string{"json"}, opts.logging.EnabledSinks)
	assert.Equal(t, "/tmp/events.jsonl", opts.logging.JSON.FilePath)
	assert.Equal(t, field.StrategyTarget, opts.settings.Strategy)
	assert.Equal(t, 0.7, opts.settings.DecayFactor)
	assert.Positive(t, opts.settings.Workers)
	assert.True(t, opts.highlight, "unparseable booleans keep the default")
	assert.Equal(t, 250*time.Millisecond, opts.observability.TickBudget)
	assert.Equal(t, ":9090", opts.observability.SpectatorAddr)
	assert.Len(t, logged, 2)
}

func TestLoadOptionsDumpForcesTargetStrategy(t *testing.T) {
	opts := loadOptions(mapLookup(map[string]string{
		"GEMBOT_FIELD_DUMP": "field.csv",
		"GEMBOT_STRATEGY":   "neighbor",
	}), telemetry.LoggerFunc(func(string, ...any) {}), observability.Config{})
	assert.Equal(t, field.StrategyTarget, opts.settings.Strategy)
	assert.Equal(t, "field.csv", opts.observability.FieldDumpPath)
	assert.Equal(t, []string{"console"}, opts.logging.EnabledSinks)
}

// moveRecorder signals after the first move line is written.
type moveRecorder struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	once  sync.Once
	first chan struct{}
}

func newMoveRecorder() *moveRecorder {
	return &moveRecorder{first: make(chan struct{})}
}

func (r *moveRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	n, err := r.buf.Write(p)
	r.mu.Unlock()
	r.once.Do(func() { close(r.first) })
	return n, err
}

func (r *moveRecorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.String()
}

func TestRunStopsWhenCancelledWhileWaitingForInput(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })
	out := newMoveRecorder()
	events := sinks.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{
			Logger: telemetry.LoggerFunc(func(string, ...any) {}),
			Input:  pr,
			Output: out,
			Env:    map[string]string{"GEMBOT_LOG_SINKS": "", "GEMBOT_HIGHLIGHT": "false"},
			Sinks:  map[string]logging.Sink{"memory": events},
		})
	}()

	go pw.Write([]byte(firstLine + "\n"))
	select {
	case <-out.first:
	case <-time.After(2 * time.Second):
		t.Fatal("first move was never written")
	}
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatalf("Run still blocked after cancel; output %q", out.String())
	}

	assert.Equal(t, "E\n", out.String())
	finished := events.OfType(lifecycle.EventGameFinished)
	require.Len(t, finished, 1)
	payload, ok := finished[0].Payload.(lifecycle.GameFinishedPayload)
	require.True(t, ok)
	assert.Equal(t, "canceled", payload.Reason)
	assert.Equal(t, 1, payload.Ticks)
}

func TestRunCancelledBeforeConfigPlaysNothing(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	var out bytes.Buffer
	events := sinks.NewMemory()
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{
			Logger: telemetry.LoggerFunc(func(string, ...any) {}),
			Input:  pr,
			Output: &out,
			Env:    map[string]string{"GEMBOT_LOG_SINKS": ""},
			Sinks:  map[string]logging.Sink{"memory": events},
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run still blocked after cancel")
	}
	assert.Empty(t, out.String())
	assert.Empty(t, events.OfType(lifecycle.EventAgentStarted))
}

func TestRunFailsWhenNoTargetIsReachable(t *testing.T) {
	// The second observation places the bot behind a wall that cuts it off
	// from every remembered cell and the only gem.
	out, events, err := runGame(t, map[string]string{"GEMBOT_HIGHLIGHT": "false"},
		`{"config":{"width":5,"height":1},"tick":1,"bot":[0,0],"floor":[[0,0],[1,0]]}`,
		`{"tick":2,"bot":[4,0],"wall":[[2,0]],"visible_gems":[{"position":[1,0],"ttl":5}]}`,
		`{"tick":3,"bot":[4,0]}`,
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, field.ErrEmptyField), "got %v", err)
	assert.Len(t, outputLines(out), 1, "no move is written for the failed tick")

	assert.Len(t, events.OfType(decision.EventEmptyField), 1)
	finished := events.OfType(lifecycle.EventGameFinished)
	require.Len(t, finished, 1)
	payload, ok := finished[0].Payload.(lifecycle.GameFinishedPayload)
	require.True(t, ok)
	assert.Equal(t, "error", payload.Reason)
	assert.Equal(t, 2, payload.Ticks)
}
