package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	stdnet "net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/overfly42/found-gems/internal/agent"
	"github.com/overfly42/found-gems/internal/grid"
	servernet "github.com/overfly42/found-gems/internal/net"
	"github.com/overfly42/found-gems/internal/net/lineio"
	"github.com/overfly42/found-gems/internal/net/ws"
	"github.com/overfly42/found-gems/internal/observability"
	"github.com/overfly42/found-gems/internal/protocol"
	"github.com/overfly42/found-gems/internal/telemetry"
	"github.com/overfly42/found-gems/logging"
	"github.com/overfly42/found-gems/logging/lifecycle"
	"github.com/overfly42/found-gems/logging/observation"
	"github.com/overfly42/found-gems/logging/simulation"
	loggingSinks "github.com/overfly42/found-gems/logging/sinks"
)

type Config struct {
	Logger        telemetry.Logger
	Observability observability.Config

	// Input carries observations and Output receives moves. They default to
	// stdin and stdout.
	Input  io.Reader
	Output io.Writer
	// Stderr receives the console sink. Defaults to os.Stderr.
	Stderr io.Writer

	// Env replaces the process environment and the .env file when non-nil.
	Env map[string]string
	// EnvFile is loaded into the process environment first. Defaults to ".env".
	EnvFile string

	// Sinks are added to the configured ones.
	Sinks map[string]logging.Sink
}

// Run plays one game: it reads observations until the input ends and writes
// one move per observation. A game that cannot be configured, or whose field
// composition fails, ends with an error.
func Run(ctx context.Context, cfg Config) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(logrus.StandardLogger())
	}

	var fallbackLogger logrus.FieldLogger = logrus.StandardLogger()
	if provider, ok := telemetryLogger.(interface{ FieldLogger() logrus.FieldLogger }); ok {
		if candidate := provider.FieldLogger(); candidate != nil {
			fallbackLogger = candidate
		}
	}

	lookup := lookupFunc(os.LookupEnv)
	if cfg.Env != nil {
		lookup = mapLookup(cfg.Env)
	} else {
		envFile := cfg.EnvFile
		if envFile == "" {
			envFile = ".env"
		}
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			telemetryLogger.Printf("failed to load %s: %v", envFile, err)
		}
	}
	opts := loadOptions(lookup, telemetryLogger, cfg.Observability)

	stderr := cfg.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	sinks := make(map[string]logging.Sink, len(cfg.Sinks)+2)
	if opts.logging.HasSink("console") {
		sinks["console"] = loggingSinks.NewConsole(stderr, opts.logging.Console)
	}
	if opts.logging.HasSink("json") && opts.logging.JSON.FilePath != "" {
		jsonSink, err := loggingSinks.OpenJSON(opts.logging.JSON.FilePath, opts.logging.JSON.FlushInterval)
		if err != nil {
			telemetryLogger.Printf("failed to open json log %s: %v", opts.logging.JSON.FilePath, err)
		} else {
			sinks["json"] = jsonSink
		}
	}
	for name, sink := range cfg.Sinks {
		sinks[name] = sink
	}

	router, err := logging.NewRouter(opts.logging, logging.SystemClock{}, fallbackLogger, sinks)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	runID := uuid.NewString()
	pub := logging.WithTrace(router, runID)
	metrics := telemetry.WrapMetrics(router.Metrics())

	input := cfg.Input
	if input == nil {
		input = os.Stdin
	}
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}
	g := &game{
		opts:    opts,
		pub:     pub,
		metrics: router.Metrics(),
		logger:  telemetryLogger,
		runID:   runID,
		reader:  lineio.NewReader(input),
		writer:  lineio.NewWriter(output),
	}

	first, err := g.readConfig(ctx)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return nil
		}
		return err
	}
	g.agent, err = agent.New(*first.Config, agent.Config{Settings: opts.settings, Publisher: pub, Metrics: metrics})
	if err != nil {
		return err
	}
	gameCfg := g.agent.Game()
	settings := g.agent.Settings()
	lifecycle.AgentStarted(ctx, pub, first.Tick, lifecycle.AgentStartedPayload{
		Width:        gameCfg.Width,
		Height:       gameCfg.Height,
		MaxTicks:     gameCfg.MaxTicks,
		VisRadius:    gameCfg.VisRadius,
		MaxGems:      gameCfg.MaxGems,
		GemTTL:       gameCfg.GemTTL,
		EmitSignals:  gameCfg.EmitSignals,
		SignalRadius: gameCfg.SignalRadius,
		Strategy:     string(settings.Strategy),
		Workers:      settings.Workers,
	}, map[string]any{"runId": runID})

	if path := opts.observability.FieldDumpPath; path != "" {
		dump, err := openFieldDump(path)
		if err != nil {
			telemetryLogger.Printf("failed to open field dump %s: %v", path, err)
		} else {
			g.dump = dump
			defer dump.Close()
		}
	}

	if addr := opts.observability.SpectatorAddr; addr != "" {
		stop, err := g.serveSpectators(addr)
		if err != nil {
			telemetryLogger.Printf("spectator server disabled: %v", err)
		} else {
			defer stop()
		}
	}

	return g.play(ctx, first)
}

type game struct {
	opts    options
	pub     logging.Publisher
	metrics *logging.Metrics
	logger  telemetry.Logger
	runID   string
	reader  *lineio.Reader
	writer  *lineio.Writer
	agent   *agent.Agent
	dump    *fieldDump
	hub     *ws.Hub

	lastTick      int
	overrunStreak uint64
}

// readConfig decodes the first observation, which must carry a valid game
// configuration.
func (g *game) readConfig(ctx context.Context) (protocol.Observation, error) {
	line, err := g.reader.Next(ctx)
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return protocol.Observation{}, err
	}
	if errors.Is(err, io.EOF) {
		return protocol.Observation{}, fmt.Errorf("%w: no observation received", protocol.ErrInvalidConfig)
	}
	if err != nil {
		return protocol.Observation{}, fmt.Errorf("read first observation: %w", err)
	}
	obs, err := protocol.Decode(line)
	if err != nil {
		return protocol.Observation{}, fmt.Errorf("%w: %v", protocol.ErrInvalidConfig, err)
	}
	if obs.Config == nil {
		return protocol.Observation{}, fmt.Errorf("%w: first observation has no config", protocol.ErrInvalidConfig)
	}
	if err := obs.Config.Validate(); err != nil {
		return protocol.Observation{}, err
	}
	return obs, nil
}

func (g *game) serveSpectators(addr string) (func(), error) {
	ln, err := stdnet.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	g.hub = ws.NewHub(ws.HubConfig{Logger: g.logger, Metrics: telemetry.WrapMetrics(g.metrics)})
	handler := servernet.NewHTTPHandler(g.hub, servernet.HTTPHandlerConfig{
		Diagnostics: func() any { return g.metrics.Snapshot() },
	})
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	g.logger.Printf("spectator server listening on %s", ln.Addr())
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Printf("spectator server failed: %v", err)
		}
	}()
	return func() {
		g.hub.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}, nil
}

func (g *game) play(ctx context.Context, obs protocol.Observation) error {
	for {
		if err := g.step(ctx, obs); err != nil {
			return g.end(ctx, err)
		}
		next, err := g.next(ctx)
		if err != nil {
			return g.end(ctx, err)
		}
		obs = next
	}
}

// end publishes the finish event. End of input and cancellation finish the
// game cleanly; anything else is returned.
func (g *game) end(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, io.EOF):
		g.finish(ctx, "input closed")
		return nil
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		g.finish(ctx, "canceled")
		return nil
	default:
		g.finish(ctx, "error")
		return err
	}
}

// next returns the following well-formed observation. Malformed lines are
// answered with WAIT so the game keeps one move per line.
func (g *game) next(ctx context.Context) (protocol.Observation, error) {
	for {
		line, err := g.reader.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || (ctx.Err() != nil && errors.Is(err, ctx.Err())) {
				return protocol.Observation{}, err
			}
			return protocol.Observation{}, fmt.Errorf("read observation: %w", err)
		}
		obs, err := protocol.Decode(line)
		if err == nil {
			return obs, nil
		}
		observation.MalformedLine(ctx, g.pub, g.lastTick+1, observation.MalformedLinePayload{Bytes: len(line), Error: err.Error()})
		if werr := g.writer.WriteMove(grid.Wait.Token()); werr != nil {
			return protocol.Observation{}, fmt.Errorf("write move: %w", werr)
		}
	}
}

func (g *game) step(ctx context.Context, obs protocol.Observation) error {
	start := time.Now()
	d, err := g.agent.Tick(ctx, obs)
	if err != nil {
		return err
	}
	g.lastTick = obs.Tick

	var highlights []protocol.Highlight
	if g.opts.highlight {
		highlights = d.Highlights()
	}
	line, err := protocol.EncodeMove(d.Move, highlights)
	if err != nil {
		return fmt.Errorf("encode move: %w", err)
	}
	if err := g.writer.WriteMove(line); err != nil {
		return fmt.Errorf("write move: %w", err)
	}
	g.checkBudget(ctx, obs.Tick, time.Since(start), d.Fills)

	if g.dump != nil {
		if err := g.dump.Write(d.Field); err != nil {
			g.logger.Printf("field dump failed at tick %d: %v", obs.Tick, err)
		}
	}
	if g.hub != nil {
		if err := g.hub.Broadcast(spectatorFrame{RunID: g.runID, Decision: d, Highlight: highlights}); err != nil {
			g.logger.Printf("spectator broadcast failed at tick %d: %v", obs.Tick, err)
		}
	}
	return nil
}

type spectatorFrame struct {
	RunID string `json:"runId"`
	agent.Decision
	Highlight []protocol.Highlight `json:"highlight,omitempty"`
}

func (g *game) checkBudget(ctx context.Context, tick int, elapsed time.Duration, fills int) {
	budget := g.opts.observability.TickBudget
	if budget <= 0 {
		return
	}
	if elapsed <= budget {
		g.overrunStreak = 0
		return
	}
	g.overrunStreak++
	simulation.TickBudgetOverrun(ctx, g.pub, tick, simulation.TickBudgetOverrunPayload{
		DurationMillis: elapsed.Milliseconds(),
		BudgetMillis:   budget.Milliseconds(),
		Ratio:          float64(elapsed) / float64(budget),
		Streak:         g.overrunStreak,
		Fills:          fills,
	}, nil)
}

func (g *game) finish(ctx context.Context, reason string) {
	stats := g.agent.Stats()
	lifecycle.GameFinished(ctx, g.pub, g.lastTick, lifecycle.GameFinishedPayload{
		Ticks:         stats.Ticks,
		GemsCollected: stats.GemsCollected,
		Reason:        reason,
	}, nil)
}
