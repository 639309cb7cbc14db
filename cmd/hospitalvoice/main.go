// Command hospitalvoice is the main entry point for the voice-command server.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"golang.org/x/sync/errgroup"

	"github.com/ProSamhacker/hospitalmanagement/internal/config"
	"github.com/ProSamhacker/hospitalmanagement/internal/consult"
	"github.com/ProSamhacker/hospitalmanagement/internal/extraction"
	"github.com/ProSamhacker/hospitalmanagement/internal/fuzzy"
	"github.com/ProSamhacker/hospitalmanagement/internal/health"
	"github.com/ProSamhacker/hospitalmanagement/internal/notify"
	"github.com/ProSamhacker/hospitalmanagement/internal/observe"
	"github.com/ProSamhacker/hospitalmanagement/internal/orchestrator"
	"github.com/ProSamhacker/hospitalmanagement/internal/resilience"
	"github.com/ProSamhacker/hospitalmanagement/internal/server"
	"github.com/ProSamhacker/hospitalmanagement/internal/store"
	"github.com/ProSamhacker/hospitalmanagement/pkg/provider/ai"
	"github.com/ProSamhacker/hospitalmanagement/pkg/provider/ai/anyllm"
	"github.com/ProSamhacker/hospitalmanagement/pkg/provider/ai/gemini"
)

func main() {
	os.Exit(run())
}

// logLevel is mutable so the config watcher can adjust verbosity at runtime.
var logLevel = new(slog.LevelVar)

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	repl := flag.Bool("repl", false, "read commands from stdin in addition to serving HTTP")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "hospitalvoice: config file %q not found; copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "hospitalvoice: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logLevel.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	slog.Info("hospitalvoice starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "hospitalvoice",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── AI backends ───────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinBackends(reg)

	aiSvc, err := buildAI(cfg, reg)
	if err != nil {
		slog.Error("failed to build AI backends", "err", err)
		return 1
	}

	// ── Record store ──────────────────────────────────────────────────────────
	var (
		meds          store.Store
		prescriptions store.PrescriptionStore
		notifications store.NotificationStore
		dbChecker     health.Checker
	)
	if dsn := cfg.Store.PostgresDSN; dsn != "" {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			slog.Error("failed to connect to postgres", "err", err)
			return 1
		}
		defer pool.Close()

		pg := store.NewPostgresStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			slog.Error("failed to migrate schema", "err", err)
			return 1
		}
		meds, prescriptions, notifications = pg, pg, pg
		dbChecker = health.Checker{Name: "database", Check: pool.Ping}
		slog.Info("using postgres record store")
	} else {
		mem := store.NewMemStore()
		meds, prescriptions, notifications = mem, mem, mem
		dbChecker = health.Checker{Name: "database", Check: func(context.Context) error { return nil }}
		slog.Info("using in-memory record store")
	}

	// ── Pipeline ──────────────────────────────────────────────────────────────
	var matcherOpts []fuzzy.Option
	if cfg.Matcher.MaxDistance > 0 {
		matcherOpts = append(matcherOpts, fuzzy.WithMaxDistance(cfg.Matcher.MaxDistance))
	}
	matcher := fuzzy.New(matcherOpts...)

	pipeline := extraction.New(aiSvc)
	sink := notify.Multi{notify.LogSink{}, store.NewNotificationSink(notifications)}
	consults := consult.New(pipeline, prescriptions, sink, logger)
	orch := orchestrator.New(meds, matcher, pipeline, logger)

	healthHandler := health.New(dbChecker)
	srv := server.New(orch, consults, notifications, prescriptions, healthHandler, observe.DefaultMetrics(), logger)

	// ── Config watcher ────────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if d.LogLevelChanged {
			logLevel.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		if d.MatcherChanged || d.AIChanged {
			slog.Warn("matcher or AI configuration changed; restart to apply")
		}
	})
	if err != nil {
		slog.Warn("config watcher unavailable", "err", err)
	} else {
		defer watcher.Stop()
	}

	slog.Info("server ready; press Ctrl+C to shut down")

	// ── Serve ─────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	addr := cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	var certFile, keyFile string
	if cfg.Server.TLS != nil {
		certFile, keyFile = cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile
	}
	g.Go(func() error {
		return srv.Run(gctx, addr, certFile, keyFile)
	})

	if *repl {
		g.Go(func() error {
			return runREPL(gctx, orch)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── AI wiring ─────────────────────────────────────────────────────────────────

// registerBuiltinBackends wires all built-in AI backend factories into reg.
func registerBuiltinBackends(reg *config.Registry) {
	reg.RegisterAI("gemini", func(entry config.ProviderEntry) (ai.Service, error) {
		var opts []gemini.Option
		if entry.Model != "" {
			opts = append(opts, gemini.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(entry.BaseURL))
		}
		if entry.TimeoutSeconds > 0 {
			opts = append(opts, gemini.WithTimeout(time.Duration(entry.TimeoutSeconds)*time.Second))
		}
		return gemini.New(entry.APIKey, opts...)
	})

	// openai and anthropic share the same pattern: optional APIKey + BaseURL.
	for _, name := range []string{"openai", "anthropic"} {
		reg.RegisterAI(name, func(entry config.ProviderEntry) (ai.Service, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(entry.Name, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterAI("ollama", func(entry config.ProviderEntry) (ai.Service, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})
}

// buildAI instantiates the primary backend plus any fallbacks, each behind
// its own circuit breaker. With no backend configured a mock-free nil service
// is unacceptable, so a stub that always reports unavailability is returned;
// deterministic commands keep working and AI-dependent paths degrade.
func buildAI(cfg *config.Config, reg *config.Registry) (ai.Service, error) {
	if cfg.AI.Primary.Name == "" {
		return unavailableAI{}, nil
	}

	primary, err := reg.CreateAI(cfg.AI.Primary)
	if err != nil {
		return nil, fmt.Errorf("create ai backend %q: %w", cfg.AI.Primary.Name, err)
	}
	slog.Info("ai backend created", "name", cfg.AI.Primary.Name, "model", cfg.AI.Primary.Model)

	fb := resilience.NewAIFallback(ai.Instrument(cfg.AI.Primary.Name, primary, nil), cfg.AI.Primary.Name, resilience.FallbackConfig{
		CircuitBreaker: resilience.BreakerConfig{
			MaxFailures:  cfg.AI.Breaker.MaxFailures,
			ResetTimeout: time.Duration(cfg.AI.Breaker.ResetSeconds) * time.Second,
			ProbeCalls:   cfg.AI.Breaker.ProbeCalls,
		},
	})
	for _, entry := range cfg.AI.Fallbacks {
		svc, err := reg.CreateAI(entry)
		if err != nil {
			return nil, fmt.Errorf("create ai fallback %q: %w", entry.Name, err)
		}
		fb.AddFallback(entry.Name, ai.Instrument(entry.Name, svc, nil))
		slog.Info("ai fallback registered", "name", entry.Name, "model", entry.Model)
	}
	return fb, nil
}

// unavailableAI satisfies [ai.Service] when no backend is configured.
type unavailableAI struct{}

func (unavailableAI) Complete(context.Context, string) (string, error) {
	return "", fmt.Errorf("%w: no AI backend configured", ai.ErrUnavailable)
}

// ── REPL ──────────────────────────────────────────────────────────────────────

// runREPL reads one command per line from stdin and prints the confirmation
// plus the fresh listing, mirroring what the HTTP API returns.
func runREPL(ctx context.Context, orch *orchestrator.Orchestrator) error {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("Enter commands (Ctrl+D to quit):")
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		res, err := orch.Handle(ctx, line)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		fmt.Println(res.Message)
		for i, m := range res.Records {
			fmt.Printf("  %d. %s (%s)\n", i+1, m.Name, m.Category)
		}
	}
	return scanner.Err()
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
