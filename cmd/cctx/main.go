package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/mabrax/cctx/internal/config"
	cctxerr "github.com/mabrax/cctx/internal/core/errors"
	"github.com/mabrax/cctx/internal/fix"
	"github.com/mabrax/cctx/internal/graph"
	"github.com/mabrax/cctx/internal/shared/util"
	"github.com/mabrax/cctx/internal/store"
	"github.com/mabrax/cctx/internal/validate"
	"github.com/mabrax/cctx/internal/vcs"
)

var (
	configPath   = flag.String("config", "./cctx.toml", "Path to config file")
	rootPath     = flag.String("root", ".", "Project root")
	deep         = flag.Bool("deep", false, "Run deep validation (freshness + structural graph checks)")
	preCommit    = flag.Bool("pre-commit", false, "Run only the fast pre-commit validators")
	validators   = flag.String("validators", "", "Comma-separated validator names to run")
	applyFixes   = flag.Bool("fix", false, "Plan and apply fixes, then re-validate")
	graphOut     = flag.String("graph", "", "Write the dependency graph artifact to this path and exit")
	metricsAddr  = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	otlpEndpoint = flag.String("otlp-endpoint", "", "Export traces to this OTLP gRPC endpoint")
	verbose      = flag.Bool("verbose", false, "Enable verbose logging")
	jsonOut      = flag.Bool("json", false, "Emit the report as JSON")
	version      = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

// Exit codes: 0 healthy (warnings allowed), 1 validation failed, 2 the tool
// itself broke.
const (
	exitOK    = 0
	exitFail  = 1
	exitInfra = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	if *version {
		fmt.Printf("cctx v%s\n", VERSION)
		return exitOK
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !os.IsNotExist(err) || *configPath != "./cctx.toml" {
			slog.Error("failed to load config", "path", *configPath, "error", err)
			return exitInfra
		}
		cfg = config.Default()
	}

	ctx := context.Background()

	if *otlpEndpoint != "" {
		shutdown, err := setupTracing(ctx, *otlpEndpoint)
		if err != nil {
			slog.Error("failed to set up tracing", "error", err)
			return exitInfra
		}
		defer shutdown()
	}

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr)
	}

	dbPath := cfg.DBPath
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(*rootPath, dbPath)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		slog.Error("failed to open registry", "path", dbPath, "error", err)
		return exitInfra
	}
	defer st.Close()

	if *graphOut != "" {
		if err := writeGraphArtifact(ctx, st, *graphOut); err != nil {
			slog.Error("failed to write graph artifact", "error", err)
			if cctxerr.IsCode(err, cctxerr.CodeStructuralIntegrity) {
				return exitFail
			}
			return exitInfra
		}
		return exitOK
	}

	limiter := util.NewLimiter(cfg.Git.RateLimit, cfg.Git.Burst)
	mtimes := vcs.NewGitMTimes(*rootPath, limiter)
	runner := validate.NewRunner(st, *rootPath, cfg, mtimes)

	opts := validate.Options{Deep: *deep, PreCommit: *preCommit}
	if *validators != "" {
		for _, name := range strings.Split(*validators, ",") {
			if name = strings.TrimSpace(name); name != "" {
				opts.Validators = append(opts.Validators, name)
			}
		}
	}

	rep, err := runner.Run(ctx, opts)
	if err != nil {
		slog.Error("validation run aborted", "error", err)
		return exitInfra
	}

	if *applyFixes {
		rep, err = fixAndRevalidate(ctx, st, cfg, runner, opts, rep)
		if err != nil {
			slog.Error("fix pass aborted", "error", err)
			return exitInfra
		}
	}

	if err := printReport(rep); err != nil {
		slog.Error("failed to render report", "error", err)
		return exitInfra
	}

	if rep.Status == validate.StatusFail {
		return exitFail
	}
	return exitOK
}

// fixAndRevalidate applies every planned fix and runs validation again so
// the exit code reflects the state after remediation.
func fixAndRevalidate(ctx context.Context, st *store.Store, cfg *config.Config, runner *validate.Runner, opts validate.Options, rep validate.Report) (validate.Report, error) {
	registry := fix.DefaultRegistry(st, *rootPath, cfg.CtxDir)
	plan := registry.BuildPlan(rep)
	if len(plan.Fixes) == 0 {
		slog.Info("nothing to fix")
		return rep, nil
	}

	results := registry.Apply(ctx, plan)
	applied, failed := 0, 0
	for _, r := range results {
		if r.Outcome == fix.OutcomeApplied {
			applied++
		} else {
			failed++
		}
	}
	slog.Info("fix pass complete", "plan", plan.ID, "applied", applied, "failed", failed)

	return runner.Run(ctx, opts)
}

func writeGraphArtifact(ctx context.Context, st *store.Store, out string) error {
	snap, err := st.LoadSnapshot(ctx)
	if err != nil {
		return err
	}
	g, err := graph.Build(snap.Systems, snap.Dependencies)
	if err != nil {
		return err
	}
	return graph.NewArtifact(g, snap.Watermark()).WriteFile(out)
}

func setupTracing(ctx context.Context, endpoint string) (func(), error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}, nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	slog.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("metrics server stopped", "error", err)
	}
}

func printReport(rep validate.Report) error {
	if *jsonOut {
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	fmt.Print(formatReport(rep))
	return nil
}
