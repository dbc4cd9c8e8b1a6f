// posture-server scores single uploaded frames over HTTP and serves the
// local posture history.
package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-posture/internal/config"
	"github.com/teslashibe/go-posture/internal/log"
	"github.com/teslashibe/go-posture/internal/telemetry"
	"github.com/teslashibe/go-posture/pkg/camera"
	"github.com/teslashibe/go-posture/pkg/history"
	"github.com/teslashibe/go-posture/pkg/pose"
	"github.com/teslashibe/go-posture/pkg/posture"
	"github.com/teslashibe/go-posture/pkg/web"
)

func main() {
	cfg, accessLog := parseFlags()

	log.Init(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, "posture-server", cfg.OTelEndpoint)
	if err != nil {
		stdlog.Fatalf("❌ Tracing setup failed: %v", err)
	}
	defer shutdownTracing(context.Background())

	scorer, err := cfg.NewScorer()
	if err != nil {
		stdlog.Fatalf("❌ Configuration error: %v", err)
	}

	estimator, err := pose.NewHTTPEstimator(cfg.PoseURL,
		pose.WithToken(cfg.PoseToken),
		pose.WithLogger(log.Component("pose")),
	)
	if err != nil {
		stdlog.Fatalf("❌ Pose estimator: %v (set POSTURE_POSE_URL or --pose-url)", err)
	}
	defer estimator.Close()

	var store *history.Store
	if cfg.HistoryPath != "" {
		store, err = history.Open(cfg.HistoryPath)
		if err != nil {
			stdlog.Fatalf("❌ History: %v", err)
		}
		defer store.Close()
	}

	webCfg := web.Config{
		Addr:      cfg.Addr(),
		Scorer:    scorer,
		Cutoff:    cfg.SlouchCutoff,
		Estimator: estimator,
		Decode:    camera.DecodeJPEG,
		History:   store,
		Logger:    log.Component("web"),
	}
	if accessLog {
		webCfg.AccessLog = os.Stdout
	}
	srv, err := web.NewServer(webCfg)
	if err != nil {
		stdlog.Fatalf("❌ Web server: %v", err)
	}

	fmt.Println("🧍 go-posture scoring server")
	fmt.Printf("   📐 Scorer: %s\n", scorer.Name())
	fmt.Printf("   🤖 Pose service: %s\n", cfg.PoseURL)
	fmt.Printf("   🌐 POST http://localhost%s/process_frame\n", cfg.Addr())

	if err := srv.Start(ctx); err != nil {
		stdlog.Fatalf("❌ Server error: %v", err)
	}
}

// parseFlags loads the environment config and applies flag overrides.
// The server scores with the threshold variant unless told otherwise.
func parseFlags() (config.Config, bool) {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("❌ Configuration error: %v", err)
	}
	if os.Getenv("POSTURE_SCORER") == "" {
		cfg.Scorer = posture.ScorerThreshold
	}

	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	scorer := flag.String("scorer", cfg.Scorer, "Scoring variant: penalty or threshold")
	port := flag.Int("port", cfg.Port, "Listen port")
	poseURL := flag.String("pose-url", cfg.PoseURL, "Pose estimation service URL")
	historyPath := flag.String("history", cfg.HistoryPath, "Local history database (empty disables)")
	accessLog := flag.Bool("access-log", false, "Log every request")
	flag.Parse()

	if *debug {
		cfg.LogLevel = "debug"
	}
	cfg.Scorer, cfg.Port, cfg.PoseURL, cfg.HistoryPath = *scorer, *port, *poseURL, *historyPath

	if problems := cfg.Validate(); len(problems) > 0 {
		stdlog.Fatalf("❌ Configuration error: %v", &config.ConfigError{Problems: problems})
	}
	return cfg, *accessLog
}
