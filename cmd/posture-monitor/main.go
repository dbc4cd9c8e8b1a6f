// posture-monitor watches a webcam (or a landmark recording), scores posture
// on every frame, escalates alerts while a slouch persists, and ships a
// summary of each save window to the posture API and the local history.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	stdlog "log"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-posture/internal/config"
	"github.com/teslashibe/go-posture/internal/log"
	"github.com/teslashibe/go-posture/internal/telemetry"
	"github.com/teslashibe/go-posture/pkg/camera"
	"github.com/teslashibe/go-posture/pkg/history"
	"github.com/teslashibe/go-posture/pkg/monitor"
	"github.com/teslashibe/go-posture/pkg/pose"
	"github.com/teslashibe/go-posture/pkg/upload"
	"github.com/teslashibe/go-posture/pkg/web"
)

type options struct {
	replay   string
	noUpload bool
	noWeb    bool
}

func main() {
	cfg, opts := parseFlags()

	log.Init(cfg.LogLevel)
	logger := log.Component("monitor")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, "posture-monitor", cfg.OTelEndpoint)
	if err != nil {
		stdlog.Fatalf("❌ Tracing setup failed: %v", err)
	}
	defer shutdownTracing(context.Background())

	scorer, err := cfg.NewScorer()
	if err != nil {
		stdlog.Fatalf("❌ Configuration error: %v", err)
	}

	estimator, err := newEstimator(cfg)
	if err != nil && opts.replay == "" {
		stdlog.Fatalf("❌ Pose estimator: %v", err)
	}

	source, err := openSource(cfg, opts, estimator)
	if err != nil {
		stdlog.Fatalf("❌ %v", err)
	}
	defer source.Close()

	printBanner(cfg, opts)

	var sinks monitor.Sinks

	var dispatcher *upload.Dispatcher
	if !opts.noUpload && cfg.APIURL != "" {
		client, err := upload.NewClient(cfg.APIURL,
			upload.WithToken(cfg.APIToken),
			upload.WithLogger(log.Component("upload")),
		)
		if err != nil {
			stdlog.Fatalf("❌ Upload client: %v", err)
		}
		dispatcher = upload.NewDispatcher(client, upload.WithDispatcherLogger(log.Component("upload")))
		logger.Debug("uploading summaries", "url", client.URL())
		sinks = append(sinks, dispatcher)
	}

	var store *history.Store
	if cfg.HistoryPath != "" {
		store, err = history.Open(cfg.HistoryPath)
		if err != nil {
			stdlog.Fatalf("❌ History: %v", err)
		}
		defer store.Close()
		sinks = append(sinks, history.NewRecorder(store, log.Component("history")))
	}

	pipelineOpts := []monitor.Option{
		monitor.WithInterval(cfg.SaveInterval),
		monitor.WithLogger(logger),
		monitor.WithSink(sinks),
	}

	if !opts.noWeb {
		if estimator == nil {
			estimator = pose.NewMockEstimator()
			logger.Warn("no pose service configured, /process_frame will report no person")
		}
		srv, err := web.NewServer(web.Config{
			Addr:      cfg.Addr(),
			Scorer:    scorer,
			Cutoff:    cfg.SlouchCutoff,
			Estimator: estimator,
			Decode:    camera.DecodeJPEG,
			History:   store,
			Logger:    log.Component("web"),
		})
		if err != nil {
			stdlog.Fatalf("❌ Web server: %v", err)
		}
		srv.StartAsync(ctx)
		pipelineOpts = append(pipelineOpts, monitor.WithObserver(srv.PublishFrame))
	}

	eval := monitor.NewEvaluator(scorer, cfg.SlouchCutoff, cfg.Feedback())
	pipeline := monitor.New(source, eval, pipelineOpts...)

	runErr := pipeline.Run(ctx)

	if dispatcher != nil {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := dispatcher.Close(closeCtx); err != nil {
			logger.Warn("pending uploads dropped", "error", err)
		}
		closeCancel()
		sent, failed, dropped := dispatcher.Stats()
		logger.Info("uploads", "sent", sent, "failed", failed, "dropped", dropped)
	}

	frames, flushes, errs := pipeline.Stats()
	fmt.Printf("\n👋 Stopped after %d frames, %d summaries, %d errors\n", frames, flushes, errs)
	if runErr != nil {
		stdlog.Fatalf("❌ Runtime error: %v", runErr)
	}
}

// parseFlags loads the environment config and applies flag overrides.
func parseFlags() (config.Config, options) {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("❌ Configuration error: %v", err)
	}

	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	scorer := flag.String("scorer", cfg.Scorer, "Scoring variant: penalty or threshold")
	interval := flag.Duration("interval", cfg.SaveInterval, "Summary save interval")
	device := flag.Int("device", cfg.CameraDevice, "Camera device index")
	preset := flag.String("camera-preset", "", "Camera preset (overrides width/height)")
	noMirror := flag.Bool("no-mirror", false, "Do not flip camera frames horizontally")
	poseURL := flag.String("pose-url", cfg.PoseURL, "Pose estimation service URL")
	apiURL := flag.String("api-url", cfg.APIURL, "Posture API endpoint")
	historyPath := flag.String("history", cfg.HistoryPath, "Local history database (empty disables)")
	port := flag.Int("port", cfg.Port, "Status server port")

	var opts options
	flag.StringVar(&opts.replay, "replay", "", "Replay a JSON-lines landmark recording instead of the camera")
	flag.BoolVar(&opts.noUpload, "no-upload", false, "Do not upload summaries")
	flag.BoolVar(&opts.noWeb, "no-web", false, "Do not start the status server")
	flag.Parse()

	if *debug {
		cfg.LogLevel = "debug"
	}
	cfg.Scorer, cfg.SaveInterval, cfg.CameraDevice = *scorer, *interval, *device
	cfg.PoseURL, cfg.APIURL, cfg.HistoryPath, cfg.Port = *poseURL, *apiURL, *historyPath, *port
	if *noMirror {
		cfg.Mirror = false
	}
	if *preset != "" {
		p := camera.GetPreset(*preset)
		if p == nil {
			stdlog.Fatalf("❌ Unknown camera preset %q (have %v)", *preset, camera.PresetNames())
		}
		cfg.CameraWidth, cfg.CameraHeight = p.Width, p.Height
	}

	if problems := cfg.Validate(); len(problems) > 0 {
		stdlog.Fatalf("❌ Configuration error: %v", &config.ConfigError{Problems: problems})
	}
	return cfg, opts
}

func newEstimator(cfg config.Config) (pose.Estimator, error) {
	e, err := pose.NewHTTPEstimator(cfg.PoseURL,
		pose.WithToken(cfg.PoseToken),
		pose.WithLogger(log.Component("pose")),
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func openSource(cfg config.Config, opts options, estimator pose.Estimator) (pose.Source, error) {
	if opts.replay != "" {
		rec, err := pose.OpenRecording(opts.replay, time.Now())
		if err != nil {
			return nil, fmt.Errorf("replay: %w", err)
		}
		return rec, nil
	}

	camCfg := camera.DefaultConfig()
	camCfg.Device = cfg.CameraDevice
	camCfg.Width, camCfg.Height = cfg.CameraWidth, cfg.CameraHeight
	camCfg.Mirror = cfg.Mirror

	capture, err := camera.Open(camCfg)
	if errors.Is(err, camera.ErrUnavailable) {
		return nil, fmt.Errorf("camera %d unavailable: %w", cfg.CameraDevice, err)
	}
	if err != nil {
		return nil, err
	}
	camLog := log.Component("camera")
	applied := capture.Config()
	camLog.Info("camera opened", "device", applied.Device, "width", applied.Width, "height", applied.Height, "mirror", applied.Mirror)
	return camera.NewSource(capture, estimator, camLog), nil
}

func printBanner(cfg config.Config, opts options) {
	fmt.Println("🧍 go-posture monitor")
	if opts.replay != "" {
		fmt.Printf("   📼 Replaying %s\n", opts.replay)
	} else {
		fmt.Printf("   📷 Camera %d at %dx%d\n", cfg.CameraDevice, cfg.CameraWidth, cfg.CameraHeight)
	}
	fmt.Printf("   📐 Scorer: %s (slouching below %d)\n", cfg.Scorer, cfg.SlouchCutoff)
	if opts.noUpload || cfg.APIURL == "" {
		fmt.Printf("   💾 Saving every %v (upload disabled)\n", cfg.SaveInterval)
	} else {
		fmt.Printf("   💾 Saving every %v to %s\n", cfg.SaveInterval, cfg.APIURL)
	}
	if cfg.HistoryPath != "" {
		fmt.Printf("   🗂  History: %s\n", cfg.HistoryPath)
	}
	fmt.Println("   Press Ctrl+C to stop")
}
