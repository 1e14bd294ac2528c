package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"poseai/internal/analysis"
	"poseai/internal/archive"
	"poseai/internal/config"
	"poseai/internal/estimator"
	"poseai/internal/live"
	"poseai/internal/pose"
)

const usage = `Usage: poseai <command> [flags]

Commands:
  analyze <image>   score one photo and archive the report
  live <dir>        replay the frames in a directory as a live session
  models            list the Gemini models available to the API key
  report <id>       regenerate report.html for an archived analysis
  scene <id>        print the 3D scene of an archived analysis as JSON
`

func main() {
	config.InitLogger()
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "analyze":
		err = runAnalyze(ctx, cfg, args)
	case "live":
		err = runLive(ctx, cfg, args)
	case "models":
		err = runModels(ctx, cfg)
	case "report":
		err = runReport(cfg, args)
	case "scene":
		err = runScene(cfg, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		slog.Error("Command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

// estimatorFlags registers the provider overrides shared by analyze and live.
func estimatorFlags(fs *flag.FlagSet, cfg *config.Config) func() {
	provider := fs.String("provider", "", "Provider: gemini, openai, mediapipe or movenet (overrides env)")
	model := fs.String("model", "", "Model to use (overrides env). Examples: gemini-2.5-flash, gpt-4o-mini, movenet.onnx")
	return func() {
		if *provider != "" {
			cfg.Estimator.Provider = *provider
		}
		if *model != "" {
			cfg.Estimator.GeminiModel = *model
			cfg.Estimator.OpenAIModel = *model
			cfg.Estimator.MoveNetModel = *model
		}
	}
}

func scoreOptions(cfg *config.Config) pose.ScoreOptions {
	opts := pose.DefaultScoreOptions()
	if cfg.Estimator.ScoreTolerance > 0 {
		opts.Tolerance = cfg.Estimator.ScoreTolerance
	}
	return opts
}

func runAnalyze(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	apply := estimatorFlags(fs, cfg)
	out := fs.String("out", cfg.Server.OutputDir, "Archive directory")
	fs.Parse(args)
	apply()
	if fs.NArg() != 1 {
		return errors.New("analyze needs exactly one image path")
	}
	path := fs.Arg(0)

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	est, err := estimator.New(ctx, cfg.Estimator)
	if err != nil {
		return err
	}
	defer est.Close()

	ctx, cancel := context.WithTimeout(ctx, cfg.Estimator.Timeout)
	defer cancel()

	fmt.Println("Starting Posture Analysis...")
	fmt.Printf("Using provider: %s\n", cfg.Estimator.Provider)

	svc := analysis.NewService(est, archive.NewStore(*out), scoreOptions(cfg), cfg.Estimator.Provider)
	report, err := svc.Analyze(ctx, data)
	if err != nil {
		var vis *analysis.VisibilityError
		if errors.As(err, &vis) {
			fmt.Println("Please retake the photo so your whole body is in frame.")
		}
		return err
	}

	printResult(report.Result)
	fmt.Printf("\nAnalysis saved to: %s\n", filepath.Join(*out, report.ID))
	fmt.Printf("  - %s\n  - %s\n  - %s\n", archive.AnalysisFile, archive.OverlayFile, archive.ReportFile)
	return nil
}

func printResult(res pose.Result) {
	fmt.Println("\n==================================================")
	fmt.Printf("POSTURE SCORE: %d/100\n", res.Score)
	fmt.Println("==================================================")
	fmt.Printf("  Shoulder tilt: %.1f°\n", res.Angles.Shoulders)
	fmt.Printf("  Hip tilt:      %.1f°\n", res.Angles.Hips)
	fmt.Printf("  Neck tilt:     %.1f°\n", res.Angles.Neck)
	fmt.Printf("  Back tilt:     %.1f°\n", res.Angles.Back)

	if len(res.Issues) == 0 {
		fmt.Println("\nNo significant posture issues detected.")
	}
	for i, issue := range res.Issues {
		fmt.Printf("\n%d. %s\n   %s\n", i+1, issue, res.Improvements[i])
		if ex := res.Solutions[i].Exercises; len(ex) > 0 {
			fmt.Printf("   Exercises: %s\n", strings.Join(ex, ", "))
		}
	}
	fmt.Printf("\n%s\n", res.Alignment.Details)
}

func runLive(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("live", flag.ExitOnError)
	apply := estimatorFlags(fs, cfg)
	interval := fs.Duration("interval", cfg.Live.Interval, "Polling interval between frames")
	fs.Parse(args)
	apply()
	if fs.NArg() != 1 {
		return errors.New("live needs a directory of frames")
	}

	frames, err := live.NewDirSource(fs.Arg(0))
	if err != nil {
		return err
	}

	backend, err := estimator.New(ctx, cfg.Estimator)
	if err != nil {
		return err
	}
	est := estimator.NewExclusive(backend)
	defer est.Close()

	var sink live.ResultSink
	if cfg.MQTT.Broker != "" {
		pub, err := live.NewMQTTPublisher(cfg.MQTT)
		if err != nil {
			return err
		}
		defer pub.Close()
		sink = pub
	}

	manager := live.NewManager(est, scoreOptions(cfg), sink, 0)
	session := manager.Create()
	fmt.Printf("Live session %s: %d frames every %s\n", session.ID, frames.Len(), *interval)

	runner := live.NewRunner(manager, session.ID, frames, *interval)
	scored := 0
	runner.OnUpdate = func(u *live.Update) {
		scored++
		fmt.Printf("[%s] frame %d: score %d, %d issue(s)\n",
			u.CompletedAt.Format(time.TimeOnly), u.Seq, u.Score, len(u.Issues))
	}
	if err := runner.Run(ctx); err != nil {
		return err
	}

	fmt.Printf("\nScored %d of %d frames.\n", scored, frames.Len())
	if u, ok := session.Latest(); ok {
		printResult(u.Result)
	}
	return nil
}

func runModels(ctx context.Context, cfg *config.Config) error {
	if cfg.Estimator.GeminiAPIKey == "" {
		return errors.New("GOOGLE_API_KEY or GEMINI_API_KEY environment variable not set")
	}
	models, err := estimator.ListGeminiModels(ctx, cfg.Estimator.GeminiAPIKey)
	if err != nil {
		return err
	}
	fmt.Println("Available Models:")
	for _, m := range models {
		fmt.Printf("- %s (Supported methods: %v)\n", m.Name, m.Methods)
	}
	return nil
}

func runReport(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	dir := fs.String("dir", cfg.Server.OutputDir, "Archive directory")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("report needs an analysis id")
	}

	store := archive.NewStore(*dir)
	rec, err := store.Load(fs.Arg(0))
	if err != nil {
		return err
	}

	reportPath := filepath.Join(store.Dir(), rec.ID, archive.ReportFile)
	f, err := os.Create(reportPath)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()
	if err := archive.RenderReport(f, rec); err != nil {
		return err
	}
	fmt.Printf("Report saved to: %s\n", reportPath)
	return nil
}

func runScene(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("scene", flag.ExitOnError)
	dir := fs.String("dir", cfg.Server.OutputDir, "Archive directory")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("scene needs an analysis id")
	}

	svc := analysis.NewService(nil, archive.NewStore(*dir), pose.DefaultScoreOptions(), "")
	scene, err := svc.Scene(fs.Arg(0))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(scene)
}
