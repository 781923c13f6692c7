package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/csv-upload-client/internal/client"
	"github.com/cuongbtq/csv-upload-client/internal/config"
	"github.com/cuongbtq/csv-upload-client/internal/domain"
	"github.com/cuongbtq/csv-upload-client/internal/notify"
	"github.com/cuongbtq/csv-upload-client/internal/poller"
	"github.com/cuongbtq/csv-upload-client/internal/ui"
	"github.com/cuongbtq/csv-upload-client/internal/workflow"
	"github.com/cuongbtq/csv-upload-client/shared/logger"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("UPLOAD_CLIENT_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/upload-client/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	filePath := flag.String("file", "", "CSV file to upload")
	fileID := flag.String("file-id", "", "Track an already uploaded file instead of uploading")
	baseURL := flag.String("server", "", "Override client.base_url")
	flag.Parse()

	if *filePath == "" && flag.NArg() > 0 {
		*filePath = flag.Arg(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *baseURL != "" {
		cfg.Client.BaseURL = *baseURL
	}

	if err := cfg.ValidateClientConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting upload client",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("server", cfg.Client.BaseURL),
	)

	apiClient, err := client.New(&client.Config{
		BaseURL:    cfg.Client.BaseURL,
		UploadPath: cfg.Client.UploadPath,
		Timeout:    cfg.Client.RequestTimeout,
		Logger:     appLogger.Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize client: %w", err)
	}

	view := ui.NewTerminalView(os.Stdout, notify.Timings{
		Min:          cfg.Notifications.MinDisplay,
		PerCharacter: cfg.Notifications.DisplayPerCharacter,
		Fade:         cfg.Notifications.FadeOut,
	}, notify.RealScheduler)
	defer view.Close()

	wf := workflow.New(&workflow.Config{
		Server:   apiClient,
		View:     view,
		Prompter: ui.NewLinePrompter(os.Stdin, os.Stdout),
		Schedule: poller.Schedule{
			Base:        cfg.Polling.BaseInterval,
			Increment:   cfg.Polling.IntervalIncrement,
			MaxAttempts: cfg.Polling.MaxAttempts,
		},
		Logger: appLogger.Logger,
		Observer: func(a poller.Attempt) {
			appLogger.Debug("Poll attempt",
				slog.String("file_id", a.FileID),
				slog.Int("attempt", a.Number),
				slog.Duration("interval", a.Interval),
				slog.String("status", a.Status),
			)
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	view.SetPhase(ui.PhaseIdle)

	start := time.Now()
	var res *workflow.Result
	switch {
	case *fileID != "":
		res, err = wf.Track(ctx, *fileID)
	case *filePath != "":
		view.ShowFile(*filePath)
		res, err = wf.Submit(ctx, *filePath)
	default:
		flag.Usage()
		return domain.ErrNoFile
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			appLogger.Info("Interrupted")
		}
		return err
	}

	appLogger.Info("Upload workflow complete",
		slog.String("file_id", res.FileID),
		slog.String("state", string(res.State)),
		slog.Int("attempts", res.Attempts),
		slog.Bool("retried", res.Retried),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	output := cfg.Output
	if output == "" || output == "stdout" {
		// stdout belongs to the terminal view
		output = "stderr"
	}

	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.TimeOnly,
	})
}
