package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"eqwatcher/watcher"

	"go.uber.org/zap"
)

func main() {
	var configPath string
	var dbPath string
	var logsDir string
	var baseDir string
	var sheetsDir string
	var debug bool
	var localCSV bool
	var webhookURL string
	var webhookSecret string
	var scanInterval time.Duration
	var once bool

	flag.StringVar(&configPath, "config", "", "YAML config file path.")
	flag.StringVar(&dbPath, "db", "eqwatcher.db", "SQLite state database path.")
	flag.StringVar(&logsDir, "logs-dir", "", "Directory containing eqlog_*.txt files.")
	flag.StringVar(&baseDir, "base-dir", "", "Directory containing *-Inventory.txt dumps (optional).")
	flag.StringVar(&sheetsDir, "sheets-dir", "", "Directory for local CSV exports.")
	flag.BoolVar(&debug, "debug", false, "Enable debug logs.")
	flag.BoolVar(&localCSV, "local-csv", true, "Write local CSV exports each cycle.")
	flag.StringVar(&webhookURL, "webhook-url", "", "Remote sheet webhook URL (optional).")
	flag.StringVar(&webhookSecret, "webhook-secret", "", "Shared secret included in webhook payloads.")
	flag.DurationVar(&scanInterval, "scan-interval", 0, "Polling interval (e.g. 60s). Overrides config.")
	flag.BoolVar(&once, "once", false, "Run one scan cycle and exit.")
	flag.Parse()

	visited := map[string]bool{}
	flag.CommandLine.Visit(func(f *flag.Flag) {
		visited[f.Name] = true
	})

	// Base config from file (optional)
	fileCfg := &watcher.FileConfig{}
	if configPath != "" {
		cfg, err := watcher.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		fileCfg = cfg
	}

	// Merge config + CLI overrides
	finalDB := fileCfg.DB
	if finalDB == "" {
		finalDB = "eqwatcher.db"
	}
	if visited["db"] {
		finalDB = dbPath
	}
	finalLogsDir := fileCfg.LogsDir
	if visited["logs-dir"] {
		finalLogsDir = logsDir
	}
	finalBaseDir := fileCfg.BaseDir
	if visited["base-dir"] {
		finalBaseDir = baseDir
	}
	finalSheetsDir := fileCfg.SheetsDir
	if visited["sheets-dir"] {
		finalSheetsDir = sheetsDir
	}
	finalDebug := fileCfg.Debug
	if visited["debug"] {
		finalDebug = debug
	}
	finalLocalCSV := fileCfg.LocalCSV
	if visited["local-csv"] {
		finalLocalCSV = &localCSV
	}
	finalWebhookURL := fileCfg.WebhookURL
	if visited["webhook-url"] {
		finalWebhookURL = webhookURL
	}
	finalWebhookSecret := fileCfg.WebhookSecret
	if visited["webhook-secret"] {
		finalWebhookSecret = webhookSecret
	}
	finalInterval := fileCfg.ScanInterval()
	if visited["scan-interval"] && scanInterval > 0 {
		finalInterval = scanInterval
	}

	if strings.TrimSpace(finalLogsDir) == "" {
		fmt.Fprintln(os.Stderr, "missing logs directory (use --logs-dir or config logs_dir)")
		os.Exit(2)
	}

	zlog, err := newLogger(finalDebug)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync()
	sugar := zlog.Sugar()

	runner, err := watcher.NewRunner(watcher.RunnerConfig{
		DBPath:        finalDB,
		LogsDir:       finalLogsDir,
		BaseDir:       finalBaseDir,
		SheetsDir:     finalSheetsDir,
		LocalCSV:      finalLocalCSV,
		WebhookURL:    finalWebhookURL,
		WebhookSecret: finalWebhookSecret,
		Settings:      fileCfg.Settings,
	}, sugar)
	if err != nil {
		sugar.Fatalw("init runner", "err", err)
	}
	defer runner.Close()

	if once {
		if err := runner.RunOnce(); err != nil {
			sugar.Fatalw("run once", "err", err)
		}
		return
	}

	sugar.Infow("watching", "logsDir", finalLogsDir, "interval", finalInterval)
	for {
		if err := runner.RunOnce(); err != nil {
			sugar.Errorw("scan cycle failed", "err", err)
		}
		time.Sleep(finalInterval)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
