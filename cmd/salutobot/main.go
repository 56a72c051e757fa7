package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/bigbastik/SalutoBot/internal/config"
	"github.com/bigbastik/SalutoBot/internal/irc"
	"github.com/bigbastik/SalutoBot/internal/storage"
)

// Version information - set at build time via ldflags
var (
	version   = "dev"
	buildDate = "unknown"
	gitCommit = "unknown"
)

func main() {
	// Command line flags
	configPath := flag.StringP("config", "c", "./config.yaml", "Path to configuration file")
	showVersion := flag.BoolP("version", "v", false, "Show version information and exit")
	verbose := flag.Bool("verbose", false, "Log every line received from the server")
	history := flag.Int("history", 0, "Print the last N greetings from the journal and exit")
	flag.Parse()

	// Show version and exit
	if *showVersion {
		fmt.Printf("salutobot version %s\n", version)
		fmt.Printf("Built: %s\n", buildDate)
		fmt.Printf("Commit: %s\n", gitCommit)
		os.Exit(0)
	}

	cfg := loadConfig(*configPath)

	if *history > 0 {
		printHistory(cfg, *history)
		return
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	// Write PID file
	if err := writePIDFile(cfg.DataDir); err != nil {
		log.Printf("Warning: could not write PID file: %v", err)
	}

	run(cfg, *verbose)
}

func loadConfig(configPath string) *config.Config {
	// Make config path absolute
	if !filepath.IsAbs(configPath) {
		wd, _ := os.Getwd()
		configPath = filepath.Join(wd, configPath)
	}

	cfg, err := config.Load(configPath)
	if errors.Is(err, config.ErrNotFound) {
		log.Printf("Warning: %s not found, using the example configuration. Create it with your own settings.", configPath)
		cfg, err = config.Example()
	}
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return cfg
}

func printHistory(cfg *config.Config, n int) {
	entries, err := storage.LoadGreetings(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to read greeting journal: %v", err)
	}
	for _, entry := range storage.Last(entries, n) {
		fmt.Println(entry)
	}
}

func writePIDFile(dataDir string) error {
	pid := os.Getpid()
	return os.WriteFile(filepath.Join(dataDir, "pid.txt"), []byte(fmt.Sprintf("%d\n", pid)), 0644)
}

func run(cfg *config.Config, verbose bool) {
	// Signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink := &irc.LogSink{Logger: log.Default(), Verbose: verbose}
	session := irc.NewSession(irc.OptionsFromConfig(cfg), irc.NewDialer(cfg), sink)

	var journal *storage.Journal
	if cfg.Journal {
		var err error
		journal, err = storage.OpenJournal(cfg.DataDir)
		if err != nil {
			log.Printf("Warning: greeting journal disabled: %v", err)
		} else {
			session.OnGreet = func(nick string) {
				journal.Record(storage.FormatGreeting(time.Now(), nick))
			}
		}
	}

	log.Printf("salutobot %s starting, target %s", version, cfg.Address())
	if err := session.Connect(ctx); err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}

	select {
	case <-ctx.Done():
		log.Println("Received shutdown signal, disconnecting...")
	case <-session.Done():
		log.Println("Session ended")
	}

	if err := session.Stop(); err != nil {
		log.Printf("Error closing connection: %v", err)
	}
	if err := session.Wait(); err != nil {
		log.Printf("Session error: %v", err)
	}

	// The send loop has exited, so no more greetings can be recorded.
	if journal != nil {
		if err := journal.Close(); err != nil {
			log.Printf("Error closing greeting journal: %v", err)
		}
	}
}
