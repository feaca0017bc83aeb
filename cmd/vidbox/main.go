// Package main provides the vidbox entry point.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vidbox/internal/infra/config"
	"github.com/osa030/vidbox/internal/infra/logger"
)

var (
	app        = kingpin.New("vidbox", "vidbox local video player")
	configPath = app.Flag("config", "Path to config file").Default("config/vidbox.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout, discarded in play mode)").String()

	// play command (default)
	playCmd    = app.Command("play", "Open the player in the terminal (default)").Default()
	playRemote = playCmd.Flag("remote", "Also serve the remote control API").Bool()

	// serve command
	serveCmd = app.Command("serve", "Run the player headless, controlled through the remote API")

	// scan command
	scanCmd      = app.Command("scan", "List the videos found in the media roots and exit")
	scanMetadata = scanCmd.Flag("metadata", "Read the title of each video").Bool()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	level := "info"
	if *verbose {
		level = "debug"
	}
	loggerConfig := logger.Config{Output: "stdout", Level: level}
	if *logfile != "" {
		loggerConfig.Output = *logfile
		loggerConfig.File = *logfile
	}
	if command == playCmd.FullCommand() {
		// The terminal belongs to the UI
		loggerConfig = logger.ForTerminalUI(level, *logfile)
	}
	closer, err := logger.Init(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	switch command {
	case scanCmd.FullCommand():
		err = scan(cfg, *scanMetadata)
	case serveCmd.FullCommand():
		err = serve(cfg)
	default:
		err = play(cfg, *playRemote)
	}
	if err != nil {
		zlog.Error().Msgf("vidbox: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		closer.Close()
		os.Exit(1)
	}
}
