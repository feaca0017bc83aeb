// Package main provides the remote control CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/vidbox/internal/api/connect"
)

var (
	app     = kingpin.New("vidbox-remotecli", "vidbox remote control client")
	server  = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token   = app.Flag("token", "Remote token (or set VIDBOX_REMOTE_TOKEN env)").Envar("VIDBOX_REMOTE_TOKEN").String()
	timeout = app.Flag("timeout", "Call timeout").Default("10s").Duration()

	// status command
	statusCmd = app.Command("status", "Show the player status").Default()

	// select command
	selectCmd   = app.Command("select", "Play a video of the playlist")
	selectIndex = selectCmd.Arg("index", "Playlist index (0-based)").Required().Int()

	// play / pause commands
	playCmd  = app.Command("play", "Resume playback")
	pauseCmd = app.Command("pause", "Pause playback")

	// lifecycle command
	lifecycleCmd   = app.Command("lifecycle", "Send a screen lifecycle event")
	lifecycleEvent = lifecycleCmd.Arg("event", "Lifecycle event").Required().Enum(
		apiconnect.EventStart,
		apiconnect.EventStop,
		apiconnect.EventPause,
		apiconnect.EventResume,
		apiconnect.EventRecreate,
		apiconnect.EventForeground,
		apiconnect.EventBackground,
	)

	// watch command
	watchCmd = app.Command("watch", "Print notifications until interrupted")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := apiconnect.NewClient(http.DefaultClient, *server, *token)

	if command == watchCmd.FullCommand() {
		watch(client)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var (
		st  map[string]any
		err error
	)
	switch command {
	case selectCmd.FullCommand():
		st, err = client.Select(ctx, *selectIndex)
	case playCmd.FullCommand():
		st, err = client.Play(ctx)
	case pauseCmd.FullCommand():
		st, err = client.Pause(ctx)
	case lifecycleCmd.FullCommand():
		st, err = client.Lifecycle(ctx, *lifecycleEvent)
	default:
		st, err = client.Status(ctx)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
	printStatus(st)
}

func printStatus(st map[string]any) {
	fmt.Println("\n=== PLAYER STATUS ===")
	fmt.Printf("Screen: %v\n", st["phase"])
	fmt.Printf("Session ID: %v\n", st["session_id"])
	fmt.Printf("State: %v\n", st["state"])
	fmt.Printf("Playing: %v\n", st["playing"])
	if title, _ := st["title"].(string); title != "" {
		fmt.Printf("Title: %s\n", title)
	}
	fmt.Printf("Position: %s\n", millis(st["position_ms"]))
	fmt.Printf("Saved Position: %s\n", millis(st["saved_position_ms"]))
	fmt.Printf("Queue Length: %v\n", st["queue_length"])

	labels, _ := st["labels"].([]any)
	if len(labels) == 0 {
		fmt.Println("\nNo videos")
	} else {
		fmt.Println("\nPlaylist:")
		for i, label := range labels {
			fmt.Printf("  %3d  %v\n", i, label)
		}
	}
	fmt.Println()
}

func watch(client *apiconnect.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := client.Subscribe(ctx, func(msg map[string]any) bool {
		switch msg["type"] {
		case apiconnect.NotificationTypeInitialState:
			if st, ok := msg["status"].(map[string]any); ok {
				printStatus(st)
			}
		case apiconnect.NotificationTypeToast:
			fmt.Printf("[%v] %v\n", msg["sequence_no"], msg["message"])
		}
		return true
	})
	if err != nil && ctx.Err() == nil {
		fmt.Printf("Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func millis(v any) string {
	f, _ := v.(float64)
	return (time.Duration(f) * time.Millisecond).String()
}
