// Command engine is the process entry point for the safety-monitoring
// server: it loads the process-wide environment configuration and every
// persisted stream configuration, builds a Stream Registry (spec component
// C9), starts every stream marked is_active, and blocks until shutdown.
//
// The HTTP/WebSocket command surface that normally drives start/stop/toggle
// commands at runtime is an external collaborator (spec section 1) and is
// not implemented here; this entry point only covers process lifecycle.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/isafeguard/engine/internal/config"
	"github.com/isafeguard/engine/pkg/capture"
	"github.com/isafeguard/engine/pkg/events"
	"github.com/isafeguard/engine/pkg/frame"
	"github.com/isafeguard/engine/pkg/recorder"
	"github.com/isafeguard/engine/pkg/sink"
	"github.com/isafeguard/engine/pkg/stream"
)

var version = "0.1.0"

// outputFPS is the framerate hint passed to the output sink's muxer; the
// engine has no fixed capture framerate (RTSP sources vary), so this is a
// nominal value for the RTMP container only, not a gate on processing.
const outputFPS = 30.0

func main() {
	envPath := flag.String("env-config", "", "Path to TOML environment configuration file")
	streamDir := flag.String("stream-dir", "./streams", "Directory of persisted stream configuration TOML documents")
	showVersion := flag.Bool("version", false, "Show version information")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	previewStream := flag.String("preview", "", "Open a debug preview window for one stream_id")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "engine - multi-stream video safety-monitoring server\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("engine version %s\n", version)
		os.Exit(0)
	}

	env, err := config.LoadEnv(*envPath)
	if err != nil {
		log.Fatalf("Failed to load environment config: %v", err)
	}

	if *verbose {
		log.Printf("Environment: frame=%dx%d queue=%d, rtmp=%s static_dir=%s",
			env.Frame.Width, env.Frame.Height, env.Frame.MaxQueueSize,
			env.Network.RTMPServer, env.Network.StaticDir)
	}

	bus := events.NewBus()
	store := config.NewStreamStore(*streamDir)

	onLog := func(msg string) { log.Print(msg) }

	depsFor := func(cfg config.StreamConfig) stream.Dependencies {
		unsafeDir := filepath.Join(env.Network.StaticDir, cfg.StreamID, "unsafe")
		if err := os.MkdirAll(unsafeDir, 0o755); err != nil {
			log.Printf("stream %s: could not create clip output dir: %v", cfg.StreamID, err)
		}

		return stream.Dependencies{
			CaptureFactory:    func() capture.Source { return capture.NewOpenCVSource(env.Frame.Width, env.Frame.Height) },
			Detector:          frame.NullDetector{},
			ClipWriterFactory: recorder.NewGoCVClipWriterFactory(unsafeDir, string(cfg.ModelName)),
			EventStore:        recorder.NewLogEventStore(onLog),
			Notifier:          recorder.NewLogNotifier(onLog),
			SinkFactory: func(streamID string) sink.CommandFactory {
				return sink.FFmpegRTMPFactory(env.Network.RTMPServer, streamID, env.Frame.Width, env.Frame.Height, outputFPS)
			},
			Bus: bus,
		}
	}

	registry := stream.NewRegistry(env, depsFor, store, onLog)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := registry.StartAllPersisted(ctx); err != nil {
		log.Fatalf("Failed to start persisted streams: %v", err)
	}
	log.Printf("Started streams: %v", registry.List())

	if *previewStream != "" {
		if eng, ok := registry.Get(*previewStream); ok {
			go runPreview(ctx, eng, *previewStream)
		} else {
			log.Printf("preview: stream %s is not registered, skipping debug window", *previewStream)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("Received signal %v, shutting down...", sig)

	cancel()
	registry.StopAll()
}

// runPreview polls one stream's latest annotated frame into a DebugPreview
// window until ctx is cancelled. Polling instead of subscribing keeps the
// debug path entirely decoupled from the processing loop's broadcast
// channel (spec section 5: a stalled consumer must never affect capture).
func runPreview(ctx context.Context, eng *stream.Engine, streamID string) {
	win := stream.NewDebugPreview("engine preview: " + streamID)
	defer win.Close()

	ticker := time.NewTicker(33 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if data, w, h, ok := eng.LatestRawFrame(); ok {
				win.Show(data, w, h)
			}
		}
	}
}
