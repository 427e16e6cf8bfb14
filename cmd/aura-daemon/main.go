package main

import (
	"context"
	log "log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	cli "github.com/spf13/pflag"

	"aura/internal/app"
	"aura/internal/audio"
	"aura/internal/bus"
	"aura/internal/config"
	"aura/internal/ipc"
	"aura/internal/storage"
	"aura/internal/summarize"
	"aura/internal/transcribe"
	"aura/internal/ui"
	"aura/pkg/stt"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	cfgFile := cli.StringP("config", "c", "aura.yaml", "Config file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	device := cli.StringP("device", "d", "", "Capture device, overrides audio.loopback_device")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      logLevelMap[*logLevel],
		TimeFormat: time.TimeOnly,
	})))

	log.Info("Booting up")

	godotenv.Load(*envFile)

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		log.Error("Failed to load config", "path", *cfgFile, "err", err)
		os.Exit(1)
	}
	if *device != "" {
		cfg.Audio.LoopbackDevice = *device
	}
	log.Debug("Loaded config", "engine", cfg.LLM.Engine, "embedding", cfg.Embedding.Backend, "storage", cfg.Storage.Backend)

	client, err := buildLLM(cfg)
	if err != nil {
		log.Error("Failed to set up language model", "engine", cfg.LLM.Engine, "err", err)
		os.Exit(1)
	}
	log.Debug("Loaded language model", "engine", cfg.LLM.Engine)

	embedder := buildEmbedder(cfg)

	host := audio.NewHost(audio.HostConfig{
		BlockFrames: cfg.Audio.BlockFrames,
		QueueBlocks: cfg.Audio.QueueBlocks,
		MaxChannels: cfg.Audio.MaxChannels,
	})
	if err := host.Init(); err != nil {
		log.Error("Failed to init audio", "err", err)
		os.Exit(1)
	}
	defer host.Close()
	log.Debug("Loaded audio host")

	var vad *stt.VAD
	if !cfg.STT.DisableVADFilter {
		vad, err = stt.NewVAD(cfg.STT.VADMode, cfg.MinSilence())
		if err != nil {
			log.Error("Failed to init vad", "err", err)
			os.Exit(1)
		}
	}
	whisper, err := stt.NewWhisper(cfg.STT.ModelPath, stt.Options{
		Language: cfg.STT.Language,
		Threads:  cfg.STT.Threads,
		BeamSize: cfg.STT.BeamSize,
	}, vad)
	if err != nil {
		log.Error("Failed to init whisper", "model", cfg.STT.ModelPath, "err", err)
		os.Exit(1)
	}
	defer whisper.Close()
	log.Debug("Loaded whisper", "model", cfg.STT.ModelPath)

	store, err := storage.Open(cfg.Storage)
	if err != nil {
		log.Error("Failed to open storage", "backend", cfg.Storage.Backend, "err", err)
		os.Exit(1)
	}
	defer store.Close()

	panels := ui.NewPanels()
	handlers := []ui.Handler{ui.LogHandler{}, panels}
	if cfg.BusURL != "" {
		pub, err := bus.Dial(cfg.BusURL, "aura-daemon", time.Second, 5*time.Second)
		if err != nil {
			log.Warn("Bus unavailable, events stay local", "url", cfg.BusURL, "err", err)
		} else {
			defer pub.Close()
			handlers = append(handlers, pub)
		}
	}
	dispatcher := ui.NewDispatcher(512, handlers...)
	go dispatcher.Run()

	ctl := app.New(app.Deps{
		Engine:   whisper,
		LLM:      client,
		Embedder: embedder,
		Sink:     dispatcher,
		Storage:  store,
		Opener:   host,
		Devices:  host,
		Notifier: buildNotifier(cfg),
	}, app.Options{
		Device:      cfg.Audio.LoopbackDevice,
		MaxActive:   cfg.Meeting.MaxActive,
		BlockFrames: cfg.Audio.BlockFrames,
		Temperature: cfg.LLM.Temperature,
		Transcribe: transcribe.Config{
			MinChunk: time.Duration(cfg.STT.MinChunkSeconds) * time.Second,
			Poll:     cfg.PollInterval(),
			Timeout:  time.Duration(cfg.STT.TimeoutSeconds) * time.Second,
		},
		Summarize: summarize.Config{
			Interval:    cfg.BatchInterval(),
			TopK:        cfg.Meeting.TopK,
			Temperature: cfg.LLM.Temperature,
		},
	})

	if err := ctl.Load(context.Background()); err != nil {
		log.Error("Failed to load sessions", "err", err)
		os.Exit(1)
	}
	if err := ctl.StartAutosave(cfg.Storage.Autosave); err != nil {
		log.Error("Failed to schedule autosave", "err", err)
		os.Exit(1)
	}

	srv, err := ipc.StartServer(cfg.IPCSocket, control(ctl, panels))
	if err != nil {
		log.Error("Failed ipc server", "socket", cfg.IPCSocket, "err", err)
		os.Exit(1)
	}

	log.Info("Boot up - successful", "socket", srv.Path(), "sessions", len(ctl.List()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("Shutting down")
	srv.Close()

	shutdown, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := ctl.Close(shutdown); err != nil {
		log.Error("Failed to save sessions", "err", err)
	}
	if err := dispatcher.Close(shutdown); err != nil {
		log.Warn("UI events left undelivered", "err", err)
	}
	log.Info("Bye")
}
