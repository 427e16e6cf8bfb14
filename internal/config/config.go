package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type AudioConfig struct {
	// LoopbackDevice selects the capture device: a portaudio index,
	// "monitor" for the default sink's PulseAudio monitor, or a device name.
	LoopbackDevice string `yaml:"loopback_device"`
	BlockFrames    int    `yaml:"block_frames"`
	QueueBlocks    int    `yaml:"queue_blocks"`
	MaxChannels    int    `yaml:"max_channels"`
}

type STTConfig struct {
	ModelPath        string `yaml:"model_path"`
	Language         string `yaml:"language"`
	BeamSize         int    `yaml:"beam_size"`
	Threads          int    `yaml:"threads"`
	VADMode          int    `yaml:"vad_mode"`
	MinSilenceMs     int    `yaml:"min_silence_ms"`
	MinChunkSeconds  int    `yaml:"min_chunk_seconds"`
	PollMs           int    `yaml:"poll_ms"`
	TimeoutSeconds   int    `yaml:"timeout_seconds"`
	DisableVADFilter bool   `yaml:"disable_vad_filter"`
}

type LLMConfig struct {
	// Engine is "openai_online" or "ollama_offline".
	Engine      string  `yaml:"engine"`
	OpenAIModel string  `yaml:"openai_model"`
	OllamaURL   string  `yaml:"ollama_url"`
	OllamaModel string  `yaml:"ollama_model"`
	Temperature float64 `yaml:"temperature"`
}

type EmbeddingConfig struct {
	// Backend is "hashing", "openai" or "ollama".
	Backend     string `yaml:"backend"`
	Model       string `yaml:"model"`
	OllamaURL   string `yaml:"ollama_url"`
	Dimension   int    `yaml:"dimension"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

type MeetingConfig struct {
	BatchIntervalSeconds int `yaml:"batch_interval_seconds"`
	TopK                 int `yaml:"top_k"`
	MaxActive            int `yaml:"max_active"`
}

type StorageConfig struct {
	// Backend is "json" or "sqlite".
	Backend      string `yaml:"backend"`
	SessionsFile string `yaml:"sessions_file"`
	SQLitePath   string `yaml:"sqlite_path"`
	// Autosave is a cron spec; empty disables periodic saving.
	Autosave string `yaml:"autosave"`
}

type NotifyConfig struct {
	StartSound string `yaml:"start_sound"`
	StopSound  string `yaml:"stop_sound"`
	Desktop    bool   `yaml:"desktop"`
	Speak      bool   `yaml:"speak"`
}

type Config struct {
	IPCSocket string          `yaml:"ipc_socket"`
	BusURL    string          `yaml:"bus_url"`
	Proxy     string          `yaml:"proxy"`
	Audio     AudioConfig     `yaml:"audio"`
	STT       STTConfig       `yaml:"stt"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Meeting   MeetingConfig   `yaml:"meeting"`
	Storage   StorageConfig   `yaml:"storage"`
	Notify    NotifyConfig    `yaml:"notify"`
}

const (
	EngineOpenAI = "openai_online"
	EngineOllama = "ollama_offline"

	StorageJSON   = "json"
	StorageSQLite = "sqlite"
)

func Default() *Config {
	return &Config{
		IPCSocket: "/tmp/aura.sock",
		Audio: AudioConfig{
			LoopbackDevice: "monitor",
			BlockFrames:    8192,
			QueueBlocks:    256,
			MaxChannels:    2,
		},
		STT: STTConfig{
			ModelPath:       "third_party/whisper.cpp/models/ggml-base.en.bin",
			Language:        "en",
			BeamSize:        10,
			VADMode:         2,
			MinSilenceMs:    700,
			MinChunkSeconds: 3,
			PollMs:          500,
			TimeoutSeconds:  60,
		},
		LLM: LLMConfig{
			Engine:      EngineOpenAI,
			OpenAIModel: "gpt-5-nano",
			OllamaURL:   "http://localhost:11434",
			OllamaModel: "llama3.1",
			Temperature: 0.6,
		},
		Embedding: EmbeddingConfig{
			Backend:     "hashing",
			Model:       "text-embedding-3-small",
			OllamaURL:   "http://localhost:11434",
			Dimension:   384,
			TimeoutSecs: 30,
		},
		Meeting: MeetingConfig{
			BatchIntervalSeconds: 15,
			TopK:                 5,
			MaxActive:            1,
		},
		Storage: StorageConfig{
			Backend:      StorageJSON,
			SessionsFile: "sessions.json",
			SQLitePath:   "aura.db",
			Autosave:     "@every 1m",
		},
		Notify: NotifyConfig{
			Desktop: true,
			Speak:   true,
		},
	}
}

// Load reads path on top of the defaults. A missing file yields the defaults.
// AURA_* environment variables override both.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("AURA_LOOPBACK_DEVICE"); v != "" {
		cfg.Audio.LoopbackDevice = v
	}
	if v := os.Getenv("AURA_LLM_ENGINE"); v != "" {
		cfg.LLM.Engine = v
	}
	if v := os.Getenv("AURA_WHISPER_MODEL"); v != "" {
		cfg.STT.ModelPath = v
	}
	if v := os.Getenv("AURA_SESSIONS_FILE"); v != "" {
		cfg.Storage.SessionsFile = v
	}
	if v := os.Getenv("AURA_BUS_URL"); v != "" {
		cfg.BusURL = v
	}
	if v := os.Getenv("AURA_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("AURA_BATCH_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Meeting.BatchIntervalSeconds = n
		}
	}
}

func (c *Config) Validate() error {
	switch c.LLM.Engine {
	case EngineOpenAI, EngineOllama:
	default:
		return fmt.Errorf("unknown llm engine %q", c.LLM.Engine)
	}
	switch c.Embedding.Backend {
	case "hashing", "openai", "ollama":
	default:
		return fmt.Errorf("unknown embedding backend %q", c.Embedding.Backend)
	}
	switch c.Storage.Backend {
	case StorageJSON, StorageSQLite:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Meeting.BatchIntervalSeconds <= 0 {
		return errors.New("meeting.batch_interval_seconds must be positive")
	}
	if c.Meeting.TopK <= 0 {
		return errors.New("meeting.top_k must be positive")
	}
	if c.Meeting.MaxActive <= 0 {
		return errors.New("meeting.max_active must be positive")
	}
	if c.Audio.BlockFrames <= 0 || c.Audio.QueueBlocks <= 0 {
		return errors.New("audio.block_frames and audio.queue_blocks must be positive")
	}
	if c.STT.VADMode < 0 || c.STT.VADMode > 3 {
		return fmt.Errorf("stt.vad_mode %d out of range 0-3", c.STT.VADMode)
	}
	return nil
}

func (c *Config) BatchInterval() time.Duration {
	return time.Duration(c.Meeting.BatchIntervalSeconds) * time.Second
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.STT.PollMs) * time.Millisecond
}

func (c *Config) MinSilence() time.Duration {
	return time.Duration(c.STT.MinSilenceMs) * time.Millisecond
}
