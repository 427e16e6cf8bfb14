package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"aura/internal/config"
	"aura/internal/embed"
	"aura/internal/llm"
	"aura/internal/notify"
	"aura/internal/proxy"
	"aura/internal/tts"
)

func openAIClient(cfg *config.Config) (openai.Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return openai.Client{}, fmt.Errorf("OPENAI_API_KEY not set")
	}

	httpClient, err := proxy.NewClient(cfg.Proxy, proxy.DefaultTimeout)
	if err != nil {
		return openai.Client{}, fmt.Errorf("dial socks proxy: %w", err)
	}

	return openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
	), nil
}

func buildLLM(cfg *config.Config) (llm.Client, error) {
	switch cfg.LLM.Engine {
	case config.EngineOllama:
		return llm.NewOllama(cfg.LLM.OllamaURL, cfg.LLM.OllamaModel, &http.Client{}), nil
	default:
		client, err := openAIClient(cfg)
		if err != nil {
			return nil, err
		}
		return llm.NewOpenAI(client, cfg.LLM.OpenAIModel), nil
	}
}

// buildEmbedder defers model setup to the first chunk so boot stays fast.
func buildEmbedder(cfg *config.Config) *embed.Lazy {
	ec := cfg.Embedding
	return embed.NewLazy(ec.Dimension, func() (embed.Provider, error) {
		switch ec.Backend {
		case "openai":
			client, err := openAIClient(cfg)
			if err != nil {
				return nil, err
			}
			return embed.NewOpenAI(client, ec.Model, ec.Dimension), nil
		case "ollama":
			return embed.NewOllama(ec.OllamaURL, ec.Model, ec.Dimension, time.Duration(ec.TimeoutSecs)*time.Second), nil
		default:
			return embed.NewHashing(ec.Dimension), nil
		}
	})
}

func buildNotifier(cfg *config.Config) notify.Notifier {
	n := notify.Multi{notify.Sound{Start: cfg.Notify.StartSound, Stop: cfg.Notify.StopSound}}
	if cfg.Notify.Desktop {
		n = append(n, notify.NewDesktop("aura"))
	}
	if cfg.Notify.Speak {
		n = append(n, tts.Announcer{Lang: cfg.STT.Language})
	}
	return notify.Async(n)
}
