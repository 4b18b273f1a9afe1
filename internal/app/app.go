// Package app wires configuration into the assistant's collaborators.
package app

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	"github.com/gramudyog/assist/internal/assistant"
	"github.com/gramudyog/assist/internal/backend"
	"github.com/gramudyog/assist/internal/config"
	"github.com/gramudyog/assist/internal/events"
	"github.com/gramudyog/assist/internal/infra/storage"
	"github.com/gramudyog/assist/internal/logger"
	"github.com/gramudyog/assist/internal/speech"
	"github.com/gramudyog/assist/internal/transcript"
	"github.com/gramudyog/assist/internal/translate"
	"github.com/gramudyog/assist/internal/tts"
)

type App struct {
	Config      config.Config
	Log         *logger.Logger
	Backend     *backend.Client
	Chunker     *translate.Chunker
	Recognizer  speech.Recognizer
	Synthesizer speech.Synthesizer
	Events      *events.Generator

	closers []io.Closer
}

// Build constructs every collaborator named by cfg. Optional integrations that are
// misconfigured are logged and left out rather than failing startup.
func Build(ctx context.Context, cfg config.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	a := &App{Config: cfg, Log: log}
	a.Backend = backend.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout)

	chunkOpts := []translate.Option{translate.WithChunkSize(cfg.ChunkSize), translate.WithLogger(log)}
	if cache := a.redisCache(ctx); cache != nil {
		chunkOpts = append(chunkOpts, translate.WithCache(cache))
	}
	a.Chunker = translate.NewChunker(a.Backend, chunkOpts...)

	a.Recognizer = a.recognizer()
	syn, err := a.synthesizer()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Synthesizer = syn

	var archive events.Archiver
	if cfg.SupabaseURL != "" {
		st, err := storage.New(storage.Config{URL: cfg.SupabaseURL, ServiceRoleKey: cfg.SupabaseKey, Bucket: cfg.SupabaseBucket})
		if err != nil {
			log.Warn("voice prompt archive disabled", "error", err)
		} else {
			archive = st
		}
	}
	a.Events = events.NewGenerator(a.Backend, archive, log)
	return a, nil
}

func (a *App) redisCache(ctx context.Context) translate.Cache {
	if a.Config.RedisAddr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: a.Config.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		a.Log.Warn("translation cache disabled: redis unreachable", "addr", a.Config.RedisAddr, "error", err)
		_ = rdb.Close()
		return nil
	}
	a.closers = append(a.closers, rdb)
	a.Log.Info("translation cache enabled", "addr", a.Config.RedisAddr, "ttl", a.Config.TranslationCacheTTL)
	return translate.NewRedisCache(rdb, a.Config.TranslationCacheTTL)
}

func (a *App) audioSource() transcript.Source {
	switch {
	case len(a.Config.AudioInCommand) > 0:
		return transcript.CommandSource{Name: a.Config.AudioInCommand[0], Args: a.Config.AudioInCommand[1:]}
	case a.Config.AudioInFile != "":
		return transcript.FileSource{Path: a.Config.AudioInFile}
	}
	return nil
}

// recognizer returns nil when voice input cannot work, which surfaces as ErrUnsupported.
func (a *App) recognizer() speech.Recognizer {
	src := a.audioSource()
	if src == nil {
		return nil
	}
	switch a.Config.STTProvider {
	case "assemblyai":
		if a.Config.AssemblyAIKey == "" {
			return nil
		}
		return transcript.NewAssemblyAI(a.Config.AssemblyAIKey, src, a.Log)
	case "whisper":
		if a.Config.OpenAIKey == "" {
			return nil
		}
		return transcript.NewWhisper(openai.NewClient(a.Config.OpenAIKey), a.Config.OpenAISTTModel, src)
	default:
		return transcript.NewBackend(a.Backend, src)
	}
}

func (a *App) synthesizer() (speech.Synthesizer, error) {
	var sink io.Writer
	if a.Config.AudioOut != "" {
		fs, err := tts.OpenFileSink(a.Config.AudioOut)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, fs)
		sink = fs
	}
	switch a.Config.TTSProvider {
	case "deepgram":
		if a.Config.DeepgramKey == "" {
			return nil, nil
		}
		return tts.NewDeepgram(a.Config.DeepgramKey, a.Config.DeepgramModel, sink, a.Log), nil
	case "elevenlabs":
		if a.Config.ElevenLabsKey == "" || a.Config.ElevenLabsVoice == "" {
			return nil, nil
		}
		return tts.NewElevenLabs(a.Config.ElevenLabsKey, a.Config.ElevenLabsVoice, sink, a.Log), nil
	}
	return nil, nil
}

// NewSession opens an assistant session with the configured defaults; opts override them.
func (a *App) NewSession(opts ...assistant.Option) *assistant.Session {
	voice := speech.NewAdapter(a.Recognizer, a.Synthesizer, a.Log)
	base := []assistant.Option{
		assistant.WithLanguage(a.Config.Language),
		assistant.WithTTS(a.Config.TTSEnabled),
		assistant.WithTranslator(a.Chunker),
		assistant.WithVoice(voice),
		assistant.WithAPIBase(a.Config.APIBaseURL),
		assistant.WithLogger(a.Log),
	}
	return assistant.NewSession(a.Backend, append(base, opts...)...)
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
