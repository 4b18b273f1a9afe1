package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress string
	APIBaseURL  string
	Language    string
	TTSEnabled  bool
	ChunkSize   int
	HTTPTimeout time.Duration
	LogMode     string

	// Translation cache; empty RedisAddr disables it.
	RedisAddr           string
	TranslationCacheTTL time.Duration

	STTProvider     string
	AssemblyAIKey   string
	OpenAIKey       string
	OpenAISTTModel  string
	TTSProvider     string
	DeepgramKey     string
	DeepgramModel   string
	ElevenLabsKey   string
	ElevenLabsVoice string
	AudioOut        string

	// Recognizer audio comes from AudioInCommand's stdout when set, else AudioInFile.
	AudioInCommand []string
	AudioInFile    string

	AllowedOrigins []string
	SupabaseURL    string
	SupabaseKey    string
	SupabaseBucket string
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded, using process environment")
	}

	cfg := Config{
		HTTPAddress:         getEnvDefault("HTTP_ADDRESS", ":8080"),
		APIBaseURL:          strings.TrimRight(getEnvDefault("API_BASE_URL", "http://localhost:8000"), "/"),
		Language:            strings.ToLower(getEnvDefault("ASSISTANT_LANG", "en")),
		TTSEnabled:          getEnvBoolDefault("TTS_ENABLED", true),
		ChunkSize:           getEnvIntDefault("TRANSLATE_CHUNK_SIZE", 400),
		HTTPTimeout:         time.Duration(getEnvIntDefault("HTTP_TIMEOUT_SECONDS", 30)) * time.Second,
		LogMode:             getEnvDefault("LOG_MODE", "dev"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		TranslationCacheTTL: time.Duration(getEnvIntDefault("TRANSLATION_CACHE_TTL_MINUTES", 1440)) * time.Minute,
		STTProvider:         strings.ToLower(getEnvDefault("STT_PROVIDER", "backend")),
		AssemblyAIKey:       os.Getenv("ASSEMBLYAI_API_KEY"),
		OpenAIKey:           os.Getenv("OPENAI_API_KEY"),
		OpenAISTTModel:      getEnvDefault("OPENAI_STT_MODEL", "whisper-1"),
		TTSProvider:         strings.ToLower(getEnvDefault("TTS_PROVIDER", "deepgram")),
		DeepgramKey:         os.Getenv("DEEPGRAM_API_KEY"),
		DeepgramModel:       os.Getenv("DEEPGRAM_MODEL"),
		ElevenLabsKey:       os.Getenv("ELEVENLABS_API_KEY"),
		ElevenLabsVoice:     os.Getenv("ELEVENLABS_VOICE_ID"),
		AudioOut:            os.Getenv("AUDIO_OUT"),
		AudioInCommand:      strings.Fields(os.Getenv("AUDIO_IN_CMD")),
		AudioInFile:         os.Getenv("AUDIO_IN_FILE"),
		AllowedOrigins:      getEnvListDefault("ALLOWED_ORIGINS", []string{"*"}),
		SupabaseURL:         os.Getenv("SUPABASE_URL"),
		SupabaseKey:         os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		SupabaseBucket:      getEnvDefault("SUPABASE_BUCKET", "voice-prompts"),
	}

	if cfg.ChunkSize <= 0 {
		log.Printf("Warning: TRANSLATE_CHUNK_SIZE=%d is invalid - using 400", cfg.ChunkSize)
		cfg.ChunkSize = 400
	}
	switch cfg.STTProvider {
	case "assemblyai":
		if cfg.AssemblyAIKey == "" {
			log.Println("Warning: ASSEMBLYAI_API_KEY not set - voice input will not work")
		}
	case "whisper":
		if cfg.OpenAIKey == "" {
			log.Println("Warning: OPENAI_API_KEY not set - voice input will not work")
		}
	}
	if len(cfg.AudioInCommand) == 0 && cfg.AudioInFile == "" {
		log.Println("Warning: neither AUDIO_IN_CMD nor AUDIO_IN_FILE set - voice input will not work")
	}
	switch cfg.TTSProvider {
	case "deepgram":
		if cfg.DeepgramKey == "" {
			log.Println("Warning: DEEPGRAM_API_KEY not set - responses will not be read aloud")
		}
	case "elevenlabs":
		if cfg.ElevenLabsKey == "" || cfg.ElevenLabsVoice == "" {
			log.Println("Warning: ELEVENLABS_API_KEY or ELEVENLABS_VOICE_ID not set - responses will not be read aloud")
		}
	}

	log.Printf("config: HTTP_ADDRESS=%s API_BASE_URL=%s ASSISTANT_LANG=%s", cfg.HTTPAddress, cfg.APIBaseURL, cfg.Language)
	return cfg
}

func getEnvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvIntDefault(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvListDefault(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			s := strings.TrimSpace(p)
			if s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}

func getEnvBoolDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}
