package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config aggregates runtime configuration for the support agent.
type Config struct {
	PostgresDSN string
	HTTPAddr    string

	// KnowledgeDir is the root of the document tree ingested into the
	// retrieval index.
	KnowledgeDir string
	ChunkSize    int
	RetrieveTopK int

	// Channel is recorded on tickets created through this process.
	Channel string

	LLM        LLMConfig
	Embeddings EmbeddingsConfig

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string

	LogLevel string
}

type LLMConfig struct {
	Provider string
	Model    string
}

type EmbeddingsConfig struct {
	Provider  string
	Model     string
	Dimension int
}

// Load reads configuration from the environment, applying defaults. A
// .env file in the working directory is honored when present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		PostgresDSN:  getEnv("POSTGRES_DSN", "postgres://localhost:5432/support-agent?sslmode=disable"),
		HTTPAddr:     getEnv("HTTP_ADDR", "0.0.0.0:8080"),
		KnowledgeDir: getEnv("KNOWLEDGE_DIR", "knowledge_base"),
		ChunkSize:    getEnvAsInt("CHUNK_SIZE", 800),
		RetrieveTopK: getEnvAsInt("RETRIEVE_TOP_K", 4),
		Channel:      getEnv("TICKET_CHANNEL", "api"),
		LLM: LLMConfig{
			Provider: getEnv("LLM_PROVIDER", ProviderOpenAI),
			Model:    getEnv("LLM_MODEL", "gpt-4.1-mini"),
		},
		Embeddings: EmbeddingsConfig{
			Provider:  getEnv("EMBEDDINGS_PROVIDER", ProviderOpenAI),
			Model:     getEnv("EMBEDDINGS_MODEL", "text-embedding-3-small"),
			Dimension: getEnvAsInt("EMBEDDINGS_DIMENSION", 1536),
		},
		OllamaHost:    getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
