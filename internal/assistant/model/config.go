package model

import (
	"path/filepath"
	"time"
)

// ================ Config ================
type LLMConfig struct {
	Provider      string  `envconfig:"LLM_PROVIDER" default:"openai"`
	APIKey        string  `envconfig:"OPENAI_API_KEY"`
	BaseURL       string  `envconfig:"OPENAI_API_BASE"`
	GeminiAPIKey  string  `envconfig:"GEMINI_API_KEY"`
	GeminiBaseURL string  `envconfig:"GEMINI_BASE_URL"`
	ChatModel     string  `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`
	AnswerModel   string  `envconfig:"ANSWER_MODEL" default:"gpt-4.1"`
	Temperature   float32 `envconfig:"CHAT_TEMPERATURE" default:"0.1"`
	MaxTokens     int     `envconfig:"CHAT_MAX_TOKENS" default:"2000"`
}

type EmbeddingConfig struct {
	Model   string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	BaseURL string `envconfig:"EMBEDDING_API_BASE"`
	Timeout int    `envconfig:"EMBEDDING_TIMEOUT" default:"30"`
}

type DataConfig struct {
	Dir string `envconfig:"DATA_DIR" default:"data"`
}

// ContextFile is the community description used by the simple chat mode.
func (d DataConfig) ContextFile() string {
	return filepath.Join(d.Dir, "community_generic_info.txt")
}

// ProfilesDir holds one text file per member profile.
func (d DataConfig) ProfilesDir() string {
	return filepath.Join(d.Dir, "profiles_examples")
}

// VectorDB is the SQLite file holding embedded profile chunks.
func (d DataConfig) VectorDB() string {
	return filepath.Join(d.Dir, "vectors.db")
}

// GraphDB is the SQLite file holding extracted entities and relations.
func (d DataConfig) GraphDB() string {
	return filepath.Join(d.Dir, "graph", "graph.db")
}

// GraphIndexDir holds the Bleve entity and relation indexes.
func (d DataConfig) GraphIndexDir() string {
	return filepath.Join(d.Dir, "graph")
}

type RetrievalConfig struct {
	RAGTopK   int `envconfig:"RAG_TOP_K" default:"3"`
	GraphTopK int `envconfig:"GRAPH_TOP_K" default:"3"`
}

type AgentConfig struct {
	Model        string `envconfig:"AGENT_MODEL" default:"gpt-4o-mini"`
	Instructions string `envconfig:"AGENT_INSTRUCTIONS" default:"You are a helpful assistant for FRC teams."`
	ToolMaxCalls int    `envconfig:"AGENT_TOOL_MAX_CALLS" default:"10"`
}

type TBAConfig struct {
	Key        string  `envconfig:"TBA_KEY"`
	BaseURL    string  `envconfig:"TBA_BASE_URL" default:"https://www.thebluealliance.com/api/v3"`
	RatePerSec float64 `envconfig:"TBA_RATE_PER_SEC" default:"5"`
	Timeout    int     `envconfig:"TBA_TIMEOUT" default:"15"`
}

type SessionConfig struct {
	TTL string `envconfig:"SESSION_TTL" default:"24h"`
}

type ServerConfig struct {
	Addr           string `envconfig:"HTTP_ADDR" default:":8000"`
	RequestTimeout string `envconfig:"REQUEST_TIMEOUT" default:"120s"`
}

// ParseDurationOr parses v, falling back to def when v is empty.
func ParseDurationOr(v string, def time.Duration) (time.Duration, error) {
	if v == "" {
		return def, nil
	}
	return time.ParseDuration(v)
}
