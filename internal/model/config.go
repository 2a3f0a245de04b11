package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Config is the complete corpagent configuration.
// Field tags serve viper (mapstructure), config init/show (yaml) and validation.
type Config struct {
	Corpus       CorpusConfig       `yaml:"corpus" mapstructure:"corpus"`
	Embedder     EmbedderConfig     `yaml:"embedder" mapstructure:"embedder"`
	Index        IndexConfig        `yaml:"index" mapstructure:"index"`
	Retrieval    RetrievalConfig    `yaml:"retrieval" mapstructure:"retrieval"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Checklist    ChecklistConfig    `yaml:"checklist" mapstructure:"checklist"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
}

// CorpusConfig controls the offline corpus build
type CorpusConfig struct {
	MetadataFile string `yaml:"metadata_file" mapstructure:"metadata_file"`
	ChunkSize    int    `yaml:"chunk_size" mapstructure:"chunk_size" validate:"gt=0"`
	ChunkOverlap int    `yaml:"chunk_overlap" mapstructure:"chunk_overlap" validate:"gte=0,ltfield=ChunkSize"`
}

// EmbedderConfig selects the embedding backend
type EmbedderConfig struct {
	Provider       string `yaml:"provider" mapstructure:"provider" validate:"oneof=hashing openai ollama"`
	Model          string `yaml:"model" mapstructure:"model"`
	BaseURL        string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	APIKey         string `yaml:"-" mapstructure:"api_key"`
	Dimension      int    `yaml:"dimension" mapstructure:"dimension" validate:"gte=0"`
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds" validate:"gt=0"`
}

// IndexConfig selects where the corpus index lives
type IndexConfig struct {
	Backend  string `yaml:"backend" mapstructure:"backend" validate:"oneof=memory sqlite pgvector"`
	Snapshot string `yaml:"snapshot" mapstructure:"snapshot" validate:"required_if=Backend sqlite"`
	DSN      string `yaml:"dsn,omitempty" mapstructure:"dsn" validate:"required_if=Backend pgvector"`
	Table    string `yaml:"table,omitempty" mapstructure:"table"`
}

// RetrievalConfig tunes reference lookup
type RetrievalConfig struct {
	TopK              int    `yaml:"top_k" mapstructure:"top_k" validate:"gte=0"`
	Instruction       string `yaml:"instruction" mapstructure:"instruction"`
	QueryExcerptChars int    `yaml:"query_excerpt_chars" mapstructure:"query_excerpt_chars" validate:"gt=0"`
	ExcerptChars      int    `yaml:"excerpt_chars" mapstructure:"excerpt_chars" validate:"gt=0"`
}

// LLMConfig configures the model-assisted reviewer.
// An empty Provider disables model review.
type LLMConfig struct {
	Provider       string  `yaml:"provider" mapstructure:"provider" validate:"omitempty,oneof=openai anthropic claude ollama"`
	Model          string  `yaml:"model" mapstructure:"model"`
	APIKey         string  `yaml:"-" mapstructure:"api_key"`
	BaseURL        string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	TimeoutSeconds int     `yaml:"timeout_seconds" mapstructure:"timeout_seconds" validate:"gt=0"`
	MaxTokens      int     `yaml:"max_tokens" mapstructure:"max_tokens" validate:"gt=0"`
	Temperature    float32 `yaml:"temperature" mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxRetries     int     `yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0,lte=10"`
	SegmentChars   int     `yaml:"segment_chars" mapstructure:"segment_chars" validate:"gt=0"`
	HTTPProxy      string  `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy     string  `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy        string  `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// ConcurrencyConfig bounds parallel work
type ConcurrencyConfig struct {
	Workers        int `yaml:"workers" mapstructure:"workers" validate:"gt=0"`
	SegmentWorkers int `yaml:"segment_workers" mapstructure:"segment_workers" validate:"gt=0"`
}

// RateLimitingConfig throttles model and embedding calls
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gte=0"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size" validate:"gte=0"`
}

// CacheConfig controls embedding and completion caching
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled" mapstructure:"enabled"`
	Dir        string `yaml:"dir" mapstructure:"dir"`
	TTLMinutes int    `yaml:"ttl_minutes" mapstructure:"ttl_minutes" validate:"gte=0"`
}

// ChecklistConfig is the required-document list for a regulatory process
type ChecklistConfig struct {
	Process  string   `yaml:"process" mapstructure:"process" validate:"required"`
	Required []string `yaml:"required" mapstructure:"required" validate:"required,min=1,dive,required"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Dir     string   `yaml:"dir" mapstructure:"dir" validate:"required"`
	Formats []string `yaml:"formats" mapstructure:"formats" validate:"dive,oneof=md html txt"`
	Verbose bool     `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultRequiredDocuments is the ADGM company incorporation checklist
var DefaultRequiredDocuments = []string{
	"Articles of Association",
	"Memorandum of Association",
	"Board Resolution",
	"Shareholder Resolution",
	"Register of Members and Directors",
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	required := make([]string, len(DefaultRequiredDocuments))
	copy(required, DefaultRequiredDocuments)

	return &Config{
		Corpus: CorpusConfig{
			MetadataFile: "data/metadata.json",
			ChunkSize:    1500,
			ChunkOverlap: 300,
		},
		Embedder: EmbedderConfig{
			Provider:       "hashing",
			Dimension:      0, // provider default
			TimeoutSeconds: 30,
		},
		Index: IndexConfig{
			Backend:  "sqlite",
			Snapshot: "vector_store/corpus.db",
			Table:    "corpus_entries",
		},
		Retrieval: RetrievalConfig{
			TopK:              3,
			Instruction:       "Check ADGM compliance for: ",
			QueryExcerptChars: 1000,
			ExcerptChars:      300,
		},
		LLM: LLMConfig{
			Provider:       "", // Disabled by default
			TimeoutSeconds: 60,
			MaxTokens:      800,
			Temperature:    0.3,
			MaxRetries:     3,
			SegmentChars:   5000,
		},
		Concurrency: ConcurrencyConfig{
			Workers:        4,
			SegmentWorkers: 2,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         4,
		},
		Cache: CacheConfig{
			Enabled:    true,
			Dir:        ".corpagent-cache",
			TTLMinutes: 24 * 60,
		},
		Checklist: ChecklistConfig{
			Process:  "Company Incorporation",
			Required: required,
		},
		Output: OutputConfig{
			Dir:     "reviewed_docs",
			Formats: []string{"md", "html"},
		},
	}
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration for values the pipeline cannot run with
func (c *Config) Validate() error {
	err := configValidator.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate config: %w", err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
