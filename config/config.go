// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package config loads process-level configuration from a YAML file with
// environment overrides. A missing file yields defaults, so every command
// works out of the box against a local Qdrant and the OpenAI API.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file looked for in the working directory.
const DefaultFileName = "docent.yaml"

// Config is the root configuration.
type Config struct {
	// DataDir is where local state lives (answer cache, ingest ledger,
	// conversation history). Empty means ~/.docent.
	DataDir string `yaml:"data_dir"`

	Objects ObjectsConfig `yaml:"objects"`
	AI      AIConfig      `yaml:"ai"`
	Vector  VectorConfig  `yaml:"vector"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Answer  AnswerConfig  `yaml:"answer"`
	Server  ServerConfig  `yaml:"server"`
}

// ObjectsConfig locates the document store.
type ObjectsConfig struct {
	// Dir is the object store root. Empty means <data_dir>/objects.
	Dir string `yaml:"dir"`

	// SourcePrefix holds documents waiting for ingestion.
	SourcePrefix string `yaml:"source_prefix"`

	// ProcessedPrefix holds archived documents after ingestion.
	ProcessedPrefix string `yaml:"processed_prefix"`
}

// AIConfig configures the embedding and completion services.
type AIConfig struct {
	// Host sets both service hosts to the same OpenAI-compatible URL.
	Host string `yaml:"host"`

	// EmbeddingHost and CompletionHost override Host per service.
	EmbeddingHost  string `yaml:"embedding_host,omitempty"`
	CompletionHost string `yaml:"completion_host,omitempty"`

	// APIKey is usually supplied via OPENAI_API_KEY instead of the file.
	APIKey string `yaml:"api_key,omitempty"`

	EmbeddingModel      string `yaml:"embedding_model"`
	EmbeddingDimensions int    `yaml:"embedding_dimensions"`

	// CompletionModels are tried in order; the first success wins.
	CompletionModels []string `yaml:"completion_models"`

	// Temperature of answer generation. Zero means the default 0.1.
	Temperature float64 `yaml:"temperature"`

	// MaxTokens caps generated answer length.
	MaxTokens int `yaml:"max_tokens"`
}

// VectorConfig configures the vector store.
type VectorConfig struct {
	// Type selects the implementation: "qdrant" or "memory".
	Type string `yaml:"type"`

	// URL is the Qdrant REST endpoint.
	URL string `yaml:"url"`

	// APIKey is usually supplied via QDRANT_API_KEY instead of the file.
	APIKey string `yaml:"api_key,omitempty"`

	// Collection is the vector collection written and searched.
	Collection string `yaml:"collection"`

	TimeoutSecs int `yaml:"timeout_secs"`
	MaxRetries  int `yaml:"max_retries"`
}

// IngestConfig tunes the ingestion pipeline.
type IngestConfig struct {
	ChunkSize       int     `yaml:"chunk_size"`
	ChunkOverlap    int     `yaml:"chunk_overlap"`
	MinChunkLength  int     `yaml:"min_chunk_length"`
	EmbedBatchSize  int     `yaml:"embed_batch_size"`
	UpsertBatchSize int     `yaml:"upsert_batch_size"`
	UpsertPauseMs   int     `yaml:"upsert_pause_ms"`
	MinSuccessRate  float64 `yaml:"min_success_rate"`
	Workers         int     `yaml:"workers"`
}

// AnswerConfig tunes question answering.
type AnswerConfig struct {
	RetrievalLimit int     `yaml:"retrieval_limit"`
	ScoreThreshold float64 `yaml:"score_threshold"`
	CacheTTLSecs   int     `yaml:"cache_ttl_secs"`
	HistoryWindow  int     `yaml:"history_window"`
	ContextTokens  int     `yaml:"context_tokens"`
}

// ServerConfig configures the HTTP chat API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is present. The
// values mirror what the ingestion and answer packages default to, so a
// saved default file documents the effective settings.
func Default() *Config {
	return &Config{
		Objects: ObjectsConfig{
			SourcePrefix:    "source/",
			ProcessedPrefix: "processed/",
		},
		AI: AIConfig{
			Host:                "https://api.openai.com/v1",
			EmbeddingModel:      "text-embedding-3-small",
			EmbeddingDimensions: 1536,
			CompletionModels: []string{
				"gpt-3.5-turbo",
				"gpt-3.5-turbo-instruct",
				"text-davinci-003",
				"davinci",
			},
			Temperature: 0.1,
			MaxTokens:   350,
		},
		Vector: VectorConfig{
			Type:        "qdrant",
			URL:         "http://localhost:6333",
			Collection:  "enterprise-knowledge-base",
			TimeoutSecs: 15,
			MaxRetries:  3,
		},
		Ingest: IngestConfig{
			ChunkSize:       1000,
			ChunkOverlap:    200,
			MinChunkLength:  20,
			EmbedBatchSize:  20,
			UpsertBatchSize: 50,
			UpsertPauseMs:   100,
			MinSuccessRate:  80,
			Workers:         1,
		},
		Answer: AnswerConfig{
			RetrievalLimit: 3,
			ScoreThreshold: 0.7,
			CacheTTLSecs:   86400,
			HistoryWindow:  10,
			ContextTokens:  3000,
		},
		Server: ServerConfig{
			Addr: ":8000",
		},
	}
}

// Load reads configuration from path. A missing file yields defaults.
// Environment variables override file values either way; a .env file in
// the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	// Missing .env is fine; variables may come from the real environment.
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// Defaults stand.
		case err != nil:
			return nil, fmt.Errorf("reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
			cfg.applyDefaults()
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// LoadDefault tries ./docent.yaml, then ~/.config/docent/config.yaml.
// If neither exists it returns defaults and an empty path.
func LoadDefault() (*Config, string, error) {
	if _, err := os.Stat(DefaultFileName); err == nil {
		cfg, err := Load(DefaultFileName)
		return cfg, DefaultFileName, err
	}

	userPath, err := UserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}

	cfg, err := Load("")
	return cfg, "", err
}

// Save writes the config to path, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// UserConfigPath returns the per-user config file location.
func UserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "docent", "config.yaml"), nil
}

// EffectiveDataDir resolves the data directory, defaulting to ~/.docent.
func (c *Config) EffectiveDataDir() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving data directory: %w", err)
	}
	return filepath.Join(home, ".docent"), nil
}

// EffectiveObjectsDir resolves the object store root, defaulting to
// <data_dir>/objects.
func (c *Config) EffectiveObjectsDir() (string, error) {
	if c.Objects.Dir != "" {
		return c.Objects.Dir, nil
	}
	dataDir, err := c.EffectiveDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "objects"), nil
}

// applyDefaults rescues zero values an edited file may have left behind.
// Explicit zeros for these fields have no sensible meaning, so they fall
// back to defaults rather than failing component validation later.
func (c *Config) applyDefaults() {
	def := Default()

	if c.Objects.SourcePrefix == "" {
		c.Objects.SourcePrefix = def.Objects.SourcePrefix
	}
	if c.Objects.ProcessedPrefix == "" {
		c.Objects.ProcessedPrefix = def.Objects.ProcessedPrefix
	}

	if c.AI.EmbeddingModel == "" {
		c.AI.EmbeddingModel = def.AI.EmbeddingModel
	}
	if c.AI.EmbeddingDimensions <= 0 {
		c.AI.EmbeddingDimensions = def.AI.EmbeddingDimensions
	}
	if len(c.AI.CompletionModels) == 0 {
		c.AI.CompletionModels = def.AI.CompletionModels
	}
	if c.AI.Temperature == 0 {
		c.AI.Temperature = def.AI.Temperature
	}
	if c.AI.MaxTokens <= 0 {
		c.AI.MaxTokens = def.AI.MaxTokens
	}

	if c.Vector.Type == "" {
		c.Vector.Type = def.Vector.Type
	}
	if c.Vector.URL == "" {
		c.Vector.URL = def.Vector.URL
	}
	if c.Vector.Collection == "" {
		c.Vector.Collection = def.Vector.Collection
	}
	if c.Vector.TimeoutSecs <= 0 {
		c.Vector.TimeoutSecs = def.Vector.TimeoutSecs
	}
	if c.Vector.MaxRetries <= 0 {
		c.Vector.MaxRetries = def.Vector.MaxRetries
	}

	if c.Ingest.ChunkSize <= 0 {
		c.Ingest.ChunkSize = def.Ingest.ChunkSize
	}
	if c.Ingest.ChunkOverlap < 0 {
		c.Ingest.ChunkOverlap = def.Ingest.ChunkOverlap
	}
	if c.Ingest.MinChunkLength <= 0 {
		c.Ingest.MinChunkLength = def.Ingest.MinChunkLength
	}
	if c.Ingest.EmbedBatchSize <= 0 {
		c.Ingest.EmbedBatchSize = def.Ingest.EmbedBatchSize
	}
	if c.Ingest.UpsertBatchSize <= 0 {
		c.Ingest.UpsertBatchSize = def.Ingest.UpsertBatchSize
	}
	if c.Ingest.UpsertPauseMs < 0 {
		c.Ingest.UpsertPauseMs = def.Ingest.UpsertPauseMs
	}
	if c.Ingest.MinSuccessRate <= 0 {
		c.Ingest.MinSuccessRate = def.Ingest.MinSuccessRate
	}
	if c.Ingest.Workers <= 0 {
		c.Ingest.Workers = def.Ingest.Workers
	}

	if c.Answer.RetrievalLimit <= 0 {
		c.Answer.RetrievalLimit = def.Answer.RetrievalLimit
	}
	if c.Answer.ScoreThreshold <= 0 {
		c.Answer.ScoreThreshold = def.Answer.ScoreThreshold
	}
	if c.Answer.CacheTTLSecs <= 0 {
		c.Answer.CacheTTLSecs = def.Answer.CacheTTLSecs
	}
	if c.Answer.HistoryWindow <= 0 {
		c.Answer.HistoryWindow = def.Answer.HistoryWindow
	}
	if c.Answer.ContextTokens <= 0 {
		c.Answer.ContextTokens = def.Answer.ContextTokens
	}

	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
}

// applyEnv overrides file values with environment variables. The variable
// names follow the services' own conventions where they exist.
func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.AI.Host = v
	}
	if v := os.Getenv("QDRANT_URL"); v != "" {
		c.Vector.URL = v
	}
	if v := os.Getenv("QDRANT_API_KEY"); v != "" {
		c.Vector.APIKey = v
	}
	if v := os.Getenv("DOCENT_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("DOCENT_OBJECTS_DIR"); v != "" {
		c.Objects.Dir = v
	}
	if v := os.Getenv("DOCENT_COLLECTION"); v != "" {
		c.Vector.Collection = v
	}
	if v := os.Getenv("DOCENT_ADDR"); v != "" {
		c.Server.Addr = v
	}
}
