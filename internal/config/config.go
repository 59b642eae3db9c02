package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	EmbedLLM LLMConfig      `yaml:"embed_llm"`
	ChatLLM  LLMConfig      `yaml:"chat_llm"`
	RAG      RAGConfig      `yaml:"rag"`
}

type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type LLMConfig struct {
	Provider string `yaml:"provider"` // openai or ollama
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

type RAGConfig struct {
	VectorSize   int    `yaml:"vector_size"`
	ChunkSize    int    `yaml:"chunk_size"`
	Overfetch    int    `yaml:"overfetch"`
	DefaultLimit int    `yaml:"default_limit"`
	Parallelism  int    `yaml:"parallelism"`
	ChromemPath  string `yaml:"chromem_path"`
}

const (
	defaultVectorSize  = 1536
	defaultChunkSize   = 1000
	defaultOverfetch   = 2
	defaultLimit       = 5
	defaultParallelism = 4
	defaultChromemPath = "./chromemdb"
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.RAG.VectorSize == 0 {
		c.RAG.VectorSize = defaultVectorSize
	}
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = defaultChunkSize
	}
	if c.RAG.Overfetch == 0 {
		c.RAG.Overfetch = defaultOverfetch
	}
	if c.RAG.DefaultLimit == 0 {
		c.RAG.DefaultLimit = defaultLimit
	}
	if c.RAG.Parallelism == 0 {
		c.RAG.Parallelism = defaultParallelism
	}
	if c.RAG.ChromemPath == "" {
		c.RAG.ChromemPath = defaultChromemPath
	}
}
