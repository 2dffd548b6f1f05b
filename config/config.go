package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the agent service
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Agents    AgentsConfig    `mapstructure:"agents"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Ingestion IngestionConfig `mapstructure:"ingestion"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Travel    TravelConfig    `mapstructure:"travel"`
	Storage   StorageConfig   `mapstructure:"storage"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"` // per-request deadline for agent runs
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server and auth settings
type ServerConfig struct {
	Address        string   `mapstructure:"address"`
	JWTSecret      string   `mapstructure:"jwt_secret"` // empty disables auth on /api
	AllowOrigins   []string `mapstructure:"allow_origins"`
	UploadDir      string   `mapstructure:"upload_dir"`
	MaxUploadBytes int64    `mapstructure:"max_upload_bytes"`
}

// LLMConfig contains LLM provider configurations
type LLMConfig struct {
	Providers map[string]LLMProvider `mapstructure:"providers"`
	Routing   LLMRoutingConfig       `mapstructure:"routing"`
}

// LLMProvider represents a single LLM provider configuration
type LLMProvider struct {
	Type           string        `mapstructure:"type"` // openai, anthropic
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	Model          string        `mapstructure:"model"`
	EmbeddingModel string        `mapstructure:"embedding_model"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	Temperature    float64       `mapstructure:"temperature"`
	MaxRetries     int           `mapstructure:"max_retries"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// LLMRoutingConfig names the provider used for each task.
type LLMRoutingConfig struct {
	Decision   string `mapstructure:"decision"`   // router and validator oracle
	Generation string `mapstructure:"generation"` // answer synthesis and query variants
	Summary    string `mapstructure:"summary"`    // travel summarizer and budget estimates
	Embedding  string `mapstructure:"embedding"`
	Fallback   string `mapstructure:"fallback"`
}

// Resolve returns the provider name configured for a task, falling back when unset.
func (r LLMRoutingConfig) Resolve(task string) string {
	var name string
	switch task {
	case "decision":
		name = r.Decision
	case "generation":
		name = r.Generation
	case "summary":
		name = r.Summary
	case "embedding":
		name = r.Embedding
	}
	if strings.TrimSpace(name) == "" {
		return r.Fallback
	}
	return name
}

// Validate checks that every routed provider exists.
func (l LLMConfig) Validate() error {
	for _, task := range []string{"decision", "generation", "summary", "embedding"} {
		name := l.Routing.Resolve(task)
		if name == "" {
			continue
		}
		p, ok := l.Providers[name]
		if !ok {
			return fmt.Errorf("llm.routing.%s references unknown provider %q", task, name)
		}
		switch p.Type {
		case "openai":
		case "anthropic":
			if task == "embedding" {
				return fmt.Errorf("llm.routing.embedding: provider %q does not support embeddings", name)
			}
		default:
			return fmt.Errorf("llm.providers.%s.type %q unsupported", name, p.Type)
		}
	}
	return nil
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// AgentsConfig controls the routed chat state machine.
type AgentsConfig struct {
	MaxCycles   int           `mapstructure:"max_cycles"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
	Oracle      string        `mapstructure:"oracle"` // llm or rules
	Router      RouterConfig  `mapstructure:"router"`
	Rules       RulesConfig   `mapstructure:"rules"`
}

// RouterConfig parameterizes the classification prompt.
type RouterConfig struct {
	RetrievalDescription string `mapstructure:"retrieval_description"`
	WebDescription       string `mapstructure:"web_description"`
	GeneralDescription   string `mapstructure:"general_description"`
}

// RulesConfig configures the deterministic oracle.
type RulesConfig struct {
	RetrievalKeywords []string `mapstructure:"retrieval_keywords"`
	WebKeywords       []string `mapstructure:"web_keywords"`
}

func (a AgentsConfig) Validate() error {
	if a.MaxCycles <= 0 {
		return fmt.Errorf("agents.max_cycles must be > 0")
	}
	switch a.Oracle {
	case "llm", "rules":
	default:
		return fmt.Errorf("agents.oracle must be one of llm, rules (got %q)", a.Oracle)
	}
	return nil
}

// RetrievalConfig holds the vector backend defaults used when a request omits them.
type RetrievalConfig struct {
	DefaultBackend string        `mapstructure:"default_backend"`
	K              int           `mapstructure:"k"`
	CollectionName string        `mapstructure:"collection_name"`
	RetrieverType  string        `mapstructure:"retriever_type"`
	Milvus         MilvusConfig  `mapstructure:"milvus"`
	Chroma         ChromaConfig  `mapstructure:"chroma"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// MilvusConfig contains Milvus connection settings
type MilvusConfig struct {
	Address string `mapstructure:"address"`
	Token   string `mapstructure:"token"`
}

// ChromaConfig points the embedded chroma-compatible store at a directory.
type ChromaConfig struct {
	PersistDirectory string `mapstructure:"persist_directory"`
	Compress         bool   `mapstructure:"compress"`
}

// Normalize applies defaults for unset retrieval values.
func (r RetrievalConfig) Normalize() RetrievalConfig {
	r.DefaultBackend = strings.ToLower(strings.TrimSpace(r.DefaultBackend))
	if r.DefaultBackend == "" {
		r.DefaultBackend = "milvus"
	}
	if r.K <= 0 {
		r.K = 5
	}
	if r.CollectionName == "" {
		r.CollectionName = "documents"
	}
	if r.RetrieverType == "" {
		r.RetrieverType = "vectorstore"
	}
	if r.Chroma.PersistDirectory == "" {
		r.Chroma.PersistDirectory = "chroma_db"
	}
	return r
}

// IngestionConfig controls document splitting and the async job table.
type IngestionConfig struct {
	ParserType        string        `mapstructure:"parser_type"`
	ChunkSize         int           `mapstructure:"chunk_size"`
	ChunkOverlap      int           `mapstructure:"chunk_overlap"`
	MaxConcurrentJobs int           `mapstructure:"max_concurrent_jobs"`
	JobStore          string        `mapstructure:"job_store"` // memory or redis
	JobRetention      time.Duration `mapstructure:"job_retention"`
	JanitorSchedule   string        `mapstructure:"janitor_schedule"`
	Catalog           string        `mapstructure:"catalog"` // memory or postgres
}

func (i IngestionConfig) Validate() error {
	if i.ChunkSize <= 0 {
		return fmt.Errorf("ingestion.chunk_size must be > 0")
	}
	if i.ChunkOverlap < 0 || i.ChunkOverlap >= i.ChunkSize {
		return fmt.Errorf("ingestion.chunk_overlap must be in [0, chunk_size)")
	}
	switch i.JobStore {
	case "memory", "redis":
	default:
		return fmt.Errorf("ingestion.job_store must be memory or redis (got %q)", i.JobStore)
	}
	switch i.Catalog {
	case "memory", "postgres":
	default:
		return fmt.Errorf("ingestion.catalog must be memory or postgres (got %q)", i.Catalog)
	}
	return nil
}

// SourcesConfig contains live web source configurations
type SourcesConfig struct {
	WebSearch WebSearchConfig `mapstructure:"web_search"`
	WebFetch  WebFetchConfig  `mapstructure:"web_fetch"`
}

// WebSearchConfig contains web search settings
type WebSearchConfig struct {
	Provider     string        `mapstructure:"provider"` // tavily, serper, brave
	TavilyAPIKey string        `mapstructure:"tavily_api_key"`
	BraveAPIKey  string        `mapstructure:"brave_api_key"`
	SerperAPIKey string        `mapstructure:"serper_api_key"`
	MaxResults   int           `mapstructure:"max_results"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// APIKey returns the key for the selected provider.
func (w WebSearchConfig) APIKey() string {
	switch w.Provider {
	case "serper":
		return w.SerperAPIKey
	case "brave":
		return w.BraveAPIKey
	default:
		return w.TavilyAPIKey
	}
}

// WebFetchConfig selects how websites are scraped for ingestion.
type WebFetchConfig struct {
	Type     string        `mapstructure:"type"` // http or chromedp
	Timeout  time.Duration `mapstructure:"timeout"`
	MaxChars int           `mapstructure:"max_chars"`
}

// TravelConfig contains the travel planner's external APIs.
type TravelConfig struct {
	Parallel bool          `mapstructure:"parallel"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Cache    string        `mapstructure:"cache"` // memory, redis or none
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	Places   APIConfig     `mapstructure:"places"`
	Weather  APIConfig     `mapstructure:"weather"`
	Rates    APIConfig     `mapstructure:"rates"`
	Amadeus  AmadeusConfig `mapstructure:"amadeus"`
}

// APIConfig is a keyed HTTP endpoint.
type APIConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
}

// AmadeusConfig holds OAuth2 client credentials for flight search.
type AmadeusConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	BaseURL      string `mapstructure:"base_url"`
	TokenURL     string `mapstructure:"token_url"`
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// Addr returns host:port.
func (r RedisConfig) Addr() string { return r.Host + ":" + r.Port }

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.debug", false)
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.request_timeout", 2*time.Minute)
	v.SetDefault("general.default_timeout", 30*time.Second)

	v.SetDefault("server.address", ":10001")
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.allow_origins", []string{"*"})
	v.SetDefault("server.upload_dir", "uploads")
	v.SetDefault("server.max_upload_bytes", 32<<20)

	v.SetDefault("llm.routing.fallback", "openai")
	v.SetDefault("llm.routing.decision", "")
	v.SetDefault("llm.routing.generation", "")
	v.SetDefault("llm.routing.summary", "")
	v.SetDefault("llm.routing.embedding", "")
	v.SetDefault("llm.providers.openai.type", "openai")
	v.SetDefault("llm.providers.openai.api_key", "")
	v.SetDefault("llm.providers.openai.model", "gpt-4o-mini")
	v.SetDefault("llm.providers.openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("llm.providers.openai.max_tokens", 1024)
	v.SetDefault("llm.providers.openai.temperature", 0.0)
	v.SetDefault("llm.providers.openai.timeout", 60*time.Second)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "ragagent")
	v.SetDefault("telemetry.otlp_endpoint", "")

	v.SetDefault("agents.max_cycles", 3)
	v.SetDefault("agents.call_timeout", 45*time.Second)
	v.SetDefault("agents.oracle", "llm")
	v.SetDefault("agents.router.retrieval_description", "questions about the documents ingested into the knowledge base")
	v.SetDefault("agents.router.web_description", "questions about recent events or information that changes over time")
	v.SetDefault("agents.router.general_description", "general questions that can be answered from common knowledge")
	v.SetDefault("agents.rules.retrieval_keywords", []string{"document", "documents", "uploaded", "knowledge base", "pdf"})
	v.SetDefault("agents.rules.web_keywords", []string{"latest", "today", "news", "current", "recent", "price of"})

	v.SetDefault("retrieval.default_backend", "milvus")
	v.SetDefault("retrieval.k", 5)
	v.SetDefault("retrieval.collection_name", "documents")
	v.SetDefault("retrieval.retriever_type", "vectorstore")
	v.SetDefault("retrieval.milvus.address", "localhost:19530")
	v.SetDefault("retrieval.milvus.token", "")
	v.SetDefault("retrieval.chroma.persist_directory", "chroma_db")
	v.SetDefault("retrieval.chroma.compress", false)
	v.SetDefault("retrieval.timeout", 20*time.Second)

	v.SetDefault("ingestion.parser_type", "recursive")
	v.SetDefault("ingestion.chunk_size", 1000)
	v.SetDefault("ingestion.chunk_overlap", 100)
	v.SetDefault("ingestion.max_concurrent_jobs", 4)
	v.SetDefault("ingestion.job_store", "memory")
	v.SetDefault("ingestion.job_retention", 24*time.Hour)
	v.SetDefault("ingestion.janitor_schedule", "@hourly")
	v.SetDefault("ingestion.catalog", "memory")

	v.SetDefault("sources.web_search.provider", "tavily")
	v.SetDefault("sources.web_search.tavily_api_key", "")
	v.SetDefault("sources.web_search.serper_api_key", "")
	v.SetDefault("sources.web_search.brave_api_key", "")
	v.SetDefault("sources.web_search.max_results", 5)
	v.SetDefault("sources.web_search.timeout", 20*time.Second)
	v.SetDefault("sources.web_fetch.type", "http")
	v.SetDefault("sources.web_fetch.timeout", 15*time.Second)
	v.SetDefault("sources.web_fetch.max_chars", 200000)

	v.SetDefault("travel.parallel", true)
	v.SetDefault("travel.timeout", 20*time.Second)
	v.SetDefault("travel.cache", "memory")
	v.SetDefault("travel.cache_ttl", 10*time.Minute)
	v.SetDefault("travel.places.api_key", "")
	v.SetDefault("travel.places.endpoint", "https://maps.googleapis.com/maps/api/place/textsearch/json")
	v.SetDefault("travel.weather.api_key", "")
	v.SetDefault("travel.weather.endpoint", "https://api.openweathermap.org/data/2.5/forecast")
	v.SetDefault("travel.rates.api_key", "")
	v.SetDefault("travel.rates.endpoint", "https://api.frankfurter.app/latest")
	v.SetDefault("travel.amadeus.client_id", "")
	v.SetDefault("travel.amadeus.client_secret", "")
	v.SetDefault("travel.amadeus.base_url", "https://test.api.amadeus.com")
	v.SetDefault("travel.amadeus.token_url", "https://test.api.amadeus.com/v1/security/oauth2/token")

	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", "6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.postgres.url", "")
	v.SetDefault("storage.postgres.host", "localhost")
	v.SetDefault("storage.postgres.port", "5432")
	v.SetDefault("storage.postgres.user", "postgres")
	v.SetDefault("storage.postgres.password", "")
	v.SetDefault("storage.postgres.dbname", "ragagent")
	v.SetDefault("storage.postgres.sslmode", "disable")
}

// Load reads configuration from path (or the default search paths) and the
// RAGAGENT_* environment. A missing config file leaves defaults in place.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	setDefaults(v)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		if exe, err := os.Executable(); err == nil {
			exeDir := filepath.Dir(exe)
			v.AddConfigPath(exeDir)
			v.AddConfigPath(filepath.Join(exeDir, "..", "config"))
		}
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("RAGAGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Retrieval = cfg.Retrieval.Normalize()

	if err := cfg.Agents.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Ingestion.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.LLM.Validate(); err != nil {
		return nil, err
	}
	if cfg.Ingestion.JobStore == "redis" || cfg.Travel.Cache == "redis" {
		if err := cfg.Storage.Redis.Validate(); err != nil {
			return nil, err
		}
	}
	if cfg.Ingestion.Catalog == "postgres" {
		if err := cfg.Storage.Postgres.Validate(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// LoadConfig loads config from file and panics on any error.
func LoadConfig(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	return cfg
}
