// internal/common/config/loader.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultLocalRAGURL      = "http://localhost:8000"
	DefaultProductionRAGURL = "https://kurio-rag-api.onrender.com"
	DefaultRAGTimeoutMillis = 60000
)

// Load reads configs/config.yaml, overlays configs/config.<env>.yaml and the
// process environment, then applies defaults and validation.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")
	bindEnv(v)
	setDefaults(v)

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // ignore error if not found

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	bindEnv(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideFromEnv(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func bindEnv(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// setDefaults registers every key so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "kurio")
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.environment", "development")

	v.SetDefault("rag.base_url", "")
	v.SetDefault("rag.use_local", false)
	v.SetDefault("rag.production_url", DefaultProductionRAGURL)
	v.SetDefault("rag.local_url", DefaultLocalRAGURL)
	v.SetDefault("rag.timeout", DefaultRAGTimeoutMillis)
	v.SetDefault("rag.retries", 1)
	v.SetDefault("rag.k", 5)
	v.SetDefault("rag.retrieval_method", "llm_enhanced")

	v.SetDefault("camunda.broker_address", "")
	v.SetDefault("camunda.max_jobs_active", 10)
	v.SetDefault("camunda.timeout", 30000)
	v.SetDefault("camunda.request_timeout", 30000)

	v.SetDefault("database.postgres.host", "")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.database", "")
	v.SetDefault("database.postgres.user", "")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.max_connections", 25)
	v.SetDefault("database.postgres.max_idle", 5)
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.redis.address", "")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)
	v.SetDefault("database.redis.entry_channel", "kurio:entries:changed")
	v.SetDefault("database.redis.financials_ttl", 86400)
	v.SetDefault("database.elasticsearch.addresses", []string{})
	v.SetDefault("database.elasticsearch.username", "")
	v.SetDefault("database.elasticsearch.password", "")
	v.SetDefault("database.elasticsearch.entry_index", "job_entries")

	v.SetDefault("auth.keycloak.url", "")
	v.SetDefault("auth.keycloak.realm", "")
	v.SetDefault("auth.keycloak.client_id", "")
	v.SetDefault("auth.keycloak.client_secret", "")

	v.SetDefault("content.contentful.base_url", "https://cdn.contentful.com")
	v.SetDefault("content.contentful.space_id", "")
	v.SetDefault("content.contentful.delivery_token", "")
	v.SetDefault("content.contentful.environment", "master")
	v.SetDefault("content.contentful.insights_type", "")
	v.SetDefault("content.contentful.timeout", 15000)

	v.SetDefault("storage.bucket", "funwai-resume.appspot.com")
	v.SetDefault("storage.thumbnail_folder", "job_thumbnails")

	v.SetDefault("sec.data_url", "https://data.sec.gov")
	v.SetDefault("sec.www_url", "https://www.sec.gov")
	v.SetDefault("sec.user_agent", "kurio-agent/1.0 (potatojacket9@gmail.com)")
	v.SetDefault("sec.timeout", 30000)

	v.SetDefault("notifications.email.enabled", false)
	v.SetDefault("notifications.email.from_email", "")
	v.SetDefault("notifications.email.to_email", "")
	v.SetDefault("notifications.aws.region", "us-east-1")

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.metrics_address", ":8080")
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost:3000",
		"http://localhost:3001",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:3001",
	})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// Load .env from the working directory or any parent up to the module root.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			// An unset variable expands to "", which disables optional backends.
			if expanded := os.ExpandEnv(strVal); expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideFromEnv applies the well-known variable names that do not follow
// the section_key naming scheme.
func overrideFromEnv(cfg *Config) {
	if val := os.Getenv("RAG_API_URL"); val != "" {
		cfg.RAG.BaseURL = val
	}
	if val := os.Getenv("RAG_USE_LOCAL_API"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.RAG.UseLocal = b
		}
	}

	if cfg.Auth.Keycloak.ClientSecret == "" {
		cfg.Auth.Keycloak.ClientSecret = os.Getenv("KEYCLOAK_CLIENT_SECRET")
	}
	if cfg.Content.Contentful.SpaceID == "" {
		cfg.Content.Contentful.SpaceID = os.Getenv("CONTENTFUL_SPACE_ID")
	}
	if cfg.Content.Contentful.DeliveryToken == "" {
		cfg.Content.Contentful.DeliveryToken = os.Getenv("CONTENTFUL_DELIVERY_TOKEN")
	}
	if cfg.Content.Contentful.InsightsType == "" {
		cfg.Content.Contentful.InsightsType = os.Getenv("CONTENTFUL_INSIGHTS_TYPE_ID")
	}
	if cfg.Database.Postgres.User == "" {
		cfg.Database.Postgres.User = os.Getenv("DB_USER")
	}
	if cfg.Database.Postgres.Password == "" {
		cfg.Database.Postgres.Password = os.Getenv("DB_PASSWORD")
	}
	if val := os.Getenv("ALLOWED_ORIGINS"); val != "" {
		var origins []string
		for _, origin := range strings.Split(val, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
		cfg.Server.AllowedOrigins = origins
	}
}

// applyDefaults fills values that cannot be expressed through viper defaults.
func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Content.Contentful.Environment) == "" {
		cfg.Content.Contentful.Environment = "master"
	}
	if cfg.RAG.LocalURL == "" {
		cfg.RAG.LocalURL = DefaultLocalRAGURL
	}
	if cfg.RAG.ProductionURL == "" {
		cfg.RAG.ProductionURL = DefaultProductionRAGURL
	}
	if cfg.RAG.Timeout == 0 {
		cfg.RAG.Timeout = DefaultRAGTimeoutMillis
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig checks what every binary needs. Infrastructure sections are
// checked by the binaries that use them.
func validateConfig(cfg *Config) error {
	if cfg.RAG.Retries < 0 {
		return fmt.Errorf("rag.retries must not be negative")
	}
	if cfg.RAG.K < 0 {
		return fmt.Errorf("rag.k must not be negative")
	}
	if cfg.RAG.Timeout < 0 {
		return fmt.Errorf("rag.timeout must not be negative")
	}
	resolved := cfg.RAG.ResolveBaseURL(cfg.App)
	u, err := url.Parse(resolved)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("rag base url %q is not an absolute URL", resolved)
	}
	return nil
}

// ValidateForWorkers checks the sections the worker manager depends on.
func ValidateForWorkers(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}
	return ValidateForStorage(cfg)
}

// ValidateForStorage checks the database sections used by entry and financials services.
func ValidateForStorage(cfg *Config) error {
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}
	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}
	return nil
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
