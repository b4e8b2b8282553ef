// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	RAG           RAGConfig               `mapstructure:"rag"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Auth          AuthConfig              `mapstructure:"auth"`
	Content       ContentConfig           `mapstructure:"content"`
	Storage       StorageConfig           `mapstructure:"storage"`
	SEC           SECConfig               `mapstructure:"sec"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Server        ServerConfig            `mapstructure:"server"`
	Logging       LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// IsProduction reports whether the app runs with the production build configuration.
func (a AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// RAGConfig configures the question-answering endpoint.
type RAGConfig struct {
	BaseURL       string `mapstructure:"base_url"` // explicit override, wins when set
	UseLocal      bool   `mapstructure:"use_local"`
	ProductionURL string `mapstructure:"production_url"`
	LocalURL      string `mapstructure:"local_url"`
	Timeout       int    `mapstructure:"timeout"` // milliseconds, per attempt
	Retries       int    `mapstructure:"retries"`
	K             int    `mapstructure:"k"`
	Method        string `mapstructure:"retrieval_method"`
}

// ResolveBaseURL applies the endpoint precedence: explicit URL, forced local,
// production default, local default.
func (r RAGConfig) ResolveBaseURL(app AppConfig) string {
	switch {
	case r.BaseURL != "":
		return r.BaseURL
	case r.UseLocal:
		return r.LocalURL
	case app.IsProduction():
		return r.ProductionURL
	default:
		return r.LocalURL
	}
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	EntryIndex string   `mapstructure:"entry_index"`
}

type RedisConfig struct {
	Address       string `mapstructure:"address"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	EntryChannel  string `mapstructure:"entry_channel"`
	FinancialsTTL int    `mapstructure:"financials_ttl"` // seconds
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// AuthConfig holds the managed authentication settings.
type AuthConfig struct {
	Keycloak struct {
		URL          string `mapstructure:"url"`
		Realm        string `mapstructure:"realm"`
		ClientID     string `mapstructure:"client_id"`
		ClientSecret string `mapstructure:"client_secret"`
	} `mapstructure:"keycloak"`
}

// ContentConfig holds the headless content API settings for editorial insights.
type ContentConfig struct {
	Contentful struct {
		BaseURL       string `mapstructure:"base_url"`
		SpaceID       string `mapstructure:"space_id"`
		DeliveryToken string `mapstructure:"delivery_token"`
		Environment   string `mapstructure:"environment"`
		InsightsType  string `mapstructure:"insights_type"`
		Timeout       int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"contentful"`
}

// StorageConfig describes where uploaded thumbnails live.
type StorageConfig struct {
	Bucket          string `mapstructure:"bucket"`
	ThumbnailFolder string `mapstructure:"thumbnail_folder"`
}

// SECConfig configures the EDGAR client.
type SECConfig struct {
	DataURL   string `mapstructure:"data_url"`
	WWWURL    string `mapstructure:"www_url"`
	UserAgent string `mapstructure:"user_agent"`
	Timeout   int    `mapstructure:"timeout"` // milliseconds
}

// NotificationConfig holds settings for moderator notifications.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
		ToEmail   string `mapstructure:"to_email"`
	} `mapstructure:"email"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Address        string   `mapstructure:"address"`
	MetricsAddress string   `mapstructure:"metrics_address"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
