package config

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    Server    `yaml:"server"`
	HeyReach  HeyReach  `yaml:"heyreach"`
	Sheets    Sheets    `yaml:"sheets"`
	Pipeline  Pipeline  `yaml:"pipeline"`
	Scheduler Scheduler `yaml:"scheduler"`
	Database  Database  `yaml:"database"`
	S3        S3        `yaml:"s3"`
}

// Server holds HTTP server configuration
type Server struct {
	Host         string        `yaml:"host" env:"SERVER_HOST" env-default:"0.0.0.0"`
	Port         string        `yaml:"port" env:"SERVER_PORT" env-default:"8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"60s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
}

// Address returns the full server address
func (s Server) Address() string {
	return s.Host + ":" + s.Port
}

// HeyReach holds HeyReach API configuration. Sender identity and
// routing arrive as JSON blobs so one deployment can carry many client
// configurations without a schema change.
type HeyReach struct {
	BaseURL string `yaml:"base_url" env:"HEYREACH_BASE_URL" env-default:"https://api.heyreach.io"`
	APIKey  string `yaml:"api_key" env:"HEYREACH_API_KEY" env-required:"true"`

	// JSON array of sender IDs, e.g. [101, 102]
	SenderIDsJSON string `yaml:"sender_ids" env:"HEYREACH_SENDER_IDS" env-default:"[]"`
	// JSON object of sender ID -> display name, e.g. {"101": "Jane Doe"}
	SenderNamesJSON string `yaml:"sender_names" env:"HEYREACH_SENDER_NAMES" env-default:"{}"`
	// JSON object of client name -> group, e.g.
	// {"acme": {"sender_ids": [101], "worksheet": "Acme Outreach"}}
	ClientGroupsJSON string `yaml:"client_groups" env:"HEYREACH_CLIENT_GROUPS" env-default:"{}"`

	Workers int `yaml:"workers" env:"HEYREACH_WORKERS" env-default:"10"`
}

// ClientGroup routes one client's senders to a worksheet
type ClientGroup struct {
	SenderIDs []int64 `json:"sender_ids"`
	Worksheet string  `json:"worksheet"`
}

// SenderIDs parses the configured sender ID list
func (h HeyReach) SenderIDs() ([]int64, error) {
	var ids []int64
	if err := json.Unmarshal([]byte(h.SenderIDsJSON), &ids); err != nil {
		return nil, fmt.Errorf("parsing HEYREACH_SENDER_IDS: %w", err)
	}
	return ids, nil
}

// SenderNames parses the configured sender ID -> name overrides
func (h HeyReach) SenderNames() (map[int64]string, error) {
	raw := map[string]string{}
	if err := json.Unmarshal([]byte(h.SenderNamesJSON), &raw); err != nil {
		return nil, fmt.Errorf("parsing HEYREACH_SENDER_NAMES: %w", err)
	}
	names := make(map[int64]string, len(raw))
	for k, v := range raw {
		var id int64
		if _, err := fmt.Sscanf(k, "%d", &id); err != nil {
			return nil, fmt.Errorf("parsing HEYREACH_SENDER_NAMES key %q: %w", k, err)
		}
		names[id] = v
	}
	return names, nil
}

// ClientGroups parses the configured client -> senders routing
func (h HeyReach) ClientGroups() (map[string]ClientGroup, error) {
	groups := map[string]ClientGroup{}
	if err := json.Unmarshal([]byte(h.ClientGroupsJSON), &groups); err != nil {
		return nil, fmt.Errorf("parsing HEYREACH_CLIENT_GROUPS: %w", err)
	}
	return groups, nil
}

// Sheets holds destination spreadsheet configuration
type Sheets struct {
	BaseURL       string `yaml:"base_url" env:"SHEETS_BASE_URL" env-default:"https://sheets.googleapis.com"`
	SpreadsheetID string `yaml:"spreadsheet_id" env:"SHEETS_SPREADSHEET_ID" env-required:"true"`
	AccessToken   string `yaml:"access_token" env:"SHEETS_ACCESS_TOKEN" env-required:"true"`
	// Fallback worksheet for senders outside any client group
	DefaultWorksheet string `yaml:"default_worksheet" env:"SHEETS_DEFAULT_WORKSHEET"`
}

// Pipeline holds reconciliation behavior configuration
type Pipeline struct {
	WritePolicy  string `yaml:"write_policy" env:"PIPELINE_WRITE_POLICY" env-default:"only-if-empty"`
	DayTolerance int    `yaml:"day_tolerance" env:"PIPELINE_DAY_TOLERANCE" env-default:"3"`
}

// Scheduler holds scheduler configuration
type Scheduler struct {
	Enabled    bool          `yaml:"enabled" env:"SCHEDULER_ENABLED" env-default:"false"`
	Interval   time.Duration `yaml:"interval" env:"SCHEDULER_INTERVAL" env-default:"6h"`
	WindowDays int           `yaml:"window_days" env:"SCHEDULER_WINDOW_DAYS" env-default:"14"`
}

// Database holds database configuration. Run history is optional; an
// empty DSN disables it.
type Database struct {
	PostgresDSN string `yaml:"postgres_dsn" env:"DATABASE_URL"`

	MaxOpenConns int           `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	MaxIdleConns int           `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"5"`
	ConnLifetime time.Duration `yaml:"conn_lifetime" env:"DB_CONN_LIFETIME" env-default:"5m"`
}

// S3 holds run archive storage configuration. An empty bucket disables
// archiving.
type S3 struct {
	Endpoint        string `yaml:"endpoint" env:"S3_ENDPOINT" env-default:"http://localhost:9000"`
	AccessKeyID     string `yaml:"access_key_id" env:"S3_ACCESS_KEY_ID" env-default:"minioadmin"`
	SecretAccessKey string `yaml:"secret_access_key" env:"S3_SECRET_ACCESS_KEY" env-default:"minioadmin"`
	Bucket          string `yaml:"bucket" env:"S3_BUCKET"`
	Region          string `yaml:"region" env:"S3_REGION" env-default:"us-east-1"`
}

// MustLoad loads configuration from environment and panics on error
func MustLoad() Config {
	// Load .env file if exists (for development)
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	return cfg
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
