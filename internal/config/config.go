package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	APIPort  int `yaml:"apiPort"`
	Database struct {
		Type       string `yaml:"type"`
		Path       string `yaml:"path"`
		URL        string `yaml:"url"`
		WALMode    bool   `yaml:"walMode"`
		MaxRetries int    `yaml:"maxRetries"`
		RetryDelay int    `yaml:"retryDelay"`
	} `yaml:"database"`
	Identity struct {
		BaseURL     string `yaml:"baseUrl"`
		APIKey      string `yaml:"apiKey"`
		TokenSecret string `yaml:"tokenSecret"`
	} `yaml:"identity"`
	Billing struct {
		BaseURL       string `yaml:"baseUrl"`
		APIKey        string `yaml:"apiKey"`
		WebhookSecret string `yaml:"webhookSecret"`
	} `yaml:"billing"`
	Storage struct {
		Endpoint        string `yaml:"endpoint"`
		Region          string `yaml:"region"`
		Bucket          string `yaml:"bucket"`
		AccessKeyID     string `yaml:"accessKeyId"`
		SecretAccessKey string `yaml:"secretAccessKey"`
	} `yaml:"storage"`
	Email struct {
		APIKey  string `yaml:"apiKey"`
		From    string `yaml:"from"`
		Enabled bool   `yaml:"enabled"`
	} `yaml:"email"`
	Maintenance struct {
		UsageResetSchedule string `yaml:"usageResetSchedule"`
		AuditRetentionDays int    `yaml:"auditRetentionDays"`
	} `yaml:"maintenance"`
	InternalAPIKey string `yaml:"internalApiKey"`
	SiteURL        string `yaml:"siteUrl"`
}

// LoadConfig loads the configuration from file and environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// If the file doesn't exist or is invalid, fall back to env/defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Warning: Could not read config file: %s. Using defaults or environment variables.", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.APIPort == 0 {
		cfg.APIPort = 8081
		log.Println("APIPort not specified, using default 8081")
	}

	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "/data/bookkeeper.db"
		log.Println("Database path not specified, using default /data/bookkeeper.db")
	}
	if !v.IsSet("database.walMode") {
		cfg.Database.WALMode = true
	}
	if cfg.Database.MaxRetries == 0 {
		cfg.Database.MaxRetries = 5
	}
	if cfg.Database.RetryDelay == 0 {
		cfg.Database.RetryDelay = 5
	}

	if cfg.Identity.BaseURL == "" {
		cfg.Identity.BaseURL = "https://identity.myaibookkeeper.com/v1"
		log.Println("Identity base URL not specified, using default")
	}
	if cfg.Billing.BaseURL == "" {
		cfg.Billing.BaseURL = "https://billing.myaibookkeeper.com/v1"
		log.Println("Billing base URL not specified, using default")
	}

	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "nyc3"
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "bookkeeper-documents"
	}

	if cfg.Email.From == "" {
		cfg.Email.From = "My AI Bookkeeper <no-reply@myaibookkeeper.com>"
	}

	if cfg.Maintenance.UsageResetSchedule == "" {
		cfg.Maintenance.UsageResetSchedule = "@monthly"
	}
	if cfg.Maintenance.AuditRetentionDays == 0 {
		cfg.Maintenance.AuditRetentionDays = 365
	}

	if cfg.SiteURL == "" {
		cfg.SiteURL = "https://www.myaibookkeeper.com"
	}

	log.Printf("Configuration loaded: port=%d database=%s", cfg.APIPort, cfg.Database.Type)
	return &cfg, nil
}
