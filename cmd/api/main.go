package main

import (
	"flag"
	"log"

	"github.com/myaibookkeeper/bookkeeper/internal/api"
	"github.com/myaibookkeeper/bookkeeper/internal/billing"
	"github.com/myaibookkeeper/bookkeeper/internal/config"
	"github.com/myaibookkeeper/bookkeeper/internal/database"
	"github.com/myaibookkeeper/bookkeeper/internal/email"
	"github.com/myaibookkeeper/bookkeeper/internal/identity"
	"github.com/myaibookkeeper/bookkeeper/internal/maintenance"
	"github.com/myaibookkeeper/bookkeeper/internal/storage"
)

const version = "0.0.1"

func initializeAPI(configPath string) (*api.Api, *maintenance.Scheduler, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	if err := database.Init(cfg); err != nil {
		return nil, nil, err
	}

	identityClient := identity.NewClient(cfg.Identity.BaseURL, cfg.Identity.APIKey)
	billingClient := billing.NewClient(cfg.Billing.BaseURL, cfg.Billing.APIKey)

	// Document storage is optional in development
	var docs api.DocumentStore
	if cfg.Storage.Endpoint != "" {
		s3, err := storage.NewS3Client(
			cfg.Storage.Endpoint,
			cfg.Storage.Region,
			cfg.Storage.Bucket,
			cfg.Storage.AccessKeyID,
			cfg.Storage.SecretAccessKey,
		)
		if err != nil {
			return nil, nil, err
		}
		docs = s3
	} else {
		log.Printf("Document storage not configured; uploads disabled")
	}

	mailer := email.NewService(cfg.Email.APIKey, cfg.Email.From, cfg.Email.Enabled)

	apiServer, err := api.NewApi(cfg, identityClient, billingClient, docs, mailer)
	if err != nil {
		return nil, nil, err
	}

	return apiServer, maintenance.New(cfg), nil
}

func main() {
	configPath := flag.String("config", "app.yml", "Path to configuration file")
	flag.Parse()

	log.Printf("Starting My AI Bookkeeper API v%s with config: %s", version, *configPath)

	apiServer, scheduler, err := initializeAPI(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()

	if err := scheduler.Start(); err != nil {
		log.Fatal(err)
	}
	defer scheduler.Stop()

	apiServer.Serve()
}
