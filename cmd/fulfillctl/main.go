// Package main provides the fulfillctl entry point: a small CLI that
// submits fulfillment orders to the signed API, queries their tracking
// state, and lists locally recorded pending orders.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/orderforge/spapi-fulfill/internal/auth/lwa"
	"github.com/orderforge/spapi-fulfill/internal/client"
	"github.com/orderforge/spapi-fulfill/internal/config"
	"github.com/orderforge/spapi-fulfill/internal/fulfillment"
	"github.com/orderforge/spapi-fulfill/internal/logging"
	"github.com/orderforge/spapi-fulfill/internal/store"
)

var (
	Version   = "dev"
	BuildDate = "unknown"
)

// init initializes the shared logger setup.
func init() {
	logging.SetupBaseLogger()
}

// main parses command-line flags, loads configuration, and dispatches to
// the requested operation.
func main() {
	var configPath string
	var submitPath string
	var statusID string
	var listPending bool
	var showVersion bool

	flag.StringVar(&configPath, "config", "config.yaml", "path to the YAML configuration file")
	flag.StringVar(&submitPath, "submit", "", "path to an order JSON file to submit")
	flag.StringVar(&statusID, "status", "", "order id to query; records tracking when present")
	flag.BoolVar(&listPending, "list-pending", false, "list locally recorded orders still awaiting tracking")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("fulfillctl %s (built %s)\n", Version, BuildDate)
		return
	}

	// Optional .env bootstrap so secrets can be supplied via environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("failed to load .env file: %v", err)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	logging.Configure(cfg.Logging)

	var records *store.Store
	if cfg.Store.Path != "" {
		records, err = store.Open(cfg.Store.Path)
		if err != nil {
			log.Fatalf("failed to open order store: %v", err)
		}
		defer func() {
			_ = records.Close()
		}()
	}

	tokens := lwa.NewTokenProvider(lwa.Credentials{
		ClientID:      cfg.OAuth.ClientID,
		ClientSecret:  cfg.OAuth.ClientSecret,
		RefreshToken:  cfg.OAuth.RefreshToken,
		TokenEndpoint: cfg.OAuth.TokenEndpoint,
	}, nil)

	api := client.New(client.Options{
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		SessionToken:    cfg.SessionToken,
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		UserAgent:       cfg.UserAgent,
	}, tokens, nil)

	svc := fulfillment.New(api, records)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch {
	case submitPath != "":
		if err = submitOrder(ctx, svc, submitPath); err != nil {
			log.Fatalf("submit failed: %v", err)
		}
	case statusID != "":
		if err = reportStatus(ctx, svc, statusID); err != nil {
			log.Fatalf("status failed: %v", err)
		}
	case listPending:
		if err = printPending(records); err != nil {
			log.Fatalf("list-pending failed: %v", err)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}

// submitOrder reads an order JSON file and submits it to the fulfillment API.
func submitOrder(ctx context.Context, svc *fulfillment.Service, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read order file: %w", err)
	}
	var order fulfillment.Order
	if err = json.Unmarshal(data, &order); err != nil {
		return fmt.Errorf("failed to parse order file: %w", err)
	}
	if err = svc.CreateOrder(ctx, &order); err != nil {
		return err
	}
	fmt.Printf("submitted order %s\n", order.ID)
	return nil
}

// reportStatus queries an order and prints its tracking identifiers.
func reportStatus(ctx context.Context, svc *fulfillment.Service, orderID string) error {
	numbers, err := svc.RecordTracking(ctx, orderID)
	if err != nil {
		return err
	}
	if len(numbers) == 0 {
		fmt.Printf("order %s: no tracking available yet\n", orderID)
		return nil
	}
	fmt.Printf("order %s: tracking %s\n", orderID, strings.Join(numbers, ", "))
	return nil
}

// printPending lists locally recorded orders awaiting tracking.
func printPending(records *store.Store) error {
	if records == nil {
		return fmt.Errorf("order store is not configured (set store.path)")
	}
	pending, err := records.Pending()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println("no pending orders")
		return nil
	}
	for _, rec := range pending {
		fmt.Printf("%s\tsubmitted %s\n", rec.ID, rec.CreatedAt.Format(time.RFC3339))
	}
	return nil
}
