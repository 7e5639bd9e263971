// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	AccessToken       string
	Organization      string
	APIBaseURL        string
	ExcludeProjects   []string
	RequestTimeout    time.Duration
	MaxRetries        int
	RequestsPerMinute int
	IngestInterval    time.Duration
	DBPath            string
}

// Load reads configuration from environment variables and returns a validated
// Config. DEVPULSE_AZDO_PAT and DEVPULSE_AZDO_ORG are required; missing
// either aborts startup before any partial work happens. Optional variables
// with defaults: DEVPULSE_API_BASE_URL (https://dev.azure.com),
// DEVPULSE_EXCLUDE_PROJECTS (empty), DEVPULSE_REQUEST_TIMEOUT (60s),
// DEVPULSE_MAX_RETRIES (3), DEVPULSE_REQUESTS_PER_MINUTE (300),
// DEVPULSE_INGEST_INTERVAL (1h), DEVPULSE_DB_PATH (devpulse.db).
func Load() (*Config, error) {
	token := os.Getenv("DEVPULSE_AZDO_PAT")
	if token == "" {
		return nil, fmt.Errorf("DEVPULSE_AZDO_PAT is required")
	}

	org := os.Getenv("DEVPULSE_AZDO_ORG")
	if org == "" {
		return nil, fmt.Errorf("DEVPULSE_AZDO_ORG is required")
	}

	baseURL := "https://dev.azure.com"
	if v, ok := os.LookupEnv("DEVPULSE_API_BASE_URL"); ok && v != "" {
		baseURL = strings.TrimRight(v, "/")
	}

	var excludeProjects []string
	if v, ok := os.LookupEnv("DEVPULSE_EXCLUDE_PROJECTS"); ok && v != "" {
		for _, name := range strings.Split(v, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				excludeProjects = append(excludeProjects, name)
			}
		}
	}
	if excludeProjects == nil {
		excludeProjects = []string{}
	}

	requestTimeout := 60 * time.Second
	if v, ok := os.LookupEnv("DEVPULSE_REQUEST_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("DEVPULSE_REQUEST_TIMEOUT has invalid duration %q: %w", v, err)
		}
		requestTimeout = parsed
	}

	maxRetries := 3
	if v, ok := os.LookupEnv("DEVPULSE_MAX_RETRIES"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("DEVPULSE_MAX_RETRIES has invalid value %q", v)
		}
		maxRetries = parsed
	}

	requestsPerMinute := 300
	if v, ok := os.LookupEnv("DEVPULSE_REQUESTS_PER_MINUTE"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("DEVPULSE_REQUESTS_PER_MINUTE has invalid value %q", v)
		}
		requestsPerMinute = parsed
	}

	ingestInterval := time.Hour
	if v, ok := os.LookupEnv("DEVPULSE_INGEST_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("DEVPULSE_INGEST_INTERVAL has invalid duration %q: %w", v, err)
		}
		ingestInterval = parsed
	}

	dbPath := "devpulse.db"
	if v, ok := os.LookupEnv("DEVPULSE_DB_PATH"); ok {
		dbPath = v
	}

	return &Config{
		AccessToken:       token,
		Organization:      org,
		APIBaseURL:        baseURL,
		ExcludeProjects:   excludeProjects,
		RequestTimeout:    requestTimeout,
		MaxRetries:        maxRetries,
		RequestsPerMinute: requestsPerMinute,
		IngestInterval:    ingestInterval,
		DBPath:            dbPath,
	}, nil
}
