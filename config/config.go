/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package config loads docstore settings from .env files, the environment and
// an optional YAML connection policy file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/suparena/docstore/datastore"
	"github.com/suparena/docstore/errors"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvEndpoint       = "DOCSTORE_ENDPOINT"
	EnvKey            = "DOCSTORE_KEY"
	EnvDatabase       = "DOCSTORE_DATABASE"
	EnvCollection     = "DOCSTORE_COLLECTION"
	EnvPolicyFile     = "DOCSTORE_POLICY_FILE"
	EnvRequestTimeout = "DOCSTORE_REQUEST_TIMEOUT_SECONDS"
	EnvMaxRetries     = "DOCSTORE_MAX_RETRIES"
	EnvRetryBackoff   = "DOCSTORE_RETRY_BACKOFF_MS"
	EnvConsistency    = "DOCSTORE_CONSISTENCY"
	EnvRegion         = "DOCSTORE_REGION"
	EnvPageSize       = "DOCSTORE_PAGE_SIZE"
	EnvLogLevel       = "LOG_LEVEL"
	EnvLogFormat      = "LOG_FORMAT"
)

// Config holds all settings needed to open a docstore connection.
type Config struct {
	Endpoint   string
	Key        string
	Database   string
	Collection string
	PolicyFile string
	Policy     datastore.ConnectionPolicy
	Log        LogConfig
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads the given .env files (".env" when none are named; missing files
// are ignored), then the environment, then the policy file if one is set.
// Values in the policy file win over environment values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	defaults := datastore.DefaultConnectionPolicy()
	cfg := &Config{
		Endpoint:   getEnv(EnvEndpoint, ""),
		Key:        getEnv(EnvKey, ""),
		Database:   getEnv(EnvDatabase, ""),
		Collection: getEnv(EnvCollection, ""),
		PolicyFile: getEnv(EnvPolicyFile, ""),
		Log: LogConfig{
			Level:  getEnv(EnvLogLevel, "info"),
			Format: getEnv(EnvLogFormat, "json"),
		},
	}

	timeout, err := getEnvAsInt(EnvRequestTimeout, int(defaults.RequestTimeout/time.Second))
	if err != nil {
		return nil, err
	}
	retries, err := getEnvAsInt(EnvMaxRetries, defaults.MaxRetryAttempts)
	if err != nil {
		return nil, err
	}
	backoff, err := getEnvAsInt(EnvRetryBackoff, int(defaults.RetryBackoff/time.Millisecond))
	if err != nil {
		return nil, err
	}
	pageSize, err := getEnvAsInt(EnvPageSize, int(defaults.PageSize))
	if err != nil {
		return nil, err
	}
	// An explicit zero turns retries off rather than selecting the default.
	if retries == 0 {
		retries = datastore.NoRetries
	}
	cfg.Policy = datastore.ConnectionPolicy{
		RequestTimeout:   time.Duration(timeout) * time.Second,
		MaxRetryAttempts: retries,
		RetryBackoff:     time.Duration(backoff) * time.Millisecond,
		ConsistencyLevel: getEnv(EnvConsistency, defaults.ConsistencyLevel),
		Region:           getEnv(EnvRegion, ""),
		PageSize:         int32(pageSize),
	}

	if cfg.PolicyFile != "" {
		file, err := LoadPolicyFile(cfg.PolicyFile)
		if err != nil {
			return nil, err
		}
		cfg.Policy = overlay(cfg.Policy, file)
	}

	level, err := NormalizeConsistency(cfg.Policy.ConsistencyLevel)
	if err != nil {
		return nil, err
	}
	cfg.Policy.ConsistencyLevel = level
	return cfg, nil
}

// LoadPolicyFile reads a YAML connection policy. Durations use Go syntax:
//
//	requestTimeout: 10s
//	maxRetryAttempts: 5   # 0 disables retries
//	retryBackoff: 250ms
//	consistencyLevel: strong
//	pageSize: 50
func LoadPolicyFile(path string) (datastore.ConnectionPolicy, error) {
	var policy datastore.ConnectionPolicy
	data, err := os.ReadFile(path)
	if err != nil {
		return policy, fmt.Errorf("failed to read policy file: %w", err)
	}
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return policy, errors.NewInvalidConfigurationError("policyFile", err.Error())
	}

	// maxRetryAttempts: 0 decodes to the "use default" zero value; tell it apart
	// from an absent key.
	var explicit struct {
		MaxRetryAttempts *int `yaml:"maxRetryAttempts"`
	}
	if err := yaml.Unmarshal(data, &explicit); err != nil {
		return policy, errors.NewInvalidConfigurationError("policyFile", err.Error())
	}
	if explicit.MaxRetryAttempts != nil {
		switch n := *explicit.MaxRetryAttempts; {
		case n < 0:
			return policy, errors.NewInvalidConfigurationError("maxRetryAttempts", fmt.Sprintf("expected a non-negative integer, got %d", n))
		case n == 0:
			policy.MaxRetryAttempts = datastore.NoRetries
		}
	}
	return policy, nil
}

// NormalizeConsistency maps a case-insensitive level name onto the datastore constants.
func NormalizeConsistency(level string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "session":
		return datastore.ConsistencySession, nil
	case "strong":
		return datastore.ConsistencyStrong, nil
	case "eventual":
		return datastore.ConsistencyEventual, nil
	}
	return "", errors.NewInvalidConfigurationError("consistencyLevel", fmt.Sprintf("unknown level %q", level))
}

// overlay copies every non-zero field of top onto base.
func overlay(base, top datastore.ConnectionPolicy) datastore.ConnectionPolicy {
	if top.RequestTimeout > 0 {
		base.RequestTimeout = top.RequestTimeout
	}
	if top.MaxRetryAttempts != 0 {
		base.MaxRetryAttempts = top.MaxRetryAttempts
	}
	if top.RetryBackoff > 0 {
		base.RetryBackoff = top.RetryBackoff
	}
	if top.ConsistencyLevel != "" {
		base.ConsistencyLevel = top.ConsistencyLevel
	}
	if top.Region != "" {
		base.Region = top.Region
	}
	if top.PageSize > 0 {
		base.PageSize = top.PageSize
	}
	return base
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(value)
	if err != nil || intValue < 0 {
		return 0, errors.NewInvalidConfigurationError(key, fmt.Sprintf("expected a non-negative integer, got %q", value))
	}
	return intValue, nil
}
