package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgellow/login-front/internal/envutil"
	"github.com/dgellow/login-front/internal/log"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load loads and processes the config with immediate env var resolution
func Load(path string) (Config, error) {
	data, err := readConfigFile(path)
	if err != nil {
		return Config{}, err
	}

	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		return Config{}, fmt.Errorf("parsing config JSON: %w", err)
	}

	version, ok := rawConfig["version"].(string)
	if !ok {
		return Config{}, fmt.Errorf("config version is required")
	}
	if !strings.HasPrefix(version, ConfigVersion) {
		return Config{}, fmt.Errorf("unsupported config version: %s", version)
	}

	if err := validateRawConfig(rawConfig); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	// The custom UnmarshalJSON methods resolve env vars immediately
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	if err := applyEnvOverrides(&config); err != nil {
		return Config{}, err
	}
	applyDefaults(&config)

	if err := ValidateConfig(&config); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set win.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// readConfigFile returns the config as JSON, converting YAML files
func readConfigFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if !isYAML(path) {
		return data, nil
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	converted, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("converting config YAML: %w", err)
	}
	return converted, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// validateRawConfig checks that secrets come from the environment before
// anything is resolved
func validateRawConfig(rawConfig map[string]any) error {
	secrets := map[string]any{}
	if v, ok := rawConfig["signingKey"]; ok {
		secrets["signingKey"] = v
	}
	if providers, ok := rawConfig["providers"].(map[string]any); ok {
		if fb, ok := providers["facebook"].(map[string]any); ok {
			if v, ok := fb["appSecret"]; ok {
				secrets["providers.facebook.appSecret"] = v
			}
		}
	}
	if storage, ok := rawConfig["storage"].(map[string]any); ok {
		if v, ok := storage["redisPassword"]; ok {
			secrets["storage.redisPassword"] = v
		}
	}

	for name, value := range secrets {
		if _, isString := value.(string); isString {
			return fmt.Errorf("%s must use environment variable reference for security", name)
		}
		if refMap, isMap := value.(map[string]any); isMap {
			if _, hasEnv := refMap["$env"]; !hasEnv {
				return fmt.Errorf("%s must use {\"$env\": \"VAR_NAME\"} format", name)
			}
		}
	}
	return nil
}

func applyDefaults(config *Config) {
	if config.Server.Addr == "" {
		config.Server.Addr = DefaultAddr
	}
	if config.Server.Name == "" {
		config.Server.Name = DefaultName
	}
	if fb := config.Providers.Facebook; fb != nil && fb.APIVersion == "" {
		fb.APIVersion = DefaultFacebookAPIVersion
	}
	if config.Storage.Kind == "" {
		config.Storage.Kind = StorageKindMemory
	}
	if config.Storage.Kind == StorageKindFirestore && config.Storage.FirestoreCollection == "" {
		config.Storage.FirestoreCollection = DefaultFirestoreCollection
	}
	if config.Storage.CleanupInterval == 0 {
		config.Storage.CleanupInterval = DefaultCleanupInterval
	}
	if config.AttemptTTL == 0 {
		config.AttemptTTL = DefaultAttemptTTL
	}
}

// ValidateConfig validates the resolved configuration
func ValidateConfig(config *Config) error {
	if config.Server.BaseURL == "" {
		return fmt.Errorf("server.baseURL is required")
	}
	baseURL, err := url.Parse(config.Server.BaseURL)
	if err != nil || baseURL.Host == "" {
		return fmt.Errorf("server.baseURL must be an absolute URL, got %q", config.Server.BaseURL)
	}
	switch baseURL.Scheme {
	case "https":
	case "http":
		if !envutil.IsDev() {
			return fmt.Errorf("server.baseURL must use https outside development mode")
		}
	default:
		return fmt.Errorf("server.baseURL has unsupported scheme %q", baseURL.Scheme)
	}
	if baseURL.RawQuery != "" || baseURL.Fragment != "" {
		return fmt.Errorf("server.baseURL cannot have a query or fragment")
	}
	if config.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	if config.Providers.Count() == 0 {
		return fmt.Errorf("at least one provider must be configured")
	}

	for i, idp := range config.Providers.SAML {
		if idp.Href == "" {
			return fmt.Errorf("providers.saml[%d].href is required", i)
		}
	}

	if config.Providers.FacebookEnabled() {
		if config.Providers.Facebook.AppSecret == "" {
			return fmt.Errorf("providers.facebook.appSecret is required")
		}
		if len(config.SigningKey) < 32 {
			return fmt.Errorf("signingKey must be at least 32 characters when facebook is enabled (got %d). Generate with: openssl rand -base64 32", len(config.SigningKey))
		}
	}

	if config.AttemptTTL < 0 {
		return fmt.Errorf("attemptTtl cannot be negative")
	}

	if err := validateStorage(config.Storage); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}

	return nil
}

func validateStorage(storage StorageConfig) error {
	switch storage.Kind {
	case StorageKindMemory:
	case StorageKindRedis:
		if storage.RedisAddr == "" {
			return fmt.Errorf("redisAddr is required when using redis storage")
		}
		if storage.RedisDB < 0 {
			return fmt.Errorf("redisDb cannot be negative")
		}
	case StorageKindFirestore:
		if storage.GCPProject == "" {
			return fmt.Errorf("gcpProject is required when using firestore storage")
		}
	default:
		return fmt.Errorf("unknown storage kind %q (memory, redis, firestore)", storage.Kind)
	}

	if storage.CleanupInterval < 0 {
		return fmt.Errorf("cleanupInterval cannot be negative")
	}
	if storage.Kind != StorageKindFirestore && storage.FirestoreCollection != "" {
		log.LogWarn("storage.firestoreCollection is ignored with %s storage", storage.Kind)
	}
	return nil
}
