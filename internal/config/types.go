package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Secret is a string type that redacts itself when printed
type Secret string

// String implements fmt.Stringer to redact the secret
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// MarshalJSON implements json.Marshaler to prevent secrets in JSON logs
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("***")
}

// StorageKind selects where pending Facebook login attempts are kept
type StorageKind string

const (
	StorageKindMemory    StorageKind = "memory"
	StorageKindRedis     StorageKind = "redis"
	StorageKindFirestore StorageKind = "firestore"
)

// ConfigVersion is the config format understood by this build
const ConfigVersion = "v1"

const (
	DefaultAddr                = ":8080"
	DefaultName                = "login-front"
	DefaultFacebookAPIVersion  = "v2.4"
	DefaultAttemptTTL          = 10 * time.Minute
	DefaultCleanupInterval     = 5 * time.Minute
	DefaultFirestoreCollection = "login_front_attempts"
)

// ServerConfig describes where the service listens and the origin it is
// reachable at. BaseURL is used to build every callback URL.
type ServerConfig struct {
	BaseURL string `json:"baseURL"`
	Addr    string `json:"addr"`
	Name    string `json:"name"`
}

// OAuthProviderConfig is the public client registration with a provider
type OAuthProviderConfig struct {
	ClientID string `json:"clientId"`
}

// FacebookConfig configures the Facebook login dialog
type FacebookConfig struct {
	AppID      string `json:"appId"`
	AppSecret  Secret `json:"appSecret"`
	APIVersion string `json:"apiVersion"`
	// LoadJSSDK adds the Facebook JavaScript SDK to the login page
	LoadJSSDK bool `json:"loadJsSdk"`
}

// SAMLIdentityProvider is one SAML login button
type SAMLIdentityProvider struct {
	Href        string `json:"href"`
	DisplayName string `json:"displayName"`
}

// ProvidersConfig lists the identity providers offered on the login page.
// A provider without an identifier is not offered.
type ProvidersConfig struct {
	Google   *OAuthProviderConfig   `json:"google,omitempty"`
	GitHub   *OAuthProviderConfig   `json:"github,omitempty"`
	LinkedIn *OAuthProviderConfig   `json:"linkedin,omitempty"`
	Facebook *FacebookConfig        `json:"facebook,omitempty"`
	SAML     []SAMLIdentityProvider `json:"saml,omitempty"`
}

// FacebookEnabled reports whether the Facebook login is configured
func (p ProvidersConfig) FacebookEnabled() bool {
	return p.Facebook != nil && p.Facebook.AppID != ""
}

// Count returns how many providers are configured
func (p ProvidersConfig) Count() int {
	n := 0
	for _, c := range []*OAuthProviderConfig{p.Google, p.GitHub, p.LinkedIn} {
		if c != nil && c.ClientID != "" {
			n++
		}
	}
	if p.FacebookEnabled() {
		n++
	}
	if len(p.SAML) > 0 {
		n++
	}
	return n
}

// StorageConfig configures the pending attempt store
type StorageConfig struct {
	Kind                StorageKind   `json:"kind"`
	RedisAddr           string        `json:"redisAddr,omitempty"`
	RedisDB             int           `json:"redisDb,omitempty"`
	RedisPassword       Secret        `json:"redisPassword,omitempty"`
	GCPProject          string        `json:"gcpProject,omitempty"`
	FirestoreDatabase   string        `json:"firestoreDatabase,omitempty"`
	FirestoreCollection string        `json:"firestoreCollection,omitempty"`
	CleanupInterval     time.Duration `json:"cleanupInterval,omitempty"`
}

// Config represents the config structure with resolved values
type Config struct {
	Version    string          `json:"version"`
	Server     ServerConfig    `json:"server"`
	Providers  ProvidersConfig `json:"providers"`
	Storage    StorageConfig   `json:"storage"`
	SigningKey Secret          `json:"signingKey"`
	AttemptTTL time.Duration   `json:"attemptTtl"`
}

// ParseConfigValue parses a JSON value that is either a plain string or an
// {"$env": "VAR"} reference, resolving the reference immediately.
func ParseConfigValue(raw json.RawMessage) (string, error) {
	// Try plain string first
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str, nil
	}

	var ref map[string]string
	if err := json.Unmarshal(raw, &ref); err != nil {
		return "", fmt.Errorf("config value must be string or reference object")
	}

	envVar, ok := ref["$env"]
	if !ok {
		return "", fmt.Errorf("unknown reference type in config value")
	}

	value := os.Getenv(envVar)
	if value == "" {
		return "", fmt.Errorf("environment variable %s not set", envVar)
	}
	// Strip surrounding quotes if present (only matching pairs)
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'') {
			value = value[1 : len(value)-1]
		}
	}
	return value, nil
}

// parseOptionalValue is ParseConfigValue for fields that may be omitted
func parseOptionalValue(raw json.RawMessage, field string) (string, error) {
	if raw == nil {
		return "", nil
	}
	value, err := ParseConfigValue(raw)
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", field, err)
	}
	return value, nil
}

func parseOptionalDuration(s, field string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", field, err)
	}
	return d, nil
}
