package config

import (
	"encoding/json"
	"fmt"
)

// UnmarshalJSON implements custom unmarshaling for Config
func (c *Config) UnmarshalJSON(data []byte) error {
	type rawConfig struct {
		Version    string          `json:"version"`
		Server     ServerConfig    `json:"server"`
		Providers  ProvidersConfig `json:"providers"`
		Storage    StorageConfig   `json:"storage"`
		SigningKey json.RawMessage `json:"signingKey,omitempty"`
		AttemptTTL string          `json:"attemptTtl,omitempty"`
	}

	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	c.Version = raw.Version
	c.Server = raw.Server
	c.Providers = raw.Providers
	c.Storage = raw.Storage

	signingKey, err := parseOptionalValue(raw.SigningKey, "signingKey")
	if err != nil {
		return err
	}
	c.SigningKey = Secret(signingKey)

	if c.AttemptTTL, err = parseOptionalDuration(raw.AttemptTTL, "attemptTtl"); err != nil {
		return err
	}

	return nil
}

// UnmarshalJSON implements custom unmarshaling for ServerConfig
func (s *ServerConfig) UnmarshalJSON(data []byte) error {
	type rawServer struct {
		BaseURL json.RawMessage `json:"baseURL"`
		Addr    json.RawMessage `json:"addr"`
		Name    string          `json:"name"`
	}

	var raw rawServer
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var err error
	if s.BaseURL, err = parseOptionalValue(raw.BaseURL, "baseURL"); err != nil {
		return err
	}
	if s.Addr, err = parseOptionalValue(raw.Addr, "addr"); err != nil {
		return err
	}
	s.Name = raw.Name

	return nil
}

// UnmarshalJSON implements custom unmarshaling for OAuthProviderConfig
func (o *OAuthProviderConfig) UnmarshalJSON(data []byte) error {
	type rawProvider struct {
		ClientID json.RawMessage `json:"clientId"`
	}

	var raw rawProvider
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	clientID, err := parseOptionalValue(raw.ClientID, "clientId")
	if err != nil {
		return err
	}
	o.ClientID = clientID
	return nil
}

// UnmarshalJSON implements custom unmarshaling for FacebookConfig.
// loadJsSdk defaults to true.
func (f *FacebookConfig) UnmarshalJSON(data []byte) error {
	type rawFacebook struct {
		AppID      json.RawMessage `json:"appId"`
		AppSecret  json.RawMessage `json:"appSecret"`
		APIVersion string          `json:"apiVersion"`
		LoadJSSDK  *bool           `json:"loadJsSdk"`
	}

	var raw rawFacebook
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var err error
	if f.AppID, err = parseOptionalValue(raw.AppID, "appId"); err != nil {
		return err
	}

	secret, err := parseOptionalValue(raw.AppSecret, "appSecret")
	if err != nil {
		return err
	}
	f.AppSecret = Secret(secret)

	f.APIVersion = raw.APIVersion
	f.LoadJSSDK = raw.LoadJSSDK == nil || *raw.LoadJSSDK

	return nil
}

// UnmarshalJSON implements custom unmarshaling for StorageConfig
func (s *StorageConfig) UnmarshalJSON(data []byte) error {
	type rawStorage struct {
		Kind                StorageKind     `json:"kind"`
		RedisAddr           json.RawMessage `json:"redisAddr,omitempty"`
		RedisDB             int             `json:"redisDb,omitempty"`
		RedisPassword       json.RawMessage `json:"redisPassword,omitempty"`
		GCPProject          json.RawMessage `json:"gcpProject,omitempty"`
		FirestoreDatabase   string          `json:"firestoreDatabase,omitempty"`
		FirestoreCollection string          `json:"firestoreCollection,omitempty"`
		CleanupInterval     string          `json:"cleanupInterval,omitempty"`
	}

	var raw rawStorage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.Kind = raw.Kind
	s.RedisDB = raw.RedisDB
	s.FirestoreDatabase = raw.FirestoreDatabase
	s.FirestoreCollection = raw.FirestoreCollection

	var err error
	if s.RedisAddr, err = parseOptionalValue(raw.RedisAddr, "redisAddr"); err != nil {
		return err
	}

	password, err := parseOptionalValue(raw.RedisPassword, "redisPassword")
	if err != nil {
		return err
	}
	s.RedisPassword = Secret(password)

	if s.GCPProject, err = parseOptionalValue(raw.GCPProject, "gcpProject"); err != nil {
		return err
	}

	if s.CleanupInterval, err = parseOptionalDuration(raw.CleanupInterval, "cleanupInterval"); err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	return nil
}
