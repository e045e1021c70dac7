package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
)

// ValidationResult holds validation errors and warnings
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// ValidationError represents a validation issue
type ValidationError struct {
	Path    string
	Message string
}

// IsValid returns true if there are no errors
func (v *ValidationResult) IsValid() bool {
	return len(v.Errors) == 0
}

func (v *ValidationResult) addError(path, format string, args ...any) {
	v.Errors = append(v.Errors, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *ValidationResult) addWarning(path, format string, args ...any) {
	v.Warnings = append(v.Warnings, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

var supportedProviders = []string{"google", "github", "linkedin", "facebook", "saml"}

// ValidateFile validates a config file structure without requiring env vars
func ValidateFile(path string) (*ValidationResult, error) {
	result := &ValidationResult{}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	data, err := readConfigFile(path)
	if err != nil {
		result.addError("", "%v", err)
		return result, nil
	}

	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		result.addError("", "invalid JSON: %v", err)
		return result, nil
	}

	checkBashStyleSyntax(rawConfig, "", result)

	version, ok := rawConfig["version"].(string)
	if !ok {
		result.addError("version", "version field is required. Hint: Add \"version\": \"%s\"", ConfigVersion)
	} else if !strings.HasPrefix(version, ConfigVersion) {
		result.addError("version", "unsupported version '%s' - use '%s'", version, ConfigVersion)
	}

	validateServerStructure(rawConfig, result)
	validateProvidersStructure(rawConfig, result)
	validateStorageStructure(rawConfig, result)

	if signingKey, ok := rawConfig["signingKey"]; ok {
		if verr := validateEnvVarReference(signingKey, "signingKey", "signingKey"); verr != nil {
			result.Errors = append(result.Errors, *verr)
		}
	}

	return result, nil
}

func validateServerStructure(rawConfig map[string]any, result *ValidationResult) {
	server, ok := rawConfig["server"].(map[string]any)
	if !ok {
		result.addError("server", "server field is required and must be an object")
		return
	}

	if _, ok := server["baseURL"]; !ok {
		result.addError("server.baseURL", "baseURL is required. Example: \"https://login.yourcompany.com\"")
	}
	if _, ok := server["addr"]; !ok {
		result.addWarning("server.addr", "addr not set, defaulting to %s", DefaultAddr)
	}
}

func validateProvidersStructure(rawConfig map[string]any, result *ValidationResult) {
	providers, ok := rawConfig["providers"].(map[string]any)
	if !ok {
		result.addError("providers", "providers field is required and must be an object")
		return
	}
	if len(providers) == 0 {
		result.addError("providers", "at least one provider must be configured")
	}

	for name, value := range providers {
		path := "providers." + name
		if !slices.Contains(supportedProviders, name) {
			result.addError(path, "unknown provider '%s' - supported providers: %s", name, strings.Join(supportedProviders, ", "))
			continue
		}

		switch name {
		case "saml":
			validateSAMLStructure(value, path, result)
		case "facebook":
			fb, ok := value.(map[string]any)
			if !ok {
				result.addError(path, "facebook must be an object")
				continue
			}
			if _, ok := fb["appId"]; !ok {
				result.addError(path+".appId", "appId is required for facebook")
			}
			secret, ok := fb["appSecret"]
			if !ok {
				result.addError(path+".appSecret", "appSecret is required for facebook")
			} else if verr := validateEnvVarReference(secret, "appSecret", path+".appSecret"); verr != nil {
				result.Errors = append(result.Errors, *verr)
			}
			if _, ok := rawConfig["signingKey"]; !ok {
				result.addError("signingKey", "signingKey is required when facebook is enabled")
			}
			if v, ok := fb["apiVersion"].(string); ok && !strings.HasPrefix(v, "v") {
				result.addWarning(path+".apiVersion", "apiVersion '%s' does not look like a Graph API version (e.g. %s)", v, DefaultFacebookAPIVersion)
			}
		default:
			p, ok := value.(map[string]any)
			if !ok {
				result.addError(path, "%s must be an object", name)
				continue
			}
			if _, ok := p["clientId"]; !ok {
				result.addError(path+".clientId", "clientId is required for %s", name)
			}
		}
	}
}

func validateSAMLStructure(value any, path string, result *ValidationResult) {
	entries, ok := value.([]any)
	if !ok {
		result.addError(path, "saml must be an array of {\"href\", \"displayName\"} objects")
		return
	}
	for i, entry := range entries {
		entryPath := fmt.Sprintf("%s[%d]", path, i)
		e, ok := entry.(map[string]any)
		if !ok {
			result.addError(entryPath, "saml entry must be an object")
			continue
		}
		if href, _ := e["href"].(string); href == "" {
			result.addError(entryPath+".href", "href is required")
		}
		if _, ok := e["displayName"]; !ok {
			result.addWarning(entryPath+".displayName", "displayName not set, the href will be shown on the button")
		}
	}
}

func validateStorageStructure(rawConfig map[string]any, result *ValidationResult) {
	storage, ok := rawConfig["storage"].(map[string]any)
	if !ok {
		return
	}

	kind, _ := storage["kind"].(string)
	switch StorageKind(kind) {
	case "", StorageKindMemory:
	case StorageKindRedis:
		if _, ok := storage["redisAddr"]; !ok {
			result.addError("storage.redisAddr", "redisAddr is required when using redis storage")
		}
		if password, ok := storage["redisPassword"]; ok {
			if verr := validateEnvVarReference(password, "redisPassword", "storage.redisPassword"); verr != nil {
				result.Errors = append(result.Errors, *verr)
			}
		}
	case StorageKindFirestore:
		if _, ok := storage["gcpProject"]; !ok {
			result.addError("storage.gcpProject", "gcpProject is required when using firestore storage")
		}
	default:
		result.addError("storage.kind", "unknown storage kind '%s' - use memory, redis or firestore", kind)
	}
}

// validateEnvVarReference checks that a secret is an {"$env": "..."} object
func validateEnvVarReference(value any, fieldName, path string) *ValidationError {
	switch v := value.(type) {
	case string:
		bashStyleRegex := regexp.MustCompile(`\$\{?([A-Z_][A-Z0-9_]*)\}?`)
		if matches := bashStyleRegex.FindStringSubmatch(v); len(matches) > 1 {
			return &ValidationError{
				Path:    path,
				Message: fmt.Sprintf("found bash-style syntax '%s' - use {\"$env\": \"%s\"} instead", v, matches[1]),
			}
		}
		return &ValidationError{
			Path:    path,
			Message: fmt.Sprintf("%s must use environment variable reference {\"$env\": \"YOUR_ENV_VAR\"} instead of plain text. Hint: This prevents secrets from being stored in config files", fieldName),
		}
	case map[string]any:
		if _, hasEnv := v["$env"]; !hasEnv {
			return &ValidationError{
				Path:    path,
				Message: fmt.Sprintf("%s must use {\"$env\": \"YOUR_ENV_VAR\"} format", fieldName),
			}
		}
		return nil
	default:
		return &ValidationError{
			Path:    path,
			Message: fmt.Sprintf("%s must be an environment variable reference {\"$env\": \"YOUR_ENV_VAR\"}, not %T", fieldName, value),
		}
	}
}

func checkBashStyleSyntax(value any, path string, result *ValidationResult) {
	bashStyleRegex := regexp.MustCompile(`\$\{?[A-Z_][A-Z0-9_]*\}?`)

	switch v := value.(type) {
	case string:
		for _, match := range bashStyleRegex.FindAllString(v, -1) {
			varName := strings.Trim(match, "${}")
			result.addWarning(path, "found bash-style syntax '%s' - use {\"$env\": \"%s\"} instead. Hint: JSON syntax prevents accidental shell expansion in scripts/CI", match, varName)
		}
	case map[string]any:
		if _, hasEnv := v["$env"]; hasEnv {
			return
		}
		for key, val := range v {
			newPath := key
			if path != "" {
				newPath = path + "." + key
			}
			checkBashStyleSyntax(val, newPath, result)
		}
	case []any:
		for i, item := range v {
			checkBashStyleSyntax(item, fmt.Sprintf("%s[%d]", path, i), result)
		}
	}
}
