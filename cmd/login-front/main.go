package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgellow/login-front/internal"
	"github.com/dgellow/login-front/internal/config"
	"github.com/dgellow/login-front/internal/idp"
	"github.com/dgellow/login-front/internal/log"
	"github.com/dgellow/login-front/internal/storage"
	"github.com/spf13/cobra"
)

var BuildVersion = "dev"

func generateDefaultConfig(path string) error {
	defaultConfig := map[string]any{
		"version": config.ConfigVersion,
		"server": map[string]any{
			"baseURL": "https://login.yourcompany.com",
			"addr":    ":8080",
			"name":    "login-front",
		},
		"providers": map[string]any{
			"google":   map[string]any{"clientId": map[string]string{"$env": "GOOGLE_CLIENT_ID"}},
			"github":   map[string]any{"clientId": map[string]string{"$env": "GITHUB_CLIENT_ID"}},
			"linkedin": map[string]any{"clientId": map[string]string{"$env": "LINKEDIN_CLIENT_ID"}},
			"facebook": map[string]any{
				"appId":      map[string]string{"$env": "FACEBOOK_APP_ID"},
				"appSecret":  map[string]string{"$env": "FACEBOOK_APP_SECRET"},
				"apiVersion": config.DefaultFacebookAPIVersion,
				"loadJsSdk":  true,
			},
			"saml": []any{
				map[string]any{
					"href":        "https://idp.yourcompany.com/saml/sso",
					"displayName": "Company SSO",
				},
			},
		},
		"storage": map[string]any{
			"kind": "memory",
		},
		"signingKey": map[string]string{"$env": "LOGIN_FRONT_SIGNING_KEY"},
		"attemptTtl": "10m",
	}

	data, err := json.MarshalIndent(defaultConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func validateConfig(path string) error {
	result, err := config.ValidateFile(path)
	if err != nil {
		return fmt.Errorf("error during validation: %w", err)
	}

	fmt.Printf("Validating: %s\n", path)

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(result.Errors))
		for _, err := range result.Errors {
			printIssue(err)
		}
	}

	if len(result.Warnings) > 0 {
		fmt.Printf("\nWarnings (%d):\n", len(result.Warnings))
		for _, warn := range result.Warnings {
			printIssue(warn)
		}
	}

	fmt.Println()
	switch {
	case len(result.Errors) == 0 && len(result.Warnings) == 0:
		fmt.Println("Result: PASS")
	case len(result.Errors) == 0:
		fmt.Println("Result: FAIL (warnings present)")
	default:
		fmt.Println("Result: FAIL")
	}

	if len(result.Errors) > 0 || len(result.Warnings) > 0 {
		return fmt.Errorf("validation failed: %d error(s), %d warning(s)", len(result.Errors), len(result.Warnings))
	}
	return nil
}

func printIssue(issue config.ValidationError) {
	if issue.Path != "" {
		fmt.Printf("  - %s: %s\n", issue.Path, issue.Message)
	} else {
		fmt.Printf("  - %s\n", issue.Message)
	}
}

func loadConfig(path, envFile string) (config.Config, error) {
	if envFile != "" {
		if err := config.LoadEnvFile(envFile); err != nil {
			return config.Config{}, err
		}
	}
	return config.Load(path)
}

// loginURL computes where a login with provider would send the browser,
// without serving anything. Facebook attempts are kept in memory only.
func loginURL(ctx context.Context, cfg config.Config, provider idp.Provider, next, href string) (string, error) {
	var registry *idp.Registry
	var err error
	if cfg.Providers.FacebookEnabled() {
		store := storage.NewMemoryStore()
		defer store.Close()
		dialog, derr := internal.NewDialogSDK(cfg, store)
		if derr != nil {
			return "", derr
		}
		registry, err = internal.NewRegistry(cfg, dialog)
	} else {
		registry, err = internal.NewRegistry(cfg, nil)
	}
	if err != nil {
		return "", err
	}

	if provider == idp.SAML && href == "" && len(cfg.Providers.SAML) > 0 {
		href = cfg.Providers.SAML[0].Href
	}

	nav := &idp.RecordingNavigator{}
	page := idp.Page{BaseURL: cfg.Server.BaseURL, Navigator: nav}
	if next != "" {
		page.Query = url.Values{"next": {next}}.Encode()
	}

	if err := registry.Start(ctx, provider, page, href); err != nil {
		return "", err
	}
	target, ok := nav.Last()
	if !ok {
		return "", fmt.Errorf("%s login did not navigate", provider)
	}
	return target, nil
}

func newRootCommand() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "login-front",
		Short:         "Login page that starts federated sign-in with Google, Facebook, GitHub, LinkedIn and SAML",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if logLevel != "" {
				return log.SetLogLevel(logLevel)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (error|warn|info|debug|trace), overrides LOG_LEVEL")

	var confPath, envFile string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the login page and login endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(confPath, envFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			log.LogInfoWithFields("main", "Starting login-front", map[string]any{
				"version": BuildVersion,
				"config":  confPath,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			loginFront, err := internal.NewLoginFront(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to create login front: %w", err)
			}
			return loginFront.Run(ctx)
		},
	}
	serveCmd.Flags().StringVar(&confPath, "config", "", "path to config file (required)")
	serveCmd.Flags().StringVar(&envFile, "env-file", "", "dotenv file loaded before the config")
	_ = serveCmd.MarkFlagRequired("config")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a config file and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(confPath)
		},
	}
	validateCmd.Flags().StringVar(&confPath, "config", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")

	configInitCmd := &cobra.Command{
		Use:   "config-init <path>",
		Short: "Generate a default config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := generateDefaultConfig(args[0]); err != nil {
				return fmt.Errorf("failed to generate config: %w", err)
			}
			fmt.Printf("Generated default config at: %s\n", args[0])
			return nil
		},
	}

	var next, href string
	urlCmd := &cobra.Command{
		Use:   "url <provider>",
		Short: "Print the URL a login with provider redirects to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := idp.ParseProvider(args[0])
			if err != nil {
				return err
			}
			cfg, err := loadConfig(confPath, envFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			target, err := loginURL(cmd.Context(), cfg, provider, next, href)
			if err != nil {
				return err
			}
			fmt.Println(target)
			return nil
		},
	}
	urlCmd.Flags().StringVar(&confPath, "config", "", "path to config file (required)")
	urlCmd.Flags().StringVar(&envFile, "env-file", "", "dotenv file loaded before the config")
	urlCmd.Flags().StringVar(&next, "next", "", "value of the page's next parameter")
	urlCmd.Flags().StringVar(&href, "href", "", "SAML identity provider, defaults to the first configured")
	_ = urlCmd.MarkFlagRequired("config")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(BuildVersion)
		},
	}

	root.AddCommand(serveCmd, validateCmd, configInitCmd, urlCmd, versionCmd)
	return root
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		log.LogError("%v", err)
		os.Exit(1)
	}
}
