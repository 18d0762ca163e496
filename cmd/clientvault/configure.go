package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Interactively write a configuration file",
	Long: `Create a configuration file interactively.

You will be prompted for:
  - Database type and connection string
  - Object store bucket, region, and optional endpoint/credentials
  - HTTP server port

The result is written as YAML to the output path (default: ./config.yaml).`,
	RunE: runConfigure,
}

var configureOutput string

func init() {
	configureCmd.Flags().StringVarP(&configureOutput, "output", "o", "config.yaml", "output file path")
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(_ *cobra.Command, _ []string) error {
	if _, err := os.Stat(configureOutput); err == nil {
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("File '%s' already exists. Overwrite it", configureOutput),
			IsConfirm: true,
		}
		if _, promptErr := prompt.Run(); promptErr != nil {
			fmt.Println("Cancelled.")
			return nil //nolint:nilerr // User cancelled, not an error
		}
	}

	dbTypeSelect := promptui.Select{
		Label: "Database type",
		Items: []string{"sqlite", "postgres"},
	}
	_, dbType, err := dbTypeSelect.Run()
	if err != nil {
		return handlePromptError(err)
	}

	dsnDefault := "clientvault.db"
	if dbType == "postgres" {
		dsnDefault = "postgres://localhost:5432/clientvault"
	}
	dsnPrompt := promptui.Prompt{
		Label:   "Database DSN",
		Default: dsnDefault,
		Validate: func(input string) error {
			if input == "" {
				return errors.New("DSN is required")
			}
			return nil
		},
	}
	dsn, err := dsnPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}

	bucketPrompt := promptui.Prompt{
		Label:   "Object store bucket",
		Default: "clientvault",
		Validate: func(input string) error {
			if input == "" {
				return errors.New("bucket is required")
			}
			return nil
		},
	}
	bucket, err := bucketPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}

	regionPrompt := promptui.Prompt{
		Label:   "Object store region",
		Default: "us-east-1",
	}
	region, err := regionPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}

	endpointPrompt := promptui.Prompt{
		Label:   "Custom endpoint URL (blank for AWS)",
		Default: "",
	}
	endpoint, err := endpointPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}

	accessKeyPrompt := promptui.Prompt{
		Label:   "Access key (blank for ambient credentials)",
		Default: "",
	}
	accessKey, err := accessKeyPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}

	secretKey := ""
	if accessKey != "" {
		secretKeyPrompt := promptui.Prompt{
			Label: "Secret key",
			Mask:  '*',
		}
		secretKey, err = secretKeyPrompt.Run()
		if err != nil {
			return handlePromptError(err)
		}
	}

	portPrompt := promptui.Prompt{
		Label:   "HTTP server port",
		Default: "5810",
		Validate: func(input string) error {
			p, convErr := strconv.Atoi(input)
			if convErr != nil || p < 1 || p > 65535 {
				return errors.New("port must be 1-65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}
	port, _ := strconv.Atoi(portStr)

	objectStore := map[string]any{
		"bucket": bucket,
		"region": region,
	}
	if endpoint != "" {
		objectStore["endpoint"] = endpoint
		objectStore["use_path_style"] = true
	}
	if accessKey != "" {
		objectStore["access_key"] = accessKey
		objectStore["secret_key"] = secretKey
	}

	out := map[string]any{
		"server": map[string]any{
			"port": port,
		},
		"database": map[string]any{
			"type": dbType,
			"dsn":  dsn,
		},
		"object_store": objectStore,
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(configureOutput, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("Configuration written to %s\n", configureOutput)
	return nil
}

// handlePromptError handles promptui errors.
func handlePromptError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) {
		fmt.Println("\nCancelled.")
		os.Exit(0)
	}
	if errors.Is(err, promptui.ErrAbort) {
		fmt.Println("Cancelled.")
		return nil
	}
	return err
}
