package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const secretInConfigMessage = "HMAC secrets not allowed in config files (use BK_HMAC_SECRET environment variable)"

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*BlockAPIConfig, error) {
	v := viper.New()

	d := DefaultBlockAPIConfig()
	v.SetDefault("block_api.host", d.Host)
	v.SetDefault("block_api.port", d.Port)
	v.SetDefault("block_api.max_connections", d.MaxConnections)
	v.SetDefault("block_api.request_timeout", d.RequestTimeout.String())
	v.SetDefault("block_api.max_payload_bytes", d.MaxPayloadBytes)
	v.SetDefault("block_api.max_document_blocks", d.MaxDocumentBlocks)
	v.SetDefault("block_api.schema_path", d.SchemaPath)
	v.SetDefault("block_api.data_dir", d.DataDir)

	// BK_BLOCK_API_PORT -> block_api.port
	v.SetEnvPrefix("BK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &BlockAPIConfig{
		Host:              v.GetString("block_api.host"),
		Port:              v.GetInt("block_api.port"),
		MaxConnections:    v.GetInt("block_api.max_connections"),
		RequestTimeout:    v.GetDuration("block_api.request_timeout"),
		MaxPayloadBytes:   v.GetInt("block_api.max_payload_bytes"),
		MaxDocumentBlocks: v.GetInt("block_api.max_document_blocks"),
		SchemaPath:        v.GetString("block_api.schema_path"),
		DataDir:           v.GetString("block_api.data_dir"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks port range and positive limits.
func validateConfig(cfg *BlockAPIConfig) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.MaxConnections <= 0 {
		return fmt.Errorf("max_connections must be positive, got %d", cfg.MaxConnections)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.RequestTimeout)
	}
	if cfg.MaxPayloadBytes <= 0 {
		return fmt.Errorf("max_payload_bytes must be positive, got %d", cfg.MaxPayloadBytes)
	}
	if cfg.MaxDocumentBlocks <= 0 {
		return fmt.Errorf("max_document_blocks must be positive, got %d", cfg.MaxDocumentBlocks)
	}
	if cfg.SchemaPath == "" {
		return fmt.Errorf("schema_path must be set")
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only secrets (12-factor principle).
// InConfig only inspects the file, so BK_HMAC_SECRET in the environment is fine.
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.InConfig("hmac_secret") || v.InConfig("block_api.hmac_secret") {
		return errors.New(secretInConfigMessage)
	}
	return nil
}
