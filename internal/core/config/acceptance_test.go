package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blockkeeper.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestAcceptanceCriteria covers the operator-facing configuration contract.
func TestAcceptanceCriteria(t *testing.T) {
	t.Run("AC1: BK_HMAC_SECRET accessible via HMACSecrets", func(t *testing.T) {
		clearSecretEnv(t)
		t.Setenv("BK_HMAC_SECRET", testSecretA)

		secrets, err := HMACSecrets()
		if err != nil {
			t.Fatalf("AC1 FAIL: HMACSecrets error: %v", err)
		}
		if _, ok := secrets["0123456789abcdef0123456789abcdef"]; !ok {
			t.Fatal("AC1 FAIL: Secret not accessible")
		}
	})

	t.Run("AC2: config file with hmac_secret rejected with clear error", func(t *testing.T) {
		for _, content := range []string{
			"block_api:\n  host: \"localhost\"\n  port: 8080\n  hmac_secret: \"should_be_rejected\"\n",
			"hmac_secret: \"should_be_rejected\"\n",
		} {
			_, err := LoadConfig(writeConfig(t, content))
			if err == nil {
				t.Fatal("AC2 FAIL: Expected error for secret in config file")
			}
			if err.Error() != "HMAC secrets not allowed in config files (use BK_HMAC_SECRET environment variable)" {
				t.Fatalf("AC2 FAIL: Wrong error message: %v", err)
			}
		}
	})

	t.Run("AC3: environment overrides config file", func(t *testing.T) {
		path := writeConfig(t, "block_api:\n  port: 9090\n  schema_path: /etc/blockkeeper/schema.yaml\n")

		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("AC3 FAIL: LoadConfig error: %v", err)
		}
		if cfg.Port != 9090 {
			t.Fatalf("AC3 FAIL: Expected port 9090 from file, got %d", cfg.Port)
		}
		if cfg.SchemaPath != "/etc/blockkeeper/schema.yaml" {
			t.Fatalf("AC3 FAIL: Expected schema_path from file, got %s", cfg.SchemaPath)
		}

		t.Setenv("BK_BLOCK_API_PORT", "8080")
		cfg, err = LoadConfig(path)
		if err != nil {
			t.Fatalf("AC3 FAIL: LoadConfig error: %v", err)
		}
		if cfg.Port != 8080 {
			t.Fatalf("AC3 FAIL: Environment should override config file. Expected 8080, got %d", cfg.Port)
		}
	})
}
