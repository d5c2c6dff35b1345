// Package migrations embeds the versioned schema for each supported driver.
package migrations

import (
	"embed"
	"fmt"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

// ForDriver returns the embedded migrations and their directory for a sqlx
// driver name.
func ForDriver(driver string) (embed.FS, string, error) {
	switch driver {
	case "sqlite3":
		return files, "sqlite", nil
	case "postgres":
		return files, "postgres", nil
	default:
		return embed.FS{}, "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}
