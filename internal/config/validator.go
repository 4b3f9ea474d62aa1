package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	var errors []string

	// Валидация порта
	if c.Port == "" {
		errors = append(errors, "port is required")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("invalid port: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("port must be between 1 and 65535, got %d", port))
		}
	}

	// Валидация базы данных
	if c.DatabasePath == "" {
		errors = append(errors, "database path is required")
	}
	if c.MaxOpenConns < 1 {
		errors = append(errors, "max open connections must be at least 1")
	}
	if c.MaxIdleConns < 1 {
		errors = append(errors, "max idle connections must be at least 1")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		errors = append(errors, "max idle connections cannot be greater than max open connections")
	}
	if c.ConnMaxLifetime < time.Second {
		errors = append(errors, "connection max lifetime must be at least 1 second")
	}

	// Валидация каталога
	if c.CKANBaseURL == "" {
		errors = append(errors, "CKAN base URL is required")
	} else if !strings.HasPrefix(c.CKANBaseURL, "http://") && !strings.HasPrefix(c.CKANBaseURL, "https://") {
		errors = append(errors, fmt.Sprintf("CKAN base URL must start with http:// or https://, got %s", c.CKANBaseURL))
	}
	if c.CKANTimeout < time.Second {
		errors = append(errors, "CKAN timeout must be at least 1 second")
	}
	if c.DownloadTimeout < time.Second {
		errors = append(errors, "download timeout must be at least 1 second")
	}

	// Валидация путей хранения
	if c.RawDir == "" {
		errors = append(errors, "raw directory is required")
	}
	if c.GoldDir == "" {
		errors = append(errors, "gold directory is required")
	}

	if len(errors) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errors, "; "))
	}
	return nil
}
