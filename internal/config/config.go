package config

import (
	"os"
	"strconv"
	"time"
)

// Config конфигурация сервера и конвейеров ETL
type Config struct {
	// Сервер
	Port string `json:"port"`

	// База данных
	DatabasePath    string        `json:"database_path"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`

	// Каталог открытых данных
	CKANBaseURL     string        `json:"ckan_base_url"`
	CKANTimeout     time.Duration `json:"ckan_timeout"`
	DownloadTimeout time.Duration `json:"download_timeout"`

	// Хранение
	RawDir  string `json:"raw_dir"`
	GoldDir string `json:"gold_dir"`

	// Публичный адрес золотых файлов для индексов
	GoldBaseURL string `json:"gold_base_url"`
}

// LoadConfig загружает конфигурацию из переменных окружения
func LoadConfig() (*Config, error) {
	config := &Config{
		Port: getEnv("SERVER_PORT", "8080"),

		DatabasePath:    getEnv("DATABASE_PATH", "cityetl.db"),
		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),

		CKANBaseURL:     getEnv("CKAN_BASE_URL", "https://ckan0.cf.opendata.inter.prod-toronto.ca"),
		CKANTimeout:     getEnvDuration("CKAN_TIMEOUT", 30*time.Second),
		DownloadTimeout: getEnvDuration("CKAN_DOWNLOAD_TIMEOUT", 60*time.Second),

		RawDir:  getEnv("RAW_DIR", "data/raw"),
		GoldDir: getEnv("GOLD_DIR", "data/gold"),

		GoldBaseURL: getEnv("GOLD_BASE_URL", ""),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// getEnv получает переменную окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает переменную окружения как int или возвращает значение по умолчанию
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration получает переменную окружения как Duration или возвращает значение по умолчанию
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
