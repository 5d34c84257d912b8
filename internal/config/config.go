package config

import (
	"fmt"
	"os"

	"faturas/internal/logger"
)

type Config struct {
	// Google Cloud Configuration
	GoogleCloudProject         string
	GoogleCloudLocation        string
	DocumentAIProcessorID      string
	DocumentAIProcessorVersion string
	GoogleServiceAccountKey    string

	// Storage Configuration
	UploadDir string
	OutputDir string

	// HTTP Server Configuration
	HTTPAddr string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load reads the configuration from the environment. Only the logging
// and storage settings are validated here; cloud credentials are
// checked by ValidateCloud so that commands working on already-saved
// OCR output run without any Google Cloud setup.
func Load() (*Config, error) {
	config := &Config{
		GoogleCloudProject:         getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:        getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID:      getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		DocumentAIProcessorVersion: getEnv("DOCUMENT_AI_PROCESSOR_VERSION", ""),
		GoogleServiceAccountKey:    getEnv("GOOGLE_SERVICE_ACCOUNT_KEY", ""),
		UploadDir:                  getEnv("UPLOAD_DIR", "uploads"),
		OutputDir:                  getEnv("OUTPUT_DIR", "normalized_output"),
		HTTPAddr:                   getEnv("HTTP_ADDR", ":5000"),
		LogLevel:                   getEnv("LOG_LEVEL", "info"),
		LogFormat:                  getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:              getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:                  getEnv("LOG_OUTPUT", "stdout"),
	}

	if config.UploadDir == "" {
		return nil, fmt.Errorf("UPLOAD_DIR must not be empty")
	}
	if config.OutputDir == "" {
		return nil, fmt.Errorf("OUTPUT_DIR must not be empty")
	}

	return config, nil
}

// ValidateCloud checks the settings required to call Document AI.
func (c *Config) ValidateCloud() error {
	if c.GoogleCloudProject == "" {
		return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required")
	}
	if c.DocumentAIProcessorID == "" {
		return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
