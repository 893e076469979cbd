package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"go-smear-analyzer/pkg/models"
	"go-smear-analyzer/pkg/validation"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	ImageFetchTimeout  time.Duration
	AnalysisTimeout    time.Duration
	MaxRequestBodySize int64

	// StorageBackend selects where smear images are fetched from:
	// "http" or "azure".
	StorageBackend     string
	AzureAccountName   string
	AzureAccountKey    string
	AzureContainerName string

	// DatabaseURL enables the Postgres analysis store when set; the
	// in-memory store is used otherwise.
	DatabaseURL string

	// DetectorURL and ClassifierURL point at the external model services.
	// Either may be empty, in which case the corresponding report sections
	// come out empty.
	DetectorURL   string
	ClassifierURL string

	Validation  validation.ValidationLimits
	Calibration models.Calibration
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

func LoadFromEnv() (*Config, error) {
	limits := validation.DefaultValidationLimits()
	limits.MaxFileBytes = parseIntOrDefault("MAX_FILE_BYTES", limits.MaxFileBytes)
	limits.MinWidth = int(parseIntOrDefault("MIN_IMAGE_WIDTH", int64(limits.MinWidth)))
	limits.MinHeight = int(parseIntOrDefault("MIN_IMAGE_HEIGHT", int64(limits.MinHeight)))
	limits.MinBloodContent = parseFloatOrDefault("MIN_BLOOD_CONTENT", limits.MinBloodContent)

	calib := models.DefaultCalibration()
	calib.PixelSizeUm = parseFloatOrDefault("PIXEL_SIZE_UM", calib.PixelSizeUm)
	calib.DilutionFactor = parseFloatOrDefault("DILUTION_FACTOR", calib.DilutionFactor)
	calib.DepthCor = parseFloatOrDefault("DEPTH_CORRECTION", calib.DepthCor)

	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		ImageFetchTimeout:  parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", 15*time.Second),
		AnalysisTimeout:    parseDurationOrDefault("ANALYSIS_TIMEOUT", 60*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 64*1024*1024),
		StorageBackend:     getEnvOrDefault("STORAGE_BACKEND", "http"),
		AzureAccountName:   os.Getenv("AZURE_ACCOUNT_NAME"),
		AzureAccountKey:    os.Getenv("AZURE_ACCOUNT_KEY"),
		AzureContainerName: getEnvOrDefault("AZURE_CONTAINER_NAME", "smears"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		DetectorURL:        os.Getenv("DETECTOR_URL"),
		ClassifierURL:      os.Getenv("CLASSIFIER_URL"),
		Validation:         limits,
		Calibration:        calib,
	}

	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.MaxRequestBodySize <= 0 {
		return nil, fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", cfg.MaxRequestBodySize)
	}
	if cfg.RequestTimeout <= 0 || cfg.ImageFetchTimeout <= 0 || cfg.AnalysisTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, analysis=%s)",
			cfg.RequestTimeout, cfg.ImageFetchTimeout, cfg.AnalysisTimeout)
	}
	switch cfg.StorageBackend {
	case "http":
	case "azure":
		if cfg.AzureAccountName == "" || cfg.AzureAccountKey == "" {
			return nil, fmt.Errorf("AZURE_ACCOUNT_NAME and AZURE_ACCOUNT_KEY are required when STORAGE_BACKEND=azure")
		}
	default:
		return nil, fmt.Errorf("invalid STORAGE_BACKEND: %q", cfg.StorageBackend)
	}
	if cfg.Validation.MinBloodContent < 0 || cfg.Validation.MinBloodContent >= 1 {
		return nil, fmt.Errorf("MIN_BLOOD_CONTENT must be in [0,1) (got %g)", cfg.Validation.MinBloodContent)
	}
	if cfg.Calibration.PixelSizeUm <= 0 || cfg.Calibration.DilutionFactor <= 0 || cfg.Calibration.DepthCor <= 0 {
		return nil, fmt.Errorf("calibration constants must be > 0 (got pixel=%g, dilution=%g, depth=%g)",
			cfg.Calibration.PixelSizeUm, cfg.Calibration.DilutionFactor, cfg.Calibration.DepthCor)
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
