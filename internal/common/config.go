package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Extraction ExtractionConfig
	OCR        OCRConfig
	LLM        LLMConfig
	Output     OutputConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ExtractionConfig holds the tunables of the extraction engine.
type ExtractionConfig struct {
	MaxSpatialDistance float64
	MinConfidence      float64
	UseLLM             bool
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	TesseractLang string
	TessdataDir   string
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
}

// OutputConfig holds output formatting configuration
type OutputConfig struct {
	Format string // "json" | "csv" | "xlsx"
	Dir    string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Extraction: ExtractionConfig{
			MaxSpatialDistance: getEnvAsFloat64("CHIRASHI_MAX_SPATIAL_DISTANCE", 150),
			MinConfidence:      getEnvAsFloat64("CHIRASHI_MIN_CONFIDENCE", 0.4),
			UseLLM:             getEnvAsBool("CHIRASHI_USE_LLM", true),
		},
		OCR: OCRConfig{
			TesseractLang: getEnv("TESSERACT_LANG", "jpn"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
		},
		LLM: LLMConfig{
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", ""),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
		},
		Output: OutputConfig{
			Format: getEnv("CHIRASHI_OUTPUT_FORMAT", "json"),
			Dir:    getEnv("CHIRASHI_OUTPUT_DIR", "output"),
		},
	}
}

// fileConfig mirrors the YAML config file shape. Only set fields override.
type fileConfig struct {
	MaxSpatialDistance *float64 `yaml:"max_spatial_distance"`
	MinConfidence      *float64 `yaml:"min_confidence_threshold"`
	UseLLM             *bool    `yaml:"use_llm"`
	OutputFormat       *string  `yaml:"output_format"`
	OutputDir          *string  `yaml:"output_dir"`
	TesseractLang      *string  `yaml:"tesseract_lang"`
	LLMModel           *string  `yaml:"llm_model"`
	DatabaseDSN        *string  `yaml:"database_dsn"`
}

// MergeFile overlays values from a YAML config file onto c.
func (c *Config) MergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return WrapError(err, "read config file")
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return WrapError(err, "parse config file")
	}
	if fc.MaxSpatialDistance != nil {
		c.Extraction.MaxSpatialDistance = *fc.MaxSpatialDistance
	}
	if fc.MinConfidence != nil {
		c.Extraction.MinConfidence = *fc.MinConfidence
	}
	if fc.UseLLM != nil {
		c.Extraction.UseLLM = *fc.UseLLM
	}
	if fc.OutputFormat != nil {
		c.Output.Format = *fc.OutputFormat
	}
	if fc.OutputDir != nil {
		c.Output.Dir = *fc.OutputDir
	}
	if fc.TesseractLang != nil {
		c.OCR.TesseractLang = *fc.TesseractLang
	}
	if fc.LLMModel != nil {
		c.LLM.Model = *fc.LLMModel
	}
	if fc.DatabaseDSN != nil {
		c.Database.DSN = *fc.DatabaseDSN
	}
	return nil
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Extraction.MaxSpatialDistance <= 0 {
		return NewAppError("CONFIG_ERROR", "max spatial distance must be positive", ErrInvalidInput)
	}
	if c.Extraction.MinConfidence < 0 || c.Extraction.MinConfidence > 1 {
		return NewAppError("CONFIG_ERROR", "min confidence must be in [0,1]", ErrInvalidInput)
	}
	switch c.Output.Format {
	case "json", "csv", "xlsx":
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unsupported output format: %q", c.Output.Format), ErrInvalidInput)
	}
	if c.Extraction.UseLLM && c.LLM.APIKey == "" {
		// not fatal: extraction degrades to geometric matches without a key
		c.Extraction.UseLLM = false
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
