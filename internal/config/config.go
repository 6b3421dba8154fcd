package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Supports environment variables with sensible defaults.
//
// Environment Variables:
// Data Configuration:
// - CAMREVIEW_EXPORT_FILE: caption export JSON file (required for audits)
// - CAMREVIEW_BATCH_DIR: directory of batch JSON files (video URL lists)
// - CAMREVIEW_LABELS_DIR: label collections root (cam_motion/, cam_setup/)
// - CAMREVIEW_ALL_LABELS: all_labels.json with per-label pos/neg video lists
// - CAMREVIEW_DATA_DIR: viewer dataset directory (default: ./data)
// - CAMREVIEW_VIDEO_DIR: video files directory (default: ./videos)
// - CAMREVIEW_ANNOTATIONS_DIR: annotation save directory (default: ./annotations)
// - CAMREVIEW_REPORT_DIR: analysis report output root (default: ./reports)
// - CAMREVIEW_DB_PATH: sqlite database path (default: ./camreview.db)
// - CAMREVIEW_TASKS_FILE: pairwise benchmark task config (classifier extraction)
// - CAMREVIEW_NAME_MAPPING: previous {label_name: label} mapping file
//
// Analysis Configuration:
// - RARE_LABEL_THRESHOLD: positive count below which a label is rare (default: 30)
// - ANALYSIS_WORKERS: parallel analysis job workers (default: 2)
// - CRON_EXPR: schedule for the recurring direct-edit audit (default: 0 0 * * *)
// - AUDIT_TARGET_USER: annotator audited by the scheduled run
// - TZ: timezone the cron schedule is evaluated in (default: UTC)
//
// HTTP Configuration:
// - HTTP_ADDR: listen address (default: :8080)
// - HTTP_UI_DIR: static UI directory
// - HTTP_UI_ENABLED: serve the static UI (default: false)
//
// LLM Configuration (global-edit classifier):
// - LLM_API_KEY: API key (optional; analysis disabled without it)
// - LLM_API_URL: API endpoint URL (default: https://openrouter.ai/api/v1)
// - LLM_MODEL: model name (default: openai/gpt-4o)
// - LLM_MAX_TOKENS: max response tokens (default: 2000)
// - LLM_TEMPERATURE: sampling temperature (default: 0.0)
// - LLM_TIMEOUT: request timeout in seconds (default: 60)

type Config struct {
	Data     DataConfig     `json:"data"`
	Analysis AnalysisConfig `json:"analysis"`
	HTTP     HTTPConfig     `json:"http"`
	LLM      LLMConfig      `json:"llm"`
}

// DataConfig holds paths to the annotation pipeline artifacts.
type DataConfig struct {
	ExportFile     string `json:"export_file"`
	BatchDir       string `json:"batch_dir"`
	LabelsDir      string `json:"labels_dir"`
	AllLabelsFile  string `json:"all_labels_file"`
	DataDir        string `json:"data_dir"`
	VideoDir       string `json:"video_dir"`
	AnnotationsDir string `json:"annotations_dir"`
	ReportDir      string `json:"report_dir"`
	DBPath         string `json:"db_path"`
	TasksFile      string `json:"tasks_file"`
	NameMapping    string `json:"name_mapping"`
}

// AnalysisConfig holds knobs for the analysis jobs.
type AnalysisConfig struct {
	RareLabelThreshold int    `json:"rare_label_threshold"`
	Workers            int    `json:"workers"`
	CronExpr           string `json:"cron_expr"`
	AuditTargetUser    string `json:"audit_target_user"`
	TZ                 string `json:"tz"`
}

// HTTPConfig holds the viewer server configuration.
type HTTPConfig struct {
	Addr      string `json:"addr"`
	UIDir     string `json:"ui_dir"`
	UIEnabled bool   `json:"ui_enabled"`
}

// LLMConfig holds the configuration for the LLM client.
// Supports any OpenAI-compatible provider.
type LLMConfig struct {
	APIKey      string  `json:"api_key"`
	APIURL      string  `json:"api_url"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Timeout     int     `json:"timeout"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		Data: DataConfig{
			ExportFile:     getEnvString("CAMREVIEW_EXPORT_FILE", ""),
			BatchDir:       getEnvString("CAMREVIEW_BATCH_DIR", ""),
			LabelsDir:      getEnvString("CAMREVIEW_LABELS_DIR", ""),
			AllLabelsFile:  getEnvString("CAMREVIEW_ALL_LABELS", ""),
			DataDir:        getEnvString("CAMREVIEW_DATA_DIR", "./data"),
			VideoDir:       getEnvString("CAMREVIEW_VIDEO_DIR", "./videos"),
			AnnotationsDir: getEnvString("CAMREVIEW_ANNOTATIONS_DIR", "./annotations"),
			ReportDir:      getEnvString("CAMREVIEW_REPORT_DIR", "./reports"),
			DBPath:         getEnvString("CAMREVIEW_DB_PATH", "./camreview.db"),
			TasksFile:      getEnvString("CAMREVIEW_TASKS_FILE", ""),
			NameMapping:    getEnvString("CAMREVIEW_NAME_MAPPING", ""),
		},
		Analysis: AnalysisConfig{
			RareLabelThreshold: getEnvInt("RARE_LABEL_THRESHOLD", 30),
			Workers:            getEnvInt("ANALYSIS_WORKERS", 2),
			CronExpr:           getEnvString("CRON_EXPR", "0 0 * * *"),
			AuditTargetUser:    getEnvString("AUDIT_TARGET_USER", ""),
			TZ:                 getEnvString("TZ", "UTC"),
		},
		HTTP: HTTPConfig{
			Addr:      getEnvString("HTTP_ADDR", ":8080"),
			UIDir:     getEnvString("HTTP_UI_DIR", ""),
			UIEnabled: getEnvBool("HTTP_UI_ENABLED", false),
		},
		LLM: LLMConfig{
			APIKey:      getEnvString("LLM_API_KEY", ""),
			APIURL:      getEnvString("LLM_API_URL", "https://openrouter.ai/api/v1"),
			Model:       getEnvString("LLM_MODEL", "openai/gpt-4o"),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 2000),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0.0),
			Timeout:     getEnvInt("LLM_TIMEOUT", 60),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if c.Data.DataDir == "" {
		return fmt.Errorf("CAMREVIEW_DATA_DIR is required")
	}
	if c.Data.ReportDir == "" {
		return fmt.Errorf("CAMREVIEW_REPORT_DIR is required")
	}
	if c.Analysis.RareLabelThreshold <= 0 {
		return fmt.Errorf("RARE_LABEL_THRESHOLD must be positive")
	}
	if c.Analysis.Workers <= 0 {
		return fmt.Errorf("ANALYSIS_WORKERS must be positive")
	}
	return nil
}

// Location resolves the configured timezone. Unknown names fall back to UTC
// so a bad TZ cannot silently shift the schedule to the host zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Analysis.TZ)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean value from environment variables with default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
