// Package config provides configuration for the decision-support backend.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the backend configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Audit database
	DatabaseURL string

	// External model pipeline
	PythonBin     string
	ModelWorkDir  string
	BaselinesDir  string
	WeightsPath   string
	ModelScript   string
	ConvertScript string
	KeywordScript string
	ClusterScript string

	// Pipeline artifacts
	ResultPath           string
	NamedResultPath      string
	FeedbackResponsePath string

	// Local artifact storage
	UploadDir string

	// Timeouts / lifetimes
	StageTimeout time.Duration
	SessionTTL   time.Duration // 0 disables session expiry
}

// Load loads configuration from environment variables. A local .env file is
// applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	base := getEnv("BASELINES_DIR", "/root/workspace/GraphCare/ehr_baselines/SparseTest")

	cfg := &Config{
		HTTPPort:     getEnvInt("HTTP_PORT", 8000),
		DatabaseURL:  getEnv("DATABASE_URL", "file:audit.db?cache=shared&mode=rwc"),
		PythonBin:    getEnv("PYTHON_BIN", "python3"),
		ModelWorkDir: getEnv("MODEL_WORK_DIR", base),
		BaselinesDir: base,
		WeightsPath:  getEnv("WEIGHTS_PATH", "/root/workspace/GraphCare/data/weights/saved_weights_mimic3_drugrec_sparse.pkl"),
		UploadDir:    getEnv("UPLOAD_DIR", "uploads"),
		StageTimeout: time.Duration(getEnvInt("STAGE_TIMEOUT_MS", 600000)) * time.Millisecond,
		SessionTTL:   time.Duration(getEnvInt("SESSION_TTL_MS", 0)) * time.Millisecond,
	}

	cfg.ModelScript = getEnv("MODEL_SCRIPT", filepath.Join(base, "runSparseModel.py"))
	cfg.ConvertScript = getEnv("CONVERT_SCRIPT", filepath.Join(base, "utils", "convert_indices_to_code.py"))
	cfg.KeywordScript = getEnv("KEYWORD_SCRIPT", filepath.Join(base, "utils", "feedback", "keyword_extractor.py"))
	cfg.ClusterScript = getEnv("CLUSTER_SCRIPT", filepath.Join(base, "utils", "feedback", "cluster_mapper.py"))
	cfg.ResultPath = getEnv("RESULT_PATH", filepath.Join(base, "result", "inference_result.json"))
	cfg.NamedResultPath = getEnv("NAMED_RESULT_PATH", filepath.Join(base, "result", "inference_result_with_names.json"))
	cfg.FeedbackResponsePath = getEnv("FEEDBACK_RESPONSE_PATH", filepath.Join(base, "utils", "feedback", "result", "response.txt"))

	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
