package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/Harshitk-cp/prospector/internal/domain"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads the .env file specified by PROSPECTOR_ENV (or .env by
// default), then loads the corresponding .secret file if it exists.
// All flat config is env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("PROSPECTOR_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Ignore errors if the files don't exist
	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// LedgerBackend selects the belief ledger storage backend.
// Valid values: postgres (default), badger.
func LedgerBackend() string {
	b := os.Getenv("LEDGER_BACKEND")
	if b == "" {
		return "postgres"
	}
	return b
}

// BadgerLedgerPath is the directory for the badger ledger backend.
func BadgerLedgerPath() string {
	p := os.Getenv("BADGER_LEDGER_PATH")
	if p == "" {
		return "data/ledger"
	}
	return p
}

// TemplateDir holds the hypothesis template YAML files.
func TemplateDir() string {
	d := os.Getenv("TEMPLATE_DIR")
	if d == "" {
		return "templates"
	}
	return d
}

// JudgeProvider returns the configured verdict provider.
// Valid values: http, mock. Defaults to "mock".
func JudgeProvider() string {
	p := os.Getenv("JUDGE_PROVIDER")
	if p == "" {
		return "mock"
	}
	return p
}

func JudgeEndpoint() string {
	return os.Getenv("JUDGE_ENDPOINT")
}

func JudgeAPIKey() string {
	return os.Getenv("JUDGE_API_KEY")
}

// EvidenceProvider returns the configured evidence collector.
// Valid values: http, mock. Defaults to "mock".
func EvidenceProvider() string {
	p := os.Getenv("EVIDENCE_PROVIDER")
	if p == "" {
		return "mock"
	}
	return p
}

func EvidenceEndpoint() string {
	return os.Getenv("EVIDENCE_ENDPOINT")
}

func EvidenceAPIKey() string {
	return os.Getenv("EVIDENCE_API_KEY")
}

// ReportWebhookURL is where iteration reports are forwarded. Empty means
// reports are only logged.
func ReportWebhookURL() string {
	return os.Getenv("REPORT_WEBHOOK_URL")
}

// RateLimitRPS returns requests per second limit. Defaults to 100.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting. Defaults to 20.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// TuningPath points at a tuner artifact (JSON or YAML). Empty means use
// the built-in defaults.
func TuningPath() string {
	return os.Getenv("TUNING_PATH")
}

// LoadTuning reads, parses and validates the tuning artifact at path. An
// invalid artifact is rejected whole; nothing is partially applied.
func LoadTuning(path string) (domain.TuningConfig, error) {
	cfg := domain.DefaultTuningConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read tuning artifact: %w", err)
	}

	if json.Valid(data) {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return domain.DefaultTuningConfig(), fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return domain.DefaultTuningConfig(), err
	}
	return cfg, nil
}
