package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration for the assessment engine.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"softskills-quiz-engine"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres  Postgres
	Redis     Redis
	Study     Study
	Questions Questions
	Scorer    Scorer
	Runtime   Runtime
}

// Postgres captures connection info for the results archive database.
type Postgres struct {
	Host     string `env:"PG_HOST" envDefault:"localhost"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER"`
	Password string `env:"PG_PASSWORD"`
	Database string `env:"PG_DATABASE"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
}

// Enabled reports whether archive persistence is configured.
func (p Postgres) Enabled() bool {
	return p.User != "" && p.Database != ""
}

// DSN renders the keyword/value connection string pgx expects.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// Redis holds snapshot-store configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Study stores secrets for the signed study-token flow.
type Study struct {
	TokenSecret string `env:"STUDY_TOKEN_SECRET,notEmpty"`
	Issuer      string `env:"STUDY_TOKEN_ISSUER" envDefault:"softskills-study"`
}

// Questions configures the question-source service.
type Questions struct {
	BaseURL     string        `env:"QUESTION_SOURCE_URL,notEmpty"`
	APIKey      string        `env:"QUESTION_SOURCE_API_KEY"`
	HTTPTimeout time.Duration `env:"QUESTION_FETCH_TIMEOUT" envDefault:"6s"`
}

// Scorer configures the external scoring/coaching backend. The completion
// and session-plan endpoints live on the same service.
type Scorer struct {
	BaseURL     string        `env:"SCORER_URL,notEmpty"`
	APIKey      string        `env:"SCORER_API_KEY"`
	HTTPTimeout time.Duration `env:"SCORER_HTTP_TIMEOUT" envDefault:"30s"`
}

// Runtime groups assessment defaults.
type Runtime struct {
	SecondsPerQuestion time.Duration `env:"SECONDS_PER_QUESTION" envDefault:"180s"`
	OpenAnswerMinLen   int           `env:"OPEN_ANSWER_MIN_LEN" envDefault:"20"`
	SnapshotTTL        time.Duration `env:"PROGRESS_SNAPSHOT_TTL" envDefault:"720h"`
}

// Load parses environment variables into App config.
func Load() (*App, error) {
	cfg := &App{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
