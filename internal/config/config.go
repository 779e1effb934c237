package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`

	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER,required"`
	PostgresPassword string `env:"POSTGRES_PASSWORD,required"`
	PostgresDB       string `env:"POSTGRES_DB,required"`

	// CredentialSecret keys the voting-token MAC. Rotating it invalidates
	// every outstanding link.
	CredentialSecret string `env:"CREDENTIAL_SECRET,required"`

	// JWTSecret verifies admin capability tokens issued by the identity
	// collaborator.
	JWTSecret string `env:"JWT_SECRET,required"`

	ResultPrecision int `env:"RESULT_PRECISION" envDefault:"2"`
}

// Load reads .env when present, then parses the environment into a typed
// config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return &cfg, nil
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort, c.PostgresDB)
}
