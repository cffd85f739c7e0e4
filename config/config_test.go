package config

import (
	"errors"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

func validConfig() Config {
	return Config{
		Mode:    types.DispatchService,
		Log:     LogConfig{Level: "INFO"},
		Storage: StorageConfig{Driver: "memory"},
		Dispatch: DispatchConfig{
			SearchRadiusMeters:   10000,
			CandidateLimit:       5,
			ClaimTimeout:         10 * time.Second,
			DefaultPaymentMethod: "CASH",
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"migrate mode", func(c *Config) { c.Mode = types.MigrateMode }, false},
		{"unknown mode", func(c *Config) { c.Mode = "admin-service" }, true},
		{"bad log level", func(c *Config) { c.Log.Level = "LOUD" }, true},
		{"bad storage", func(c *Config) { c.Storage.Driver = "mongo" }, true},
		{"bad payment method", func(c *Config) { c.Dispatch.DefaultPaymentMethod = "BARTER" }, true},
		{"zero radius", func(c *Config) { c.Dispatch.SearchRadiusMeters = 0 }, true},
		{"zero claim timeout", func(c *Config) { c.Dispatch.ClaimTimeout = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateUnknownModeIsTyped(t *testing.T) {
	c := validConfig()
	c.Mode = "nope"
	if err := c.validate(); !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("got %v, want ErrUnknownMode", err)
	}
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", Database: "rides"}
	if got, want := db.GetDSN(), "postgres://u:p@db:5432/rides?sslmode=disable"; got != want {
		t.Errorf("GetDSN() = %q, want %q", got, want)
	}

	mq := RabbitMQConfig{Host: "mq", Port: "5672", User: "guest", Password: "guest"}
	if got, want := mq.GetDSN(), "amqp://guest:guest@mq:5672/"; got != want {
		t.Errorf("GetDSN() = %q, want %q", got, want)
	}
}
