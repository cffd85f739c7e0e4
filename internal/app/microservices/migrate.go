package microservices

import (
	"context"
	"errors"

	"github.com/Temutjin2k/ride-dispatch/config"
	repo "github.com/Temutjin2k/ride-dispatch/internal/adapter/postgres"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/Temutjin2k/ride-dispatch/pkg/postgres"
)

// MigrateService applies the embedded schema and exits.
type MigrateService struct {
	postgresDB *postgres.PostgreDB
	log        logger.Logger
}

func NewMigrate(ctx context.Context, cfg config.Config, log logger.Logger) (*MigrateService, error) {
	if cfg.Storage.Driver != "postgres" {
		return nil, errors.New("migrate mode requires the postgres storage driver")
	}

	db, err := openPostgres(ctx, cfg)
	if err != nil {
		log.Error(ctx, "Failed to setup database", err)
		return nil, err
	}

	return &MigrateService{postgresDB: db, log: log}, nil
}

func (s *MigrateService) Start(ctx context.Context) error {
	defer s.postgresDB.Close()

	return repo.Migrate(ctx, s.postgresDB.Pool, s.log)
}
