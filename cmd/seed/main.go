// Command seed stores demo profiles and prints a bearer token for each of them.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/Temutjin2k/ride-dispatch/config"
	repo "github.com/Temutjin2k/ride-dispatch/internal/adapter/postgres"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/auth"
	"github.com/Temutjin2k/ride-dispatch/pkg/postgres"
	"github.com/google/uuid"
)

var (
	configPath = flag.String("config-path", "config.yaml", "Path to the config yaml file")
	tokenTTL   = flag.Duration("token-ttl", 24*time.Hour, "Lifetime of the printed tokens")
)

func main() {
	flag.Parse()
	// config insists on a mode, seeding only needs the database
	if f := flag.Lookup("mode"); f != nil && f.Value.String() == "" {
		_ = flag.Set("mode", string(types.MigrateMode))
	}

	ctx := context.Background()

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	client, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	seedProfiles(repo.NewUserRepo(client.Pool), auth.NewTokenService(cfg.Auth.JWTSecret, *tokenTTL))
}

func seedProfiles(users *repo.UserRepo, tokens *auth.TokenService) {
	// short timeout for seed operations
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	profiles := []models.Profile{
		{ID: uuid.New(), Role: types.PassengerRole, Name: "Beka", Phone: "+77010000001", Rating: 5},
		{ID: uuid.New(), Role: types.PassengerRole, Name: "Aru", Phone: "+77010000002", Rating: 4.9},
		{ID: uuid.New(), Role: types.DriverRole, Name: "Mansur", Phone: "+77010000003", Rating: 4.8},
		{ID: uuid.New(), Role: types.DriverRole, Name: "Dana", Phone: "+77010000004", Rating: 5},
	}

	for _, p := range profiles {
		if err := users.SaveProfile(ctx, p); err != nil {
			log.Printf("failed to save %s: %v", p.Name, err)
			continue
		}

		token, err := tokens.Issue(models.Identity{UserID: p.ID, Role: p.Role})
		if err != nil {
			log.Printf("failed to issue token for %s: %v", p.Name, err)
			continue
		}
		fmt.Printf("%-9s %-7s %s\n  %s\n", p.Role, p.Name, p.ID, token)
	}
}
