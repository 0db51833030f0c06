// Command seed creates the initial superuser and admin accounts.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-crud-api/internal/auth"
	"github.com/ovaphlow/pitchfork/service-crud-api/internal/config"
	"github.com/ovaphlow/pitchfork/service-crud-api/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-crud-api/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-crud-api/pkg/database"
	"github.com/ovaphlow/pitchfork/service-crud-api/pkg/utilities"
)

var initialUsers = []entity.UserCreate{
	{Username: "superuser", Email: "superuser@example.com"},
	{Username: "admin", Email: "admin@example.com"},
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	lg, err := utilities.Init(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()
	sugar := lg.Sugar()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := database.Migrate(ctx, db, sugar); err != nil {
		sugar.Fatalf("migrate: %v", err)
	}

	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		password = "123"
	}
	repo := userrepo.NewUserRepo(db, auth.BcryptHasher{Cost: cfg.BcryptCost}, sugar)
	if err := seed(ctx, repo, password, sugar); err != nil {
		sugar.Fatalf("seed: %v", err)
	}
}

func seed(ctx context.Context, repo *userrepo.UserRepo, password string, logger *zap.SugaredLogger) error {
	for _, in := range initialUsers {
		existing, err := repo.FindByUsername(ctx, in.Username)
		if err != nil {
			return err
		}
		if existing != nil {
			logger.Infow("user exists, skipping", "username", in.Username)
			continue
		}
		in.Password = password
		u, err := repo.Register(ctx, in)
		if err != nil {
			return fmt.Errorf("register %s: %w", in.Username, err)
		}
		logger.Infow("user created", "id", u.ID, "username", u.Username)
	}
	return nil
}
