// Package config builds the process configuration once, at start up, from
// the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ovaphlow/pitchfork/service-crud-api/internal/auth"
	"github.com/ovaphlow/pitchfork/service-crud-api/internal/notify"
	"github.com/ovaphlow/pitchfork/service-crud-api/pkg/database"
	"github.com/ovaphlow/pitchfork/service-crud-api/pkg/utilities"
)

type App struct {
	Name string
	Addr string
}

type Config struct {
	App         App
	Database    database.Config
	Log         utilities.Config
	Token       auth.TokenConfig
	BcryptCost  int
	CORSOrigins []string
	Notify      notify.Config
}

// Load reads the environment. Call godotenv.Load first to pick up a .env file.
func Load() (*Config, error) {
	secret := os.Getenv("SECRET_KEY")
	if secret == "" {
		return nil, errors.New("SECRET_KEY is required")
	}

	alg := strings.ToUpper(getenv("ALGORITHM", "HS256"))
	switch alg {
	case "HS256", "HS384", "HS512":
	default:
		return nil, fmt.Errorf("ALGORITHM %q is not an HMAC algorithm", alg)
	}

	minutes, err := intEnv("ACCESS_TOKEN_EXPIRE_MINUTES", 60)
	if err != nil {
		return nil, err
	}
	if minutes <= 0 {
		return nil, fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive, got %d", minutes)
	}

	cost, err := intEnv("BCRYPT_COST", auth.DefaultBcryptCost)
	if err != nil {
		return nil, err
	}
	if cost < 4 || cost > 31 {
		return nil, fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", cost)
	}

	appName := getenv("APP_NAME", "service-crud-api")
	db := database.ConfigFromEnv()
	switch db.Driver {
	case database.DriverPostgres, database.DriverSQLite:
	default:
		return nil, fmt.Errorf("DATABASE_DRIVER %q is not supported", db.Driver)
	}

	return &Config{
		App:      App{Name: appName, Addr: getenv("ADDR", "0.0.0.0:8431")},
		Database: db,
		Log:      utilities.ConfigFromEnv(),
		Token: auth.TokenConfig{
			Secret:         secret,
			Algorithm:      alg,
			AccessTokenTTL: time.Duration(minutes) * time.Minute,
		},
		BcryptCost:  cost,
		CORSOrigins: splitList(os.Getenv("CORS_ORIGINS")),
		Notify: notify.Config{
			AppName:    appName,
			SMTPServer: os.Getenv("SMTP_SERVER"),
			SMTPUser:   os.Getenv("SMTP_USER"),
			SMTPPass:   os.Getenv("SMTP_PASS"),
			Sender:     getenv("EMAIL_SENDER", "no-reply@app.com"),
		},
	}, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
