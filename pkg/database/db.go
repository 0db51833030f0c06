package database

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

type Config struct {
	Driver         string
	DSN            string
	MaxConns       int
	Timeout        time.Duration
	TimeZone       string
	ClientEncoding string
}

// ConfigFromEnv reads DB config from environment variables. DATABASE_URL wins
// over the individual DATABASE_HOST/PORT/USER/PASS/NAME parts.
func ConfigFromEnv() Config {
	driver := strings.ToLower(os.Getenv("DATABASE_DRIVER"))
	if driver == "" {
		driver = DriverPostgres
	}
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		if driver == DriverSQLite {
			dsn = "file:app.db"
		} else {
			dsn = postgresURL(
				getenv("DATABASE_USER", "postgres"),
				os.Getenv("DATABASE_PASS"),
				getenv("DATABASE_HOST", "127.0.0.1"),
				getenv("DATABASE_PORT", "5432"),
				getenv("DATABASE_NAME", "postgres"),
			)
		}
	}
	max := 10
	if v, err := strconv.Atoi(os.Getenv("DATABASE_MAX_CONNS")); err == nil && v > 0 {
		max = v
	}
	tz := os.Getenv("DATABASE_TIMEZONE")
	enc := os.Getenv("DATABASE_CLIENT_ENCODING")
	return Config{Driver: driver, DSN: dsn, MaxConns: max, Timeout: 5 * time.Second, TimeZone: tz, ClientEncoding: enc}
}

func postgresURL(user, pass, host, port, name string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, pass),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Connect opens the pool and verifies connectivity with a ping.
func Connect(cfg Config) (*sqlx.DB, error) {
	switch cfg.Driver {
	case DriverPostgres, "":
		return connectPostgres(cfg)
	case DriverSQLite:
		return connectSQLite(cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func connectPostgres(cfg Config) (*sqlx.DB, error) {
	dsn, err := withSessionParams(cfg.DSN, cfg.TimeZone, cfg.ClientEncoding)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(DriverPostgres, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := ping(db, cfg.Timeout); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// withSessionParams adds time zone and client encoding to a postgres DSN.
// lib/pq sends them in every startup packet, so each pooled connection
// gets them. Both URL and key=value DSNs are accepted.
func withSessionParams(dsn, tz, enc string) (string, error) {
	if tz == "" && enc == "" {
		return dsn, nil
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		q := u.Query()
		if tz != "" {
			q.Set("timezone", tz)
		}
		if enc != "" {
			q.Set("client_encoding", enc)
		}
		u.RawQuery = q.Encode()
		return u.String(), nil
	}
	parts := []string{}
	if strings.TrimSpace(dsn) != "" {
		parts = append(parts, dsn)
	}
	if tz != "" {
		parts = append(parts, "timezone="+quoteValue(tz))
	}
	if enc != "" {
		parts = append(parts, "client_encoding="+quoteValue(enc))
	}
	return strings.Join(parts, " "), nil
}

// connectSQLite pins the pool to one connection: an in-memory database only
// lives as long as its connection, and SQLite serialises writers anyway.
func connectSQLite(cfg Config) (*sqlx.DB, error) {
	db, err := sqlx.Open(DriverSQLite, withForeignKeys(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := ping(db, cfg.Timeout); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

func ping(db *sqlx.DB, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}
	return nil
}

// quoteValue quotes a key=value DSN value the way lib/pq parses it.
func quoteValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}
