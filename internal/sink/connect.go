package sink

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"mktyield/internal/config"
	apperrors "mktyield/internal/errors"
	"mktyield/internal/security"
)

// ConnProvider hands out a dedicated connection; *sql.DB satisfies it
type ConnProvider interface {
	Conn(ctx context.Context) (*sql.Conn, error)
}

// SecretSource looks up a named secret such as the password passphrase
type SecretSource func(key string) string

// EnvSecrets reads secrets from the process environment
var EnvSecrets SecretSource = os.Getenv

// Open builds a connection pool for cfg and verifies it with a ping
func Open(ctx context.Context, cfg config.SinkConfig, secrets SecretSource) (*sql.DB, Dialect, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, "", apperrors.NewConfigError("invalid sink", err)
	}

	dsn, err := DataSourceName(cfg, secrets)
	if err != nil {
		return nil, "", err
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, "", apperrors.NewConnectivityError("failed to open database", err)
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, "", apperrors.NewConnectivityError("failed to connect to database", err).
			WithContext("driver", cfg.Driver)
	}

	return db, dialect, nil
}

// DataSourceName returns cfg.DSN when set, otherwise builds a postgres URL
// from the discrete fields, decrypting the password if it is stored encrypted
func DataSourceName(cfg config.SinkConfig, secrets SecretSource) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.Driver != config.DriverPostgres {
		return "", apperrors.NewConfigError("sink dsn is required for driver "+cfg.Driver, nil)
	}

	password, err := resolvePassword(cfg, secrets)
	if err != nil {
		return "", err
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   cfg.Host,
		Path:   "/" + cfg.Database,
	}
	if cfg.Port > 0 {
		u.Host = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}
	if password != "" {
		u.User = url.UserPassword(cfg.User, password)
	} else {
		u.User = url.User(cfg.User)
	}

	q := url.Values{}
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	if cfg.ConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(cfg.ConnectTimeout.Seconds())))
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func resolvePassword(cfg config.SinkConfig, secrets SecretSource) (string, error) {
	if cfg.EncryptedPassword == "" {
		return cfg.Password, nil
	}
	if secrets == nil {
		secrets = EnvSecrets
	}

	passphrase := secrets(cfg.PassphraseEnv)
	if passphrase == "" {
		return "", apperrors.NewConfigError("passphrase for encrypted sink password is not set", nil).
			WithContext("env", cfg.PassphraseEnv)
	}

	password, err := security.DecryptSecret(cfg.EncryptedPassword, passphrase, nil)
	if err != nil {
		return "", apperrors.NewConfigError("failed to decrypt sink password", err)
	}
	return password, nil
}
