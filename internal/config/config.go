// Package config resolves the source and destination store settings from the
// environment, optionally seeded from a .env file.
//
// Each side reads <PREFIX>POSTGRES_USER, _PASSWORD, _SERVER, _PORT and _DB with
// the defaults admin, password, localhost, 5432 and ghdb. <PREFIX>DATABASE_URL
// replaces all of them and may name any postgres, mysql or sqlite URL.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"flowclone/internal/infra/persistence"
)

// Side prefixes.
const (
	SourcePrefix = "SRC_"
	DestPrefix   = "DST_"
)

// ForbiddenHostsEnv extends the built-in deny-list (comma separated).
const ForbiddenHostsEnv = "FLOWCLONE_FORBIDDEN_HOSTS"

// ErrForbiddenHost rejects a destination that points at a production database.
var ErrForbiddenHost = errors.New("destination host is forbidden")

// defaultForbiddenHosts are production databases that must never receive clones.
var defaultForbiddenHosts = []string{"ghdb.ghdna.io", "10.4.170.26"}

// Side is the connection settings of one store.
type Side struct {
	User     string
	Password string
	Server   string
	Port     string
	Database string
	// URL overrides the discrete settings when set.
	URL string
}

// Config holds both sides and the destination deny-list.
type Config struct {
	Source         Side
	Dest           Side
	ForbiddenHosts []string
}

// LoadEnvFile merges path into the process environment. Variables already set win
// and a missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// FromEnv reads both sides through getenv (os.Getenv when nil).
func FromEnv(getenv func(string) string) Config {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := Config{
		Source:         sideFromEnv(getenv, SourcePrefix),
		Dest:           sideFromEnv(getenv, DestPrefix),
		ForbiddenHosts: append([]string{}, defaultForbiddenHosts...),
	}
	for _, h := range strings.Split(getenv(ForbiddenHostsEnv), ",") {
		if h = strings.TrimSpace(h); h != "" {
			cfg.ForbiddenHosts = append(cfg.ForbiddenHosts, h)
		}
	}
	return cfg
}

func sideFromEnv(getenv func(string) string, prefix string) Side {
	get := func(key, def string) string {
		if v := getenv(prefix + key); v != "" {
			return v
		}
		return def
	}
	return Side{
		User:     get("POSTGRES_USER", "admin"),
		Password: get("POSTGRES_PASSWORD", "password"),
		Server:   get("POSTGRES_SERVER", "localhost"),
		Port:     get("POSTGRES_PORT", "5432"),
		Database: get("POSTGRES_DB", "ghdb"),
		URL:      getenv(prefix + "DATABASE_URL"),
	}
}

// DatabaseURL renders the side as a URL understood by persistence.Resolve.
func (s Side) DatabaseURL() string {
	if s.URL != "" {
		return s.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(s.User, s.Password),
		Host:     net.JoinHostPort(s.Server, s.Port),
		Path:     "/" + s.Database,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Redacted is DatabaseURL with the password masked, for logs.
func (s Side) Redacted() string {
	u, err := url.Parse(s.DatabaseURL())
	if err != nil {
		return "<unparseable>"
	}
	return u.Redacted()
}

// Resolve parses both sides and enforces the deny-list on the destination before
// any connection is attempted.
func (c Config) Resolve() (source, dest persistence.Target, err error) {
	source, err = persistence.Resolve(c.Source.DatabaseURL())
	if err != nil {
		return persistence.Target{}, persistence.Target{}, fmt.Errorf("source: %w", err)
	}
	dest, err = persistence.Resolve(c.Dest.DatabaseURL())
	if err != nil {
		return persistence.Target{}, persistence.Target{}, fmt.Errorf("destination: %w", err)
	}
	if c.Forbidden(dest.Host) {
		return persistence.Target{}, persistence.Target{}, fmt.Errorf("%s: %w", dest.Host, ErrForbiddenHost)
	}
	return source, dest, nil
}

// Forbidden reports whether host is on the deny-list.
func (c Config) Forbidden(host string) bool {
	host = strings.TrimSpace(host)
	if host == "" {
		return false
	}
	for _, h := range c.ForbiddenHosts {
		if strings.EqualFold(h, host) {
			return true
		}
	}
	return false
}
