package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := populate(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// populate walks the struct and fills tagged fields from the environment.
// Nested structs are descended into; untagged leaves are left alone.
func populate(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct {
			if err := populate(fieldVal); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}

		value, ok := lookup(envName, field.Tag.Get("envAlt"))
		if !ok {
			if field.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}

		if err := assign(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// lookup returns the first non-empty value among the primary and alternate names.
func lookup(primary, alt string) (string, bool) {
	if v := os.Getenv(primary); v != "" {
		return v, true
	}
	if alt != "" {
		if v := os.Getenv(alt); v != "" {
			return v, true
		}
	}
	return "", false
}

// assign parses value into field according to its kind.
func assign(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == durationType {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(n)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		var items []string
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				items = append(items, p)
			}
		}
		field.Set(reflect.ValueOf(items))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate reports every invalid setting at once, joined with errors.Join.
func (c *Config) Validate() error {
	var errs []error

	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, errors.New("DB_MAX_CONNS must be positive"))
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, errors.New("DB_MIN_CONNS must be non-negative"))
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Errorf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, errors.New("SERVER_READ_TIMEOUT must be non-negative"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SERVER_SHUTDOWN_TIMEOUT must be positive"))
	}

	if c.Upload.MaxFileSize <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_FILE_SIZE must be positive"))
	}
	if c.Upload.MaxConcurrent <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_CONCURRENT must be positive"))
	}
	if c.Upload.MaxWaitTime <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_WAIT_TIME must be positive"))
	}
	if c.Upload.LookupChunkSize <= 0 {
		errs = append(errs, errors.New("UPLOAD_LOOKUP_CHUNK_SIZE must be positive"))
	}
	if c.Upload.Timeout <= 0 {
		errs = append(errs, errors.New("UPLOAD_TIMEOUT must be positive"))
	}

	if strings.TrimSpace(c.Ingest.DefaultLabel) == "" {
		errs = append(errs, errors.New("INGEST_DEFAULT_LABEL must not be blank"))
	}

	if c.Query.DefaultPageSize <= 0 {
		errs = append(errs, errors.New("QUERY_DEFAULT_PAGE_SIZE must be positive"))
	}
	if c.Query.MaxPageSize < c.Query.DefaultPageSize {
		errs = append(errs, fmt.Errorf("QUERY_MAX_PAGE_SIZE (%d) must be >= QUERY_DEFAULT_PAGE_SIZE (%d)",
			c.Query.MaxPageSize, c.Query.DefaultPageSize))
	}
	if c.Query.SummaryTTL < 0 {
		errs = append(errs, errors.New("QUERY_SUMMARY_TTL must be non-negative"))
	}

	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled"))
	}
	if c.Rate.Enabled && c.Rate.UploadLimit <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_UPLOAD must be positive when rate limiting is enabled"))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// String returns a safe string representation of the config for logging.
// The database URL is masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "Database: {URL: [MASKED], MaxConns: %d, MinConns: %d}, ",
		c.Database.MaxConns, c.Database.MinConns)
	fmt.Fprintf(&b, "Upload: {MaxFileSize: %d, MaxConcurrent: %d, LookupChunkSize: %d}, ",
		c.Upload.MaxFileSize, c.Upload.MaxConcurrent, c.Upload.LookupChunkSize)
	fmt.Fprintf(&b, "Ingest: {SeedFile: %q, SeedLabel: %q}, ", c.Ingest.SeedFile, c.Ingest.SeedLabel)
	fmt.Fprintf(&b, "Query: {DefaultPageSize: %d, MaxPageSize: %d}, ",
		c.Query.DefaultPageSize, c.Query.MaxPageSize)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
