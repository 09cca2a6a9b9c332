// Package tapconfig loads and validates the extractor's JSON
// configuration document (spec.md §6), external to the replication
// core itself.
package tapconfig

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/MeltanoLabs/tap-mongodb/internal/connector"
	"github.com/MeltanoLabs/tap-mongodb/internal/replication"
	"github.com/MeltanoLabs/tap-mongodb/internal/resume"
	"github.com/MeltanoLabs/tap-mongodb/internal/sanitize"
)

// Config is the deserialized tap configuration document.
type Config struct {
	Database                              string            `json:"database"`
	MongoDBConnectionString               string            `json:"mongodb_connection_string"`
	DocumentDBCredentialJSONString        string            `json:"documentdb_credential_json_string"`
	DocumentDBCredentialJSONExtraOptions  map[string]string `json:"documentdb_credential_json_extra_options"`
	DatetimeConversion                    string            `json:"datetime_conversion"`
	Prefix                                 string            `json:"prefix"`
	FilterCollections                     []string           `json:"filter_collections"`
	StartDate                              string            `json:"start_date"`
	AddRecordMetadata                      bool              `json:"add_record_metadata"`
	AllowModifyChangeStreams               bool              `json:"allow_modify_change_streams"`
	OperationTypes                         []string          `json:"operation_types"`
	ChangeStreamResumeStrategy             string            `json:"change_stream_resume_strategy"`
	BookmarkStoreKind                      string            `json:"bookmark_store_kind"`
	BookmarkStorePath                      string            `json:"bookmark_store_path"`
}

// documentDBCredentials is the shape of documentdb_credential_json_string.
type documentDBCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
}

// Load reads and validates a JSON config document from path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("%w: malformed config JSON: %v", replication.ErrInvalidConfig, err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.Database == "" {
		return fmt.Errorf("%w: database is required", replication.ErrInvalidConfig)
	}
	if c.MongoDBConnectionString == "" && c.DocumentDBCredentialJSONString == "" {
		return fmt.Errorf("%w: one of mongodb_connection_string or documentdb_credential_json_string is required", replication.ErrInvalidConfig)
	}
	if c.DatetimeConversion == "" {
		c.DatetimeConversion = "datetime"
	}
	if c.StartDate == "" {
		c.StartDate = "1970-01-01"
	}
	if c.ChangeStreamResumeStrategy == "" {
		c.ChangeStreamResumeStrategy = string(resume.PreferResumeAfter)
	}
	if c.BookmarkStoreKind == "" {
		c.BookmarkStoreKind = "memory"
	}
	return nil
}

// ConnectionURI resolves the configured connection string, assembling
// one from documentdb_credential_json_string when a literal connection
// string was not supplied.
func (c *Config) ConnectionURI() (string, error) {
	if c.MongoDBConnectionString != "" {
		return c.MongoDBConnectionString, nil
	}

	var creds documentDBCredentials
	if err := json.Unmarshal([]byte(c.DocumentDBCredentialJSONString), &creds); err != nil {
		return "", fmt.Errorf("%w: malformed documentdb_credential_json_string: %v", replication.ErrInvalidConfig, err)
	}

	return connector.BuildConnectionURI(connector.Credentials{
		Username: creds.Username,
		Password: creds.Password,
		Host:     creds.Host,
		Port:     creds.Port,
		Database: c.Database,
		TLS:      true,
	})
}

// SanitizeMode maps datetime_conversion onto the sanitizer's rendering
// mode: "datetime_ms" selects epoch-millisecond integers, everything
// else (including the default "datetime") selects ISO-8601 strings.
func (c *Config) SanitizeMode() sanitize.Mode {
	if c.DatetimeConversion == "datetime_ms" {
		return sanitize.ModeEpochMillis
	}
	return sanitize.ModeISO8601
}

// ResumePreference parses ChangeStreamResumeStrategy into the typed
// preference C3 expects.
func (c *Config) ResumePreference() (resume.Preference, error) {
	switch resume.Preference(c.ChangeStreamResumeStrategy) {
	case resume.PreferResumeAfter, resume.PreferStartAfter, resume.PreferStartAtOperationTime:
		return resume.Preference(c.ChangeStreamResumeStrategy), nil
	default:
		return "", fmt.Errorf("%w: %q", resume.ErrInvalidConfig, c.ChangeStreamResumeStrategy)
	}
}
