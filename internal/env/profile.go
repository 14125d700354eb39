package env

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// profileFile is a TOML connection profile. Keys that are present override
// the environment.
type profileFile struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	ClientID string `toml:"client_id"`
	Password string `toml:"password"`

	TLS              bool     `toml:"tls"`
	CertFile         string   `toml:"cert_file"`
	KeyFile          string   `toml:"key_file"`
	CAFile           string   `toml:"ca_file"`
	CipherSuites     []string `toml:"cipher_suites"`
	MinTLSVersion    string   `toml:"tls_min_version"`
	ValidateCert     bool     `toml:"validate_cert"`
	ValidateHostname bool     `toml:"validate_hostname"`

	ConnectTimeout string `toml:"connect_timeout"`
	Timeout        string `toml:"timeout"`

	ObjectURIs    []string `toml:"object_uris"`
	ExtensionURIs []string `toml:"extension_uris"`

	LogTraffic bool `toml:"log_traffic"`
}

// ApplyProfile overrides c with the keys set in the TOML file at path.
func (c *Config) ApplyProfile(path string) error {
	var raw profileFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load profile: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("host") {
		c.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("port") {
		c.Port = raw.Port
	}
	if meta.IsDefined("client_id") {
		c.ClientID = strings.TrimSpace(raw.ClientID)
	}
	if meta.IsDefined("password") {
		c.Password = raw.Password
	}

	if meta.IsDefined("tls") {
		c.TLS = raw.TLS
	}
	if meta.IsDefined("cert_file") {
		c.CertFile = raw.CertFile
	}
	if meta.IsDefined("key_file") {
		c.KeyFile = raw.KeyFile
	}
	if meta.IsDefined("ca_file") {
		c.CAFile = raw.CAFile
	}
	if meta.IsDefined("cipher_suites") {
		c.CipherSuites = raw.CipherSuites
	}
	if meta.IsDefined("tls_min_version") {
		c.MinTLSVersion = raw.MinTLSVersion
	}
	if meta.IsDefined("validate_cert") {
		c.ValidateCert = raw.ValidateCert
	}
	if meta.IsDefined("validate_hostname") {
		c.ValidateHostname = raw.ValidateHostname
	}

	if meta.IsDefined("connect_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ConnectTimeout))
		if err != nil {
			return fmt.Errorf("parse connect_timeout: %w", err)
		}
		c.ConnectTimeout = d
	}
	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return fmt.Errorf("parse timeout: %w", err)
		}
		c.Timeout = d
	}

	if meta.IsDefined("object_uris") {
		c.ObjectURIs = raw.ObjectURIs
	}
	if meta.IsDefined("extension_uris") {
		c.ExtensionURIs = raw.ExtensionURIs
	}
	if meta.IsDefined("log_traffic") {
		c.LogTraffic = raw.LogTraffic
	}

	return nil
}
