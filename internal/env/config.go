package env

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
	"go.uber.org/zap"

	"github.com/luma/epp/client"
	"github.com/luma/epp/epp"
	"github.com/luma/epp/transport"
)

type Config struct {
	Host     string `env:"EPP_HOST"`
	Port     int    `env:"EPP_PORT,default=700"`
	ClientID string `env:"EPP_CLIENT_ID"`
	Password string `env:"EPP_PASSWORD"`

	TLS              bool     `env:"EPP_TLS,default=true"`
	CertFile         string   `env:"EPP_CERT_FILE"`
	KeyFile          string   `env:"EPP_KEY_FILE"`
	CAFile           string   `env:"EPP_CA_FILE"`
	CipherSuites     []string `env:"EPP_CIPHER_SUITES"`
	MinTLSVersion    string   `env:"EPP_TLS_MIN_VERSION"`
	ValidateCert     bool     `env:"EPP_VALIDATE_CERT,default=true"`
	ValidateHostname bool     `env:"EPP_VALIDATE_HOSTNAME,default=true"`

	ConnectTimeout time.Duration `env:"EPP_CONNECT_TIMEOUT,default=15s"`
	Timeout        time.Duration `env:"EPP_TIMEOUT,default=60s"`

	// Object and extension URIs announced at login, full URIs or short
	// prefixes such as "secDNS".
	ObjectURIs    []string `env:"EPP_OBJECT_URIS"`
	ExtensionURIs []string `env:"EPP_EXTENSION_URIS"`

	LogLevel   string `env:"EPP_LOG_LEVEL,default=info"`
	LogDev     bool   `env:"EPP_LOG_DEV"`
	LogTraffic bool   `env:"EPP_LOG_TRAFFIC"`
	KeepHints  bool   `env:"EPP_KEEP_HINTS"`
	DebugHTTP  bool   `env:"EPP_DEBUG_HTTP"`
}

// LoadConfig reads .env.local if it exists, then the environment, then the
// TOML profile at profilePath if one is given.
func LoadConfig(ctx context.Context, profilePath string) (*Config, error) {
	if err := godotenv.Load(".env.local"); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	return LoadConfigFrom(ctx, envconfig.OsLookuper(), profilePath)
}

// LoadConfigFrom is LoadConfig reading variables from lookuper instead of
// the process environment.
func LoadConfigFrom(ctx context.Context, lookuper envconfig.Lookuper, profilePath string) (*Config, error) {
	config := Config{}

	if err := envconfig.ProcessWith(ctx, &config, lookuper); err != nil {
		return nil, err
	}

	if profilePath != "" {
		if err := config.ApplyProfile(profilePath); err != nil {
			return nil, err
		}
	}

	return &config, nil
}

// TransportOptions translates the TLS and timeout settings.
func (c *Config) TransportOptions(log *zap.Logger) (transport.Options, error) {
	minVersion, err := transport.ParseTLSVersion(c.MinTLSVersion)
	if err != nil {
		return transport.Options{}, err
	}

	return transport.Options{
		TLS:              c.TLS,
		CertFile:         c.CertFile,
		KeyFile:          c.KeyFile,
		CAFile:           c.CAFile,
		CipherSuites:     c.CipherSuites,
		MinVersion:       minVersion,
		ValidateCert:     c.ValidateCert,
		ValidateHostname: c.ValidateHostname,
		ConnectTimeout:   c.ConnectTimeout,
		Timeout:          c.Timeout,
		Log:              log,
	}, nil
}

// ClientOptions translates the connection settings.
func (c *Config) ClientOptions(log *zap.Logger) (client.Options, error) {
	topts, err := c.TransportOptions(log)
	if err != nil {
		return client.Options{}, err
	}

	return client.Options{
		Host:       c.Host,
		Port:       c.Port,
		Transport:  topts,
		KeepHints:  c.KeepHints,
		LogTraffic: c.LogTraffic,
		Log:        log,
	}, nil
}

// LoginOptions returns the credentials and service list for Login.
func (c *Config) LoginOptions() client.LoginOptions {
	return client.LoginOptions{
		LoginOptions: epp.LoginOptions{
			ClientID:           c.ClientID,
			Password:           c.Password,
			ObjectURIs:         c.ObjectURIs,
			ExtraExtensionURIs: c.ExtensionURIs,
		},
	}
}
