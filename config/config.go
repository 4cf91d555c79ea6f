package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ardanlabs/conf"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultConfigPath = "config/config.toml"
	ConfigExtension   = ".toml"
	ServiceName       = "kcc-issuer-service"

	EnvironmentDev  = "dev"
	EnvironmentTest = "test"
	EnvironmentProd = "prod"

	// ConfigPathEnvVar points at an alternative TOML file.
	ConfigPathEnvVar = "CONFIG_PATH"
	// PortEnvVar overrides the API host port, defaulting to 3000 when unset.
	PortEnvVar = "PORT"
)

type KCCServiceConfig struct {
	conf.Version
	Server   ServerConfig   `toml:"server"`
	Services ServicesConfig `toml:"services"`
}

// ServerConfig represents configurable properties for the HTTP server
type ServerConfig struct {
	Environment        string        `toml:"env" conf:"default:dev"`
	APIHost            string        `toml:"api_host" conf:"default:0.0.0.0:3000"`
	JagerHost          string        `toml:"jager_host" conf:"http://jaeger:14268/api/traces"`
	JagerEnabled       bool          `toml:"jager_enabled" conf:"default:false"`
	ReadTimeout        time.Duration `toml:"read_timeout" conf:"default:5s"`
	WriteTimeout       time.Duration `toml:"write_timeout" conf:"default:5s"`
	ShutdownTimeout    time.Duration `toml:"shutdown_timeout" conf:"default:5s"`
	LogLevel           string        `toml:"log_level" conf:"default:debug"`
	LogLocation        string        `toml:"log_location"`
	EnableAllowAllCORS bool          `toml:"enable_allow_all_cors" conf:"default:true"`
}

// ServicesConfig represents configurable properties for the components of the service
type ServicesConfig struct {
	StorageProvider string `toml:"storage" conf:"default:bolt"`
	BoltPath        string `toml:"bolt_path"`
	RedisAddress    string `toml:"redis_address"`
	RedisPassword   string `toml:"redis_password"`

	Issuer IssuerServiceConfig `toml:"issuer,omitempty"`
}

// IssuerServiceConfig holds the issuer identity and credential-exchange
// descriptor. These were inline literals in earlier iterations of the service;
// keeping them as configuration lets the orchestration run against fakes.
type IssuerServiceConfig struct {
	// DWNEndpoint is the remote Decentralized Web Node the issuer registers
	// with and publishes credential records through.
	DWNEndpoint string `toml:"dwn_endpoint" conf:"default:https://dwn.kcc.dev"`

	// AuthGatewayBaseURL is the authorization gateway consulted before
	// issuance; the issuer DID is passed as the issuerDid query parameter.
	AuthGatewayBaseURL string `toml:"auth_gateway_base_url" conf:"default:https://auth.kcc.dev/authorize"`

	ProtocolURI      string `toml:"protocol_uri" conf:"default:https://kcc.dev/protocols/credential-exchange"`
	CredentialSchema string `toml:"credential_schema" conf:"default:https://kcc.dev/schemas/known-customer-credential"`

	Claims KCCClaims `toml:"claims"`

	ExpiryDays int `toml:"expiry_days" conf:"default:365"`
}

// KCCClaims is the fixed claim set asserted about every customer.
type KCCClaims struct {
	Country      string `toml:"country" conf:"default:US"`
	Tier         string `toml:"tier" conf:"default:Tier1"`
	Jurisdiction string `toml:"jurisdiction" conf:"default:US-NY"`
}

// LoadConfig attempts to load a TOML config file from the given path, and coerce it into our object model.
// Before loading, defaults are applied on certain properties, which are overwritten if specified in the TOML file.
// The PORT environment variable, when set, overrides the API host port after all other sources.
func LoadConfig(path string) (*KCCServiceConfig, error) {
	if path != "" && filepath.Ext(path) != ConfigExtension {
		return nil, fmt.Errorf("path<%s> did not match the expected TOML format", path)
	}

	var config KCCServiceConfig

	// parse and apply defaults
	if err := conf.Parse(os.Args[1:], ServiceName, &config); err != nil {
		switch {
		case errors.Is(err, conf.ErrHelpWanted):
			usage, err := conf.Usage(ServiceName, &config)
			if err != nil {
				return nil, errors.Wrap(err, "parsing config")
			}
			fmt.Println(usage)
			return nil, nil

		case errors.Is(err, conf.ErrVersionWanted):
			version, err := conf.VersionString(ServiceName, &config)
			if err != nil {
				return nil, errors.Wrap(err, "generating config version")
			}
			fmt.Println(version)
			return nil, nil
		}
		return nil, errors.Wrap(err, "parsing config")
	}

	if path == "" {
		logrus.Info("no config path provided, using default config")
	} else {
		if _, err := toml.DecodeFile(path, &config); err != nil {
			return nil, errors.Wrapf(err, "could not load config: %s", path)
		}
	}

	applyPortOverride(&config)
	return &config, nil
}

// applyPortOverride honors the PORT environment variable over any other source.
func applyPortOverride(config *KCCServiceConfig) {
	port, present := os.LookupEnv(PortEnvVar)
	if !present || port == "" {
		return
	}
	host, _, err := net.SplitHostPort(config.Server.APIHost)
	if err != nil {
		logrus.WithError(err).Warnf("could not parse api host<%s>, ignoring PORT override", config.Server.APIHost)
		return
	}
	config.Server.APIHost = net.JoinHostPort(host, port)
}

// AuthURL templates the issuer DID into the authorization gateway URL.
func (i IssuerServiceConfig) AuthURL(issuerDID string) string {
	return fmt.Sprintf("%s?issuerDid=%s", i.AuthGatewayBaseURL, issuerDID)
}
