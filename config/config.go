// Package config provides parsing, validation, and convenient access to
// connection profiles.
//
// A profile file holds either a single profile object or an array of them,
// written in JSON or YAML. Every profile is merged with the defaults and
// validated when it is loaded.
//
// # Basic Usage
//
// Load the profiles from a file on any back-end:
//
//	ctx := context.Background()
//	profiles, err := config.Load(ctx, local.NewOS(), "/home/me/.config/rfs/config.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Pick a profile by name (an empty name selects the only or first one)
//	cfg, err := profiles.Get("staging")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Protocol, cfg.Address())
//
// # Advanced Usage
//
// Parse in-memory data and skip validation:
//
//	opts := config.LoadOptions{SkipValidation: true}
//	profiles, err := config.ParseWithOptions(data, opts)
package config

import (
	"net"
	"strconv"
	"time"
)

// Protocol selects the back-end a profile connects to.
type Protocol string

const (
	ProtocolSFTP  Protocol = "sftp"
	ProtocolFTP   Protocol = "ftp"
	ProtocolLocal Protocol = "local"
	ProtocolMinIO Protocol = "minio"
)

// Defaults applied to every loaded profile.
const (
	DefaultProtocol       = ProtocolSFTP
	DefaultConcurrency    = 4
	DefaultConnectTimeout = Duration(10 * time.Second)
	DefaultRemotePath     = "/"
)

// Config is one connection profile.
type Config struct {
	// Name identifies the profile when a file holds several.
	Name string `yaml:"name,omitempty"`

	// Context is the local directory the profile is bound to.
	Context string `yaml:"context,omitempty"`

	Protocol Protocol `yaml:"protocol,omitempty"`
	Host     string   `yaml:"host,omitempty"`
	Port     int      `yaml:"port,omitempty"`
	Username string   `yaml:"username,omitempty"`
	Password string   `yaml:"password,omitempty"`

	// Agent is the path of an SSH agent socket. The literal "env" uses
	// SSH_AUTH_SOCK.
	Agent          string `yaml:"agent,omitempty"`
	PrivateKeyPath string `yaml:"privateKeyPath,omitempty"`
	Passphrase     string `yaml:"passphrase,omitempty"`
	KnownHostsPath string `yaml:"knownHostsPath,omitempty"`

	// ConnectTimeout accepts milliseconds or a Go duration string.
	ConnectTimeout Duration `yaml:"connectTimeout,omitempty"`

	Secure  SecureMode `yaml:"secure,omitempty"`
	Passive bool       `yaml:"passive,omitempty"`

	// RemotePath is the directory on the server the profile is rooted at.
	RemotePath string `yaml:"remotePath,omitempty"`

	Ignore     []string `yaml:"ignore,omitempty"`
	IgnoreFile string   `yaml:"ignoreFile,omitempty"`

	// Concurrency bounds parallel file transfers.
	Concurrency int `yaml:"concurrency,omitempty"`

	RemoteTimeOffsetInHours float64 `yaml:"remoteTimeOffsetInHours,omitempty"`

	// Object storage.
	Endpoint string `yaml:"endpoint,omitempty"`
	Region   string `yaml:"region,omitempty"`
	Bucket   string `yaml:"bucket,omitempty"`
	UseSSL   bool   `yaml:"useSSL,omitempty"`
}

// Address returns host:port, using the protocol's default port when Port is
// zero. Object storage profiles prefer Endpoint.
func (c Config) Address() string {
	if c.Protocol == ProtocolMinIO && c.Endpoint != "" {
		return c.Endpoint
	}
	port := c.Port
	if port == 0 {
		port = DefaultPort(c.Protocol)
	}
	if port == 0 {
		return c.Host
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// TimeOffset returns RemoteTimeOffsetInHours as a duration.
func (c Config) TimeOffset() time.Duration {
	return time.Duration(c.RemoteTimeOffsetInHours * float64(time.Hour))
}

// Timeout returns ConnectTimeout as a time.Duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.ConnectTimeout)
}

// DefaultPort returns the well-known port of p, or zero.
func DefaultPort(p Protocol) int {
	switch p {
	case ProtocolSFTP:
		return 22
	case ProtocolFTP:
		return 21
	case ProtocolMinIO:
		return 9000
	default:
		return 0
	}
}

// LoadOptions configures the behavior of configuration loading operations.
type LoadOptions struct {
	// SkipValidation disables automatic validation after loading.
	// Defaults are still applied.
	SkipValidation bool
}
