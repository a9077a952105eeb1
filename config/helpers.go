package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wangziweng7890/vscode-iconfont/errors"
)

// Duration is a time.Duration that decodes from integer milliseconds or a
// Go duration string ("10s").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Tag {
	case "!!int":
		var ms int64
		if err := value.Decode(&ms); err != nil {
			return err
		}
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	case "!!str":
		parsed, err := time.ParseDuration(value.Value)
		if err != nil {
			return fmt.Errorf("line %d: invalid duration %q: %w", value.Line, value.Value, err)
		}
		*d = Duration(parsed)
		return nil
	default:
		return fmt.Errorf("line %d: duration must be milliseconds or a string, got %s", value.Line, value.Tag)
	}
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// SecureMode selects FTPS.
type SecureMode string

const (
	// SecureOff is plain FTP.
	SecureOff SecureMode = ""

	// SecureControl upgrades the plain connection with AUTH TLS. The value
	// true decodes to it.
	SecureControl SecureMode = "control"

	// SecureImplicit speaks TLS from the first byte.
	SecureImplicit SecureMode = "implicit"
)

// UnmarshalYAML implements yaml.Unmarshaler. It accepts true, false,
// "control" and "implicit".
func (m *SecureMode) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!bool" {
		var on bool
		if err := value.Decode(&on); err != nil {
			return err
		}
		if on {
			*m = SecureControl
		} else {
			*m = SecureOff
		}
		return nil
	}
	*m = SecureMode(value.Value)
	return nil
}

// Enabled reports whether any form of TLS is requested.
func (m SecureMode) Enabled() bool {
	return m != SecureOff
}

// Profiles is the content of a profile file, in file order.
type Profiles []Config

// Get returns the profile called name. An empty name selects the only
// profile, or the first one when the file holds several.
func (p Profiles) Get(name string) (Config, error) {
	if len(p) == 0 {
		return Config{}, errors.New(errors.CodeNotFound, "no connection profiles defined")
	}
	if name == "" {
		return p[0], nil
	}
	for _, c := range p {
		if c.Name == name {
			return c, nil
		}
	}
	return Config{}, errors.New(
		errors.CodeNotFound,
		fmt.Sprintf("profile %q not found (available profiles: %s)", name, strings.Join(p.Names(), ", ")),
	)
}

// Names lists the profile names in file order. Unnamed profiles are listed
// by their address.
func (p Profiles) Names() []string {
	names := make([]string, 0, len(p))
	for _, c := range p {
		if c.Name != "" {
			names = append(names, c.Name)
			continue
		}
		names = append(names, string(c.Protocol)+"://"+c.Address())
	}
	return names
}

// WithDefaults returns c with its unset fields filled.
func (c Config) WithDefaults() Config {
	if c.Protocol == "" {
		c.Protocol = DefaultProtocol
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.RemotePath == "" {
		c.RemotePath = DefaultRemotePath
	}
	return c
}
