package config

import (
	"fmt"
	"strings"

	"github.com/wangziweng7890/vscode-iconfont/errors"
)

// Validate checks a single profile. Defaults must already be applied.
func (c Config) Validate() error {
	var problems []string

	switch c.Protocol {
	case ProtocolSFTP, ProtocolFTP:
		if c.Host == "" {
			problems = append(problems, `"host" is required`)
		}
		if c.Username == "" {
			problems = append(problems, `"username" is required`)
		}
	case ProtocolMinIO:
		if c.Host == "" && c.Endpoint == "" {
			problems = append(problems, `"host" or "endpoint" is required`)
		}
		if c.Bucket == "" {
			problems = append(problems, `"bucket" is required`)
		}
		if c.Username == "" || c.Password == "" {
			problems = append(problems, `"username" and "password" hold the access keys and are required`)
		}
	case ProtocolLocal:
	default:
		problems = append(problems, fmt.Sprintf(`"protocol" must be one of sftp, ftp, local, minio, got %q`, c.Protocol))
	}

	if c.Port < 0 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf(`"port" must be between 0 and 65535, got %d`, c.Port))
	}
	if c.Concurrency < 1 {
		problems = append(problems, fmt.Sprintf(`"concurrency" must be positive, got %d`, c.Concurrency))
	}
	if c.ConnectTimeout < 0 {
		problems = append(problems, `"connectTimeout" must not be negative`)
	}

	switch c.Secure {
	case SecureOff, SecureControl, SecureImplicit:
	default:
		problems = append(problems, fmt.Sprintf(`"secure" must be true, false, "control" or "implicit", got %q`, c.Secure))
	}
	if c.Secure.Enabled() && c.Protocol != ProtocolFTP {
		problems = append(problems, `"secure" only applies to ftp`)
	}

	if c.Protocol != ProtocolSFTP && (c.PrivateKeyPath != "" || c.Agent != "") {
		problems = append(problems, `"privateKeyPath" and "agent" only apply to sftp`)
	}

	if len(problems) > 0 {
		return errors.New(
			errors.CodeInvalidConfig,
			fmt.Sprintf("profile %s: %s", c.label(), strings.Join(problems, "; ")),
		)
	}
	return nil
}

func (c Config) label() string {
	if c.Name != "" {
		return fmt.Sprintf("%q", c.Name)
	}
	return string(c.Protocol) + "://" + c.Address()
}

// validateProfiles validates every profile and the uniqueness of names.
func validateProfiles(profiles Profiles) error {
	var validationErrors []string
	seen := make(map[string]bool)

	for _, c := range profiles {
		if err := c.Validate(); err != nil {
			validationErrors = append(validationErrors, err.Error())
		}
		if c.Name == "" {
			continue
		}
		if seen[c.Name] {
			validationErrors = append(validationErrors, fmt.Sprintf("profile name %q is used more than once", c.Name))
		}
		seen[c.Name] = true
	}

	if len(profiles) > 1 {
		for i, c := range profiles {
			if c.Name == "" {
				validationErrors = append(validationErrors, fmt.Sprintf("profile #%d needs a name when several are defined", i+1))
			}
		}
	}

	if len(validationErrors) > 0 {
		return errors.New(
			errors.CodeInvalidConfig,
			fmt.Sprintf("configuration validation failed: %s", strings.Join(validationErrors, "; ")),
		)
	}
	return nil
}
