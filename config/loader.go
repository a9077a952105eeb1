package config

import (
	"bytes"
	"context"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/wangziweng7890/vscode-iconfont/errors"
	"github.com/wangziweng7890/vscode-iconfont/fs"
)

// Load reads and validates the profiles stored at path on fsys.
//
// Parameters:
//   - ctx: Context for cancellation and deadlines
//   - fsys: File system to read the profile file from
//   - path: Path to the profile file (JSON or YAML)
//
// Returns the loaded profiles, or an error if reading, decoding or
// validation fails.
func Load(ctx context.Context, fsys fs.FileSystem, path string) (Profiles, error) {
	return LoadWithOptions(ctx, fsys, path, LoadOptions{})
}

// LoadWithOptions loads profiles with custom options.
func LoadWithOptions(ctx context.Context, fsys fs.FileSystem, path string, opts LoadOptions) (Profiles, error) {
	rc, err := fsys.Get(ctx, path)
	if err != nil {
		return nil, errors.WrapWithContext(
			err,
			errors.CodeNotFound,
			"failed to open configuration",
			map[string]interface{}{"path": path},
		)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.WrapWithContext(
			err,
			errors.CodeInternal,
			"failed to read configuration",
			map[string]interface{}{"path": path},
		)
	}

	profiles, err := ParseWithOptions(data, opts)
	if err != nil {
		return nil, errors.WrapWithContext(
			err,
			errors.GetCode(err),
			"failed to load configuration",
			map[string]interface{}{"path": path},
		)
	}
	return profiles, nil
}

// Parse decodes and validates profiles from data.
func Parse(data []byte) (Profiles, error) {
	return ParseWithOptions(data, LoadOptions{})
}

// ParseWithOptions decodes profiles from data. JSON is accepted as the YAML
// subset it is. The document is either one profile or a list of them.
func ParseWithOptions(data []byte, opts LoadOptions) (Profiles, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New(errors.CodeInvalidConfig, "configuration is empty")
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfig, "failed to decode configuration")
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}

	var profiles Profiles
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&profiles); err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidConfig, "failed to decode configuration")
		}
	case yaml.MappingNode:
		var c Config
		if err := root.Decode(&c); err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidConfig, "failed to decode configuration")
		}
		profiles = Profiles{c}
	default:
		return nil, errors.New(errors.CodeInvalidConfig, "configuration must be an object or an array of objects")
	}

	for i := range profiles {
		profiles[i] = profiles[i].WithDefaults()
	}

	if !opts.SkipValidation {
		if err := validateProfiles(profiles); err != nil {
			return nil, err
		}
	}
	return profiles, nil
}

// Marshal encodes profiles as YAML. A single profile is written as an
// object.
func Marshal(profiles Profiles) ([]byte, error) {
	var v interface{} = profiles
	if len(profiles) == 1 {
		v = profiles[0]
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to encode configuration")
	}
	return data, nil
}
