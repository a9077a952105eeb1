package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/wangziweng7890/vscode-iconfont/errors"
	"github.com/wangziweng7890/vscode-iconfont/fs"
	"github.com/wangziweng7890/vscode-iconfont/fs/local"
)

// setupTestFS creates a memory filesystem holding the given files.
func setupTestFS(t *testing.T, files map[string]string) *local.FileSystem {
	t.Helper()
	fsys := local.NewMemory()
	ctx := context.Background()
	for path, content := range files {
		if err := fsys.EnsureDir(ctx, fsys.Paths().Dirname(path)); err != nil {
			t.Fatalf("Failed to create directory for %s: %v", path, err)
		}
		if err := fsys.Put(ctx, strings.NewReader(content), path, fs.FileOption{}); err != nil {
			t.Fatalf("Failed to write fixture %s to memory fs: %v", path, err)
		}
	}
	return fsys
}

const jsonProfile = `{
  "name": "prod",
  "host": "example.com",
  "username": "deploy",
  "privateKeyPath": "/home/deploy/.ssh/id_ed25519",
  "remotePath": "/var/www",
  "connectTimeout": 5000,
  "remoteTimeOffsetInHours": -1.5,
  "ignore": [".git", "node_modules/"]
}`

const yamlProfiles = `
- name: ftp
  protocol: ftp
  host: ftp.example.com
  port: 2121
  username: anonymous
  secure: true
  passive: true
  connectTimeout: 3s
- name: bucket
  protocol: minio
  endpoint: play.min.io
  username: AKIA
  password: secret
  bucket: assets
  useSSL: true
  concurrency: 8
- name: disk
  protocol: local
  remotePath: /srv/mirror
`

// TestLoad_SingleJSON tests loading a single JSON profile with defaults.
func TestLoad_SingleJSON(t *testing.T) {
	ctx := context.Background()
	fsys := setupTestFS(t, map[string]string{"/cfg/sftp.json": jsonProfile})

	profiles, err := Load(ctx, fsys, "/cfg/sftp.json")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("Expected 1 profile, got %d", len(profiles))
	}

	c := profiles[0]
	if c.Protocol != ProtocolSFTP {
		t.Errorf("Expected default protocol sftp, got %q", c.Protocol)
	}
	if c.Concurrency != DefaultConcurrency {
		t.Errorf("Expected default concurrency %d, got %d", DefaultConcurrency, c.Concurrency)
	}
	if c.Timeout() != 5*time.Second {
		t.Errorf("Expected connectTimeout 5s, got %v", c.Timeout())
	}
	if c.TimeOffset() != -90*time.Minute {
		t.Errorf("Expected time offset -1h30m, got %v", c.TimeOffset())
	}
	if c.Address() != "example.com:22" {
		t.Errorf("Expected address example.com:22, got %q", c.Address())
	}
	if len(c.Ignore) != 2 || c.Ignore[1] != "node_modules/" {
		t.Errorf("Expected ignore patterns to be decoded, got %v", c.Ignore)
	}
}

// TestLoad_YAMLList tests loading several YAML profiles.
func TestLoad_YAMLList(t *testing.T) {
	ctx := context.Background()
	fsys := setupTestFS(t, map[string]string{"/cfg/all.yaml": yamlProfiles})

	profiles, err := Load(ctx, fsys, "/cfg/all.yaml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	names := profiles.Names()
	if strings.Join(names, ",") != "ftp,bucket,disk" {
		t.Errorf("Expected profiles in file order, got %v", names)
	}

	ftp, err := profiles.Get("ftp")
	if err != nil {
		t.Fatalf("Get(ftp) failed: %v", err)
	}
	if ftp.Secure != SecureControl {
		t.Errorf("Expected secure=true to decode as %q, got %q", SecureControl, ftp.Secure)
	}
	if ftp.Timeout() != 3*time.Second {
		t.Errorf("Expected connectTimeout 3s, got %v", ftp.Timeout())
	}
	if ftp.Address() != "ftp.example.com:2121" {
		t.Errorf("Expected explicit port, got %q", ftp.Address())
	}
	if ftp.RemotePath != DefaultRemotePath {
		t.Errorf("Expected default remotePath, got %q", ftp.RemotePath)
	}

	bucket, _ := profiles.Get("bucket")
	if bucket.Address() != "play.min.io" || bucket.Concurrency != 8 || !bucket.UseSSL {
		t.Errorf("Unexpected object storage profile: %+v", bucket)
	}

	first, err := profiles.Get("")
	if err != nil || first.Name != "ftp" {
		t.Errorf("Expected empty name to select the first profile, got %q (%v)", first.Name, err)
	}

	_, err = profiles.Get("missing")
	if !errors.HasCode(err, errors.CodeNotFound) {
		t.Errorf("Expected NOT_FOUND for unknown profile, got %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), "ftp, bucket, disk") {
		t.Errorf("Expected available profiles in error, got %v", err)
	}
}

// TestLoad_MissingFile tests loading from a path that does not exist.
func TestLoad_MissingFile(t *testing.T) {
	fsys := setupTestFS(t, nil)
	_, err := Load(context.Background(), fsys, "/nope.json")
	if !errors.HasCode(err, errors.CodeNotFound) {
		t.Errorf("Expected NOT_FOUND, got %v", err)
	}
}

// TestParse_Invalid tests decoding failures and validation errors.
//
//nolint:funlen // Comprehensive table-driven test with many test cases
func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		errMsg string
	}{
		{
			name:   "empty document",
			data:   "  \n",
			errMsg: "configuration is empty",
		},
		{
			name:   "scalar document",
			data:   `"just a string"`,
			errMsg: "must be an object or an array",
		},
		{
			name:   "malformed json",
			data:   `{"host": "h"`,
			errMsg: "failed to decode",
		},
		{
			name:   "bad duration",
			data:   `{"host": "h", "username": "u", "connectTimeout": "soon"}`,
			errMsg: "invalid duration",
		},
		{
			name:   "missing host",
			data:   `{"username": "u"}`,
			errMsg: `"host" is required`,
		},
		{
			name:   "missing username",
			data:   `{"protocol": "ftp", "host": "h"}`,
			errMsg: `"username" is required`,
		},
		{
			name:   "unknown protocol",
			data:   `{"protocol": "gopher", "host": "h"}`,
			errMsg: `"protocol" must be one of`,
		},
		{
			name:   "bad port",
			data:   `{"host": "h", "username": "u", "port": 70000}`,
			errMsg: `"port" must be between`,
		},
		{
			name:   "negative concurrency",
			data:   `{"host": "h", "username": "u", "concurrency": -1}`,
			errMsg: `"concurrency" must be positive`,
		},
		{
			name:   "bad secure mode",
			data:   `{"protocol": "ftp", "host": "h", "username": "u", "secure": "always"}`,
			errMsg: `"secure" must be`,
		},
		{
			name:   "secure on sftp",
			data:   `{"host": "h", "username": "u", "secure": "implicit"}`,
			errMsg: `"secure" only applies to ftp`,
		},
		{
			name:   "key on ftp",
			data:   `{"protocol": "ftp", "host": "h", "username": "u", "privateKeyPath": "/k"}`,
			errMsg: `only apply to sftp`,
		},
		{
			name:   "minio without bucket",
			data:   `{"protocol": "minio", "endpoint": "e", "username": "u", "password": "p"}`,
			errMsg: `"bucket" is required`,
		},
		{
			name:   "duplicate names",
			data:   `[{"name": "a", "protocol": "local"}, {"name": "a", "protocol": "local"}]`,
			errMsg: `used more than once`,
		},
		{
			name:   "unnamed in list",
			data:   `[{"name": "a", "protocol": "local"}, {"protocol": "local"}]`,
			errMsg: `needs a name`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil {
				t.Fatal("Expected error but got nil")
			}
			if !errors.HasCode(err, errors.CodeInvalidConfig) {
				t.Errorf("Expected INVALID_CONFIGURATION, got %q", errors.GetCode(err))
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Expected error containing %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

// TestParse_SkipValidation tests that defaults apply without validation.
func TestParse_SkipValidation(t *testing.T) {
	profiles, err := ParseWithOptions([]byte(`{"protocol": "gopher"}`), LoadOptions{SkipValidation: true})
	if err != nil {
		t.Fatalf("ParseWithOptions failed: %v", err)
	}
	if profiles[0].Concurrency != DefaultConcurrency {
		t.Errorf("Expected defaults to be applied, got concurrency %d", profiles[0].Concurrency)
	}
	if err := profiles[0].Validate(); err == nil {
		t.Error("Expected Validate to reject the profile")
	}
}

// TestMarshal tests that encoded profiles parse back to the same values.
func TestMarshal(t *testing.T) {
	in := Profiles{{
		Name:           "p",
		Protocol:       ProtocolFTP,
		Host:           "h",
		Username:       "u",
		Secure:         SecureImplicit,
		ConnectTimeout: Duration(2 * time.Second),
	}}
	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), "connectTimeout: 2s") {
		t.Errorf("Expected duration written as a string, got:\n%s", data)
	}

	out, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if out[0].Secure != SecureImplicit || out[0].Timeout() != 2*time.Second {
		t.Errorf("Unexpected round trip result: %+v", out[0])
	}
}
