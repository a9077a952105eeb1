package sftp

import (
	"fmt"
	"net"
	"os"

	gossh "golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Auth describes how to authenticate an SSH session. Methods are tried in
// the order agent, key, password.
type Auth struct {
	// Username for the SSH session.
	Username string

	// Password enables password authentication.
	Password string

	// PrivateKeyPath is the path to a private key file.
	PrivateKeyPath string

	// PrivateKey contains a private key as bytes.
	PrivateKey []byte

	// Passphrase for encrypted private keys.
	Passphrase string

	// UseSSHAgent enables agent authentication. The agent is reached through
	// AgentSocket, or SSH_AUTH_SOCK when that is empty.
	UseSSHAgent bool
	AgentSocket string

	// KnownHostsPath enables host key verification against a known_hosts
	// file.
	KnownHostsPath string

	// HostKeyCallback overrides KnownHostsPath. If both are empty any host
	// key is accepted.
	HostKeyCallback gossh.HostKeyCallback
}

// ClientConfig builds the ssh.ClientConfig for a.
func (a Auth) ClientConfig() (*gossh.ClientConfig, error) {
	var methods []gossh.AuthMethod

	if a.UseSSHAgent {
		m, err := agentAuth(a.AgentSocket)
		if err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}

	if a.PrivateKeyPath != "" || len(a.PrivateKey) > 0 {
		m, err := keyAuth(a)
		if err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}

	if a.Password != "" {
		methods = append(methods, gossh.Password(a.Password))
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("no SSH credentials configured")
	}

	hostKey, err := a.hostKeyCallback()
	if err != nil {
		return nil, err
	}

	return &gossh.ClientConfig{
		User:            a.Username,
		Auth:            methods,
		HostKeyCallback: hostKey,
	}, nil
}

func (a Auth) hostKeyCallback() (gossh.HostKeyCallback, error) {
	if a.HostKeyCallback != nil {
		return a.HostKeyCallback, nil
	}
	if a.KnownHostsPath != "" {
		cb, err := knownhosts.New(a.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts: %w", err)
		}
		return cb, nil
	}
	//nolint:gosec // host key checking is opt-in through KnownHostsPath.
	return gossh.InsecureIgnoreHostKey(), nil
}

//nolint:ireturn // x/crypto/ssh takes ssh.AuthMethod values.
func agentAuth(sock string) (gossh.AuthMethod, error) {
	if sock == "" {
		sock = os.Getenv("SSH_AUTH_SOCK")
	}
	if sock == "" {
		return nil, fmt.Errorf("SSH agent requested but SSH_AUTH_SOCK is not set")
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SSH agent: %w", err)
	}
	return gossh.PublicKeysCallback(agent.NewClient(conn).Signers), nil
}

//nolint:ireturn // x/crypto/ssh takes ssh.AuthMethod values.
func keyAuth(a Auth) (gossh.AuthMethod, error) {
	key := a.PrivateKey
	if a.PrivateKeyPath != "" {
		b, err := os.ReadFile(a.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load SSH key from file: %w", err)
		}
		key = b
	}

	var (
		signer gossh.Signer
		err    error
	)
	if a.Passphrase != "" {
		signer, err = gossh.ParsePrivateKeyWithPassphrase(key, []byte(a.Passphrase))
	} else {
		signer, err = gossh.ParsePrivateKey(key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse SSH key: %w", err)
	}
	return gossh.PublicKeys(signer), nil
}
