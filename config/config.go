// Package config loads the YAML configuration of the saslcat tool.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opd-ai/sasl"
	"github.com/opd-ai/sasl/transport"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Handshake patterns accepted in the pattern field.
const (
	PatternXX = "xx"
	PatternIK = "ik"
)

// Config holds the saslcat configuration.
type Config struct {
	LogLevel string         `yaml:"log_level"`
	Pattern  string         `yaml:"pattern"`
	KeyFile  string         `yaml:"key_file"`
	PeerKey  string         `yaml:"peer_key"`
	Security SecurityConfig `yaml:"security"`
	Socket   SocketConfig   `yaml:"socket"`
}

// SecurityConfig mirrors sasl.SecurityProperties.
type SecurityConfig struct {
	MinSSF       int  `yaml:"min_ssf"`
	MaxSSF       int  `yaml:"max_ssf"`
	MaxBufSize   int  `yaml:"max_buf_size"`
	NoPlaintext  bool `yaml:"no_plaintext"`
	NoActive     bool `yaml:"no_active"`
	NoDictionary bool `yaml:"no_dictionary"`
	NoAnonymous  bool `yaml:"no_anonymous"`
}

// SocketConfig mirrors transport.SocketConfig. Durations use Go syntax,
// for example "30s".
type SocketConfig struct {
	Network        string        `yaml:"network"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	Proxy          *ProxyConfig  `yaml:"proxy"`
}

// ProxyConfig mirrors transport.ProxyConfig.
type ProxyConfig struct {
	Type     string `yaml:"type"`
	Host     string `yaml:"host"`
	Port     uint16 `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// DefaultPath returns the default config file path: ~/.saslcat/config.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".saslcat", "config.yaml")
	}
	return filepath.Join(home, ".saslcat", "config.yaml")
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	props := sasl.DefaultSecurityProperties()
	sock := transport.DefaultSocketConfig()
	return &Config{
		LogLevel: "info",
		Pattern:  PatternXX,
		Security: SecurityConfig{
			MinSSF:      props.MinSSF,
			MaxSSF:      props.MaxSSF,
			MaxBufSize:  props.MaxBufSize,
			NoPlaintext: props.Flags&sasl.SecNoPlaintext != 0,
		},
		Socket: SocketConfig{
			Network:        sock.Network,
			ConnectTimeout: sock.ConnectTimeout,
			ReadTimeout:    sock.ReadTimeout,
			WriteTimeout:   sock.WriteTimeout,
		},
	}
}

// Load reads the configuration from the given YAML file path.
// If the file does not exist, it returns Default() with no error.
func Load(path string) (*Config, error) {
	cfg := Default()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logrus.WithFields(logrus.Fields{
			"function": "Load",
			"path":     path,
			"perm":     fmt.Sprintf("%04o", perm),
		}).Warn("Config file is readable by other users")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks field ranges and formats.
func (c *Config) Validate() error {
	var errs error

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = multierr.Append(errs, err)
	}
	switch strings.ToLower(c.Pattern) {
	case PatternXX, PatternIK:
	default:
		errs = multierr.Append(errs, fmt.Errorf("unknown pattern %q", c.Pattern))
	}
	if c.PeerKey != "" {
		if _, err := c.PeerPublicKey(); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if c.Security.MinSSF < 0 || c.Security.MaxSSF < c.Security.MinSSF {
		errs = multierr.Append(errs, fmt.Errorf("invalid ssf range [%d, %d]", c.Security.MinSSF, c.Security.MaxSSF))
	}
	if c.Security.MaxBufSize < 0 {
		errs = multierr.Append(errs, fmt.Errorf("invalid max_buf_size %d", c.Security.MaxBufSize))
	}
	if c.Socket.ConnectTimeout < 0 || c.Socket.ReadTimeout < 0 || c.Socket.WriteTimeout < 0 {
		errs = multierr.Append(errs, errors.New("socket timeouts must not be negative"))
	}

	if p := c.Socket.Proxy; p != nil {
		if p.Type != "socks5" && p.Type != "http" {
			errs = multierr.Append(errs, fmt.Errorf("unknown proxy type %q", p.Type))
		}
		if p.Host == "" || p.Port == 0 {
			errs = multierr.Append(errs, errors.New("proxy host and port are required"))
		}
	}

	return errs
}

// Level returns the configured log level, defaulting to info.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// SecurityProperties converts the security section.
func (c *Config) SecurityProperties() sasl.SecurityProperties {
	props := sasl.SecurityProperties{
		MinSSF:     c.Security.MinSSF,
		MaxSSF:     c.Security.MaxSSF,
		MaxBufSize: c.Security.MaxBufSize,
	}
	if c.Security.NoPlaintext {
		props.Flags |= sasl.SecNoPlaintext
	}
	if c.Security.NoActive {
		props.Flags |= sasl.SecNoActive
	}
	if c.Security.NoDictionary {
		props.Flags |= sasl.SecNoDictionary
	}
	if c.Security.NoAnonymous {
		props.Flags |= sasl.SecNoAnonymous
	}
	return props
}

// SocketConfig converts the socket section.
func (c *Config) SocketConfig() transport.SocketConfig {
	sc := transport.SocketConfig{
		Network:        c.Socket.Network,
		ConnectTimeout: c.Socket.ConnectTimeout,
		ReadTimeout:    c.Socket.ReadTimeout,
		WriteTimeout:   c.Socket.WriteTimeout,
	}
	if p := c.Socket.Proxy; p != nil {
		sc.Proxy = &transport.ProxyConfig{
			Type:     p.Type,
			Host:     p.Host,
			Port:     p.Port,
			Username: p.Username,
			Password: p.Password,
		}
	}
	return sc
}

// PeerPublicKey decodes the hex peer_key.
func (c *Config) PeerPublicKey() ([]byte, error) {
	key, err := hex.DecodeString(c.PeerKey)
	if err != nil {
		return nil, fmt.Errorf("peer_key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("peer_key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}
