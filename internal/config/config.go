// Package config holds the relay's startup configuration: the listen target,
// the optional routing mark, and the tuning knobs that can be set from a YAML
// file or from flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// DefaultListenAddr is used when the listen target is a bare port.
var DefaultListenAddr = netip.AddrFrom4([4]byte{127, 0, 0, 1})

type Config struct {
	// Listen is "ipv4:port" or a bare port.
	Listen string `yaml:"listen"`

	// Mark is the routing mark for outbound sockets; nil means unmarked.
	Mark *uint32 `yaml:"mark"`

	// Transparent listens with IP_TRANSPARENT for TPROXY rules instead of
	// relying on REDIRECT.
	Transparent bool `yaml:"transparent"`

	DialTimeout  time.Duration `yaml:"dial_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	TCPKeepAlive string        `yaml:"tcp_keepalive"`

	// DebugListen serves /metrics and /debug/pprof. Empty disables.
	DebugListen string `yaml:"debug_listen"`
}

func Default() Config {
	return Config{
		TCPKeepAlive: "45:45:3",
	}
}

// Load reads a YAML config file on top of Default. Unknown keys are errors.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.NewDecoder(bytes.NewReader(b), yaml.Strict()).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields that are not re-parsed at startup.
func (c Config) Validate() error {
	if c.Listen == "" {
		return errors.New("listen target is required")
	}
	if c.DialTimeout < 0 {
		return errors.New("dial_timeout must be >= 0")
	}
	if c.IdleTimeout < 0 {
		return errors.New("idle_timeout must be >= 0")
	}
	return nil
}

// ParseListenTarget parses "a.b.c.d:port" or a bare port. A bare port binds
// DefaultListenAddr.
func ParseListenTarget(s string) (netip.AddrPort, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ":") {
		ap, err := netip.ParseAddrPort(s)
		if err != nil {
			return netip.AddrPort{}, fmt.Errorf("invalid listen address %q: %w", s, err)
		}
		if !ap.Addr().Is4() {
			return netip.AddrPort{}, fmt.Errorf("invalid listen address %q: not ipv4", s)
		}
		return ap, nil
	}

	port, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("invalid listen port %q: %w", s, err)
	}
	return netip.AddrPortFrom(DefaultListenAddr, uint16(port)), nil
}
