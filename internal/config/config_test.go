package config

import (
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseListenTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    netip.AddrPort
		wantErr bool
	}{
		{in: "12345", want: netip.MustParseAddrPort("127.0.0.1:12345")},
		{in: " 80 ", want: netip.MustParseAddrPort("127.0.0.1:80")},
		{in: "0.0.0.0:1234", want: netip.MustParseAddrPort("0.0.0.0:1234")},
		{in: "10.1.2.3:0", want: netip.MustParseAddrPort("10.1.2.3:0")},
		{in: "65536", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "", wantErr: true},
		{in: "localhost:80", wantErr: true},
		{in: "[::1]:80", wantErr: true},
		{in: "1.2.3.4:", wantErr: true},
		{in: "1.2.3.4", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseListenTarget(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v wantErr=%v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("got %v want %v", got, tt.want)
			}
		})
	}
}

func TestParseTCPKeepAlive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    net.KeepAliveConfig
		wantErr bool
	}{
		{in: "on", want: net.KeepAliveConfig{Enable: true}},
		{in: " OFF ", want: net.KeepAliveConfig{}},
		{in: "45:45:3", want: net.KeepAliveConfig{Enable: true, Idle: 45 * time.Second, Interval: 45 * time.Second, Count: 3}},
		{in: "2m:30s:5", want: net.KeepAliveConfig{Enable: true, Idle: 2 * time.Minute, Interval: 30 * time.Second, Count: 5}},
		{in: "1h:15:9", want: net.KeepAliveConfig{Enable: true, Idle: time.Hour, Interval: 15 * time.Second, Count: 9}},
		{in: "1500ms:1:1", wantErr: true},
		{in: "500ms:1:1", wantErr: true},
		{in: "-5s:1:1", wantErr: true},
		{in: "1:1:0", wantErr: true},
		{in: "", wantErr: true},
		{in: "1:2", wantErr: true},
		{in: "0:1:1", wantErr: true},
		{in: "1:x:1", wantErr: true},
		{in: "1:1:-3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTCPKeepAlive(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v wantErr=%v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("got %+v want %+v", got, tt.want)
			}
		})
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "redirrelay.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
listen: "0.0.0.0:12345"
mark: 77
transparent: true
dial_timeout: 5s
idle_timeout: 2m
debug_listen: "127.0.0.1:6060"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != "0.0.0.0:12345" {
		t.Fatalf("listen %q", cfg.Listen)
	}
	if cfg.Mark == nil || *cfg.Mark != 77 {
		t.Fatalf("mark %v", cfg.Mark)
	}
	if !cfg.Transparent {
		t.Fatal("transparent not set")
	}
	if cfg.DialTimeout != 5*time.Second || cfg.IdleTimeout != 2*time.Minute {
		t.Fatalf("timeouts %v %v", cfg.DialTimeout, cfg.IdleTimeout)
	}
	if cfg.TCPKeepAlive != "45:45:3" {
		t.Fatalf("default keepalive not kept: %q", cfg.TCPKeepAlive)
	}
	if cfg.DebugListen != "127.0.0.1:6060" {
		t.Fatalf("debug listen %q", cfg.DebugListen)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "unknown key", body: "listen: \"1234\"\nbogus: 1\n"},
		{name: "negative mark", body: "mark: -1\n"},
		{name: "bad duration", body: "dial_timeout: soon\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "ok", cfg: Config{Listen: "1234"}},
		{name: "missing listen", cfg: Config{}, wantErr: true},
		{name: "negative dial timeout", cfg: Config{Listen: "1234", DialTimeout: -time.Second}, wantErr: true},
		{name: "negative idle timeout", cfg: Config{Listen: "1234", IdleTimeout: -time.Second}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("err=%v wantErr=%v", err, tt.wantErr)
			}
		})
	}
}
