package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// ParseTCPKeepAlive parses on|off|keepidle:keepintvl:keepcnt. keepidle and
// keepintvl are either whole seconds or a duration such as "30s" or "1m".
func ParseTCPKeepAlive(s string) (net.KeepAliveConfig, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "":
		return net.KeepAliveConfig{}, errors.New("empty")
	case "on":
		return net.KeepAliveConfig{Enable: true}, nil
	case "off":
		return net.KeepAliveConfig{}, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return net.KeepAliveConfig{}, errors.New("expected on|off|keepidle:keepintvl:keepcnt")
	}

	ka := net.KeepAliveConfig{Enable: true}
	var err error
	if ka.Idle, err = parseKeepAliveDuration(parts[0]); err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepidle: %w", err)
	}
	if ka.Interval, err = parseKeepAliveDuration(parts[1]); err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepintvl: %w", err)
	}
	if ka.Count, err = strconv.Atoi(strings.TrimSpace(parts[2])); err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepcnt: %w", err)
	}
	if ka.Count <= 0 {
		return net.KeepAliveConfig{}, errors.New("keepcnt: must be > 0")
	}
	return ka, nil
}

// parseKeepAliveDuration treats a bare integer as seconds. The kernel only
// takes whole seconds, so anything finer is rejected.
func parseKeepAliveDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	var d time.Duration
	if n, err := strconv.Atoi(s); err == nil {
		d = time.Duration(n) * time.Second
	} else if d, err = time.ParseDuration(s); err != nil {
		return 0, err
	}
	if d < time.Second {
		return 0, errors.New("must be at least 1s")
	}
	if d%time.Second != 0 {
		return 0, errors.New("must be whole seconds")
	}
	return d, nil
}
