// Package conf loads and validates dlnaproxy's runtime configuration from
// CLI flags and an optional TOML file, mirroring the teacher's own
// cmd/conf package shape (a Conf struct plus a file merge and a Validate
// step). The flags themselves are registered in package cmd.
package conf

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/dlnaproxy/dlnaproxy/internal/errs"
)

// Conf holds every value spec §6 names, after CLI flags have overridden
// whatever a TOML config file provided.
type Conf struct {
	DescriptionURL string
	Period         time.Duration
	Proxy          string // "ip:port", empty disables the proxy
	Iface          string
	Wait           time.Duration // 0 means wait mode is off
	ConnectTimeout time.Duration
	ProxyTimeout   time.Duration
	StreamTimeout  time.Duration
	Verbose        int
}

// DescriptionReadTimeout bounds how long Fetch waits to read the device
// description body once connected, kept separate from ConnectTimeout so a
// server that connects quickly but streams the XML slowly isn't cut off at
// the connect budget. There's no flag or config key for it since it isn't
// one of the tunables spec §6 exposes.
const DescriptionReadTimeout = 5 * time.Second

// Defaults mirror spec §6's stated defaults.
func Defaults() *Conf {
	return &Conf{
		Period:         895 * time.Second,
		ConnectTimeout: 2 * time.Second,
		ProxyTimeout:   10 * time.Second,
		StreamTimeout:  300 * time.Second,
	}
}

// MergeFile overlays file values onto c wherever c still holds a flag's
// unset default — CLI flags always take precedence over the config file.
func (c *Conf) MergeFile(raw *RawConfig, flagsSet map[string]bool) {
	setIfAbsent := func(flag string, have *string, want *string) {
		if !flagsSet[flag] && want != nil {
			*have = *want
		}
	}
	setIfAbsentDuration := func(flag string, have *time.Duration, want *uint64) {
		if !flagsSet[flag] && want != nil {
			*have = time.Duration(*want) * time.Second
		}
	}

	setIfAbsent("description-url", &c.DescriptionURL, raw.DescriptionURL)
	setIfAbsentDuration("interval", &c.Period, raw.Period)
	setIfAbsent("proxy", &c.Proxy, raw.Proxy)
	setIfAbsent("iface", &c.Iface, raw.Iface)
	setIfAbsentDuration("wait", &c.Wait, raw.Wait)
	setIfAbsentDuration("connect-timeout", &c.ConnectTimeout, raw.ConnectTimeout)
	setIfAbsentDuration("proxy-timeout", &c.ProxyTimeout, raw.ProxyTimeout)
	setIfAbsentDuration("stream-timeout", &c.StreamTimeout, raw.StreamTimeout)
	if !flagsSet["verbose"] && raw.Verbose != nil {
		c.Verbose = int(*raw.Verbose)
	}
}

// Validate checks cross-field invariants the flag parser can't express on
// its own.
func (c *Conf) Validate() error {
	if c.DescriptionURL == "" {
		return &errs.ConfigError{Msg: "description-url is required (flag --description-url/-u or config key description_url)"}
	}
	if _, err := url.Parse(c.DescriptionURL); err != nil {
		return &errs.ConfigError{Msg: "bad description-url", Cause: err}
	}
	if c.Proxy != "" {
		host, port, err := net.SplitHostPort(c.Proxy)
		if err != nil {
			return &errs.ConfigError{Msg: "bad proxy address, want ip:port", Cause: err}
		}
		if _, err := strconv.Atoi(port); err != nil {
			return &errs.ConfigError{Msg: "bad proxy port", Cause: err}
		}
		if host == "" {
			return &errs.ConfigError{Msg: "proxy address must include a host"}
		}
	}
	if c.Period <= 0 {
		return &errs.ConfigError{Msg: fmt.Sprintf("interval must be positive, got %s", c.Period)}
	}
	return nil
}
