package conf

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/dlnaproxy/dlnaproxy/internal/errs"
)

// RawConfig mirrors the on-disk TOML schema spec §6 names. Every field is
// a pointer so MergeFile can tell "absent" from "zero".
type RawConfig struct {
	DescriptionURL *string `toml:"description_url"`
	Period         *uint64 `toml:"period"`
	Proxy          *string `toml:"proxy"`
	Iface          *string `toml:"iface"`
	Wait           *uint64 `toml:"wait"`
	ConnectTimeout *uint64 `toml:"connect_timeout"`
	ProxyTimeout   *uint64 `toml:"proxy_timeout"`
	StreamTimeout  *uint64 `toml:"stream_timeout"`
	Verbose        *uint64 `toml:"verbose"`
}

// LoadFile decodes path as TOML, rejecting unknown keys outright so a typo
// in a config file fails loudly at startup rather than being silently
// ignored.
func LoadFile(path string) (*RawConfig, error) {
	var raw RawConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errs.ConfigError{Msg: "config file not found: " + path, Cause: err}
		}
		return nil, &errs.ConfigError{Msg: "failed to parse config file " + path, Cause: err}
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, &errs.ConfigError{Msg: "unknown config key(s) in " + path + ": " + undecoded[0].String()}
	}
	return &raw, nil
}
