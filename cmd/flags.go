package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// flagsSeen records, by long flag name, which flags the user actually
// passed on the command line — used by conf.MergeFile to let CLI flags
// take precedence over a config file without clobbering defaults with
// the file's absence of a value.
var flagsSeen = map[string]bool{}

func (a *App) SetFlags() {
	f := a.cmd.Flags()

	f.StringVarP(&a.configPath, "config", "c", "", `Path to a TOML configuration file.
Command line flags always override values read from this file.`,
	)

	f.StringVarP(&a.conf.DescriptionURL, "description-url", "u", "", `URL of the origin DLNA server's device description XML.
Required, either here or as description_url in the config file.`,
	)

	f.DurationVarP(&a.conf.Period, "interval", "d", a.conf.Period, `How often to re-announce presence via SSDP NOTIFY ssdp:alive.
Also used to derive the CACHE-CONTROL max-age advertised to control points.`,
	)

	f.StringVarP(&a.conf.Proxy, "proxy", "p", "", `Local "host:port" to accept proxied TCP connections on.
If unset, dlnaproxy announces the origin server's presence without
proxying its connections.`,
	)

	f.StringVarP(&a.conf.Iface, "iface", "i", "", `Network interface to bind the SSDP multicast socket to.
If unset, the system default multicast interface is used.`,
	)

	f.DurationVarP(&a.conf.Wait, "wait", "w", 0, `If the origin's device description can't be fetched at startup,
keep running and retry at this interval until it appears, instead of
exiting immediately. A bare -w with no value retries every 30s.`,
	)
	f.Lookup("wait").NoOptDefVal = "30s"

	f.DurationVar(&a.conf.ConnectTimeout, "connect-timeout", a.conf.ConnectTimeout, `Timeout for fetching the origin's device description XML.`,
	)
	f.DurationVar(&a.conf.ProxyTimeout, "proxy-timeout", a.conf.ProxyTimeout, `Timeout for dialing the origin server for a proxied connection.`,
	)
	f.DurationVar(&a.conf.StreamTimeout, "stream-timeout", a.conf.StreamTimeout, `Idle timeout for an established proxied connection.
Reset on every successful read or write.`,
	)

	f.CountVarP(&a.conf.Verbose, "verbose", "v", `Increase log verbosity. May be repeated (-v, -vv, -vvv) for
info, debug, and trace level logging respectively. Default is warn only.`,
	)

	f.BoolP("version", "V", false, "Print version information and exit.")

	a.cmd.PreRun = func(cmd *cobra.Command, _ []string) {
		cmd.Flags().Visit(func(fl *pflag.Flag) {
			flagsSeen[fl.Name] = true
		})
	}
}
