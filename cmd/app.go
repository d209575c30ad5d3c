package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dlnaproxy/dlnaproxy/cmd/conf"
	"github.com/dlnaproxy/dlnaproxy/internal/log"
)

var version = "dev"
var date string

// App wires the cobra command, parsed configuration, and logger into one
// runnable dlnaproxy process, mirroring the teacher's own App pattern.
type App struct {
	cmd    *cobra.Command
	logger *log.Logger

	conf       *conf.Conf
	configPath string
}

// NewApp builds an unconfigured App: the cobra command exists and its
// flags are registered, but nothing has been parsed yet.
func NewApp() (*App, error) {
	a := &App{conf: conf.Defaults()}

	a.cmd = &cobra.Command{
		Use:     "dlnaproxy [flags]",
		Version: fmt.Sprintf(": %s\nbuild date: %s", version, date),
		Short:   "A transparent SSDP/DLNA announcer and HTTP rewriting proxy.",
		Long: `dlnaproxy re-announces a DLNA media server's SSDP presence under a proxy
address and, optionally, transparently proxies its HTTP control/content
connections, rewriting origin URLs found in response bodies so LAN clients
only ever talk to the proxy.
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.Run,
	}

	a.SetFlags()

	return a, nil
}

func (a *App) Cmd() *cobra.Command {
	return a.cmd
}

// Start executes the command (flags were registered by NewApp) and, on
// error, exits the process with the resulting code.
func (a *App) Start() {
	cobra.MousetrapHelpText = ""

	if err := a.cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, errInterrupted) {
			if a.logger != nil {
				a.logger.Warnf("%v", err)
			} else {
				fmt.Fprintln(os.Stderr, err)
			}
		}
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a returned error to the process exit code spec §6
// assigns it: 0 on success (nil, handled by caller), 1 for startup
// failures (see isStartupError), 2 for fatal runtime errors, 130 for an
// interrupt.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled) || errors.Is(err, errInterrupted):
		return 130
	default:
		if isStartupError(err) {
			return 1
		}
		return 2
	}
}
