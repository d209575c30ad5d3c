package cmd

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dlnaproxy/dlnaproxy/cmd/conf"
	"github.com/dlnaproxy/dlnaproxy/internal/errs"
	"github.com/dlnaproxy/dlnaproxy/internal/log"
	"github.com/dlnaproxy/dlnaproxy/internal/proxy"
	"github.com/dlnaproxy/dlnaproxy/internal/ssdp"
)

// Run is the cobra RunE for the root command: it finishes assembling the
// configuration (config file, then CLI overrides), builds the SSDP
// manager and (optionally) the proxy, and runs them until a signal or
// fatal error.
func (a *App) Run(cmd *cobra.Command, _ []string) error {
	if a.configPath != "" {
		raw, err := conf.LoadFile(a.configPath)
		if err != nil {
			return err
		}
		a.conf.MergeFile(raw, flagsSeen)
	}

	if err := a.conf.Validate(); err != nil {
		return err
	}

	level := log.ParseLevel(a.conf.Verbose)
	a.logger = log.New(os.Stderr, level)

	ctx, cancel := notifyContext()
	defer cancel()

	manager, err := ssdp.NewManager(ctx, ssdp.Config{
		DescriptionURL: a.conf.DescriptionURL,
		Announce: ssdp.AnnounceConfig{
			Period:    a.conf.Period,
			Interface: a.conf.Iface,
		},
		ConnectTimeout: a.conf.ConnectTimeout,
		ReadTimeout:    conf.DescriptionReadTimeout,
		Wait:           a.conf.Wait,
		Logger:         a.logger,
	})
	if err != nil {
		return err
	}

	wantProxy := a.conf.Proxy != ""
	errCh := make(chan error, 2)
	go func() { errCh <- manager.Run(ctx) }()
	if wantProxy {
		go a.runProxy(ctx, manager, errCh)
	}

	expect := 1
	if wantProxy {
		expect = 2
	}
	for i := 0; i < expect; i++ {
		if err := <-errCh; err != nil &&
			!errors.Is(err, errs.ErrShutdownRequested) &&
			!errors.Is(err, context.Canceled) {
			a.logger.Warnf("component exited with error: %v", err)
			return err
		}
	}

	if ctx.Err() != nil {
		return errInterrupted
	}
	return nil
}

// errInterrupted is returned by Run when shutdown was triggered by a
// SIGINT/SIGTERM rather than a component failing on its own; exitCodeFor
// maps it to the conventional 130.
var errInterrupted = errors.New("interrupted")

// runProxy waits for the SSDP manager to learn the origin server's
// address (possibly delayed by --wait) before starting the proxy
// acceptor, then runs it until ctx is cancelled.
func (a *App) runProxy(ctx context.Context, manager *ssdp.Manager, errCh chan<- error) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	var profile *ssdp.DeviceProfile
	for profile == nil {
		if p := manager.Profile(); p != nil {
			profile = p
			break
		}
		select {
		case <-ctx.Done():
			errCh <- nil
			return
		case <-ticker.C:
		}
	}

	p := proxy.New(proxy.FromSSDP(ssdp.ProxyConfig{
		LocalAddr:      a.conf.Proxy,
		OriginHost:     profile.OriginHost,
		OriginPort:     profile.OriginPort,
		ConnectTimeout: a.conf.ProxyTimeout,
		StreamTimeout:  a.conf.StreamTimeout,
	}), a.logger)

	errCh <- p.Run(ctx)
}

// isStartupError reports whether err represents a startup-phase failure
// (bad config, bind failure, or an unreachable origin with --wait off) as
// opposed to a fatal error surfacing once the process is already running.
func isStartupError(err error) bool {
	var ce *errs.ConfigError
	var se *errs.SocketSetupError
	var re *errs.RemoteUnreachable
	return errors.As(err, &ce) || errors.As(err, &se) || errors.As(err, &re)
}
