package ssdp

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dlnaproxy/dlnaproxy/internal/errs"
)

// descriptionXML mirrors just enough of a UPnP device description to pull
// UDN and deviceType; every other element is ignored.
type descriptionXML struct {
	Device struct {
		DeviceType string `xml:"deviceType"`
		UDN        string `xml:"UDN"`
	} `xml:"device"`
}

const defaultServerString = "dlnaproxy/1.0"

// Fetch performs the HTTP GET of the remote root XML with separate
// connect and read budgets, and extracts UDN/deviceType. It is idempotent
// and side-effect-free: callers that want to preserve a previously cached
// DeviceProfile do so themselves (see Manager.refresh).
func Fetch(ctx context.Context, descURL string, connectTimeout, readTimeout time.Duration) (*DeviceProfile, error) {
	u, err := url.Parse(descURL)
	if err != nil {
		return nil, &errs.RemoteUnreachable{URL: descURL, Cause: fmt.Errorf("bad description URL: %w", err)}
	}

	dialer := &net.Dialer{Timeout: connectTimeout}
	client := &http.Client{
		Timeout: connectTimeout + readTimeout,
		Transport: &http.Transport{
			DialContext: dialer.DialContext,
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, descURL, nil)
	if err != nil {
		return nil, &errs.RemoteUnreachable{URL: descURL, Cause: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &errs.RemoteUnreachable{URL: descURL, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 == 4 || resp.StatusCode/100 == 5 {
		return nil, &errs.RemoteUnreachable{URL: descURL, Cause: fmt.Errorf("status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &errs.RemoteUnreachable{URL: descURL, Cause: err}
	}

	var desc descriptionXML
	if err := xml.Unmarshal(body, &desc); err != nil {
		return nil, &errs.ProtocolError{Msg: "malformed device description XML", Cause: err}
	}
	if desc.Device.UDN == "" || desc.Device.DeviceType == "" {
		return nil, &errs.ProtocolError{Msg: "device description missing UDN or deviceType"}
	}

	server := resp.Header.Get("Server")
	if server == "" {
		server = defaultServerString
	}

	host := u.Hostname()
	port := 80
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, &errs.ProtocolError{Msg: "bad port in description URL", Cause: err}
		}
	} else if u.Scheme == "https" {
		port = 443
	}

	return &DeviceProfile{
		USN:          desc.Device.UDN + "::" + desc.Device.DeviceType,
		DeviceType:   desc.Device.DeviceType,
		UDN:          desc.Device.UDN,
		LocationURL:  descURL,
		OriginHost:   host,
		OriginPort:   port,
		ServerString: server,
	}, nil
}

// FetchWithRetry retries Fetch with a constant backoff equal to interval
// until ctx is cancelled or a fetch succeeds. Used by startup wait mode
// (see announceLoop); the announcer's per-tick refresh calls Fetch once.
func FetchWithRetry(ctx context.Context, descURL string, connectTimeout, readTimeout, interval time.Duration, onErr func(err error, next time.Duration)) (*DeviceProfile, error) {
	b := backoff.WithContext(&backoff.ConstantBackOff{Interval: interval}, ctx)

	var profile *DeviceProfile
	op := func() error {
		p, err := Fetch(ctx, descURL, connectTimeout, readTimeout)
		if err != nil {
			return err
		}
		profile = p
		return nil
	}

	notify := func(err error, next time.Duration) {
		if onErr != nil {
			onErr(err, next)
		}
	}

	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, err
	}
	return profile, nil
}
