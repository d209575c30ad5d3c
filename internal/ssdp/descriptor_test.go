package ssdp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const sampleDescriptionXML = `<?xml version="1.0"?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
  <device>
    <deviceType>urn:schemas-upnp-org:device:MediaServer:1</deviceType>
    <UDN>uuid:4d696e69-444c-164e-9d41-ecf4bbd5d5a3</UDN>
  </device>
</root>`

func TestFetchParsesDescription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "Linux/3.0 UPnP/1.0 MiniDLNA/1.3.0")
		w.Write([]byte(sampleDescriptionXML))
	}))
	defer srv.Close()

	profile, err := Fetch(context.Background(), srv.URL+"/description.xml", time.Second, time.Second)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if profile.UDN != "uuid:4d696e69-444c-164e-9d41-ecf4bbd5d5a3" {
		t.Errorf("UDN = %q", profile.UDN)
	}
	if profile.DeviceType != "urn:schemas-upnp-org:device:MediaServer:1" {
		t.Errorf("DeviceType = %q", profile.DeviceType)
	}
	if profile.ServerString != "Linux/3.0 UPnP/1.0 MiniDLNA/1.3.0" {
		t.Errorf("ServerString = %q", profile.ServerString)
	}
	if profile.USN != profile.UDN+"::"+profile.DeviceType {
		t.Errorf("USN = %q, want UDN::DeviceType composition", profile.USN)
	}
}

func TestFetchFallsBackToDefaultServerString(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleDescriptionXML))
	}))
	defer srv.Close()

	profile, err := Fetch(context.Background(), srv.URL+"/description.xml", time.Second, time.Second)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if profile.ServerString != defaultServerString {
		t.Errorf("ServerString = %q, want default %q", profile.ServerString, defaultServerString)
	}
}

func TestFetchRejectsMissingUDN(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<root><device><deviceType>foo</deviceType></device></root>`))
	}))
	defer srv.Close()

	if _, err := Fetch(context.Background(), srv.URL, time.Second, time.Second); err == nil {
		t.Fatal("expected error for description missing UDN")
	}
}

func TestFetchRejects5xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := Fetch(context.Background(), srv.URL, time.Second, time.Second); err == nil {
		t.Fatal("expected error for 503 response")
	}
}

func TestFetchWithRetrySucceedsAfterTransientFailure(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(sampleDescriptionXML))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var notified int
	profile, err := FetchWithRetry(ctx, srv.URL, time.Second, time.Second, 10*time.Millisecond, func(err error, next time.Duration) {
		notified++
	})
	if err != nil {
		t.Fatalf("FetchWithRetry: %v", err)
	}
	if profile == nil {
		t.Fatal("expected a profile after eventual success")
	}
	if notified == 0 {
		t.Error("expected onErr to be called at least once before success")
	}
}
