package conf

import "testing"

func TestDefaultsMatchSpecValues(t *testing.T) {
	c := Defaults()
	if c.Period.Seconds() != 895 {
		t.Errorf("Period = %s, want 895s", c.Period)
	}
	if c.ConnectTimeout.Seconds() != 2 {
		t.Errorf("ConnectTimeout = %s, want 2s", c.ConnectTimeout)
	}
	if c.ProxyTimeout.Seconds() != 10 {
		t.Errorf("ProxyTimeout = %s, want 10s", c.ProxyTimeout)
	}
	if c.StreamTimeout.Seconds() != 300 {
		t.Errorf("StreamTimeout = %s, want 300s", c.StreamTimeout)
	}
}

func TestValidateRequiresDescriptionURL(t *testing.T) {
	c := Defaults()
	if err := c.Validate(); err == nil {
		t.Fatal("expected error when description-url is unset")
	}
}

func TestValidateRejectsBadProxyAddress(t *testing.T) {
	c := Defaults()
	c.DescriptionURL = "http://192.168.1.50:8200/desc.xml"
	c.Proxy = "not-a-valid-address"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for malformed proxy address")
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	c := Defaults()
	c.DescriptionURL = "http://192.168.1.50:8200/desc.xml"
	c.Proxy = "0.0.0.0:8200"
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestMergeFileOnlyFillsUnsetFlags(t *testing.T) {
	c := Defaults()
	c.DescriptionURL = "http://cli-supplied/desc.xml"

	fileURL := "http://from-file/desc.xml"
	filePeriod := uint64(120)
	raw := &RawConfig{
		DescriptionURL: &fileURL,
		Period:         &filePeriod,
	}

	c.MergeFile(raw, map[string]bool{"description-url": true})

	if c.DescriptionURL != "http://cli-supplied/desc.xml" {
		t.Errorf("DescriptionURL = %q, want CLI value to win", c.DescriptionURL)
	}
	if c.Period.Seconds() != 120 {
		t.Errorf("Period = %s, want 120s from file", c.Period)
	}
}
