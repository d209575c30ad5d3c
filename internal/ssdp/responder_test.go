package ssdp

import "testing"

func TestMatchTargetsSsdpAllFansOutToThree(t *testing.T) {
	p := sampleProfile()
	targets, ok := matchTargets("ssdp:all", p)
	if !ok {
		t.Fatal("expected ssdp:all to match")
	}
	if len(targets) != 3 {
		t.Fatalf("ssdp:all should fan out to 3 targets, got %d", len(targets))
	}
}

func TestMatchTargetsExactMatchesReturnOne(t *testing.T) {
	p := sampleProfile()

	cases := []string{"upnp:rootdevice", p.DeviceType, p.UDN}
	for _, st := range cases {
		targets, ok := matchTargets(st, p)
		if !ok {
			t.Errorf("expected ST %q to match", st)
			continue
		}
		if len(targets) != 1 {
			t.Errorf("ST %q: got %d targets, want 1", st, len(targets))
		}
	}
}

func TestMatchTargetsUnrecognizedSTNoMatch(t *testing.T) {
	p := sampleProfile()
	if _, ok := matchTargets("urn:schemas-upnp-org:device:Printer:1", p); ok {
		t.Error("expected no match for unrelated ST")
	}
}
