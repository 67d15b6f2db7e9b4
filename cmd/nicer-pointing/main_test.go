package main

import (
	"testing"

	"github.com/mopilskog/NICER-Pointing/config"
)

func TestResolveTargetBundledName(t *testing.T) {
	target, err := resolveTarget("PSR_J2124-3358", "", 0)
	if err != nil {
		t.Fatalf("resolveTarget: %v", err)
	}
	if target.Name != "PSR J2124-3358" {
		t.Errorf("name = %q", target.Name)
	}
	if target.CountRate != 0.1 {
		t.Errorf("count rate = %v", target.CountRate)
	}
}

func TestResolveTargetCoord(t *testing.T) {
	target, err := resolveTarget("", "321.18, -33.98", 0.5)
	if err != nil {
		t.Fatalf("resolveTarget: %v", err)
	}
	if target.Position.RADeg != 321.18 || target.Position.DecDeg != -33.98 {
		t.Errorf("position = %+v", target.Position)
	}
}

func TestResolveTargetErrors(t *testing.T) {
	cases := []struct {
		name      string
		preset    string
		coord     string
		countRate float64
	}{
		{"unknown preset", "PSR J0000+0000", "", 0},
		{"no target at all", "", "", 0},
		{"malformed coord", "", "321.18", 0.5},
		{"bad ra", "", "abc,-33.98", 0.5},
		{"missing count rate", "", "321.18,-33.98", 0},
	}
	for _, tc := range cases {
		if _, err := resolveTarget(tc.preset, tc.coord, tc.countRate); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestBuildInstrumentFromDefaults(t *testing.T) {
	cfg, err := config.Parse([]byte("catalogs:\n  - key: XMM\n    path: xmm.json\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	inst := buildInstrument(cfg)
	if inst.Name != "NICER-XTI" {
		t.Errorf("name = %q", inst.Name)
	}
	if inst.Vignetting.Len() == 0 {
		t.Error("vignetting curve empty")
	}
	if inst.BackgroundRate != 0.2 {
		t.Errorf("background = %v", inst.BackgroundRate)
	}
}
