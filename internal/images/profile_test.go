package images

import (
	"testing"

	"github.com/TobiSchelling/auditreports/internal/audit"
)

func TestProfileNameFromField(t *testing.T) {
	cases := map[string]string{
		"Eyequant Heatmap":            ProfileEyequant,
		"Homepage Screenshot":         ProfileScreenshot,
		"Checkout Phase Images":       ProfileScreenshot,
		"Logo":                        ProfileDefault,
		audit.EyequantScreenshotField: ProfileEyequant,
	}
	for field, want := range cases {
		if got := ProfileNameFromField(field); got != want {
			t.Errorf("ProfileNameFromField(%q) = %q, want %q", field, got, want)
		}
	}
}

func TestForFieldPrefersExplicitMapping(t *testing.T) {
	p, err := NewProfiles(nil, map[string]string{"Eyequant Backup": ProfileDefault})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := p.ForField("Eyequant Backup").Name; got != ProfileDefault {
		t.Errorf("expected explicit mapping to win, got %s", got)
	}
	if got := p.ForField(audit.DiscoveryScreenshotsField).Name; got != ProfileScreenshot {
		t.Errorf("expected screenshot profile, got %s", got)
	}
	if got := p.ForField("Something Else").Name; got != ProfileDefault {
		t.Errorf("expected default fallback, got %s", got)
	}
}

func TestNewProfilesOverridesAndValidates(t *testing.T) {
	p, err := NewProfiles(map[string]Profile{
		ProfileScreenshot: {MaxWidth: 360, MaxHeight: 640, Fit: FitInside, Format: "png", Quality: 70},
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := p.ForField(audit.DecisionScreenshotsField)
	if got.MaxWidth != 360 || got.Extension() != ".png" || got.Name != ProfileScreenshot {
		t.Errorf("unexpected profile %+v", got)
	}

	_, err = NewProfiles(map[string]Profile{
		"bad": {MaxWidth: 10, MaxHeight: 10, Fit: FitInside, Format: "jpeg", Quality: 0},
	}, nil)
	if err == nil {
		t.Error("expected quality validation error")
	}

	_, err = NewProfiles(nil, map[string]string{"Logo": "missing"})
	if err == nil {
		t.Error("expected unknown profile error")
	}
}
