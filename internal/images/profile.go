package images

import (
	"fmt"
	"strings"

	"github.com/TobiSchelling/auditreports/internal/audit"
)

// Profile names.
const (
	ProfileScreenshot = "screenshot"
	ProfileEyequant   = "eyequant"
	ProfileDefault    = "default"
)

// FitInside scales the image to fit within the bounds without cropping.
const FitInside = "inside"

// Profile fixes resize and encode parameters for a kind of image.
type Profile struct {
	Name      string `yaml:"-"`
	MaxWidth  int    `yaml:"max_width"`
	MaxHeight int    `yaml:"max_height"`
	Fit       string `yaml:"fit"`
	Format    string `yaml:"format"`
	Quality   int    `yaml:"quality"`
}

// Validate checks the profile's parameters.
func (p Profile) Validate() error {
	if p.MaxWidth < 1 || p.MaxHeight < 1 {
		return fmt.Errorf("profile %s: dimensions must be positive", p.Name)
	}
	if p.Quality < 1 || p.Quality > 100 {
		return fmt.Errorf("profile %s: quality must be between 1 and 100", p.Name)
	}
	switch p.Format {
	case "jpeg", "jpg", "png":
	default:
		return fmt.Errorf("profile %s: unsupported format %q", p.Name, p.Format)
	}
	if p.Fit != FitInside {
		return fmt.Errorf("profile %s: unsupported fit %q", p.Name, p.Fit)
	}
	return nil
}

// Extension returns the file extension for the profile's output format.
func (p Profile) Extension() string {
	if p.Format == "png" {
		return ".png"
	}
	return ".jpg"
}

// DefaultProfiles returns the built-in profiles.
func DefaultProfiles() map[string]Profile {
	return map[string]Profile{
		ProfileScreenshot: {Name: ProfileScreenshot, MaxWidth: 720, MaxHeight: 1280, Fit: FitInside, Format: "jpeg", Quality: 85},
		ProfileEyequant:   {Name: ProfileEyequant, MaxWidth: 640, MaxHeight: 1383, Fit: FitInside, Format: "jpeg", Quality: 90},
		ProfileDefault:    {Name: ProfileDefault, MaxWidth: 800, MaxHeight: 600, Fit: FitInside, Format: "jpeg", Quality: 80},
	}
}

// DefaultFieldProfiles maps each known image field to its profile.
func DefaultFieldProfiles() map[string]string {
	return map[string]string{
		audit.DiscoveryScreenshotsField:  ProfileScreenshot,
		audit.DecisionScreenshotsField:   ProfileScreenshot,
		audit.ConversionScreenshotsField: ProfileScreenshot,
		audit.EyequantScreenshotField:    ProfileEyequant,
	}
}

// DefaultFieldPrefixes maps each known image field to its filename prefix.
func DefaultFieldPrefixes() map[string]string {
	return map[string]string{
		audit.DiscoveryScreenshotsField:  "discovery",
		audit.DecisionScreenshotsField:   "decision",
		audit.ConversionScreenshotsField: "conversion",
		audit.EyequantScreenshotField:    "eyequant",
	}
}

// Profiles resolves a field name to a profile.
type Profiles struct {
	byName  map[string]Profile
	byField map[string]string
}

// NewProfiles builds a resolver. Missing built-in profiles are filled from
// DefaultProfiles.
func NewProfiles(profiles map[string]Profile, fields map[string]string) (*Profiles, error) {
	merged := DefaultProfiles()
	for name, p := range profiles {
		p.Name = name
		if err := p.Validate(); err != nil {
			return nil, err
		}
		merged[name] = p
	}
	byField := DefaultFieldProfiles()
	for field, name := range fields {
		if _, ok := merged[name]; !ok {
			return nil, fmt.Errorf("field %q maps to unknown profile %q", field, name)
		}
		byField[field] = name
	}
	return &Profiles{byName: merged, byField: byField}, nil
}

// ForField returns the profile for a field: the explicit mapping first, then
// substring matching on the field name for unrecognized fields.
func (p *Profiles) ForField(field string) Profile {
	if name, ok := p.byField[field]; ok {
		return p.byName[name]
	}
	return p.byName[ProfileNameFromField(field)]
}

// ProfileNameFromField guesses a profile from a field name.
func ProfileNameFromField(field string) string {
	lower := strings.ToLower(field)
	switch {
	case strings.Contains(lower, "eyequant"):
		return ProfileEyequant
	case strings.Contains(lower, "screenshot"), strings.Contains(lower, "phase"):
		return ProfileScreenshot
	default:
		return ProfileDefault
	}
}
