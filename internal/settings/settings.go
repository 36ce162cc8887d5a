// Package settings stores per-user appearance preferences.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

type Appearance struct {
	Theme         string `json:"theme"`
	PrimaryColor  string `json:"primary_color"`
	FontSize      int    `json:"font_size"`
	FontFamily    string `json:"font_family"`
	ReducedMotion bool   `json:"reduced_motion"`
	HighContrast  bool   `json:"high_contrast"`
	DarkMode      bool   `json:"dark_mode"`
}

// Defaults is what a user sees before saving anything.
func Defaults() Appearance {
	return Appearance{
		Theme:        "aquamarine",
		PrimaryColor: "#1e40af",
		FontSize:     16,
		FontFamily:   "system-ui, -apple-system, sans-serif",
	}
}

const (
	minFontSize = 10
	maxFontSize = 32
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

var ErrInvalid = errors.New("invalid appearance settings")

// Validate checks the fields a client can break the layout with.
func (a Appearance) Validate() error {
	if a.FontSize < minFontSize || a.FontSize > maxFontSize {
		return fmt.Errorf("%w: font_size must be between %d and %d", ErrInvalid, minFontSize, maxFontSize)
	}
	if !hexColor.MatchString(a.PrimaryColor) {
		return fmt.Errorf("%w: primary_color must look like #1e40af", ErrInvalid)
	}
	if a.Theme == "" || a.FontFamily == "" {
		return fmt.Errorf("%w: theme and font_family are required", ErrInvalid)
	}
	return nil
}

// Merge decodes a stored (possibly partial) document over the defaults.
// Fields absent from raw keep their default value; an unreadable document
// yields the defaults.
func Merge(raw []byte) Appearance {
	a := Defaults()
	if len(raw) == 0 {
		return a
	}
	if err := json.Unmarshal(raw, &a); err != nil {
		return Defaults()
	}
	return a
}
