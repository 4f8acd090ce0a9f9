package domain

import (
	"errors"
	"slices"
)

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// FontFamilies lists the reader font choices.
var FontFamilies = []string{"system", "serif", "mono", "open-sans", "merriweather"}

// Settings are the reader display preferences.
type Settings struct {
	FontSize      int     `json:"fontSize" validate:"min=12,max=24"`
	FontFamily    string  `json:"fontFamily" validate:"required"`
	Theme         Theme   `json:"theme" validate:"required,oneof=light dark system"`
	ReadingMode   bool    `json:"readingMode"`
	LineHeight    float64 `json:"lineHeight" validate:"min=1.2,max=2.4"`
	LetterSpacing float64 `json:"letterSpacing" validate:"min=-1,max=3"`
}

// DefaultSettings are applied when nothing is stored.
func DefaultSettings() Settings {
	return Settings{
		FontSize:      16,
		FontFamily:    "system",
		Theme:         ThemeSystem,
		ReadingMode:   false,
		LineHeight:    1.6,
		LetterSpacing: 0,
	}
}

func (s Settings) Validate() error {
	switch {
	case s.FontSize < 12 || s.FontSize > 24:
		return errors.New("settings: font size out of range")
	case !slices.Contains(FontFamilies, s.FontFamily):
		return errors.New("settings: unknown font family")
	case s.Theme != ThemeLight && s.Theme != ThemeDark && s.Theme != ThemeSystem:
		return errors.New("settings: unknown theme")
	case s.LineHeight < 1.2 || s.LineHeight > 2.4:
		return errors.New("settings: line height out of range")
	case s.LetterSpacing < -1 || s.LetterSpacing > 3:
		return errors.New("settings: letter spacing out of range")
	}
	return nil
}
