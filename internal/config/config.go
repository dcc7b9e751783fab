package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/text/language"
)

// Config holds the viewer settings. Every field comes from a VIEWER_* environment variable
// (optionally set through .env, see internal/env) and falls back to the envDefault value.
type Config struct {
	// Catalogue is the YAML (or JSON) file listing every property the viewer can show.
	Catalogue string `env:"VIEWER_CATALOGUE" envDefault:"assets/listings.yaml"`
	// AssetRoot is the directory relative asset references are resolved against.
	AssetRoot string `env:"VIEWER_ASSET_ROOT" envDefault:"assets"`
	LogPath   string `env:"VIEWER_LOG" envDefault:"logs/viewer.txt"`
	// PrefsPath keeps the console-changed preferences between runs.
	PrefsPath string `env:"VIEWER_PREFS" envDefault:"config/viewer.json"`
	// Listing is the catalogue index shown at startup.
	Listing int `env:"VIEWER_LISTING" envDefault:"0"`

	Width      int32 `env:"VIEWER_WIDTH" envDefault:"1280"`
	Height     int32 `env:"VIEWER_HEIGHT" envDefault:"720"`
	Fullscreen bool  `env:"VIEWER_FULLSCREEN" envDefault:"false"`
	TargetFPS  int32 `env:"VIEWER_TARGET_FPS" envDefault:"60"`
	// Mobile enables the analog stick (gamepad) as a secondary movement input.
	Mobile       bool `env:"VIEWER_MOBILE" envDefault:"false"`
	ShowFPS      bool `env:"VIEWER_SHOW_FPS" envDefault:"false"`
	ShowMemAlloc bool `env:"VIEWER_SHOW_MEMALLOC" envDefault:"false"`

	// Locale formats prices and areas in the inspector (BCP 47 tag).
	Locale string `env:"VIEWER_LOCALE" envDefault:"en-US"`
	// CSS is an optional stylesheet layered over the built-in overlay styles.
	CSS string `env:"VIEWER_CSS"`
	// Font is a font name or path searched under AssetRoot/fonts; empty keeps raylib's default font.
	Font string `env:"VIEWER_FONT"`

	// FetchRetries is the number of attempts per asset; 1 disables retrying.
	FetchRetries  uint          `env:"VIEWER_FETCH_RETRIES" envDefault:"3"`
	FetchBackoff  time.Duration `env:"VIEWER_FETCH_BACKOFF" envDefault:"250ms"`
	FetchTimeout  time.Duration `env:"VIEWER_FETCH_TIMEOUT" envDefault:"60s"`
	// FetchMaxBytes bounds each remote download.
	FetchMaxBytes int64         `env:"VIEWER_FETCH_MAX_BYTES" envDefault:"536870912"`

	// FlattenFloor drops the vertical part of collision push-out so floor contacts never block sliding.
	FlattenFloor bool `env:"VIEWER_FLATTEN_FLOOR" envDefault:"true"`
	// NoShadowMaterial is the material name whose surfaces receive but do not cast shadows.
	NoShadowMaterial string `env:"VIEWER_NO_SHADOW_MATERIAL" envDefault:"Glass"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports settings the viewer cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Catalogue == "" {
		errs = append(errs, errors.New("config: VIEWER_CATALOGUE is empty"))
	}
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("config: invalid window size %dx%d", c.Width, c.Height))
	}
	if c.FetchRetries == 0 {
		errs = append(errs, errors.New("config: VIEWER_FETCH_RETRIES must be at least 1"))
	}
	if c.FetchMaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("config: invalid VIEWER_FETCH_MAX_BYTES %d", c.FetchMaxBytes))
	}
	if c.Listing < 0 {
		errs = append(errs, fmt.Errorf("config: invalid listing index %d", c.Listing))
	}
	if _, err := language.Parse(c.Locale); err != nil {
		errs = append(errs, fmt.Errorf("config: invalid VIEWER_LOCALE %q: %w", c.Locale, err))
	}
	return errors.Join(errs...)
}

// Language returns the parsed locale, or English when it does not parse.
func (c Config) Language() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.English
	}
	return tag
}
