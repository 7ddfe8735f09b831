package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultDatabaseName = "conversions.sqlite"

// Config represents the main application configuration.
type Config struct {
	Settings  Settings        `yaml:"settings"`
	Session   SessionConfig   `yaml:"session"`
	Channels  ChannelsConfig  `yaml:"channels"`
	Cache     CacheConfig     `yaml:"cache"`
	Alignment AlignmentConfig `yaml:"alignment"`
	Metadata  MetadataConfig  `yaml:"metadata"`
	Storage   StorageConfig   `yaml:"storage"`
}

// Settings represents global application settings.
type Settings struct {
	LogLevel string `yaml:"logLevel"`

	// StubFrames limits the number of samples written per channel when
	// positive. Used for conversion smoke runs over large sessions.
	StubFrames int `yaml:"stubFrames"`
}

// Level maps the configured log level onto slog levels, defaulting to
// info for unknown values.
func (s Settings) Level() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SessionConfig identifies the recording session being converted.
type SessionConfig struct {
	Subject    string `yaml:"subject"`
	ID         string `yaml:"id"`
	RawDataDir string `yaml:"rawDataDir"`
	CacheDir   string `yaml:"cacheDir"`
	OutputDir  string `yaml:"outputDir"`

	// CamlogFile overrides camera log discovery; when empty the single
	// *.camlog file in RawDataDir is used.
	CamlogFile string `yaml:"camlogFile"`
}

// ChannelsConfig selects the two excitation wavelengths to extract and
// the light-source properties table resolving them to channel ids.
type ChannelsConfig struct {
	FunctionalWavelengthNm int    `yaml:"functionalWavelengthNm"`
	IsosbesticWavelengthNm int    `yaml:"isosbesticWavelengthNm"`
	PropertiesFile         string `yaml:"propertiesFile"`
}

// CacheConfig controls the frame cache build step.
type CacheConfig struct {
	// Force rebuilds the cache even when it already exists.
	Force bool `yaml:"force"`
}

// AlignmentConfig points at the externally computed aligned-time
// datasets. When both files exist they supersede the native camera-log
// timestamps.
type AlignmentConfig struct {
	TimesFile       string `yaml:"timesFile"`
	LightSourceFile string `yaml:"lightSourceFile"`
}

// MetadataConfig points at the declarative metadata documents merged
// into the output container.
type MetadataConfig struct {
	DefaultsFile  string `yaml:"defaultsFile"`
	OverridesFile string `yaml:"overridesFile"`
}

// StorageConfig represents bookkeeping storage settings.
type StorageConfig struct {
	DatabaseFile string `yaml:"databaseFile"`
}

// LoadConfig reads and validates the YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	var config Config
	if err = yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err = config.validate(); err != nil {
		return nil, err
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Session.RawDataDir == "" {
		errs = append(errs, errors.New("session.rawDataDir is required"))
	}
	if c.Session.OutputDir == "" {
		errs = append(errs, errors.New("session.outputDir is required"))
	}
	if c.Session.Subject == "" {
		errs = append(errs, errors.New("session.subject is required"))
	}
	if c.Session.ID == "" {
		errs = append(errs, errors.New("session.id is required"))
	}
	if c.Channels.PropertiesFile == "" {
		errs = append(errs, errors.New("channels.propertiesFile is required"))
	}
	if c.Channels.FunctionalWavelengthNm <= 0 {
		errs = append(errs, errors.New("channels.functionalWavelengthNm is required"))
	}
	if c.Channels.IsosbesticWavelengthNm <= 0 {
		errs = append(errs, errors.New("channels.isosbesticWavelengthNm is required"))
	}

	return errors.Join(errs...)
}

func (c *Config) applyDefaults() {
	if c.Storage.DatabaseFile == "" {
		c.Storage.DatabaseFile = filepath.Join(c.Session.OutputDir, defaultDatabaseName)
	}
	if c.Session.CacheDir == "" {
		c.Session.CacheDir = filepath.Join(c.Session.OutputDir, "cache")
	}
}
