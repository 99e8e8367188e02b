// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

const (
	KeyIdleTimeout   = "engine.idle-timeout"
	KeyMaxErrors     = "engine.max-errors"
	KeySeekTolerance = "engine.seek-tolerance"
	KeyBus           = "bus.type"
	KeyPlayer        = "bus.player"
	KeyLogLevel      = "log.level"
	KeyLogJSON       = "log.json"
	KeyMetricsListen = "metrics.listen"

	EnvPrefix = "MPRISCTL"
)

var ErrInvalid = errors.New("invalid configuration")

// Config is the validated configuration.
type Config struct {
	IdleTimeout   time.Duration
	MaxErrors     int
	SeekTolerance time.Duration

	// session or system
	Bus string
	// default player, matched like a command line argument
	Player string

	LogLevel string
	LogJSON  bool

	// listen address for /metrics, empty to disable
	MetricsListen string
}

// New returns a viper instance reading from fs, with defaults and
// environment overrides (MPRISCTL_ENGINE_IDLE_TIMEOUT etc.) in place.
func New(fs afero.Fs) *viper.Viper {
	v := viper.New()
	v.SetFs(fs)

	v.SetDefault(KeyIdleTimeout, 5*time.Second)
	v.SetDefault(KeyMaxErrors, 3)
	v.SetDefault(KeySeekTolerance, time.Second)
	v.SetDefault(KeyBus, "session")
	v.SetDefault(KeyPlayer, "")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogJSON, false)
	v.SetDefault(KeyMetricsListen, "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Read loads configFile, or looks for mprisctl.toml in the default
// directories when it is empty. Only an explicitly named file has to exist.
func Read(v *viper.Viper, configFile string) error {
	if configFile != "" {
		// use custom config file
		v.SetConfigFile(configFile)
	} else {
		// lookup default dirs
		v.SetConfigName("mprisctl")
		v.SetConfigType("toml")
		v.AddConfigPath("$HOME/.config/mprisctl")
		v.AddConfigPath(".")
	}

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if configFile == "" && errors.As(err, &notFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config file error: %w", err)
	}
	return nil
}

// Load extracts and validates the configuration.
func Load(v *viper.Viper) (Config, error) {
	c := Config{
		IdleTimeout:   v.GetDuration(KeyIdleTimeout),
		MaxErrors:     v.GetInt(KeyMaxErrors),
		SeekTolerance: v.GetDuration(KeySeekTolerance),
		Bus:           v.GetString(KeyBus),
		Player:        v.GetString(KeyPlayer),
		LogLevel:      v.GetString(KeyLogLevel),
		LogJSON:       v.GetBool(KeyLogJSON),
		MetricsListen: v.GetString(KeyMetricsListen),
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.IdleTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: %s must be positive", ErrInvalid, KeyIdleTimeout))
	}
	if c.MaxErrors < 1 {
		errs = append(errs, fmt.Errorf("%w: %s must be at least 1", ErrInvalid, KeyMaxErrors))
	}
	if c.SeekTolerance < 0 {
		errs = append(errs, fmt.Errorf("%w: %s must not be negative", ErrInvalid, KeySeekTolerance))
	}
	if c.Bus != "session" && c.Bus != "system" {
		errs = append(errs, fmt.Errorf("%w: %s must be session or system, not %q", ErrInvalid, KeyBus, c.Bus))
	}
	return errors.Join(errs...)
}
