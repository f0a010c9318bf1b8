package config

import (
	"errors"
	"fmt"

	"hyprwall/internal/encoding"
	"hyprwall/internal/media"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEncoding(); err != nil {
		return err
	}
	if err := c.validatePower(); err != nil {
		return err
	}
	if err := c.validateDaemon(); err != nil {
		return err
	}
	if err := c.validateRunner(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateEncoding() error {
	codec, err := encoding.ParseCodec(c.Encoding.Codec)
	if err != nil {
		return fmt.Errorf("encoding.codec: %w", err)
	}
	encoder, err := encoding.ParseEncoder(c.Encoding.Encoder)
	if err != nil {
		return fmt.Errorf("encoding.encoder: %w", err)
	}
	if err := encoding.CheckRequested(encoder, codec); err != nil {
		return fmt.Errorf("encoding.encoder: %w", err)
	}
	if _, err := encoding.ParseProfileName(c.Encoding.Profile); err != nil {
		return fmt.Errorf("encoding.profile: %w", err)
	}
	if _, err := media.ParseMode(c.Encoding.Mode); err != nil {
		return fmt.Errorf("encoding.mode: %w", err)
	}
	return nil
}

func (c *Config) validatePower() error {
	h := c.Hysteresis()
	if err := h.Validate(); err != nil {
		return fmt.Errorf("power.%w", err)
	}
	if c.Power.CooldownSeconds < 0 {
		return errors.New("power.cooldown_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateDaemon() error {
	if err := ensurePositiveMap(map[string]int{
		"daemon.ac_interval_seconds":      c.Daemon.ACIntervalSeconds,
		"daemon.battery_interval_seconds": c.Daemon.BatteryIntervalSeconds,
	}); err != nil {
		return err
	}
	if c.Daemon.DebounceSeconds < 0 {
		return errors.New("daemon.debounce_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateRunner() error {
	if err := ensurePositiveMap(map[string]int{
		"runner.stop_timeout_ms":  c.Runner.StopTimeoutMS,
		"runner.poll_interval_ms": c.Runner.PollIntervalMS,
	}); err != nil {
		return err
	}
	if c.Runner.SweepGraceMS < 0 {
		return errors.New("runner.sweep_grace_ms must not be negative")
	}
	if c.Runner.PollIntervalMS > c.Runner.StopTimeoutMS {
		return errors.New("runner.poll_interval_ms must not exceed runner.stop_timeout_ms")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
