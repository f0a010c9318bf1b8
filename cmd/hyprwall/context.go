package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"hyprwall/internal/api"
	"hyprwall/internal/config"
	"hyprwall/internal/logging"
)

type commandContext struct {
	configFlag  *string
	verboseFlag *bool
	jsonFlag    *bool

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	serviceOnce sync.Once
	service     *api.Service
	serviceErr  error
}

func newCommandContext(configFlag *string, verboseFlag, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		verboseFlag: verboseFlag,
		jsonFlag:    jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(c.configFlagValue())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) configFlagValue() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) verbose() bool {
	return c.verboseFlag != nil && *c.verboseFlag
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// logLevel is warn by default so command output stays readable.
func (c *commandContext) logLevel() string {
	if c.verbose() {
		return "debug"
	}
	return "warn"
}

func (c *commandContext) logger() *slog.Logger {
	cfg, err := c.ensureConfig()
	format := "console"
	if err == nil {
		format = cfg.Logging.Format
	}
	logger, err := logging.New(logging.Options{
		Level:       c.logLevel(),
		Format:      format,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

func (c *commandContext) ensureService() (*api.Service, error) {
	c.serviceOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.serviceErr = err
			return
		}
		c.service, c.serviceErr = api.New(cfg, c.logger(), api.Options{})
	})
	return c.service, c.serviceErr
}

func (c *commandContext) withService(fn func(*api.Service) error) error {
	svc, err := c.ensureService()
	if err != nil {
		return err
	}
	return fn(svc)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
