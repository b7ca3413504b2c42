package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"storyreel/internal/config"
	"storyreel/internal/logging"
	"storyreel/internal/pipeline"
	"storyreel/internal/render"
	"storyreel/internal/store"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

// ensureConfig loads .env from the working directory (if any) before
// resolving the config file so GEMINI_API_KEY can live there.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		if err := loadDotEnv(); err != nil {
			c.configErr = err
			return
		}
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// withOrchestrator opens the project store and hands a ready orchestrator to
// fn. CLI logs go to stderr so stdout stays parseable.
func (c *commandContext) withOrchestrator(fn func(*pipeline.Orchestrator) error) error {
	return c.openOrchestrator(nil, fn)
}

// withRenderingOrchestrator also holds the shared render guard while fn runs,
// so a daemon starting meanwhile does not fail this process's renders.
func (c *commandContext) withRenderingOrchestrator(ctx context.Context, fn func(*pipeline.Orchestrator) error) error {
	return c.openOrchestrator(ctx, fn)
}

func (c *commandContext) openOrchestrator(renderCtx context.Context, fn func(*pipeline.Orchestrator) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.logger(cfg)
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open project store: %w", err)
	}
	defer st.Close()

	if renderCtx != nil {
		guard := render.NewGuard(cfg.RenderLockPath(), logger)
		if _, err := guard.Hold(renderCtx, st); err != nil {
			return err
		}
		defer guard.Release()
	}

	orch := pipeline.New(cfg, st, pipeline.NewProvider(cfg, nil), logger)
	return fn(orch)
}

func (c *commandContext) logger(cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
