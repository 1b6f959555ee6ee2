package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"storycut/internal/config"
	"storycut/internal/logging"
	"storycut/internal/services"
	"storycut/internal/services/gemini"
	"storycut/internal/storyboard"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
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

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) openStore() (*storyboard.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return storyboard.Open(cfg.DatabasePath())
}

func (c *commandContext) geminiClient() (*gemini.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return gemini.NewClient(gemini.Config{
		APIKey:         cfg.Gemini.APIKey,
		BaseURL:        cfg.Gemini.BaseURL,
		TextModel:      cfg.Gemini.TextModel,
		ImageModel:     cfg.Gemini.ImageModel,
		TimeoutSeconds: cfg.Gemini.TimeoutSeconds,
	}), nil
}

// withGenerationLock serializes image generation across processes so two
// invocations never race the quota counter or the segment table.
func (c *commandContext) withGenerationLock(fn func() error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	lock := flock.New(filepath.Join(cfg.Paths.DataDir, "storycut.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire generation lock: %w", err)
	}
	if !ok {
		return errors.New("another storycut generation is already running")
	}
	defer func() { _ = lock.Unlock() }()
	return fn()
}

// resolveProject picks the project commands operate on: an explicit id, or
// the most recently created project.
func resolveProject(ctx context.Context, store *storyboard.Store, projectID int64) (*storyboard.Project, error) {
	if projectID > 0 {
		project, err := store.GetProject(ctx, projectID)
		if err != nil {
			return nil, err
		}
		if project == nil {
			return nil, services.Wrap(services.ErrNotFound, "cli", "project", fmt.Sprintf("project %d not found", projectID), nil)
		}
		return project, nil
	}

	project, err := store.LatestProject(ctx)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, services.Wrap(services.ErrNotFound, "cli", "project", "no project found; create one with 'storycut storyboard <script.srt>'", nil)
	}
	return project, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
