package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateGemini(); err != nil {
		return err
	}
	if err := c.validateQuota(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateGemini() error {
	if c.Gemini.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/storycut/config.toml"
		}
		return fmt.Errorf("gemini.api_key is required. Set GEMINI_API_KEY env var or edit %s (create with 'storycut config init')", defaultPath)
	}
	if c.Gemini.TimeoutSeconds <= 0 {
		return errors.New("gemini.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateQuota() error {
	if c.Quota.DailyImageLimit <= 0 {
		return errors.New("quota.daily_image_limit must be positive")
	}
	if c.Quota.MaxScriptSeconds <= 0 {
		return errors.New("quota.max_script_seconds must be positive")
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if c.Scheduler.Concurrency <= 0 {
		return errors.New("scheduler.concurrency must be positive")
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.FrameRate <= 0 {
		return errors.New("render.frame_rate must be positive")
	}
	for _, format := range c.Render.Formats {
		switch format {
		case "webm", "mp4":
		default:
			return fmt.Errorf("render.formats contains unsupported container %q (webm and mp4 are supported)", format)
		}
	}
	return nil
}
