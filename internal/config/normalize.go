package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeGemini()
	c.normalizeQuota()
	c.normalizeScheduler()
	c.normalizeRender()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeGemini() {
	c.Gemini.APIKey = strings.TrimSpace(c.Gemini.APIKey)
	if value, ok := os.LookupEnv("GEMINI_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.Gemini.APIKey = strings.TrimSpace(value)
	}
	c.Gemini.BaseURL = strings.TrimSpace(strings.TrimRight(c.Gemini.BaseURL, "/"))
	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = defaultGeminiBaseURL
	}
	c.Gemini.TextModel = strings.TrimSpace(c.Gemini.TextModel)
	if c.Gemini.TextModel == "" {
		c.Gemini.TextModel = defaultGeminiTextModel
	}
	c.Gemini.ImageModel = strings.TrimSpace(c.Gemini.ImageModel)
	if c.Gemini.ImageModel == "" {
		c.Gemini.ImageModel = defaultGeminiImageModel
	}
	if c.Gemini.TimeoutSeconds <= 0 {
		c.Gemini.TimeoutSeconds = defaultGeminiTimeoutSeconds
	}
}

func (c *Config) normalizeQuota() {
	if c.Quota.DailyImageLimit <= 0 {
		c.Quota.DailyImageLimit = defaultDailyImageLimit
	}
	if c.Quota.MaxScriptSeconds <= 0 {
		c.Quota.MaxScriptSeconds = defaultMaxScriptSeconds
	}
}

func (c *Config) normalizeScheduler() {
	if c.Scheduler.Concurrency <= 0 {
		c.Scheduler.Concurrency = defaultSchedulerConcurrency
	}
}

func (c *Config) normalizeRender() {
	if c.Render.FrameRate <= 0 {
		c.Render.FrameRate = defaultRenderFrameRate
	}
	c.Render.VideoBitrate = strings.TrimSpace(c.Render.VideoBitrate)
	if c.Render.VideoBitrate == "" {
		c.Render.VideoBitrate = defaultRenderVideoBitrate
	}
	formats := make([]string, 0, len(c.Render.Formats))
	seen := make(map[string]struct{}, len(c.Render.Formats))
	for _, format := range c.Render.Formats {
		normalized := strings.ToLower(strings.TrimSpace(format))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		formats = append(formats, normalized)
	}
	if len(formats) == 0 {
		formats = defaultRenderFormats()
	}
	c.Render.Formats = formats
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
