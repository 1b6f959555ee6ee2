package config

const (
	defaultDataDir              = "~/.local/share/storycut"
	defaultOutputDir            = "~/storycut/output"
	defaultLogDir               = "~/.local/share/storycut/logs"
	defaultGeminiBaseURL        = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiTextModel      = "gemini-3-flash-preview"
	defaultGeminiImageModel     = "gemini-3-pro-image-preview"
	defaultGeminiTimeoutSeconds = 300
	defaultDailyImageLimit      = 10000
	defaultMaxScriptSeconds     = 36000
	defaultSchedulerConcurrency = 3
	defaultRenderFrameRate      = 30
	defaultRenderVideoBitrate   = "8M"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

func defaultRenderFormats() []string {
	return []string{"webm", "mp4"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Gemini: Gemini{
			BaseURL:        defaultGeminiBaseURL,
			TextModel:      defaultGeminiTextModel,
			ImageModel:     defaultGeminiImageModel,
			TimeoutSeconds: defaultGeminiTimeoutSeconds,
		},
		Quota: Quota{
			DailyImageLimit:  defaultDailyImageLimit,
			MaxScriptSeconds: defaultMaxScriptSeconds,
		},
		Scheduler: Scheduler{
			Concurrency: defaultSchedulerConcurrency,
		},
		Render: Render{
			FrameRate:    defaultRenderFrameRate,
			VideoBitrate: defaultRenderVideoBitrate,
			Formats:      defaultRenderFormats(),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
