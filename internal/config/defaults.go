package config

const (
	defaultOutputDir        = "~/lectures"
	defaultWorkDir          = "~/.local/share/lectern"
	defaultLogDir           = "~/.local/share/lectern/logs"
	defaultAPIBind          = "127.0.0.1:8765"
	defaultRequestTimeout   = 30
	defaultRetryAttempts    = 5
	defaultRetryBaseSecs    = 1
	defaultRetryMaxSecs     = 10
	defaultMinSegmentBytes  = 1024
	defaultChunkSeconds     = 10.0
	defaultClipSeconds      = 120.0
	defaultEstimateHeadroom = 100
	defaultEstimateFallback = 500
	defaultWhisperModel     = "base"
	defaultSceneThreshold   = 0.15
	defaultMinInterval      = 3.0
	defaultFixedInterval    = 30.0
	defaultMaxFrames        = 500
	defaultHashThreshold    = 8
	defaultOCRWordThreshold = 25
	defaultOllamaHost       = "http://localhost:11434"
	defaultNotesModel       = "qwen2.5:7b"
	defaultVisionModel      = "llama3.2-vision"
	defaultContextLimit     = 8000
	defaultNotesTimeout     = 600
	defaultRetentionMinutes = 240
	defaultQueueCapacity    = 16
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

func defaultSections() []string {
	return []string{"lecture_notes", "summary", "qa_cards"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			WorkDir:   defaultWorkDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Download: Download{
			RequestTimeout:   defaultRequestTimeout,
			RetryAttempts:    defaultRetryAttempts,
			RetryBaseSeconds: defaultRetryBaseSecs,
			RetryMaxSeconds:  defaultRetryMaxSecs,
			MinSegmentBytes:  defaultMinSegmentBytes,
			ChunkSeconds:     defaultChunkSeconds,
			ClipSeconds:      defaultClipSeconds,
			EstimateHeadroom: defaultEstimateHeadroom,
			EstimateFallback: defaultEstimateFallback,
		},
		Transcription: Transcription{
			Binary:   "whisper",
			Model:    defaultWhisperModel,
			Language: "en",
		},
		Frames: Frames{
			SceneThreshold: defaultSceneThreshold,
			MinInterval:    defaultMinInterval,
			FixedInterval:  defaultFixedInterval,
			MaxFrames:      defaultMaxFrames,
			HashThreshold:  defaultHashThreshold,
		},
		Slides: Slides{
			OCREnabled:       true,
			OCRBinary:        "tesseract",
			OCRWordThreshold: defaultOCRWordThreshold,
			VisionEnabled:    true,
			VisionModel:      defaultVisionModel,
		},
		Notes: Notes{
			OllamaHost:     defaultOllamaHost,
			Model:          defaultNotesModel,
			ContextLimit:   defaultContextLimit,
			Sections:       defaultSections(),
			TimeoutSeconds: defaultNotesTimeout,
		},
		Jobs: Jobs{
			RetentionMinutes: defaultRetentionMinutes,
			QueueCapacity:    defaultQueueCapacity,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
