package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Language: "he-IL",
		Recording: RecordingConfig{
			MaxSeconds:   10,
			SampleRateHz: 44100,
			Channels:     1,
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Recognizer: RecognizerConfig{
			Backend:       BackendGRPC,
			GRPCEndpoint:  "127.0.0.1:50061",
			TimeoutMS:     15000,
			DialTimeoutMS: 3000,
		},
		Display: DisplayConfig{
			Surface: SurfaceRTL,
		},
		Indicator: IndicatorConfig{SoundEnable: true},
		History: HistoryConfig{
			Enable: true,
			Retain: 500,
		},
		Debug: DebugConfig{},
	}
}
