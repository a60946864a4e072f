// Package config resolves, parses, validates, and defaults voicegame configuration.
package config

import "time"

// Recognizer backend names.
const (
	BackendGRPC = "grpc"
	BackendExec = "exec"
)

// Display surface names.
const (
	SurfaceLTR = "ltr"
	SurfaceRTL = "rtl"
)

// Config is the fully materialized runtime configuration.
type Config struct {
	Language   string
	Recording  RecordingConfig
	Audio      AudioConfig
	Recognizer RecognizerConfig
	Display    DisplayConfig
	Indicator  IndicatorConfig
	History    HistoryConfig
	Debug      DebugConfig
}

// RecordingConfig bounds one capture.
type RecordingConfig struct {
	MaxSeconds   int
	SampleRateHz int
	Channels     int
}

// MaxDuration is the auto-stop deadline.
func (c RecordingConfig) MaxDuration() time.Duration {
	return time.Duration(c.MaxSeconds) * time.Second
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// RecognizerConfig selects and tunes the speech-to-text backend.
type RecognizerConfig struct {
	Backend       string
	GRPCEndpoint  string
	Command       CommandConfig
	TimeoutMS     int
	DialTimeoutMS int
}

func (c RecognizerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

func (c RecognizerConfig) DialTimeout() time.Duration {
	return time.Duration(c.DialTimeoutMS) * time.Millisecond
}

// DisplayConfig controls how results are ordered for the terminal.
type DisplayConfig struct {
	Surface        string
	ForceRTL       bool
	MirrorBrackets bool
}

// IndicatorConfig controls audio cues.
type IndicatorConfig struct {
	SoundEnable bool
}

// HistoryConfig controls the local session log.
type HistoryConfig struct {
	Enable bool
	Path   string
	Retain int
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
