package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseOverlaysOntoDefaults(t *testing.T) {
	input := `
# toddler tablet
language: en-US
recording:
  max_seconds: 8
audio:
  input: usb-mic
recognizer:
  backend: exec
  command: whisper-stt --lang {lang} {wav}
display:
  surface: LTR
  mirror_brackets: true
history:
  retain: 50
debug:
  audio_dump: true
`

	cfg, warnings, err := Parse(input, Default())
	require.NoError(t, err)
	require.Empty(t, warnings)

	require.Equal(t, "en-US", cfg.Language)
	require.Equal(t, 8, cfg.Recording.MaxSeconds)
	require.Equal(t, 44100, cfg.Recording.SampleRateHz)
	require.Equal(t, "usb-mic", cfg.Audio.Input)
	require.Equal(t, "default", cfg.Audio.Fallback)
	require.Equal(t, BackendExec, cfg.Recognizer.Backend)
	require.Equal(t, []string{"whisper-stt", "--lang", "{lang}", "{wav}"}, cfg.Recognizer.Command.Argv)
	require.Equal(t, SurfaceLTR, cfg.Display.Surface)
	require.True(t, cfg.Display.MirrorBrackets)
	require.True(t, cfg.History.Enable)
	require.Equal(t, 50, cfg.History.Retain)
	require.True(t, cfg.Debug.EnableAudioDump)
}

func TestParseEmptyAndCommentOnlyUseBase(t *testing.T) {
	for _, input := range []string{"", "   \n", "# nothing here\n"} {
		cfg, _, err := Parse(input, Default())
		require.NoError(t, err)
		require.Equal(t, Default(), cfg)
	}
}

func TestParseUnknownKeyFails(t *testing.T) {
	_, _, err := Parse("recording:\n  max_secs: 5\n", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "max_secs")
	require.Contains(t, err.Error(), "line 2")
}

func TestParseTypeMismatchReportsLine(t *testing.T) {
	_, _, err := Parse("language: he-IL\nrecording:\n  max_seconds: ten\n", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 3")
}

func TestParseRejectsMultipleDocuments(t *testing.T) {
	_, _, err := Parse("language: he-IL\n---\nlanguage: en-US\n", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "multiple YAML documents")
}

func TestParseRejectsBadCommand(t *testing.T) {
	_, _, err := Parse("recognizer:\n  command: 'stt \"unterminated'\n", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "recognizer.command")
}

func TestParseValidationFailure(t *testing.T) {
	_, _, err := Parse("recording:\n  sample_rate_hz: 11025\n", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "sample_rate_hz")
}
