package indicator

import (
	"strings"

	"github.com/barakem/voicegame/internal/fsm"
	"github.com/barakem/voicegame/internal/session"
	"golang.org/x/text/language"
)

// Key names one user-facing message.
type Key string

const (
	KeyTapToSpeak         Key = "TAP_TO_SPEAK"
	KeyRecording          Key = "RECORDING"
	KeyProcessing         Key = "PROCESSING"
	KeyListening          Key = "LISTENING"
	KeyThinking           Key = "THINKING"
	KeySaySomething       Key = "SAY_SOMETHING"
	KeyNotUnderstood      Key = "NOT_UNDERSTOOD"
	KeyNetworkError       Key = "NETWORK_ERROR"
	KeyMicUnavailable     Key = "MIC_UNAVAILABLE"
	KeyServiceUnavailable Key = "SERVICE_UNAVAILABLE"
	KeyError              Key = "ERROR"
	KeyLanguageName       Key = "LANGUAGE_NAME"
)

type locale string

const (
	localeHebrew  locale = "he"
	localeEnglish locale = "en"
)

var supportedLocales = language.NewMatcher([]language.Tag{
	language.English,
	language.Hebrew,
})

var catalog = map[locale]map[Key]string{
	localeHebrew: {
		KeyTapToSpeak:         "לחץ לדבר!",
		KeyRecording:          "מקליט... (לחץ לעצירה)",
		KeyProcessing:         "מעבד...",
		KeyListening:          "מקשיב...",
		KeyThinking:           "חושב...",
		KeySaySomething:       "אמור משהו בעברית!",
		KeyNotUnderstood:      "לא הבנתי",
		KeyNetworkError:       "שגיאת רשת",
		KeyMicUnavailable:     "המיקרופון לא זמין",
		KeyServiceUnavailable: "השירות לא זמין",
		KeyError:              "שגיאה",
		KeyLanguageName:       "עברית",
	},
	localeEnglish: {
		KeyTapToSpeak:         "Tap to Speak!",
		KeyRecording:          "Recording... (tap to stop)",
		KeyProcessing:         "Processing...",
		KeyListening:          "Listening...",
		KeyThinking:           "Thinking...",
		KeySaySomething:       "Say something in English!",
		KeyNotUnderstood:      "Didn't understand",
		KeyNetworkError:       "Network error",
		KeyMicUnavailable:     "Microphone unavailable",
		KeyServiceUnavailable: "Service unavailable",
		KeyError:              "Error",
		KeyLanguageName:       "English",
	},
}

// resolveLocale maps a BCP 47 tag or POSIX locale string to a catalog locale.
// Anything unrecognized falls back to English.
func resolveLocale(raw string) locale {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexAny(raw, ".@"); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.ReplaceAll(raw, "_", "-")
	if raw == "" {
		return localeEnglish
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return localeEnglish
	}
	_, index, confidence := supportedLocales.Match(tag)
	if confidence == language.No || index != 1 {
		return localeEnglish
	}
	return localeHebrew
}

// Text returns the message for key in the language named by tag.
func Text(tag string, key Key) string {
	if msg, ok := catalog[resolveLocale(tag)][key]; ok {
		return msg
	}
	return catalog[localeEnglish][key]
}

// ErrorKey maps an error kind to its message key.
func ErrorKey(kind session.ErrorKind) Key {
	switch kind {
	case session.ErrorNoSpeech, session.ErrorEmptyCapture:
		return KeyNotUnderstood
	case session.ErrorNetwork:
		return KeyNetworkError
	case session.ErrorDeviceUnavailable:
		return KeyMicUnavailable
	case session.ErrorQuotaOrAuth:
		return KeyServiceUnavailable
	default:
		return KeyError
	}
}

// StateKey returns the headline key for a view. Showing has no headline of
// its own unless the transcript came back empty.
func StateKey(v session.View) (Key, bool) {
	switch v.State {
	case fsm.StateReady:
		return KeyTapToSpeak, true
	case fsm.StateRecording:
		return KeyRecording, true
	case fsm.StateProcessing:
		return KeyThinking, true
	case fsm.StateShowing:
		if strings.TrimSpace(v.DisplayText) == "" {
			return KeyNotUnderstood, true
		}
		return "", false
	case fsm.StateError:
		return ErrorKey(v.ErrorKind), true
	default:
		return "", false
	}
}

// Headline returns the localized status line for a view.
func Headline(v session.View) string {
	key, ok := StateKey(v)
	if !ok {
		return ""
	}
	return Text(v.Language.Tag, key)
}

// Prompt returns the idle hint shown under the tap target.
func Prompt(tag string) string {
	return Text(tag, KeySaySomething)
}
