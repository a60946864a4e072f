package session

import (
	"strings"

	"github.com/barakem/voicegame/internal/transcript"
)

// Language is a recognition and display language.
type Language struct {
	Tag       string
	Direction transcript.Direction
}

var (
	Hebrew  = Language{Tag: "he-IL", Direction: transcript.RightToLeft}
	English = Language{Tag: "en-US", Direction: transcript.LeftToRight}
)

// DefaultLanguage is used when none is configured.
var DefaultLanguage = Hebrew

// Languages returns the supported languages in toggle order.
func Languages() []Language {
	return []Language{Hebrew, English}
}

// LookupLanguage resolves a BCP 47 tag or its primary subtag, case-insensitively.
func LookupLanguage(tag string) (Language, bool) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return Language{}, false
	}
	for _, lang := range Languages() {
		full := strings.ToLower(lang.Tag)
		primary, _, _ := strings.Cut(full, "-")
		if tag == full || tag == primary {
			return lang, true
		}
	}
	return Language{}, false
}

// Next returns the language after l in toggle order.
func (l Language) Next() Language {
	langs := Languages()
	for i, lang := range langs {
		if lang.Tag == l.Tag {
			return langs[(i+1)%len(langs)]
		}
	}
	return langs[0]
}
