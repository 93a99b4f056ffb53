// Package localization provides the translated texts the Telegram bot
// replies with. Translations are JSON files named by language code
// (e.g. "en.json"); English is the fallback.
package localization

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
)

const fallbackLang = "en"

//go:embed locales/*.json
var bundled embed.FS

var (
	defaultOnce      sync.Once
	defaultLocalizer *Localizer
)

// Localizer holds a map of languages, each with its own map of translation
// keys and values.
type Localizer struct {
	translations map[string]map[string]string
	mu           sync.RWMutex
}

// NewLocalizer loads every *.json file at the root of fsys.
func NewLocalizer(fsys fs.FS) (*Localizer, error) {
	l := &Localizer{
		translations: make(map[string]map[string]string),
	}

	files, err := fs.Glob(fsys, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list localization files: %w", err)
	}

	for _, name := range files {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read localization file %s: %w", name, err)
		}

		var translations map[string]string
		if err := json.Unmarshal(data, &translations); err != nil {
			return nil, fmt.Errorf("failed to parse localization file %s: %w", name, err)
		}

		l.translations[strings.TrimSuffix(path.Base(name), ".json")] = translations
	}

	return l, nil
}

// Default returns the localizer built from the bundled translations.
func Default() *Localizer {
	defaultOnce.Do(func() {
		sub, err := fs.Sub(bundled, "locales")
		if err == nil {
			defaultLocalizer, err = NewLocalizer(sub)
		}
		if err != nil {
			panic(fmt.Sprintf("bundled translations: %v", err))
		}
	})
	return defaultLocalizer
}

// GetString returns the text for key in lang. Region suffixes are ignored
// ("uk-UA" reads "uk"). A missing language or key falls back to English,
// then to the key itself.
func (l *Localizer) GetString(lang, key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	lang = strings.ToLower(lang)
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}

	if langTranslations, ok := l.translations[lang]; ok {
		if value, ok := langTranslations[key]; ok {
			return value
		}
	}
	if lang != fallbackLang {
		if enTranslations, ok := l.translations[fallbackLang]; ok {
			if value, ok := enTranslations[key]; ok {
				return value
			}
		}
	}

	return key
}

// Languages lists the loaded language codes.
func (l *Localizer) Languages() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.translations))
	for lang := range l.translations {
		out = append(out, lang)
	}
	return out
}
