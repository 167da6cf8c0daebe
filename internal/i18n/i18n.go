// Package i18n хранит пользовательские строки бота (ответы, подсказки,
// причины рекомендаций) по плоским ключам вида "where.screen".
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localesFS embed.FS

// Translator resolves locale keys with a fallback to the default language.
// It is immutable after construction and safe for concurrent use.
type Translator struct {
	locales     map[string]map[string]string // lang -> key -> phrase
	defaultLang string
}

// NewTranslator loads the embedded locale files.
func NewTranslator(defaultLang string) (*Translator, error) {
	sub, err := fs.Sub(localesFS, "locales")
	if err != nil {
		return nil, fmt.Errorf("failed to access embedded locales: %w", err)
	}
	return NewTranslatorFromFS(sub, defaultLang)
}

// NewTranslatorFromFS loads locales from an arbitrary filesystem, one
// yaml file per language. Nested yaml maps are flattened to dotted keys.
func NewTranslatorFromFS(localeFiles fs.FS, defaultLang string) (*Translator, error) {
	t := &Translator{
		locales:     make(map[string]map[string]string),
		defaultLang: defaultLang,
	}

	entries, err := fs.ReadDir(localeFiles, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read locales directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		lang := entry.Name()[:len(entry.Name())-len(ext)]

		content, err := fs.ReadFile(localeFiles, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read locale file %s: %w", entry.Name(), err)
		}
		var tree map[string]interface{}
		if err := yaml.Unmarshal(content, &tree); err != nil {
			return nil, fmt.Errorf("failed to parse locale file %s: %w", entry.Name(), err)
		}

		flat := make(map[string]string)
		flatten("", tree, flat)
		t.locales[lang] = flat
	}

	return t, nil
}

func flatten(prefix string, src map[string]interface{}, dest map[string]string) {
	for k, v := range src {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch child := v.(type) {
		case map[string]interface{}:
			flatten(key, child, dest)
		case string:
			dest[key] = child
		default:
			dest[key] = fmt.Sprintf("%v", v)
		}
	}
}

// Get returns the phrase for key in lang, falling back to the default
// language and then to the key itself. Extra args are passed to Sprintf.
func (t *Translator) Get(lang, key string, args ...interface{}) string {
	if lang == "" {
		lang = t.defaultLang
	}

	phrase, ok := t.lookup(lang, key)
	if !ok && lang != t.defaultLang {
		phrase, ok = t.lookup(t.defaultLang, key)
	}
	if !ok {
		phrase = key
	}

	if len(args) > 0 {
		return fmt.Sprintf(phrase, args...)
	}
	return phrase
}

func (t *Translator) lookup(lang, key string) (string, bool) {
	locale, ok := t.locales[lang]
	if !ok {
		return "", false
	}
	phrase, ok := locale[key]
	return phrase, ok
}
