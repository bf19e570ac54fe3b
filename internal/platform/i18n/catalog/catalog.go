// Package catalog holds the user-facing message catalogs.
//
// Catalogs live under locales/<locale>/<namespace>.yaml as flat maps from
// message key to text. CLI messages are printf templates rendered through
// golang.org/x/text/message; error messages are text/template strings
// rendered by the errors package.
package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"maps"
	"path"
	"slices"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the locale every other locale falls back to.
const BaseLocale = "en-US"

//go:embed locales/*/*.yaml
var embedded embed.FS

var defaultBundle = mustLoad(embedded)

// Default returns the embedded bundle.
func Default() *Bundle {
	return defaultBundle
}

// Bundle is a set of locales loaded from one filesystem.
type Bundle struct {
	// locale -> namespace -> key -> text
	messages map[string]map[string]map[string]string
	tags     []language.Tag
	matcher  language.Matcher
	builder  *catalog.Builder
}

// Load reads every locales/*/*.yaml file in fsys. Keys must be unique
// within a locale across namespaces and the base locale must be present.
func Load(fsys fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(fsys, "locales/*/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob catalogs: %w", err)
	}
	slices.Sort(paths)

	b := &Bundle{messages: make(map[string]map[string]map[string]string)}
	for _, p := range paths {
		if err := b.loadFile(fsys, p); err != nil {
			return nil, err
		}
	}
	if _, ok := b.messages[BaseLocale]; !ok {
		return nil, fmt.Errorf("base locale %s has no catalog", BaseLocale)
	}

	b.tags = []language.Tag{language.MustParse(BaseLocale)}
	for _, locale := range b.Locales() {
		if locale == BaseLocale {
			continue
		}
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("locale %q: %w", locale, err)
		}
		b.tags = append(b.tags, tag)
	}
	b.matcher = language.NewMatcher(b.tags)

	b.builder = catalog.NewBuilder(catalog.Fallback(b.tags[0]))
	for locale, namespaces := range b.messages {
		tag := language.MustParse(locale)
		for _, messages := range namespaces {
			for key, text := range messages {
				if err := b.builder.SetString(tag, key, text); err != nil {
					return nil, fmt.Errorf("register %s %s: %w", locale, key, err)
				}
			}
		}
	}
	return b, nil
}

func (b *Bundle) loadFile(fsys fs.FS, p string) error {
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return fmt.Errorf("read %s: %w", p, err)
	}
	var entries map[string]string
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse %s: %w", p, err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("%s: no messages", p)
	}

	locale := path.Base(path.Dir(p))
	ns := strings.TrimSuffix(path.Base(p), ".yaml")
	namespaces := b.messages[locale]
	if namespaces == nil {
		namespaces = make(map[string]map[string]string)
		b.messages[locale] = namespaces
	}
	for key := range entries {
		if strings.TrimSpace(key) != key || key == "" {
			return fmt.Errorf("%s: invalid key %q", p, key)
		}
		for other, messages := range namespaces {
			if _, dup := messages[key]; dup {
				return fmt.Errorf("%s: key %q already defined in %s", p, key, other)
			}
		}
	}
	namespaces[ns] = entries
	return nil
}

// Locales returns the loaded locales in sorted order.
func (b *Bundle) Locales() []string {
	out := make([]string, 0, len(b.messages))
	for locale := range b.messages {
		out = append(out, locale)
	}
	slices.Sort(out)
	return out
}

// ResolveLocale maps a locale tag or Accept-Language value to the closest
// loaded locale, falling back to BaseLocale.
func (b *Bundle) ResolveLocale(requested string) string {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return BaseLocale
	}
	if _, ok := b.messages[requested]; ok {
		return requested
	}
	desired, _, err := language.ParseAcceptLanguage(requested)
	if err != nil || len(desired) == 0 {
		return BaseLocale
	}
	_, i, confidence := b.matcher.Match(desired...)
	if confidence == language.No {
		return BaseLocale
	}
	return b.tags[i].String()
}

// Printer returns a printer for the closest loaded locale.
func (b *Bundle) Printer(locale string) *message.Printer {
	return message.NewPrinter(language.MustParse(b.ResolveLocale(locale)), message.Catalog(b.builder))
}

// Namespace returns the messages of ns in the closest loaded locale and the
// locale they came from. A locale lacking ns falls back to BaseLocale.
func (b *Bundle) Namespace(locale, ns string) (string, map[string]string) {
	resolved := b.ResolveLocale(locale)
	if messages, ok := b.messages[resolved][ns]; ok {
		return resolved, maps.Clone(messages)
	}
	return BaseLocale, maps.Clone(b.messages[BaseLocale][ns])
}

// Missing lists the base locale keys that locale does not define.
func (b *Bundle) Missing(locale string) []string {
	var missing []string
	for ns, messages := range b.messages[BaseLocale] {
		for key := range messages {
			if _, ok := b.messages[locale][ns][key]; !ok {
				missing = append(missing, key)
			}
		}
	}
	slices.Sort(missing)
	return missing
}

func mustLoad(fsys fs.FS) *Bundle {
	b, err := Load(fsys)
	if err != nil {
		panic(err)
	}
	return b
}
