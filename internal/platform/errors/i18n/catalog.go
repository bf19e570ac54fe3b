// Package i18n renders localized error messages from the errors namespace
// of the embedded message catalog.
package i18n

import (
	"strings"
	"sync"
	"text/template"

	i18ncatalog "github.com/louisbranch/dicetray/internal/platform/i18n/catalog"
)

const namespace = "errors"

// Code is an error code string. The errors package defines the typed codes;
// this package cannot import it.
type Code = string

// Catalog holds the parsed message templates of one locale.
type Catalog struct {
	locale    string
	raw       map[Code]string
	templates map[Code]*template.Template
}

// catalogs caches catalogs by resolved locale.
var catalogs sync.Map

// GetCatalog returns the catalog for locale. Locales are matched against the
// embedded catalogs, so "pt" resolves to pt-BR, and unknown locales fall
// back to en-US.
func GetCatalog(locale string) *Catalog {
	requested := strings.TrimSpace(locale)
	if cat, ok := catalogs.Load(requested); ok {
		return cat.(*Catalog)
	}
	resolved, messages := i18ncatalog.Default().Namespace(requested, namespace)
	if cat, ok := catalogs.Load(resolved); ok {
		return cat.(*Catalog)
	}
	cat, _ := catalogs.LoadOrStore(resolved, NewCatalog(resolved, messages))
	return cat.(*Catalog)
}

// RegisterCatalog installs cat for locale, replacing any cached catalog.
func RegisterCatalog(locale string, cat *Catalog) {
	catalogs.Store(locale, cat)
}

// NewCatalog parses messages for locale. A message that fails to parse is
// kept as plain text.
func NewCatalog(locale string, messages map[Code]string) *Catalog {
	cat := &Catalog{
		locale:    locale,
		raw:       make(map[Code]string, len(messages)),
		templates: make(map[Code]*template.Template, len(messages)),
	}
	for code, text := range messages {
		cat.raw[code] = text
		if tmpl, err := template.New(code).Parse(text); err == nil {
			cat.templates[code] = tmpl
		}
	}
	return cat
}

// Locale returns the catalog locale.
func (c *Catalog) Locale() string {
	return c.locale
}

// Format renders the message for code with metadata. Unknown codes render
// as the code itself; a template that cannot be rendered returns its raw
// text. Missing metadata keys render as "<no value>".
func (c *Catalog) Format(code Code, metadata map[string]string) string {
	text, ok := c.raw[code]
	if !ok {
		return code
	}
	tmpl, ok := c.templates[code]
	if !ok {
		return text
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, metadata); err != nil {
		return text
	}
	return b.String()
}
