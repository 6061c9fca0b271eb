// Package i18n localizes langsplit's own user-facing strings.
//
// It wraps the gotext library behind T() and N(); translations are
// embedded in the binary via //go:embed and loaded once by Init().
// Without Init (or for languages with no catalog) both functions pass
// the msgid through unchanged.
package i18n

import (
	"embed"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
)

// locales embeds the translation catalogs.
// Directory structure: locales/{lang}/LC_MESSAGES/langsplit.po
//
//go:embed all:locales
var locales embed.FS

// domain is the gettext domain name for langsplit.
const domain = "langsplit"

var po *gotext.Locale

// Init initializes the i18n system. If lang is empty, it auto-detects
// from LANGUAGE, LC_ALL, LC_MESSAGES, LANG (in that order, matching GNU
// gettext behavior). Call once at startup.
func Init(lang string) {
	if lang == "" {
		lang = detectLanguage()
	}

	po = gotext.NewLocaleFSWithPath(lang, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// T translates a string, returning the msgid unchanged when no
// translation is available.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N translates a string with plural forms; the target language's plural
// formula picks the form.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// detectLanguage reads the locale environment variables in GNU gettext
// priority order.
func detectLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		// LANGUAGE can be a colon-separated list; take the first.
		if env == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		// Strip encoding suffix ("vi_VN.UTF-8" -> "vi_VN").
		if idx := strings.IndexByte(val, '.'); idx >= 0 {
			val = val[:idx]
		}
		if val == "C" || val == "POSIX" || val == "" {
			continue
		}
		return val
	}
	return "en"
}
