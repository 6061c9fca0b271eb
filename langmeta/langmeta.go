// Package langmeta provides display metadata (native names and emoji
// flags) for the language codes that show up in status output and run
// summaries.
package langmeta

import "strings"

// Meta describes language display metadata.
type Meta struct {
	Name string
	Flag string
}

// Registry contains canonical language metadata. Locale variants are
// resolved in Resolve() via normalization and base-language fallback.
var Registry = map[string]Meta{
	"ar":    {Name: "العربية", Flag: "🇸🇦"},
	"cs":    {Name: "Čeština", Flag: "🇨🇿"},
	"de":    {Name: "Deutsch", Flag: "🇩🇪"},
	"en":    {Name: "English", Flag: "🇺🇸"},
	"en-GB": {Name: "English (UK)", Flag: "🇬🇧"},
	"es":    {Name: "Español", Flag: "🇪🇸"},
	"fr":    {Name: "Français", Flag: "🇫🇷"},
	"hi":    {Name: "हिन्दी", Flag: "🇮🇳"},
	"id":    {Name: "Bahasa Indonesia", Flag: "🇮🇩"},
	"it":    {Name: "Italiano", Flag: "🇮🇹"},
	"ja":    {Name: "日本語", Flag: "🇯🇵"},
	"km":    {Name: "ខ្មែរ", Flag: "🇰🇭"},
	"ko":    {Name: "한국어", Flag: "🇰🇷"},
	"lo":    {Name: "ລາວ", Flag: "🇱🇦"},
	"ms":    {Name: "Bahasa Melayu", Flag: "🇲🇾"},
	"nl":    {Name: "Nederlands", Flag: "🇳🇱"},
	"pl":    {Name: "Polski", Flag: "🇵🇱"},
	"pt":    {Name: "Português", Flag: "🇵🇹"},
	"pt-BR": {Name: "Português (Brasil)", Flag: "🇧🇷"},
	"ru":    {Name: "Русский", Flag: "🇷🇺"},
	"th":    {Name: "ไทย", Flag: "🇹🇭"},
	"tr":    {Name: "Türkçe", Flag: "🇹🇷"},
	"uk":    {Name: "Українська", Flag: "🇺🇦"},
	"vi":    {Name: "Tiếng Việt", Flag: "🇻🇳"},
	"zh":    {Name: "中文", Flag: "🇨🇳"},
	"zh-TW": {Name: "繁體中文", Flag: "🇹🇼"},
}

func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Resolve returns best-effort metadata for a language code, supporting
// variants like vi_VN, pt-br, and base-language fallbacks. Unknown codes
// come back with the code itself as the name.
func Resolve(lang string) Meta {
	if m, ok := Registry[lang]; ok {
		return m
	}
	normalized := canonicalize(lang)
	if m, ok := Registry[normalized]; ok {
		return m
	}
	if parts := strings.SplitN(normalized, "-", 2); len(parts) == 2 {
		if m, ok := Registry[parts[0]]; ok {
			return m
		}
	}
	return Meta{Name: lang, Flag: ""}
}

// Label formats a code for display: "vi (Tiếng Việt 🇻🇳)" for known
// codes, the bare code otherwise.
func Label(lang string) string {
	m := Resolve(lang)
	if m.Name == lang || m.Name == "" {
		return lang
	}
	if m.Flag != "" {
		return lang + " (" + m.Name + " " + m.Flag + ")"
	}
	return lang + " (" + m.Name + ")"
}
