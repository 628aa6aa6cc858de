package utils

import "strings"

var regionByLang = map[string]string{
	"fr": "fr-FR",
	"en": "en-US",
	"es": "es-ES",
	"de": "de-DE",
	"it": "it-IT",
	"pt": "pt-PT",
	"nl": "nl-NL",
}

// LanguageCode expands a bare ISO 639-1 code ("fr") to the BCP-47 tag Cloud
// Speech expects ("fr-FR"). Tags that already carry a region pass through.
func LanguageCode(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return "fr-FR"
	}
	if strings.Contains(lang, "-") {
		return lang
	}
	if tag, ok := regionByLang[strings.ToLower(lang)]; ok {
		return tag
	}
	return strings.ToLower(lang)
}
