// Package lang validates the recognition language passed to the speech backends.
package lang

import (
	"fmt"
	"strings"
)

// Auto asks the backend to detect the spoken language itself.
const Auto = "auto"

// whisperLanguages lists ISO 639-1 codes understood by Whisper-family models
// and the Google recognizer, with their display names.
var whisperLanguages = map[string]string{
	"af": "Afrikaans",
	"ar": "Arabic",
	"az": "Azerbaijani",
	"be": "Belarusian",
	"bg": "Bulgarian",
	"bn": "Bengali",
	"ca": "Catalan",
	"cs": "Czech",
	"da": "Danish",
	"de": "German",
	"el": "Greek",
	"en": "English",
	"es": "Spanish",
	"et": "Estonian",
	"fa": "Persian",
	"fi": "Finnish",
	"fr": "French",
	"he": "Hebrew",
	"hi": "Hindi",
	"hr": "Croatian",
	"hu": "Hungarian",
	"hy": "Armenian",
	"id": "Indonesian",
	"it": "Italian",
	"ja": "Japanese",
	"ka": "Georgian",
	"kk": "Kazakh",
	"ko": "Korean",
	"lt": "Lithuanian",
	"lv": "Latvian",
	"mk": "Macedonian",
	"ms": "Malay",
	"nl": "Dutch",
	"no": "Norwegian",
	"pl": "Polish",
	"pt": "Portuguese",
	"ro": "Romanian",
	"ru": "Russian",
	"sk": "Slovak",
	"sl": "Slovenian",
	"sr": "Serbian",
	"sv": "Swedish",
	"sw": "Swahili",
	"ta": "Tamil",
	"th": "Thai",
	"tl": "Tagalog",
	"tr": "Turkish",
	"uk": "Ukrainian",
	"ur": "Urdu",
	"uz": "Uzbek",
	"vi": "Vietnamese",
	"zh": "Chinese",
}

// Normalize lowercases a code and uses a hyphen separator.
// "pt_BR", "PT-BR" and "pt-br" all become "pt-br".
func Normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(strings.ReplaceAll(code, "_", "-")))
}

// Validate accepts an ISO 639-1 code, a locale such as "ru-RU",
// "auto" or the empty string (both meaning auto-detect).
func Validate(code string) error {
	base := BaseCode(code)
	if base == "" {
		return nil
	}
	if _, ok := whisperLanguages[base]; !ok {
		return fmt.Errorf("invalid language code %q (use ISO 639-1 codes like 'ru', 'en', 'uk'): %w",
			code, ErrInvalid)
	}
	return nil
}

// BaseCode strips the region from a locale: "ru-RU" -> "ru".
// Auto-detect is reported as the empty string, which is what every
// backend expects for "no language hint".
func BaseCode(code string) string {
	normalized := Normalize(code)
	if normalized == "" || normalized == Auto {
		return ""
	}
	if idx := strings.Index(normalized, "-"); idx != -1 {
		return normalized[:idx]
	}
	return normalized
}

// GoogleCode returns the BCP-47 tag the Google recognizer requires.
// A bare code is expanded with its own region ("ru" -> "ru-RU").
func GoogleCode(code string) string {
	normalized := Normalize(code)
	base := BaseCode(normalized)
	if base == "" {
		return "en-US"
	}
	if idx := strings.Index(normalized, "-"); idx != -1 {
		return base + "-" + strings.ToUpper(normalized[idx+1:])
	}
	switch base {
	case "en":
		return "en-US"
	case "uk":
		return "uk-UA"
	case "zh":
		return "zh-CN"
	case "ja":
		return "ja-JP"
	case "ko":
		return "ko-KR"
	case "he":
		return "he-IL"
	case "da":
		return "da-DK"
	case "sv":
		return "sv-SE"
	case "kk":
		return "kk-KZ"
	case "be":
		return "be-BY"
	}
	return base + "-" + strings.ToUpper(base)
}

// DisplayName returns the English name of a language, "auto-detect" for
// the empty code, or the code itself when unknown.
func DisplayName(code string) string {
	base := BaseCode(code)
	if base == "" {
		return "auto-detect"
	}
	if name, ok := whisperLanguages[base]; ok {
		return name
	}
	return code
}
