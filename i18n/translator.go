package i18n

import (
	"strings"
	"sync"
)

// Translator retrieves localized messages for issue codes.
// data carries the issue parameters (for example "min" or "expected"); the
// built-in dictionaries interpolate them as {name}.
type Translator interface {
	Message(code string, data map[string]string) string
}

var dictionaries = map[string]map[string]string{
	"en": {
		"required":       "is required",
		"invalid_type":   "must be a {expected}",
		"too_short":      "must be at least {min} characters",
		"too_long":       "must be at most {max} characters",
		"too_small":      "must be at least {min}",
		"too_big":        "must be at most {max}",
		"pattern":        "has an invalid format",
		"invalid_format": "must be a valid {format}",
		"invalid_enum":   "must be one of {options}",
		"mismatch":       "must match {other}",
		"duplicate":      "duplicates item {first}",
		"custom":         "is invalid",
	},
	"ja": {
		"required":       "必須項目です",
		"invalid_type":   "{expected}で入力してください",
		"too_short":      "{min}文字以上で入力してください",
		"too_long":       "{max}文字以内で入力してください",
		"too_small":      "{min}以上を入力してください",
		"too_big":        "{max}以下を入力してください",
		"pattern":        "形式が正しくありません",
		"invalid_format": "有効な{format}を入力してください",
		"invalid_enum":   "{options}のいずれかを選択してください",
		"mismatch":       "{other}と一致しません",
		"duplicate":      "{first}番目の項目と重複しています",
		"custom":         "入力内容が不正です",
	},
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	msg, ok := dictionaries[t.lang][code]
	if !ok {
		return code
	}
	return Interpolate(msg, data)
}

// Interpolate replaces {key} placeholders in msg with data[key]. Unknown
// placeholders are left as they are.
func Interpolate(msg string, data map[string]string) string {
	if len(data) == 0 || !strings.Contains(msg, "{") {
		return msg
	}
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

var (
	mu                sync.RWMutex
	currentTranslator Translator = dictTranslator{lang: "en"}
)

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if _, ok := dictionaries[lang]; !ok {
		lang = "en"
	}
	mu.Lock()
	currentTranslator = dictTranslator{lang: lang}
	mu.Unlock()
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version). nil restores the English dictionary.
func SetTranslator(tr Translator) {
	if tr == nil {
		tr = dictTranslator{lang: "en"}
	}
	mu.Lock()
	currentTranslator = tr
	mu.Unlock()
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string {
	mu.RLock()
	tr := currentTranslator
	mu.RUnlock()
	return tr.Message(code, data)
}
