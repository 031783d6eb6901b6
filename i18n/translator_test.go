package i18n

import "testing"

func TestTranslator_DefaultAndJapanese(t *testing.T) {
	// default is en
	if msg := T("too_short", map[string]string{"min": "3"}); msg != "must be at least 3 characters" {
		t.Fatalf("unexpected english message %q", msg)
	}

	SetLanguage("ja")
	defer SetLanguage("en")
	if msg := T("too_short", map[string]string{"min": "3"}); msg != "3文字以上で入力してください" {
		t.Fatalf("expected japanese message, got %q", msg)
	}

	SetLanguage("fr")
	if msg := T("required", nil); msg != "is required" {
		t.Fatalf("unknown language should fall back to en, got %q", msg)
	}
}

func TestTranslator_UnknownCode(t *testing.T) {
	if msg := T("no_such_code", nil); msg != "no_such_code" {
		t.Fatalf("expected code echo, got %q", msg)
	}
}

type upper struct{}

func (upper) Message(code string, _ map[string]string) string { return "E:" + code }

func TestSetTranslator(t *testing.T) {
	SetTranslator(upper{})
	defer SetTranslator(nil)
	if msg := T("required", nil); msg != "E:required" {
		t.Fatalf("custom translator not used: %q", msg)
	}
	SetTranslator(nil)
	if msg := T("required", nil); msg != "is required" {
		t.Fatalf("nil should restore english: %q", msg)
	}
}

func TestInterpolate(t *testing.T) {
	got := Interpolate("between {min} and {max}, {other}", map[string]string{"min": "1", "max": "9"})
	if got != "between 1 and 9, {other}" {
		t.Fatalf("got %q", got)
	}
}
