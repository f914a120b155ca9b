package classifier

import (
	"strings"
	"testing"
	"unicode"

	"github.com/brianly1003/rfidbridge/internal/domain/events"
)

func TestShapeClassifier_Classify(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    events.Token
		verdict Verdict
	}{
		{"card uid", "A1B2C3", "A1B2C3", Token},
		{"surrounding whitespace", "  A1B2C3\r\n", "A1B2C3", Token},
		{"debug line", "DEBUG: init ok", "", Chatter},
		{"empty", "", "", Empty},
		{"blank", " \t\r\n", "", Empty},
		{"too short", "abc", "", Chatter},
		{"min length", "abcd", "abcd", Token},
		{"max length", strings.Repeat("x", 30), events.Token(strings.Repeat("x", 30)), Token},
		{"too long", strings.Repeat("x", 31), "", Chatter},
		{"interior tab", "AB\tCD", "", Chatter},
		{"interior nbsp", "AB\u00a0CD", "", Chatter},
		{"multibyte counted as runes", "éééé", "éééé", Token},
		{"replacement chars kept", "AB�CD", "AB�CD", Token},
	}

	c := Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, verdict := c.Classify(tt.line)
			if verdict != tt.verdict {
				t.Errorf("Classify(%q) verdict = %v, want %v", tt.line, verdict, tt.verdict)
			}
			if got != tt.want {
				t.Errorf("Classify(%q) token = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestNewShapeClassifier_Defaults(t *testing.T) {
	c := NewShapeClassifier(0, -1)
	if c.MinLength != DefaultMinLength {
		t.Errorf("MinLength = %d, want %d", c.MinLength, DefaultMinLength)
	}
	if c.MaxLength != DefaultMaxLength {
		t.Errorf("MaxLength = %d, want %d", c.MaxLength, DefaultMaxLength)
	}
}

func TestShapeClassifier_CustomBounds(t *testing.T) {
	c := NewShapeClassifier(8, 8)

	if _, v := c.Classify("1234567"); v != Chatter {
		t.Errorf("7 chars verdict = %v, want chatter", v)
	}
	if tok, v := c.Classify("12345678"); v != Token || tok != "12345678" {
		t.Errorf("8 chars = (%q, %v), want token", tok, v)
	}
}

// The token verdict must agree with the shape predicate for arbitrary input.
func TestShapeClassifier_Predicate(t *testing.T) {
	inputs := []string{
		"", " ", "a", "abcd ", " abcd", "ab cd", "abcdefghijklmnopqrstuvwxyz0123",
		"abcdefghijklmnopqrstuvwxyz01234", "\x00\x01\x02\x03", "日本語テキスト", "x\ny",
	}

	c := Default()
	for _, in := range inputs {
		trimmed := strings.TrimSpace(in)
		wantToken := trimmed != "" &&
			!strings.ContainsFunc(trimmed, isSpace) &&
			len([]rune(trimmed)) >= 4 && len([]rune(trimmed)) <= 30

		_, v := c.Classify(in)
		if (v == Token) != wantToken {
			t.Errorf("Classify(%q) = %v, want token=%t", in, v, wantToken)
		}
		if trimmed == "" && v != Empty {
			t.Errorf("Classify(%q) = %v, want empty", in, v)
		}
	}
}

func TestFunc(t *testing.T) {
	var c Classifier = Func(func(line string) (events.Token, Verdict) {
		if line == "ok" {
			return "ok", Token
		}
		return "", Chatter
	})

	if tok, v := c.Classify("ok"); v != Token || tok != "ok" {
		t.Errorf("Classify(ok) = (%q, %v)", tok, v)
	}
	if _, v := c.Classify("nope"); v != Chatter {
		t.Errorf("Classify(nope) = %v, want chatter", v)
	}
}

func TestVerdict_String(t *testing.T) {
	if Token.String() != "token" || Chatter.String() != "chatter" || Empty.String() != "empty" {
		t.Error("unexpected verdict names")
	}
	if Verdict(42).String() != "unknown" {
		t.Error("unknown verdict should stringify as unknown")
	}
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r)
}
