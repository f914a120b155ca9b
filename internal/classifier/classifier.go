// Package classifier decides which device lines are card identifiers.
//
// The reader firmware prints diagnostics on the same line-oriented channel
// as identifiers, so every line is run through a Classifier before it is
// relayed. The default ShapeClassifier only looks at length and whitespace;
// it knows nothing about the identifier format and deliberately stays that
// way. Swap in a different Classifier when the device format is known.
package classifier

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/brianly1003/rfidbridge/internal/domain/events"
)

// Default token length bounds, inclusive, in runes.
const (
	DefaultMinLength = 4
	DefaultMaxLength = 30
)

// Verdict is the outcome of classifying one line.
type Verdict int

const (
	// Empty means the line was blank after trimming. Nothing is logged.
	Empty Verdict = iota
	// Chatter is device output that is not an identifier.
	Chatter
	// Token is a genuine identifier.
	Token
)

func (v Verdict) String() string {
	switch v {
	case Empty:
		return "empty"
	case Chatter:
		return "chatter"
	case Token:
		return "token"
	default:
		return "unknown"
	}
}

// Classifier decides whether a raw line is a token.
// The returned token is only meaningful when the verdict is Token.
type Classifier interface {
	Classify(line string) (events.Token, Verdict)
}

// Func adapts a plain function to the Classifier interface.
type Func func(line string) (events.Token, Verdict)

// Classify calls f(line).
func (f Func) Classify(line string) (events.Token, Verdict) {
	return f(line)
}

// ShapeClassifier accepts any trimmed line without interior whitespace
// whose rune length lies in [MinLength, MaxLength].
type ShapeClassifier struct {
	MinLength int
	MaxLength int
}

// NewShapeClassifier creates a ShapeClassifier. Non-positive bounds fall
// back to the defaults.
func NewShapeClassifier(minLength, maxLength int) ShapeClassifier {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return ShapeClassifier{MinLength: minLength, MaxLength: maxLength}
}

// Default returns the classifier with the 4..30 bounds.
func Default() ShapeClassifier {
	return NewShapeClassifier(DefaultMinLength, DefaultMaxLength)
}

// Classify implements Classifier.
func (c ShapeClassifier) Classify(line string) (events.Token, Verdict) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return "", Empty
	}

	if strings.IndexFunc(trimmed, unicode.IsSpace) >= 0 {
		return "", Chatter
	}

	n := utf8.RuneCountInString(trimmed)
	if n < c.MinLength || n > c.MaxLength {
		return "", Chatter
	}

	return events.Token(trimmed), Token
}

var _ Classifier = ShapeClassifier{}
