package callsign

import "strings"

// MaxParts is the most slash separated parts a call may have.
const MaxParts = 3

// Shape classifies the characters of a part.
type Shape int

const (
	ShapeEmpty         Shape = iota
	ShapeDigits              // 7
	ShapeLetters             // MM, P, QRP
	ShapeDigitsLetters       // 9A, 3DA: digits then letters only
	ShapeMixed               // W1AW, CE0Y, 3D2
	ShapeInvalid             // anything outside A-Z and 0-9
)

var shapeNames = [...]string{"empty", "digits", "letters", "digits-letters", "mixed", "invalid"}

func (s Shape) String() string {
	if int(s) < len(shapeNames) {
		return shapeNames[s]
	}
	return "unknown"
}

// Part is one slash separated piece of a callsign.
type Part struct {
	Text  string // as given
	Norm  string // trimmed and upper case, used for matching
	Index int
	Shape Shape
}

// SingleDigit reports whether the part is one digit, like the 6 in UA0JL/6.
func (p Part) SingleDigit() bool {
	return len(p.Norm) == 1 && p.Shape == ShapeDigits
}

// SingleLetter reports whether the part is one letter, like the A in SV1ABC/A.
func (p Part) SingleLetter() bool {
	return len(p.Norm) == 1 && p.Shape == ShapeLetters
}

// Tokens is a tokenized callsign.
type Tokens struct {
	Raw   string
	Parts []Part
}

// Tokenize splits raw on '/'. It never fails; Plausible judges the result.
func Tokenize(raw string) Tokens {
	raw = strings.TrimSpace(raw)
	tok := Tokens{Raw: raw}
	if raw == "" {
		return tok
	}
	for i, text := range strings.Split(raw, "/") {
		norm := strings.ToUpper(strings.TrimSpace(text))
		tok.Parts = append(tok.Parts, Part{Text: text, Norm: norm, Index: i, Shape: shapeOf(norm)})
	}
	return tok
}

func shapeOf(s string) Shape {
	if s == "" {
		return ShapeEmpty
	}
	digits, letters := 0, 0
	lastDigit, firstLetter := -1, -1
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			digits++
			lastDigit = i
		case c >= 'A' && c <= 'Z':
			letters++
			if firstLetter < 0 {
				firstLetter = i
			}
		default:
			return ShapeInvalid
		}
	}
	switch {
	case letters == 0:
		return ShapeDigits
	case digits == 0:
		return ShapeLetters
	case lastDigit < firstLetter:
		return ShapeDigitsLetters
	default:
		return ShapeMixed
	}
}

// Joined is the normalized full call.
func (t Tokens) Joined() string {
	norms := make([]string, len(t.Parts))
	for i, p := range t.Parts {
		norms[i] = p.Norm
	}
	return strings.Join(norms, "/")
}

// Compound reports whether the call has more than one part.
func (t Tokens) Compound() bool {
	return len(t.Parts) > 1
}

// TooMany reports more than MaxParts parts.
func (t Tokens) TooMany() bool {
	return len(t.Parts) > MaxParts
}

// Problem describes why the call is implausible, or returns "".
func (t Tokens) Problem() string {
	if len(t.Parts) == 0 {
		return "empty callsign"
	}
	if t.TooMany() {
		return "more than three parts"
	}
	for _, p := range t.Parts {
		switch p.Shape {
		case ShapeEmpty:
			return "empty part"
		case ShapeInvalid:
			return "invalid characters"
		}
	}
	return ""
}

// Plausible reports whether the call can be analyzed at all.
func (t Tokens) Plausible() bool {
	return t.Problem() == ""
}
