package callsign

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tok := Tokenize("  sv1abc/a ")

	assert.Equal(t, "sv1abc/a", tok.Raw)
	assert.Equal(t, "SV1ABC/A", tok.Joined())
	if assert.Len(t, tok.Parts, 2) {
		assert.Equal(t, Part{Text: "sv1abc", Norm: "SV1ABC", Index: 0, Shape: ShapeMixed}, tok.Parts[0])
		assert.Equal(t, Part{Text: "a", Norm: "A", Index: 1, Shape: ShapeLetters}, tok.Parts[1])
	}
	assert.True(t, tok.Compound())
	assert.True(t, tok.Plausible())
}

func TestShapes(t *testing.T) {
	tests := []struct {
		in   string
		want Shape
	}{
		{"", ShapeEmpty},
		{"7", ShapeDigits},
		{"123", ShapeDigits},
		{"MM", ShapeLetters},
		{"9A", ShapeDigitsLetters},
		{"3DA", ShapeDigitsLetters},
		{"W1AW", ShapeMixed},
		{"3D2", ShapeMixed},
		{"A7", ShapeMixed},
		{"W-1", ShapeInvalid},
		{"Ä1", ShapeInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, shapeOf(tt.in))
		})
	}
	assert.Equal(t, "digits-letters", ShapeDigitsLetters.String())
	assert.Equal(t, "unknown", Shape(99).String())
}

func TestTokenizeProblems(t *testing.T) {
	tests := []struct {
		raw     string
		problem string
	}{
		{"", "empty callsign"},
		{"   ", "empty callsign"},
		{"W1AW", ""},
		{"W1AW/P", ""},
		{"DL/W1AW/P", ""},
		{"W1AW/P/AM/7", "more than three parts"},
		{"/W1AW", "empty part"},
		{"W1AW/", "empty part"},
		{"W1AW//P", "empty part"},
		{"W1 AW", "invalid characters"},
		{"W1AW?", "invalid characters"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			tok := Tokenize(tt.raw)
			assert.Equal(t, tt.problem, tok.Problem())
			assert.Equal(t, tt.problem == "", tok.Plausible())
		})
	}
	assert.True(t, Tokenize("A/B/C/D").TooMany())
	assert.False(t, Tokenize("A/B/C").TooMany())
}

func TestPartHelpers(t *testing.T) {
	tok := Tokenize("UA0JL/6/A")
	assert.False(t, tok.Parts[0].SingleDigit())
	assert.True(t, tok.Parts[1].SingleDigit())
	assert.False(t, tok.Parts[1].SingleLetter())
	assert.True(t, tok.Parts[2].SingleLetter())
}
