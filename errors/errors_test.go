package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapKeepsCause(t *testing.T) {
	cause := New("unexpected EOF")
	wrapped := Wrapf(cause, "read %s", "cty.xml")

	assert.Equal(t, "read cty.xml: unexpected EOF", wrapped.Error())
	assert.True(t, Is(wrapped, cause))
}

func TestMarkPreservesMessage(t *testing.T) {
	err := Mark(Newf("no prefix matches %q", "X5ABC"), ErrNotFound)

	assert.Equal(t, `no prefix matches "X5ABC"`, err.Error())
	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrInvalidRequest))
}

type zoneError struct {
	zone int
}

func (e *zoneError) Error() string {
	return fmt.Sprintf("cq zone %d out of range", e.zone)
}

func TestAsThroughWrapping(t *testing.T) {
	err := Wrap(&zoneError{zone: 41}, "entity 291")

	var target *zoneError
	require.True(t, As(err, &target))
	assert.Equal(t, 41, target.zone)
}

func TestHintsAndDetails(t *testing.T) {
	err := New("dataset not loaded")
	err = WithHintf(err, "run %q first", "hamcall fetch")
	err = WithDetail(err, "path=cty.xml")
	err = Wrap(err, "lookup")

	assert.Equal(t, []string{`run "hamcall fetch" first`}, GetAllHints(err))
	assert.Equal(t, []string{"path=cty.xml"}, GetAllDetails(err))
}

func TestStackTrace(t *testing.T) {
	err := New("with stack")
	assert.Contains(t, fmt.Sprintf("%+v", err), "errors_test.go")
}

func TestNilHandling(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
	assert.Nil(t, Wrapf(nil, "context %d", 1))
	assert.Nil(t, WithStack(nil))
	assert.Nil(t, WithHint(nil, "hint"))
	assert.Nil(t, WithDetail(nil, "detail"))
}

func TestSentinelHelpers(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		notFound       bool
		invalidRequest bool
		serviceUnavail bool
	}{
		{"nil", nil, false, false, false},
		{"not found", NewNotFoundError("entity %d", 999), true, false, false},
		{"invalid", NewInvalidRequestError("bad time %q", "yesterday"), false, true, false},
		{"unavailable", Wrap(ErrServiceUnavailable, "no dataset"), false, false, true},
		{"plain", New("not found"), false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.notFound, IsNotFoundError(tt.err))
			assert.Equal(t, tt.invalidRequest, IsInvalidRequestError(tt.err))
			assert.Equal(t, tt.serviceUnavail, IsServiceUnavailableError(tt.err))
		})
	}
}

func TestNewNotFoundErrorMessage(t *testing.T) {
	err := NewNotFoundError("entity %d", 999)
	assert.Equal(t, "entity 999", err.Error())
}

func ExampleWrap() {
	baseErr := New("connection refused")
	err := Wrap(baseErr, "fetch dataset")
	fmt.Println(err)
	// Output: fetch dataset: connection refused
}
