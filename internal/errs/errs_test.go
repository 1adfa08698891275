package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassOf(t *testing.T) {
	tests := []struct {
		err  error
		want Class
	}{
		{nil, ClassUnknown},
		{errors.New("other"), ClassUnknown},
		{fmt.Errorf("wait: %w", ErrReadinessTimeout), ClassFatal},
		{fmt.Errorf("svc a: %w", ErrIntrospectionFailed), ClassFatal},
		{ErrSchemaConflict, ClassFatal},
		{fmt.Errorf("call: %w", ErrMissingContentType), ClassCall},
		{ErrUnexpectedContentType, ClassCall},
		{ErrMalformedResponseBody, ClassCall},
		{ErrDegenerateOperation, ClassCall},
		{ErrUnknownField, ClassRequest},
		{fmt.Errorf("remote: %w", ErrExecution), ClassField},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassOf(tt.err), "%v", tt.err)
	}
}

func TestCode(t *testing.T) {
	assert.Equal(t, "UNKNOWN_FIELD", Code(fmt.Errorf("x: %w", ErrUnknownField)))
	assert.Equal(t, "BAD_BACKEND_RESPONSE", Code(ErrMissingContentType))
	assert.Equal(t, "", Code(errors.New("plain")))
}
