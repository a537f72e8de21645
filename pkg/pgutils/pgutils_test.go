package pgutils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatVector(t *testing.T) {
	tests := []struct {
		name string
		in   []float32
		want string
	}{
		{"empty", nil, "[]"},
		{"single", []float32{0.5}, "[0.5]"},
		{"several", []float32{0.1, 0.2, 0.3}, "[0.1,0.2,0.3]"},
		{"negative and zero", []float32{-1, 0, 1}, "[-1,0,1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatVector(tt.in))
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("connection refused")))
	assert.True(t, IsUniqueViolation(fmt.Errorf("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)")))
}

func TestIsForeignKeyViolation(t *testing.T) {
	assert.False(t, IsForeignKeyViolation(nil))
	assert.True(t, IsForeignKeyViolation(errors.New("ERROR: insert or update violates foreign key constraint (SQLSTATE 23503)")))
	assert.False(t, IsForeignKeyViolation(errors.New("ERROR: null value in column (SQLSTATE 23502)")))
}
