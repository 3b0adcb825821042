package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestToDomainError(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{name: "missing row", err: fmt.Errorf("get branch: %w", pgx.ErrNoRows), code: "NOT_FOUND", status: http.StatusNotFound},
		{name: "wrapped domain error", err: fmt.Errorf("create: %w", NewConflict("username taken", nil)), code: "CONFLICT", status: http.StatusConflict},
		{name: "anything else", err: errors.New("connection reset"), code: "INTERNAL_ERROR", status: http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			de := ToDomainError(tc.err)
			assert.Equal(t, tc.code, de.Code)
			assert.Equal(t, tc.status, de.HTTPStatus)
		})
	}
	assert.Nil(t, ToDomainError(nil))
}
