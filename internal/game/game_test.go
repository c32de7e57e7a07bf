package game

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusScheduled, StatusInProgress, true},
		{StatusScheduled, StatusFinal, false},
		{StatusScheduled, StatusHalftime, false},
		{StatusInProgress, StatusHalftime, true},
		{StatusInProgress, StatusFinal, true},
		{StatusInProgress, StatusScheduled, false},
		{StatusHalftime, StatusInProgress, true},
		{StatusHalftime, StatusFinal, false},
		{StatusFinal, StatusInProgress, false},
		{StatusFinal, StatusFinal, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("stat log 4: %w", ErrAlreadyUndone)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(err, ErrAlreadyUndone))
	assert.True(t, IsPermanent(err))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(err))
	assert.Equal(t, "ALREADY_UNDONE", Code(err))

	assert.True(t, errors.Is(ErrInvalidTransition, ErrValidation))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ErrInvalidTransition))

	assert.False(t, IsPermanent(ErrNetwork))
	assert.False(t, IsPermanent(ErrTransaction))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
	assert.Equal(t, "INTERNAL", Code(errors.New("boom")))
}

func TestFromCodeAndStatus(t *testing.T) {
	assert.Equal(t, ErrNegativeAggregate, FromCode("NEGATIVE_AGGREGATE"))
	assert.Nil(t, FromCode("SOMETHING_ELSE"))

	assert.NoError(t, FromHTTPStatus(http.StatusCreated))
	assert.Equal(t, ErrNotFound, FromHTTPStatus(http.StatusNotFound))
	assert.Equal(t, ErrNetwork, FromHTTPStatus(http.StatusBadGateway))
}
