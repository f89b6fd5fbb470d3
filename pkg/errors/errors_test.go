package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedErrors(t *testing.T) {
	inv := NewInvariant("subscription %d is broken", 7)
	assert.True(t, IsInvariant(inv))
	assert.False(t, IsInvariant(errors.New("plain")))
	assert.Contains(t, inv.Error(), "subscription 7 is broken")

	arg := NewInvalidArgument("user_id", "required")
	assert.True(t, IsInvalidArgument(arg))
	assert.Contains(t, arg.Error(), "user_id")

	nf := NewNotFound("invoice", "ABCD1234")
	assert.True(t, IsNotFound(nf))
	assert.Equal(t, "invoice ABCD1234 not found", nf.Error())

	nr := NewNoRate("TRY")
	assert.True(t, IsNoRate(nr))
	assert.Contains(t, nr.Error(), "TRY")
}

func TestTypedErrors_SurviveWrapping(t *testing.T) {
	wrapped := fmt.Errorf("get subscription: %w", NewNotFound("subscription", "1"))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsInvariant(wrapped))

	doubly := fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", NewNoRate("TRY")))
	assert.True(t, IsNoRate(doubly))
}
