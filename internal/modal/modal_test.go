package modal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoordinator_InitiallyClosed(t *testing.T) {
	c := NewCoordinator()

	state := c.State()
	assert.False(t, state.IsOpen)
	assert.Equal(t, ContentNone, state.Content)
	assert.Nil(t, state.Payload)
}

func TestOpen_SetsContentAndPayload(t *testing.T) {
	c := NewCoordinator()

	c.Open(ContentOTPEntry, "ivan@mail.ru")

	state := c.State()
	assert.True(t, state.IsOpen)
	assert.Equal(t, ContentOTPEntry, state.Content)
	assert.Equal(t, "ivan@mail.ru", state.Payload)
}

func TestOpen_LastWriteWins(t *testing.T) {
	c := NewCoordinator()

	c.Open(ContentOfferTerms, nil)
	c.Open(ContentOTPEntry, "payload")

	// The second open silently preempts the first; there is no stack.
	state := c.State()
	assert.True(t, state.IsOpen)
	assert.Equal(t, ContentOTPEntry, state.Content)
	assert.Equal(t, "payload", state.Payload)
}

func TestClose_ClearsSlot(t *testing.T) {
	c := NewCoordinator()
	c.Open(ContentOTPEntry, "payload")

	c.Close()

	state := c.State()
	assert.False(t, state.IsOpen)
	assert.Equal(t, ContentNone, state.Content)
	assert.Nil(t, state.Payload)
}

func TestClose_Idempotent(t *testing.T) {
	c := NewCoordinator()
	var calls int
	c.Subscribe(func(State) { calls++ })

	c.Close()
	c.Close()

	assert.Zero(t, calls, "closing a closed slot should not notify")
}

func TestToggle(t *testing.T) {
	c := NewCoordinator()
	c.Open(ContentOfferTerms, nil)

	c.Toggle()
	assert.False(t, c.State().IsOpen)

	c.Toggle()
	state := c.State()
	assert.True(t, state.IsOpen)
	assert.Equal(t, ContentOfferTerms, state.Content)
}

func TestSubscribe_ReceivesSnapshots(t *testing.T) {
	c := NewCoordinator()

	var got []State
	c.Subscribe(func(s State) { got = append(got, s) })

	c.Open(ContentOTPEntry, "payload")
	c.Close()

	assert.Len(t, got, 2)
	assert.True(t, got[0].IsOpen)
	assert.Equal(t, ContentOTPEntry, got[0].Content)
	assert.False(t, got[1].IsOpen)
}

func TestContent_String(t *testing.T) {
	assert.Equal(t, "none", ContentNone.String())
	assert.Equal(t, "offer_terms", ContentOfferTerms.String())
	assert.Equal(t, "otp_entry", ContentOTPEntry.String())
}
