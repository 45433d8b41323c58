// Package modal owns the single global overlay slot shared by every flow
// that needs a blocking dialog. At most one overlay is visible at a time;
// opening a second silently replaces the first (last write wins, no stack).
package modal

import "sync"

// Content identifies what the overlay slot is showing.
type Content int

const (
	ContentNone Content = iota
	ContentOfferTerms
	ContentOTPEntry
)

func (c Content) String() string {
	switch c {
	case ContentNone:
		return "none"
	case ContentOfferTerms:
		return "offer_terms"
	case ContentOTPEntry:
		return "otp_entry"
	default:
		return "unknown"
	}
}

// State is a snapshot of the overlay slot.
type State struct {
	IsOpen  bool
	Content Content
	Payload any
}

// Listener is notified with a snapshot after every state change.
type Listener func(State)

// Coordinator is the process-wide overlay slot. The zero value is unusable;
// use NewCoordinator.
type Coordinator struct {
	mu        sync.Mutex
	state     State
	listeners []Listener
}

// NewCoordinator creates a closed overlay slot.
func NewCoordinator() *Coordinator {
	return &Coordinator{state: State{Content: ContentNone}}
}

// Open shows the given content, replacing whatever was visible before.
func (c *Coordinator) Open(content Content, payload any) {
	c.mu.Lock()
	c.state = State{IsOpen: true, Content: content, Payload: payload}
	snapshot := c.state
	listeners := c.listeners
	c.mu.Unlock()

	notify(listeners, snapshot)
}

// Close clears the slot. Closing an already-closed slot is a no-op.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if !c.state.IsOpen {
		c.mu.Unlock()
		return
	}
	c.state = State{Content: ContentNone}
	snapshot := c.state
	listeners := c.listeners
	c.mu.Unlock()

	notify(listeners, snapshot)
}

// Toggle flips visibility without changing the content.
func (c *Coordinator) Toggle() {
	c.mu.Lock()
	c.state.IsOpen = !c.state.IsOpen
	snapshot := c.state
	listeners := c.listeners
	c.mu.Unlock()

	notify(listeners, snapshot)
}

// State returns the current snapshot.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers a listener for state changes. Listeners are invoked
// synchronously in registration order.
func (c *Coordinator) Subscribe(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

func notify(listeners []Listener, s State) {
	for _, l := range listeners {
		l(s)
	}
}
