// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fault

// Channel holds the last failure message for one owner. A Channel is
// not safe for concurrent use: it belongs to exactly one goroutine at a
// time, the way a thread-local slot belongs to one thread. Sessions
// embed their own Channel; parallel workers each own one.
//
// The zero value is an empty channel ready for use.
type Channel struct {
	message string
	set     bool
}

// Clear empties the slot.
func (c *Channel) Clear() {
	c.message = ""
	c.set = false
}

// Set stores a failure message, replacing any previous one.
func (c *Channel) Set(message string) {
	if message == "" {
		message = "unknown error"
	}
	c.message = message
	c.set = true
}

// Last returns the stored message and whether one is present. Read it
// immediately after the failing call: the next Run clears it.
func (c *Channel) Last() (string, bool) {
	return c.message, c.set
}

// Run executes fn as one boundary call. The slot is cleared on entry.
// A returned error or a panic inside fn (from Raise, a runtime fault,
// or a backend) is converted to a *Error, its message is stored in the
// slot, and the fault is returned. Nothing escapes as a panic.
//
// Plain errors returned by fn are classified as defaultKind.
func (c *Channel) Run(defaultKind Kind, fn func() error) (err error) {
	c.Clear()
	defer func() {
		if value := recover(); value != nil {
			converted := recovered(value)
			c.Set(converted.Error())
			err = converted
		}
	}()

	if callErr := fn(); callErr != nil {
		converted := From(callErr, defaultKind)
		c.Set(converted.Error())
		return converted
	}
	return nil
}
