// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package payments

// NonceCounter hands out strictly sequential transaction nonces for one
// settlement batch. The engine creates one counter per batch from the
// sender's pending nonce and owns it for the duration of the settlement
// call; attempt i always receives base+i.
//
// The counter is deliberately not safe for concurrent use. Nonce order must
// match submission order, so all assignment happens inside the engine's
// batch critical section.
type NonceCounter struct {
	next uint64
}

// NewNonceCounter returns a counter starting at the given base nonce.
func NewNonceCounter(base uint64) *NonceCounter {
	return &NonceCounter{next: base}
}

// Next returns the current nonce and advances the counter.
func (c *NonceCounter) Next() uint64 {
	n := c.next
	c.next++
	return n
}

// Peek returns the nonce the next call to Next would assign.
func (c *NonceCounter) Peek() uint64 {
	return c.next
}
