package core

// Cursor tracks the last consumed position in the remote update stream.
// It is owned by a single dispatcher goroutine and is not safe for concurrent use.
type Cursor struct {
	position int64
}

// Next returns the position to request on the next fetch. The backend returns
// every message with a sequence id >= this value, so the last seen one is excluded.
func (c *Cursor) Next() int64 {
	return c.position + 1
}

// Advance moves the cursor to maxSeen if it is ahead of the current position.
func (c *Cursor) Advance(maxSeen int64) {
	if maxSeen > c.position {
		c.position = maxSeen
	}
}

// Position returns the highest sequence id consumed so far.
func (c *Cursor) Position() int64 {
	return c.position
}
