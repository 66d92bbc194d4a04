package viseme

// Cursor samples a timeline at non-decreasing times. Its index only moves
// forward, so a whole utterance costs O(n) lookups in total.
type Cursor struct {
	entries []Entry
	idx     int
}

// NewCursor positions a cursor at the first entry.
func NewCursor(entries []Entry) *Cursor {
	return &Cursor{entries: entries}
}

// Index returns the entry the cursor rests on.
func (c *Cursor) Index() int {
	return c.idx
}

// Len returns the number of entries.
func (c *Cursor) Len() int {
	return len(c.entries)
}

// Sample returns the aperture at tMs, linearly interpolated between the
// two bracketing entries. A time earlier than the current entry does not
// rewind the cursor; it returns that entry's value.
func (c *Cursor) Sample(tMs float64) float64 {
	n := len(c.entries)
	if n == 0 {
		return 0
	}
	for c.idx+1 < n && c.entries[c.idx+1].TimeMs <= tMs {
		c.idx++
	}

	cur := c.entries[c.idx]
	if c.idx+1 >= n || tMs <= cur.TimeMs {
		return cur.Aperture
	}
	next := c.entries[c.idx+1]
	span := next.TimeMs - cur.TimeMs
	if span <= 0 {
		return next.Aperture
	}
	f := (tMs - cur.TimeMs) / span
	return cur.Aperture + (next.Aperture-cur.Aperture)*f
}

// Done reports whether tMs is at or past the final entry.
func (c *Cursor) Done(tMs float64) bool {
	if len(c.entries) == 0 {
		return true
	}
	return tMs >= c.entries[len(c.entries)-1].TimeMs
}
