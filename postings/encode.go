package postings

import "github.com/irsgo/iresearch/bytepool"

// cursorWriter adapts a SliceWriter plus a live cursor to vint.ByteWriter
// so vint.WriteVInt32/64 can append directly into a posting stream.
type cursorWriter struct {
	sw  *bytepool.SliceWriter
	cur int64
}

func (c *cursorWriter) WriteByte(b byte) error {
	c.cur = c.sw.WriteByte(c.cur, b)
	return nil
}
