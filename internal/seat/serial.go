package seat

// SerialSource issues event serials. One source is shared by every device
// of a seat so requests citing a serial can be matched to the event that
// authorized them.
type SerialSource interface {
	NextSerial() uint32
}

// SerialCounter is a monotonically increasing SerialSource
type SerialCounter struct {
	last uint32
}

// NextSerial returns the next serial
func (c *SerialCounter) NextSerial() uint32 {
	c.last++
	return c.last
}

// Last returns the most recently issued serial, 0 if none
func (c *SerialCounter) Last() uint32 {
	return c.last
}
