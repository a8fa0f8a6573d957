package charts

import (
	"encoding/base64"
	"errors"
	"sync"
)

// ErrReleased is returned when a canvas is used after Close.
var ErrReleased = errors.New("canvas released")

// Canvas holds one drawn chart. It must be closed when its display goes away.
type Canvas struct {
	mu     sync.Mutex
	data   []byte
	format Format
	closed bool
}

func newCanvas(data []byte, f Format) *Canvas {
	return &Canvas{data: data, format: f}
}

func (c *Canvas) Format() Format { return c.format }

// Bytes returns a copy of the drawn image.
func (c *Canvas) Bytes() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrReleased
	}
	out := make([]byte, len(c.data))
	copy(out, c.data)
	return out, nil
}

// DataURI encodes the image for inline embedding.
func (c *Canvas) DataURI() (string, error) {
	b, err := c.Bytes()
	if err != nil {
		return "", err
	}
	return "data:" + c.format.ContentType() + ";base64," + base64.StdEncoding.EncodeToString(b), nil
}

// Close releases the drawing buffer. It is safe to call more than once.
func (c *Canvas) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.data = nil
	return nil
}

func (c *Canvas) Released() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
