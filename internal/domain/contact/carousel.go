package contact

import "sync"

// Carousel cycles through the contact directory one card at a time. An empty
// carousel has no current card and never moves.
type Carousel struct {
	mu    sync.Mutex
	items []Contact
	index int
}

func NewCarousel(items []Contact) *Carousel {
	c := &Carousel{}
	c.Set(items)
	return c
}

// Set replaces the directory and rewinds to the first card.
func (c *Carousel) Set(items []Contact) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append([]Contact(nil), items...)
	c.index = 0
}

func (c *Carousel) Next() (Contact, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n := len(c.items); n > 0 {
		c.index = (c.index + 1) % n
	}
	return c.currentLocked()
}

func (c *Carousel) Prev() (Contact, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n := len(c.items); n > 0 {
		c.index = (c.index - 1 + n) % n
	}
	return c.currentLocked()
}

func (c *Carousel) Current() (Contact, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentLocked()
}

func (c *Carousel) currentLocked() (Contact, bool) {
	if len(c.items) == 0 {
		return Contact{}, false
	}
	return c.items[c.index], true
}

// CanCycle reports whether the navigation controls do anything.
func (c *Carousel) CanCycle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items) > 1
}

func (c *Carousel) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

func (c *Carousel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Carousel) Items() []Contact {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Contact(nil), c.items...)
}
