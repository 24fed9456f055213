// file: formsync/cell.go
package formsync

import "shareform/protocol"

// Cell holds one reactive value. Every Set notifies all subscribers
// synchronously, whether the write came from a local edit or from the
// Registry. Cells are owned by a Loop and must only be touched from its tasks.
type Cell struct {
	value  protocol.Value
	subs   map[int]func(protocol.Value)
	order  []int
	nextID int
}

// NewCell returns a cell holding initial.
func NewCell(initial protocol.Value) *Cell {
	return &Cell{
		value: initial,
		subs:  make(map[int]func(protocol.Value)),
	}
}

// Get returns the current value.
func (c *Cell) Get() protocol.Value { return c.value }

// Kind is the tag of the current value.
func (c *Cell) Kind() protocol.Kind { return c.value.Kind() }

// Set stores v and notifies subscribers in subscription order.
func (c *Cell) Set(v protocol.Value) {
	c.value = v
	for _, id := range append([]int(nil), c.order...) {
		if fn, ok := c.subs[id]; ok {
			fn(v)
		}
	}
}

// Subscribe registers fn for every write. The returned func removes it.
func (c *Cell) Subscribe(fn func(protocol.Value)) (cancel func()) {
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.order = append(c.order, id)

	return func() {
		if _, ok := c.subs[id]; !ok {
			return
		}
		delete(c.subs, id)
		for i, o := range c.order {
			if o == id {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}
}
