// file: formsync/debounce.go
package formsync

import (
	"time"

	"github.com/benbjohnson/clock"
	"shareform/protocol"
)

// DefaultQuietPeriod is how long a cell must stay unchanged before it settles.
const DefaultQuietPeriod = 400 * time.Millisecond

// Debounced derives a settled stream from a cell: a value is emitted only
// after no write has happened for the quiet period, and only the latest
// value is emitted.
type Debounced struct {
	loop   *Loop
	quiet  time.Duration
	timer  *clock.Timer
	gen    uint64
	latest protocol.Value
	settle *Cell
	detach func()
}

// Debounce starts tracking writes to cell. Must be called from the loop, or
// before the loop runs.
func Debounce(loop *Loop, cell *Cell, quiet time.Duration) *Debounced {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	d := &Debounced{
		loop:   loop,
		quiet:  quiet,
		settle: NewCell(cell.Get()),
	}
	d.detach = cell.Subscribe(d.onWrite)
	return d
}

// onWrite restarts the quiet window. The generation counter discards an
// expiry that was already queued on the loop when a newer write arrived.
func (d *Debounced) onWrite(v protocol.Value) {
	d.latest = v
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
	}

	gen := d.gen
	d.timer = d.loop.Clock().AfterFunc(d.quiet, func() {
		d.loop.Post(func() { d.expire(gen) })
	})
}

func (d *Debounced) expire(gen uint64) {
	if gen != d.gen || d.timer == nil {
		return
	}
	d.timer = nil
	d.settle.Set(d.latest)
}

// Subscribe registers fn for settled values.
func (d *Debounced) Subscribe(fn func(protocol.Value)) (cancel func()) {
	return d.settle.Subscribe(fn)
}

// Pending reports whether a settle is scheduled.
func (d *Debounced) Pending() bool { return d.timer != nil }

// Stop cancels any pending settle and stops watching the cell.
func (d *Debounced) Stop() {
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.detach != nil {
		d.detach()
		d.detach = nil
	}
}
