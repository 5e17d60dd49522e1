package tui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"storefront/internal/interaction"
)

// Forwarder relays recorder state changes into a running program. Listen is
// called from Update itself (the pending transition), and Program.Send blocks
// until the event loop receives, so every send runs on its own goroutine.
type Forwarder struct {
	prog atomic.Pointer[tea.Program]
}

// Attach starts forwarding to p.
func (f *Forwarder) Attach(p *tea.Program) { f.prog.Store(p) }

// Detach stops forwarding.
func (f *Forwarder) Detach() { f.prog.Store(nil) }

// Listen is an interaction.WithListener callback.
func (f *Forwarder) Listen(rec interaction.Record) {
	p := f.prog.Load()
	if p == nil {
		return
	}
	go p.Send(RecordMsg{Record: rec})
}
