package events

import (
	"sync"
)

// Event type names.
const (
	TypeInvoiceCreated       = "invoice_created"
	TypeInvoiceStatusChanged = "invoice_status_changed"
	TypeSettingsSaved        = "notification_settings_saved"
)

// InvoiceCreated is emitted after an invoice row is inserted.
type InvoiceCreated struct {
	InvoiceID uint
	Status    string
}

// InvoiceStatusChanged is emitted after an invoice status transition.
type InvoiceStatusChanged struct {
	InvoiceID uint
	OldStatus string
	NewStatus string
}

// SettingsSaved is emitted after notification settings are persisted.
type SettingsSaved struct{}

// Manager manages event listeners for different event types. Emits are
// best-effort: a listener whose channel is full misses the event rather
// than blocking the publisher.
type Manager struct {
	sync.Mutex
	listeners map[string][]chan interface{}
}

// NewManager returns a new Manager context.
func NewManager() *Manager {
	return &Manager{
		listeners: make(map[string][]chan interface{}),
	}
}

// Register registers an event listener (channel) to listen for the provided
// event type. Listeners should use buffered channels.
func (e *Manager) Register(event string, listener chan interface{}) {
	e.Lock()
	defer e.Unlock()

	e.listeners[event] = append(e.listeners[event], listener)
}

// Emit emits an event by passing it to all channels that have been
// registered to listen for the event. Never blocks.
func (e *Manager) Emit(event string, data interface{}) {
	e.Lock()
	defer e.Unlock()

	for _, ch := range e.listeners[event] {
		select {
		case ch <- data:
		default:
		}
	}
}
