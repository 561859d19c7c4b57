package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitDeliversToRegisteredListeners(t *testing.T) {
	m := NewManager()
	a := make(chan interface{}, 1)
	b := make(chan interface{}, 1)
	m.Register(TypeInvoiceCreated, a)
	m.Register(TypeInvoiceCreated, b)

	m.Emit(TypeInvoiceCreated, InvoiceCreated{InvoiceID: 7, Status: "temp"})

	for _, ch := range []chan interface{}{a, b} {
		select {
		case v := <-ch:
			evt, ok := v.(InvoiceCreated)
			require.True(t, ok)
			assert.EqualValues(t, 7, evt.InvoiceID)
		default:
			t.Fatal("listener missed event")
		}
	}
}

func TestEmitIgnoresOtherEventTypes(t *testing.T) {
	m := NewManager()
	ch := make(chan interface{}, 1)
	m.Register(TypeInvoiceStatusChanged, ch)

	m.Emit(TypeInvoiceCreated, InvoiceCreated{InvoiceID: 1})
	select {
	case <-ch:
		t.Fatal("wrong event type delivered")
	default:
	}
}

func TestEmitNeverBlocksOnFullListener(t *testing.T) {
	m := NewManager()
	full := make(chan interface{}) // unbuffered, nobody reading
	m.Register(TypeSettingsSaved, full)

	done := make(chan struct{})
	go func() {
		m.Emit(TypeSettingsSaved, SettingsSaved{})
		close(done)
	}()
	<-done
}

func TestEmitWithNoListeners(t *testing.T) {
	m := NewManager()
	m.Emit(TypeInvoiceCreated, InvoiceCreated{})
}
