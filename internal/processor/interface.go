package processor

import (
	"github.com/mauv0809/courtside/internal/ledger"
	"github.com/mauv0809/courtside/internal/notifier"
)

// Store defines the database operations required by the processor.
type Store interface {
	ledger.LedgerStore
}

// Notifier defines the notification operations required by the processor.
// This is now an alias for the main notifier interface for decoupling.
type Notifier interface {
	notifier.Notifier
}
