package journal

// Noop is a no-op journal used when SQLite is not configured.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (n *Noop) RecordFetch(_ *FetchEvent) error   { return nil }
func (n *Noop) RecordReset(_ *ResetEvent) error   { return nil }
func (n *Noop) RecordStatus(_ *StatusEvent) error { return nil }
func (n *Noop) Close() error                      { return nil }
