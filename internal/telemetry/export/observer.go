package export

// Observer receives exporter events. Implementations are the side channel for
// pipeline health and must not enqueue telemetry themselves.
type Observer interface {
	Enqueued(exporter string)
	Dropped(exporter string, reason DropReason)
	Exported(exporter string, records int)
	ExportFailed(exporter string, records int, err error)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) Enqueued(string)                 {}
func (NopObserver) Dropped(string, DropReason)      {}
func (NopObserver) Exported(string, int)            {}
func (NopObserver) ExportFailed(string, int, error) {}
