package recorder

// NoopRecorder is a no-op implementation used when storage is disabled.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ *RunRecord) error           { return nil }
func (n *NoopRecorder) RecordIndexResult(_ *IndexResult) error { return nil }
func (n *NoopRecorder) Close() error                           { return nil }
