package domain

import "context"

// TransferProgress is invoked as bytes arrive. total is 0 when the source
// did not report a content length.
type TransferProgress func(transferred, total int64)

// TransferOptions controls one transfer attempt
type TransferOptions struct {
	// Resume asks the transferer to continue from existing temp-file bytes
	// using a range request. A source that does not support partial content
	// falls back to a full re-download, never to a failure.
	Resume bool

	// OnProgress receives byte-count updates during the transfer
	OnProgress TransferProgress
}

// Transferer performs the byte transfer of one task into its temp path.
// The context is cancelled on pause, cancel and shutdown; implementations
// must observe it at bounded intervals, not only at call boundaries.
type Transferer interface {
	Transfer(ctx context.Context, task *Task, opts TransferOptions) error
}
