package batch

// ProgressReporter provides callbacks for reporting batch progress.
// Implementations can display progress bars, log messages, or remain silent.
// OnBlobDone is called concurrently from workers.
type ProgressReporter interface {
	// OnBatchStart is called once before any blob is processed.
	OnBatchStart(totalBlobs, workers int)

	// OnBlobDone is called after each blob is processed.
	OnBlobDone()

	// OnBatchComplete is called when the batch completes successfully.
	OnBatchComplete(stats *Stats)
}

// NoOpProgressReporter is a progress reporter that does nothing.
// Used when progress reporting is disabled (e.g., --quiet flag).
type NoOpProgressReporter struct{}

func (n *NoOpProgressReporter) OnBatchStart(totalBlobs, workers int) {}
func (n *NoOpProgressReporter) OnBlobDone()                          {}
func (n *NoOpProgressReporter) OnBatchComplete(stats *Stats)         {}
