package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/mvp-joe/code-pairs/internal/batch"
	"github.com/schollz/progressbar/v3"
)

// CLIProgressReporter implements batch.ProgressReporter with a progress bar.
type CLIProgressReporter struct {
	out     io.Writer
	quiet   bool
	blobBar *progressbar.ProgressBar
}

// NewCLIProgressReporter creates a new CLI progress reporter.
func NewCLIProgressReporter(out io.Writer, quiet bool) *CLIProgressReporter {
	return &CLIProgressReporter{out: out, quiet: quiet}
}

func (c *CLIProgressReporter) OnBatchStart(totalBlobs, workers int) {
	if c.quiet {
		return
	}
	fmt.Fprintf(c.out, "Extracting %s blobs with %d workers\n", formatNumber(totalBlobs), workers)
	c.blobBar = progressbar.NewOptions(totalBlobs,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription("Extracting"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("blobs/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.out)
		}),
	)
}

func (c *CLIProgressReporter) OnBlobDone() {
	if c.quiet || c.blobBar == nil {
		return
	}
	c.blobBar.Add(1)
}

func (c *CLIProgressReporter) OnBatchComplete(stats *batch.Stats) {
	if c.quiet {
		return
	}
	if c.blobBar != nil {
		c.blobBar.Finish()
		c.blobBar = nil
	}

	fmt.Fprintf(c.out, "✓ Extraction complete: %s records in %.1fs\n",
		formatNumber(stats.Records), stats.ProcessingTimeSeconds)
	fmt.Fprintf(c.out, "  Blobs:              %s\n", formatNumber(stats.Blobs))
	fmt.Fprintf(c.out, "  Blobs with records: %s\n", formatNumber(stats.BlobsWithRecords))
}

// formatNumber adds thousands separators.
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	var result string
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return result
}
