package batch

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Summary aggregates a run.
type Summary struct {
	Results     []Result
	Skipped     []Skip
	InputBytes  uint64
	OutputBytes uint64
	Elapsed     time.Duration
	Converted   int
	Cached      int
	Failed      int
	NotStarted  int
}

func newSummary(skipped []Skip, results []Result, elapsed time.Duration) *Summary {
	summary := &Summary{Results: results, Skipped: skipped, Elapsed: elapsed}

	for _, result := range results {
		switch {
		case !result.Done:
			summary.NotStarted++
		case result.Err != nil:
			summary.Failed++
		default:
			summary.Converted++
			summary.InputBytes += uint64(result.File.Size) //nolint:gosec // sizes are non-negative.
			summary.OutputBytes += uint64(len(result.Output))

			if result.Cached {
				summary.Cached++
			}
		}
	}

	return summary
}

// FirstError returns the error of the first failed file in discovery order.
func (summary *Summary) FirstError() error {
	for _, result := range summary.Results {
		if result.Err != nil {
			return result.Err
		}
	}

	return nil
}

// String renders a one-line human summary, e.g.
// "12 files converted (3 cached), 1 failed, 48 kB -> 51 kB in 120ms".
func (summary *Summary) String() string {
	var builder strings.Builder

	fmt.Fprintf(&builder, "%s %s converted", humanize.Comma(int64(summary.Converted)), plural(summary.Converted, "file"))

	if summary.Cached > 0 {
		fmt.Fprintf(&builder, " (%s cached)", humanize.Comma(int64(summary.Cached)))
	}

	if summary.Failed > 0 {
		fmt.Fprintf(&builder, ", %s failed", humanize.Comma(int64(summary.Failed)))
	}

	if summary.NotStarted > 0 {
		fmt.Fprintf(&builder, ", %s not started", humanize.Comma(int64(summary.NotStarted)))
	}

	if len(summary.Skipped) > 0 {
		fmt.Fprintf(&builder, ", %s skipped", humanize.Comma(int64(len(summary.Skipped))))
	}

	fmt.Fprintf(&builder, ", %s -> %s in %s",
		humanize.Bytes(summary.InputBytes), humanize.Bytes(summary.OutputBytes), summary.Elapsed.Round(time.Millisecond))

	return builder.String()
}

func plural(count int, word string) string {
	if count == 1 {
		return word
	}

	return word + "s"
}
