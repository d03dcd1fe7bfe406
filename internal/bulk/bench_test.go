package bulk

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"bc-history/internal/barchart"
	"bc-history/internal/slogx"
)

// benchTickers returns n distinct symbols.
func benchTickers(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("T%03d", i)
	}
	return out
}

// runBench simulates a 12ms round trip per ticker (stands in for a slow vendor call).
func runBench(b *testing.B, mode Mode, n int) {
	d := NewDownloader(&fakeFetcher{delay: 12 * time.Millisecond}, Options{
		Logger:    slogx.Discard(),
		LogOutput: io.Discard,
	})
	list := benchTickers(n)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m, _, err := d.Run(context.Background(), list, barchart.Intraday, mode)
		if err != nil || len(m) != n {
			b.Fatalf("run: %v (%d tables)", err, len(m))
		}
	}
}

// BenchmarkSequential 9 tickers one at a time.
func BenchmarkSequential(b *testing.B) { runBench(b, Sequential, 9) }

// BenchmarkConcurrent 9 tickers over the default pool of 3.
func BenchmarkConcurrent(b *testing.B) { runBench(b, Concurrent, 9) }
