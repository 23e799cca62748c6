package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	// pages holds the (normalized model + suffix) keys that exist.
	pages map[string]*ScrapeResult
	calls []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, model, prefix, suffix string) (*ScrapeResult, bool) {
	key := NormalizeModel(model) + suffix
	f.calls = append(f.calls, key)
	r, ok := f.pages[key]
	return r, ok
}

type fakeSink struct {
	logs      []string
	progress  []int
	stopAfter int // stop returns true once this many Stopped() calls have happened; 0 disables
	polls     int
}

func (s *fakeSink) Progress(percent int, message string) { s.progress = append(s.progress, percent) }
func (s *fakeSink) Log(level, message string)            { s.logs = append(s.logs, level+": "+message) }
func (s *fakeSink) Stopped() bool {
	s.polls++
	return s.stopAfter > 0 && s.polls > s.stopAfter
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, nil))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func newTestService(f *fakeFetcher) *Service {
	s := NewService(f, testLogger())
	s.variantDelay = 0
	return s
}

func TestScrapeModelsGasType(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*ScrapeResult{
		"AQ75":   {Title: "AQ75 Fryer", Price: "999.00"},
		"AQ75LP": {Title: "AQ75 Fryer LP", Price: "999.00"},
	}}
	sink := &fakeSink{}
	svc := newTestService(fetcher)

	rows := svc.ScrapeModels(context.Background(), Request{
		Models:   []string{"aq-75", "BX10"},
		Mode:     ModeGasType,
		Prefix:   "150",
		StartRow: 1,
		EndRow:   2,
	}, sink)

	// AQ75 found original and LP; BX10 found nothing.
	require.Len(t, rows, 2)
	assert.Equal(t, "aq-75", rows[0][ColModel])
	assert.Equal(t, OriginalVariantLabel, rows[0][ColVariant])
	assert.Equal(t, "LP", rows[1][ColVariant])

	// Every variant was probed for both models.
	assert.Equal(t, []string{"AQ75", "AQ75LP", "AQ75NG", "BX10", "BX10LP", "BX10NG"}, fetcher.calls)

	// The empty model got a warning.
	joined := strings.Join(sink.logs, "\n")
	assert.Contains(t, joined, "warning: No results for model: BX10")
	assert.Contains(t, joined, "success: Found: AQ75LP")

	// Progress hits 100 on the final model.
	require.NotEmpty(t, sink.progress)
	assert.Equal(t, 100, sink.progress[len(sink.progress)-1])
}

func TestScrapeModelsStopRequest(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*ScrapeResult{
		"M1": {Title: "m1"}, "M2": {Title: "m2"}, "M3": {Title: "m3"},
	}}
	// First poll (before model 1) passes, second poll stops the run.
	sink := &fakeSink{stopAfter: 1}
	svc := newTestService(fetcher)

	rows := svc.ScrapeModels(context.Background(), Request{
		Models:   []string{"M1", "M2", "M3"},
		Mode:     ModeNone,
		Prefix:   "150",
		StartRow: 1,
		EndRow:   3,
	}, sink)

	require.Len(t, rows, 1, "rows collected before the stop are kept")
	assert.Equal(t, "M1", rows[0][ColModel])
}

func TestScrapeModelsRowRange(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*ScrapeResult{
		"M2": {Title: "m2"}, "M3": {Title: "m3"},
	}}
	sink := &fakeSink{}
	svc := newTestService(fetcher)

	rows := svc.ScrapeModels(context.Background(), Request{
		Models:   []string{"M1", "M2", "M3", "M4"},
		Mode:     ModeNone,
		Prefix:   "150",
		StartRow: 2,
		EndRow:   3,
	}, sink)

	require.Len(t, rows, 2)
	assert.Equal(t, []string{"M2", "M3"}, fetcher.calls)
}

func TestScrapeModelsRangeClamping(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*ScrapeResult{"M1": {Title: "m1"}}}
	svc := newTestService(fetcher)

	rows := svc.ScrapeModels(context.Background(), Request{
		Models:   []string{"M1"},
		Mode:     ModeNone,
		Prefix:   "150",
		StartRow: 0,
		EndRow:   50,
	}, &fakeSink{})

	require.Len(t, rows, 1)

	// Inverted range yields nothing.
	rows = svc.ScrapeModels(context.Background(), Request{
		Models:   []string{"M1"},
		Mode:     ModeNone,
		Prefix:   "150",
		StartRow: 5,
		EndRow:   2,
	}, &fakeSink{})
	assert.Empty(t, rows)
}

func TestScrapeModelsAutoResolution(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*ScrapeResult{}}
	sink := &fakeSink{}
	svc := newTestService(fetcher)

	svc.ScrapeModels(context.Background(), Request{
		Models:   []string{"AQ75"},
		Mode:     ModeAuto,
		Prefix:   "150",
		StartRow: 1,
		EndRow:   1,
		Specs:    SpecLookup{"AQ75": "gas fryer"},
	}, sink)

	assert.Equal(t, []string{"AQ75", "AQ75LP", "AQ75NG"}, fetcher.calls)
	assert.Contains(t, strings.Join(sink.logs, "\n"), fmt.Sprintf("Auto mode for AQ75: using %q", "Gas Type"))
}
