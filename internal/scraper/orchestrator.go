package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// Log severities the job sink understands.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Sink receives progress updates and log lines from a running job, and is
// polled for a cooperative stop between models and between variants. A stop
// is not an error: rows collected so far are still returned.
type Sink interface {
	Progress(percent int, message string)
	Log(level, message string)
	Stopped() bool
}

// PageFetcher is the single-page extraction contract the orchestrator drives.
// *Extractor is the production implementation.
type PageFetcher interface {
	Fetch(ctx context.Context, model, prefix, suffix string) (*ScrapeResult, bool)
}

// Request describes one scrape job: which models, which variant vocabulary,
// the URL prefix for the catalog category, and a 1-based inclusive row range
// into the model list. Specs feeds Auto-mode resolution and may be nil.
type Request struct {
	Models   []string
	Mode     Mode
	Prefix   string
	StartRow int
	EndRow   int
	Specs    SpecLookup
}

// Service runs scrape jobs strictly sequentially: one model at a time, one
// variant at a time, one browser session open at a time.
type Service struct {
	fetcher      PageFetcher
	variantDelay time.Duration
	logger       *slog.Logger
}

func NewService(fetcher PageFetcher, logger *slog.Logger) *Service {
	return &Service{
		fetcher:      fetcher,
		variantDelay: 500 * time.Millisecond,
		logger:       logger.With("component", "scrape_service"),
	}
}

type variantResult struct {
	suffix string
	result *ScrapeResult
}

// ScrapeModels walks the requested row range in order and returns one flat
// row per found (model, variant) page. Models with no found variants
// contribute no rows and are logged as warnings; no single model's failure
// aborts the rest of the range.
func (s *Service) ScrapeModels(ctx context.Context, req Request, sink Sink) []Row {
	var rows []Row

	start := req.StartRow
	if start < 1 {
		start = 1
	}
	end := req.EndRow
	if end > len(req.Models) {
		end = len(req.Models)
	}
	total := end - start + 1
	if total <= 0 {
		return rows
	}

	for i := start - 1; i < end; i++ {
		if sink.Stopped() {
			s.logger.Info("stop requested, ending scrape early", "completed", i-start+1)
			break
		}

		model := req.Models[i]

		mode := req.Mode
		if mode == ModeAuto {
			mode = ResolveAutoMode(model, req.Specs)
			sink.Log(LevelInfo, fmt.Sprintf("Auto mode for %s: using %q", model, string(mode)))
		}

		found := s.scrapeVariants(ctx, model, req.Prefix, mode, sink)
		for _, vr := range found {
			rows = append(rows, FlattenResult(model, vr.suffix, vr.result))
		}
		if len(found) == 0 {
			sink.Log(LevelWarning, fmt.Sprintf("No results for model: %s", model))
		}

		completed := i - start + 2
		percent := int(math.Round(float64(completed) / float64(total) * 100))
		sink.Progress(percent, fmt.Sprintf("Scraped %s: %d results", model, len(found)))
	}

	return rows
}

// scrapeVariants probes the original page first, then each planned suffix in
// vocabulary order, pausing briefly between attempts to bound the request
// rate. A stop request skips the remaining suffixes.
func (s *Service) scrapeVariants(ctx context.Context, model, prefix string, mode Mode, sink Sink) []variantResult {
	var found []variantResult

	for i, suffix := range PlanVariants(mode, model, nil) {
		if i > 0 {
			if sink.Stopped() {
				break
			}
			time.Sleep(s.variantDelay)
		}

		label := NormalizeModel(model) + suffix
		if suffix == "" {
			sink.Log(LevelInfo, fmt.Sprintf("Trying original model: %s", model))
		} else {
			sink.Log(LevelInfo, fmt.Sprintf("Trying variation: %s", label))
		}

		result, ok := s.fetcher.Fetch(ctx, model, prefix, suffix)
		if !ok || result == nil {
			continue
		}
		found = append(found, variantResult{suffix: suffix, result: result})
		sink.Log(LevelSuccess, fmt.Sprintf("Found: %s", label))
	}

	return found
}
