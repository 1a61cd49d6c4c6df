package petfinder

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/shelterscout/petharvester/internal/harvest"
)

// pageRenderer fetches page HTML through the render service.
type pageRenderer interface {
	Fetch(ctx context.Context, target string) (string, error)
	FetchJS(ctx context.Context, target string) (string, error)
}

// domEvaluator runs XPath queries against rendered HTML.
type domEvaluator interface {
	FirstTextAfterClick(ctx context.Context, html string, clickExpr string, exprs map[string]string) (map[string]string, error)
	FirstAttr(ctx context.Context, html string, exprs map[string]string, attr string) (map[string]string, error)
	AllHrefs(ctx context.Context, html string, exprs []string) ([]string, error)
}

// booleanFields are stored as "True"/"False" after badge parsing.
var booleanFields = map[string]bool{
	"spayed_neutered": true,
	"vaccinated":      true,
	"special_needs":   true,
	"kids_compatible": true,
	"dogs_compatible": true,
	"cats_compatible": true,
}

// Fetcher builds a full record from a pet detail page.
type Fetcher struct {
	render pageRenderer
	dom    domEvaluator
	logger *zap.Logger
}

// NewFetcher wires a Fetcher.
func NewFetcher(render pageRenderer, dom domEvaluator, logger *zap.Logger) *Fetcher {
	return &Fetcher{render: render, dom: dom, logger: logger}
}

// FetchItem fetches and extracts the record for key. Fields the page does
// not yield come back empty; only failure to obtain or parse the page at
// all is an error.
func (f *Fetcher) FetchItem(ctx context.Context, key string) (harvest.Record, error) {
	html, err := f.render.Fetch(ctx, key)
	if err != nil {
		return harvest.Record{}, fmt.Errorf("render pet page: %w", err)
	}
	record, failed, err := extractRecord(ctx, f.dom, key, html)
	if err != nil {
		return harvest.Record{}, err
	}
	if failed > 0 {
		f.logger.Debug("pet page yielded partial record",
			zap.String("key", key),
			zap.Int("empty_fields", failed))
	}
	return record, nil
}

// extractRecord evaluates all field XPaths over html and assembles the
// record for key. It also reports how many of the expected fields came
// back empty, which verification compares against its threshold.
func extractRecord(ctx context.Context, dom domEvaluator, key, html string) (harvest.Record, int, error) {
	texts, err := dom.FirstTextAfterClick(ctx, html, showMoreButtonXPath, detailTextXPaths)
	if err != nil {
		return harvest.Record{}, 0, fmt.Errorf("extract pet fields: %w", err)
	}
	attrs, err := dom.FirstAttr(ctx, html, map[string]string{"image": detailImageXPath}, "src")
	if err != nil {
		return harvest.Record{}, 0, fmt.Errorf("extract pet image: %w", err)
	}

	failed := 0
	fields := make(map[string]string, len(harvest.FieldNames()))
	for _, name := range harvest.FieldNames() {
		var raw string
		switch name {
		case "image":
			raw = strings.TrimSpace(attrs["image"])
			fields[name] = raw
		default:
			raw = cleanText(texts[name])
			switch {
			case booleanFields[name]:
				fields[name] = boolString(parseBoolean(raw))
			case name == "name":
				fields[name] = nameFromHeading(raw)
			default:
				fields[name] = raw
			}
		}
		if raw == "" {
			failed++
		}
	}

	return harvest.Record{Key: key, Fields: fields}, failed, nil
}
