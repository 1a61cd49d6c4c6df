package petfinder

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/shelterscout/petharvester/internal/harvest"
)

// Lister lists candidate pet links from one search results page.
type Lister struct {
	render    pageRenderer
	dom       domEvaluator
	searchURL string
	logger    *zap.Logger
}

// NewLister wires a Lister. searchURL is a format string taking the
// pluralized category and the page number.
func NewLister(render pageRenderer, dom domEvaluator, searchURL string, logger *zap.Logger) *Lister {
	return &Lister{render: render, dom: dom, searchURL: searchURL, logger: logger}
}

// ListPage returns the pet links found on the given search page. Search
// results only render client side, so the page goes through the JS
// endpoint. A page with no result cards returns an empty slice.
func (l *Lister) ListPage(ctx context.Context, page int, category harvest.Category) ([]string, error) {
	target := fmt.Sprintf(l.searchURL, string(category)+"s", page)

	html, err := l.render.FetchJS(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("render search page: %w", err)
	}

	hrefs, err := l.dom.AllHrefs(ctx, html, searchLinkXPaths)
	if err != nil {
		return nil, fmt.Errorf("extract search links: %w", err)
	}

	links := make([]string, 0, len(hrefs))
	for _, href := range hrefs {
		links = append(links, canonicalLink(href))
	}

	l.logger.Debug("search page listed",
		zap.Int("page", page),
		zap.String("category", string(category)),
		zap.Int("links", len(links)))
	return links, nil
}
