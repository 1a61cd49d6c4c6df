// Package extract evaluates XPath expressions against rendered HTML using
// a headless browser, matching how the expressions behave in a real DOM.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Config controls the behavior of the extractor.
type Config struct {
	EvalTimeout time.Duration
}

// Extractor loads HTML documents into headless Chrome tabs and runs XPath
// queries against them. One allocator is shared; each evaluation gets its
// own short-lived tab.
type Extractor struct {
	cfg         Config
	allocator   context.Context
	allocCancel context.CancelFunc
}

// New creates an Extractor backed by a headless Chrome allocator.
func New(cfg Config) *Extractor {
	if cfg.EvalTimeout <= 0 {
		cfg.EvalTimeout = 30 * time.Second
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &Extractor{cfg: cfg, allocator: allocCtx, allocCancel: allocCancel}
}

// Close cancels the allocator context.
func (e *Extractor) Close() {
	e.allocCancel()
}

// FirstText evaluates each named XPath against html and returns the inner
// text of the first matching node. Expressions with no match yield "".
func (e *Extractor) FirstText(ctx context.Context, html string, exprs map[string]string) (map[string]string, error) {
	return e.FirstTextAfterClick(ctx, html, "", exprs)
}

// FirstTextAfterClick clicks the first visible node matching clickExpr,
// when one exists, then behaves as FirstText. Detail pages collapse long
// text behind an expander button. An absent button is not an error.
func (e *Extractor) FirstTextAfterClick(ctx context.Context, html string, clickExpr string, exprs map[string]string) (map[string]string, error) {
	args, err := json.Marshal(exprs)
	if err != nil {
		return nil, fmt.Errorf("marshal expressions: %w", err)
	}
	clickArg, err := json.Marshal(clickExpr)
	if err != nil {
		return nil, fmt.Errorf("marshal click expression: %w", err)
	}
	js := fmt.Sprintf(`(function(clickExpr, exprs){
		if (clickExpr) {
			try {
				const r = document.evaluate(clickExpr, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null);
				const n = r.singleNodeValue;
				if (n && n.offsetParent !== null) n.click();
			} catch (e) {}
		}
		const out = {};
		for (const name in exprs) {
			try {
				const r = document.evaluate(exprs[name], document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null);
				const n = r.singleNodeValue;
				out[name] = n ? (n.innerText || n.textContent || '') : '';
			} catch (e) {
				out[name] = '';
			}
		}
		return out;
	})(%s, %s)`, clickArg, args)

	out := map[string]string{}
	if err := e.eval(ctx, html, js, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FirstAttr evaluates each named XPath and returns the attr attribute of
// the first matching node. Expressions with no match yield "".
func (e *Extractor) FirstAttr(ctx context.Context, html string, exprs map[string]string, attr string) (map[string]string, error) {
	exprArgs, err := json.Marshal(exprs)
	if err != nil {
		return nil, fmt.Errorf("marshal expressions: %w", err)
	}
	attrArg, err := json.Marshal(attr)
	if err != nil {
		return nil, fmt.Errorf("marshal attribute: %w", err)
	}
	js := fmt.Sprintf(`(function(exprs, attr){
		const out = {};
		for (const name in exprs) {
			try {
				const r = document.evaluate(exprs[name], document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null);
				const n = r.singleNodeValue;
				out[name] = n ? (n[attr] ? String(n[attr]) : (n.getAttribute(attr) || '')) : '';
			} catch (e) {
				out[name] = '';
			}
		}
		return out;
	})(%s, %s)`, exprArgs, attrArg)

	out := map[string]string{}
	if err := e.eval(ctx, html, js, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AllHrefs evaluates every XPath in exprs, in order, and returns the href
// of each anchor matched. Expressions matching nothing are skipped.
func (e *Extractor) AllHrefs(ctx context.Context, html string, exprs []string) ([]string, error) {
	args, err := json.Marshal(exprs)
	if err != nil {
		return nil, fmt.Errorf("marshal expressions: %w", err)
	}
	js := fmt.Sprintf(`(function(exprs){
		const out = [];
		for (const expr of exprs) {
			try {
				const r = document.evaluate(expr, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null);
				const n = r.singleNodeValue;
				if (n && n.tagName === 'A') {
					const href = n.href || n.getAttribute('href') || '';
					if (href) out.push(href);
				}
			} catch (e) {}
		}
		return out;
	})(%s)`, args)

	var out []string
	if err := e.eval(ctx, html, js, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Extractor) eval(ctx context.Context, html, js string, out any) error {
	taskCtx, taskCancel := chromedp.NewContext(e.allocator)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, e.cfg.EvalTimeout)
	defer cancel()

	stop := context.AfterFunc(ctx, taskCancel)
	defer stop()

	actions := []chromedp.Action{
		chromedp.Navigate("about:blank"),
		setDocumentContent(html),
		chromedp.Evaluate(js, out),
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("extraction canceled: %w", ctx.Err())
		}
		return fmt.Errorf("chromedp run: %w", err)
	}
	return nil
}

// setDocumentContent swaps the blank tab's document for html without a
// navigation, so relative resources never load.
func setDocumentContent(html string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		tree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return fmt.Errorf("get frame tree: %w", err)
		}
		if err := page.SetDocumentContent(tree.Frame.ID, html).Do(ctx); err != nil {
			return fmt.Errorf("set document content: %w", err)
		}
		return nil
	})
}
