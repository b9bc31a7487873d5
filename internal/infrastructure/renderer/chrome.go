// Package renderer captures page screenshots with headless Chrome.
package renderer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/kactica/og-image-generator/pkg/logger"
	"github.com/kactica/og-image-generator/pkg/types/errs"
)

const (
	// Pages are captured at a fixed desktop viewport and cropped to the
	// requested box afterwards, so differently sized requests see the same
	// page layout.
	captureWidth  = 1920
	captureHeight = 1080

	_defaultWaitAfterLoad = 5 * time.Second
	_settleDelay          = time.Second
)

// Common selectors for consent banners.
var consentBannerSelectors = []string{
	".cookie-consent-banner",
	"#cookie-notice",
	".cookie-banner",
	".consent-banner",
	"#onetrust-consent-sdk",
	"#CybotCookiebotDialog",
	"[id*='consent']",
	"[class*='consent']",
	"[aria-label*='consent']",
	"[aria-label*='cookie']",
}

// hideElementsJS hides every element matching the selectors; per-selector
// try/catch so one bad selector does not abort the rest.
const hideElementsJS = `(() => {
	const selectors = %s;
	let hiddenCount = 0;
	selectors.forEach(selector => {
		try {
			document.querySelectorAll(selector).forEach(el => {
				if (el.style.display !== 'none') {
					el.style.display = 'none';
					hiddenCount++;
				}
			});
		} catch (e) {}
	});
	return hiddenCount;
})()`

type ChromeRenderer struct {
	allocatorOpts []chromedp.ExecAllocatorOption
	waitAfterLoad time.Duration

	logger logger.Interface
}

func New(l logger.Interface, opts ...Option) *ChromeRenderer {
	r := &ChromeRenderer{
		allocatorOpts: append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("hide-scrollbars", true),
			chromedp.Flag("force-device-scale-factor", "1"),
		),
		waitAfterLoad: _defaultWaitAfterLoad,
		logger:        l,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Render navigates to rawURL, waits for the document to settle, hides
// consent banners and returns a PNG cropped to width x height. The caller's
// ctx carries the hard render timeout.
func (r *ChromeRenderer) Render(ctx context.Context, rawURL string, width, height int) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("ChromeRenderer - Render - url.Parse %q: %w", rawURL, errs.ErrInvalidURL)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, r.allocatorOpts...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	selectors, err := json.Marshal(consentBannerSelectors)
	if err != nil {
		return nil, fmt.Errorf("ChromeRenderer - Render - json.Marshal: %w", err)
	}

	var raw []byte
	var hiddenCount int

	err = chromedp.Run(taskCtx,
		chromedp.EmulateViewport(captureWidth, captureHeight),
		chromedp.Navigate(rawURL),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.Poll("document.readyState === 'complete'", nil,
			chromedp.WithPollingTimeout(r.waitAfterLoad)),
		chromedp.Evaluate(fmt.Sprintf(hideElementsJS, selectors), &hiddenCount),
		chromedp.Sleep(_settleDelay),
		chromedp.ActionFunc(func(ctx context.Context) error {
			raw, err = page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatPng).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("ChromeRenderer - Render - chromedp.Run: %w", err)
	}

	if hiddenCount > 0 {
		r.logger.Debug("hidden %d consent banner elements for %s", hiddenCount, rawURL)
	}

	out, err := fitToBox(raw, width, height)
	if err != nil {
		return nil, fmt.Errorf("ChromeRenderer - Render: %w", err)
	}

	return out, nil
}
