package renderer

import (
	"time"

	"github.com/chromedp/chromedp"
)

type Option func(*ChromeRenderer)

func WaitAfterLoad(d time.Duration) Option {
	return func(r *ChromeRenderer) {
		r.waitAfterLoad = d
	}
}

func ChromeFlag(name string, value any) Option {
	return func(r *ChromeRenderer) {
		r.allocatorOpts = append(r.allocatorOpts, chromedp.Flag(name, value))
	}
}
