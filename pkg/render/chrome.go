// pkg/render/chrome.go

package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ChromeEngine prints through a headless Chrome launched for each call.
type ChromeEngine struct {
	// ExecPath overrides the browser binary lookup.
	ExecPath string
}

func NewChromeEngine(execPath string) *ChromeEngine {
	return &ChromeEngine{ExecPath: execPath}
}

func (e *ChromeEngine) PrintToPDF(ctx context.Context, markup string, opts PageOptions) ([]byte, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if e.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(e.ExecPath))
	}

	// Both cancels kill the browser process; they run on every return path.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// The first Run starts the browser and opens the tab.
	if err := chromedp.Run(browserCtx); err != nil {
		return nil, Fail(EngineUnavailable, fmt.Errorf("launch browser: %w", err))
	}

	lifecycle := make(chan *page.EventLifecycleEvent, 32)
	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		if lc, ok := ev.(*page.EventLifecycleEvent); ok && lc.Name == "networkIdle" {
			select {
			case lifecycle <- lc:
			default:
			}
		}
	})

	var pdf []byte
	err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := page.SetLifecycleEventsEnabled(true).Do(ctx); err != nil {
			return commFailure(ctx, "enable lifecycle events", err)
		}

		frameID, loaderID, errText, err := page.Navigate("about:blank").Do(ctx)
		if err != nil {
			return commFailure(ctx, "open blank page", err)
		}
		if errText != "" {
			return Fail(EngineCommError, fmt.Errorf("open blank page: %s", errText))
		}
		if err := waitSettled(ctx, lifecycle, func(ev *page.EventLifecycleEvent) bool {
			return ev.LoaderID == loaderID
		}); err != nil {
			return err
		}

		// The markup goes straight into the frame; a data URL would hit
		// Chrome's URL length cap on long invoices.
		drain(lifecycle)
		if err := page.SetDocumentContent(frameID, markup).Do(ctx); err != nil {
			return commFailure(ctx, "set content", err)
		}
		if err := waitSettled(ctx, lifecycle, func(ev *page.EventLifecycleEvent) bool {
			return ev.FrameID == frameID
		}); err != nil {
			return err
		}

		margin := opts.MarginInches()
		buf, _, err := page.PrintToPDF().
			WithPaperWidth(opts.PaperWidth).
			WithPaperHeight(opts.PaperHeight).
			WithMarginTop(margin).
			WithMarginBottom(margin).
			WithMarginLeft(margin).
			WithMarginRight(margin).
			WithPrintBackground(opts.PrintBackground).
			Do(ctx)
		if err != nil {
			return commFailure(ctx, "print to pdf", err)
		}
		pdf = buf
		return nil
	}))
	if err != nil {
		var f *Failure
		if errors.As(err, &f) {
			return nil, f
		}
		return nil, commFailure(browserCtx, "run", err)
	}
	return pdf, nil
}

// settleWindow bounds the wait for a networkIdle event. Chrome does not always
// emit one for a document that loads nothing further.
var settleWindow = 2 * time.Second

func waitNetworkIdle(ctx context.Context, events <-chan *page.EventLifecycleEvent, match func(*page.EventLifecycleEvent) bool) error {
	for {
		select {
		case ev := <-events:
			if match(ev) {
				return nil
			}
		case <-ctx.Done():
			return commFailure(ctx, "wait for network idle", ctx.Err())
		}
	}
}

// waitSettled is waitNetworkIdle capped at settleWindow. Only the caller's own
// deadline or cancellation is an error.
func waitSettled(ctx context.Context, events <-chan *page.EventLifecycleEvent, match func(*page.EventLifecycleEvent) bool) error {
	settle, cancel := context.WithTimeout(ctx, settleWindow)
	defer cancel()
	err := waitNetworkIdle(settle, events, match)
	if err != nil && ctx.Err() != nil {
		return err
	}
	return nil
}

func drain(events <-chan *page.EventLifecycleEvent) {
	for {
		select {
		case <-events:
		default:
			return
		}
	}
}

// commFailure tags an error raised after the browser is up. A passed deadline
// is a timeout; anything else means the session broke.
func commFailure(ctx context.Context, step string, err error) *Failure {
	err = fmt.Errorf("%s: %w", step, err)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Fail(RenderTimeout, err)
	}
	return Fail(EngineCommError, err)
}
