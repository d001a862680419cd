// pkg/render/engine.go

package render

import "context"

// PageOptions describes the printed page.
type PageOptions struct {
	// PaperWidth and PaperHeight are in inches.
	PaperWidth      float64
	PaperHeight     float64
	MarginPx        float64
	PrintBackground bool
}

// A4 with 20px margins on every side and background graphics.
func DefaultPage() PageOptions {
	return PageOptions{
		PaperWidth:      8.27,
		PaperHeight:     11.69,
		MarginPx:        20,
		PrintBackground: true,
	}
}

// MarginInches converts the CSS pixel margin to inches (96px per inch).
func (o PageOptions) MarginInches() float64 {
	return o.MarginPx / 96
}

// Engine paints markup into a PDF. Implementations own their session for the
// duration of one call and must release it before returning. Errors should be
// tagged with Fail so the caller never has to inspect message text.
type Engine interface {
	PrintToPDF(ctx context.Context, markup string, opts PageOptions) ([]byte, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, markup string, opts PageOptions) ([]byte, error)

func (f EngineFunc) PrintToPDF(ctx context.Context, markup string, opts PageOptions) ([]byte, error) {
	return f(ctx, markup, opts)
}
