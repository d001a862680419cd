package render

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisibleLines(t *testing.T) {
	lines, err := visibleLines(`<html><head><style>td { color: red }</style><title>x</title></head>
<body><h1>INVOICE</h1><p>No:  <b>INV-007</b></p>
<table><tr><td>Widget</td><td>2</td></tr><tr><td>Gadget &amp; Co</td><td>1</td></tr></table></body></html>`)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"INVOICE",
		"No:    INV-007",
		"Widget    2",
		"Gadget & Co    1",
	}, lines)
}

func TestFPDFEngine_ProducesPDF(t *testing.T) {
	r := NewRenderer(NewFPDFEngine(), nil, Options{}, nil, nil)

	pdf, err := r.Render(context.Background(), sampleDoc(t))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")), "missing PDF header")
}

func TestFPDFEngine_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFPDFEngine().PrintToPDF(ctx, "<p>x</p>", DefaultPage())
	assert.Equal(t, EngineCommError, ReasonOf(err))
}
