// Command example demonstrates the htmlconv library's surface: converting an
// inline HTML string and converting a remote URL end to end, with a small
// transform pipeline and math round-trip enabled. This is a demonstration
// program, not a CLI — flags are hardcoded on purpose.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/resoltico/htmlconv/fetch"
	"github.com/resoltico/htmlconv/htmlconv"
	"github.com/resoltico/htmlconv/internal/debug"
	"github.com/resoltico/htmlconv/mathconv"
	"github.com/resoltico/htmlconv/transform"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	debug.Enable(1)
	defer debug.Disable()

	sample := `
<h1>Notes</h1>
<p>Inline math <span class="katex">E=mc^2</span> next to a link:
<a href="/docs">docs</a> and a <script>trackPageview()</script> tag.</p>
<ul>
  <li>first</li>
  <li>second</li>
</ul>`

	pipeline := transform.Pipeline{
		transform.SanitizeHtml(transform.SanitizeOptions{}),
		transform.AbsoluteUrls("https://example.com", nil),
		transform.AddHeadingIds(transform.HeadingIDOptions{}),
	}

	result, err := htmlconv.Convert(context.Background(), htmlconv.ConvertOptions{
		Source:      sample,
		EnableMath:  true,
		MathRestore: mathconv.RestoreOptions{OnWarning: func(msg string) { logger.Warn(msg) }},
		Pipeline:    pipeline,
	})
	if err != nil {
		logger.Error("convert local sample", "error", err)
		os.Exit(1)
	}
	logger.Info("converted local sample", "markdown", result.Markdown)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	remote, err := htmlconv.Convert(ctx, htmlconv.ConvertOptions{
		URL: "https://go.dev",
		Fetch: fetch.Options{
			Timeout:    10 * time.Second,
			RetryLimit: 2,
		},
		Pipeline: pipeline,
	})
	if err != nil {
		logger.Error("convert remote url", "error", err)
		return
	}
	logger.Info("converted remote url", "bytes", len(remote.Markdown))
}
