package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matzehuels/xwire/pkg/cache"
	"github.com/matzehuels/xwire/pkg/diagram"
	"github.com/matzehuels/xwire/pkg/observability"
	"github.com/matzehuels/xwire/pkg/render"
	"github.com/matzehuels/xwire/pkg/render/nodelink"
)

// Render generates output artifacts in the requested formats.
// The diagram is converted to DOT once and to SVG at most once.
func Render(ctx context.Context, d diagram.Diagram, opts RenderOptions) (map[render.Format][]byte, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	dot := nodelink.ToDOT(d, nodelink.Options{Detailed: opts.Detailed})
	var svg []byte
	svgOnce := func() ([]byte, error) {
		if svg != nil {
			return svg, nil
		}
		var err error
		svg, err = nodelink.RenderSVG(ctx, dot)
		return svg, err
	}

	artifacts := make(map[render.Format][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case render.FormatDOT:
			data = []byte(dot)
		case render.FormatJSON:
			data, err = json.MarshalIndent(d, "", "  ")
		case render.FormatSVG:
			data, err = svgOnce()
		case render.FormatPNG:
			if data, err = svgOnce(); err == nil {
				data, err = render.ToPNG(ctx, data, DefaultPNGScale)
			}
		case render.FormatPDF:
			if data, err = svgOnce(); err == nil {
				data, err = render.ToPDF(ctx, data)
			}
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
// Artifacts are keyed by the hash of the diagram's JSON encoding.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, d diagram.Diagram, opts RenderOptions) (map[render.Format][]byte, bool, error) {
	if err := opts.Validate(); err != nil {
		return nil, false, err
	}

	formats := make([]string, len(opts.Formats))
	for i, f := range opts.Formats {
		formats[i] = string(f)
	}
	hooks := observability.Pipeline()
	start := time.Now()
	hooks.OnRenderStart(ctx, formats)

	diagramHash := cache.HashJSON(d)
	keyFor := func(f render.Format) string {
		return r.Keyer.ArtifactKey(diagramHash, cache.ArtifactKeyOpts{Format: string(f), Detail: opts.Detailed})
	}

	// Try to get all formats from cache
	artifacts := make(map[render.Format][]byte)
	for _, format := range opts.Formats {
		data, hit, err := r.Cache.Get(ctx, keyFor(format))
		if err != nil || !hit {
			observability.Cache().OnCacheMiss(ctx, "artifact")
			break
		}
		observability.Cache().OnCacheHit(ctx, "artifact")
		artifacts[format] = data
	}
	if len(artifacts) == len(opts.Formats) {
		hooks.OnRenderComplete(ctx, formats, time.Since(start), nil)
		return artifacts, true, nil
	}

	rendered, err := Render(ctx, d, opts)
	hooks.OnRenderComplete(ctx, formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	for format, data := range rendered {
		if err := r.Cache.Set(ctx, keyFor(format), data, cache.TTLArtifact); err == nil {
			observability.Cache().OnCacheSet(ctx, "artifact", len(data))
		}
	}

	r.Logger.Debug("rendered diagram", "formats", formats, "duration", time.Since(start))
	return rendered, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, d diagram.Diagram, opts RenderOptions) (map[render.Format][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, d, opts)
	return artifacts, err
}
