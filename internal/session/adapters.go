package session

import (
	"context"

	"cdplayer/internal/extract"
)

type extractorAdapter struct {
	extractor *extract.Extractor
}

// FromExtractor adapts an extract.Extractor to the Extractor interface.
func FromExtractor(e *extract.Extractor) Extractor {
	return extractorAdapter{extractor: e}
}

func (a extractorAdapter) Start(ctx context.Context, r extract.TrackRange, onLine func(string)) (Extraction, error) {
	run, err := a.extractor.Start(ctx, r, onLine)
	if err != nil {
		return nil, err
	}
	return run, nil
}
