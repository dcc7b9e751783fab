package assets

import (
	"context"
	"sync/atomic"

	"walkthrough/internal/scene"
)

// SourceFetcher is the Fetcher used by the viewer: it reads bytes from a Source and decodes them.
type SourceFetcher struct {
	src Source
	low atomic.Bool
}

// NewSourceFetcher returns a fetcher reading through src.
func NewSourceFetcher(src Source) *SourceFetcher {
	return &SourceFetcher{src: src}
}

// SetLowTier makes later panorama fetches downscale to LowTierWidth.
func (f *SourceFetcher) SetLowTier(low bool) {
	f.low.Store(low)
}

func (f *SourceFetcher) FetchPanorama(ctx context.Context, url string) (*scene.Texture, error) {
	data, err := f.src.Read(ctx, url)
	if err != nil {
		return nil, err
	}
	return decodePanorama(data, url, f.low.Load())
}

func (f *SourceFetcher) FetchModel(ctx context.Context, url string) (*scene.Node, error) {
	data, err := f.src.Read(ctx, url)
	if err != nil {
		return nil, err
	}
	return decodeModel(data, url, func(ref string) ([]byte, error) {
		return f.src.Read(ctx, ref)
	})
}
