package composer

import (
	"context"
	"fmt"
	"os"

	"github.com/satindergrewal/wordrill/internal/audio"
	"github.com/satindergrewal/wordrill/internal/catalog"
)

// FileDecoder reads clips from the catalog's layout and decodes them with FFmpeg.
type FileDecoder struct {
	Catalog *catalog.Catalog
}

func (d FileDecoder) Decode(ctx context.Context, section, wordID string, side catalog.Side) ([]int16, error) {
	if !catalog.ValidName(section) || !catalog.ValidName(wordID) {
		return nil, &ClipUnavailableError{Word: wordID, Side: side, Err: fmt.Errorf("invalid identifier %q", wordID)}
	}

	path := d.Catalog.ClipPath(section, wordID, side)
	if _, err := os.Stat(path); err != nil {
		return nil, &ClipUnavailableError{Word: wordID, Side: side, Err: err}
	}

	samples, err := audio.DecodeFile(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// An undecodable file is as unusable as a missing one.
		return nil, &ClipUnavailableError{Word: wordID, Side: side, Err: err}
	}
	return samples, nil
}
