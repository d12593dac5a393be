package dictionary

import (
	"context"
	"fmt"
	"log/slog"
)

// Source describes where a language's dictionary and level list live.
type Source struct {
	Lang         string
	Path         string
	LevelsPath   string
	URL          string
	AutoDownload bool
}

// Load reads the dictionary described by src and returns its index. Level
// lists are optional; a missing path leaves entries without levels.
func Load(ctx context.Context, src Source) (*Index, error) {
	if src.AutoDownload {
		if err := EnsureDictionary(ctx, src.Lang, src.Path, src.URL); err != nil {
			return nil, fmt.Errorf("ensure %s dictionary: %w", src.Lang, err)
		}
	}

	var (
		entries []Entry
		err     error
	)
	switch src.Lang {
	case Japanese:
		entries, err = LoadJMdict(src.Path)
	case Chinese:
		entries, err = LoadCEDICT(src.Path)
	default:
		return nil, fmt.Errorf("no dictionary format for language %q", src.Lang)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s dictionary: %w", src.Lang, err)
	}

	var levels *Levels
	if src.LevelsPath != "" {
		levels, err = LoadLevels(src.Lang, src.LevelsPath)
		if err != nil {
			return nil, fmt.Errorf("load %s levels: %w", src.Lang, err)
		}
	}

	idx := NewIndex(src.Lang, entries, levels)
	slog.InfoContext(ctx, "dictionary loaded", "lang", src.Lang, "entries", idx.Len())
	return idx, nil
}
