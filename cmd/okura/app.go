package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pierrefittel/okura/pkg/analysis"
	"github.com/pierrefittel/okura/pkg/config"
	"github.com/pierrefittel/okura/pkg/dictionary"
	"github.com/pierrefittel/okura/pkg/logger"
	"github.com/pierrefittel/okura/pkg/srs"
	"github.com/pierrefittel/okura/pkg/textfile"
	"github.com/pierrefittel/okura/pkg/tokenize"
)

func loadConfig(path string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.New(cfg.Log), nil
}

func dictionarySource(cfg config.DictionaryConfig, lang string) dictionary.Source {
	src := dictionary.Source{Lang: lang, AutoDownload: !cfg.Offline}
	switch lang {
	case tokenize.Japanese:
		src.Path = cfg.Resolve(cfg.JMdictPath)
		src.LevelsPath = cfg.Resolve(cfg.JLPTPath)
		src.URL = cfg.JMdictURL
	case tokenize.Chinese:
		src.Path = cfg.Resolve(cfg.CEDICTPath)
		src.LevelsPath = cfg.Resolve(cfg.HSKPath)
		src.URL = cfg.CEDICTURL
	}
	return src
}

// buildEngine creates the tokenizers and loads the dictionaries of langs
// concurrently. A dictionary that cannot be loaded is logged and skipped;
// tokens of that language are then returned without definitions.
func buildEngine(ctx context.Context, cfg *config.Config, log *slog.Logger, langs ...string) (*analysis.Engine, *tokenize.Registry, error) {
	if len(langs) == 0 {
		langs = []string{tokenize.Japanese, tokenize.Chinese}
	}

	var (
		mu    sync.Mutex
		reg   = tokenize.NewRegistry()
		dicts = make(map[string]*dictionary.Index)
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, lang := range langs {
		lang = tokenize.Canonical(lang)

		g.Go(func() error {
			var (
				tk  tokenize.Tokenizer
				err error
			)
			switch lang {
			case tokenize.Japanese:
				tk, err = tokenize.NewJapanese()
			case tokenize.Chinese:
				tk, err = tokenize.NewChinese(cfg.Dictionary.Resolve(cfg.Dictionary.GSEDictPath))
			default:
				return fmt.Errorf("%w: %q", analysis.ErrUnsupportedLanguage, lang)
			}
			if err != nil {
				return fmt.Errorf("%s tokenizer: %w", lang, err)
			}
			mu.Lock()
			reg.Register(tk)
			mu.Unlock()
			return nil
		})

		g.Go(func() error {
			idx, err := dictionary.Load(gctx, dictionarySource(cfg.Dictionary, lang))
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warn("dictionary unavailable, continuing without definitions", "lang", lang, "error", err)
				return nil
			}
			mu.Lock()
			dicts[lang] = idx
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	opts := []analysis.Option{analysis.WithDecoder(textfile.Decoder{MaxBytes: cfg.Upload.MaxBytes})}
	for lang, idx := range dicts {
		opts = append(opts, analysis.WithDictionary(lang, idx))
	}
	return analysis.NewEngine(reg, opts...), reg, nil
}

func newScheduler(cfg config.SRSConfig) (*srs.Scheduler, error) {
	return srs.NewScheduler(srs.Params{
		InitialEase: cfg.InitialEase,
		MinEase:     cfg.MinEase,
		MaxInterval: cfg.MaxInterval,
	})
}
