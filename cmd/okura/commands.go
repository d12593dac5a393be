package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/pierrefittel/okura/pkg/analysis"
	"github.com/pierrefittel/okura/pkg/api"
	"github.com/pierrefittel/okura/pkg/db"
	"github.com/pierrefittel/okura/pkg/dictionary"
	"github.com/pierrefittel/okura/pkg/ingest"
	"github.com/pierrefittel/okura/pkg/study"
	"github.com/pierrefittel/okura/pkg/tokenize"
)

// readInputs loads the named files and, when rawURL is set, the page behind it.
func readInputs(ctx context.Context, files []string, rawURL string) ([]ingest.Document, error) {
	var docs []ingest.Document
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		docs = append(docs, ingest.Document{Name: filepath.Base(f), Data: data})
	}
	if rawURL != "" {
		name, body, err := fetchURL(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		docs = append(docs, ingest.Document{Name: name, Data: body})
	}
	if len(docs) == 0 {
		return nil, errors.New("no input: pass files or -url")
	}
	return docs, nil
}

type analyzeOutput struct {
	File string `json:"file"`
	*api.AnalyzeResponse
	Candidates []api.CandidateResponse `json:"candidates,omitempty"`
}

func runAnalyze(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configFlag := fs.String("config", "", "Path to the YAML config")
	langFlag := fs.String("lang", tokenize.Japanese, "Language of the input (ja, zh)")
	urlFlag := fs.String("url", "", "URL to fetch and analyze")
	candFlag := fs.Bool("candidates", false, "Print vocabulary candidates instead of sentences")
	contentFlag := fs.Bool("content-only", false, "Keep only nouns, verbs, adjectives and adverbs among candidates")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, log, err := loadConfig(*configFlag)
	if err != nil {
		return err
	}
	docs, err := readInputs(ctx, fs.Args(), *urlFlag)
	if err != nil {
		return err
	}
	engine, _, err := buildEngine(ctx, cfg, log, *langFlag)
	if err != nil {
		return err
	}

	results, err := ingest.AnalyzeAll(ctx, engine, *langFlag, docs, cfg.Ingest.Workers)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	for i, res := range results {
		out := analyzeOutput{File: docs[i].Name}
		if *candFlag {
			cands := res.Candidates
			if *contentFlag {
				cands = analysis.ContentWords(cands, res.Language)
			}
			out.Candidates = api.NewCandidatesResponse(res.Language, cands).Candidates
		} else {
			resp := api.NewAnalyzeResponse(res)
			out.AnalyzeResponse = &resp
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
	return nil
}

func runImport(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configFlag := fs.String("config", "", "Path to the YAML config")
	listFlag := fs.String("list", "", "ID of the card list to import into")
	titleFlag := fs.String("title", "", "Create a new list with this title when -list is not given")
	langFlag := fs.String("lang", tokenize.Japanese, "Language of the input (ja, zh)")
	urlFlag := fs.String("url", "", "URL to fetch and import")
	contentFlag := fs.Bool("content-only", true, "Keep only nouns, verbs, adjectives and adverbs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *listFlag == "" && *titleFlag == "" {
		return errors.New("pass -list <id> or -title <name>")
	}

	cfg, log, err := loadConfig(*configFlag)
	if err != nil {
		return err
	}
	docs, err := readInputs(ctx, fs.Args(), *urlFlag)
	if err != nil {
		return err
	}

	conn, err := db.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer conn.Close()
	if err := db.InitDB(ctx, conn); err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	fmt.Fprintf(stdout, "Database initialized at %s\n", cfg.Database.Path)

	sched, err := newScheduler(cfg.SRS)
	if err != nil {
		return err
	}

	var listID uuid.UUID
	if *listFlag != "" {
		listID, err = uuid.Parse(*listFlag)
		if err != nil {
			return fmt.Errorf("invalid list id %q: %w", *listFlag, err)
		}
	} else {
		svc := study.NewService(log, conn, study.Options{Scheduler: sched})
		l, err := svc.CreateList(ctx, *titleFlag, *langFlag)
		if err != nil {
			return err
		}
		listID = l.ID
		fmt.Fprintf(stdout, "List %q created with ID: %s\n", l.Title, l.ID)
	}

	engine, _, err := buildEngine(ctx, cfg, log, *langFlag)
	if err != nil {
		return err
	}

	ig := ingest.NewIngester(conn, engine)
	ig.Scheduler = sched
	ig.Workers = cfg.Ingest.Workers
	ig.BatchSize = cfg.Ingest.BatchSize
	ig.ContentOnly = *contentFlag
	ig.Logger = log
	ig.OnProgress = func(cur, total int) {
		fmt.Fprintf(stdout, "Analyzed %d/%d documents\n", cur, total)
	}

	start := time.Now()
	n, err := ig.Ingest(ctx, listID, *langFlag, docs)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	fmt.Fprintf(stdout, "Processing complete. Created %d cards in %v.\n", n, time.Since(start).Round(time.Millisecond))
	return nil
}

func runFetchDict(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("fetch-dict", flag.ExitOnError)
	configFlag := fs.String("config", "", "Path to the YAML config")
	langFlag := fs.String("lang", "", "Only fetch this language (default: all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, _, err := loadConfig(*configFlag)
	if err != nil {
		return err
	}

	langs := []string{tokenize.Japanese, tokenize.Chinese}
	if *langFlag != "" {
		langs = []string{tokenize.Canonical(*langFlag)}
	}
	for _, lang := range langs {
		src := dictionarySource(cfg.Dictionary, lang)
		if err := dictionary.EnsureDictionary(ctx, lang, src.Path, src.URL); err != nil {
			return fmt.Errorf("%s dictionary: %w", lang, err)
		}
		fmt.Fprintf(stdout, "%s dictionary ready at %s\n", lang, src.Path)
	}
	return nil
}
