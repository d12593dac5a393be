// Command okura analyzes Japanese and Chinese text and schedules vocabulary
// reviews.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
)

const usage = `usage: okura <command> [flags]

commands:
  serve        start the HTTP API
  analyze      analyze files or a URL and print JSON
  import       import the vocabulary of files or a URL into a card list
  fetch-dict   download missing dictionaries

Run "okura <command> -h" for the flags of a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	// Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "serve":
		err = runServe(ctx, args)
	case "analyze":
		err = runAnalyze(ctx, args, os.Stdout)
	case "import":
		err = runImport(ctx, args, os.Stdout)
	case "fetch-dict":
		err = runFetchDict(ctx, args, os.Stdout)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		cancel()
		log.Fatalf("%s: %v", cmd, err)
	}
}
