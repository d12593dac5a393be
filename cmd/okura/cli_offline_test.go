package main_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleHTML = `<!DOCTYPE html>
<html lang="ja"><head><meta charset="utf-8"><title>天気</title></head>
<body>
<nav><a href="/">トップ</a></nav>
<article>
<h1>明日の天気</h1>
<p>明日は全国的に晴れるでしょう。<ruby>東京<rt>とうきょう</rt></ruby>では気温が上がります。</p>
<p>週末は雨が降る見込みです。傘を持って出かけてください。</p>
<p>来週の初めには再び晴れて、暖かい日が続くと予想されています。</p>
</article>
</body></html>`

// buildCLI compiles the binary into dir.
func buildCLI(t *testing.T, dir string) string {
	t.Helper()
	bin := filepath.Join(dir, "okura.bin")
	build := exec.Command("go", "build", "-o", bin, "github.com/pierrefittel/okura/cmd/okura")
	build.Stdout = os.Stdout
	build.Stderr = os.Stderr
	require.NoError(t, build.Run(), "failed to build CLI")
	return bin
}

// offlineEnv points the CLI at tmp and disables dictionary downloads.
func offlineEnv(tmp string) []string {
	return append(os.Environ(),
		"CONFIG_PATH=",
		"DICT_OFFLINE=true",
		"DICT_DIR="+tmp,
		"DATABASE_PATH="+filepath.Join(tmp, "okura.db"),
		"LOG_LEVEL=warn",
	)
}

func runCLI(t *testing.T, bin, tmp string, args ...string) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = tmp
	cmd.Env = offlineEnv(tmp)
	out, err := cmd.Output()
	if ctx.Err() == context.DeadlineExceeded {
		t.Fatalf("cli timed out, output:\n%s", out)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		t.Fatalf("cli failed: %v\nstderr:\n%s", err, exitErr.Stderr)
	}
	require.NoError(t, err)
	return string(out)
}

func TestCLI_OfflineImport(t *testing.T) {
	tmp := t.TempDir()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	bin := buildCLI(t, tmp)
	out := runCLI(t, bin, tmp, "import", "-title", "ニュース", "-lang", "ja", "-url", srv.URL+"/news/weather")
	assert.Contains(t, out, "Processing complete")

	dbConn, err := sql.Open("sqlite3", filepath.Join(tmp, "okura.db"))
	require.NoError(t, err)
	defer dbConn.Close()

	var lists, cards int
	require.NoError(t, dbConn.QueryRow("SELECT COUNT(*) FROM lists").Scan(&lists))
	require.NoError(t, dbConn.QueryRow("SELECT COUNT(*) FROM cards").Scan(&cards))
	assert.Equal(t, 1, lists)
	assert.Positive(t, cards)

	// Ruby readings are stripped before analysis, so no card has the
	// furigana as its term.
	var furigana int
	require.NoError(t, dbConn.QueryRow("SELECT COUNT(*) FROM cards WHERE term = 'とうきょう'").Scan(&furigana))
	assert.Zero(t, furigana)
}

func TestCLI_AnalyzeCandidates(t *testing.T) {
	tmp := t.TempDir()
	input := filepath.Join(tmp, "note.txt")
	require.NoError(t, os.WriteFile(input, []byte("猫が好きです。猫と遊びます。"), 0o644))

	bin := buildCLI(t, tmp)
	out := runCLI(t, bin, tmp, "analyze", "-candidates", "-content-only", input)

	var got struct {
		File       string `json:"file"`
		Candidates []struct {
			Lemma   string `json:"lemma"`
			Context string `json:"context"`
		} `json:"candidates"`
	}
	require.NoError(t, json.NewDecoder(strings.NewReader(out)).Decode(&got))
	assert.Equal(t, "note.txt", got.File)

	var cats int
	for _, c := range got.Candidates {
		if c.Lemma == "猫" {
			cats++
			assert.Equal(t, "猫が好きです。", c.Context)
		}
	}
	assert.Equal(t, 1, cats)
}
