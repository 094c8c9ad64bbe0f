//go:build e2e

package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	expect "github.com/Netflix/go-expect"
	"github.com/creack/pty"
)

const (
	keyDown  = "\x1b[B"
	keyEnter = "\r"
	keyEsc   = "\x1b"
)

// buildPopcorn builds the binary for this package into a temp dir.
func buildPopcorn(t *testing.T) string {
	t.Helper()
	binPath := filepath.Join(t.TempDir(), "popcorn")
	cmd := exec.Command("go", "build", "-o", binPath, ".")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build failed: %v\n%s", err, out)
	}
	return binPath
}

func fakeOMDb(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("i") == "tt0372784":
			w.Write([]byte(`{"Title":"Batman Begins","Year":"2005","Runtime":"140 min","Director":"Christopher Nolan",
				"Plot":"Bruce Wayne trains to fight injustice.","imdbRating":"8.2","imdbID":"tt0372784","Poster":"N/A","Response":"True"}`))
		case q.Get("s") != "":
			w.Write([]byte(`{"Search":[
				{"Title":"Batman Begins","Year":"2005","imdbID":"tt0372784","Type":"movie","Poster":"N/A"},
				{"Title":"The Batman","Year":"2022","imdbID":"tt1877830","Type":"movie","Poster":"N/A"}
			],"totalResults":"2","Response":"True"}`))
		default:
			w.Write([]byte(`{"Response":"False","Error":"Movie not found!"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestE2E_SearchSelectAndClose(t *testing.T) {
	binPath := buildPopcorn(t)
	srv := fakeOMDb(t)
	homeDir := t.TempDir()

	cmd := exec.Command(binPath)
	cmd.Env = append(os.Environ(),
		"HOME="+homeDir,
		"OMDB_BASE_URL="+srv.URL,
		"OMDB_API_KEY=dummy-key",
	)

	ptmx, err := pty.Start(cmd)
	if err != nil {
		t.Fatalf("failed to start pty: %v", err)
	}
	defer func() {
		_ = ptmx.Close()
		_ = cmd.Process.Kill()
	}()
	if err := pty.Setsize(ptmx, &pty.Winsize{Cols: 120, Rows: 40}); err != nil {
		t.Fatalf("failed to set pty size: %v", err)
	}

	var screen bytes.Buffer
	console, err := expect.NewConsole(
		expect.WithStdin(ptmx),
		expect.WithStdout(&screen),
		expect.WithDefaultTimeout(5*time.Second),
	)
	if err != nil {
		t.Fatalf("failed to create console: %v", err)
	}
	defer console.Close()

	step := func(name, want string) {
		t.Helper()
		if _, err := console.ExpectString(want); err != nil {
			if logs, err := os.ReadFile(filepath.Join(homeDir, ".popcorn", "popcorn.events.jsonl")); err == nil {
				t.Logf("events:\n%s", logs)
			}
			t.Fatalf("%s: %q not found: %v\nScreen:\n%s", name, want, err, screen.String())
		}
	}
	send := func(s string) {
		t.Helper()
		if _, err := console.Send(s); err != nil {
			t.Fatalf("send %q: %v", s, err)
		}
	}

	step("startup", "Start typing to search for movies")

	send("batman")
	step("results", "Found 2 results")

	send(keyDown)
	time.Sleep(200 * time.Millisecond)
	send(keyEnter)
	step("detail", "Christopher Nolan")

	send(keyEsc)
	time.Sleep(300 * time.Millisecond)

	send("q")
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("process did not exit after 'q'\nScreen:\n%s", screen.String())
	}

	if _, err := os.Stat(filepath.Join(homeDir, ".popcorn", "history.db")); err != nil {
		t.Errorf("expected search history database: %v", err)
	}
}
