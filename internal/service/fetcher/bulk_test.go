package fetcher

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rirsync/rirsync/internal/adapter/filesystem"
	"github.com/rirsync/rirsync/internal/adapter/transport"
	"github.com/rirsync/rirsync/internal/domain"
)

// zipWith returns a zip archive holding a single named entry
func zipWith(t *testing.T, name, content string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// newBulkService wires a fetcher with no fixed sources and bulk enabled
// against the given endpoint.
func newBulkService(t *testing.T, destDir, endpoint string) *Service {
	t.Helper()

	fs, err := filesystem.NewManager(destDir, 0)
	if err != nil {
		t.Fatal(err)
	}

	cfg := &Config{
		StalePartialAge: 24 * time.Hour,
		Bulk: BulkConfig{
			Enabled:   true,
			Endpoint:  endpoint,
			EntryName: "arin_db.txt",
		},
	}
	client := transport.New(transport.Config{Timeout: 5 * time.Second})
	return New(cfg, client, fs, &mockFetchLog{}, zap.NewNop())
}

// tempDirsMatching counts rirsync bulk temp dirs currently on disk
func tempDirsMatching(t *testing.T) int {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "rirsync-bulk-*"))
	if err != nil {
		t.Fatal(err)
	}
	return len(matches)
}

func TestService_Run_BulkDownload(t *testing.T) {
	var gotKey string
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		gotKey = r.URL.Query().Get("apikey")
		w.Write(zipWith(t, "arin_db.txt", "X"))
	}))
	defer srv.Close()

	dest := t.TempDir()
	svc := newBulkService(t, dest, srv.URL+"/public/secure/downloads/bulkwhois")
	before := tempDirsMatching(t)

	summary, err := svc.Run(context.Background(), Options{APIKey: "secret"})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if !summary.BulkAttempted || summary.BulkError != nil {
		t.Fatalf("bulk outcome: attempted=%v err=%v", summary.BulkAttempted, summary.BulkError)
	}
	if hits != 1 {
		t.Errorf("bulk endpoint hit %d times, want 1", hits)
	}
	if gotKey != "secret" {
		t.Errorf("apikey query parameter = %q, want %q", gotKey, "secret")
	}

	got, err := os.ReadFile(filepath.Join(dest, "arin_db.txt"))
	if err != nil {
		t.Fatalf("arin_db.txt not produced: %v", err)
	}
	if string(got) != "X" {
		t.Errorf("arin_db.txt content = %q, want %q", got, "X")
	}

	// Temp artifacts are gone
	if after := tempDirsMatching(t); after != before {
		t.Errorf("bulk temp dirs left behind: %d before, %d after", before, after)
	}
	if _, err := os.Stat(filepath.Join(dest, bulkArchiveName)); !os.IsNotExist(err) {
		t.Error("bulk archive leaked into destination")
	}
}

func TestService_Run_NoKeySkipsBulk(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	dest := t.TempDir()
	svc := newBulkService(t, dest, srv.URL)

	summary, err := svc.Run(context.Background(), Options{APIKey: ""})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if summary.BulkAttempted {
		t.Error("bulk attempted without an API key")
	}
	if hits != 0 {
		t.Errorf("bulk endpoint hit %d times with empty key", hits)
	}
	if _, err := os.Stat(filepath.Join(dest, "arin_db.txt")); !os.IsNotExist(err) {
		t.Error("arin_db.txt created without an API key")
	}
}

func TestService_Run_SkipBulkOption(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	svc := newBulkService(t, t.TempDir(), srv.URL)

	summary, err := svc.Run(context.Background(), Options{APIKey: "secret", SkipBulk: true})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if summary.BulkAttempted || hits != 0 {
		t.Errorf("bulk ran despite SkipBulk: attempted=%v hits=%d", summary.BulkAttempted, hits)
	}
}

func TestService_Run_BulkRejectedKeyStillSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	dest := t.TempDir()
	svc := newBulkService(t, dest, srv.URL)
	before := tempDirsMatching(t)

	summary, err := svc.Run(context.Background(), Options{APIKey: "wrong"})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if !summary.BulkAttempted || summary.BulkError == nil {
		t.Error("rejected key not reflected in summary")
	}
	if _, err := os.Stat(filepath.Join(dest, "arin_db.txt")); !os.IsNotExist(err) {
		t.Error("arin_db.txt created despite rejected key")
	}
	if after := tempDirsMatching(t); after != before {
		t.Error("bulk temp dirs left behind after failure")
	}
}

func TestService_Run_BulkTransportErrorOmitsKey(t *testing.T) {
	// Closing the server first forces a dial failure, the error path
	// that carries the request URL rather than just a status.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	svc := newBulkService(t, t.TempDir(), srv.URL+"/public/secure/downloads/bulkwhois")

	summary, err := svc.Run(context.Background(), Options{APIKey: "sekrit-token"})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if summary.BulkError == nil {
		t.Fatal("transport failure not reflected in summary")
	}
	msg := summary.BulkError.Error()
	if strings.Contains(msg, "sekrit-token") || strings.Contains(msg, "apikey") {
		t.Errorf("BulkError leaks the API key: %v", summary.BulkError)
	}
}

func TestService_Run_BulkMissingEntryCleansUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(zipWith(t, "unexpected.txt", "not the dump"))
	}))
	defer srv.Close()

	dest := t.TempDir()
	svc := newBulkService(t, dest, srv.URL)
	before := tempDirsMatching(t)

	summary, err := svc.Run(context.Background(), Options{APIKey: "secret"})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if summary.BulkError == nil {
		t.Fatal("missing entry not reported")
	}
	if !errors.Is(summary.BulkError, domain.ErrEntryNotFound) {
		t.Errorf("BulkError = %v, want ErrEntryNotFound", summary.BulkError)
	}
	if after := tempDirsMatching(t); after != before {
		t.Error("bulk temp dirs left behind after extraction failure")
	}
}
