package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"school_reviews/internal/adapters/carousel"
	httpserver "school_reviews/internal/adapters/http_server"
	"school_reviews/internal/app"
	"school_reviews/internal/storage/memory"
)

func startAPI(t *testing.T) (*httptest.Server, *app.Workflow) {
	t.Helper()
	wf := app.NewWorkflow(app.NewStore(memory.New(0)))
	deck, err := carousel.New(context.Background(), wf)
	if err != nil {
		t.Fatalf("carousel: %v", err)
	}
	t.Cleanup(deck.Close)
	srv := httpserver.New(nil)
	srv.MountHandlers(&httpserver.Handlers{WF: wf, Carousel: deck})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts, wf
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestApproveAndStats(t *testing.T) {
	ts, wf := startAPI(t)
	ctx := context.Background()
	for _, name := range []string{"Akosua Addo", "Yaw Darko"} {
		if _, err := wf.Submit(ctx, app.SubmitInput{FullName: name, Email: "p@example.com", Relationship: "Parent", Review: "Very supportive community."}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	out, err := run(t, "--addr", ts.URL, "approve", "4", "5", "--workers", "2")
	if err != nil {
		t.Fatalf("approve: %v\n%s", err, out)
	}
	if !strings.Contains(out, "approved 4") || !strings.Contains(out, "approved 5") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	out, err = run(t, "--addr", ts.URL, "stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out, "pending: 0  approved: 5  total: 5") {
		t.Fatalf("unexpected stats output:\n%s", out)
	}

	if _, err := run(t, "--addr", ts.URL, "reject", "4"); err == nil {
		t.Fatalf("rejecting an approved review should fail")
	}
}

func TestExportImportClear(t *testing.T) {
	ts, _ := startAPI(t)
	file := filepath.Join(t.TempDir(), "backup.json")

	if out, err := run(t, "--addr", ts.URL, "export", "-o", file); err != nil {
		t.Fatalf("export: %v\n%s", err, out)
	}
	raw, err := os.ReadFile(file)
	if err != nil || !bytes.Contains(raw, []byte(`"approvedReviews"`)) {
		t.Fatalf("export file: %v\n%s", err, raw)
	}

	if _, err := run(t, "--addr", ts.URL, "clear"); err == nil {
		t.Fatalf("clear without --yes must be refused")
	}
	if out, err := run(t, "--addr", ts.URL, "clear", "--yes"); err != nil {
		t.Fatalf("clear: %v\n%s", err, out)
	}
	clearYes = false

	out, err := run(t, "--addr", ts.URL, "import", file)
	if err != nil {
		t.Fatalf("import: %v\n%s", err, out)
	}
	if !strings.Contains(out, "imported 0 pending and 3 approved reviews") {
		t.Fatalf("unexpected import output:\n%s", out)
	}
}

func TestModerate_TimeoutReportsEveryID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer ts.Close()
	t.Cleanup(func() { timeout = 30 * time.Second; workers = 2 })

	_, err := run(t, "--addr", ts.URL, "--timeout", "200ms", "approve", "4", "5", "--workers", "1")
	if err == nil {
		t.Fatalf("expected an error when the server never answers")
	}
	for _, want := range []string{"approve 4", "approve 5"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error does not mention %q: %v", want, err)
		}
	}
}
