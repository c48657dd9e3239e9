package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"school_reviews/internal/app"
	"school_reviews/internal/domain"
)

func TestStats_NewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var sub []domain.Review
	for _, n := range []string{"A", "B", "C"} {
		rv, err := f.wf.Submit(ctx, validInput(n))
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		sub = append(sub, rv)
		f.clock.Advance(time.Minute)
	}
	if _, err := f.wf.Approve(ctx, sub[0].ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	st, err := f.wf.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.PendingCount != 2 || st.ApprovedCount != 4 || st.TotalCount != 6 {
		t.Fatalf("unexpected counts: %+v", st)
	}
	if want := []domain.ReviewID{sub[2].ID, sub[1].ID}; !cmp.Equal(want, ids(st.Pending)) {
		t.Fatalf("pending order = %v, want %v", ids(st.Pending), want)
	}
	// ordered by approvedAt: the fresh approval first, then seeds newest first
	want := []domain.ReviewID{sub[0].ID, "review_default_3", "review_default_2", "review_default_1"}
	if !cmp.Equal(want, ids(st.Approved)) {
		t.Fatalf("approved order = %v, want %v", ids(st.Approved), want)
	}

	// Stats is read-only: storage order is still insertion order
	pending, _ := f.lists(t)
	if want := []domain.ReviewID{sub[1].ID, sub[2].ID}; !cmp.Equal(want, ids(pending)) {
		t.Fatalf("stored pending order changed: %v", ids(pending))
	}
}

func TestGetByID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rv, err := f.wf.Submit(ctx, validInput("A"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	got, err := f.wf.GetByID(ctx, rv.ID)
	if err != nil || got.Status != domain.StatusPending {
		t.Fatalf("pending lookup: %+v %v", got, err)
	}
	got, err = f.wf.GetByID(ctx, "review_default_2")
	if err != nil || got.FullName != "Dr. Kwame Boateng" {
		t.Fatalf("approved lookup: %+v %v", got, err)
	}
	if _, err := f.wf.GetByID(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.wf.Submit(ctx, validInput("A")); err != nil {
		t.Fatalf("submit: %v", err)
	}

	doc, err := f.wf.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if doc.ExportedBy != app.ExportedBy || !doc.ExportDate.Equal(f.clock.Now()) {
		t.Fatalf("unexpected header: %+v", doc)
	}
	if doc.Statistics != (domain.ExportStatistics{Pending: 1, Approved: 3, Total: 4}) {
		t.Fatalf("unexpected statistics: %+v", doc.Statistics)
	}

	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var generic map[string]any
	if err := json.Unmarshal(b, &generic); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range []string{"exportDate", "exportedBy", "statistics", "pendingReviews", "approvedReviews"} {
		if _, ok := generic[k]; !ok {
			t.Fatalf("export document missing %q: %s", k, b)
		}
	}

	if got := app.ExportFilename(time.Date(2025, 3, 3, 23, 59, 0, 0, time.UTC)); got != "srs_reviews_2025-03-03.json" {
		t.Fatalf("unexpected filename %q", got)
	}
}

func TestImport_RestoresExport(t *testing.T) {
	src := newFixture(t)
	ctx := context.Background()
	rv, err := src.wf.Submit(ctx, validInput("A"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := src.wf.Approve(ctx, rv.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := src.wf.Submit(ctx, validInput("B")); err != nil {
		t.Fatalf("submit: %v", err)
	}
	doc, err := src.wf.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	b, _ := json.Marshal(doc)

	dst := newFixture(t)
	var notified int
	dst.wf.Subscribe(func(a []domain.Review) error { notified = len(a); return nil })

	st, err := dst.wf.Import(ctx, b)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if st != (domain.ExportStatistics{Pending: 1, Approved: 4, Total: 5}) {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if notified != 4 {
		t.Fatalf("observers not notified with imported approved list, got %d", notified)
	}

	want, _ := src.wf.Stats(ctx)
	got, _ := dst.wf.Stats(ctx)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("imported state differs (-want +got):\n%s", diff)
	}
}

func TestImport_LegacyRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	legacy := `{
	  "pendingReviews": [
	    {"name": "Kojo", "email": "kojo@example.com", "relationship": "Parent", "text": "Amazing teachers all round", "submittedAt": "2024-05-01T08:00:00.000Z"},
	    {"id": 1717000000000, "fullName": "Esi", "email": "esi@example.com", "relationship": "Alumna", "review": "A very caring community", "timestamp": 1717000000000}
	  ]
	}`

	st, err := f.wf.Import(ctx, []byte(legacy))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if st.Pending != 2 || st.Approved != 3 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	pending, _ := f.lists(t)
	if pending[0].FullName != "Kojo" || pending[0].Text != "Amazing teachers all round" || pending[0].Status != domain.StatusPending {
		t.Fatalf("aliases not applied: %+v", pending[0])
	}
	if !pending[0].Timestamp.Equal(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("submittedAt not mapped: %v", pending[0].Timestamp)
	}
	if pending[0].ID != "1717000000001" {
		t.Fatalf("missing id should be assigned after the max, got %s", pending[0].ID)
	}
	if !pending[1].Timestamp.Equal(time.UnixMilli(1717000000000)) {
		t.Fatalf("epoch millis not mapped: %v", pending[1].Timestamp)
	}
	if got := f.raw(t, app.ApprovedKey); got != "<absent>" {
		t.Fatalf("approved absent from document must not be written, got %s", got)
	}
}

func TestImport_Rejects(t *testing.T) {
	cases := map[string]string{
		"not json":      `{`,
		"no lists":      `{"exportDate":"2025-01-01T00:00:00Z"}`,
		"not an array":  `{"pendingReviews":{"id":1}}`,
		"duplicate ids": `{"pendingReviews":[{"id":3}],"approvedReviews":[{"id":3}]}`,
		"fractional id": `{"pendingReviews":[{"id":12.5}]}`,
		"id past limit": `{"pendingReviews":[{"id":9223372036854775807}]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			if _, err := f.wf.Import(context.Background(), []byte(doc)); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if f.raw(t, app.PendingKey) != "<absent>" || f.raw(t, app.ApprovedKey) != "<absent>" {
				t.Fatalf("rejected import wrote data")
			}
		})
	}
}

func TestClear_FallsBackToSeed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rv, err := f.wf.Submit(ctx, validInput("A"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.wf.Approve(ctx, rv.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	var notified []domain.Review
	f.wf.Subscribe(func(a []domain.Review) error { notified = a; return nil })
	if err := f.wf.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	pending, approved := f.lists(t)
	if len(pending) != 0 || len(approved) != 3 || len(notified) != 3 {
		t.Fatalf("expected seed state after clear, got %d pending / %d approved / %d notified", len(pending), len(approved), len(notified))
	}
}
