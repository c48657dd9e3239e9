package app

import (
	"context"
	"fmt"
	"slices"
	"time"

	"school_reviews/internal/domain"
)

// ExportedBy is stamped on every export document.
const ExportedBy = "Salve Regina School Admin"

// ListApproved is what the public carousel shows.
func (w *Workflow) ListApproved(ctx context.Context) ([]domain.Review, error) {
	return w.store.ListApproved(ctx)
}

func (w *Workflow) ListPending(ctx context.Context) ([]domain.Review, error) {
	return w.store.ListPending(ctx)
}

// Stats is the admin projection: counts plus both lists, newest first.
func (w *Workflow) Stats(ctx context.Context) (domain.Stats, error) {
	pending, approved, err := w.loadBoth(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	slices.SortStableFunc(pending, func(a, b domain.Review) int { return b.Timestamp.Compare(a.Timestamp) })
	slices.SortStableFunc(approved, func(a, b domain.Review) int { return b.SortTime().Compare(a.SortTime()) })
	return domain.Stats{
		PendingCount:  len(pending),
		ApprovedCount: len(approved),
		TotalCount:    len(pending) + len(approved),
		Pending:       pending,
		Approved:      approved,
	}, nil
}

// GetByID looks in pending first, then approved.
func (w *Workflow) GetByID(ctx context.Context, id domain.ReviewID) (domain.Review, error) {
	pending, approved, err := w.loadBoth(ctx)
	if err != nil {
		return domain.Review{}, err
	}
	for _, rs := range [][]domain.Review{pending, approved} {
		if i := indexOf(rs, id); i >= 0 {
			return rs[i], nil
		}
	}
	return domain.Review{}, fmt.Errorf("get %s: %w", id, domain.ErrNotFound)
}

func (w *Workflow) Export(ctx context.Context) (domain.ExportDocument, error) {
	st, err := w.Stats(ctx)
	if err != nil {
		return domain.ExportDocument{}, err
	}
	return domain.ExportDocument{
		ExportDate: w.now(),
		ExportedBy: ExportedBy,
		Statistics: domain.ExportStatistics{
			Pending:  st.PendingCount,
			Approved: st.ApprovedCount,
			Total:    st.TotalCount,
		},
		PendingReviews:  st.Pending,
		ApprovedReviews: st.Approved,
	}, nil
}

// ExportFilename is the dated download name for an export taken at t.
func ExportFilename(t time.Time) string {
	return "srs_reviews_" + t.UTC().Format(time.DateOnly) + ".json"
}
