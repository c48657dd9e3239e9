package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"school_reviews/internal/adapters/observability"
	"school_reviews/internal/domain"
)

// Workflow is the moderation state machine: submit creates a pending review,
// approve moves it to approved, reject deletes it.
type Workflow struct {
	store    *Store
	validate *validator.Validate
	now      func() time.Time

	// mu serialises read-modify-write cycles on the two collections.
	mu sync.Mutex
	// seq numbers committed mutations; guarded by mu.
	seq uint64

	obsMu     sync.Mutex
	observers []*observerEntry
	nextObs   int
}

type observerEntry struct {
	id int
	fn domain.Observer

	// mu orders deliveries to this observer; last is the newest seq delivered.
	mu   sync.Mutex
	last uint64
}

// MaxReviewID is the largest numeric id handed out or accepted on import.
// It is the largest integer a browser can hold exactly.
const MaxReviewID = 1<<53 - 1

// commit numbers a mutation that has just been written. Callers hold mu.
func (w *Workflow) commit() uint64 {
	w.seq++
	return w.seq
}

func NewWorkflow(s *Store) *Workflow {
	return &Workflow{store: s, validate: newValidator(), now: func() time.Time { return time.Now().UTC() }}
}

// WithClock replaces the time source; used by tests and the auto-approver.
func (w *Workflow) WithClock(now func() time.Time) *Workflow {
	w.now = now
	return w
}

func (w *Workflow) Submit(ctx context.Context, in SubmitInput) (domain.Review, error) {
	in = in.trimmed()
	if err := validate(w.validate, in); err != nil {
		observability.ObserveReview("invalid")
		return domain.Review{}, err
	}

	w.mu.Lock()
	pending, approved, err := w.loadBoth(ctx)
	if err != nil {
		w.mu.Unlock()
		return domain.Review{}, err
	}

	id, err := nextID(pending, approved)
	if err != nil {
		w.mu.Unlock()
		log.Error().Err(err).Msg("submit: no review id left")
		return domain.Review{}, err
	}
	rv := domain.Review{
		ID:           id,
		FullName:     in.FullName,
		Email:        in.Email,
		Relationship: in.Relationship,
		Text:         in.Review,
		Timestamp:    w.now(),
		Status:       domain.StatusPending,
	}
	if err := w.store.Save(ctx, Pending, append(pending, rv)); err != nil {
		w.mu.Unlock()
		return domain.Review{}, err
	}
	seq := w.commit()
	w.mu.Unlock()

	log.Info().Str("id", string(rv.ID)).Str("relationship", rv.Relationship).Msg("review submitted for approval")
	observability.ObserveReview("submitted")
	w.notify(seq, approved)
	return rv, nil
}

func (w *Workflow) Approve(ctx context.Context, id domain.ReviewID) (domain.Review, error) {
	w.mu.Lock()
	pending, approved, err := w.loadBoth(ctx)
	if err != nil {
		w.mu.Unlock()
		return domain.Review{}, err
	}
	i := indexOf(pending, id)
	if i < 0 {
		w.mu.Unlock()
		log.Warn().Str("id", string(id)).Msg("approve: review not found in pending")
		return domain.Review{}, fmt.Errorf("approve %s: %w", id, domain.ErrNotFound)
	}

	rv := pending[i]
	at := w.now()
	rv.Status = domain.StatusApproved
	rv.ApprovedAt = &at
	nextApproved := append(slices.Clone(approved), rv)
	nextPending := slices.Delete(slices.Clone(pending), i, i+1)

	prev, err := w.store.snapshot(ctx, Approved)
	if err != nil {
		w.mu.Unlock()
		return domain.Review{}, err
	}
	if err := w.store.Save(ctx, Approved, nextApproved); err != nil {
		w.mu.Unlock()
		return domain.Review{}, err
	}
	if err := w.store.Save(ctx, Pending, nextPending); err != nil {
		// keep the review in exactly one collection
		if rerr := w.store.restore(ctx, Approved, prev); rerr != nil {
			log.Error().Err(rerr).Str("id", string(id)).Msg("approve: rollback of approved collection failed")
		}
		w.mu.Unlock()
		return domain.Review{}, err
	}
	seq := w.commit()
	w.mu.Unlock()

	log.Info().Str("id", string(id)).Msg("review approved")
	observability.ObserveReview("approved")
	w.notify(seq, nextApproved)
	return rv, nil
}

func (w *Workflow) Reject(ctx context.Context, id domain.ReviewID) (domain.Review, error) {
	w.mu.Lock()
	pending, approved, err := w.loadBoth(ctx)
	if err != nil {
		w.mu.Unlock()
		return domain.Review{}, err
	}
	i := indexOf(pending, id)
	if i < 0 {
		w.mu.Unlock()
		log.Warn().Str("id", string(id)).Msg("reject: review not found in pending")
		return domain.Review{}, fmt.Errorf("reject %s: %w", id, domain.ErrNotFound)
	}

	rv := pending[i]
	if err := w.store.Save(ctx, Pending, slices.Delete(slices.Clone(pending), i, i+1)); err != nil {
		w.mu.Unlock()
		return domain.Review{}, err
	}
	seq := w.commit()
	w.mu.Unlock()

	rv.Status = domain.StatusRejected
	log.Info().Str("id", string(id)).Str("email", rv.Email).Msg("review rejected")
	observability.ObserveReview("rejected")
	w.notify(seq, approved)
	return rv, nil
}

// Import restores collections from an export document. Only the lists present
// in the document are written.
func (w *Workflow) Import(ctx context.Context, raw []byte) (domain.ExportStatistics, error) {
	doc, err := parseImport(raw)
	if err != nil {
		return domain.ExportStatistics{}, err
	}

	w.mu.Lock()
	pending, approved, err := w.loadBoth(ctx)
	if err != nil {
		w.mu.Unlock()
		return domain.ExportStatistics{}, err
	}
	if doc.pending != nil {
		pending = doc.pending
	}
	if doc.approved != nil {
		approved = doc.approved
	}
	if err := assignMissingIDs(pending, approved); err != nil {
		w.mu.Unlock()
		return domain.ExportStatistics{}, err
	}

	prev, err := w.store.snapshot(ctx, Approved)
	if err != nil {
		w.mu.Unlock()
		return domain.ExportStatistics{}, err
	}
	if doc.approved != nil {
		if err := w.store.Save(ctx, Approved, approved); err != nil {
			w.mu.Unlock()
			return domain.ExportStatistics{}, err
		}
	}
	if doc.pending != nil {
		if err := w.store.Save(ctx, Pending, pending); err != nil {
			if doc.approved != nil {
				if rerr := w.store.restore(ctx, Approved, prev); rerr != nil {
					log.Error().Err(rerr).Msg("import: rollback of approved collection failed")
				}
			}
			w.mu.Unlock()
			return domain.ExportStatistics{}, err
		}
	}
	seq := w.commit()
	w.mu.Unlock()

	st := domain.ExportStatistics{Pending: len(pending), Approved: len(approved), Total: len(pending) + len(approved)}
	log.Info().Int("pending", st.Pending).Int("approved", st.Approved).Msg("reviews imported")
	observability.ObserveReview("imported")
	w.notify(seq, approved)
	return st, nil
}

// Clear deletes both collections; approved falls back to the seed set.
func (w *Workflow) Clear(ctx context.Context) error {
	w.mu.Lock()
	if err := w.store.Clear(ctx); err != nil {
		w.mu.Unlock()
		return err
	}
	seq := w.commit()
	w.mu.Unlock()
	log.Warn().Msg("all review data cleared")
	observability.ObserveReview("cleared")
	w.notify(seq, domain.SeedReviews())
	return nil
}

// Subscribe registers an observer called after every successful mutation,
// in registration order. Deliveries to one observer are serialised and never
// go back in time: a snapshot older than one already delivered is skipped.
// An observer must not call a Workflow mutation synchronously.
// The returned func removes it.
func (w *Workflow) Subscribe(fn domain.Observer) (unsubscribe func()) {
	w.obsMu.Lock()
	defer w.obsMu.Unlock()
	w.nextObs++
	id := w.nextObs
	w.observers = append(w.observers, &observerEntry{id: id, fn: fn})
	return func() {
		w.obsMu.Lock()
		defer w.obsMu.Unlock()
		w.observers = slices.DeleteFunc(w.observers, func(e *observerEntry) bool { return e.id == id })
	}
}

// notify delivers the approved snapshot committed as seq.
func (w *Workflow) notify(seq uint64, approved []domain.Review) {
	w.obsMu.Lock()
	obs := slices.Clone(w.observers)
	w.obsMu.Unlock()

	for _, o := range obs {
		o.deliver(seq, approved)
	}
}

func (o *observerEntry) deliver(seq uint64, approved []domain.Review) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if seq <= o.last {
		// a newer mutation got here first
		return
	}
	o.last = seq
	callObserver(o, slices.Clone(approved))
}

// callObserver isolates one observer: a returned error or a panic is logged
// and does not stop the others.
func callObserver(o *observerEntry, approved []domain.Review) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Int("observer", o.id).Interface("panic", r).Msg("review observer panicked")
		}
	}()
	if err := o.fn(approved); err != nil {
		log.Error().Err(err).Int("observer", o.id).Msg("review observer failed")
	}
}

func (w *Workflow) loadBoth(ctx context.Context) (pending, approved []domain.Review, err error) {
	if pending, err = w.store.ListPending(ctx); err != nil {
		return nil, nil, err
	}
	if approved, err = w.store.ListApproved(ctx); err != nil {
		return nil, nil, err
	}
	return pending, approved, nil
}

// nextID is one past the largest numeric id across both collections, or 1.
func nextID(collections ...[]domain.Review) (domain.ReviewID, error) {
	var max int64
	for _, rs := range collections {
		for _, r := range rs {
			if n := r.ID.Numeric(); n > max {
				max = n
			}
		}
	}
	if max >= MaxReviewID {
		return "", fmt.Errorf("next id after %d: %w: %w", max, domain.ErrStorage, errIDSpaceExhausted)
	}
	return domain.NewReviewID(max + 1), nil
}

func indexOf(rs []domain.Review, id domain.ReviewID) int {
	return slices.IndexFunc(rs, func(r domain.Review) bool { return r.ID == id })
}

// assignMissingIDs fills blank ids and rejects ids used more than once or
// beyond MaxReviewID.
func assignMissingIDs(pending, approved []domain.Review) error {
	seen := map[domain.ReviewID]bool{}
	for _, rs := range [][]domain.Review{pending, approved} {
		for _, r := range rs {
			if r.ID == "" {
				continue
			}
			if r.ID.Numeric() > MaxReviewID {
				return &domain.ValidationError{Fields: map[string]string{"id": fmt.Sprintf("id %s is larger than %d", r.ID, int64(MaxReviewID))}}
			}
			if seen[r.ID] {
				return &domain.ValidationError{Fields: map[string]string{"id": fmt.Sprintf("duplicate id %s", r.ID)}}
			}
			seen[r.ID] = true
		}
	}
	for _, rs := range [][]domain.Review{pending, approved} {
		for i := range rs {
			if rs[i].ID == "" {
				id, err := nextID(pending, approved)
				if err != nil {
					return err
				}
				rs[i].ID = id
			}
		}
	}
	return nil
}

var (
	errEmptyImport      = errors.New("import document has neither pendingReviews nor approvedReviews")
	errIDSpaceExhausted = errors.New("review id space exhausted")
)
