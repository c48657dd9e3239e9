package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"school_reviews/internal/domain"
)

/********** alias registry (single source of truth) **********/

// Older builds of the site stored reviews under different field names.
var reviewAliases = map[string][]string{
	"id":           {"id", "reviewId", "review_id"},
	"fullName":     {"fullName", "name", "author", "author.name"},
	"email":        {"email", "author.email"},
	"relationship": {"relationship", "relation", "role"},
	"review":       {"review", "text", "comment", "body"},
	"timestamp":    {"timestamp", "submittedAt", "createdAt"},
	"approvedAt":   {"approvedAt", "approved_at"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// firstAlias returns the first non-nil value for a named alias set.
func firstAlias(m map[string]any, key string) any {
	for _, p := range reviewAliases[key] {
		if v := lookupAny(m, p); v != nil {
			return v
		}
	}
	return nil
}

// aliasStr returns the first non-empty string for a named alias set.
func aliasStr(m map[string]any, key string) string {
	for _, p := range reviewAliases[key] {
		if s, ok := lookupAny(m, p).(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// aliasTime accepts ISO-8601 strings and epoch milliseconds.
func aliasTime(m map[string]any, key string) *time.Time {
	switch v := firstAlias(m, key).(type) {
	case string:
		if t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(v)); err == nil {
			t = t.UTC()
			return &t
		}
	case json.Number:
		if ms, err := v.Int64(); err == nil {
			t := time.UnixMilli(ms).UTC()
			return &t
		}
	}
	return nil
}

func aliasID(m map[string]any) (domain.ReviewID, error) {
	switch v := firstAlias(m, "id").(type) {
	case string:
		return domain.ReviewID(strings.TrimSpace(v)), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return "", fmt.Errorf("id %s: %w", v, domain.ErrNonIntegerID)
		}
		return domain.NewReviewID(n), nil
	}
	return "", nil
}

/********** review mapper **********/

func mapReview(in map[string]any, status domain.Status) (domain.Review, error) {
	id, err := aliasID(in)
	if err != nil {
		return domain.Review{}, err
	}
	rv := domain.Review{
		ID:           id,
		FullName:     aliasStr(in, "fullName"),
		Email:        aliasStr(in, "email"),
		Relationship: aliasStr(in, "relationship"),
		Text:         aliasStr(in, "review"),
		Status:       status,
	}
	if t := aliasTime(in, "timestamp"); t != nil {
		rv.Timestamp = *t
	}
	if status == domain.StatusApproved {
		rv.ApprovedAt = aliasTime(in, "approvedAt")
	}
	return rv, nil
}

func mapReviews(in []any, status domain.Status) ([]domain.Review, error) {
	out := make([]domain.Review, 0, len(in))
	for i, it := range in {
		m, ok := it.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s review #%d is not an object", status, i)
		}
		rv, err := mapReview(m, status)
		if err != nil {
			return nil, fmt.Errorf("%s review #%d: %w", status, i, err)
		}
		out = append(out, rv)
	}
	return out, nil
}

/********** import document **********/

type importDoc struct {
	// nil means the list was absent from the document
	pending, approved []domain.Review
}

func parseImport(raw []byte) (importDoc, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var top map[string]any
	if err := dec.Decode(&top); err != nil {
		log.Warn().Err(err).Msg("import: undecodable document")
		return importDoc{}, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	var doc importDoc
	lists := []struct {
		key    string
		status domain.Status
		dst    *[]domain.Review
	}{
		{"pendingReviews", domain.StatusPending, &doc.pending},
		{"approvedReviews", domain.StatusApproved, &doc.approved},
	}
	for _, l := range lists {
		v, ok := top[l.key]
		if !ok || v == nil {
			continue
		}
		arr, ok := v.([]any)
		if !ok {
			return importDoc{}, fmt.Errorf("%w: %s must be an array", domain.ErrValidation, l.key)
		}
		rs, err := mapReviews(arr, l.status)
		if err != nil {
			return importDoc{}, fmt.Errorf("%w: %w", domain.ErrValidation, err)
		}
		*l.dst = rs
	}
	if doc.pending == nil && doc.approved == nil {
		return importDoc{}, fmt.Errorf("%w: %w", domain.ErrValidation, errEmptyImport)
	}
	return doc, nil
}
