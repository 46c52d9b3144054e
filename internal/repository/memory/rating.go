package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type ratingRepository struct {
	*db
}

func (r *ratingRepository) Create(_ context.Context, rt *model.Rating) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.ratings {
		if existing.AppointmentID == rt.AppointmentID && existing.UserID == rt.UserID {
			return repository.ErrDuplicate
		}
	}
	rt.ID = uuid.Nil
	r.stamp(&rt.Base)
	c := *rt
	r.ratings[rt.ID] = &c
	return nil
}

func (r *ratingRepository) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]*model.Rating, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*model.Rating{}
	for _, rt := range r.ratings {
		if rt.DoctorID == doctorID {
			c := *rt
			out = append(out, &c)
		}
	}
	byCreated(out, func(rt *model.Rating) time.Time { return rt.CreatedAt }, true)
	return out, nil
}

type resetRepository struct {
	*db
}

func (r *resetRepository) Replace(_ context.Context, t *model.PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.resetTokens {
		if existing.Email == t.Email {
			delete(r.resetTokens, id)
		}
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	c := *t
	r.resetTokens[t.ID] = &c
	return nil
}

func (r *resetRepository) Find(_ context.Context, email, token string, now time.Time) (*model.PasswordResetToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.resetTokens {
		if t.Email == email && t.Token == token && !t.Expired(now) {
			c := *t
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *resetRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.resetTokens, id)
	return nil
}

func (r *resetRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, t := range r.resetTokens {
		if t.Expired(now) {
			delete(r.resetTokens, id)
			n++
		}
	}
	return n, nil
}

type outboxRepository struct {
	*db
}

func (r *outboxRepository) Create(_ context.Context, e *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	e.Status = model.OutboxStatusPending
	c := *e
	r.outbox[e.ID] = &c
	return nil
}

func (r *outboxRepository) GetPendingEvents(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*model.OutboxEvent{}
	for _, e := range r.outbox {
		if e.Status == model.OutboxStatusPending {
			c := *e
			out = append(out, &c)
		}
	}
	byCreated(out, func(e *model.OutboxEvent) time.Time { return e.CreatedAt }, false)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *outboxRepository) UpdateStatus(_ context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.outbox[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now()
	e.Status = status
	e.ErrorMessage = errMsg
	e.UpdatedAt = now
	switch status {
	case model.OutboxStatusProcessed:
		e.ProcessedAt = &now
	case model.OutboxStatusFailed:
		e.RetryCount++
	}
	return nil
}

func (r *outboxRepository) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, e := range r.outbox {
		if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			delete(r.outbox, id)
			n++
		}
	}
	return n, nil
}
