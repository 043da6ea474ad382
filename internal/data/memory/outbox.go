package memory

import (
	"context"
	"time"

	"github.com/escrow-ledger/internal/domain/outbox"
	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OutboxRepository is the in-memory outbox.Repository
type OutboxRepository struct{ s *Store }

func (r *OutboxRepository) WithTx(pgx.Tx) outbox.Repository { return r }

func (r *OutboxRepository) Create(_ context.Context, m *outbox.Message) (err error) {
	r.s.write(func(d *state) {
		for _, existing := range d.outbox {
			if existing.EventID == m.EventID {
				err = outbox.ErrDuplicateMessage{EventID: m.EventID}
				return
			}
		}
		d.nextOutboxID++
		m.ID = d.nextOutboxID
		d.outbox = append(d.outbox, *m)
	})
	return err
}

func (r *OutboxRepository) GetPending(_ context.Context, limit int) ([]*outbox.Message, error) {
	var pending []*outbox.Message
	r.s.read(func(d *state) {
		for _, m := range d.outbox {
			if m.Status != shared.OutboxStatusPending {
				continue
			}
			m := m
			pending = append(pending, &m)
			if limit > 0 && len(pending) == limit {
				return
			}
		}
	})
	return pending, nil
}

func (r *OutboxRepository) update(id int64, fn func(m *outbox.Message)) (err error) {
	r.s.write(func(d *state) {
		for i := range d.outbox {
			if d.outbox[i].ID == id {
				fn(&d.outbox[i])
				return
			}
		}
		err = outbox.ErrMessageNotFound{ID: id}
	})
	return err
}

func (r *OutboxRepository) UpdateStatus(_ context.Context, id int64, status shared.OutboxStatus) error {
	return r.update(id, func(m *outbox.Message) {
		now := time.Now().UTC()
		m.Status = status
		m.LastAttemptAt = &now
	})
}

func (r *OutboxRepository) IncrementAttempts(_ context.Context, id int64) error {
	return r.update(id, func(m *outbox.Message) { m.IncrementAttempts() })
}

func (r *OutboxRepository) Delete(_ context.Context, id int64) (err error) {
	r.s.write(func(d *state) {
		for i := range d.outbox {
			if d.outbox[i].ID == id {
				d.outbox = append(d.outbox[:i], d.outbox[i+1:]...)
				return
			}
		}
		err = outbox.ErrMessageNotFound{ID: id}
	})
	return err
}

func (r *OutboxRepository) GetByEventID(_ context.Context, eventID uuid.UUID) (*outbox.Message, error) {
	var found *outbox.Message
	r.s.read(func(d *state) {
		for _, m := range d.outbox {
			if m.EventID == eventID {
				m := m
				found = &m
				return
			}
		}
	})
	if found == nil {
		return nil, outbox.ErrMessageNotFound{}
	}
	return found, nil
}

// EventTypes lists every event type written so far, oldest first
func (s *Store) EventTypes() []string {
	var types []string
	s.read(func(d *state) {
		for _, m := range d.outbox {
			types = append(types, m.EventType)
		}
	})
	return types
}
