package memory

import (
	"context"
	"sort"
	"time"

	"github.com/escrow-ledger/internal/domain/dispute"
	"github.com/escrow-ledger/internal/domain/escrow"
	"github.com/escrow-ledger/internal/domain/job"
	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/escrow-ledger/internal/domain/user"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EscrowRepository is the in-memory escrow.Repository
type EscrowRepository struct{ s *Store }

func (r *EscrowRepository) WithTx(pgx.Tx) escrow.Repository { return r }

func (r *EscrowRepository) Create(_ context.Context, e *escrow.Escrow) (err error) {
	r.s.write(func(d *state) {
		for _, existing := range d.escrows {
			if existing.JobID == e.JobID {
				err = escrow.ErrDuplicateEscrow{JobID: e.JobID}
				return
			}
		}
		d.escrows[e.ID] = *e
	})
	return err
}

func (r *EscrowRepository) GetByID(_ context.Context, id uuid.UUID) (*escrow.Escrow, error) {
	var found *escrow.Escrow
	r.s.read(func(d *state) {
		if e, ok := d.escrows[id]; ok {
			found = &e
		}
	})
	if found == nil {
		return nil, escrow.ErrEscrowNotFound(id)
	}
	return found, nil
}

func (r *EscrowRepository) GetByJob(_ context.Context, jobID uuid.UUID) (*escrow.Escrow, error) {
	var found *escrow.Escrow
	r.s.read(func(d *state) {
		for _, e := range d.escrows {
			if e.JobID == jobID {
				e := e
				found = &e
				return
			}
		}
	})
	if found == nil {
		return nil, escrow.ErrEscrowNotFound(jobID)
	}
	return found, nil
}

func (r *EscrowRepository) Update(_ context.Context, e *escrow.Escrow) (err error) {
	r.s.write(func(d *state) {
		stored, ok := d.escrows[e.ID]
		if !ok {
			err = escrow.ErrEscrowNotFound(e.ID)
			return
		}
		if stored.Version != e.Version {
			err = escrow.ErrStaleEscrow{EscrowID: e.ID, Version: e.Version}
			return
		}
		e.Version++
		d.escrows[e.ID] = *e
	})
	return err
}

// DisputeRepository is the in-memory dispute.Repository
type DisputeRepository struct{ s *Store }

func (r *DisputeRepository) WithTx(pgx.Tx) dispute.Repository { return r }

func (r *DisputeRepository) Create(_ context.Context, dp *dispute.Dispute) error {
	r.s.write(func(d *state) { d.disputes[dp.ID] = *dp })
	return nil
}

func (r *DisputeRepository) GetByID(_ context.Context, id uuid.UUID) (*dispute.Dispute, error) {
	var found *dispute.Dispute
	r.s.read(func(d *state) {
		if dp, ok := d.disputes[id]; ok {
			found = &dp
		}
	})
	if found == nil {
		return nil, dispute.ErrDisputeNotFound(id)
	}
	return found, nil
}

func (r *DisputeRepository) LockByID(ctx context.Context, id uuid.UUID) (*dispute.Dispute, error) {
	return r.GetByID(ctx, id)
}

func (r *DisputeRepository) Update(_ context.Context, dp *dispute.Dispute) (err error) {
	r.s.write(func(d *state) {
		if _, ok := d.disputes[dp.ID]; !ok {
			err = dispute.ErrDisputeNotFound(dp.ID)
			return
		}
		d.disputes[dp.ID] = *dp
	})
	return err
}

func (r *DisputeRepository) OpenCountsByVerifier(_ context.Context, userIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	wanted := make(map[uuid.UUID]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}
	counts := make(map[uuid.UUID]int64)
	r.s.read(func(d *state) {
		for _, dp := range d.disputes {
			if dp.AssignedVerifier != nil && wanted[*dp.AssignedVerifier] && dp.Status != dispute.StatusResolved {
				counts[*dp.AssignedVerifier]++
			}
		}
	})
	return counts, nil
}

func (r *DisputeRepository) ListPendingForVerifier(_ context.Context, verifierID uuid.UUID) ([]*dispute.Dispute, error) {
	var pending []*dispute.Dispute
	r.s.read(func(d *state) {
		for _, dp := range d.disputes {
			if dp.IsAssignedTo(verifierID) && (dp.Status == dispute.StatusUnderReview || dp.Status == dispute.StatusEscalated) {
				dp := dp
				pending = append(pending, &dp)
			}
		}
	})
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	return pending, nil
}

// JobRepository is the in-memory job.Repository
type JobRepository struct{ s *Store }

func (r *JobRepository) WithTx(pgx.Tx) job.Repository { return r }

func (r *JobRepository) GetByID(_ context.Context, id uuid.UUID) (*job.Job, error) {
	var found *job.Job
	r.s.read(func(d *state) {
		if j, ok := d.jobs[id]; ok {
			found = &j
		}
	})
	if found == nil {
		return nil, job.ErrJobNotFound(id)
	}
	return found, nil
}

func (r *JobRepository) UpdateStatus(_ context.Context, id uuid.UUID, status job.Status) (err error) {
	r.s.write(func(d *state) {
		j, ok := d.jobs[id]
		if !ok {
			err = job.ErrJobNotFound(id)
			return
		}
		j.Status = status
		j.UpdatedAt = time.Now().UTC()
		d.jobs[id] = j
	})
	return err
}

// UserRepository is the in-memory user.Repository
type UserRepository struct{ s *Store }

func (r *UserRepository) WithTx(pgx.Tx) user.Repository { return r }

func (r *UserRepository) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	var found *user.User
	r.s.read(func(d *state) {
		for _, u := range d.users {
			if u.ID == id {
				u := u
				found = &u
				return
			}
		}
	})
	if found == nil {
		return nil, user.ErrUserNotFound(id)
	}
	return found, nil
}

func (r *UserRepository) ListByRole(_ context.Context, role shared.Role) ([]*user.User, error) {
	var users []*user.User
	r.s.read(func(d *state) {
		for _, u := range d.users {
			if u.Role == role && u.Active {
				u := u
				users = append(users, &u)
			}
		}
	})
	return users, nil
}

func (r *UserRepository) AdjustTrustScore(_ context.Context, id uuid.UUID, delta int) (err error) {
	r.s.write(func(d *state) {
		for i := range d.users {
			if d.users[i].ID == id {
				d.users[i].TrustScore += delta
				if d.users[i].TrustScore < 0 {
					d.users[i].TrustScore = 0
				}
				return
			}
		}
		err = user.ErrUserNotFound(id)
	})
	return err
}
