package membership

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Accounts is the account repository
type Accounts interface {
	repository.Repository[*Account]

	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)

	MarkEmailVerified(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkEmailVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error

	UpdateEmail(ctx context.Context, id uuid.UUID, email string) error
	UpdateEmailTx(ctx context.Context, tx bun.IDB, id uuid.UUID, email string) error

	SetPasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error
	SetPasswordHashTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error

	OptedIntoNewPost(ctx context.Context) ([]*Account, error)
}

type accounts struct {
	repository.Repository[*Account]
	db *bun.DB
}

var (
	_ Accounts                        = (*accounts)(nil)
	_ repository.Repository[*Account] = (*accounts)(nil)
)

func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &accounts{
		Repository: repo,
		db:         db,
	}
}

func (a *accounts) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *accounts) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	account := &Account{}
	err := tx.NewSelect().
		Model(account).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

func (a *accounts) MarkEmailVerified(ctx context.Context, id uuid.UUID, at time.Time) error {
	return a.MarkEmailVerifiedTx(ctx, a.db, id, at)
}

func (a *accounts) MarkEmailVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error {
	res, err := tx.NewUpdate().
		Model((*Account)(nil)).
		Set("email_verified_at = ?", at).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// UpdateEmail changes the address and clears the verification timestamp:
// a new address always needs a fresh confirmation.
func (a *accounts) UpdateEmail(ctx context.Context, id uuid.UUID, email string) error {
	return a.UpdateEmailTx(ctx, a.db, id, email)
}

func (a *accounts) UpdateEmailTx(ctx context.Context, tx bun.IDB, id uuid.UUID, email string) error {
	res, err := tx.NewUpdate().
		Model((*Account)(nil)).
		Set("email = ?", email).
		Set("email_verified_at = NULL").
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (a *accounts) SetPasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.SetPasswordHashTx(ctx, a.db, id, passwordHash)
}

func (a *accounts) SetPasswordHashTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	res, err := tx.NewUpdate().
		Model((*Account)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// OptedIntoNewPost returns the accounts subscribed to the new-post
// broadcast category.
func (a *accounts) OptedIntoNewPost(ctx context.Context) ([]*Account, error) {
	var recipients []*Account
	err := a.db.NewSelect().
		Model(&recipients).
		Join(`JOIN notification_settings AS ns ON ns.account_id = acc.id`).
		Where("ns.new_post = ?", true).
		Order("acc.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return recipients, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}
