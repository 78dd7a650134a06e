package membership

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Accounts() Accounts
	NotificationSettings() repository.Repository[*NotificationSettings]
	SetNewPostOptIn(ctx context.Context, accountID uuid.UUID, optIn bool) error
}

func NewNotificationSettingsRepository(db *bun.DB) repository.Repository[*NotificationSettings] {
	handlers := repository.ModelHandlers[*NotificationSettings]{
		NewRecord: func() *NotificationSettings {
			return &NotificationSettings{}
		},
		GetID: func(record *NotificationSettings) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *NotificationSettings, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "account_id"
		},
	}
	return repository.NewRepository(db, handlers)
}

type mngr struct {
	db       *bun.DB
	accounts Accounts
	settings repository.Repository[*NotificationSettings]
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:       db,
		accounts: NewAccountsRepository(db),
		settings: NewNotificationSettingsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}

	if m.settings == nil {
		return errors.New("repository notification settings should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

// SetNewPostOptIn upserts the account's broadcast preference. Accounts
// registered before the settings table existed get a row on first write.
func (m mngr) SetNewPostOptIn(ctx context.Context, accountID uuid.UUID, optIn bool) error {
	now := time.Now()
	settings := &NotificationSettings{
		ID:        uuid.New(),
		AccountID: accountID,
		NewPost:   optIn,
		UpdatedAt: &now,
	}

	_, err := m.db.NewInsert().
		Model(settings).
		On("CONFLICT (account_id) DO UPDATE").
		Set("new_post = EXCLUDED.new_post").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (m mngr) Accounts() Accounts {
	return m.accounts
}

func (m mngr) NotificationSettings() repository.Repository[*NotificationSettings] {
	return m.settings
}
