package membership

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// RepositoryAccountStore exposes the bun repositories through the
// collaborator interfaces the flows consume.
type RepositoryAccountStore struct {
	repo RepositoryManager
}

var (
	_ AccountStore    = (*RepositoryAccountStore)(nil)
	_ RecipientSource = (*RepositoryAccountStore)(nil)
)

// NewRepositoryAccountStore adapts a RepositoryManager to AccountStore and
// RecipientSource.
func NewRepositoryAccountStore(repo RepositoryManager) *RepositoryAccountStore {
	return &RepositoryAccountStore{repo: repo}
}

func (s *RepositoryAccountStore) FindByID(ctx context.Context, id string) (*Account, error) {
	account, err := s.repo.Accounts().GetByID(ctx, id)
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

func (s *RepositoryAccountStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return s.repo.Accounts().GetByEmail(ctx, email)
}

func (s *RepositoryAccountStore) MarkEmailVerified(ctx context.Context, id string, at time.Time) error {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return ErrAccountNotFound
	}
	return s.repo.Accounts().MarkEmailVerified(ctx, accountID, at)
}

func (s *RepositoryAccountStore) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return ErrAccountNotFound
	}
	return s.repo.Accounts().SetPasswordHash(ctx, accountID, hash)
}

// OptedIn implements RecipientSource. Only the new-post category is
// broadcast today.
func (s *RepositoryAccountStore) OptedIn(ctx context.Context, kind EventKind) ([]*Account, error) {
	if kind != EventNewPost {
		return nil, fmt.Errorf("no broadcast recipients for event %q", kind)
	}
	return s.repo.Accounts().OptedIntoNewPost(ctx)
}
