package membership

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the account model
type Account struct {
	bun.BaseModel   `bun:"table:accounts,alias:acc"`
	ID              uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name            string         `bun:"name,notnull" json:"name,omitempty"`
	Email           string         `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone           string         `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash    string         `bun:"password_hash" json:"-"`
	EmailVerifiedAt *time.Time     `bun:"email_verified_at,nullzero" json:"email_verified_at,omitempty"`
	Metadata        map[string]any `bun:"metadata" json:"metadata,omitempty"`
	CreatedAt       *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt       *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt       *time.Time     `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// HasCredential reports whether the account carries a password hash.
// Accounts provisioned through an external identity start without one and
// get it set on their first successful login.
func (a *Account) HasCredential() bool {
	return a != nil && a.PasswordHash != ""
}

// IsEmailVerified reports whether the account's email has been confirmed.
func (a *Account) IsEmailVerified() bool {
	return a != nil && a.EmailVerifiedAt != nil
}

// AddMetadata will append information to a metadata attribute
func (a *Account) AddMetadata(key string, val any) *Account {
	if a.Metadata == nil {
		a.Metadata = make(map[string]any)
	}
	a.Metadata[key] = val
	return a
}

// fallbackReaderName matches the copy the broadcast template used before
// profiles were mandatory.
const (
	fallbackAccountName = "Kullanıcı"
	fallbackReaderName  = "HALO Okuyucusu"
)

// DisplayName returns the account name or the generic fallback.
func (a *Account) DisplayName() string {
	if a == nil || a.Name == "" {
		return fallbackAccountName
	}
	return a.Name
}

// NotificationSettings is the per-account opt-in model
type NotificationSettings struct {
	bun.BaseModel `bun:"table:notification_settings,alias:ns"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AccountID     uuid.UUID  `bun:"account_id,notnull,unique,type:uuid" json:"account_id,omitempty"`
	Account       *Account   `bun:"rel:belongs-to,join:account_id=id" json:"account,omitempty"`
	NewPost       bool       `bun:"new_post" json:"new_post"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}
