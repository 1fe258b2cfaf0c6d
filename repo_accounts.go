package accounts

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// The counter updates are single statements so two concurrent login
// attempts against the same email cannot lose an increment. The guard on
// failed_login_attempts keeps the stored counter monotonic between resets:
// a racer that already wrote an equal or higher count wins.
var updateFailedAttemptsSQL = `UPDATE accounts
SET
	failed_login_attempts = ?,
	locked_at = ?,
	updated_at = ?
WHERE
	email = ?
AND failed_login_attempts < ?;`

var resetFailedAttemptsSQL = `UPDATE accounts
SET
	failed_login_attempts = 0,
	locked_at = NULL,
	last_login_at = ?,
	updated_at = ?
WHERE
	email = ?;`

// Accounts is the bun-backed credential store.
type Accounts interface {
	repository.Repository[*Account]
	AccountStore

	FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)
	FindByVerificationTokenTx(ctx context.Context, tx bun.IDB, token string) (*Account, error)
	FindByResetTokenTx(ctx context.Context, tx bun.IDB, token string) (*Account, error)
	ExistsByEmailTx(ctx context.Context, tx bun.IDB, email string) (bool, error)
	SaveTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error)
	UpdateFailedAttemptsTx(ctx context.Context, tx bun.IDB, email string, attempts int, lockedAt *time.Time) error
	ResetFailedAttemptsTx(ctx context.Context, tx bun.IDB, email string, loginTime time.Time) error
}

type accountsStore struct {
	repository.Repository[*Account]
	db *bun.DB
}

var (
	_ Accounts                        = (*accountsStore)(nil)
	_ AccountStore                    = (*accountsStore)(nil)
	_ repository.Repository[*Account] = (*accountsStore)(nil)
)

// NewAccountsRepository wires the generic repository with Account handlers.
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

	return &accountsStore{
		Repository: repo,
		db:         db,
	}
}

func (a *accountsStore) FindByID(ctx context.Context, id string) (*Account, error) {
	return a.Repository.GetByID(ctx, id)
}

func (a *accountsStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return a.FindByEmailTx(ctx, a.db, email)
}

func (a *accountsStore) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	return a.findByColumnTx(ctx, tx, "email", NormalizeEmail(email))
}

func (a *accountsStore) FindByVerificationToken(ctx context.Context, token string) (*Account, error) {
	return a.FindByVerificationTokenTx(ctx, a.db, token)
}

func (a *accountsStore) FindByVerificationTokenTx(ctx context.Context, tx bun.IDB, token string) (*Account, error) {
	return a.findByColumnTx(ctx, tx, "verification_token", token)
}

func (a *accountsStore) FindByResetToken(ctx context.Context, token string) (*Account, error) {
	return a.FindByResetTokenTx(ctx, a.db, token)
}

func (a *accountsStore) FindByResetTokenTx(ctx context.Context, tx bun.IDB, token string) (*Account, error) {
	return a.findByColumnTx(ctx, tx, "password_reset_token", token)
}

func (a *accountsStore) findByColumnTx(ctx context.Context, tx bun.IDB, column, value string) (*Account, error) {
	if value == "" {
		return nil, repository.NewRecordNotFound()
	}

	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias."+column+" = ?", value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"column": column,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *accountsStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return a.ExistsByEmailTx(ctx, a.db, email)
}

func (a *accountsStore) ExistsByEmailTx(ctx context.Context, tx bun.IDB, email string) (bool, error) {
	return tx.NewSelect().
		Model((*Account)(nil)).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Exists(ctx)
}

func (a *accountsStore) Save(ctx context.Context, record *Account) (*Account, error) {
	return a.SaveTx(ctx, a.db, record)
}

func (a *accountsStore) SaveTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error) {
	prepareAccountDefaults(record)

	if record.CreatedAt == nil {
		return a.Repository.CreateTx(ctx, tx, record)
	}

	// NOTE: full row update on purpose. The ORM's partial update skips
	// zero valued fields, which would keep cleared verification and reset
	// tokens alive in the database.
	now := time.Now()
	record.UpdatedAt = &now

	if _, err := tx.NewUpdate().
		Model(record).
		WherePK().
		Exec(ctx); err != nil {
		return nil, err
	}

	return record, nil
}

func (a *accountsStore) UpdateFailedAttempts(ctx context.Context, email string, attempts int, lockedAt *time.Time) error {
	return a.UpdateFailedAttemptsTx(ctx, a.db, email, attempts, lockedAt)
}

func (a *accountsStore) UpdateFailedAttemptsTx(ctx context.Context, tx bun.IDB, email string, attempts int, lockedAt *time.Time) error {
	// NOTE: raw SQL here on purpose, the ORM update path is not a single
	// statement and would not give us the compare-and-set guard.
	_, err := tx.NewRaw(
		updateFailedAttemptsSQL,
		attempts,
		lockedAt,
		time.Now(),
		NormalizeEmail(email),
		attempts,
	).Exec(ctx)

	return err
}

func (a *accountsStore) ResetFailedAttempts(ctx context.Context, email string, loginTime time.Time) error {
	return a.ResetFailedAttemptsTx(ctx, a.db, email, loginTime)
}

func (a *accountsStore) ResetFailedAttemptsTx(ctx context.Context, tx bun.IDB, email string, loginTime time.Time) error {
	_, err := tx.NewRaw(
		resetFailedAttemptsSQL,
		loginTime,
		time.Now(),
		NormalizeEmail(email),
	).Exec(ctx)

	return err
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	record.Email = NormalizeEmail(record.Email)
}
