package gormrepo

import (
	"context"
	"time"

	"acmauth/internal/domain/entity"
	domainerrors "acmauth/internal/domain/errors"
	"acmauth/internal/domain/repository"
	"acmauth/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new GORM-backed account repository.
func NewAccountRepository(db *gorm.DB) repository.AccountRepository {
	return &accountRepository{db: db}
}

// FindByEmail retrieves an account by its normalized email.
func (repo *accountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	if email == "" {
		return nil, domainerrors.ErrNotFound.WrapMessage("email is empty")
	}

	var m model.AccountModel
	if err := repo.db.WithContext(ctx).Where("email = ?", email).First(&m).Error; err != nil {
		return nil, translateFindError(err, "account not found")
	}

	return toAccountDomain(&m), nil
}

// FindByConfirmToken retrieves the account holding the given confirm-email token.
func (repo *accountRepository) FindByConfirmToken(ctx context.Context, token string) (*entity.Account, error) {
	// Cleared tokens are stored as "", so an empty lookup must never match.
	if token == "" {
		return nil, domainerrors.ErrNotFound.WrapMessage("confirm token is empty")
	}

	var m model.AccountModel
	if err := repo.db.WithContext(ctx).Where("confirm_email_token = ?", token).First(&m).Error; err != nil {
		return nil, translateFindError(err, "confirm token not found")
	}

	return toAccountDomain(&m), nil
}

// FindByResetToken retrieves the account holding the given reset token.
func (repo *accountRepository) FindByResetToken(ctx context.Context, token string, now time.Time, requireUnexpired bool) (*entity.Account, error) {
	if token == "" {
		return nil, domainerrors.ErrNotFound.WrapMessage("reset token is empty")
	}

	query := repo.db.WithContext(ctx).Where("reset_password_token = ?", token)
	if requireUnexpired {
		query = query.Where("reset_password_expires > ?", now)
	}

	var m model.AccountModel
	if err := query.First(&m).Error; err != nil {
		return nil, translateFindError(err, "reset token not found or expired")
	}

	return toAccountDomain(&m), nil
}

// Create inserts a new account. The unique index on email decides concurrent races.
func (repo *accountRepository) Create(ctx context.Context, account *entity.Account) error {
	m := fromAccountDomain(account)
	if err := repo.db.WithContext(ctx).Create(m).Error; err != nil {
		return translateWriteError(err, "failed to create account")
	}

	account.ID = m.ID
	account.CreatedAt = m.CreatedAt
	account.UpdatedAt = m.UpdatedAt

	return nil
}

// Update overwrites the mutable fields of an existing account.
func (repo *accountRepository) Update(ctx context.Context, account *entity.Account) error {
	if account.ID == uuid.Nil {
		return domainerrors.ErrNotFound.WrapMessage("account has no id")
	}

	m := fromAccountDomain(account)
	m.UpdatedAt = time.Now()

	// Save would insert a missing row; an update of an unknown id must fail instead.
	result := repo.db.WithContext(ctx).
		Model(&model.AccountModel{}).
		Where("id = ?", m.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(m)
	if result.Error != nil {
		return translateWriteError(result.Error, "failed to update account")
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound.WrapMessage("account not found")
	}

	account.UpdatedAt = m.UpdatedAt

	return nil
}

// IssueResetToken sets the reset token pair with a column-scoped update, so a
// concurrent confirmation of the same account is never overwritten.
func (repo *accountRepository) IssueResetToken(ctx context.Context, email, token string, expires time.Time) (*entity.Account, error) {
	if email == "" {
		return nil, domainerrors.ErrNotFound.WrapMessage("email is empty")
	}

	result := repo.db.WithContext(ctx).
		Model(&model.AccountModel{}).
		Where("email = ?", email).
		Updates(map[string]any{
			"reset_password_token":   token,
			"reset_password_expires": expires,
			"updated_at":             time.Now(),
		})
	if result.Error != nil {
		return nil, translateWriteError(result.Error, "failed to issue reset token")
	}
	if result.RowsAffected == 0 {
		return nil, domainerrors.ErrNotFound.WrapMessage("account not found")
	}

	return repo.FindByEmail(ctx, email)
}

// ConfirmEmail marks the account holding token as verified and clears the token.
// The guarded update only succeeds while the row still holds the token.
func (repo *accountRepository) ConfirmEmail(ctx context.Context, token string) (*entity.Account, error) {
	if token == "" {
		return nil, domainerrors.ErrNotFound.WrapMessage("confirm token is empty")
	}

	var confirmed model.AccountModel
	err := runInTx(ctx, repo.db, func(tx *gorm.DB) error {
		var m model.AccountModel
		if err := tx.Where("confirm_email_token = ?", token).First(&m).Error; err != nil {
			return translateFindError(err, "confirm token not found")
		}

		result := tx.Model(&model.AccountModel{}).
			Where("id = ? AND confirm_email_token = ?", m.ID, token).
			Updates(map[string]any{
				"verified":            true,
				"confirm_email_token": "",
				"updated_at":          time.Now(),
			})
		if result.Error != nil {
			return domainerrors.NewDatabaseExecuteError(result.Error, "failed to confirm account")
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrNotFound.WrapMessage("confirm token already used")
		}

		return tx.Where("id = ?", m.ID).First(&confirmed).Error
	})
	if err != nil {
		return nil, err
	}

	return toAccountDomain(&confirmed), nil
}

// ResetPassword replaces the password hash of the account holding the reset
// token, clearing the token and its expiry in the same statement.
func (repo *accountRepository) ResetPassword(ctx context.Context, token, passwordHash string, now time.Time, requireUnexpired bool) (*entity.Account, error) {
	if token == "" {
		return nil, domainerrors.ErrNotFound.WrapMessage("reset token is empty")
	}

	var reset model.AccountModel
	err := runInTx(ctx, repo.db, func(tx *gorm.DB) error {
		query := tx.Where("reset_password_token = ?", token)
		if requireUnexpired {
			query = query.Where("reset_password_expires > ?", now)
		}

		var m model.AccountModel
		if err := query.First(&m).Error; err != nil {
			return translateFindError(err, "reset token not found or expired")
		}

		result := tx.Model(&model.AccountModel{}).
			Where("id = ? AND reset_password_token = ?", m.ID, token).
			Updates(map[string]any{
				"password_hash":          passwordHash,
				"reset_password_token":   "",
				"reset_password_expires": nil,
				"updated_at":             time.Now(),
			})
		if result.Error != nil {
			return domainerrors.NewDatabaseExecuteError(result.Error, "failed to reset password")
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrNotFound.WrapMessage("reset token already used")
		}

		return tx.Where("id = ?", m.ID).First(&reset).Error
	})
	if err != nil {
		return nil, err
	}

	return toAccountDomain(&reset), nil
}

func translateFindError(err error, notFoundMsg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domainerrors.ErrNotFound.WrapMessage(notFoundMsg)
	}
	if domainerrors.KindOf(err) != nil {
		return err
	}

	return domainerrors.NewDatabaseExecuteError(err, notFoundMsg)
}

func translateWriteError(err error, details string) error {
	switch {
	case isUniqueConstraintViolation(err):
		return domainerrors.ErrDuplicateAccount.WrapMessage("email already exists")
	case isNotNullConstraintViolation(err):
		return domainerrors.ErrInvalidInput.WithDetails("missing required account field")
	default:
		return domainerrors.NewDatabaseExecuteError(err, details)
	}
}

func toAccountDomain(m *model.AccountModel) *entity.Account {
	if m == nil {
		return nil
	}

	return &entity.Account{
		ID:                   m.ID,
		Email:                m.Email,
		PasswordHash:         m.PasswordHash,
		Verified:             m.Verified,
		ConfirmEmailToken:    m.ConfirmEmailToken,
		ResetPasswordToken:   m.ResetPasswordToken,
		ResetPasswordExpires: m.ResetPasswordExpires,
		Profile: entity.Profile{
			FirstName:      m.FirstName,
			LastName:       m.LastName,
			Classification: m.Classification,
		},
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func fromAccountDomain(a *entity.Account) *model.AccountModel {
	if a == nil {
		return nil
	}

	return &model.AccountModel{
		ID:                   a.ID,
		Email:                a.Email,
		PasswordHash:         a.PasswordHash,
		Verified:             a.Verified,
		ConfirmEmailToken:    a.ConfirmEmailToken,
		ResetPasswordToken:   a.ResetPasswordToken,
		ResetPasswordExpires: a.ResetPasswordExpires,
		FirstName:            a.Profile.FirstName,
		LastName:             a.Profile.LastName,
		Classification:       a.Profile.Classification,
		CreatedAt:            a.CreatedAt,
		UpdatedAt:            a.UpdatedAt,
	}
}
