// Package services contains server-side business logic. This file implements
// UserService: registration, login, access-token refresh, logout, bearer
// authentication and profile management.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/eventhub/internal/common"
	"github.com/dmitrijs2005/eventhub/internal/dbx"
	"github.com/dmitrijs2005/eventhub/internal/logging"
	"github.com/dmitrijs2005/eventhub/internal/server/auth"
	"github.com/dmitrijs2005/eventhub/internal/server/models"
	"github.com/dmitrijs2005/eventhub/internal/server/passwords"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/repomanager"
)

const dummyPassword = "eventhub-timing-equalizer"

// Recorder receives session outcomes and sweep counts. *metrics.Metrics
// implements it.
type Recorder interface {
	RecordAuth(event string, success bool)
	AddSwept(n int64)
}

type nopRecorder struct{}

func (nopRecorder) RecordAuth(string, bool) {}
func (nopRecorder) AddSwept(int64)          {}

// LoginGuard tracks failed logins per email. *lockout.Store implements it.
type LoginGuard interface {
	IsLocked(ctx context.Context, email string) (bool, time.Duration)
	RecordFailure(ctx context.Context, email string)
	RecordSuccess(ctx context.Context, email string)
}

// LockedError is returned by Login while an email is locked out.
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string { return common.ErrTooManyAttempts.Error() }
func (e *LockedError) Unwrap() error { return common.ErrTooManyAttempts }

type RegisterInput struct {
	Name      string  `json:"name"`
	FirstName string  `json:"firstName" validate:"required_without=Name"`
	LastName  string  `json:"lastName" validate:"required_without=Name"`
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=8"`
	Gender    *string `json:"gender" validate:"omitempty,max=32"`
	BirthDate *string `json:"birthDate"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ProfileInput carries the fields a user may change on their own profile.
// Nil fields are left untouched.
type ProfileInput struct {
	Name      *string `json:"name" validate:"omitempty,min=1"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Gender    *string `json:"gender" validate:"omitempty,max=32"`
	BirthDate *string `json:"birthDate"`
}

// Session is the result of a successful register or login.
type Session struct {
	User   *models.User
	Tokens *models.TokenPair
}

// UserService coordinates the credential store, password hasher, token
// issuer and refresh token ledger.
type UserService struct {
	repomanager repomanager.RepositoryManager
	issuer      *auth.Issuer
	hasher      passwords.Hasher
	guard       LoginGuard
	recorder    Recorder
	logger      logging.Logger
	now         func() time.Time

	dummyOnce   sync.Once
	dummyDigest string
}

// NewUserService wires a UserService. guard and recorder may be nil.
func NewUserService(m repomanager.RepositoryManager, issuer *auth.Issuer, hasher passwords.Hasher,
	guard LoginGuard, recorder Recorder, logger logging.Logger) *UserService {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &UserService{
		repomanager: m,
		issuer:      issuer,
		hasher:      hasher,
		guard:       guard,
		recorder:    recorder,
		logger:      logger.With("module", "users"),
		now:         time.Now,
	}
}

// Register validates input, creates the user and opens its first session.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (res *Session, err error) {
	defer func() { s.recorder.RecordAuth("register", err == nil) }()

	in.Name = strings.TrimSpace(in.Name)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, common.NewValidationError("invalid fields", "password")
	}
	birthDate, err := parseOptionalDate("birthDate", in.BirthDate)
	if err != nil {
		return nil, err
	}

	email := common.NormalizeEmail(in.Email)

	// Pre-check only; the unique index decides.
	if _, err := s.repomanager.Users(s.repomanager.DB()).GetByEmail(ctx, email); err == nil {
		return nil, common.ErrDuplicateEmail
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error checking email: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	name := in.Name
	if name == "" {
		name = strings.TrimSpace(in.FirstName + " " + in.LastName)
	}

	user := &models.User{
		Name:         name,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        email,
		Gender:       in.Gender,
		BirthDate:    birthDate,
		PasswordHash: hash,
	}

	var pair *models.TokenPair
	err = s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Users(tx).Create(ctx, user)
		if err != nil {
			return err
		}
		user = created
		pair, err = s.issuePair(ctx, tx, user)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateEmail) {
			return nil, common.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	sanitized := user.Sanitized()
	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return &Session{User: &sanitized, Tokens: pair}, nil
}

// Login verifies credentials and replaces the user's refresh token with a
// new one. Unknown emails and wrong passwords yield the same error.
func (s *UserService) Login(ctx context.Context, in LoginInput) (res *Session, err error) {
	defer func() { s.recorder.RecordAuth("login", err == nil) }()

	if err := validateStruct(in); err != nil {
		return nil, err
	}
	email := common.NormalizeEmail(in.Email)

	if s.guard != nil {
		if locked, retryAfter := s.guard.IsLocked(ctx, email); locked {
			s.logger.Warn(ctx, "login rejected, account locked", "retry_after", retryAfter)
			return nil, &LockedError{RetryAfter: retryAfter}
		}
	}

	user, err := s.repomanager.Users(s.repomanager.DB()).GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("error loading user: %w", err)
		}
		s.hasher.Verify(in.Password, s.dummy())
		s.loginFailed(ctx, email)
		return nil, common.ErrInvalidCredentials
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		s.loginFailed(ctx, email)
		return nil, common.ErrInvalidCredentials
	}
	if s.guard != nil {
		s.guard.RecordSuccess(ctx, email)
	}

	var pair *models.TokenPair
	err = s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.RefreshTokens(tx).DeleteByUser(ctx, user.ID); err != nil {
			return fmt.Errorf("error revoking refresh tokens: %w", err)
		}
		var err error
		pair, err = s.issuePair(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	sanitized := user.Sanitized()
	return &Session{User: &sanitized, Tokens: pair}, nil
}

// Refresh mints a new access token for a refresh token found in the ledger.
// The refresh token itself is not rotated.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (token string, expiresAt time.Time, err error) {
	defer func() { s.recorder.RecordAuth("refresh", err == nil) }()

	if refreshToken == "" {
		return "", time.Time{}, common.NewMissingFieldsError("refreshToken")
	}

	repo := s.repomanager.RefreshTokens(s.repomanager.DB())

	stored, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", time.Time{}, common.ErrInvalidRefreshToken
		}
		return "", time.Time{}, fmt.Errorf("error searching refresh token: %w", err)
	}

	if stored.Expired(s.now()) {
		return "", time.Time{}, s.expire(ctx, refreshToken)
	}

	claims, err := s.issuer.ParseRefresh(refreshToken)
	if err != nil {
		// The signed exp is truncated to whole seconds and can lapse just
		// before the ledger row does.
		if errors.Is(err, common.ErrTokenExpired) {
			return "", time.Time{}, s.expire(ctx, refreshToken)
		}
		return "", time.Time{}, common.ErrInvalidRefreshToken
	}

	if stored.User == nil || claims.UserID != stored.UserID {
		return "", time.Time{}, common.ErrUserMismatch
	}

	token, expiresAt, err = s.issuer.IssueAccess(stored.UserID, stored.User.Email)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("error issuing access token: %w", err)
	}
	return token, expiresAt, nil
}

// Logout deletes every refresh token of the user. Deleting none is success.
func (s *UserService) Logout(ctx context.Context, userID int64) (err error) {
	defer func() { s.recorder.RecordAuth("logout", err == nil) }()

	n, err := s.repomanager.RefreshTokens(s.repomanager.DB()).DeleteByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("error deleting refresh tokens: %w", err)
	}
	s.logger.Debug(ctx, "user logged out", "user_id", userID, "revoked", n)
	return nil
}

// Authenticate resolves the user behind an access token. It never consults
// the refresh token ledger.
func (s *UserService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.issuer.ParseAccess(accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.repomanager.DB()).GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrForbidden
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	sanitized := user.Sanitized()
	return &sanitized, nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	list, err := s.repomanager.Users(s.repomanager.DB()).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	return list, nil
}

// UpdateProfile changes the profile of targetID. Users may only edit themselves.
func (s *UserService) UpdateProfile(ctx context.Context, callerID, targetID int64, in ProfileInput) (*models.User, error) {
	if callerID != targetID {
		return nil, common.ErrForbidden
	}
	in.Name = trimPtr(in.Name)
	in.FirstName = trimPtr(in.FirstName)
	in.LastName = trimPtr(in.LastName)
	in.Email = trimPtr(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	birthDate, err := parseOptionalDate("birthDate", in.BirthDate)
	if err != nil {
		return nil, err
	}

	var updated *models.User
	err = s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		user, err := repo.GetByID(ctx, targetID)
		if err != nil {
			return err
		}

		if in.Name != nil {
			user.Name = *in.Name
		}
		if in.FirstName != nil {
			user.FirstName = *in.FirstName
		}
		if in.LastName != nil {
			user.LastName = *in.LastName
		}
		if in.Email != nil {
			user.Email = common.NormalizeEmail(*in.Email)
		}
		if in.Gender != nil {
			user.Gender = in.Gender
		}
		if birthDate != nil {
			user.BirthDate = birthDate
		}

		updated, err = repo.Update(ctx, user)
		return err
	})
	switch {
	case err == nil:
	case errors.Is(err, common.ErrorNotFound):
		return nil, common.ErrorNotFound
	case errors.Is(err, common.ErrDuplicateEmail):
		return nil, common.ErrDuplicateEmail
	default:
		return nil, fmt.Errorf("error updating user: %w", err)
	}

	sanitized := updated.Sanitized()
	return &sanitized, nil
}

// CleanupExpiredTokens removes ledger rows past their expiry.
func (s *UserService) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	n, err := s.repomanager.RefreshTokens(s.repomanager.DB()).DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("error deleting expired refresh tokens: %w", err)
	}
	s.recorder.AddSwept(n)
	if n > 0 {
		s.logger.Info(ctx, "expired refresh tokens removed", "count", n)
	}
	return n, nil
}

// --- helpers below ---

func (s *UserService) issuePair(ctx context.Context, tx dbx.DBTX, user *models.User) (*models.TokenPair, error) {
	access, accessExp, err := s.issuer.IssueAccess(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("error issuing access token: %w", err)
	}
	refresh, refreshExp, err := s.issuer.IssueRefresh(user.ID)
	if err != nil {
		return nil, fmt.Errorf("error issuing refresh token: %w", err)
	}
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, user.ID, refresh, refreshExp); err != nil {
		return nil, fmt.Errorf("error storing refresh token: %w", err)
	}
	return &models.TokenPair{
		AccessToken:           access,
		AccessTokenExpiresAt:  accessExp,
		RefreshToken:          refresh,
		RefreshTokenExpiresAt: refreshExp,
	}, nil
}

func (s *UserService) expire(ctx context.Context, refreshToken string) error {
	if err := s.repomanager.RefreshTokens(s.repomanager.DB()).Delete(ctx, refreshToken); err != nil {
		return fmt.Errorf("error deleting expired refresh token: %w", err)
	}
	return common.ErrRefreshTokenExpired
}

func (s *UserService) loginFailed(ctx context.Context, email string) {
	if s.guard != nil {
		s.guard.RecordFailure(ctx, email)
	}
	s.logger.Info(ctx, "login failed")
}

// dummy returns a digest compared against when the email is unknown, so
// both failure paths cost one hash comparison.
func (s *UserService) dummy() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			s.logger.Error(context.Background(), "dummy digest", "error", err)
			return
		}
		s.dummyDigest = digest
	})
	return s.dummyDigest
}
