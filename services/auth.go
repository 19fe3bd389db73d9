package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/Tirth-chokshi/strategy-backend/models"
	"github.com/Tirth-chokshi/strategy-backend/repository"
	"github.com/Tirth-chokshi/strategy-backend/utils"
)

const invalidCredentials = "Invalid credentials"

// AuthService owns accounts, bearer tokens and password resets.
type AuthService struct {
	Users      repository.UserRepository
	Strategies repository.StrategyRepository
	Tokens     *utils.TokenIssuer
	Mailer     utils.Mailer
	ResetTTL   time.Duration
	ResetURL   string
	Logger     *zap.Logger
	Now        func() time.Time
}

type RegisterInput struct {
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *AuthService) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// Register creates an account and returns it without the password hash.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if email == "" || in.Password == "" || name == "" {
		return nil, validation("Email, password and name are required")
	}

	if _, err := s.Users.FindByEmail(ctx, email); err == nil {
		return nil, conflict("User already exists with this email")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, internal("Error creating user", err)
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, internal("Error creating user", err)
	}

	now := s.now()
	u := &models.User{
		Email:     email,
		Password:  hash,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Users.Create(ctx, u); err != nil {
		// lost a race with a concurrent registration; the unique index decides
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, conflict("User already exists with this email")
		}
		return nil, internal("Error creating user", err)
	}
	u.Password = ""
	return u, nil
}

// Login verifies credentials and issues a bearer token. Unknown email and
// wrong password produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", validation("Email and password are required")
	}

	u, err := s.Users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return "", unauthorized(invalidCredentials)
	}
	if err != nil {
		return "", internal("Error logging in user", err)
	}

	if err := utils.CheckPassword(u.Password, password); err != nil {
		if !utils.IsMismatch(err) {
			s.log().Warn("stored password hash unreadable", zap.String("user_id", u.ID.Hex()), zap.Error(err))
		}
		return "", unauthorized(invalidCredentials)
	}

	token, err := s.Tokens.GenerateJWT(u.ID.Hex())
	if err != nil {
		return "", internal("Error logging in user", err)
	}
	return token, nil
}

// UpdateProfile applies the provided fields to the user with the given id.
func (s *AuthService) UpdateProfile(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, validation("Invalid user ID format")
	}

	ch := repository.UserChanges{UpdatedAt: s.now()}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, validation("Name cannot be empty")
		}
		ch.Name = &name
	}
	if upd.Password != nil {
		if *upd.Password == "" {
			return nil, validation("Password cannot be empty")
		}
		hash, err := utils.HashPassword(*upd.Password)
		if err != nil {
			return nil, internal("Error updating user", err)
		}
		ch.PasswordHash = &hash
	}
	if upd.Email != nil {
		email := normalizeEmail(*upd.Email)
		if email == "" {
			return nil, validation("Email cannot be empty")
		}
		taken, err := s.Users.EmailTakenByOther(ctx, email, oid)
		if err != nil {
			return nil, internal("Error updating user", err)
		}
		if taken {
			return nil, conflict("Email already in use")
		}
		ch.Email = &email
	}

	u, err := s.Users.Update(ctx, oid, ch)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, notFound("User not found")
	case errors.Is(err, repository.ErrDuplicateEmail):
		return nil, conflict("Email already in use")
	case err != nil:
		return nil, internal("Error updating user", err)
	}
	u.Password = ""
	return u, nil
}

// DeleteUser removes the account and every strategy it owns.
func (s *AuthService) DeleteUser(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return validation("Invalid user ID format")
	}

	if err := s.Users.Delete(ctx, oid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("User not found")
		}
		return internal("Error deleting user", err)
	}

	if s.Strategies != nil {
		n, err := s.Strategies.DeleteByUser(ctx, oid)
		if err != nil {
			// the account is gone; orphaned strategies are unreachable
			s.log().Error("delete strategies of removed user", zap.String("user_id", id), zap.Error(err))
		} else if n > 0 {
			s.log().Info("deleted strategies of removed user", zap.String("user_id", id), zap.Int64("count", n))
		}
	}
	return nil
}

// RequestPasswordReset stores a fresh single-use token on the user and mails
// the reset link. Any earlier token is overwritten.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return validation("Email is required")
	}

	u, err := s.Users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound("User not found")
	}
	if err != nil {
		return internal("Error processing password reset", err)
	}

	token, err := utils.GenerateResetToken()
	if err != nil {
		return internal("Error processing password reset", err)
	}
	if err := s.Users.SetResetToken(ctx, u.ID, token, s.now().Add(s.ResetTTL)); err != nil {
		return internal("Error processing password reset", err)
	}

	link := utils.ResetLink(s.ResetURL, token)
	body := "You requested a password reset.\n\n" +
		"Open the link below to choose a new password:\n" + link + "\n\n" +
		"This link expires in " + s.ResetTTL.String() + ". If you did not request it, ignore this email."
	if err := s.Mailer.SendMail(ctx, u.Email, "Password reset", body); err != nil {
		return internal("Error sending password reset email", err)
	}
	s.log().Info("password reset requested", zap.String("user_id", u.ID.Hex()))
	return nil
}

// RedeemPasswordReset sets a new password if token matches an unexpired
// reset request. The token is cleared in the same update.
func (s *AuthService) RedeemPasswordReset(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return validation("Token and new password are required")
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return internal("Error resetting password", err)
	}

	err = s.Users.RedeemResetToken(ctx, token, s.now(), hash)
	if errors.Is(err, repository.ErrNotFound) {
		return &Error{Kind: KindInvalidOrExpired, Message: "Password reset token is invalid or has expired"}
	}
	if err != nil {
		return internal("Error resetting password", err)
	}
	return nil
}

// Authenticate resolves a bearer token to its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, unauthorized("Access denied. No token provided.")
	}

	userID, err := s.Tokens.ParseJWT(token)
	if err != nil {
		return nil, unauthorized("Invalid token.")
	}
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, unauthorized("Invalid token.")
	}

	u, err := s.Users.FindByID(ctx, oid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, unauthorized("Invalid token. User not found.")
	}
	if err != nil {
		return nil, internal("Error authenticating user", err)
	}
	u.Password = ""
	return u, nil
}
