package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/galliconnect/rideshare/internal/domain"
	"github.com/galliconnect/rideshare/internal/domain/models"
	"github.com/galliconnect/rideshare/internal/repositories"
	"github.com/galliconnect/rideshare/internal/utils"
)

// AuthService handles signup, login and session tokens.
type AuthService struct {
	Users    repositories.UserRepository
	Secret   []byte
	TokenTTL time.Duration
	Now      func() time.Time
}

type SignupInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

func (s AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s AuthService) Signup(ctx context.Context, in SignupInput) (models.User, string, error) {
	name := utils.NormalizeSpace(in.Name)
	email := utils.NormalizeEmail(in.Email)
	role := strings.ToUpper(strings.TrimSpace(in.Role))
	switch {
	case name == "":
		return models.User{}, "", domain.ValidationError{Field: "name", Msg: "required"}
	case email == "" || !strings.Contains(email, "@"):
		return models.User{}, "", domain.ValidationError{Field: "email", Msg: "a valid email is required"}
	case in.Password == "":
		return models.User{}, "", domain.ValidationError{Field: "password", Msg: "required"}
	case !domain.ValidRole(role):
		return models.User{}, "", domain.ValidationError{Field: "role", Msg: "must be PASSENGER or DRIVER"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		// bcrypt rejects passwords over 72 bytes
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return models.User{}, "", domain.ValidationError{Field: "password", Msg: "too long", Err: err}
		}
		return models.User{}, "", domain.InternalError{Msg: "failed to hash password", Err: err}
	}

	u := models.User{Name: name, Email: email, PasswordHash: string(hash), Role: role}
	if err := s.Users.Create(ctx, &u); err != nil {
		return models.User{}, "", err
	}
	token, err := s.IssueToken(u)
	if err != nil {
		return models.User{}, "", err
	}
	utils.LogEvent(ctx, "auth", "signup", fmt.Sprintf("user_id=%d role=%s", u.ID, u.Role))
	return u, token, nil
}

func (s AuthService) Login(ctx context.Context, email, password, role string) (models.User, string, error) {
	email = utils.NormalizeEmail(email)
	role = strings.ToUpper(strings.TrimSpace(role))
	if email == "" || password == "" || role == "" {
		return models.User{}, "", domain.ValidationError{Msg: "email, password and role are required"}
	}
	if !domain.ValidRole(role) {
		return models.User{}, "", domain.ValidationError{Field: "role", Msg: "must be PASSENGER or DRIVER"}
	}

	u, err := s.Users.GetByEmailAndRole(ctx, email, role)
	if err != nil {
		return models.User{}, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return models.User{}, "", domain.UnauthorizedError{Msg: "invalid credentials", Err: err}
	}
	token, err := s.IssueToken(u)
	if err != nil {
		return models.User{}, "", err
	}
	utils.LogEvent(ctx, "auth", "login", fmt.Sprintf("user_id=%d role=%s", u.ID, u.Role))
	return u, token, nil
}

// IssueToken signs an HS256 token carrying user_id, role and exp.
func (s AuthService) IssueToken(u models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": u.ID,
		"role":    u.Role,
		"exp":     s.now().Add(s.TokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.Secret)
	if err != nil {
		return "", domain.InternalError{Msg: "failed to sign token", Err: err}
	}
	return signed, nil
}

// ParseToken validates a signed token and returns the caller it names.
func (s AuthService) ParseToken(raw string) (domain.RequestContext, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return s.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return domain.RequestContext{}, domain.UnauthorizedError{Msg: "invalid or expired token", Err: err}
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.RequestContext{}, domain.UnauthorizedError{Msg: "invalid token claims"}
	}

	// numeric claims decode as float64
	idVal, _ := claims["user_id"].(float64)
	role, _ := claims["role"].(string)
	if idVal <= 0 || !domain.ValidRole(role) {
		return domain.RequestContext{}, domain.UnauthorizedError{Msg: "invalid token claims"}
	}
	return domain.RequestContext{UserID: int64(idVal), Role: role}, nil
}
