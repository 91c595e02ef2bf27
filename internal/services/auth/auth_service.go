package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/utils"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/validation"
)

const msgInvalidCredentials = "invalid credentials"

type Service struct {
	DB        *gorm.DB
	JWTSecret string
	Expires   int // minutes
	Log       *logrus.Entry
}

func NewService(db *gorm.DB, secret string, expiresMin int, log *logrus.Entry) *Service {
	return &Service{DB: db, JWTSecret: secret, Expires: expiresMin, Log: log}
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=BUYER SELLER"`
}

// Session is what register, login and OAuth sign-in hand back to clients.
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Role = strings.ToUpper(strings.TrimSpace(in.Role))
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	tx := s.DB.WithContext(ctx)

	var existing models.User
	err := tx.Where("email = ?", in.Email).First(&existing).Error
	if err == nil {
		return nil, emailTaken()
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Internal("lookup user", err)
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}

	u := models.User{
		Name:     in.Name,
		Email:    in.Email,
		Password: hash,
		Role:     models.Role(in.Role),
		IsActive: true,
	}
	if err := tx.Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, emailTaken()
		}
		return nil, apperr.Internal("create user", err)
	}

	s.Log.WithFields(logrus.Fields{"user_id": u.ID, "role": u.Role}).Info("user registered")
	return s.session(&u)
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	fields := apperr.FieldErrors{}
	if email == "" {
		fields.Add("email", "is required")
	}
	if password == "" {
		fields.Add("password", "is required")
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("Validation error", fields)
	}

	var u models.User
	err := s.DB.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthorized(msgInvalidCredentials)
	}
	if err != nil {
		return nil, apperr.Internal("lookup user", err)
	}

	// same message for every failure so callers cannot probe for accounts
	if !u.IsActive || !utils.CheckPassword(u.Password, password) {
		return nil, apperr.Unauthorized(msgInvalidCredentials)
	}
	return s.session(&u)
}

// Verify resolves a bearer token to the current user record. Deleted or
// deactivated users are rejected even while their token is unexpired.
func (s *Service) Verify(ctx context.Context, token string) (*models.User, error) {
	claims, err := utils.ParseJWT(s.JWTSecret, token)
	if err != nil {
		return nil, apperr.Unauthorized("invalid or expired token")
	}
	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, apperr.Unauthorized("invalid or expired token")
	}

	var u models.User
	err = s.DB.WithContext(ctx).First(&u, "id = ?", uid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthorized("user no longer exists")
	}
	if err != nil {
		return nil, apperr.Internal("lookup user", err)
	}
	if !u.IsActive {
		return nil, apperr.Unauthorized("account is inactive")
	}
	return &u, nil
}

// SignInExternal signs in a user verified by an identity provider. Unknown
// emails are registered with role; known users keep their existing role.
func (s *Service) SignInExternal(ctx context.Context, email, name, avatarURL, role string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperr.Validation("email missing from identity provider", nil)
	}

	tx := s.DB.WithContext(ctx)

	var u models.User
	err := tx.Where("email = ?", email).First(&u).Error
	switch {
	case err == nil:
		if !u.IsActive {
			return nil, apperr.Unauthorized("account is inactive")
		}
		return s.session(&u)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperr.Internal("lookup user", err)
	}

	r, ok := models.ParseRole(role)
	if !ok {
		fields := apperr.FieldErrors{}
		fields.Add("role", "must be one of: BUYER, SELLER")
		return nil, apperr.Validation("Validation error", fields)
	}

	// the account has no usable password; it signs in through the provider only
	hash, err := utils.HashPassword(randomSecret(32))
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	u = models.User{
		Name:     name,
		Email:    email,
		Password: hash,
		Role:     r,
		IsActive: true,
	}
	if avatarURL != "" {
		u.AvatarURL = &avatarURL
	}
	if err := tx.Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, emailTaken()
		}
		return nil, apperr.Internal("create user", err)
	}

	s.Log.WithFields(logrus.Fields{"user_id": u.ID, "role": u.Role}).Info("user registered via identity provider")
	return s.session(&u)
}

func (s *Service) session(u *models.User) (*Session, error) {
	token, err := utils.SignJWT(s.JWTSecret, u.ID.String(), string(u.Role), s.Expires)
	if err != nil {
		return nil, apperr.Internal("sign token", err)
	}
	return &Session{Token: token, User: u}, nil
}

func emailTaken() error {
	fields := apperr.FieldErrors{}
	fields.Add("email", "is already registered")
	return &apperr.Error{Kind: apperr.KindConflict, Message: "Email already registered", Fields: fields}
}

func randomSecret(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
