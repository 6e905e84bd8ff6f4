package auth

import (
	"strings"
	"time"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/errs"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/models"
)

const RoleAdmin = "admin"

// Service issues sessions for the single configured admin identity.
type Service struct {
	secret string
	admin  models.User
	ttl    time.Duration
}

// NewService hashes password unless it is already a bcrypt hash.
func NewService(secret, adminEmail, password string, ttl time.Duration) (*Service, error) {
	hash := password
	if !IsHash(password) {
		var err error
		if hash, err = HashPassword(password); err != nil {
			return nil, err
		}
	}
	return &Service{
		secret: secret,
		admin: models.User{
			ID:           adminEmail,
			Email:        adminEmail,
			PasswordHash: hash,
			Name:         "Admin",
			Role:         RoleAdmin,
		},
		ttl: ttl,
	}, nil
}

func (s *Service) Secret() string { return s.secret }

func (s *Service) AdminEmail() string { return s.admin.Email }

func (s *Service) Login(email, password string) (*models.LoginResponse, error) {
	if email == "" || password == "" {
		return nil, errs.BadRequest("email and password are required")
	}
	if !strings.EqualFold(email, s.admin.Email) || !CheckPassword(password, s.admin.PasswordHash) {
		return nil, errs.Unauthorized("invalid credentials")
	}
	token, err := GenerateToken(s.secret, s.admin.Email, s.admin.Name, s.admin.Role, s.ttl)
	if err != nil {
		return nil, err
	}
	return &models.LoginResponse{Token: token, User: s.admin.ToResponse()}, nil
}

// Me describes the holder of claims.
func (s *Service) Me(claims *Claims) (*models.UserResponse, error) {
	if claims == nil {
		return nil, errs.Unauthorized("unauthorized")
	}
	u := models.User{ID: claims.Email, Email: claims.Email, Name: claims.Name, Role: claims.Role}
	resp := u.ToResponse()
	resp.IsAdmin = IsAdmin(claims, s.admin.Email)
	return &resp, nil
}
