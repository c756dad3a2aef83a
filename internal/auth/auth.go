// Package auth registers users, checks their credentials and issues the signed
// identity tokens the API trusts.
package auth

import (
	"context"
	"errors"
	"strings"

	"hostelgrievance/backend/internal/apperror"
	"hostelgrievance/backend/internal/models"
	"hostelgrievance/backend/internal/storage"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// UserStore is the part of the store auth needs.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByStudentID(ctx context.Context, studentID string) (*models.User, error)
}

type Service struct {
	Users  UserStore
	Tokens *Tokens
	Log    logrus.FieldLogger
}

func NewService(users UserStore, tokens *Tokens, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{Users: users, Tokens: tokens, Log: log}
}

// RegisterInput is a resident's self-registration.
type RegisterInput struct {
	StudentID  string `json:"student_id" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6"`
	Name       string `json:"name" validate:"required"`
	Hostel     string `json:"hostel" validate:"required"`
	RoomNumber string `json:"room_number" validate:"required"`
}

// ProvisionInput creates accounts of any role. Admins must carry a functional
// role; only residents need a hostel and room.
type ProvisionInput struct {
	StudentID  string           `json:"student_id" validate:"required"`
	Email      string           `json:"email" validate:"required,email"`
	Password   string           `json:"password" validate:"required,min=6"`
	Name       string           `json:"name" validate:"required"`
	Hostel     string           `json:"hostel"`
	RoomNumber string           `json:"room_number"`
	Role       models.Role      `json:"role" validate:"oneof=resident worker admin"`
	AdminRole  models.AdminRole `json:"admin_role" validate:"omitempty,oneof=validator supervisor warden dean"`
}

type LoginInput struct {
	StudentID string `json:"student_id" validate:"required"`
	Password  string `json:"password" validate:"required"`
}

// Session is a successful login.
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register creates a resident account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Hostel = strings.TrimSpace(in.Hostel)
	in.RoomNumber = strings.TrimSpace(in.RoomNumber)
	if err := apperror.Validate(in); err != nil {
		return nil, err
	}
	return s.Provision(ctx, ProvisionInput{
		StudentID:  in.StudentID,
		Email:      in.Email,
		Password:   in.Password,
		Name:       in.Name,
		Hostel:     in.Hostel,
		RoomNumber: in.RoomNumber,
		Role:       models.RoleResident,
	})
}

// Provision creates an account with any role.
func (s *Service) Provision(ctx context.Context, in ProvisionInput) (*models.User, error) {
	in.StudentID = strings.TrimSpace(in.StudentID)
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := apperror.Validate(in); err != nil {
		return nil, err
	}
	switch {
	case in.Role == models.RoleAdmin && !in.AdminRole.Valid():
		return nil, apperror.Validation("admins need an admin_role")
	case in.Role != models.RoleAdmin && in.AdminRole != models.AdminRoleNone:
		return nil, apperror.Validation("admin_role is only for admins")
	case in.Role == models.RoleResident && (in.Hostel == "" || in.RoomNumber == ""):
		return nil, apperror.Validation("residents need a hostel and room number")
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, apperror.Dependency("could not hash password", err)
	}
	u := &models.User{
		StudentID:    in.StudentID,
		Email:        in.Email,
		PasswordHash: hash,
		Name:         in.Name,
		Hostel:       in.Hostel,
		RoomNumber:   in.RoomNumber,
		Role:         in.Role,
		AdminRole:    in.AdminRole,
	}
	if err := s.Users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, apperror.Conflict("user already exists")
		}
		return nil, storage.Classify(err, "user")
	}

	s.Log.WithFields(logrus.Fields{"user_id": u.ID, "role": u.Role, "admin_role": u.AdminRole}).Info("user registered")
	return u, nil
}

// Login checks credentials and issues a token. Unknown ids and wrong passwords
// fail the same way.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.StudentID = strings.TrimSpace(in.StudentID)
	if err := apperror.Validate(in); err != nil {
		return nil, apperror.Validation("missing credentials")
	}

	u, err := s.Users.GetUserByStudentID(ctx, in.StudentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperror.Auth("invalid credentials")
		}
		return nil, storage.Classify(err, "user")
	}
	if !CheckPassword(u.PasswordHash, in.Password) {
		return nil, apperror.Auth("invalid credentials")
	}

	token, err := s.Tokens.Issue(u)
	if err != nil {
		return nil, apperror.Dependency("could not issue token", err)
	}
	return &Session{Token: token, User: u}, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
