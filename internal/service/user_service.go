package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"conduit/internal/models"
	"conduit/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen = 8
	maxUsernameLen = 64
	maxBioLen      = 1000
)

type UserService struct {
	users    repository.UserRepository
	hashCost int
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// UpdateUserInput carries the fields to change. Nil fields are left unchanged.
type UpdateUserInput struct {
	Username *string
	Email    *string
	Password *string
	Bio      *string
	Image    *string
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users, hashCost: bcrypt.DefaultCost}
}

func validateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return models.NewInvalidArgumentError("username is required")
	}
	if len(username) > maxUsernameLen {
		return models.NewInvalidArgumentError("username is too long")
	}
	return nil
}

func validateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return models.NewInvalidArgumentError("email is invalid")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLen {
		return models.NewInvalidArgumentError("password must be at least 8 characters")
	}
	return nil
}

func (s *UserService) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return string(hashed), nil
}

// Register creates a user. Taken usernames or emails fail with Conflict.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := validateUsername(in.Username); err != nil {
		return nil, err
	}
	if err := validateEmail(in.Email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	hashed, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username: in.Username,
		Email:    strings.ToLower(in.Email),
		Password: hashed,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks email and password. Unknown emails and wrong passwords both
// fail with the same Unauthorized error.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, error) {
	invalid := models.NewUnauthorizedError("invalid email or password")

	user, err := s.users.GetByEmail(ctx, strings.ToLower(email))
	if models.IsNotFound(err) {
		return nil, invalid
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, invalid
		}
		return nil, models.NewInternalError(err)
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) Update(ctx context.Context, userID uint, in UpdateUserInput) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Username != nil {
		if err := validateUsername(*in.Username); err != nil {
			return nil, err
		}
		user.Username = *in.Username
	}
	if in.Email != nil {
		if err := validateEmail(*in.Email); err != nil {
			return nil, err
		}
		user.Email = strings.ToLower(*in.Email)
	}
	if in.Password != nil {
		if err := validatePassword(*in.Password); err != nil {
			return nil, err
		}
		hashed, err := s.hash(*in.Password)
		if err != nil {
			return nil, err
		}
		user.Password = hashed
	}
	if in.Bio != nil {
		if len(*in.Bio) > maxBioLen {
			return nil, models.NewInvalidArgumentError("bio is too long")
		}
		user.Bio = *in.Bio
	}
	if in.Image != nil {
		user.Image = *in.Image
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
