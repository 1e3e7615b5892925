package server

import (
	"conduit/internal/models"
	"conduit/internal/service"

	"github.com/gofiber/fiber/v2"
)

type userResponse struct {
	Email    string `json:"email"`
	Token    string `json:"token"`
	Username string `json:"username"`
	Bio      string `json:"bio"`
	Image    string `json:"image"`
}

// respondUser writes the user envelope with token.
func (s *Server) respondUser(c *fiber.Ctx, status int, user *models.User, token string) error {
	return c.Status(status).JSON(fiber.Map{
		"user": userResponse{
			Email:    user.Email,
			Token:    token,
			Username: user.Username,
			Bio:      user.Bio,
			Image:    user.Image,
		},
	})
}

// respondUserWithNewToken issues a fresh token for user and writes the user envelope.
func (s *Server) respondUserWithNewToken(c *fiber.Ctx, status int, user *models.User) error {
	token, err := s.issueToken(user)
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	return s.respondUser(c, status, user, token)
}

// Register creates an account and returns it with an access token.
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		User struct {
			Username string `json:"username"`
			Email    string `json:"email"`
			Password string `json:"password"`
		} `json:"user"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.Register(c.UserContext(), service.RegisterInput{
		Username: req.User.Username,
		Email:    req.User.Email,
		Password: req.User.Password,
	})
	if err != nil {
		return respondError(c, err)
	}
	return s.respondUserWithNewToken(c, fiber.StatusCreated, user)
}

// Login exchanges credentials for an access token.
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		User struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		} `json:"user"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.Login(c.UserContext(), req.User.Email, req.User.Password)
	if err != nil {
		return respondError(c, err)
	}
	return s.respondUserWithNewToken(c, fiber.StatusOK, user)
}

// GetCurrentUser returns the authenticated user with the presented token.
func (s *Server) GetCurrentUser(c *fiber.Ctx) error {
	user, err := s.userService.GetByID(c.UserContext(), currentUserID(c))
	if err != nil {
		if models.IsNotFound(err) {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Account no longer exists"))
		}
		return respondError(c, err)
	}
	return s.respondUser(c, fiber.StatusOK, user, bearerToken(c))
}

// UpdateCurrentUser changes the provided fields of the authenticated user.
func (s *Server) UpdateCurrentUser(c *fiber.Ctx) error {
	var req struct {
		User struct {
			Username *string `json:"username"`
			Email    *string `json:"email"`
			Password *string `json:"password"`
			Bio      *string `json:"bio"`
			Image    *string `json:"image"`
		} `json:"user"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.Update(c.UserContext(), currentUserID(c), service.UpdateUserInput{
		Username: req.User.Username,
		Email:    req.User.Email,
		Password: req.User.Password,
		Bio:      req.User.Bio,
		Image:    req.User.Image,
	})
	if err != nil {
		return respondError(c, err)
	}
	return s.respondUser(c, fiber.StatusOK, user, bearerToken(c))
}
