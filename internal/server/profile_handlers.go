package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetProfile returns a user's public profile (public, optional auth)
func (s *Server) GetProfile(c *fiber.Ctx) error {
	profile, err := s.profileService.GetProfile(c.UserContext(), s.viewer(c), c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"profile": profile})
}

// FollowUser makes the authenticated user follow :username (protected)
func (s *Server) FollowUser(c *fiber.Ctx) error {
	profile, err := s.profileService.Follow(c.UserContext(), currentUserID(c), c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"profile": profile})
}

// UnfollowUser removes the follow of :username (protected)
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	profile, err := s.profileService.Unfollow(c.UserContext(), currentUserID(c), c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"profile": profile})
}
