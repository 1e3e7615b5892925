package server

import (
	"github.com/gofiber/fiber/v2"
)

// ListComments returns the comments on an article, oldest first (public, optional auth)
func (s *Server) ListComments(c *fiber.Ctx) error {
	views, err := s.commentService.ListCommentViews(c.UserContext(), s.viewer(c), c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"comments": views})
}

// AddComment comments on an article as the user (protected)
func (s *Server) AddComment(c *fiber.Ctx) error {
	var req struct {
		Comment struct {
			Body string `json:"body"`
		} `json:"comment"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	comment, err := s.commentService.AddComment(c.UserContext(), currentUserID(c), c.Params("slug"), req.Comment.Body)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"comment": comment.View(false)})
}

// DeleteComment removes a comment (only comment author)
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	commentID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	if _, err := s.commentService.DeleteArticleComment(c.UserContext(), currentUserID(c), c.Params("slug"), commentID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
