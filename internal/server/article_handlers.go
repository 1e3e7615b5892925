package server

import (
	"conduit/internal/service"

	"github.com/gofiber/fiber/v2"
)

type articleRequest struct {
	Article struct {
		Title       *string  `json:"title"`
		Description *string  `json:"description"`
		Body        *string  `json:"body"`
		TagList     []string `json:"tagList"`
	} `json:"article"`
}

func (r articleRequest) fields() service.ArticleFields {
	return service.ArticleFields{
		Title:       r.Article.Title,
		Description: r.Article.Description,
		Body:        r.Article.Body,
		TagList:     r.Article.TagList,
	}
}

// ListArticles returns a filtered page of articles (public, optional auth)
func (s *Server) ListArticles(c *fiber.Ctx) error {
	page, err := parsePage(c)
	if err != nil {
		return nil
	}

	result, err := s.articleService.ListArticles(c.UserContext(), s.viewer(c), service.ArticleQuery{
		Author:      c.Query("author"),
		Tag:         c.Query("tag"),
		FavoritedBy: c.Query("favorited"),
	}, page)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// Feed returns articles by authors the user follows (protected)
func (s *Server) Feed(c *fiber.Ctx) error {
	page, err := parsePage(c)
	if err != nil {
		return nil
	}

	result, err := s.articleService.Feed(c.UserContext(), currentUserID(c), page)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// GetArticle returns one article by slug (public, optional auth)
func (s *Server) GetArticle(c *fiber.Ctx) error {
	article, err := s.articleService.GetArticle(c.UserContext(), s.viewer(c), c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"article": article})
}

// CreateArticle publishes an article authored by the user (protected)
func (s *Server) CreateArticle(c *fiber.Ctx) error {
	var req articleRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	article, err := s.articleService.CreateArticle(c.UserContext(), currentUserID(c), req.fields())
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"article": article})
}

// UpdateArticle edits an article (only author)
func (s *Server) UpdateArticle(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req articleRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	existing, err := s.articleService.AuthorizeArticle(ctx, currentUserID(c), c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}

	article, err := s.articleService.UpdateArticle(ctx, existing, req.fields())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"article": article})
}

// DeleteArticle removes an article with its comments and favorites (only author)
func (s *Server) DeleteArticle(c *fiber.Ctx) error {
	ctx := c.UserContext()

	existing, err := s.articleService.AuthorizeArticle(ctx, currentUserID(c), c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}
	if err := s.articleService.DeleteArticle(ctx, existing); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// FavoriteArticle marks an article as a favorite of the user (protected)
func (s *Server) FavoriteArticle(c *fiber.Ctx) error {
	article, err := s.articleService.AddFavorite(c.UserContext(), currentUserID(c), c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"article": article})
}

// UnfavoriteArticle removes the user's favorite (protected)
func (s *Server) UnfavoriteArticle(c *fiber.Ctx) error {
	article, err := s.articleService.RemoveFavorite(c.UserContext(), currentUserID(c), c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"article": article})
}

// ListTags returns every tag in use (public)
func (s *Server) ListTags(c *fiber.Ctx) error {
	tags, err := s.articleService.ListTags(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"tags": tags})
}
