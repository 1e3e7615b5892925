package service

import (
	"context"
	"strings"

	"conduit/internal/models"
	"conduit/internal/observability"
	"conduit/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

type CommentService struct {
	comments repository.CommentRepository
	articles repository.ArticleRepository
	follows  repository.FollowRepository
}

func NewCommentService(
	comments repository.CommentRepository,
	articles repository.ArticleRepository,
	follows repository.FollowRepository,
) *CommentService {
	return &CommentService{comments: comments, articles: articles, follows: follows}
}

// ListComments returns every comment on slug in insertion order.
func (s *CommentService) ListComments(ctx context.Context, slug string) ([]*models.Comment, error) {
	article, err := s.articles.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.comments.ListByArticle(ctx, article.ID)
}

// ListCommentViews is ListComments rendered for viewer. Following is resolved
// for all authors with one lookup; anonymous viewers trigger none.
func (s *CommentService) ListCommentViews(ctx context.Context, viewer models.Viewer, slug string) (_ []models.CommentView, err error) {
	ctx, span := observability.StartSpan(ctx, "CommentService", "ListCommentViews", attribute.String("article.slug", slug))
	defer func() { observability.EndSpan(span, err) }()

	comments, err := s.ListComments(ctx, slug)
	if err != nil {
		return nil, err
	}

	following := map[uint]bool{}
	if viewerID, ok := viewer.ID(); ok && len(comments) > 0 {
		authorIDs := make([]uint, 0, len(comments))
		seen := map[uint]bool{}
		for _, cm := range comments {
			if !seen[cm.AuthorID] {
				seen[cm.AuthorID] = true
				authorIDs = append(authorIDs, cm.AuthorID)
			}
		}
		ids, err := s.follows.FollowingAmong(ctx, viewerID, authorIDs)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			following[id] = true
		}
	}

	views := make([]models.CommentView, 0, len(comments))
	for _, cm := range comments {
		views = append(views, cm.View(following[cm.AuthorID]))
	}
	return views, nil
}

func (s *CommentService) AddComment(ctx context.Context, authorID uint, slug, body string) (_ *models.Comment, err error) {
	ctx, span := observability.StartSpan(ctx, "CommentService", "AddComment", attribute.String("article.slug", slug))
	defer func() { observability.EndSpan(span, err) }()

	if strings.TrimSpace(body) == "" {
		return nil, models.NewInvalidArgumentError("body is required")
	}

	article, err := s.articles.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		Body:      body,
		ArticleID: article.ID,
		AuthorID:  authorID,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// DeleteComment removes commentID if viewerID authored it.
func (s *CommentService) DeleteComment(ctx context.Context, viewerID, commentID uint) (_ *models.Comment, err error) {
	ctx, span := observability.StartSpan(ctx, "CommentService", "DeleteComment")
	defer func() { observability.EndSpan(span, err) }()

	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	return s.deleteOwned(ctx, viewerID, comment)
}

// DeleteArticleComment is DeleteComment scoped to slug: a comment that belongs
// to another article is reported as not found.
func (s *CommentService) DeleteArticleComment(ctx context.Context, viewerID uint, slug string, commentID uint) (_ *models.Comment, err error) {
	ctx, span := observability.StartSpan(ctx, "CommentService", "DeleteArticleComment", attribute.String("article.slug", slug))
	defer func() { observability.EndSpan(span, err) }()

	article, err := s.articles.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.ArticleID != article.ID {
		return nil, models.NewNotFoundError("comment", commentID)
	}
	return s.deleteOwned(ctx, viewerID, comment)
}

func (s *CommentService) deleteOwned(ctx context.Context, viewerID uint, comment *models.Comment) (*models.Comment, error) {
	if !comment.OwnedBy(viewerID) {
		return nil, models.NewForbiddenError("you can only delete your own comments")
	}
	if err := s.comments.Delete(ctx, comment.ID); err != nil {
		return nil, err
	}
	return comment, nil
}
