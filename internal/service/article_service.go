package service

import (
	"context"
	"strings"

	"conduit/internal/models"
	"conduit/internal/observability"
	"conduit/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const maxSlugAttempts = 5

// ArticleQuery holds the optional listing filters. Empty fields do not filter.
type ArticleQuery struct {
	Author      string
	Tag         string
	FavoritedBy string
}

// ArticleFields carries article content. Nil fields are left unchanged on update.
type ArticleFields struct {
	Title       *string
	Description *string
	Body        *string
	TagList     []string
}

type ArticleService struct {
	articles  repository.ArticleRepository
	favorites repository.FavoriteRepository
	follows   repository.FollowRepository
	users     repository.UserRepository
	newSlug   func(title string) string
}

func NewArticleService(
	articles repository.ArticleRepository,
	favorites repository.FavoriteRepository,
	follows repository.FollowRepository,
	users repository.UserRepository,
) *ArticleService {
	return &ArticleService{
		articles:  articles,
		favorites: favorites,
		follows:   follows,
		users:     users,
		newSlug:   slugify,
	}
}

// ListArticles returns one page of articles matching q, newest first, with
// favorited and following computed for viewer.
func (s *ArticleService) ListArticles(ctx context.Context, viewer models.Viewer, q ArticleQuery, page Page) (_ *models.ArticlePage, err error) {
	ctx, span := observability.StartSpan(ctx, "ArticleService", "ListArticles",
		attribute.String("query.author", q.Author),
		attribute.String("query.tag", q.Tag),
		attribute.String("query.favorited", q.FavoritedBy),
	)
	defer func() { observability.EndSpan(span, err) }()

	page, err = page.normalize()
	if err != nil {
		return nil, err
	}

	filter := repository.ArticleFilter{
		AuthorUsername: q.Author,
		Tag:            q.Tag,
		Limit:          page.Limit,
		Offset:         page.Offset,
	}

	if q.FavoritedBy != "" {
		user, err := s.users.GetByUsername(ctx, q.FavoritedBy)
		if models.IsNotFound(err) {
			return models.EmptyArticlePage(), nil
		}
		if err != nil {
			return nil, err
		}
		has, err := s.favorites.HasAny(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		if !has {
			return models.EmptyArticlePage(), nil
		}
		filter.FavoritedByUserID = user.ID
	}

	return s.listPage(ctx, viewer, filter)
}

// Feed returns articles authored by users viewerID follows, newest first.
func (s *ArticleService) Feed(ctx context.Context, viewerID uint, page Page) (_ *models.ArticlePage, err error) {
	ctx, span := observability.StartSpan(ctx, "ArticleService", "Feed")
	defer func() { observability.EndSpan(span, err) }()

	page, err = page.normalize()
	if err != nil {
		return nil, err
	}

	following, err := s.follows.FollowsAnyone(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if !following {
		return models.EmptyArticlePage(), nil
	}

	return s.listPage(ctx, models.ViewerOf(viewerID), repository.ArticleFilter{
		FollowedByUserID: viewerID,
		Limit:            page.Limit,
		Offset:           page.Offset,
	})
}

func (s *ArticleService) listPage(ctx context.Context, viewer models.Viewer, filter repository.ArticleFilter) (*models.ArticlePage, error) {
	articles, total, err := s.articles.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	views, err := s.buildViews(ctx, viewer, articles)
	if err != nil {
		return nil, err
	}
	return &models.ArticlePage{Articles: views, Count: total}, nil
}

// buildViews resolves favorited and following for a whole page with one
// lookup each. Anonymous viewers trigger no lookups.
func (s *ArticleService) buildViews(ctx context.Context, viewer models.Viewer, articles []*models.Article) ([]models.ArticleView, error) {
	views := make([]models.ArticleView, 0, len(articles))
	favorited := map[uint]bool{}
	following := map[uint]bool{}

	if userID, ok := viewer.ID(); ok && len(articles) > 0 {
		articleIDs := make([]uint, 0, len(articles))
		authorIDs := make([]uint, 0, len(articles))
		seenAuthor := map[uint]bool{}
		for _, a := range articles {
			articleIDs = append(articleIDs, a.ID)
			if !seenAuthor[a.AuthorID] {
				seenAuthor[a.AuthorID] = true
				authorIDs = append(authorIDs, a.AuthorID)
			}
		}

		favIDs, err := s.favorites.FavoritedAmong(ctx, userID, articleIDs)
		if err != nil {
			return nil, err
		}
		for _, id := range favIDs {
			favorited[id] = true
		}

		followIDs, err := s.follows.FollowingAmong(ctx, userID, authorIDs)
		if err != nil {
			return nil, err
		}
		for _, id := range followIDs {
			following[id] = true
		}
	}

	for _, a := range articles {
		views = append(views, a.View(favorited[a.ID], following[a.AuthorID]))
	}
	return views, nil
}

func (s *ArticleService) singleView(ctx context.Context, viewer models.Viewer, article *models.Article) (*models.ArticleView, error) {
	views, err := s.buildViews(ctx, viewer, []*models.Article{article})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// GetArticle returns the article stored under slug as seen by viewer.
func (s *ArticleService) GetArticle(ctx context.Context, viewer models.Viewer, slug string) (_ *models.ArticleView, err error) {
	ctx, span := observability.StartSpan(ctx, "ArticleService", "GetArticle", attribute.String("article.slug", slug))
	defer func() { observability.EndSpan(span, err) }()

	article, err := s.articles.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.singleView(ctx, viewer, article)
}

func requireText(field string, v *string) (string, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return "", models.NewInvalidArgumentError(field + " is required")
	}
	return *v, nil
}

// CreateArticle stores a new article owned by authorID under a freshly
// generated slug, retrying generation on a slug collision.
func (s *ArticleService) CreateArticle(ctx context.Context, authorID uint, fields ArticleFields) (_ *models.ArticleView, err error) {
	ctx, span := observability.StartSpan(ctx, "ArticleService", "CreateArticle")
	defer func() { observability.EndSpan(span, err) }()

	title, err := requireText("title", fields.Title)
	if err != nil {
		return nil, err
	}
	description, err := requireText("description", fields.Description)
	if err != nil {
		return nil, err
	}
	body, err := requireText("body", fields.Body)
	if err != nil {
		return nil, err
	}

	tags := fields.TagList
	if tags == nil {
		tags = []string{}
	}

	for range maxSlugAttempts {
		article := &models.Article{
			Slug:        s.newSlug(title),
			Title:       title,
			Description: description,
			Body:        body,
			AuthorID:    authorID,
		}
		article.SetTags(tags)

		err = s.articles.Create(ctx, article)
		if models.IsConflict(err) {
			continue
		}
		if err != nil {
			return nil, err
		}

		created, err := s.articles.GetByID(ctx, article.ID)
		if err != nil {
			return nil, err
		}
		view := created.View(false, false)
		return &view, nil
	}
	return nil, models.NewConflictError("could not allocate a unique slug", err)
}

// UpdateArticle applies the non-nil title, description and body to article.
// The slug is regenerated only when the title changes. Callers must have
// checked ownership with AuthorizeArticle.
func (s *ArticleService) UpdateArticle(ctx context.Context, article *models.Article, fields ArticleFields) (_ *models.ArticleView, err error) {
	ctx, span := observability.StartSpan(ctx, "ArticleService", "UpdateArticle", attribute.String("article.slug", article.Slug))
	defer func() { observability.EndSpan(span, err) }()

	titleChanged := false
	if fields.Title != nil {
		title, err := requireText("title", fields.Title)
		if err != nil {
			return nil, err
		}
		titleChanged = title != article.Title
		article.Title = title
	}
	if fields.Description != nil {
		article.Description = *fields.Description
	}
	if fields.Body != nil {
		article.Body = *fields.Body
	}

	previousSlug := article.Slug
	for range maxSlugAttempts {
		if titleChanged {
			article.Slug = s.newSlug(article.Title)
		}
		err = s.articles.Update(ctx, article, previousSlug)
		if models.IsConflict(err) && titleChanged {
			continue
		}
		if err != nil {
			return nil, err
		}

		updated, err := s.articles.GetByID(ctx, article.ID)
		if err != nil {
			return nil, err
		}
		return s.singleView(ctx, models.ViewerOf(article.AuthorID), updated)
	}
	return nil, models.NewConflictError("could not allocate a unique slug", err)
}

// DeleteArticle removes article with its comments and favorites. Callers
// must have checked ownership with AuthorizeArticle.
func (s *ArticleService) DeleteArticle(ctx context.Context, article *models.Article) (err error) {
	ctx, span := observability.StartSpan(ctx, "ArticleService", "DeleteArticle", attribute.String("article.slug", article.Slug))
	defer func() { observability.EndSpan(span, err) }()

	return s.articles.Delete(ctx, article)
}

// AuthorizeArticle resolves slug and checks that actorID authored it.
func (s *ArticleService) AuthorizeArticle(ctx context.Context, actorID uint, slug string) (*models.Article, error) {
	article, err := s.articles.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !article.OwnedBy(actorID) {
		return nil, models.NewForbiddenError("you are not the author of this article")
	}
	return article, nil
}

// AddFavorite marks slug as favorited by viewerID. Repeating it is a no-op.
func (s *ArticleService) AddFavorite(ctx context.Context, viewerID uint, slug string) (*models.ArticleView, error) {
	return s.toggleFavorite(ctx, viewerID, slug, true)
}

// RemoveFavorite clears viewerID's favorite on slug. Repeating it is a no-op.
func (s *ArticleService) RemoveFavorite(ctx context.Context, viewerID uint, slug string) (*models.ArticleView, error) {
	return s.toggleFavorite(ctx, viewerID, slug, false)
}

func (s *ArticleService) toggleFavorite(ctx context.Context, viewerID uint, slug string, favorite bool) (_ *models.ArticleView, err error) {
	method := "RemoveFavorite"
	if favorite {
		method = "AddFavorite"
	}
	ctx, span := observability.StartSpan(ctx, "ArticleService", method, attribute.String("article.slug", slug))
	defer func() { observability.EndSpan(span, err) }()

	article, err := s.articles.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if favorite {
		_, err = s.favorites.Add(ctx, viewerID, article.ID)
	} else {
		_, err = s.favorites.Remove(ctx, viewerID, article.ID)
	}
	if err != nil {
		return nil, err
	}

	fresh, err := s.articles.Reload(ctx, article)
	if err != nil {
		return nil, err
	}

	following := false
	if fresh.AuthorID != viewerID {
		following, err = s.follows.IsFollowing(ctx, viewerID, fresh.AuthorID)
		if err != nil {
			return nil, err
		}
	}
	view := fresh.View(favorite, following)
	return &view, nil
}

// ListTags returns every distinct tag in use, sorted.
func (s *ArticleService) ListTags(ctx context.Context) ([]string, error) {
	return s.articles.ListTags(ctx)
}
