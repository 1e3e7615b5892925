package repository

import (
	"context"
	"log/slog"

	"conduit/internal/cache"
	"conduit/internal/models"
	"conduit/internal/observability"

	"gorm.io/gorm"
)

// ArticleFilter narrows an article listing. Non-zero filters are ANDed.
// FavoritedByUserID keeps articles that user favorited; FollowedByUserID
// keeps articles whose author that user follows.
type ArticleFilter struct {
	AuthorUsername    string
	Tag               string
	FavoritedByUserID uint
	FollowedByUserID  uint
	Limit             int
	Offset            int
}

// ArticleRepository defines the interface for article data operations
type ArticleRepository interface {
	Create(ctx context.Context, article *models.Article) error
	GetBySlug(ctx context.Context, slug string) (*models.Article, error)
	GetByID(ctx context.Context, id uint) (*models.Article, error)
	Reload(ctx context.Context, article *models.Article) (*models.Article, error)
	List(ctx context.Context, filter ArticleFilter) ([]*models.Article, int64, error)
	Update(ctx context.Context, article *models.Article, previousSlug string) error
	Delete(ctx context.Context, article *models.Article) error
	ListTags(ctx context.Context) ([]string, error)
}

type articleRepository struct {
	db    *gorm.DB
	cache *cache.Cache
	log   *observability.RepoLogger
}

// NewArticleRepository creates a new article repository. c may be nil.
func NewArticleRepository(db *gorm.DB, c *cache.Cache) ArticleRepository {
	return &articleRepository{db: db, cache: c, log: observability.NewRepoLogger("articles")}
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").Preload("Tags", func(db *gorm.DB) *gorm.DB {
		return db.Order("article_tags.position ASC")
	})
}

func (r *articleRepository) Create(ctx context.Context, article *models.Article) error {
	if err := r.db.WithContext(ctx).Create(article).Error; err != nil {
		return translate(err, "article", article.Slug)
	}
	r.cache.Invalidate(ctx, cache.TagsKey)
	return nil
}

// GetBySlug resolves slug to an id through the cache and loads the row from
// the primary. Only the slug mapping is cached, so favoritesCount and the
// embedded author are current on every call. A mapping that no longer
// points at slug is dropped and the lookup retried without the cache.
func (r *articleRepository) GetBySlug(ctx context.Context, slug string) (*models.Article, error) {
	var id uint
	err := r.cache.Aside(ctx, cache.ArticleKey(slug), &id, cache.ArticleTTL, func() error {
		var row struct{ ID uint }
		if err := r.db.WithContext(ctx).
			Model(&models.Article{}).
			Select("id").
			Where("slug = ?", slug).
			Take(&row).Error; err != nil {
			return err
		}
		id = row.ID
		return nil
	})
	if err != nil {
		return nil, translate(err, "article", slug)
	}

	article, err := r.GetByID(ctx, id)
	switch {
	case err == nil && article.Slug == slug:
		return article, nil
	case err != nil && !models.IsNotFound(err):
		return nil, err
	}

	r.cache.Invalidate(ctx, cache.ArticleKey(slug))
	var fresh models.Article
	if err := withDetails(r.db.WithContext(ctx)).Where("slug = ?", slug).First(&fresh).Error; err != nil {
		return nil, translate(err, "article", slug)
	}
	return &fresh, nil
}

// GetByID always reads the primary so callers observe their own writes.
func (r *articleRepository) GetByID(ctx context.Context, id uint) (*models.Article, error) {
	var article models.Article
	if err := withDetails(r.db.WithContext(ctx)).First(&article, id).Error; err != nil {
		return nil, translate(err, "article", id)
	}
	return &article, nil
}

// Reload re-reads article from the primary, picking up counter changes.
func (r *articleRepository) Reload(ctx context.Context, article *models.Article) (*models.Article, error) {
	return r.GetByID(ctx, article.ID)
}

func (r *articleRepository) filterScope(f ArticleFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.AuthorUsername != "" {
			authors := db.Session(&gorm.Session{NewDB: true}).
				Model(&models.User{}).
				Select("id").
				Where("username = ?", f.AuthorUsername)
			db = db.Where("articles.author_id IN (?)", authors)
		}
		if f.Tag != "" {
			db = db.Where(`EXISTS (SELECT 1 FROM article_tags WHERE article_tags.article_id = articles.id AND article_tags.name LIKE ? ESCAPE '\')`,
				containsPattern(f.Tag))
		}
		if f.FavoritedByUserID != 0 {
			favorited := db.Session(&gorm.Session{NewDB: true}).
				Model(&models.Favorite{}).
				Select("article_id").
				Where("user_id = ?", f.FavoritedByUserID)
			db = db.Where("articles.id IN (?)", favorited)
		}
		if f.FollowedByUserID != 0 {
			followees := db.Session(&gorm.Session{NewDB: true}).
				Model(&models.Follow{}).
				Select("following_id").
				Where("follower_id = ?", f.FollowedByUserID)
			db = db.Where("articles.author_id IN (?)", followees)
		}
		return db
	}
}

func (r *articleRepository) List(ctx context.Context, f ArticleFilter) ([]*models.Article, int64, error) {
	articles := []*models.Article{}
	db := readDB(r.db).WithContext(ctx)
	scope := r.filterScope(f)

	var total int64
	if err := db.Model(&models.Article{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 || f.Offset >= int(total) {
		return articles, total, nil
	}

	err := withDetails(db.Model(&models.Article{})).
		Scopes(scope).
		Order("articles.created_at DESC").
		Order("articles.id DESC").
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&articles).Error
	if err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

// Update writes only the editable columns; author and counters are never touched.
func (r *articleRepository) Update(ctx context.Context, article *models.Article, previousSlug string) error {
	err := r.db.WithContext(ctx).
		Model(article).
		Select("title", "description", "body", "slug", "updated_at").
		Updates(article).Error
	if err != nil {
		return translate(err, "article", article.Slug)
	}
	r.cache.Invalidate(ctx, cache.ArticleKey(previousSlug), cache.ArticleKey(article.Slug))
	r.log.LogUpdate(ctx, slog.Uint64("article_id", uint64(article.ID)))
	return nil
}

// Delete removes the article together with its comments, favorites and tags.
func (r *articleRepository) Delete(ctx context.Context, article *models.Article) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("article_id = ?", article.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("article_id = ?", article.ID).Delete(&models.Favorite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("article_id = ?", article.ID).Delete(&models.ArticleTag{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Article{}, article.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		r.log.LogError(ctx, err, "delete", slog.Uint64("article_id", uint64(article.ID)))
		return translate(err, "article", article.Slug)
	}
	r.cache.InvalidateArticle(ctx, article.Slug)
	r.log.LogDelete(ctx, slog.Uint64("article_id", uint64(article.ID)), slog.String("slug", article.Slug))
	return nil
}

func (r *articleRepository) ListTags(ctx context.Context) ([]string, error) {
	tags := []string{}
	err := r.cache.Aside(ctx, cache.TagsKey, &tags, cache.TagsTTL, func() error {
		return readDB(r.db).WithContext(ctx).
			Model(&models.ArticleTag{}).
			Distinct().
			Order("name ASC").
			Pluck("name", &tags).Error
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}
