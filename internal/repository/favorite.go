package repository

import (
	"context"
	"log/slog"

	"conduit/internal/models"
	"conduit/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FavoriteRepository defines the interface for favorite data operations.
// Add and Remove keep articles.favorites_count equal to the number of
// favorites rows for the article.
type FavoriteRepository interface {
	Add(ctx context.Context, userID, articleID uint) (bool, error)
	Remove(ctx context.Context, userID, articleID uint) (bool, error)
	IsFavorited(ctx context.Context, userID, articleID uint) (bool, error)
	FavoritedAmong(ctx context.Context, userID uint, articleIDs []uint) ([]uint, error)
	HasAny(ctx context.Context, userID uint) (bool, error)
	CountByArticle(ctx context.Context, articleID uint) (int64, error)
}

type favoriteRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewFavoriteRepository creates a new favorite repository
func NewFavoriteRepository(db *gorm.DB) FavoriteRepository {
	return &favoriteRepository{db: db, log: observability.NewRepoLogger("favorites")}
}

func adjustFavoritesCount(tx *gorm.DB, articleID uint, delta int) error {
	return tx.Model(&models.Article{}).
		Where("id = ?", articleID).
		UpdateColumn("favorites_count", gorm.Expr("favorites_count + ?", delta)).Error
}

// Add inserts the favorite and, only if a row was inserted, increments the
// counter in the same transaction. It reports whether a row was inserted.
func (r *favoriteRepository) Add(ctx context.Context, userID, articleID uint) (bool, error) {
	var added bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Favorite{UserID: userID, ArticleID: articleID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		added = true
		return adjustFavoritesCount(tx, articleID, 1)
	})
	if err != nil {
		r.log.LogError(ctx, err, "create", slog.Uint64("article_id", uint64(articleID)))
		return false, err
	}
	observability.RecordFavoriteToggle("add", added)
	if added {
		r.log.LogCreate(ctx, slog.Uint64("user_id", uint64(userID)), slog.Uint64("article_id", uint64(articleID)))
	}
	return added, nil
}

// Remove deletes the favorite and, only if a row was deleted, decrements the
// counter in the same transaction. It reports whether a row was deleted.
func (r *favoriteRepository) Remove(ctx context.Context, userID, articleID uint) (bool, error) {
	var removed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND article_id = ?", userID, articleID).Delete(&models.Favorite{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		return adjustFavoritesCount(tx, articleID, -1)
	})
	if err != nil {
		r.log.LogError(ctx, err, "delete", slog.Uint64("article_id", uint64(articleID)))
		return false, err
	}
	observability.RecordFavoriteToggle("remove", removed)
	if removed {
		r.log.LogDelete(ctx, slog.Uint64("user_id", uint64(userID)), slog.Uint64("article_id", uint64(articleID)))
	}
	return removed, nil
}

func (r *favoriteRepository) IsFavorited(ctx context.Context, userID, articleID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Favorite{}).
		Where("user_id = ? AND article_id = ?", userID, articleID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *favoriteRepository) FavoritedAmong(ctx context.Context, userID uint, articleIDs []uint) ([]uint, error) {
	if len(articleIDs) == 0 {
		return nil, nil
	}
	var ids []uint
	err := readDB(r.db).WithContext(ctx).
		Model(&models.Favorite{}).
		Where("user_id = ? AND article_id IN ?", userID, articleIDs).
		Pluck("article_id", &ids).Error
	return ids, err
}

// HasAny reports whether userID has favorited at least one article.
func (r *favoriteRepository) HasAny(ctx context.Context, userID uint) (bool, error) {
	var ids []uint
	err := readDB(r.db).WithContext(ctx).
		Model(&models.Favorite{}).
		Where("user_id = ?", userID).
		Limit(1).
		Pluck("article_id", &ids).Error
	return len(ids) > 0, err
}

func (r *favoriteRepository) CountByArticle(ctx context.Context, articleID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Favorite{}).
		Where("article_id = ?", articleID).
		Count(&count).Error
	return count, err
}
