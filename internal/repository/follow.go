package repository

import (
	"context"
	"log/slog"

	"conduit/internal/models"
	"conduit/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository defines the interface for follow graph operations
type FollowRepository interface {
	Follow(ctx context.Context, followerID, followingID uint) (bool, error)
	Unfollow(ctx context.Context, followerID, followingID uint) (bool, error)
	IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error)
	FollowsAnyone(ctx context.Context, followerID uint) (bool, error)
	FollowingAmong(ctx context.Context, followerID uint, candidateIDs []uint) ([]uint, error)
}

type followRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db, log: observability.NewRepoLogger("follows")}
}

// Follow adds the edge if absent and reports whether it was added.
func (r *followRepository) Follow(ctx context.Context, followerID, followingID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Follow{FollowerID: followerID, FollowingID: followingID})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "create", slog.Uint64("following_id", uint64(followingID)))
		return false, res.Error
	}
	added := res.RowsAffected > 0
	observability.RecordFollowChange("follow", added)
	if added {
		r.log.LogCreate(ctx, slog.Uint64("follower_id", uint64(followerID)), slog.Uint64("following_id", uint64(followingID)))
	}
	return added, nil
}

// Unfollow removes the edge if present and reports whether it was removed.
func (r *followRepository) Unfollow(ctx context.Context, followerID, followingID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "delete", slog.Uint64("following_id", uint64(followingID)))
		return false, res.Error
	}
	removed := res.RowsAffected > 0
	observability.RecordFollowChange("unfollow", removed)
	if removed {
		r.log.LogDelete(ctx, slog.Uint64("follower_id", uint64(followerID)), slog.Uint64("following_id", uint64(followingID)))
	}
	return removed, nil
}

func (r *followRepository) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	var count int64
	err := readDB(r.db).WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	return count > 0, err
}

// FollowsAnyone reports whether followerID follows at least one user.
func (r *followRepository) FollowsAnyone(ctx context.Context, followerID uint) (bool, error) {
	var ids []uint
	err := readDB(r.db).WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ?", followerID).
		Limit(1).
		Pluck("following_id", &ids).Error
	return len(ids) > 0, err
}

func (r *followRepository) FollowingAmong(ctx context.Context, followerID uint, candidateIDs []uint) ([]uint, error) {
	if len(candidateIDs) == 0 {
		return nil, nil
	}
	var ids []uint
	err := readDB(r.db).WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ? AND following_id IN ?", followerID, candidateIDs).
		Pluck("following_id", &ids).Error
	return ids, err
}
