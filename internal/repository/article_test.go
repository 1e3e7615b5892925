package repository

import (
	"context"
	"strconv"
	"testing"

	"conduit/internal/cache"
	"conduit/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func slugsOf(articles []*models.Article) []string {
	out := make([]string, len(articles))
	for i, a := range articles {
		out[i] = a.Slug
	}
	return out
}

func TestArticleRepository_ListOrderAndCount(t *testing.T) {
	db := newTestDB(t)
	repo := NewArticleRepository(db, nil)
	ctx := context.Background()

	jake := createUser(t, db, "jake")
	a1 := createArticle(t, db, jake, "first")
	a2 := createArticle(t, db, jake, "second")
	a3 := createArticle(t, db, jake, "third")

	got, total, err := repo.List(ctx, ArticleFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, []string{a3.Slug, a2.Slug}, slugsOf(got))
	assert.Equal(t, "jake", got[0].Author.Username)

	got, total, err = repo.List(ctx, ArticleFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, []string{a1.Slug}, slugsOf(got))

	got, total, err = repo.List(ctx, ArticleFilter{Limit: 2, Offset: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Empty(t, got)
}

func TestArticleRepository_ListFilters(t *testing.T) {
	db := newTestDB(t)
	repo := NewArticleRepository(db, nil)
	favs := NewFavoriteRepository(db)
	follows := NewFollowRepository(db)
	ctx := context.Background()

	jake := createUser(t, db, "jake")
	anne := createUser(t, db, "anne")
	bob := createUser(t, db, "bob")
	dragons := createArticle(t, db, jake, "dragons", "dragons", "fantasy")
	train := createArticle(t, db, jake, "training", "training")
	anneDragons := createArticle(t, db, anne, "more-dragons", "baby-dragons")
	createArticle(t, db, anne, "wildcards", "100_percent")

	for _, id := range []uint{dragons.ID, anneDragons.ID} {
		_, err := favs.Add(ctx, bob.ID, id)
		require.NoError(t, err)
	}
	_, err := follows.Follow(ctx, bob.ID, anne.ID)
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter ArticleFilter
		want   []string
		total  int64
	}{
		{"author", ArticleFilter{AuthorUsername: "jake"}, []string{train.Slug, dragons.Slug}, 2},
		{"unknown author", ArticleFilter{AuthorUsername: "nobody"}, []string{}, 0},
		{"tag substring", ArticleFilter{Tag: "drag"}, []string{anneDragons.Slug, dragons.Slug}, 2},
		{"tag and author", ArticleFilter{Tag: "drag", AuthorUsername: "anne"}, []string{anneDragons.Slug}, 1},
		{"percent is literal", ArticleFilter{Tag: "%"}, []string{}, 0},
		{"underscore is literal", ArticleFilter{Tag: "0_p"}, nil, 1},
		{"favorited by", ArticleFilter{FavoritedByUserID: bob.ID}, []string{anneDragons.Slug, dragons.Slug}, 2},
		{"favorited by nobody", ArticleFilter{FavoritedByUserID: jake.ID}, []string{}, 0},
		{"favorited and tagged", ArticleFilter{FavoritedByUserID: bob.ID, Tag: "fantasy"}, []string{dragons.Slug}, 1},
		{"followed by", ArticleFilter{FollowedByUserID: bob.ID}, nil, 2},
		{"followed by nobody", ArticleFilter{FollowedByUserID: anne.ID}, []string{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.filter.Limit = 20
			got, total, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.total, total)
			assert.Len(t, got, int(tt.total))
			if tt.want != nil {
				assert.Equal(t, tt.want, slugsOf(got))
			}
		})
	}
}

func TestArticleRepository_TagsKeepOrder(t *testing.T) {
	db := newTestDB(t)
	repo := NewArticleRepository(db, nil)
	ctx := context.Background()

	jake := createUser(t, db, "jake")
	a := createArticle(t, db, jake, "ordered", "zeta", "alpha", "mid")

	got, err := repo.GetBySlug(ctx, a.Slug)
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, got.TagList)

	tags, err := repo.ListTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, tags)
}

func TestArticleRepository_DuplicateSlugIsConflict(t *testing.T) {
	db := newTestDB(t)
	repo := NewArticleRepository(db, nil)
	jake := createUser(t, db, "jake")
	a := createArticle(t, db, jake, "dup")

	err := repo.Create(context.Background(), &models.Article{Slug: a.Slug, Title: "dup", AuthorID: jake.ID})
	assert.True(t, models.IsConflict(err))
}

func TestArticleRepository_UpdateTouchesOnlyEditableColumns(t *testing.T) {
	db := newTestDB(t)
	repo := NewArticleRepository(db, nil)
	favs := NewFavoriteRepository(db)
	ctx := context.Background()

	jake := createUser(t, db, "jake")
	anne := createUser(t, db, "anne")
	a := createArticle(t, db, jake, "original")
	_, err := favs.Add(ctx, anne.ID, a.ID)
	require.NoError(t, err)

	loaded, err := repo.GetBySlug(ctx, a.Slug)
	require.NoError(t, err)
	previous := loaded.Slug
	loaded.Title = "renamed"
	loaded.Slug = "renamed-aaaaaa"
	loaded.AuthorID = anne.ID
	loaded.FavoritesCount = 99
	require.NoError(t, repo.Update(ctx, loaded, previous))

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, "renamed-aaaaaa", got.Slug)
	assert.Equal(t, jake.ID, got.AuthorID)
	assert.Equal(t, 1, got.FavoritesCount)

	_, err = repo.GetBySlug(ctx, previous)
	assert.True(t, models.IsNotFound(err))
}

func TestArticleRepository_DeleteCascades(t *testing.T) {
	db := newTestDB(t)
	repo := NewArticleRepository(db, nil)
	favs := NewFavoriteRepository(db)
	comments := NewCommentRepository(db)
	ctx := context.Background()

	jake := createUser(t, db, "jake")
	anne := createUser(t, db, "anne")
	a := createArticle(t, db, jake, "doomed", "gone")
	_, err := favs.Add(ctx, anne.ID, a.ID)
	require.NoError(t, err)
	require.NoError(t, comments.Create(ctx, &models.Comment{Body: "hi", ArticleID: a.ID, AuthorID: anne.ID}))

	require.NoError(t, repo.Delete(ctx, a))

	_, err = repo.GetByID(ctx, a.ID)
	assert.True(t, models.IsNotFound(err))

	var n int64
	require.NoError(t, db.Model(&models.Comment{}).Where("article_id = ?", a.ID).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&models.Favorite{}).Where("article_id = ?", a.ID).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&models.ArticleTag{}).Where("article_id = ?", a.ID).Count(&n).Error)
	assert.Zero(t, n)

	assert.True(t, models.IsNotFound(repo.Delete(ctx, a)))
}

func newCachedArticleRepo(t *testing.T, db *gorm.DB) (ArticleRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewArticleRepository(db, cache.New(client)), mr
}

func TestArticleRepository_GetBySlugCachesOnlyTheID(t *testing.T) {
	db := newTestDB(t)
	repo, mr := newCachedArticleRepo(t, db)
	ctx := context.Background()

	jake := createUser(t, db, "jake")
	a := createArticle(t, db, jake, "cached", "go")

	_, err := repo.GetBySlug(ctx, a.Slug)
	require.NoError(t, err)
	raw, err := mr.Get(cache.ArticleKey(a.Slug))
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatUint(uint64(a.ID), 10), raw)

	// The row is read on every call, so direct writes show up at once.
	require.NoError(t, db.Model(&models.Article{}).Where("id = ?", a.ID).
		Updates(map[string]any{"title": "changed", "favorites_count": 7}).Error)
	got, err := repo.GetBySlug(ctx, a.Slug)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, "changed", got.Title)
	assert.Equal(t, 7, got.FavoritesCount)
	assert.Equal(t, []string{"go"}, got.TagList)
	assert.Equal(t, "jake", got.Author.Username)

	require.NoError(t, repo.Delete(ctx, got))
	assert.False(t, mr.Exists(cache.ArticleKey(a.Slug)))
	_, err = repo.GetBySlug(ctx, a.Slug)
	assert.True(t, models.IsNotFound(err))
}

func TestArticleRepository_GetBySlugSeesAuthorRename(t *testing.T) {
	db := newTestDB(t)
	repo, _ := newCachedArticleRepo(t, db)
	ctx := context.Background()

	jake := createUser(t, db, "jake")
	a := createArticle(t, db, jake, "renamed-author")

	got, err := repo.GetBySlug(ctx, a.Slug)
	require.NoError(t, err)
	assert.Equal(t, "jake", got.Author.Username)

	require.NoError(t, db.Model(&models.User{}).Where("id = ?", jake.ID).Update("username", "jacob").Error)

	got, err = repo.GetBySlug(ctx, a.Slug)
	require.NoError(t, err)
	assert.Equal(t, "jacob", got.Author.Username)
}

func TestArticleRepository_GetBySlugRepairsStaleMapping(t *testing.T) {
	db := newTestDB(t)
	repo, mr := newCachedArticleRepo(t, db)
	ctx := context.Background()

	jake := createUser(t, db, "jake")
	a := createArticle(t, db, jake, "wanted")
	other := createArticle(t, db, jake, "other")

	require.NoError(t, mr.Set(cache.ArticleKey(a.Slug), strconv.FormatUint(uint64(other.ID), 10)))
	got, err := repo.GetBySlug(ctx, a.Slug)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.False(t, mr.Exists(cache.ArticleKey(a.Slug)))

	require.NoError(t, mr.Set(cache.ArticleKey(a.Slug), "999999"))
	got, err = repo.GetBySlug(ctx, a.Slug)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
}

// A favorite committed between the cache fill and the next read must still be
// reflected in favoritesCount.
func TestArticleRepository_FavoriteDuringCacheFill(t *testing.T) {
	db := newTestDB(t)
	repo, _ := newCachedArticleRepo(t, db)
	favs := NewFavoriteRepository(db)
	ctx := context.Background()

	jake := createUser(t, db, "jake")
	anne := createUser(t, db, "anne")
	a := createArticle(t, db, jake, "contended")

	var fired bool
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:favorite_during_fill", func(tx *gorm.DB) {
		if fired || tx.Statement.Schema == nil || tx.Statement.Schema.Table != "articles" {
			return
		}
		fired = true
		_, err := favs.Add(ctx, anne.ID, a.ID)
		require.NoError(t, err)
		_, err = repo.Reload(ctx, a)
		require.NoError(t, err)
	}))

	first, err := repo.GetBySlug(ctx, a.Slug)
	require.NoError(t, err)
	require.True(t, fired)

	second, err := repo.GetBySlug(ctx, a.Slug)
	require.NoError(t, err)

	count, err := favs.CountByArticle(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, int(count), first.FavoritesCount)
	assert.Equal(t, int(count), second.FavoritesCount)
}

func TestArticleRepository_FavoritedFilterUsesSubquery(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewArticleRepository(db, nil)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "articles" WHERE articles\.id IN \(SELECT .*article_id.* FROM "favorites" WHERE user_id = \$1\)`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	got, total, err := repo.List(context.Background(), ArticleFilter{FavoritedByUserID: 7, Limit: 20})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}
