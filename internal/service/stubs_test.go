package service

import (
	"context"
	"testing"

	"conduit/internal/models"
	"conduit/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// articleRepoStub is a stub for repository.ArticleRepository.
type articleRepoStub struct {
	createFn    func(context.Context, *models.Article) error
	getBySlugFn func(context.Context, string) (*models.Article, error)
	getByIDFn   func(context.Context, uint) (*models.Article, error)
	reloadFn    func(context.Context, *models.Article) (*models.Article, error)
	listFn      func(context.Context, repository.ArticleFilter) ([]*models.Article, int64, error)
	updateFn    func(context.Context, *models.Article, string) error
	deleteFn    func(context.Context, *models.Article) error
	listTagsFn  func(context.Context) ([]string, error)

	listCalls int
}

func (s *articleRepoStub) Create(ctx context.Context, a *models.Article) error {
	return s.createFn(ctx, a)
}
func (s *articleRepoStub) GetBySlug(ctx context.Context, slug string) (*models.Article, error) {
	return s.getBySlugFn(ctx, slug)
}
func (s *articleRepoStub) GetByID(ctx context.Context, id uint) (*models.Article, error) {
	return s.getByIDFn(ctx, id)
}
func (s *articleRepoStub) Reload(ctx context.Context, a *models.Article) (*models.Article, error) {
	return s.reloadFn(ctx, a)
}
func (s *articleRepoStub) List(ctx context.Context, f repository.ArticleFilter) ([]*models.Article, int64, error) {
	s.listCalls++
	return s.listFn(ctx, f)
}
func (s *articleRepoStub) Update(ctx context.Context, a *models.Article, previousSlug string) error {
	return s.updateFn(ctx, a, previousSlug)
}
func (s *articleRepoStub) Delete(ctx context.Context, a *models.Article) error {
	return s.deleteFn(ctx, a)
}
func (s *articleRepoStub) ListTags(ctx context.Context) ([]string, error) {
	return s.listTagsFn(ctx)
}

func noopArticleRepo() *articleRepoStub {
	return &articleRepoStub{
		createFn: func(_ context.Context, _ *models.Article) error { return nil },
		getBySlugFn: func(_ context.Context, slug string) (*models.Article, error) {
			return nil, models.NewNotFoundError("article", slug)
		},
		getByIDFn: func(_ context.Context, id uint) (*models.Article, error) {
			return &models.Article{ID: id}, nil
		},
		reloadFn: func(_ context.Context, a *models.Article) (*models.Article, error) { return a, nil },
		listFn: func(_ context.Context, _ repository.ArticleFilter) ([]*models.Article, int64, error) {
			return []*models.Article{}, 0, nil
		},
		updateFn:   func(_ context.Context, _ *models.Article, _ string) error { return nil },
		deleteFn:   func(_ context.Context, _ *models.Article) error { return nil },
		listTagsFn: func(_ context.Context) ([]string, error) { return []string{}, nil },
	}
}

// favoriteRepoStub is a stub for repository.FavoriteRepository.
type favoriteRepoStub struct {
	addFn            func(context.Context, uint, uint) (bool, error)
	removeFn         func(context.Context, uint, uint) (bool, error)
	isFavoritedFn    func(context.Context, uint, uint) (bool, error)
	favoritedAmongFn func(context.Context, uint, []uint) ([]uint, error)
	hasAnyFn         func(context.Context, uint) (bool, error)

	amongCalls int
}

func (s *favoriteRepoStub) Add(ctx context.Context, userID, articleID uint) (bool, error) {
	return s.addFn(ctx, userID, articleID)
}
func (s *favoriteRepoStub) Remove(ctx context.Context, userID, articleID uint) (bool, error) {
	return s.removeFn(ctx, userID, articleID)
}
func (s *favoriteRepoStub) IsFavorited(ctx context.Context, userID, articleID uint) (bool, error) {
	return s.isFavoritedFn(ctx, userID, articleID)
}
func (s *favoriteRepoStub) FavoritedAmong(ctx context.Context, userID uint, ids []uint) ([]uint, error) {
	s.amongCalls++
	return s.favoritedAmongFn(ctx, userID, ids)
}
func (s *favoriteRepoStub) HasAny(ctx context.Context, userID uint) (bool, error) {
	return s.hasAnyFn(ctx, userID)
}
func (s *favoriteRepoStub) CountByArticle(_ context.Context, _ uint) (int64, error) {
	return 0, nil
}

func noopFavoriteRepo() *favoriteRepoStub {
	return &favoriteRepoStub{
		addFn:            func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		removeFn:         func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		isFavoritedFn:    func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
		favoritedAmongFn: func(_ context.Context, _ uint, _ []uint) ([]uint, error) { return nil, nil },
		hasAnyFn:         func(_ context.Context, _ uint) (bool, error) { return false, nil },
	}
}

// followRepoStub is a stub for repository.FollowRepository.
type followRepoStub struct {
	followFn         func(context.Context, uint, uint) (bool, error)
	unfollowFn       func(context.Context, uint, uint) (bool, error)
	isFollowingFn    func(context.Context, uint, uint) (bool, error)
	followsAnyoneFn  func(context.Context, uint) (bool, error)
	followingAmongFn func(context.Context, uint, []uint) ([]uint, error)

	amongCalls int
}

func (s *followRepoStub) Follow(ctx context.Context, followerID, followingID uint) (bool, error) {
	return s.followFn(ctx, followerID, followingID)
}
func (s *followRepoStub) Unfollow(ctx context.Context, followerID, followingID uint) (bool, error) {
	return s.unfollowFn(ctx, followerID, followingID)
}
func (s *followRepoStub) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	return s.isFollowingFn(ctx, followerID, followingID)
}
func (s *followRepoStub) FollowsAnyone(ctx context.Context, followerID uint) (bool, error) {
	return s.followsAnyoneFn(ctx, followerID)
}
func (s *followRepoStub) FollowingAmong(ctx context.Context, followerID uint, ids []uint) ([]uint, error) {
	s.amongCalls++
	return s.followingAmongFn(ctx, followerID, ids)
}

func noopFollowRepo() *followRepoStub {
	return &followRepoStub{
		followFn:         func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		unfollowFn:       func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		isFollowingFn:    func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
		followsAnyoneFn:  func(_ context.Context, _ uint) (bool, error) { return false, nil },
		followingAmongFn: func(_ context.Context, _ uint, _ []uint) ([]uint, error) { return nil, nil },
	}
}

// userRepoStub is a stub for repository.UserRepository backed by a map.
type userRepoStub struct {
	byID     map[uint]*models.User
	createFn func(context.Context, *models.User) error
	updateFn func(context.Context, *models.User) error
}

func newUserRepoStub(users ...*models.User) *userRepoStub {
	s := &userRepoStub{
		byID:     map[uint]*models.User{},
		createFn: func(_ context.Context, _ *models.User) error { return nil },
		updateFn: func(_ context.Context, _ *models.User) error { return nil },
	}
	for _, u := range users {
		s.byID[u.ID] = u
	}
	return s
}

func (s *userRepoStub) Create(ctx context.Context, u *models.User) error {
	if err := s.createFn(ctx, u); err != nil {
		return err
	}
	u.ID = uint(len(s.byID) + 1)
	s.byID[u.ID] = u
	return nil
}
func (s *userRepoStub) GetByID(_ context.Context, id uint) (*models.User, error) {
	if u, ok := s.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, models.NewNotFoundError("user", id)
}
func (s *userRepoStub) GetByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range s.byID {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.NewNotFoundError("user", username)
}
func (s *userRepoStub) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range s.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.NewNotFoundError("user", email)
}
func (s *userRepoStub) Update(ctx context.Context, u *models.User) error {
	return s.updateFn(ctx, u)
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn        func(context.Context, *models.Comment) error
	getByIDFn       func(context.Context, uint) (*models.Comment, error)
	listByArticleFn func(context.Context, uint) ([]*models.Comment, error)
	deleteFn        func(context.Context, uint) error

	deleted []uint
}

func (s *commentRepoStub) Create(ctx context.Context, c *models.Comment) error {
	return s.createFn(ctx, c)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByArticle(ctx context.Context, articleID uint) ([]*models.Comment, error) {
	return s.listByArticleFn(ctx, articleID)
}
func (s *commentRepoStub) Delete(ctx context.Context, id uint) error {
	s.deleted = append(s.deleted, id)
	return s.deleteFn(ctx, id)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn: func(_ context.Context, _ *models.Comment) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Comment, error) {
			return nil, models.NewNotFoundError("comment", id)
		},
		listByArticleFn: func(_ context.Context, _ uint) ([]*models.Comment, error) { return []*models.Comment{}, nil },
		deleteFn:        func(_ context.Context, _ uint) error { return nil },
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, models.ErrorCode(err), err.Error())
}
