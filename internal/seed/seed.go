// Package seed populates the database with demo data for development and
// manual testing.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"conduit/internal/models"
	"conduit/internal/observability"
	"conduit/internal/repository"
	"conduit/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "password123"

var tagPool = []string{
	"golang", "databases", "devops", "frontend", "backend", "testing",
	"security", "performance", "career", "opensource", "cloud", "design",
}

// Options configures a seeding run.
type Options struct {
	Users    int
	Articles int
	// Seed makes runs reproducible. Zero picks a random seed.
	Seed int64
	// HashCost is the bcrypt cost of the shared password hash.
	HashCost int
}

// Summary counts what a run created.
type Summary struct {
	Users     int
	Articles  int
	Follows   int
	Favorites int
	Comments  int
}

// Seeder writes demo data through the repositories and services so every
// derived value, like favorite counts, stays consistent.
type Seeder struct {
	db        *gorm.DB
	faker     *gofakeit.Faker
	users     repository.UserRepository
	follows   repository.FollowRepository
	favorites repository.FavoriteRepository
	articles  *service.ArticleService
	comments  *service.CommentService
}

// NewSeeder creates a Seeder bound to db. Article caching is disabled.
func NewSeeder(db *gorm.DB, seed int64) *Seeder {
	users := repository.NewUserRepository(db)
	follows := repository.NewFollowRepository(db)
	favorites := repository.NewFavoriteRepository(db)
	articleRepo := repository.NewArticleRepository(db, nil)

	return &Seeder{
		db:        db,
		faker:     gofakeit.New(seed),
		users:     users,
		follows:   follows,
		favorites: favorites,
		articles:  service.NewArticleService(articleRepo, favorites, follows, users),
		comments:  service.NewCommentService(repository.NewCommentRepository(db), articleRepo, follows),
	}
}

// ClearAll removes every row the application owns, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tables := []any{
		&models.Favorite{},
		&models.Comment{},
		&models.ArticleTag{},
		&models.Article{},
		&models.Follow{},
		&models.User{},
	}
	tx := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped()
	for _, t := range tables {
		if err := tx.Delete(t).Error; err != nil {
			return fmt.Errorf("clear %T: %w", t, err)
		}
	}
	return nil
}

// Run creates opts.Users users, a follow mesh between them, opts.Articles
// articles, and favorites and comments on those articles.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Summary, error) {
	if opts.Users <= 0 {
		return nil, fmt.Errorf("at least one user is required")
	}
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.DefaultCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), opts.HashCost)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}

	users, err := s.seedUsers(ctx, opts.Users, string(hash))
	if err != nil {
		return summary, err
	}
	summary.Users = len(users)

	if summary.Follows, err = s.seedFollows(ctx, users); err != nil {
		return summary, err
	}

	articles, err := s.seedArticles(ctx, users, opts.Articles)
	if err != nil {
		return summary, err
	}
	summary.Articles = len(articles)

	if summary.Favorites, err = s.seedFavorites(ctx, users, articles); err != nil {
		return summary, err
	}
	if summary.Comments, err = s.seedComments(ctx, users, articles); err != nil {
		return summary, err
	}

	observability.Logger.InfoContext(ctx, "seed complete",
		slog.Int("users", summary.Users),
		slog.Int("articles", summary.Articles),
		slog.Int("follows", summary.Follows),
		slog.Int("favorites", summary.Favorites),
		slog.Int("comments", summary.Comments),
	)
	return summary, nil
}

func (s *Seeder) seedUsers(ctx context.Context, n int, passwordHash string) ([]*models.User, error) {
	users := make([]*models.User, 0, n)
	for i := range n {
		username := fmt.Sprintf("%s%d", s.faker.Username(), i)
		u := &models.User{
			Username: username,
			Email:    fmt.Sprintf("%s@example.com", username),
			Password: passwordHash,
			Bio:      s.faker.Sentence(10),
			Image:    fmt.Sprintf("https://i.pravatar.cc/150?u=%s", s.faker.UUID()),
		}
		if err := s.users.Create(ctx, u); err != nil {
			return nil, fmt.Errorf("create user %s: %w", username, err)
		}
		users = append(users, u)
	}
	return users, nil
}

// seedFollows has each user follow up to a third of the others.
func (s *Seeder) seedFollows(ctx context.Context, users []*models.User) (int, error) {
	count := 0
	for _, u := range users {
		for _, target := range s.pick(users, len(users)/3) {
			if target.ID == u.ID {
				continue
			}
			changed, err := s.follows.Follow(ctx, u.ID, target.ID)
			if err != nil {
				return count, err
			}
			if changed {
				count++
			}
		}
	}
	return count, nil
}

func (s *Seeder) seedArticles(ctx context.Context, users []*models.User, n int) ([]*models.ArticleView, error) {
	out := make([]*models.ArticleView, 0, n)
	for range n {
		author := users[s.faker.Number(0, len(users)-1)]
		title := s.faker.Sentence(s.faker.Number(3, 8))
		description := s.faker.Sentence(12)
		body := s.faker.Paragraph(s.faker.Number(2, 5), 4, 12, "\n\n")

		tags := s.pickStrings(tagPool, s.faker.Number(0, 3))

		view, err := s.articles.CreateArticle(ctx, author.ID, service.ArticleFields{
			Title:       &title,
			Description: &description,
			Body:        &body,
			TagList:     tags,
		})
		if err != nil {
			return out, fmt.Errorf("create article: %w", err)
		}
		out = append(out, view)
	}
	return out, nil
}

func (s *Seeder) seedFavorites(ctx context.Context, users []*models.User, articles []*models.ArticleView) (int, error) {
	count := 0
	for _, a := range articles {
		for _, u := range s.pick(users, s.faker.Number(0, len(users))) {
			view, err := s.articles.AddFavorite(ctx, u.ID, a.Slug)
			if err != nil {
				return count, err
			}
			if view.Favorited {
				count++
			}
		}
	}
	return count, nil
}

func (s *Seeder) seedComments(ctx context.Context, users []*models.User, articles []*models.ArticleView) (int, error) {
	count := 0
	for _, a := range articles {
		for range s.faker.Number(0, 4) {
			author := users[s.faker.Number(0, len(users)-1)]
			if _, err := s.comments.AddComment(ctx, author.ID, a.Slug, s.faker.Sentence(s.faker.Number(4, 20))); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

// pick returns up to n distinct users in random order.
func (s *Seeder) pick(users []*models.User, n int) []*models.User {
	shuffled := make([]*models.User, len(users))
	copy(shuffled, users)
	s.faker.ShuffleAnySlice(shuffled)
	return shuffled[:min(n, len(shuffled))]
}

func (s *Seeder) pickStrings(pool []string, n int) []string {
	shuffled := make([]string, len(pool))
	copy(shuffled, pool)
	s.faker.ShuffleStrings(shuffled)
	return shuffled[:min(n, len(shuffled))]
}
