package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"conduit/internal/database"
	"conduit/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestDB returns a migrated in-memory sqlite database. A single
// connection keeps every statement on the same in-memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(sqlite.Open("file::memory:"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	return gormDB, mock
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hash",
	}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), u))
	return u
}

var articleSeq int

// createArticle inserts an article with strictly increasing created_at values.
func createArticle(t *testing.T, db *gorm.DB, author *models.User, title string, tags ...string) *models.Article {
	t.Helper()
	articleSeq++
	a := &models.Article{
		Slug:        fmt.Sprintf("%s-%06d", title, articleSeq),
		Title:       title,
		Description: "about " + title,
		Body:        "body of " + title,
		AuthorID:    author.ID,
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, articleSeq, 0, time.UTC),
	}
	a.SetTags(tags)
	require.NoError(t, NewArticleRepository(db, nil).Create(context.Background(), a))
	return a
}
