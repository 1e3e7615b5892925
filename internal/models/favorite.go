package models

import "time"

// Favorite records that a user favorited an article.
// The combination of UserID and ArticleID must be unique.
type Favorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_favorite_user_article" json:"user_id"`
	ArticleID uint      `gorm:"not null;uniqueIndex:idx_favorite_user_article;index" json:"article_id"`
	CreatedAt time.Time `json:"created_at"`

	User    User    `gorm:"foreignKey:UserID" json:"-"`
	Article Article `gorm:"foreignKey:ArticleID;constraint:OnDelete:CASCADE" json:"-"`
}
