package models

import (
	"sort"
	"time"

	"gorm.io/gorm"
)

// Article is a blog entry owned by exactly one author.
// FavoritesCount is denormalized from the favorites table and is only ever
// changed together with a favorites row insert or delete.
type Article struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	Slug           string       `gorm:"uniqueIndex;not null" json:"slug"`
	Title          string       `gorm:"not null" json:"title"`
	Description    string       `gorm:"not null" json:"description"`
	Body           string       `gorm:"type:text;not null" json:"body"`
	Tags           []ArticleTag `gorm:"foreignKey:ArticleID;constraint:OnDelete:CASCADE" json:"-"`
	TagList        []string     `gorm:"-" json:"tag_list"`
	FavoritesCount int          `gorm:"not null;default:0" json:"favorites_count"`
	AuthorID       uint         `gorm:"not null;index" json:"author_id"`
	Author         User         `gorm:"foreignKey:AuthorID" json:"author"`
	CreatedAt      time.Time    `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// ArticleTag is one entry of an article's ordered tag list.
type ArticleTag struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	ArticleID uint   `gorm:"not null;index" json:"-"`
	Name      string `gorm:"not null;index" json:"name"`
	Position  int    `gorm:"not null" json:"-"`
}

// AfterFind rebuilds TagList from the preloaded tag rows.
func (a *Article) AfterFind(_ *gorm.DB) error {
	if a.Tags == nil {
		return nil
	}
	tags := make([]ArticleTag, len(a.Tags))
	copy(tags, a.Tags)
	sort.SliceStable(tags, func(i, j int) bool { return tags[i].Position < tags[j].Position })
	a.TagList = make([]string, len(tags))
	for i, t := range tags {
		a.TagList[i] = t.Name
	}
	return nil
}

// SetTags replaces the tag rows from an ordered list of names.
func (a *Article) SetTags(names []string) {
	a.Tags = make([]ArticleTag, 0, len(names))
	a.TagList = make([]string, 0, len(names))
	for i, name := range names {
		a.Tags = append(a.Tags, ArticleTag{Name: name, Position: i})
		a.TagList = append(a.TagList, name)
	}
}

// OwnedBy reports whether userID authored the article.
func (a *Article) OwnedBy(userID uint) bool {
	return a.AuthorID == userID
}

// ArticleView is an article enriched with fields relative to the viewer.
type ArticleView struct {
	Slug           string      `json:"slug"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Body           string      `json:"body"`
	TagList        []string    `json:"tagList"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
	Favorited      bool        `json:"favorited"`
	FavoritesCount int         `json:"favoritesCount"`
	Author         ProfileView `json:"author"`
}

// View builds the viewer-relative representation of a.
func (a *Article) View(favorited, followingAuthor bool) ArticleView {
	tags := a.TagList
	if tags == nil {
		tags = []string{}
	}
	return ArticleView{
		Slug:           a.Slug,
		Title:          a.Title,
		Description:    a.Description,
		Body:           a.Body,
		TagList:        tags,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
		Favorited:      favorited,
		FavoritesCount: a.FavoritesCount,
		Author:         a.Author.Profile(followingAuthor),
	}
}

// ArticlePage is one window of an article listing plus the size of the full
// filtered set.
type ArticlePage struct {
	Articles []ArticleView `json:"articles"`
	Count    int64         `json:"articlesCount"`
}

// EmptyArticlePage returns a page with no articles and a zero count.
func EmptyArticlePage() *ArticlePage {
	return &ArticlePage{Articles: []ArticleView{}, Count: 0}
}
