package repository

import (
	"context"

	"parenthub/internal/model"

	"gorm.io/gorm"
)

// ArticleRepository only covers what the discussion engine needs from the
// article catalogue: existence checks before a thread is read or written.
type ArticleRepository interface {
	Create(ctx context.Context, article *model.Article) error
	FindByID(ctx context.Context, id string) (*model.Article, error)
}

type articleRepository struct {
	db *gorm.DB
}

func NewArticleRepository(db *gorm.DB) ArticleRepository {
	return &articleRepository{db: db}
}

func (r *articleRepository) Create(ctx context.Context, article *model.Article) error {
	return translate(r.db.WithContext(ctx).Create(article).Error)
}

func (r *articleRepository) FindByID(ctx context.Context, id string) (*model.Article, error) {
	var article model.Article
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&article).Error; err != nil {
		return nil, translate(err)
	}
	return &article, nil
}
