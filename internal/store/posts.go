package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ListPosts はすべての投稿を作成順に返します。
func (s *Store) ListPosts(ctx context.Context) ([]Post, error) {
	var posts []Post
	if err := s.db.WithContext(ctx).Preload("User").Order("id ASC").Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// FindPost は ID で投稿を取得します。存在しない場合は ErrNotFound を返します。
func (s *Store) FindPost(ctx context.Context, id uint) (*Post, error) {
	var post Post
	if err := s.db.WithContext(ctx).Preload("User").First(&post, id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &post, nil
}

// CreatePost は ownerID を所有者とする投稿を1回のコミットで作成します。
func (s *Store) CreatePost(ctx context.Context, ownerID uint, title, body string) (*Post, error) {
	if ownerID == 0 {
		return nil, fmt.Errorf("create post: owner is required")
	}
	post := &Post{Title: title, Body: body, UserID: ownerID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(post).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

// UpdatePost はタイトルと本文を同時に更新します。
// 所有者以外からの更新は ErrNotOwner、投稿が無ければ ErrNotFound になります。
func (s *Store) UpdatePost(ctx context.Context, id, ownerID uint, title, body string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&Post{}).
			Where("id = ? AND user_id = ?", id, ownerID).
			Updates(map[string]any{"title": title, "body": body})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ownershipFailure(tx, id)
		}
		return nil
	})
	return wrapMutation("update post", err)
}

// DeletePost は所有者の投稿を削除します。
func (s *Store) DeletePost(ctx context.Context, id, ownerID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND user_id = ?", id, ownerID).Delete(&Post{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ownershipFailure(tx, id)
		}
		return nil
	})
	return wrapMutation("delete post", err)
}

// ownershipFailure は条件に一致しなかった理由を判別します。
func ownershipFailure(tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.Model(&Post{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrNotOwner
}

func wrapMutation(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotOwner) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
