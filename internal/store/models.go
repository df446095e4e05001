package store

import "time"

// 投稿タイトルと本文の最大文字数です。
const (
	MaxTitleLength    = 20
	MaxBodyLength     = 140
	MaxUsernameLength = 50
)

// User はログイン可能な利用者です。作成後に更新・削除されることはありません。
type User struct {
	ID           uint      `gorm:"primaryKey"`
	Username     string    `gorm:"uniqueIndex;size:50;not null"`
	PasswordHash string    `gorm:"size:255;not null"`
	CreatedAt    time.Time
}

// Post はブログ記事です。UserID が所有者を表します。
type Post struct {
	ID        uint   `gorm:"primaryKey"`
	Title     string `gorm:"size:20;not null"`
	Body      string `gorm:"size:140;not null"`
	UserID    uint   `gorm:"not null;index"`
	User      User   `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OwnedBy は userID がこの投稿の所有者かどうかを返します。
func (p *Post) OwnedBy(userID uint) bool {
	return p != nil && userID != 0 && p.UserID == userID
}
