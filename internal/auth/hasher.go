package auth

import "golang.org/x/crypto/bcrypt"

// ErrPasswordTooLong は bcrypt が扱えない長さ（72バイト超）のパスワードです。
var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

// Hasher はパスワードの一方向ハッシュ化と照合を行います。
type Hasher interface {
	Hash(password string) (string, error)
	Verify(digest, attempt string) bool
}

// BcryptHasher はソルト付き bcrypt による Hasher です。
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher は cost を bcrypt の有効範囲に丸めた Hasher を作成します。
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{Cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	if len(password) > 72 {
		return "", ErrPasswordTooLong
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

func (h *BcryptHasher) Verify(digest, attempt string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(attempt)) == nil
}
