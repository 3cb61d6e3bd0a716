package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/cynco/irportal/internal/model"
	"github.com/cynco/irportal/internal/seed"
)

// Hashing はシードパスワードの保持方式。
type Hashing string

const (
	// HashingBcrypt は起動時にbcryptでハッシュ化し、平文を保持しない。
	HashingBcrypt Hashing = "bcrypt"
	// HashingPlain は平文を保持し、全長を走査する比較を行う。テスト用。
	HashingPlain Hashing = "plain"
)

// dummyBcryptHash は未登録メールアドレスでも照合時間を揃えるためのハッシュ。
const dummyBcryptHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Secret はパスワード照合を抽象化する。
type Secret interface {
	Verify(password string) bool
}

// Credential はログイン可能な利用者とその秘密情報の組。
type Credential struct {
	Principal model.Principal
	Secret    Secret
}

// CredentialStore は正規化済みメールアドレスから認証情報を引く。
// 見つからない場合はnilを返す。
type CredentialStore interface {
	Lookup(ctx context.Context, email string) (*Credential, error)
}

// BcryptSecret はbcryptハッシュで照合する。
type BcryptSecret struct {
	hash []byte
}

// NewBcryptSecret は平文をハッシュ化したBcryptSecretを生成する。
func NewBcryptSecret(plain string, cost int) (*BcryptSecret, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash secret: %w", err)
	}
	return &BcryptSecret{hash: hash}, nil
}

// Verify はパスワードがハッシュと一致するかを返す。
func (s *BcryptSecret) Verify(password string) bool {
	return bcrypt.CompareHashAndPassword(s.hash, []byte(password)) == nil
}

// PlainSecret は平文で保持した秘密情報。
// 長い方の長さまで全位置を比較し、途中で打ち切らない。
type PlainSecret string

// Verify はパスワードが一致するかを返す。
func (s PlainSecret) Verify(password string) bool {
	a, b := []byte(password), []byte(s)
	n := max(len(a), len(b))

	eq := subtle.ConstantTimeEq(int32(len(a)), int32(len(b)))
	for i := 0; i < n; i++ {
		var x, y byte
		inA, inB := 0, 0
		if i < len(a) {
			x, inA = a[i], 1
		}
		if i < len(b) {
			y, inB = b[i], 1
		}
		eq &= subtle.ConstantTimeByteEq(x, y) & inA & inB
	}
	return eq == 1
}

// NewDummySecret は未登録メールアドレスに対して照合を行うためのSecretを返す。
// 方式ごとに実際の照合と同程度の時間がかかる。
func NewDummySecret(hashing Hashing) Secret {
	if hashing == HashingPlain {
		return PlainSecret("dummy-secret-for-unknown-account")
	}
	return &BcryptSecret{hash: []byte(dummyBcryptHash)}
}

// SeededCredentialStore はシードアカウントから構築する固定の認証情報ストア。
type SeededCredentialStore struct {
	byEmail map[string]Credential
}

// NewSeededCredentialStore はシードアカウントからストアを構築する。
// HashingBcryptの場合、平文はこの関数の外に保持されない。
func NewSeededCredentialStore(accounts []seed.Account, hashing Hashing, cost int) (*SeededCredentialStore, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	store := &SeededCredentialStore{byEmail: make(map[string]Credential, len(accounts))}
	for _, a := range accounts {
		var secret Secret
		switch hashing {
		case HashingPlain:
			secret = PlainSecret(a.Password)
		case HashingBcrypt, "":
			s, err := NewBcryptSecret(a.Password, cost)
			if err != nil {
				return nil, fmt.Errorf("account %s: %w", a.ID, err)
			}
			secret = s
		default:
			return nil, fmt.Errorf("unknown credential hashing %q", hashing)
		}
		store.byEmail[NormalizeEmail(a.Email)] = Credential{
			Principal: a.Principal(),
			Secret:    secret,
		}
	}
	return store, nil
}

// Lookup は認証情報を返す。見つからない場合はnilを返す。
func (s *SeededCredentialStore) Lookup(_ context.Context, email string) (*Credential, error) {
	c, ok := s.byEmail[email]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// NormalizeEmail はメールアドレスを小文字化し前後の空白を除く。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// compile-time interface check
var _ CredentialStore = (*SeededCredentialStore)(nil)
