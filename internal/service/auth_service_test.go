package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"controlling_fermenter/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// memUserRepo is an in-memory repository.Authorization.
type memUserRepo struct {
	users     map[string]models.User
	createErr error
	getErr    error
	creates   int
}

func newMemUserRepo() *memUserRepo { return &memUserRepo{users: map[string]models.User{}} }

func (m *memUserRepo) Create(ctx context.Context, username, hash string) (int, error) {
	m.creates++
	if m.createErr != nil {
		return 0, m.createErr
	}
	id := len(m.users) + 1
	m.users[username] = models.User{ID: id, Username: username, PasswordHash: hash}
	return id, nil
}

func (m *memUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	u, ok := m.users[username]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

var testAuthConfig = AuthConfig{SigningKey: "test-signing-key", TokenTTL: time.Hour}

func signedWith(t *testing.T, method jwt.SigningMethod, key any, userID int, exp time.Time) string {
	t.Helper()
	tk := jwt.NewWithClaims(method, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(exp.Add(-time.Hour)),
		},
		UserID: userID,
	})
	raw, err := tk.SignedString(key)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return raw
}

func TestAuthService_SignUpThenSignIn(t *testing.T) {
	repo := newMemUserRepo()
	svc := NewAuthService(repo, testAuthConfig)
	ctx := context.Background()

	id, err := svc.SignUp(ctx, "brewer", "s3cr3t")
	if err != nil || id != 1 {
		t.Fatalf("SignUp = (%d, %v)", id, err)
	}
	stored := repo.users["brewer"].PasswordHash
	if stored == "s3cr3t" || verifyPassword(stored, "s3cr3t") != nil {
		t.Fatalf("password not stored as a matching bcrypt hash: %q", stored)
	}

	token, err := svc.GenerateToken(ctx, "brewer", "s3cr3t")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	uid, err := svc.ParseToken(token)
	if err != nil || uid != 1 {
		t.Fatalf("ParseToken = (%d, %v), want (1, nil)", uid, err)
	}
}

func TestAuthService_SignUp_Rejects(t *testing.T) {
	cases := []struct {
		name, user, pass string
		repoErr          error
		wantCreates      int
	}{
		{"blank password", "brewer", "   ", nil, 0},
		{"blank username", " ", "pw", nil, 0},
		{"repo error", "brewer", "pw", errors.New("db down"), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMemUserRepo()
			repo.createErr = tc.repoErr
			if _, err := NewAuthService(repo, testAuthConfig).SignUp(context.Background(), tc.user, tc.pass); err == nil {
				t.Fatalf("expected error")
			}
			if repo.creates != tc.wantCreates {
				t.Fatalf("creates = %d, want %d", repo.creates, tc.wantCreates)
			}
		})
	}
}

func TestAuthService_GenerateToken_Rejects(t *testing.T) {
	hash, err := hashPassword("correct")
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}
	cases := []struct {
		name, user, pass string
		getErr           error
		want             error
	}{
		{"unknown user", "ghost", "pw", nil, ErrUserNotFound},
		{"wrong password", "brewer", "wrong", nil, ErrInvalidPassword},
		{"repo error", "brewer", "correct", errors.New("query failed"), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMemUserRepo()
			repo.users["brewer"] = models.User{ID: 1, Username: "brewer", PasswordHash: hash}
			repo.getErr = tc.getErr

			_, err := NewAuthService(repo, testAuthConfig).GenerateToken(context.Background(), tc.user, tc.pass)
			if err == nil {
				t.Fatalf("expected error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestAuthService_ParseToken_Rejects(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey: %v", err)
	}
	now := time.Now()
	key := []byte(testAuthConfig.SigningKey)

	cases := map[string]string{
		"malformed":       "not-a-jwt",
		"other key":       signedWith(t, jwt.SigningMethodHS256, []byte("different-key"), 5, now.Add(time.Hour)),
		"expired":         signedWith(t, jwt.SigningMethodHS256, key, 11, now.Add(-time.Hour)),
		"non-HMAC method": signedWith(t, jwt.SigningMethodRS256, rsaKey, 12, now.Add(time.Hour)),
	}
	svc := NewAuthService(newMemUserRepo(), testAuthConfig)
	for name, raw := range cases {
		if _, err := svc.ParseToken(raw); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestAuthService_NoSigningKey(t *testing.T) {
	svc := NewAuthService(newMemUserRepo(), AuthConfig{})
	if _, err := svc.issueToken(1); !errors.Is(err, ErrNoSigningKey) {
		t.Fatalf("expected ErrNoSigningKey, got %v", err)
	}
	if _, err := svc.ParseToken("a.b.c"); !errors.Is(err, ErrNoSigningKey) {
		t.Fatalf("expected ErrNoSigningKey, got %v", err)
	}
}

func TestAuthService_TokenTTLFromConfig(t *testing.T) {
	svc := NewAuthService(newMemUserRepo(), AuthConfig{SigningKey: "k", TokenTTL: 5 * time.Minute})
	raw, err := svc.issueToken(3)
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}
	claims := &Claims{}
	if _, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) { return []byte("k"), nil }); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time); ttl != 5*time.Minute {
		t.Fatalf("ttl = %v, want 5m", ttl)
	}
}
