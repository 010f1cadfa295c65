package password_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/mkrupp/homecase-blog/internal/domain"
	"github.com/mkrupp/homecase-blog/internal/password"
)

func TestHashAndVerify(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	for _, plaintext := range []string{"password", "S3curePass!", "ünïcødé", strings.Repeat("x", password.MaxLength)} {
		plaintext := plaintext
		t.Run(plaintext[:min(len(plaintext), 12)], func(t *testing.T) {
			t.Parallel()

			hash, err := password.Hash(ctx, plaintext)
			if err != nil {
				t.Fatalf("Hash() error = %v", err)
			}

			if hash == plaintext {
				t.Fatal("hash equals plaintext")
			}

			if len(hash) != 60 || !strings.HasPrefix(hash, "$2a$") {
				t.Errorf("hash %q does not look like a bcrypt hash", hash)
			}

			cost, err := bcrypt.Cost([]byte(hash))
			if err != nil || cost != password.Cost {
				t.Errorf("bcrypt.Cost() = %d, %v; want %d", cost, err, password.Cost)
			}

			ok, err := password.Verify(ctx, plaintext, hash)
			if err != nil || !ok {
				t.Errorf("Verify(correct) = %v, %v; want true, nil", ok, err)
			}

			for _, guess := range []string{plaintext + "!", strings.ToUpper(plaintext), "", strings.Repeat("y", 100)} {
				if guess == plaintext {
					continue
				}

				ok, err := password.Verify(ctx, guess, hash)
				if err != nil || ok {
					t.Errorf("Verify(%q) = %v, %v; want false, nil", guess, ok, err)
				}
			}
		})
	}
}

func TestHash_Salted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	a, err := password.Hash(ctx, "password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	b, err := password.Hash(ctx, "password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if a == b {
		t.Error("two hashes of the same password are identical")
	}
}

func TestHash_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		plaintext string
	}{
		{name: "empty", plaintext: ""},
		{name: "too long", plaintext: strings.Repeat("a", password.MaxLength+1)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := password.Hash(context.Background(), tt.plaintext); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("Hash() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestVerify_HashFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		hash string
	}{
		{name: "empty", hash: ""},
		{name: "plaintext stored by mistake", hash: "password"},
		{name: "sha256 hex", hash: "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8"},
		{name: "unknown prefix", hash: "$9z$10$abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ok, err := password.Verify(context.Background(), "password", tt.hash)
			if ok {
				t.Error("Verify() = true on malformed hash")
			}

			if !errors.Is(err, domain.ErrHashFormat) {
				t.Errorf("Verify() error = %v, want ErrHashFormat", err)
			}
		})
	}
}

func TestVerify_Cancelled(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The race between a finished comparison and the cancelled ctx may go
	// either way; only a wrong answer is a failure.
	ok, err := password.Verify(ctx, "password", string(hash))
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Errorf("Verify() error = %v, want nil or context.Canceled", err)
	}

	if err != nil && ok {
		t.Error("Verify() returned true together with an error")
	}
}

func TestNeedsRehash(t *testing.T) {
	t.Parallel()

	weak, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)

	current, err := password.Hash(context.Background(), "password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	tests := []struct {
		name    string
		hash    string
		want    bool
		wantErr error
	}{
		{name: "current cost", hash: current, want: false},
		{name: "lower cost", hash: string(weak), want: true},
		{name: "malformed", hash: "nope", wantErr: domain.ErrHashFormat},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := password.NeedsRehash(tt.hash)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NeedsRehash() error = %v, want %v", err, tt.wantErr)
			}

			if got != tt.want {
				t.Errorf("NeedsRehash() = %v, want %v", got, tt.want)
			}
		})
	}
}
