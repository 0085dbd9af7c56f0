package security_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/dermafill/storefront-backend/pkg/config"
	"github.com/dermafill/storefront-backend/pkg/security"
)

func testHasher() *security.Hasher {
	return security.NewHasher(config.PasswordConfig{
		ArgonMemoryKB:    32768,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	})
}

func TestHashAndVerify(t *testing.T) {
	hasher := testHasher()

	hash, err := hasher.Hash("very-secure-password1")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=32768,t=1,p=1$") {
		t.Fatalf("unexpected hash format %q", hash)
	}

	ok, err := hasher.Verify("very-secure-password1", hash)
	if err != nil {
		t.Fatalf("Verify returned error for valid hash: %v", err)
	}
	if !ok {
		t.Fatal("expected password to verify")
	}

	ok, err = hasher.Verify("wrong-password", hash)
	if err != nil {
		t.Fatalf("Verify returned error for wrong password: %v", err)
	}
	if ok {
		t.Fatal("expected wrong password to fail")
	}
}

func TestHashUsesFreshSalt(t *testing.T) {
	hasher := testHasher()
	first, _ := hasher.Hash("same-password1")
	second, _ := hasher.Hash("same-password1")
	if first == second {
		t.Fatal("expected distinct hashes for identical passwords")
	}
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	hasher := testHasher()
	for _, encoded := range []string{
		"",
		"plain",
		"$argon2i$v=19$m=1,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=1,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=1,t=1,p=1$!!$a2V5",
	} {
		if _, err := hasher.Verify("pw", encoded); !errors.Is(err, security.ErrInvalidHash) {
			t.Fatalf("expected ErrInvalidHash for %q, got %v", encoded, err)
		}
	}
}

func TestHashRejectsEmptyPassword(t *testing.T) {
	if _, err := testHasher().Hash(""); err == nil {
		t.Fatal("expected empty password to error")
	}
}

func TestCheckStrength(t *testing.T) {
	if err := security.CheckStrength("short1"); err == nil {
		t.Fatal("expected short password to fail")
	}
	if err := security.CheckStrength("lettersonly"); err == nil {
		t.Fatal("expected letters-only password to fail")
	}
	if err := security.CheckStrength("12345678"); err == nil {
		t.Fatal("expected digits-only password to fail")
	}
	if err := security.CheckStrength("clinic2024"); err != nil {
		t.Fatalf("expected valid password, got %v", err)
	}
}
