package utils

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "correct horse" {
		t.Fatal("hash must not equal the plain password")
	}
	if !VerifyPassword(hash, "correct horse") {
		t.Fatal("verify rejected the right password")
	}
	if VerifyPassword(hash, "battery staple") {
		t.Fatal("verify accepted the wrong password")
	}
}
