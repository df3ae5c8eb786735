package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// NewDummyHash hashes a random secret at cost. Nobody knows the secret, so
// comparing against the result never succeeds.
func NewDummyHash(cost int) (string, error) {
	secret, err := RandomHex(32)
	if err != nil {
		return "", err
	}
	return HashPassword(secret, cost)
}

// BurnPasswordCheck compares plain against dummy, a hash from NewDummyHash,
// so that an unknown email costs as much as a wrong password. It always
// reports false.
func BurnPasswordCheck(dummy, plain string) bool {
	_ = bcrypt.CompareHashAndPassword([]byte(dummy), []byte(plain))
	return false
}
