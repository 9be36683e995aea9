package utils

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// dummyHashes are compared against when the account does not exist so
// that a lookup miss costs about as much as a wrong password. One per cost.
var (
	dummyMu     sync.Mutex
	dummyHashes = map[int][]byte{}
)

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
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

// BurnPassword performs a throwaway bcrypt comparison at cost, which should
// match the cost real hashes are made with. Out of range costs use
// bcrypt.DefaultCost.
func BurnPassword(plain string, cost int) {
	_ = bcrypt.CompareHashAndPassword(dummyHash(cost), []byte(plain))
}

func dummyHash(cost int) []byte {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummyMu.Lock()
	defer dummyMu.Unlock()
	if h, ok := dummyHashes[cost]; ok {
		return h
	}
	h, _ := bcrypt.GenerateFromPassword([]byte("burn"), cost)
	dummyHashes[cost] = h
	return h
}
