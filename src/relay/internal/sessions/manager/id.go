package manager

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// generateID hashes a random value salted with the current time.
// Uniqueness is probabilistic; callers check the registry for collisions.
func generateID() (string, error) {
	random, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}

	salted := append(random[:], strconv.FormatInt(time.Now().UnixNano(), 10)...)
	sum := md5.Sum(salted)
	return hex.EncodeToString(sum[:]), nil
}
