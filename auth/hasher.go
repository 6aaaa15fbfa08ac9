package auth

import (
	"crypto/md5"
	"crypto/rand"
	"fmt"

	"github.com/pkg/errors"
)

const saltLength = 16

// DeriveStoredHash applies the single server-side hash round to a
// client-side password hash. The value received from the client is already a
// hash of the true secret; this function never sees a plaintext password.
// The exact same derivation runs at account creation, password update and
// login, so a hash written at creation time validates at login time.
func DeriveStoredHash(candidateHash, salt string) string {
	sum := md5.Sum([]byte(candidateHash + salt))
	return fmt.Sprintf("%X", sum)
}

// GenerateSalt produces 16 cryptographically random bytes rendered as 32
// uppercase hex characters, the same rendering used for stored hashes.
func GenerateSalt() (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.Wrap(err, "[GenerateSalt] rand.Read")
	}
	return fmt.Sprintf("%X", salt), nil
}
