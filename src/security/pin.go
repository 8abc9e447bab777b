package security

import (
	"crypto/rand"
	"errors"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidPin rejects anything that is not exactly six decimal digits.
var ErrInvalidPin = errors.New("pin must be exactly 6 digits")

const (
	pinLength     = 6
	saltLength    = 16
	pinBcryptCost = 10
)

// ValidatePinFormat enforces the 6-digit numeric contract before any
// hashing happens; a malformed PIN never reaches stored state.
func ValidatePinFormat(pin string) error {
	if len(pin) != pinLength {
		return ErrInvalidPin
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return ErrInvalidPin
		}
	}
	return nil
}

// NewPinSalt returns 16 random lowercase ASCII letters. A fresh salt is
// generated on every PIN set or rotation.
func NewPinSalt() (string, error) {
	letters := make([]byte, saltLength)
	for i := range letters {
		n, err := rand.Int(rand.Reader, big.NewInt(26))
		if err != nil {
			return "", err
		}
		letters[i] = byte('a' + n.Int64())
	}
	return string(letters), nil
}

// HashPin derives the stored digest from salt||pin. bcrypt supplies the work
// factor a bare SHA-256 lacks; the stored hash+salt contract is unchanged.
func HashPin(pin, salt string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(salt+pin), pinBcryptCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// CheckPin reports whether pin matches the stored hash under the stored salt.
func CheckPin(pin, salt, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(salt+pin)) == nil
}
