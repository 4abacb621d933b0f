package pkg

import "golang.org/x/crypto/bcrypt"

// SecretHashCost is the bcrypt cost for app secrets. Checks are cached by the
// auth middleware, so only the first request per token pays for it.
const SecretHashCost = 12

func HashPassword(password string) (string, error) {
	return HashPasswordWithCost(password, SecretHashCost)
}

func HashPasswordWithCost(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return BytesToString(hash), nil
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
