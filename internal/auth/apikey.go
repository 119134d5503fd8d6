package auth

import "golang.org/x/crypto/bcrypt"

// HashAPIKey hashes a service API key for storage in AUTH_API_KEY_HASH.
func HashAPIKey(key string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyAPIKey reports whether key matches the bcrypt hash.
func VerifyAPIKey(hashed, key string) bool {
	if hashed == "" || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(key)) == nil
}
