package redis

import "fmt"

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string // Environment prefix (staging/prod)
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" {
		prefix = "staging"
	}

	return &KeyBuilder{
		prefix: prefix,
	}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

// Session key builders

func (kb *KeyBuilder) KeySessionRevoked(uid string) string {
	return kb.BuildKey(fmt.Sprintf(KeySessionRevoked, uid))
}

// Phone verification key builders

func (kb *KeyBuilder) KeyPhoneChallenge(verificationID string) string {
	return kb.BuildKey(fmt.Sprintf(KeyPhoneChallenge, verificationID))
}

func (kb *KeyBuilder) KeyPhoneActiveChallenge(uid string) string {
	return kb.BuildKey(fmt.Sprintf(KeyPhoneActiveChallenge, uid))
}

// Profile cache key builders

func (kb *KeyBuilder) KeyProfile(uid string) string {
	return kb.BuildKey(fmt.Sprintf(KeyProfile, uid))
}
