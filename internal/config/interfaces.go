package config

import "context"

// SecretProvider resolves secret references (SSM parameter paths in
// deployed environments) to plaintext values.
type SecretProvider interface {
	// GetParametersBatch returns a map of key -> plaintext value for every
	// key that could be resolved.
	GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error)
}
