package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsClient reads secrets from AWS Secrets Manager and caches them for
// the life of the process.
type SecretsClient struct {
	client *secretsmanager.Client
	cache  map[string]string
	mu     sync.RWMutex
}

func NewSecretsClient(cfg sdkaws.Config) *SecretsClient {
	return &SecretsClient{
		client: secretsmanager.NewFromConfig(cfg),
		cache:  make(map[string]string),
	}
}

func (s *SecretsClient) GetSecret(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	if v, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return v, nil
	}
	s.mu.RUnlock()

	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: &name})
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", name, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", name)
	}

	s.mu.Lock()
	s.cache[name] = *out.SecretString
	s.mu.Unlock()

	return *out.SecretString, nil
}

// GetSecretMap reads a secret stored as a flat JSON object of strings,
// e.g. {"MOLLIE_API_KEY": "live_..."}.
func (s *SecretsClient) GetSecretMap(ctx context.Context, name string) (map[string]string, error) {
	raw, err := s.GetSecret(ctx, name)
	if err != nil {
		return nil, err
	}
	return ParseSecretMap(raw)
}

// ParseSecretMap decodes a JSON object secret.
func ParseSecretMap(raw string) (map[string]string, error) {
	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("secret is not a JSON object of strings: %w", err)
	}
	return m, nil
}
