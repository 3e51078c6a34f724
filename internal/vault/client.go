// Package vault fetches the JWT signing key from a HashiCorp Vault KV store
// so production deployments never keep key material on local disk.
package vault

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/vault/api"

	"letterflow/internal/config"
)

const signingKeyField = "private_key"

// Client wraps the HashiCorp Vault API for KV v2 secret access.
type Client struct {
	client  *api.Client
	mount   string
	keyPath string
}

// NewClient creates a new Vault client
func NewClient(cfg *config.VaultConfig) (*Client, error) {
	apiCfg := api.DefaultConfig()
	apiCfg.Address = cfg.Address

	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &Client{
		client:  client,
		mount:   cfg.Mount,
		keyPath: cfg.KeyPath,
	}, nil
}

// FetchSigningKey reads the PEM-encoded JWT signing key from the KV store.
// A missing secret is not an error; the caller falls back to local key files.
func (c *Client) FetchSigningKey(ctx context.Context) (string, error) {
	secret, err := c.client.KVv2(c.mount).Get(ctx, c.keyPath)
	if err != nil {
		return "", fmt.Errorf("failed to read signing key: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return "", nil
	}

	key, ok := secret.Data[signingKeyField].(string)
	if !ok {
		return "", fmt.Errorf("secret %s has no %s field", c.keyPath, signingKeyField)
	}

	return key, nil
}

// StoreSigningKey writes the PEM-encoded JWT signing key to the KV store.
func (c *Client) StoreSigningKey(ctx context.Context, pemKey string) error {
	_, err := c.client.KVv2(c.mount).Put(ctx, c.keyPath, map[string]interface{}{
		signingKeyField: pemKey,
	})
	if err != nil {
		return fmt.Errorf("failed to store signing key: %w", err)
	}
	return nil
}

// Health checks Vault health status
func (c *Client) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	health, err := c.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}

	if !health.Initialized {
		return fmt.Errorf("vault is not initialized")
	}
	if health.Sealed {
		return fmt.Errorf("vault is sealed")
	}

	return nil
}
