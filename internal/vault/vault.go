// internal/vault/vault.go
//
// Vault client wrapper for Onatrix.
//
// Context
// -------
//   - Wraps the HashiCorp Vault Go SDK for the one job Onatrix needs:
//     turning `vault:<mount>/<path>#<key>` config references into plain
//     strings at boot.
//   - KV-v2 reads are cached per canonical path#key for the life of the
//     client, so a DSN and its password stored in one secret cost one
//     round-trip.
//
// Public workflow
// ---------------
//  1. cli, err := vault.New(ctx, log.Printf)            // during boot.
//  2. pw,  err := cli.Resolve(ctx, "secret/onatrix#db")  // config loader.
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	vault "github.com/hashicorp/vault/api"
)

// ErrBadRef is returned when a reference is not of the form path#key.
var ErrBadRef = errors.New("vault reference must look like <mount>/<path>#<key>")

// kvReader is the slice of the SDK used here; tests substitute a fake.
type kvReader interface {
	Get(ctx context.Context, mount, path string) (map[string]any, error)
}

// Client is safe for concurrent use.  Zero value is invalid.
type Client struct {
	kv    kvReader
	logFn func(string, ...any)

	cacheMu sync.RWMutex
	cache   map[string]string // canonical path#key → value
}

// New constructs a Vault client from the standard environment.
//
// Environment expectations
// ------------------------
// • VAULT_ADDR   – scheme and host of the Vault server.
// • VAULT_TOKEN  – token (falls back to ~/.vault-token via the SDK).
func New(_ context.Context, logFn func(string, ...any)) (*Client, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}

	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		apiCli.SetToken(tok)
	}

	return newClient(sdkReader{api: apiCli}, logFn), nil
}

func newClient(kv kvReader, logFn func(string, ...any)) *Client {
	if logFn == nil {
		logFn = func(string, ...any) {}
	}
	return &Client{kv: kv, logFn: logFn, cache: make(map[string]string)}
}

// Resolve fetches the value addressed by ref ("<mount>/<path>#<key>").
func (c *Client) Resolve(ctx context.Context, ref string) (string, error) {
	secretPath, key, ok := strings.Cut(ref, "#")
	if !ok || secretPath == "" || key == "" {
		return "", fmt.Errorf("%w: %q", ErrBadRef, ref)
	}
	return c.GetKV(ctx, secretPath, key)
}

// GetKV fetches a single key from a KV-v2 secret.
func (c *Client) GetKV(ctx context.Context, secretPath, key string) (string, error) {
	canonical := secretPath + "#" + key

	c.cacheMu.RLock()
	if v, ok := c.cache[canonical]; ok {
		c.cacheMu.RUnlock()
		return v, nil
	}
	c.cacheMu.RUnlock()

	mount, rel := splitMount(secretPath)
	if rel == "" {
		return "", fmt.Errorf("%w: %q", ErrBadRef, secretPath)
	}
	data, err := c.kv.Get(ctx, mount, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}

	raw, ok := data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, secretPath)
	}
	sval, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value at %s is not a string", canonical)
	}

	c.cacheMu.Lock()
	c.cache[canonical] = sval
	c.cacheMu.Unlock()

	c.logFn("vault: resolved %s", canonical)
	return sval, nil
}

//
// SDK adapter
//

type sdkReader struct{ api *vault.Client }

func (s sdkReader) Get(ctx context.Context, mount, path string) (map[string]any, error) {
	sec, err := s.api.KVv2(mount).Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return sec.Data, nil
}

// splitMount separates the KV mount from the secret path:
// "secret/onatrix/db" → ("secret", "onatrix/db").
func splitMount(p string) (mount, rel string) {
	mount, rel, _ = strings.Cut(p, "/")
	return mount, rel
}
