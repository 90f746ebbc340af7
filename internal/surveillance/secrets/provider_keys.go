// Package secrets encrypts AI provider API keys at rest using the teacher's
// envelope-encryption primitives (internal/crypto's AES-256-GCM + keyring),
// the same scheme internal/data/camera_credentials.go already applies to
// RTSP credentials, adapted here to a provider-name-keyed secret instead of
// a per-camera one.
package secrets

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/technosupport/surveillance-core/internal/audit"
	"github.com/technosupport/surveillance-core/internal/crypto"
	"github.com/technosupport/surveillance-core/internal/data"
)

// Store encrypts and decrypts provider API keys through a Keyring and a
// ProviderKeyModel. Both collaborators are required; Store does not own
// their lifecycle. Audit is optional — when set, every key rotation is
// recorded the same way the teacher's internal/audit package records any
// other sensitive write, since a rotated AI provider key is exactly the
// kind of credential-at-rest change that must leave a trail.
type Store struct {
	Keyring *crypto.Keyring
	Keys    data.ProviderKeyModel
	Audit   *audit.Service
}

func NewStore(keyring *crypto.Keyring, keys data.ProviderKeyModel) *Store {
	return &Store{Keyring: keyring, Keys: keys}
}

// systemTenantID is the fixed tenant identifier audit.Service requires on
// every row — this deployment has no multi-tenant concept of its own, so
// every audit write uses the same well-known value rather than threading a
// tenant id through packages that don't otherwise need one.
var systemTenantID = uuid.Nil

// Put generates a fresh DEK, wraps it under the keyring's active master
// key, encrypts apiKey under the DEK, and upserts the result.
func (s *Store) Put(ctx context.Context, provider, apiKey string) error {
	dek, err := crypto.GenerateDEK()
	if err != nil {
		return fmt.Errorf("secrets: generate dek: %w", err)
	}
	aad := []byte("provider_api_key:" + provider)

	masterKID, dekNonce, dekCiphertext, dekTag, err := s.Keyring.WrapDEK(dek, aad)
	if err != nil {
		return fmt.Errorf("secrets: wrap dek: %w", err)
	}

	dataNonce, dataCiphertext, dataTag, err := crypto.EncryptGCM(dek, []byte(apiKey), aad)
	if err != nil {
		return fmt.Errorf("secrets: encrypt key: %w", err)
	}

	if err := s.Keys.Upsert(ctx, &data.ProviderKey{
		Provider:       provider,
		MasterKID:      masterKID,
		DEKNonce:       dekNonce,
		DEKCiphertext:  dekCiphertext,
		DEKTag:         dekTag,
		DataNonce:      dataNonce,
		DataCiphertext: dataCiphertext,
		DataTag:        dataTag,
	}); err != nil {
		return err
	}

	if s.Audit != nil {
		if err := s.Audit.WriteEvent(ctx, audit.AuditEvent{
			TenantID:   systemTenantID,
			Action:     "provider_key.rotate",
			TargetType: "ai_provider",
			TargetID:   provider,
			Result:     "success",
		}); err != nil {
			log.Printf("[ERROR] secrets: audit write failed for provider %s key rotation: %v", provider, err)
		}
	}
	return nil
}

// Get decrypts and returns one provider's stored API key.
func (s *Store) Get(ctx context.Context, provider string) (string, error) {
	row, err := s.Keys.Get(ctx, provider)
	if err != nil {
		return "", err
	}
	aad := []byte("provider_api_key:" + provider)

	dek, err := s.Keyring.UnwrapDEK(row.MasterKID, row.DEKNonce, row.DEKCiphertext, row.DEKTag, aad)
	if err != nil {
		return "", fmt.Errorf("secrets: unwrap dek: %w", err)
	}

	plaintext, err := crypto.DecryptGCM(dek, row.DataNonce, row.DataCiphertext, row.DataTag, aad)
	if err != nil {
		return "", fmt.Errorf("secrets: decrypt key: %w", err)
	}
	return string(plaintext), nil
}

// LoadAll decrypts every configured provider's key, skipping (and logging
// via the returned map's absence, not an error) any provider with no stored
// row — callers typically fall back to an environment variable for those.
func (s *Store) LoadAll(ctx context.Context, providers []string) map[string]string {
	out := make(map[string]string, len(providers))
	for _, p := range providers {
		key, err := s.Get(ctx, p)
		if err != nil {
			continue
		}
		out[p] = key
	}
	return out
}
