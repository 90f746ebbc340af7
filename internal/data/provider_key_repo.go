package data

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrProviderKeyNotFound = errors.New("provider api key not found")

// ProviderKey is one AI provider's API key, envelope-encrypted the same way
// camera RTSP credentials are: a per-row random DEK wraps the plaintext, and
// the DEK itself is wrapped by whichever master key MasterKID names — same
// shape as CameraCredential in camera_credentials.go, just keyed by provider
// name instead of camera id, since an API key has no tenant/camera scope.
type ProviderKey struct {
	Provider      string
	MasterKID     string
	DEKNonce      []byte
	DEKCiphertext []byte
	DEKTag        []byte
	DataNonce     []byte
	DataCiphertext []byte
	DataTag       []byte
	UpdatedAt     time.Time
}

// ProviderKeyModel persists aiprovider API keys at rest, so a deployment
// need not pass OPENAI_API_KEY etc. as plaintext environment variables.
type ProviderKeyModel struct {
	DB *sql.DB
}

func (m ProviderKeyModel) Get(ctx context.Context, provider string) (*ProviderKey, error) {
	query := `
		SELECT provider, master_kid,
		       dek_nonce, dek_ciphertext, dek_tag,
		       data_nonce, data_ciphertext, data_tag,
		       updated_at
		FROM provider_api_keys
		WHERE provider = $1
	`
	var k ProviderKey
	err := m.DB.QueryRowContext(ctx, query, provider).Scan(
		&k.Provider, &k.MasterKID,
		&k.DEKNonce, &k.DEKCiphertext, &k.DEKTag,
		&k.DataNonce, &k.DataCiphertext, &k.DataTag,
		&k.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProviderKeyNotFound
		}
		return nil, err
	}
	return &k, nil
}

func (m ProviderKeyModel) Upsert(ctx context.Context, k *ProviderKey) error {
	query := `
		INSERT INTO provider_api_keys (
			provider, master_kid,
			dek_nonce, dek_ciphertext, dek_tag,
			data_nonce, data_ciphertext, data_tag,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (provider) DO UPDATE SET
			master_kid = EXCLUDED.master_kid,
			dek_nonce = EXCLUDED.dek_nonce,
			dek_ciphertext = EXCLUDED.dek_ciphertext,
			dek_tag = EXCLUDED.dek_tag,
			data_nonce = EXCLUDED.data_nonce,
			data_ciphertext = EXCLUDED.data_ciphertext,
			data_tag = EXCLUDED.data_tag,
			updated_at = NOW()
		RETURNING updated_at
	`
	return m.DB.QueryRowContext(ctx, query,
		k.Provider, k.MasterKID,
		k.DEKNonce, k.DEKCiphertext, k.DEKTag,
		k.DataNonce, k.DataCiphertext, k.DataTag,
	).Scan(&k.UpdatedAt)
}

func (m ProviderKeyModel) Delete(ctx context.Context, provider string) error {
	res, err := m.DB.ExecContext(ctx, `DELETE FROM provider_api_keys WHERE provider = $1`, provider)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrProviderKeyNotFound
	}
	return nil
}
