package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/storage"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
)

// Persister is the session storage of the auth state. Load returns
// ok=false when nothing is stored.
type Persister interface {
	Save(ctx context.Context, s AuthState) error
	Load(ctx context.Context) (s AuthState, ok bool, err error)
	Clear(ctx context.Context) error
}

// CSRFSource hands out the anti-forgery token of this shell instance,
// creating it on first use.
type CSRFSource interface {
	CSRFToken(ctx context.Context) (string, error)
}

// StoragePersister keeps the auth state as JSON under the "auth" key and the
// anti-forgery token under "csrf_token".
type StoragePersister struct {
	kv storage.KeyValue
}

func NewStoragePersister(kv storage.KeyValue) *StoragePersister {
	return &StoragePersister{kv: kv}
}

func (p *StoragePersister) Save(ctx context.Context, s AuthState) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode auth state: %w", err)
	}
	return p.kv.Set(ctx, common.AuthStorageKey, b)
}

func (p *StoragePersister) Load(ctx context.Context) (AuthState, bool, error) {
	b, err := p.kv.Get(ctx, common.AuthStorageKey)
	if err != nil {
		return AuthState{}, false, err
	}
	if b == nil {
		return AuthState{}, false, nil
	}

	var s AuthState
	if err := json.Unmarshal(b, &s); err != nil {
		return AuthState{}, false, fmt.Errorf("decode auth state: %w", err)
	}
	return s, true, nil
}

func (p *StoragePersister) Clear(ctx context.Context) error {
	return p.kv.Delete(ctx, common.AuthStorageKey)
}

func (p *StoragePersister) CSRFToken(ctx context.Context) (string, error) {
	b, err := p.kv.Get(ctx, common.CSRFStorageKey)
	if err != nil {
		return "", err
	}
	if len(b) > 0 {
		return string(b), nil
	}

	tok, err := common.MakeRandHexString(32)
	if err != nil {
		return "", fmt.Errorf("generate csrf token: %w", err)
	}
	if err := p.kv.Set(ctx, common.CSRFStorageKey, []byte(tok)); err != nil {
		return "", err
	}
	return tok, nil
}
