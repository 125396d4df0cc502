package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	dom "github.com/ramtunguturi36/hair/internal/domain"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/user"
)

// ErrProfileNotFound is returned when the account does not exist in the profile store.
var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepo is the remote profile store: read-whole / replace-whole over an
// account's metadata blob. No field-level atomic operations are offered.
type ProfileRepo interface {
	Get(ctx context.Context, accountID string) (dom.Profile, error)
	Replace(ctx context.Context, accountID string, metadata map[string]any) (dom.Profile, error)
}

// ClerkProfileRepo stores ledger state in Clerk's user unsafe_metadata.
type ClerkProfileRepo struct {
	users *user.Client
}

// NewClerkProfileRepo returns a repo using the given backend secret key.
// apiURL overrides the Clerk API base URL when non-empty.
func NewClerkProfileRepo(secretKey, apiURL string) *ClerkProfileRepo {
	cfg := &clerk.ClientConfig{}
	cfg.Key = clerk.String(secretKey)
	if apiURL != "" {
		cfg.URL = clerk.String(apiURL)
	}
	return &ClerkProfileRepo{users: user.NewClient(cfg)}
}

// Get fetches the user and decodes its unsafe metadata.
func (r *ClerkProfileRepo) Get(ctx context.Context, accountID string) (dom.Profile, error) {
	u, err := r.users.Get(ctx, accountID)
	if err != nil {
		return dom.Profile{}, clerkError("get user", err)
	}
	meta, err := decodeMetadata(u.UnsafeMetadata)
	if err != nil {
		return dom.Profile{}, fmt.Errorf("decode metadata for %s: %w", accountID, err)
	}
	return dom.Profile{AccountID: u.ID, Metadata: meta}, nil
}

// Replace overwrites the whole unsafe metadata blob; callers merge first.
func (r *ClerkProfileRepo) Replace(ctx context.Context, accountID string, metadata map[string]any) (dom.Profile, error) {
	raw, err := encodeMetadata(metadata)
	if err != nil {
		return dom.Profile{}, err
	}
	u, err := r.users.Update(ctx, accountID, &user.UpdateParams{UnsafeMetadata: &raw})
	if err != nil {
		return dom.Profile{}, clerkError("update user", err)
	}
	meta, err := decodeMetadata(u.UnsafeMetadata)
	if err != nil {
		return dom.Profile{}, fmt.Errorf("decode metadata for %s: %w", accountID, err)
	}
	return dom.Profile{AccountID: u.ID, Metadata: meta}, nil
}

func clerkError(op string, err error) error {
	var apiErr *clerk.APIErrorResponse
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusNotFound {
		return ErrProfileNotFound
	}
	return fmt.Errorf("clerk %s: %w", op, err)
}

func decodeMetadata(raw json.RawMessage) (map[string]any, error) {
	meta := map[string]any{}
	if len(raw) == 0 || string(raw) == "null" {
		return meta, nil
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func encodeMetadata(meta map[string]any) (json.RawMessage, error) {
	if meta == nil {
		meta = map[string]any{}
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return json.RawMessage(b), nil
}
