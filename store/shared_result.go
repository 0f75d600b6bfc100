package store

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// shareNamespace scopes share slugs so equal hashes from other apps never collide.
const shareNamespace = "timemeaning.shares"

// ErrNotFound is returned when a shared result does not exist or has expired.
var ErrNotFound = errors.New("shared result not found")

// SharedResult is a persisted, redacted resolution. It never holds the
// caller's input text, only its hash.
type SharedResult struct {
	ID          string
	ContentHash string
	// Payload is the JSON of the redacted response.
	Payload []byte
	// Markdown is the share-page summary.
	Markdown  string
	CreatedTs int64
	ExpiresTs int64
}

// Expired reports whether the result has expired at now.
func (r *SharedResult) Expired(now time.Time) bool {
	return r.ExpiresTs > 0 && now.Unix() >= r.ExpiresTs
}

type FindSharedResult struct {
	ID          *string
	ContentHash *string
}

type DeleteSharedResult struct {
	ID *string
	// ExpiredBefore deletes every row whose expiry is at or before this unix time.
	ExpiredBefore *int64
}

// ContentHash returns the hex blake2b-256 of input and reference.
// A zero byte separates them so ("ab","c") and ("a","bc") differ.
func ContentHash(input, reference string) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(input))
	h.Write([]byte{0})
	h.Write([]byte(reference))
	return hex.EncodeToString(h.Sum(nil))
}

// ShareID derives the deterministic slug for a content hash.
func ShareID(contentHash string) string {
	return shortuuid.NewWithNamespace(shareNamespace + "/" + contentHash)
}

// CreateSharedResult stores result, reusing the row for an identical content hash.
func (s *Store) CreateSharedResult(ctx context.Context, create *SharedResult) (*SharedResult, error) {
	if create == nil || create.ContentHash == "" {
		return nil, errors.New("content hash is required")
	}
	if create.ID == "" {
		create.ID = ShareID(create.ContentHash)
	}
	now := s.now()
	if create.CreatedTs == 0 {
		create.CreatedTs = now.Unix()
	}
	if create.ExpiresTs == 0 && s.profile.ShareTTL > 0 {
		create.ExpiresTs = now.Add(s.profile.ShareTTL).Unix()
	}

	result, err := s.driver.UpsertSharedResult(ctx, create)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert shared result")
	}
	s.cacheSharedResult(ctx, result)
	return result, nil
}

// GetSharedResult returns the shared result with id. An expired row is
// deleted and reported as ErrNotFound.
func (s *Store) GetSharedResult(ctx context.Context, id string) (*SharedResult, error) {
	raw, found, err := s.shareCache.Get(ctx, sharedResultCacheKey(id), func(ctx context.Context, _ string) ([]byte, bool, error) {
		list, err := s.driver.ListSharedResults(ctx, &FindSharedResult{ID: &id})
		if err != nil {
			return nil, false, err
		}
		if len(list) == 0 {
			return nil, false, nil
		}
		data, err := encodeSharedResult(list[0])
		if err != nil {
			return nil, false, err
		}
		return data, true, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get shared result")
	}
	if !found {
		return nil, ErrNotFound
	}
	result, err := decodeSharedResult(raw)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode cached shared result")
	}

	if result.Expired(s.now()) {
		s.shareCache.Delete(ctx, sharedResultCacheKey(id))
		if _, err := s.driver.DeleteSharedResult(ctx, &DeleteSharedResult{ID: &id}); err != nil {
			return nil, errors.Wrap(err, "failed to delete expired shared result")
		}
		return nil, ErrNotFound
	}
	return result, nil
}

// PurgeExpiredSharedResults deletes every expired row and returns how many
// went. Cached copies are rejected by GetSharedResult's expiry check.
func (s *Store) PurgeExpiredSharedResults(ctx context.Context) (int64, error) {
	before := s.now().Unix()
	count, err := s.driver.DeleteSharedResult(ctx, &DeleteSharedResult{ExpiredBefore: &before})
	if err != nil {
		return 0, errors.Wrap(err, "failed to purge expired shared results")
	}
	return count, nil
}

func (s *Store) cacheSharedResult(ctx context.Context, result *SharedResult) {
	data, err := encodeSharedResult(result)
	if err != nil {
		return
	}
	var ttl time.Duration
	if result.ExpiresTs > 0 {
		ttl = time.Unix(result.ExpiresTs, 0).Sub(s.now())
		if ttl <= 0 {
			return
		}
	}
	s.shareCache.Set(ctx, sharedResultCacheKey(result.ID), data, ttl)
}

func sharedResultCacheKey(id string) string {
	return "share:" + id
}
