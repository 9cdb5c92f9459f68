package usecases

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/domain/account"
	apperrors "github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/errors"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/logger"
)

func quietLogger() logger.Interface {
	return logger.NewLoggerWithSlog(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type storedEntry struct {
	body    json.RawMessage
	version int64
}

// fakeAccountRepo is an in-memory account.Repository with an optional
// hook fired before every CompareAndPut to inject write contention.
type fakeAccountRepo struct {
	mu        sync.Mutex
	docs      map[string]*storedEntry
	beforePut func(r *fakeAccountRepo, uid string)
	casCalls  int
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{docs: map[string]*storedEntry{}}
}

func (r *fakeAccountRepo) Get(ctx context.Context, uid string) (*account.StoredDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.docs[uid]
	if !ok {
		return &account.StoredDocument{Body: nil, Version: 0, Exists: false}, nil
	}
	return &account.StoredDocument{Body: entry.body, Version: entry.version, Exists: true}, nil
}

func (r *fakeAccountRepo) CompareAndPut(ctx context.Context, uid string, body json.RawMessage, expectedVersion int64, exists bool) error {
	if r.beforePut != nil {
		r.beforePut(r, uid)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.casCalls++
	entry, ok := r.docs[uid]
	if !exists {
		if ok {
			return account.ErrVersionMismatch
		}
		r.docs[uid] = &storedEntry{body: body, version: 1}
		return nil
	}
	if !ok || entry.version != expectedVersion {
		return account.ErrVersionMismatch
	}
	entry.body = body
	entry.version = expectedVersion + 1
	return nil
}

func (r *fakeAccountRepo) FindUIDByStripeCustomerID(ctx context.Context, customerID string) (string, error) {
	return r.findByField("stripeCustomerId", customerID)
}

func (r *fakeAccountRepo) FindUIDByStripeSubscriptionID(ctx context.Context, subscriptionID string) (string, error) {
	return r.findByField("stripeSubscriptionId", subscriptionID)
}

func (r *fakeAccountRepo) findByField(field, value string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for uid, entry := range r.docs {
		doc := map[string]any{}
		if err := json.Unmarshal(entry.body, &doc); err != nil {
			continue
		}
		if doc[field] == value {
			return uid, nil
		}
	}
	return "", account.ErrNotFound
}

func (r *fakeAccountRepo) Delete(ctx context.Context, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, uid)
	return nil
}

// bump rewrites a document out of band, advancing its version as a
// concurrent writer would.
func (r *fakeAccountRepo) bump(uid string, body json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.docs[uid]
	if !ok {
		r.docs[uid] = &storedEntry{body: body, version: 1}
		return
	}
	entry.body = body
	entry.version++
}

func newMergeUseCase(repo account.Repository) *MergeProfileUseCase {
	uc := NewMergeProfileUseCase(repo, quietLogger())
	uc.sleep = func(time.Duration) {}
	return uc
}

func TestMergeProfileCreatesDocument(t *testing.T) {
	repo := newFakeAccountRepo()
	uc := newMergeUseCase(repo)

	doc, err := uc.Execute(context.Background(), "u1", account.ProfilePatch{
		Fields: map[string]any{"name": "Ana", "city": "Cluj"},
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", doc.UID)
	assert.Equal(t, int64(1), doc.DocVersion)
	assert.Equal(t, "Ana", doc.Profile["name"])
	assert.False(t, doc.UpdatedAt.IsZero())
}

func TestMergeProfileDeepMergePreservesSiblings(t *testing.T) {
	repo := newFakeAccountRepo()
	uc := newMergeUseCase(repo)
	ctx := context.Background()

	_, err := uc.Execute(ctx, "u1", account.ProfilePatch{
		Fields: map[string]any{"name": "Ana", "city": "Cluj"},
	})
	require.NoError(t, err)

	doc, err := uc.Execute(ctx, "u1", account.ProfilePatch{
		Fields: map[string]any{"city": "Iasi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana", doc.Profile["name"], "untouched sibling must survive the merge")
	assert.Equal(t, "Iasi", doc.Profile["city"])
	assert.Equal(t, int64(2), doc.DocVersion)
}

func TestMergeProfileRetriesOnVersionMismatch(t *testing.T) {
	repo := newFakeAccountRepo()
	repo.bump("u1", json.RawMessage(`{"uid":"u1","docVersion":1,"profile":{"name":"Ana"}}`))

	var contended bool
	repo.beforePut = func(r *fakeAccountRepo, uid string) {
		if !contended {
			contended = true
			r.bump(uid, json.RawMessage(`{"uid":"u1","docVersion":2,"profile":{"name":"Ana","tz":"UTC"}}`))
		}
	}

	var slept []time.Duration
	uc := NewMergeProfileUseCase(repo, quietLogger())
	uc.sleep = func(d time.Duration) { slept = append(slept, d) }

	doc, err := uc.Execute(context.Background(), "u1", account.ProfilePatch{
		Fields: map[string]any{"city": "Cluj"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), doc.DocVersion)
	assert.Equal(t, "UTC", doc.Profile["tz"], "retry must rebase on the concurrent write")
	assert.Equal(t, "Cluj", doc.Profile["city"])
	assert.Equal(t, []time.Duration{50 * time.Millisecond}, slept)
	assert.Equal(t, 2, repo.casCalls)
}

func TestMergeProfileExhaustsRetries(t *testing.T) {
	repo := newFakeAccountRepo()
	repo.bump("u1", json.RawMessage(`{"uid":"u1","docVersion":1}`))
	repo.beforePut = func(r *fakeAccountRepo, uid string) {
		r.bump(uid, json.RawMessage(`{"uid":"u1"}`))
	}

	uc := newMergeUseCase(repo)

	_, err := uc.Execute(context.Background(), "u1", account.ProfilePatch{
		Fields: map[string]any{"city": "Cluj"},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflictError(err))
	assert.Equal(t, 3, repo.casCalls)
}

func TestMergeProfilePatchRecomputedPerAttempt(t *testing.T) {
	repo := newFakeAccountRepo()
	repo.bump("u1", json.RawMessage(`{"uid":"u1","docVersion":1,"counter":1}`))

	attempt := 0
	repo.beforePut = func(r *fakeAccountRepo, uid string) {
		if attempt == 1 {
			r.bump(uid, json.RawMessage(`{"uid":"u1","counter":5}`))
		}
	}

	uc := newMergeUseCase(repo)

	seen := []any{}
	_, err := uc.ExecuteFunc(context.Background(), "u1", func(current map[string]any) (map[string]any, error) {
		attempt++
		seen = append(seen, current["counter"])
		n, _ := current["counter"].(float64)
		return map[string]any{"counter": n + 1}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []any{float64(1), float64(5)}, seen, "patch must be recomputed from fresh data")

	stored := map[string]any{}
	require.NoError(t, json.Unmarshal(repo.docs["u1"].body, &stored))
	assert.Equal(t, float64(6), stored["counter"])
}

func TestMergeProfileStickyTrial(t *testing.T) {
	repo := newFakeAccountRepo()
	uc := newMergeUseCase(repo)
	ctx := context.Background()

	_, err := uc.Execute(ctx, "u1", account.TrialPatch{StartedAt: 100, EndsAt: 200, Source: "subscription"})
	require.NoError(t, err)

	doc, err := uc.ExecuteFunc(ctx, "u1", func(map[string]any) (map[string]any, error) {
		return map[string]any{"trial": map[string]any{"used": false}}, nil
	})
	require.NoError(t, err)
	require.NotNil(t, doc.Trial)
	assert.True(t, doc.Trial.Used, "a used trial must never reset")
}

func TestMergeProfileEmptyUID(t *testing.T) {
	uc := newMergeUseCase(newFakeAccountRepo())

	_, err := uc.Execute(context.Background(), "", account.ProfilePatch{Fields: map[string]any{}})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
}
