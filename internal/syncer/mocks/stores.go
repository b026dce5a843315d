package mocks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/godilite/review-insights/internal/repository/models"
	"github.com/godilite/review-insights/internal/snapshot"
)

// MockReviewStore is a mock implementation of the syncer.ReviewStore interface.
type MockReviewStore struct {
	ReplaceReviewsFunc func(ctx context.Context, reviews []models.Review) error
	ListAgentsFunc     func(ctx context.Context) ([]models.Agent, error)
}

func (m *MockReviewStore) ReplaceReviews(ctx context.Context, reviews []models.Review) error {
	if m.ReplaceReviewsFunc != nil {
		return m.ReplaceReviewsFunc(ctx, reviews)
	}
	return errors.New("ReplaceReviewsFunc not implemented")
}

func (m *MockReviewStore) ListAgents(ctx context.Context) ([]models.Agent, error) {
	if m.ListAgentsFunc != nil {
		return m.ListAgentsFunc(ctx)
	}
	return nil, nil
}

// MockSnapshotWriter records what it was asked to stage. Raw and Parsed
// only receive artifacts whose stage was committed.
type MockSnapshotWriter struct {
	mu        sync.Mutex
	Raw       []snapshot.Raw
	Parsed    []snapshot.Parsed
	Staged    int
	Discarded int
	Err       error
	CommitErr error
}

func (m *MockSnapshotWriter) Stage(raw snapshot.Raw, parsed snapshot.Parsed) (snapshot.Staged, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.Staged++
	return &mockStaged{w: m, raw: raw, parsed: parsed}, nil
}

type mockStaged struct {
	w      *MockSnapshotWriter
	raw    snapshot.Raw
	parsed snapshot.Parsed
}

func (s *mockStaged) Commit() error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if s.w.CommitErr != nil {
		return s.w.CommitErr
	}
	s.w.Raw = append(s.w.Raw, s.raw)
	s.w.Parsed = append(s.w.Parsed, s.parsed)
	return nil
}

func (s *mockStaged) Discard() {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	s.w.Discarded++
}

// MockFetcher is a mock implementation of the source.Fetcher interface.
type MockFetcher struct {
	FetchFunc func(ctx context.Context) (string, error)
}

func (m *MockFetcher) Fetch(ctx context.Context) (string, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx)
	}
	return "", errors.New("FetchFunc not implemented")
}

// Text returns a fetcher that always yields text.
func Text(text string) *MockFetcher {
	return &MockFetcher{FetchFunc: func(ctx context.Context) (string, error) { return text, nil }}
}

// MockCache is a mock implementation of the syncer.Cacher interface.
type MockCache struct {
	GetFunc func(ctx context.Context, key string, dest any) error
	SetFunc func(ctx context.Context, key string, value any, expiration time.Duration) error
}

func (m *MockCache) Get(ctx context.Context, key string, dest any) error {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key, dest)
	}
	return errors.New("GetFunc not implemented")
}

func (m *MockCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, expiration)
	}
	return errors.New("SetFunc not implemented")
}
