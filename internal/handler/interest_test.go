package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/learnhub/learning-platform/internal/model"
)

type memInterestStore struct {
	mu           sync.Mutex
	catalog      []model.Interest
	saved        map[uint64][]uint64
	forUserCalls int
}

func newMemInterestStore(names ...string) *memInterestStore {
	s := &memInterestStore{saved: make(map[uint64][]uint64)}
	for i, name := range names {
		s.catalog = append(s.catalog, model.Interest{ID: uint64(i + 1), Name: name})
	}
	return s
}

func (s *memInterestStore) All(ctx context.Context) ([]model.Interest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Interest(nil), s.catalog...), nil
}

func (s *memInterestStore) CountExisting(ctx context.Context, ids []uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range ids {
		for _, in := range s.catalog {
			if in.ID == id {
				n++
				break
			}
		}
	}
	return n, nil
}

func (s *memInterestStore) ReplaceForUser(ctx context.Context, userID uint64, interestIDs []uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[userID] = append([]uint64(nil), interestIDs...)
	return nil
}

func (s *memInterestStore) ForUser(ctx context.Context, userID uint64) ([]model.UserInterest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forUserCalls++
	var out []model.UserInterest
	for i, id := range s.saved[userID] {
		for _, in := range s.catalog {
			if in.ID == id {
				out = append(out, model.UserInterest{
					ID: uint64(i + 1), UserID: userID, InterestID: id,
					Weight: 1.0, Interest: in,
				})
			}
		}
	}
	return out, nil
}

func (s *memInterestStore) CountForUser(ctx context.Context, userID uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved[userID]), nil
}

func interestRequest(t *testing.T, h echo.HandlerFunc, method, body string, userID uint64) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != 0 {
		c.Set("user_id", userID)
	}
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func TestSaveInterestsValidation(t *testing.T) {
	h := NewInterestHandler(newMemInterestStore("Go", "Rust"))

	cases := []struct {
		name   string
		body   string
		userID uint64
		status int
		code   string
	}{
		{"unauthenticated", `{"interestIds":[1]}`, 0, http.StatusUnauthorized, "NOT_AUTHENTICATED"},
		{"empty selection", `{"interestIds":[]}`, 1, http.StatusBadRequest, "NO_INTERESTS_SELECTED"},
		{"unknown id", `{"interestIds":[1,99]}`, 1, http.StatusBadRequest, "INVALID_INTEREST_IDS"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := interestRequest(t, h.Save, http.MethodPost, tc.body, tc.userID)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			if got := decodeBody(t, rec)["code"]; got != tc.code {
				t.Fatalf("code = %v, want %s", got, tc.code)
			}
		})
	}
}

func TestSaveInterestsDeduplicates(t *testing.T) {
	store := newMemInterestStore("Go", "Rust", "SQL")
	h := NewInterestHandler(store)

	rec := interestRequest(t, h.Save, http.MethodPost, `{"interestIds":[2,1,2,1]}`, 7)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	if got := store.saved[7]; len(got) != 2 || got[0] != 2 || got[1] != 1 {
		t.Fatalf("saved ids = %v, want [2 1]", got)
	}
}

// The onboarding flag reflects the stored count, and an empty selection
// answers without touching the per-interest listing at all.
func TestForUserOnboardingFlag(t *testing.T) {
	store := newMemInterestStore("Go", "Rust")
	h := NewInterestHandler(store)

	rec := interestRequest(t, h.ForUser, http.MethodGet, "", 7)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["hasCompletedOnboarding"] != false {
		t.Fatalf("hasCompletedOnboarding = %v before saving, want false", body["hasCompletedOnboarding"])
	}
	if store.forUserCalls != 0 {
		t.Fatalf("listing queried %d times for an empty selection, want 0", store.forUserCalls)
	}

	if rec := interestRequest(t, h.Save, http.MethodPost, `{"interestIds":[1,2]}`, 7); rec.Code != http.StatusOK {
		t.Fatalf("save: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = interestRequest(t, h.ForUser, http.MethodGet, "", 7)
	body = decodeBody(t, rec)
	if body["hasCompletedOnboarding"] != true {
		t.Fatalf("hasCompletedOnboarding = %v after saving, want true", body["hasCompletedOnboarding"])
	}
	if data, ok := body["data"].([]any); !ok || len(data) != 2 {
		t.Fatalf("data = %v, want two interests", body["data"])
	}
}
