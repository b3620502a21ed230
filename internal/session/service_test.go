package session

import (
	"context"
	"testing"
	"time"

	"github.com/tanvir/sharebite/internal/model"
)

// --- モック定義 ---

type mockProvider struct {
	signInFn    func(ctx context.Context, email, password string) (*ProviderTokens, error)
	refreshFn   func(ctx context.Context, refreshToken string) (*ProviderTokens, error)
	refreshCalls int
}

func (m *mockProvider) SignIn(ctx context.Context, email, password string) (*ProviderTokens, error) {
	if m.signInFn != nil {
		return m.signInFn(ctx, email, password)
	}
	return nil, nil
}

func (m *mockProvider) Refresh(ctx context.Context, refreshToken string) (*ProviderTokens, error) {
	m.refreshCalls++
	if m.refreshFn != nil {
		return m.refreshFn(ctx, refreshToken)
	}
	return nil, nil
}

var _ IdentityProvider = (*mockProvider)(nil)

// --- テストヘルパー ---

func tokensFor(t *testing.T, email string, expiresAt time.Time) *ProviderTokens {
	t.Helper()
	return &ProviderTokens{
		IDToken:      makeIDToken(t, email, "User "+email, expiresAt),
		RefreshToken: "rt-" + email,
		ExpiresIn:    3600,
	}
}

// drain はチャネルに溜まった通知を全て取り出す。
func drain(ch <-chan Snapshot) []Snapshot {
	var out []Snapshot
	for {
		select {
		case s, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, s)
		default:
			return out
		}
	}
}

// --- テスト ---

func TestNewSession_StartsInLoadingState(t *testing.T) {
	s := NewSession(&mockProvider{}, nil)

	snap := s.Current()
	if snap.State != StateLoading {
		t.Errorf("State = %q, want %q", snap.State, StateLoading)
	}
	if snap.Identity != nil {
		t.Error("Identity should be nil before resolution")
	}
}

func TestResolve_NoStoredToken_TransitionsToUnauthenticated(t *testing.T) {
	s := NewSession(&mockProvider{}, nil)
	ch, unsub := s.Subscribe()
	defer unsub()

	s.Resolve(context.Background(), "")

	snap := s.Current()
	if snap.State != StateUnauthenticated {
		t.Errorf("State = %q, want %q", snap.State, StateUnauthenticated)
	}

	notes := drain(ch)
	if len(notes) != 1 || notes[0].State != StateUnauthenticated {
		t.Errorf("expected one unauthenticated notification, got %+v", notes)
	}
}

func TestResolve_ValidStoredToken_TransitionsToAuthenticated(t *testing.T) {
	provider := &mockProvider{
		refreshFn: func(ctx context.Context, refreshToken string) (*ProviderTokens, error) {
			if refreshToken != "stored-rt" {
				t.Errorf("refreshToken = %q, want %q", refreshToken, "stored-rt")
			}
			return tokensFor(t, "rahim@example.com", time.Now().Add(time.Hour)), nil
		},
	}
	s := NewSession(provider, nil)

	s.Resolve(context.Background(), "stored-rt")

	snap := s.Current()
	if snap.State != StateAuthenticated {
		t.Fatalf("State = %q, want %q", snap.State, StateAuthenticated)
	}
	if snap.Identity.Email != "rahim@example.com" {
		t.Errorf("Identity.Email = %q, want %q", snap.Identity.Email, "rahim@example.com")
	}
}

func TestResolve_ProviderUnavailable_FailsOpenToUnauthenticated(t *testing.T) {
	provider := &mockProvider{
		refreshFn: func(ctx context.Context, refreshToken string) (*ProviderTokens, error) {
			return nil, context.DeadlineExceeded
		},
	}
	s := NewSession(provider, nil)

	s.Resolve(context.Background(), "stored-rt")

	if got := s.Current().State; got != StateUnauthenticated {
		t.Errorf("State = %q, want %q (fail open)", got, StateUnauthenticated)
	}
}

func TestSignIn_Success_NotifiesSubscribers(t *testing.T) {
	provider := &mockProvider{
		signInFn: func(ctx context.Context, email, password string) (*ProviderTokens, error) {
			return tokensFor(t, email, time.Now().Add(time.Hour)), nil
		},
	}
	s := NewSession(provider, nil)
	s.Resolve(context.Background(), "")

	ch, unsub := s.Subscribe()
	defer unsub()

	if err := s.SignIn(context.Background(), "karim@example.com", "pw"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	notes := drain(ch)
	if len(notes) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notes))
	}
	if notes[0].State != StateAuthenticated || notes[0].Identity.Email != "karim@example.com" {
		t.Errorf("notification = %+v, want authenticated karim@example.com", notes[0])
	}
}

func TestSignIn_InvalidGrant_LeavesStateUnchanged(t *testing.T) {
	provider := &mockProvider{
		signInFn: func(ctx context.Context, email, password string) (*ProviderTokens, error) {
			return nil, ErrInvalidGrant
		},
	}
	s := NewSession(provider, nil)
	s.Resolve(context.Background(), "")

	if err := s.SignIn(context.Background(), "karim@example.com", "wrong"); err == nil {
		t.Fatal("expected error for rejected sign in")
	}
	if got := s.Current().State; got != StateUnauthenticated {
		t.Errorf("State = %q, want %q", got, StateUnauthenticated)
	}
}

func TestCredential_Unauthenticated_ReturnsUnauthenticatedError(t *testing.T) {
	s := NewSession(&mockProvider{}, nil)
	s.Resolve(context.Background(), "")

	_, err := s.Credential(context.Background())
	if !model.IsKind(err, model.KindUnauthenticated) {
		t.Errorf("expected unauthenticated error, got %v", err)
	}
}

func TestCredential_FreshToken_DoesNotRefresh(t *testing.T) {
	provider := &mockProvider{
		signInFn: func(ctx context.Context, email, password string) (*ProviderTokens, error) {
			return tokensFor(t, email, time.Now().Add(time.Hour)), nil
		},
	}
	s := NewSession(provider, nil)
	if err := s.SignIn(context.Background(), "rahim@example.com", "pw"); err != nil {
		t.Fatalf("sign in failed: %v", err)
	}

	tok1, err := s.Credential(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	tok2, err := s.Credential(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if provider.refreshCalls != 0 {
		t.Errorf("refreshCalls = %d, want 0 for fresh token", provider.refreshCalls)
	}
	if tok1 != tok2 {
		t.Error("fresh token should be returned unchanged on consecutive calls")
	}
}

func TestCredential_NearExpiry_RefreshesBeforeReturning(t *testing.T) {
	rotated := tokensFor(t, "rahim@example.com", time.Now().Add(time.Hour))
	provider := &mockProvider{
		signInFn: func(ctx context.Context, email, password string) (*ProviderTokens, error) {
			// 余裕時間(30秒)を切った失効間際のトークンを返す
			return tokensFor(t, email, time.Now().Add(5*time.Second)), nil
		},
		refreshFn: func(ctx context.Context, refreshToken string) (*ProviderTokens, error) {
			return rotated, nil
		},
	}
	s := NewSession(provider, nil)
	if err := s.SignIn(context.Background(), "rahim@example.com", "pw"); err != nil {
		t.Fatalf("sign in failed: %v", err)
	}

	tok, err := s.Credential(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if provider.refreshCalls != 1 {
		t.Errorf("refreshCalls = %d, want 1", provider.refreshCalls)
	}
	if tok != rotated.IDToken {
		t.Error("expected rotated token to be returned")
	}
}

func TestCredential_RefreshRejected_SignsOut(t *testing.T) {
	provider := &mockProvider{
		signInFn: func(ctx context.Context, email, password string) (*ProviderTokens, error) {
			return tokensFor(t, email, time.Now().Add(5*time.Second)), nil
		},
		refreshFn: func(ctx context.Context, refreshToken string) (*ProviderTokens, error) {
			return nil, ErrInvalidGrant
		},
	}
	s := NewSession(provider, nil)
	if err := s.SignIn(context.Background(), "rahim@example.com", "pw"); err != nil {
		t.Fatalf("sign in failed: %v", err)
	}

	ch, unsub := s.Subscribe()
	defer unsub()

	_, err := s.Credential(context.Background())
	if !model.IsKind(err, model.KindUnauthenticated) {
		t.Errorf("expected unauthenticated error, got %v", err)
	}
	if got := s.Current().State; got != StateUnauthenticated {
		t.Errorf("State = %q, want %q after rejected refresh", got, StateUnauthenticated)
	}

	notes := drain(ch)
	if len(notes) != 1 || notes[0].State != StateUnauthenticated {
		t.Errorf("expected sign-out notification, got %+v", notes)
	}
}

func TestSignOut_Idempotent(t *testing.T) {
	provider := &mockProvider{
		signInFn: func(ctx context.Context, email, password string) (*ProviderTokens, error) {
			return tokensFor(t, email, time.Now().Add(time.Hour)), nil
		},
	}
	s := NewSession(provider, nil)
	if err := s.SignIn(context.Background(), "rahim@example.com", "pw"); err != nil {
		t.Fatalf("sign in failed: %v", err)
	}

	ch, unsub := s.Subscribe()
	defer unsub()

	s.SignOut()
	s.SignOut() // 2回目は状態変化なし

	if got := s.Current().State; got != StateUnauthenticated {
		t.Errorf("State = %q, want %q", got, StateUnauthenticated)
	}

	notes := drain(ch)
	if len(notes) != 1 {
		t.Errorf("expected exactly 1 notification for idempotent sign out, got %d", len(notes))
	}
}

func TestSubscribe_Unsubscribe_StopsNotifications(t *testing.T) {
	provider := &mockProvider{
		signInFn: func(ctx context.Context, email, password string) (*ProviderTokens, error) {
			return tokensFor(t, email, time.Now().Add(time.Hour)), nil
		},
	}
	s := NewSession(provider, nil)

	ch, unsub := s.Subscribe()
	unsub()

	if err := s.SignIn(context.Background(), "rahim@example.com", "pw"); err != nil {
		t.Fatalf("sign in failed: %v", err)
	}

	if notes := drain(ch); len(notes) != 0 {
		t.Errorf("expected no notifications after unsubscribe, got %d", len(notes))
	}
}
