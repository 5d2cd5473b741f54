package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

func mustCreate(t *testing.T, s Store, username, email string) User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), CreateUserInput{
		FullName:     "Test " + username,
		Username:     username,
		Email:        email,
		PasswordHash: "$argon2id$stub",
	})
	if err != nil {
		t.Fatalf("create user %q: %v", username, err)
	}
	return u
}

func TestMemoryStore_CreateUser_Conflicts(t *testing.T) {
	s := NewMemoryStore()
	mustCreate(t, s, "Navid", "navid@example.com")

	_, err := s.CreateUser(context.Background(), CreateUserInput{
		FullName: "Other", Username: "nAvId", Email: "other@example.com", PasswordHash: "h",
	})
	var ce ConflictError
	if !errors.As(err, &ce) || ce.Field != "username" {
		t.Fatalf("expected username conflict, got %v", err)
	}

	_, err = s.CreateUser(context.Background(), CreateUserInput{
		FullName: "Other", Username: "other", Email: "NAVID@example.com", PasswordHash: "h",
	})
	if !errors.As(err, &ce) || ce.Field != "email" {
		t.Fatalf("expected email conflict, got %v", err)
	}
}

func TestMemoryStore_FindByAlternateKey(t *testing.T) {
	s := NewMemoryStore()
	u := mustCreate(t, s, "alice", "Alice@Example.com")
	ctx := context.Background()

	for _, key := range []string{"alice", " ALICE ", "alice@example.com", "ALICE@EXAMPLE.COM"} {
		got, err := s.FindByAlternateKey(ctx, key)
		if err != nil {
			t.Fatalf("FindByAlternateKey(%q): %v", key, err)
		}
		if got.ID != u.ID {
			t.Fatalf("FindByAlternateKey(%q) returned %q want %q", key, got.ID, u.ID)
		}
	}

	if _, err := s.FindByAlternateKey(ctx, "bob"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.FindByID(ctx, "missing"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStore_FindByID_RejectsNonULID(t *testing.T) {
	s := NewMemoryStore()
	u := mustCreate(t, s, "nina", "nina@example.com")
	ctx := context.Background()

	for _, id := range []string{"", "user-1", strings.ToLower(u.ID) + "x", "01HZZZZZZZZZZZZZZZZZZZZZZ!"} {
		if _, err := s.FindByID(ctx, id); !IsNotFound(err) {
			t.Fatalf("FindByID(%q): expected not found, got %v", id, err)
		}
	}
	if _, err := s.FindByID(ctx, " "+u.ID+" "); err != nil {
		t.Fatalf("padded id must still resolve: %v", err)
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	u := mustCreate(t, s, "alice", "alice@example.com")

	got, err := s.FindByID(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	got.RefreshTokenHash = "mutated"

	again, _ := s.FindByID(context.Background(), u.ID)
	if again.RefreshTokenHash != "" {
		t.Fatalf("caller mutation leaked into store")
	}
}

func TestMemoryStore_SetAndSwapRefreshToken(t *testing.T) {
	s := NewMemoryStore()
	u := mustCreate(t, s, "alice", "alice@example.com")
	ctx := context.Background()

	if ok, err := s.SwapRefreshToken(ctx, u.ID, "", "next"); err != nil || ok {
		t.Fatalf("empty expected must never swap: ok=%v err=%v", ok, err)
	}

	if err := s.SetRefreshToken(ctx, u.ID, "fp-1"); err != nil {
		t.Fatalf("SetRefreshToken: %v", err)
	}
	if ok, err := s.SwapRefreshToken(ctx, u.ID, "fp-0", "fp-2"); err != nil || ok {
		t.Fatalf("stale expected must not swap: ok=%v err=%v", ok, err)
	}
	if ok, err := s.SwapRefreshToken(ctx, u.ID, "fp-1", "fp-2"); err != nil || !ok {
		t.Fatalf("expected swap: ok=%v err=%v", ok, err)
	}

	got, _ := s.FindByID(ctx, u.ID)
	if got.RefreshTokenHash != "fp-2" {
		t.Fatalf("stored fingerprint=%q want fp-2", got.RefreshTokenHash)
	}

	if err := s.SetRefreshToken(ctx, u.ID, ""); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got, _ = s.FindByID(ctx, u.ID)
	if got.RefreshTokenHash != "" {
		t.Fatalf("expected cleared fingerprint")
	}

	if err := s.SetRefreshToken(ctx, "missing", "x"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStore_SwapRefreshToken_SingleWinner(t *testing.T) {
	s := NewMemoryStore()
	u := mustCreate(t, s, "alice", "alice@example.com")
	ctx := context.Background()

	if err := s.SetRefreshToken(ctx, u.ID, "fp-start"); err != nil {
		t.Fatalf("SetRefreshToken: %v", err)
	}

	const workers = 32
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			ok, err := s.SwapRefreshToken(ctx, u.ID, "fp-start", "fp-next")
			if err != nil {
				t.Errorf("swap %d: %v", i, err)
				return
			}
			if ok {
				wins.Add(1)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	if got := wins.Load(); got != 1 {
		t.Fatalf("expected exactly one winner, got %d", got)
	}
}

func TestMemoryStore_HonorsCanceledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.FindByID(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := s.SetRefreshToken(ctx, "x", "y"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
