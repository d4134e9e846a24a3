package auth

import (
	"database/sql"
	"testing"
	"time"

	"crowny-exchange/internal/db"

	_ "modernc.org/sqlite"
)

func openTestStore(t *testing.T) *db.DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", ":memory:?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	store, err := db.OpenFromHandle(sqlDB)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestRegister_MintsDefaultWalletAndReturnsToken(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	svc := NewService(store, "test-secret")

	p, token, err := svc.Register("a@a", "a", "abcdef")
	if err != nil {
		t.Fatal(err)
	}
	if p.Email != "a@a" || p.Username != "a" {
		t.Errorf("principal = %+v", p)
	}
	if token == "" {
		t.Fatal("expected a non-empty token")
	}

	w, err := store.GetWallet(p.ID, "CRWN")
	if err != nil {
		t.Fatal(err)
	}
	if w.Balance.IntPart() != 1_000_000 {
		t.Errorf("CRWN balance = %v, want 1000000", w.Balance)
	}
	w, _ = store.GetWallet(p.ID, "TRIT") // not among the default mint grants
	if !w.Balance.IsZero() {
		t.Errorf("TRIT balance should be zero, got %v", w.Balance)
	}
}

func TestRegister_RejectsShortPassword(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	svc := NewService(store, "test-secret")

	if _, _, err := svc.Register("b@b", "b", "short"); err == nil {
		t.Fatal("expected rejection of password under minimum length")
	}
}

func TestRegister_DuplicateEmailFails(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	svc := NewService(store, "test-secret")

	if _, _, err := svc.Register("c@c", "c1", "abcdef"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.Register("c@c", "c2", "abcdef"); err == nil {
		t.Fatal("expected conflict on duplicate email")
	}
}

func TestLogin_VerifiesCredentialsAndIssuesToken(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	svc := NewService(store, "test-secret")

	if _, _, err := svc.Register("d@d", "dee", "abcdef"); err != nil {
		t.Fatal(err)
	}

	p, token, err := svc.Login("dee", "abcdef")
	if err != nil {
		t.Fatal(err)
	}
	if p.Username != "dee" {
		t.Errorf("username = %v, want dee", p.Username)
	}
	if token == "" {
		t.Fatal("expected a non-empty token")
	}
}

func TestLogin_WrongPasswordFails(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	svc := NewService(store, "test-secret")

	if _, _, err := svc.Register("e@e", "eee", "abcdef"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.Login("eee", "wrongpass"); err == nil {
		t.Fatal("expected invalid credentials error")
	}
}

func TestAuthenticate_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	svc := NewService(store, "test-secret")

	p, token, err := svc.Register("f@f", "fff", "abcdef")
	if err != nil {
		t.Fatal(err)
	}

	got, err := svc.Authenticate(token)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != p.ID {
		t.Errorf("authenticated id = %v, want %v", got.ID, p.ID)
	}
}

func TestAuthenticate_RejectsTamperedToken(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	svc := NewService(store, "test-secret")

	_, token, err := svc.Register("g@g", "ggg", "abcdef")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Authenticate(token + "tampered"); err == nil {
		t.Fatal("expected tampered token to fail verification")
	}
}

func TestAuthenticate_RejectsWrongSecret(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	svc := NewService(store, "secret-one")

	_, token, err := svc.Register("h@h", "hhh", "abcdef")
	if err != nil {
		t.Fatal(err)
	}

	other := NewService(store, "secret-two")
	if _, err := other.Authenticate(token); err == nil {
		t.Fatal("expected token signed with a different secret to fail")
	}
}

func TestLogout_RevokesToken(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	svc := NewService(store, "test-secret")

	_, token, err := svc.Register("i@i", "iii", "abcdef")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Authenticate(token); err != nil {
		t.Fatal(err)
	}

	if err := svc.Logout(token); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Authenticate(token); err == nil {
		t.Fatal("expected logged-out token to fail authentication")
	}
}

func TestSweepExpired_KeepsUnexpiredSessions(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	svc := NewService(store, "test-secret")

	_, token, err := svc.Register("j@j", "jjj", "abcdef")
	if err != nil {
		t.Fatal(err)
	}

	n, err := svc.SweepExpired(time.Now().Add(-48 * time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("swept %d sessions before expiry, want 0", n)
	}

	if _, err := svc.Authenticate(token); err != nil {
		t.Errorf("token should still be valid: %v", err)
	}
}
