package store

import (
	"database/sql"
	"sync"
	"testing"

	"github.com/rbhagat/legalease/internal/database"
)

func setupResetTokenTestDB(t *testing.T) (*ResetTokenStore, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewResetTokenStore(db), db
}

func expireToken(t *testing.T, db *sql.DB, token string) {
	t.Helper()
	if _, err := db.Exec(`UPDATE reset_tokens SET expires_at = datetime('now', '-1 hour') WHERE token = ?`, token); err != nil {
		t.Fatalf("expire token: %v", err)
	}
}

func TestResetTokenIssue(t *testing.T) {
	rs, _ := setupResetTokenTestDB(t)

	rt, err := rs.Issue("alice@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(rt.Code) != 6 {
		t.Errorf("code = %q, want 6 digits", rt.Code)
	}
	for _, c := range rt.Code {
		if c < '0' || c > '9' {
			t.Errorf("code %q contains non-digit %q", rt.Code, c)
		}
	}
	if rt.Token == "" {
		t.Error("expected non-empty token")
	}
	if rt.Token == rt.Code {
		t.Error("token must be distinct from code")
	}
	if rt.Used {
		t.Error("fresh token must not be used")
	}
}

func TestResetTokenReissueInvalidatesPrevious(t *testing.T) {
	rs, _ := setupResetTokenTestDB(t)

	first, err := rs.Issue("alice@example.com")
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}
	second, err := rs.Issue("alice@example.com")
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}

	got, err := rs.GetByEmailAndCode("alice@example.com", first.Code)
	if err != nil {
		t.Fatalf("lookup old code: %v", err)
	}
	// The old code may collide with the new one; the old row itself is gone.
	if got != nil && got.Token == first.Token {
		t.Error("previous attempt still redeemable after reissue")
	}

	got, err = rs.GetByEmailAndCode("alice@example.com", second.Code)
	if err != nil {
		t.Fatalf("lookup new code: %v", err)
	}
	if got == nil || got.Token != second.Token {
		t.Error("current attempt not found by its code")
	}
}

func TestResetTokenGetByEmailAndCode(t *testing.T) {
	rs, _ := setupResetTokenTestDB(t)

	rt, err := rs.Issue("alice@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	got, err := rs.GetByEmailAndCode("alice@example.com", "000000")
	if err != nil {
		t.Fatalf("lookup wrong code: %v", err)
	}
	if got != nil && rt.Code != "000000" {
		t.Error("wrong code matched")
	}

	got, err = rs.GetByEmailAndCode("bob@example.com", rt.Code)
	if err != nil {
		t.Fatalf("lookup wrong email: %v", err)
	}
	if got != nil {
		t.Error("code matched for the wrong email")
	}
}

func TestResetTokenGetByEmailAndCodeExpired(t *testing.T) {
	rs, db := setupResetTokenTestDB(t)

	rt, err := rs.Issue("alice@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	expireToken(t, db, rt.Token)

	got, err := rs.GetByEmailAndCode("alice@example.com", rt.Code)
	if err != nil {
		t.Fatalf("lookup expired: %v", err)
	}
	if got != nil {
		t.Error("expired attempt matched")
	}
}

func TestResetTokenConsumeOnce(t *testing.T) {
	rs, _ := setupResetTokenTestDB(t)

	rt, err := rs.Issue("alice@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	email, err := rs.Consume(rt.Token)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if email != "alice@example.com" {
		t.Errorf("email = %q, want %q", email, "alice@example.com")
	}

	email, err = rs.Consume(rt.Token)
	if err != nil {
		t.Fatalf("second consume: %v", err)
	}
	if email != "" {
		t.Errorf("second consume returned %q, want empty", email)
	}
}

func TestResetTokenConsumeConcurrent(t *testing.T) {
	rs, _ := setupResetTokenTestDB(t)

	rt, err := rs.Issue("alice@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	const workers = 16
	var wg sync.WaitGroup
	emails := make(chan string, workers)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			email, err := rs.Consume(rt.Token)
			if err != nil {
				errs <- err
				return
			}
			if email != "" {
				emails <- email
			}
		}()
	}
	wg.Wait()
	close(emails)
	close(errs)

	for err := range errs {
		t.Errorf("consume: %v", err)
	}
	var winners int
	for email := range emails {
		winners++
		if email != "alice@example.com" {
			t.Errorf("winner email = %q, want %q", email, "alice@example.com")
		}
	}
	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}
}

func TestResetTokenConsumeAfterRowDeleted(t *testing.T) {
	rs, _ := setupResetTokenTestDB(t)

	first, err := rs.Issue("alice@example.com")
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}
	// Reissuing deletes the earlier row entirely; redeeming the stale token
	// must report a miss, not an error.
	if _, err := rs.Issue("alice@example.com"); err != nil {
		t.Fatalf("second issue: %v", err)
	}

	email, err := rs.Consume(first.Token)
	if err != nil {
		t.Fatalf("consume stale token: %v", err)
	}
	if email != "" {
		t.Errorf("stale token returned %q, want empty", email)
	}
}

func TestResetTokenConsumeUnknown(t *testing.T) {
	rs, _ := setupResetTokenTestDB(t)

	email, err := rs.Consume("no-such-token")
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if email != "" {
		t.Errorf("consume unknown returned %q, want empty", email)
	}
}

func TestResetTokenConsumeExpired(t *testing.T) {
	rs, db := setupResetTokenTestDB(t)

	rt, err := rs.Issue("alice@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	expireToken(t, db, rt.Token)

	email, err := rs.Consume(rt.Token)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if email != "" {
		t.Errorf("consume expired returned %q, want empty", email)
	}
}

func TestResetTokenDeleteExpired(t *testing.T) {
	rs, db := setupResetTokenTestDB(t)

	stale, err := rs.Issue("stale@example.com")
	if err != nil {
		t.Fatalf("issue stale: %v", err)
	}
	expireToken(t, db, stale.Token)
	if _, err := rs.Issue("fresh@example.com"); err != nil {
		t.Fatalf("issue fresh: %v", err)
	}

	n, err := rs.DeleteExpired()
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}

	var remaining int
	if err := db.QueryRow(`SELECT COUNT(*) FROM reset_tokens`).Scan(&remaining); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if remaining != 1 {
		t.Errorf("remaining rows = %d, want 1", remaining)
	}
}
