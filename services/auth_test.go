package services

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Tirth-chokshi/strategy-backend/models"
	"github.com/Tirth-chokshi/strategy-backend/repository/memrepo"
	"github.com/Tirth-chokshi/strategy-backend/utils"
)

type sentMail struct {
	to, subject, body string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) SendMail(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

func (m *recordingMailer) last() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

type authFixture struct {
	svc    *AuthService
	users  *memrepo.Users
	strats *memrepo.Strategies
	mailer *recordingMailer
	now    time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		users:  memrepo.NewUsers(),
		strats: memrepo.NewStrategies(),
		mailer: &recordingMailer{},
		now:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = &AuthService{
		Users:      f.users,
		Strategies: f.strats,
		Tokens:     utils.NewTokenIssuer("test-secret", 12*time.Hour),
		Mailer:     f.mailer,
		ResetTTL:   time.Hour,
		ResetURL:   "http://localhost:3000/reset-password",
		Now:        func() time.Time { return f.now },
	}
	return f
}

func (f *authFixture) register(t *testing.T, email, password string) *models.User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), RegisterInput{Email: email, Password: password, Name: "Trader"})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return u
}

func wantKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}

// resetTokenFromMail pulls the token query parameter out of the mailed link.
func resetTokenFromMail(t *testing.T, m *recordingMailer) string {
	t.Helper()
	body := m.last().body
	i := strings.Index(body, "token=")
	if i < 0 {
		t.Fatalf("no token in mail body: %q", body)
	}
	return strings.Fields(body[i+len("token="):])[0]
}

func TestRegisterStoresHashOnly(t *testing.T) {
	f := newAuthFixture(t)
	u := f.register(t, "  Alice@Example.com ", "s3cret")

	if u.Password != "" {
		t.Fatalf("returned user carries password hash")
	}
	if u.Email != "alice@example.com" {
		t.Fatalf("email not normalized: %q", u.Email)
	}

	stored, err := f.users.FindByID(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("find stored user: %v", err)
	}
	if stored.Password == "s3cret" || stored.Password == "" {
		t.Fatalf("stored password is not a hash: %q", stored.Password)
	}
	if err := utils.CheckPassword(stored.Password, "s3cret"); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "bob@example.com", "pw")

	_, err := f.svc.Register(context.Background(), RegisterInput{Email: "BOB@example.com", Password: "pw2", Name: "Bob"})
	wantKind(t, err, KindConflict)
}

func TestRegisterMissingFields(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.Register(context.Background(), RegisterInput{Email: "x@example.com"})
	wantKind(t, err, KindValidation)
}

func TestLoginUniformFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "carol@example.com", "right")
	ctx := context.Background()

	_, errUnknown := f.svc.Login(ctx, "nobody@example.com", "right")
	_, errWrong := f.svc.Login(ctx, "carol@example.com", "wrong")
	wantKind(t, errUnknown, KindUnauthorized)
	wantKind(t, errWrong, KindUnauthorized)
	if MessageOf(errUnknown) != MessageOf(errWrong) {
		t.Fatalf("login failures distinguishable: %q vs %q", MessageOf(errUnknown), MessageOf(errWrong))
	}

	_, err := f.svc.Login(ctx, "", "")
	wantKind(t, err, KindValidation)
}

func TestLoginTokenAuthenticates(t *testing.T) {
	f := newAuthFixture(t)
	u := f.register(t, "dave@example.com", "pw")
	ctx := context.Background()

	token, err := f.svc.Login(ctx, "dave@example.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	got, err := f.svc.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("token resolved to %s, want %s", got.ID.Hex(), u.ID.Hex())
	}

	_, err = f.svc.Authenticate(ctx, token+"x")
	wantKind(t, err, KindUnauthorized)
	_, err = f.svc.Authenticate(ctx, "")
	wantKind(t, err, KindUnauthorized)
}

func TestAuthenticateDeletedUser(t *testing.T) {
	f := newAuthFixture(t)
	u := f.register(t, "erin@example.com", "pw")
	ctx := context.Background()

	token, err := f.svc.Login(ctx, "erin@example.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := f.svc.DeleteUser(ctx, u.ID.Hex()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = f.svc.Authenticate(ctx, token)
	wantKind(t, err, KindUnauthorized)
}

func TestUpdateProfile(t *testing.T) {
	f := newAuthFixture(t)
	a := f.register(t, "a@example.com", "pw")
	f.register(t, "b@example.com", "pw")
	ctx := context.Background()

	_, err := f.svc.UpdateProfile(ctx, "not-an-id", models.UserUpdate{})
	wantKind(t, err, KindValidation)

	taken := "B@example.com"
	_, err = f.svc.UpdateProfile(ctx, a.ID.Hex(), models.UserUpdate{Email: &taken})
	wantKind(t, err, KindConflict)

	_, err = f.svc.UpdateProfile(ctx, primitive.NewObjectID().Hex(), models.UserUpdate{})
	wantKind(t, err, KindNotFound)

	f.now = f.now.Add(time.Minute)
	name, pw := "Alice", "new-pw"
	u, err := f.svc.UpdateProfile(ctx, a.ID.Hex(), models.UserUpdate{Name: &name, Password: &pw})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if u.Name != "Alice" || u.Password != "" {
		t.Fatalf("unexpected user after update: %+v", u)
	}
	if !u.UpdatedAt.Equal(f.now) {
		t.Fatalf("updatedAt = %v, want %v", u.UpdatedAt, f.now)
	}
	if _, err := f.svc.Login(ctx, "a@example.com", "new-pw"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	f := newAuthFixture(t)
	u := f.register(t, "owner@example.com", "pw")
	ctx := context.Background()

	strategies := &StrategyService{Repo: f.strats}
	if _, err := strategies.Create(ctx, u.ID, CreateStrategyInput{StrategyName: "s", StrategyDetails: []models.StrategyDetailInput{}}); err != nil {
		t.Fatalf("create strategy: %v", err)
	}

	wantKind(t, f.svc.DeleteUser(ctx, "bad"), KindValidation)
	if err := f.svc.DeleteUser(ctx, u.ID.Hex()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	wantKind(t, f.svc.DeleteUser(ctx, u.ID.Hex()), KindNotFound)

	left, _ := f.strats.ListByUser(ctx, u.ID)
	if len(left) != 0 {
		t.Fatalf("strategies survived account deletion: %d", len(left))
	}
}

func TestPasswordResetFlow(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "reset@example.com", "old")
	ctx := context.Background()

	wantKind(t, f.svc.RequestPasswordReset(ctx, "missing@example.com"), KindNotFound)

	if err := f.svc.RequestPasswordReset(ctx, "reset@example.com"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	mail := f.mailer.last()
	if mail.to != "reset@example.com" {
		t.Fatalf("mail sent to %q", mail.to)
	}
	if !strings.Contains(mail.body, "http://localhost:3000/reset-password?token=") {
		t.Fatalf("mail body lacks reset link: %q", mail.body)
	}
	token := resetTokenFromMail(t, f.mailer)
	if len(token) != 64 {
		t.Fatalf("token length = %d, want 64 hex chars", len(token))
	}

	wantKind(t, f.svc.RedeemPasswordReset(ctx, "unknown", "new"), KindInvalidOrExpired)

	if err := f.svc.RedeemPasswordReset(ctx, token, "new"); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	wantKind(t, f.svc.RedeemPasswordReset(ctx, token, "again"), KindInvalidOrExpired)

	if _, err := f.svc.Login(ctx, "reset@example.com", "new"); err != nil {
		t.Fatalf("login after reset: %v", err)
	}
}

func TestPasswordResetExpired(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "late@example.com", "old")
	ctx := context.Background()

	if err := f.svc.RequestPasswordReset(ctx, "late@example.com"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	token := resetTokenFromMail(t, f.mailer)

	f.now = f.now.Add(time.Hour + time.Second)
	wantKind(t, f.svc.RedeemPasswordReset(ctx, token, "new"), KindInvalidOrExpired)
}

func TestPasswordResetMailFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "mail@example.com", "pw")
	f.mailer.err = context.DeadlineExceeded

	wantKind(t, f.svc.RequestPasswordReset(context.Background(), "mail@example.com"), KindInternal)
}

func TestPasswordResetConcurrentRedemption(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "race@example.com", "old")
	ctx := context.Background()

	if err := f.svc.RequestPasswordReset(ctx, "race@example.com"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	token := resetTokenFromMail(t, f.mailer)

	var ok atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f.svc.RedeemPasswordReset(ctx, token, "new"); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := ok.Load(); got != 1 {
		t.Fatalf("successful redemptions = %d, want 1", got)
	}
}
