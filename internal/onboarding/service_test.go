package onboarding

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/verihire/onboard/internal/domain"
	"github.com/verihire/onboard/internal/events"
	"github.com/verihire/onboard/internal/registration"
	"github.com/verihire/onboard/internal/session"
)

type capturingPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *capturingPublisher) record(subject string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *capturingPublisher) SignupStarted(ctx context.Context, env events.Envelope) error {
	return p.record(events.SubjectStarted)
}

func (p *capturingPublisher) SignupRegistered(ctx context.Context, env events.Envelope) error {
	return p.record(events.SubjectRegistered)
}

func (p *capturingPublisher) SignupCompleted(ctx context.Context, env events.Envelope) error {
	return p.record(events.SubjectCompleted)
}

func (p *capturingPublisher) Close() {}

func (p *capturingPublisher) seen() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.subjects...)
}

type fakeVault struct {
	mu      sync.Mutex
	stored  map[uuid.UUID]domain.FormState
	failure error
}

func newFakeVault() *fakeVault {
	return &fakeVault{stored: make(map[uuid.UUID]domain.FormState)}
}

func (v *fakeVault) StoreCompleted(ctx context.Context, sessionID uuid.UUID, form domain.FormState) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.failure != nil {
		return v.failure
	}
	v.stored[sessionID] = form
	return nil
}

func newTestService(t *testing.T) (*Service, *registration.Mock, *capturingPublisher, *fakeVault) {
	t.Helper()
	mock := registration.NewMock("u-1", "tok-abc")
	pub := &capturingPublisher{}
	vault := newFakeVault()
	svc := NewService(Config{
		Store:        session.NewMemoryStore(time.Hour),
		Registration: mock,
		Publisher:    pub,
		Completer:    vault,
	})
	return svc, mock, pub, vault
}

func fillPersonal(t *testing.T, svc *Service, id uuid.UUID) {
	t.Helper()
	_, err := svc.UpdateForm(context.Background(), id, domain.Patch{
		domain.FieldFirstName:       "Jane",
		domain.FieldLastName:        "Doe",
		domain.FieldEmail:           "jane@example.com",
		domain.FieldPhone:           "555-0100",
		domain.FieldDOB:             "02/13/1990",
		domain.FieldPassword:        "Sup3r-Secret",
		domain.FieldConfirmPassword: "Sup3r-Secret",
		domain.FieldSSN:             "123-45-6789",
	})
	if err != nil {
		t.Fatalf("UpdateForm: %v", err)
	}
}

func TestService_FullTechieSignup(t *testing.T) {
	svc, mock, pub, vault := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Start(ctx, domain.RoleTechie, domain.CountryUS)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	fillPersonal(t, svc, rec.ID)

	// personal -> experience (registers), experience -> education,
	// education -> review, review -> completed.
	for i := 0; i < 4; i++ {
		if rec, err = svc.Advance(ctx, rec.ID); err != nil {
			t.Fatalf("Advance %d: %v", i, err)
		}
	}

	if !rec.Nav.Completed {
		t.Error("session not completed after terminal advance")
	}
	if mock.RegisterCount() != 1 {
		t.Errorf("register count = %d, want 1", mock.RegisterCount())
	}

	params := mock.RegisterCalls[0]
	if params.DOB != "1990-02-13" {
		t.Errorf("DOB on wire = %q, want 1990-02-13", params.DOB)
	}
	if params.GovID != "6789" {
		t.Errorf("GovID on wire = %q, want 6789", params.GovID)
	}
	if params.Country != "USA" {
		t.Errorf("Country on wire = %q, want USA", params.Country)
	}

	if _, ok := vault.stored[rec.ID]; !ok {
		t.Error("completed signup not stored in vault")
	}
	stored := vault.stored[rec.ID]
	if stored.AccessToken != "tok-abc" {
		t.Errorf("vault saw AccessToken %q", stored.AccessToken)
	}

	want := []string{events.SubjectStarted, events.SubjectRegistered, events.SubjectCompleted}
	got := pub.seen()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestService_AdvanceBlockedReturnsRecordAndError(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Start(ctx, domain.RoleTechie, domain.CountryUS)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	rec, err = svc.Advance(ctx, rec.ID)
	if !domain.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if rec == nil {
		t.Fatal("expected record alongside validation error")
	}
	if len(rec.Nav.Errors) == 0 {
		t.Error("record carries no field errors")
	}

	// The blocked state survives a reload.
	reloaded, err := svc.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(reloaded.Nav.Errors) == 0 {
		t.Error("field errors not persisted")
	}
}

func TestService_RetreatAtFirstStepCancels(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Start(ctx, domain.RoleTechie, domain.CountryUS)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	gone, err := svc.Retreat(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Retreat: %v", err)
	}
	if gone != nil {
		t.Error("expected nil record for cancelled session")
	}

	if _, err := svc.Get(ctx, rec.ID); domain.ErrorCode(err) != domain.ENOTFOUND {
		t.Errorf("cancelled session still loadable: %v", err)
	}
}

func TestService_RegisterOnceAcrossReloads(t *testing.T) {
	svc, mock, _, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Start(ctx, domain.RoleTechie, domain.CountryUS)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	fillPersonal(t, svc, rec.ID)

	if _, err := svc.Advance(ctx, rec.ID); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if _, err := svc.Retreat(ctx, rec.ID); err != nil {
		t.Fatalf("Retreat: %v", err)
	}
	if _, err := svc.Advance(ctx, rec.ID); err != nil {
		t.Fatalf("second Advance: %v", err)
	}

	if mock.RegisterCount() != 1 {
		t.Errorf("register fired %d times across reloads, want 1", mock.RegisterCount())
	}
}

// slowRegisterClient widens the race window between two in-flight
// advances by stalling inside the registration call.
type slowRegisterClient struct {
	*registration.Mock
	delay time.Duration
}

func (c *slowRegisterClient) Register(ctx context.Context, params registration.RegisterParams) (*registration.AuthResult, error) {
	time.Sleep(c.delay)
	return c.Mock.Register(ctx, params)
}

func TestService_ConcurrentAdvanceRegistersOnce(t *testing.T) {
	mock := registration.NewMock("u-1", "tok-abc")
	slow := &slowRegisterClient{Mock: mock, delay: 20 * time.Millisecond}
	svc := NewService(Config{
		Store:        session.NewMemoryStore(time.Hour),
		Registration: slow,
		Publisher:    &capturingPublisher{},
		Completer:    newFakeVault(),
	})
	ctx := context.Background()

	rec, err := svc.Start(ctx, domain.RoleTechie, domain.CountryUS)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	fillPersonal(t, svc, rec.ID)

	// Two clients submit the personal step at the same time. Only the
	// first may reach the registration backend; the second must see the
	// already-registered session.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Advance(ctx, rec.ID)
		}()
	}
	wg.Wait()

	if mock.RegisterCount() != 1 {
		t.Errorf("register fired %d times under concurrent advance, want 1", mock.RegisterCount())
	}

	final, err := svc.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !final.Form.HasToken() {
		t.Error("session has no access token after advance")
	}
	if final.Nav.Loading {
		t.Error("session left in loading state")
	}
}

func TestService_CompletionFailureKeepsSessionOpen(t *testing.T) {
	svc, _, _, vault := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Start(ctx, domain.RoleHiringManager, domain.CountryGB)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	_, err = svc.UpdateForm(ctx, rec.ID, domain.Patch{
		domain.FieldFirstName:       "Alex",
		domain.FieldLastName:        "Smith",
		domain.FieldEmail:           "alex@example.com",
		domain.FieldPhone:           "555-0100",
		domain.FieldPassword:        "Sup3r-Secret",
		domain.FieldConfirmPassword: "Sup3r-Secret",
		domain.FieldNINO:            "QQ123456C",
	})
	if err != nil {
		t.Fatalf("UpdateForm: %v", err)
	}

	if _, err := svc.SetOrganization(ctx, rec.ID, domain.Organization{Name: "Acme Ltd"}); err != nil {
		t.Fatalf("SetOrganization: %v", err)
	}

	// personal -> organization, organization -> review.
	for i := 0; i < 2; i++ {
		if _, err := svc.Advance(ctx, rec.ID); err != nil {
			t.Fatalf("Advance %d: %v", i, err)
		}
	}

	vault.failure = domain.Internal(nil, "vault.store", "could not store signup record")
	rec, err = svc.Advance(ctx, rec.ID)
	if err == nil {
		t.Fatal("expected completion failure")
	}
	if rec.Nav.Completed {
		t.Error("session marked complete despite vault failure")
	}

	vault.failure = nil
	rec, err = svc.Advance(ctx, rec.ID)
	if err != nil {
		t.Fatalf("retry Advance: %v", err)
	}
	if !rec.Nav.Completed {
		t.Error("retry did not complete the session")
	}
}

func TestService_UnknownSession(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Advance(context.Background(), uuid.New())
	if domain.ErrorCode(err) != domain.ENOTFOUND {
		t.Fatalf("expected ENOTFOUND, got %v", err)
	}
}
