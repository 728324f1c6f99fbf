package integration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DrewHollis/gatehouse/internal/models"
	"github.com/DrewHollis/gatehouse/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDB *TestDB

func TestMain(m *testing.M) {
	ctx := context.Background()

	db, err := SetupTestDatabase(ctx)
	if err != nil {
		fmt.Printf("failed to set up test database: %v\n", err)
		return
	}
	testDB = db

	code := m.Run()

	testDB.Teardown(ctx)

	if code != 0 {
		panic("integration tests failed")
	}
}

func resetTables(t *testing.T) {
	t.Helper()
	require.NoError(t, testDB.CleanupTables(context.Background()))
}

func testDeviceInfo(name string) models.DeviceInfo {
	return models.DeviceInfo{
		DisplayName: name,
		Browser:     "Chrome",
		Platform:    "Linux",
		DeviceClass: models.DeviceClassDesktop,
		IPAddress:   "10.0.0.1",
	}
}

func TestAdmit_FirstDeviceRegisters(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	user, err := SeedUser(ctx, testDB.DB, "first@example.com", "TestPassword123!", true)
	require.NoError(t, err)

	repo := repositories.NewDeviceRepository(testDB.DB)

	device, err := repo.Admit(ctx, user.ID, true, "fp-a", testDeviceInfo("Device A"), "session-1")
	require.NoError(t, err)
	assert.True(t, device.IsActive)
	assert.Equal(t, user.ID, device.OwnerUserID)
	require.NotNil(t, device.SessionID)
	assert.Equal(t, "session-1", *device.SessionID)
}

func TestAdmit_SecondFingerprintBlocked(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	user, err := SeedUser(ctx, testDB.DB, "blocked@example.com", "TestPassword123!", true)
	require.NoError(t, err)

	repo := repositories.NewDeviceRepository(testDB.DB)

	winner, err := repo.Admit(ctx, user.ID, true, "fp-a", testDeviceInfo("Device A"), "session-1")
	require.NoError(t, err)

	_, err = repo.Admit(ctx, user.ID, true, "fp-b", testDeviceInfo("Device B"), "session-2")
	require.Error(t, err)

	var blocked *models.DeviceBlockedError
	require.True(t, errors.As(err, &blocked))
	assert.Equal(t, winner.ID, blocked.Blocking.ID)
}

func TestAdmit_SameFingerprintIsIdempotent(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	user, err := SeedUser(ctx, testDB.DB, "relogin@example.com", "TestPassword123!", true)
	require.NoError(t, err)

	repo := repositories.NewDeviceRepository(testDB.DB)

	first, err := repo.Admit(ctx, user.ID, true, "fp-a", testDeviceInfo("Device A"), "session-1")
	require.NoError(t, err)

	second, err := repo.Admit(ctx, user.ID, true, "fp-a", testDeviceInfo("Device A"), "session-2")
	require.NoError(t, err)

	// Same row, rebound to the new session
	assert.Equal(t, first.ID, second.ID)
	require.NotNil(t, second.SessionID)
	assert.Equal(t, "session-2", *second.SessionID)

	devices, err := repo.ListForOwner(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, devices, 1)
}

func TestAdmit_LogoutReleasesDevice(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	user, err := SeedUser(ctx, testDB.DB, "logout@example.com", "TestPassword123!", true)
	require.NoError(t, err)

	repo := repositories.NewDeviceRepository(testDB.DB)

	_, err = repo.Admit(ctx, user.ID, true, "fp-a", testDeviceInfo("Device A"), "session-1")
	require.NoError(t, err)

	released, err := repo.DeactivateBySession(ctx, "session-1")
	require.NoError(t, err)
	assert.False(t, released.IsActive)
	assert.Nil(t, released.SessionID)

	// A different device may now register
	device, err := repo.Admit(ctx, user.ID, true, "fp-b", testDeviceInfo("Device B"), "session-2")
	require.NoError(t, err)
	assert.True(t, device.IsActive)

	// And the single-active invariant still holds
	active, err := repo.GetActiveForOwner(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, device.ID, active.ID)
}

func TestAdmit_ConcurrentLoginsSingleWinner(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	user, err := SeedUser(ctx, testDB.DB, "race@example.com", "TestPassword123!", true)
	require.NoError(t, err)

	repo := repositories.NewDeviceRepository(testDB.DB)

	const attempts = 8
	var wg sync.WaitGroup
	results := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fp := fmt.Sprintf("fp-%d", i)
			session := fmt.Sprintf("session-%d", i)
			_, results[i] = repo.Admit(ctx, user.ID, true, fp, testDeviceInfo("Racer"), session)
		}(i)
	}
	wg.Wait()

	wins, losses := 0, 0
	for _, err := range results {
		if err == nil {
			wins++
			continue
		}
		var blocked *models.DeviceBlockedError
		require.True(t, errors.As(err, &blocked), "unexpected error: %v", err)
		losses++
	}

	assert.Equal(t, 1, wins, "exactly one concurrent login must win")
	assert.Equal(t, attempts-1, losses)

	active, err := repo.GetActiveForOwner(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, active.IsActive)
}

func TestAdmit_EnforcementDisabledAllowsMany(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	user, err := SeedUser(ctx, testDB.DB, "multi@example.com", "TestPassword123!", false)
	require.NoError(t, err)

	repo := repositories.NewDeviceRepository(testDB.DB)

	_, err = repo.Admit(ctx, user.ID, false, "fp-a", testDeviceInfo("Device A"), "session-1")
	require.NoError(t, err)
	_, err = repo.Admit(ctx, user.ID, false, "fp-b", testDeviceInfo("Device B"), "session-2")
	require.NoError(t, err)

	devices, err := repo.ListForOwner(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, devices, 2)
}

func TestEnableEnforcement_WithTwoActiveDevices(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	user, err := SeedUser(ctx, testDB.DB, "toggle@example.com", "TestPassword123!", false)
	require.NoError(t, err)

	deviceRepo := repositories.NewDeviceRepository(testDB.DB)
	userRepo := repositories.NewUserRepository(testDB.DB)

	// Two devices accrued while the account was unenforced
	_, err = deviceRepo.Admit(ctx, user.ID, false, "fp-a", testDeviceInfo("Device A"), "session-1")
	require.NoError(t, err)
	_, err = deviceRepo.Admit(ctx, user.ID, false, "fp-b", testDeviceInfo("Device B"), "session-2")
	require.NoError(t, err)

	// Flipping enforcement on releases the active devices in the same
	// operation, otherwise each device would block the other forever.
	require.NoError(t, userRepo.SetSingleDeviceLogin(ctx, user.ID, true))
	released, err := deviceRepo.DeactivateAllForOwner(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), released)

	// The next login wins cleanly, even from a brand-new fingerprint
	device, err := deviceRepo.Admit(ctx, user.ID, true, "fp-c", testDeviceInfo("Device C"), "session-3")
	require.NoError(t, err)
	assert.True(t, device.IsActive)

	active, err := deviceRepo.GetActiveForOwner(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, device.ID, active.ID)
}

func TestAdmit_UsersDoNotContend(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	alice, err := SeedUser(ctx, testDB.DB, "alice@example.com", "TestPassword123!", true)
	require.NoError(t, err)
	bob, err := SeedUser(ctx, testDB.DB, "bob@example.com", "TestPassword123!", true)
	require.NoError(t, err)

	repo := repositories.NewDeviceRepository(testDB.DB)

	_, err = repo.Admit(ctx, alice.ID, true, "fp-a", testDeviceInfo("Alice Device"), "session-a")
	require.NoError(t, err)
	_, err = repo.Admit(ctx, bob.ID, true, "fp-b", testDeviceInfo("Bob Device"), "session-b")
	require.NoError(t, err)
}

func TestTouchActivity_NeverReactivates(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	user, err := SeedUser(ctx, testDB.DB, "touch@example.com", "TestPassword123!", true)
	require.NoError(t, err)

	repo := repositories.NewDeviceRepository(testDB.DB)

	_, err = repo.Admit(ctx, user.ID, true, "fp-a", testDeviceInfo("Device A"), "session-1")
	require.NoError(t, err)

	_, err = repo.DeactivateBySession(ctx, "session-1")
	require.NoError(t, err)

	session := "session-1"
	require.NoError(t, repo.TouchActivity(ctx, user.ID, "fp-a", &session))

	device, err := repo.GetByOwnerAndFingerprint(ctx, user.ID, "fp-a")
	require.NoError(t, err)
	assert.False(t, device.IsActive)
	assert.Nil(t, device.SessionID)
}

func TestPurgeInactive_SparesActiveDevices(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	user, err := SeedUser(ctx, testDB.DB, "purge@example.com", "TestPassword123!", false)
	require.NoError(t, err)

	repo := repositories.NewDeviceRepository(testDB.DB)

	_, err = repo.Admit(ctx, user.ID, false, "fp-active", testDeviceInfo("Active"), "session-1")
	require.NoError(t, err)
	_, err = repo.Admit(ctx, user.ID, false, "fp-stale", testDeviceInfo("Stale"), "session-2")
	require.NoError(t, err)
	_, err = repo.DeactivateBySession(ctx, "session-2")
	require.NoError(t, err)

	// Cutoff in the future catches the stale row regardless of clock skew
	purged, err := repo.PurgeInactive(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	devices, err := repo.ListForOwner(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "fp-active", devices[0].Fingerprint)
}

func TestAuthEvents_AppendAndQuery(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	user, err := SeedUser(ctx, testDB.DB, "events@example.com", "TestPassword123!", true)
	require.NoError(t, err)

	repo := repositories.NewAuthEventRepository(testDB.DB)

	_, err = repo.Create(ctx, &models.AuthEvent{
		ActorUserID: &user.ID,
		EventType:   models.EventTypeLoginSuccess,
		Outcome:     models.OutcomeSuccess,
		IPAddress:   "10.0.0.1",
		Metadata:    models.EventMetadata{"device_id": "abc"},
	})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &models.AuthEvent{
		EventType: models.EventTypeInvalidCredentials,
		Outcome:   models.OutcomeFailure,
		IPAddress: "10.0.0.2",
	})
	require.NoError(t, err)

	byActor, err := repo.ListByActor(ctx, user.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, byActor, 1)
	assert.Equal(t, "abc", byActor[0].Metadata["device_id"])

	failures, err := repo.ListFailures(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, models.EventTypeInvalidCredentials, failures[0].EventType)
	assert.Nil(t, failures[0].ActorUserID)
}
