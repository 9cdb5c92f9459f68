package usecases

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accountUsecases "github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/application/account/usecases"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/application/device/serialalloc"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/domain/device"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/infrastructure/docstore"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/infrastructure/repository"
	apperrors "github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/errors"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/logger"
)

func quietLogger() logger.Interface {
	return logger.NewLoggerWithSlog(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fixture wires the device and account stacks on one in-memory store,
// the way the router wires them on the real one.
type fixture struct {
	store      *docstore.MemStore
	deviceRepo device.Repository
	provision  *ProvisionDeviceUseCase
	claim      *ClaimDeviceUseCase
	unclaim    *UnclaimDeviceUseCase
	revoke     *RevokeDeviceUseCase
	reactivate *ReactivateDeviceUseCase
	get        *GetDeviceUseCase
	profile    *accountUsecases.GetProfileUseCase
}

func newFixture() *fixture {
	log := quietLogger()
	store := docstore.NewMemStore()
	deviceRepo := repository.NewDeviceRepository(store, log)
	accountRepo := repository.NewAccountRepository(store, log)
	alloc := serialalloc.NewDocstoreAllocator(store, log)
	merge := accountUsecases.NewMergeProfileUseCase(accountRepo, log)

	return &fixture{
		store:      store,
		deviceRepo: deviceRepo,
		provision:  NewProvisionDeviceUseCase(deviceRepo, alloc, log),
		claim:      NewClaimDeviceUseCase(deviceRepo, merge, log),
		unclaim:    NewUnclaimDeviceUseCase(deviceRepo, log),
		revoke:     NewRevokeDeviceUseCase(deviceRepo, log),
		reactivate: NewReactivateDeviceUseCase(deviceRepo, log),
		get:        NewGetDeviceUseCase(deviceRepo, log),
		profile:    accountUsecases.NewGetProfileUseCase(accountRepo, log),
	}
}

func TestProvisionDeviceCreatesRecord(t *testing.T) {
	f := newFixture()

	res, err := f.provision.Execute(context.Background(), ProvisionDeviceCommand{
		HWID:     "aabbccdd",
		Metadata: map[string]any{"batch": "2026-08", "rev": 3},
	})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, "AABBCCDD", res.Record.HWID, "hardware id is normalized to upper case")
	assert.Equal(t, "000001", res.Record.Serial)
	assert.Equal(t, "autowatering-000001", res.Record.ThingName)
	assert.Equal(t, device.StatusActive, res.Record.Status)
}

func TestProvisionDeviceIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.provision.Execute(ctx, ProvisionDeviceCommand{HWID: "AABBCCDD"})
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := f.provision.Execute(ctx, ProvisionDeviceCommand{HWID: "AABBCCDD"})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Record.Serial, second.Record.Serial, "a hardware id never gets a second serial")
}

func TestProvisionDeviceConcurrentSameHWID(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	const callers = 8
	results := make(chan *ProvisionDeviceResult, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.provision.Execute(ctx, ProvisionDeviceCommand{HWID: "AABBCCDD"})
			assert.NoError(t, err)
			results <- res
		}()
	}
	wg.Wait()
	close(results)

	created := 0
	serials := map[string]bool{}
	for res := range results {
		if res.Created {
			created++
		}
		serials[res.Record.Serial] = true
	}
	assert.Equal(t, 1, created, "exactly one caller wins the insert race")
	assert.Len(t, serials, 1, "every caller sees the winner's serial")
}

func TestProvisionDeviceDistinctSerials(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.provision.Execute(ctx, ProvisionDeviceCommand{HWID: "AABBCC01"})
	require.NoError(t, err)
	second, err := f.provision.Execute(ctx, ProvisionDeviceCommand{HWID: "AABBCC02"})
	require.NoError(t, err)

	assert.NotEqual(t, first.Record.Serial, second.Record.Serial)
	assert.Equal(t, first.Record.SerialSeq+1, second.Record.SerialSeq)
}

func TestProvisionDeviceInvalidHWID(t *testing.T) {
	f := newFixture()

	for _, hwID := range []string{"", "short", "has spaces 123", "lower!chars#"} {
		_, err := f.provision.Execute(context.Background(), ProvisionDeviceCommand{HWID: hwID})
		require.Error(t, err, "hw id %q", hwID)
		assert.True(t, apperrors.IsValidationError(err))
	}
}

func TestProvisionDeviceInvalidMetadata(t *testing.T) {
	f := newFixture()

	_, err := f.provision.Execute(context.Background(), ProvisionDeviceCommand{
		HWID:     "AABBCCDD",
		Metadata: map[string]any{"nested": map[string]any{"not": "allowed"}},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
}

func TestGetDeviceNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.get.Execute(context.Background(), "ABSENT00")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFoundError(err))
}
