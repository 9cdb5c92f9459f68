package usecases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/domain/device"
)

func TestUnclaimDeviceReleasesOwnership(t *testing.T) {
	f := newFixture()
	rec := provisionFixture(t, f, "AABBCCDD")
	ctx := context.Background()

	_, err := f.claim.Execute(ctx, ClaimDeviceCommand{Serial: rec.Serial, UID: "u1"})
	require.NoError(t, err)

	res, err := f.unclaim.Execute(ctx, UnclaimDeviceCommand{HWID: rec.HWID, ActorUID: "u1", Reason: "moving house"})
	require.NoError(t, err)
	assert.Equal(t, device.UnclaimOutcomeUnclaimed, res.Outcome)
	require.NotNil(t, res.Record)
	assert.Empty(t, res.Record.ClaimedBy)

	last := res.Record.AuditTrail[len(res.Record.AuditTrail)-1]
	assert.Equal(t, device.ActionUnclaim, last.Action)
	assert.Equal(t, "moving house", last.Reason)
}

func TestUnclaimDeviceOutcomes(t *testing.T) {
	f := newFixture()
	rec := provisionFixture(t, f, "AABBCCDD")
	ctx := context.Background()

	res, err := f.unclaim.Execute(ctx, UnclaimDeviceCommand{HWID: "ABSENT00", ActorUID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, device.UnclaimOutcomeNotFound, res.Outcome)

	_, err = f.claim.Execute(ctx, ClaimDeviceCommand{Serial: rec.Serial, UID: "u1"})
	require.NoError(t, err)

	res, err = f.unclaim.Execute(ctx, UnclaimDeviceCommand{HWID: rec.HWID, ActorUID: "u2"})
	require.NoError(t, err)
	assert.Equal(t, device.UnclaimOutcomeNotOwned, res.Outcome)

	_, err = f.revoke.Execute(ctx, RevokeDeviceCommand{HWID: rec.HWID, ActorUID: "admin1"})
	require.NoError(t, err)

	res, err = f.unclaim.Execute(ctx, UnclaimDeviceCommand{HWID: rec.HWID, ActorUID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, device.UnclaimOutcomeNotActive, res.Outcome)
}

func TestRevokeDeviceOutcomes(t *testing.T) {
	f := newFixture()
	rec := provisionFixture(t, f, "AABBCCDD")
	ctx := context.Background()

	res, err := f.revoke.Execute(ctx, RevokeDeviceCommand{HWID: rec.HWID, ActorUID: "admin1", Reason: "fraud"})
	require.NoError(t, err)
	assert.Equal(t, device.RevokeOutcomeRevoked, res.Outcome)
	assert.Equal(t, device.StatusRevoked, res.Record.Status)

	res, err = f.revoke.Execute(ctx, RevokeDeviceCommand{HWID: rec.HWID, ActorUID: "admin1"})
	require.NoError(t, err)
	assert.Equal(t, device.RevokeOutcomeAlreadyRevoked, res.Outcome)

	res, err = f.revoke.Execute(ctx, RevokeDeviceCommand{HWID: "ABSENT00", ActorUID: "admin1"})
	require.NoError(t, err)
	assert.Equal(t, device.RevokeOutcomeNotFound, res.Outcome)
}

func TestReactivateDeviceOutcomes(t *testing.T) {
	f := newFixture()
	rec := provisionFixture(t, f, "AABBCCDD")
	ctx := context.Background()

	res, err := f.reactivate.Execute(ctx, ReactivateDeviceCommand{HWID: rec.HWID, ActorUID: "admin1"})
	require.NoError(t, err)
	assert.Equal(t, device.ReactivateOutcomeAlreadyActive, res.Outcome)

	_, err = f.claim.Execute(ctx, ClaimDeviceCommand{Serial: rec.Serial, UID: "u1"})
	require.NoError(t, err)
	_, err = f.revoke.Execute(ctx, RevokeDeviceCommand{HWID: rec.HWID, ActorUID: "admin1", Reason: "fraud"})
	require.NoError(t, err)

	res, err = f.reactivate.Execute(ctx, ReactivateDeviceCommand{HWID: rec.HWID, ActorUID: "admin1", Reason: "appeal"})
	require.NoError(t, err)
	assert.Equal(t, device.ReactivateOutcomeReactivated, res.Outcome)
	assert.Equal(t, device.StatusActive, res.Record.Status)
	assert.Empty(t, res.Record.ClaimedBy, "reactivation comes back unclaimed")

	res, err = f.reactivate.Execute(ctx, ReactivateDeviceCommand{HWID: "ABSENT00", ActorUID: "admin1"})
	require.NoError(t, err)
	assert.Equal(t, device.ReactivateOutcomeNotFound, res.Outcome)
}

func TestAuditTrailOrderAcrossLifecycle(t *testing.T) {
	f := newFixture()
	rec := provisionFixture(t, f, "AABBCCDD")
	ctx := context.Background()

	_, err := f.claim.Execute(ctx, ClaimDeviceCommand{Serial: rec.Serial, UID: "u1"})
	require.NoError(t, err)
	_, err = f.unclaim.Execute(ctx, UnclaimDeviceCommand{HWID: rec.HWID, ActorUID: "u1"})
	require.NoError(t, err)
	_, err = f.claim.Execute(ctx, ClaimDeviceCommand{Serial: rec.Serial, UID: "u2"})
	require.NoError(t, err)
	_, err = f.revoke.Execute(ctx, RevokeDeviceCommand{HWID: rec.HWID, ActorUID: "admin1"})
	require.NoError(t, err)
	_, err = f.reactivate.Execute(ctx, ReactivateDeviceCommand{HWID: rec.HWID, ActorUID: "admin1"})
	require.NoError(t, err)

	current, err := f.deviceRepo.GetByHWID(ctx, rec.HWID)
	require.NoError(t, err)

	actions := make([]string, 0, len(current.AuditTrail))
	for _, entry := range current.AuditTrail {
		actions = append(actions, entry.Action)
	}
	assert.Equal(t, []string{
		device.ActionClaim,
		device.ActionUnclaim,
		device.ActionClaim,
		device.ActionRevoke,
		device.ActionReactivate,
	}, actions)
}
