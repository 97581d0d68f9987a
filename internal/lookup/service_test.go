package lookup

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beamtime/ims/internal/errs"
	"github.com/beamtime/ims/internal/storage"
	"github.com/beamtime/ims/internal/storage/sqlite"
	"github.com/beamtime/ims/internal/types"
)

func newTestStore(t *testing.T) storage.Storage {
	t.Helper()
	store, err := sqlite.New(context.Background(), storage.Config{
		Path:           filepath.Join(t.TempDir(), "test.db"),
		MaxTrailLength: 5,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestUnitLifecycle(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store)
	ctx := context.Background()

	mm, err := svc.CreateUnit(ctx, "mm")
	require.NoError(t, err)
	assert.Equal(t, "mm", mm.Code)

	_, err = svc.CreateUnit(ctx, "mm")
	assert.True(t, errs.Is(err, errs.DuplicateRecord), "codes are globally unique")

	_, err = svc.CreateUnit(ctx, "  ")
	assert.True(t, errs.Is(err, errs.InvalidAction))

	units, err := svc.ListUnits(ctx)
	require.NoError(t, err)
	assert.Len(t, units, 1)

	require.NoError(t, svc.DeleteUnit(ctx, mm.ID))
	err = svc.DeleteUnit(ctx, mm.ID)
	assert.True(t, errs.Is(err, errs.MissingRecord))
}

func TestRuleShapes(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store)
	ctx := context.Background()

	st, err := svc.CreateSystemType(ctx, "Storage")
	require.NoError(t, err)
	op, err := svc.CreateSystemType(ctx, "Operational")
	require.NoError(t, err)
	status, err := svc.CreateUsageStatus(ctx, "New")
	require.NoError(t, err)

	// All-null rules are meaningless.
	_, err = svc.CreateRule(ctx, RuleIn{})
	assert.True(t, errs.Is(err, errs.InvalidAction))

	// A move between identical types is not a transition.
	_, err = svc.CreateRule(ctx, RuleIn{
		SrcSystemTypeID:  &st.ID,
		DstSystemTypeID:  &st.ID,
		DstUsageStatusID: &status.ID,
	})
	assert.True(t, errs.Is(err, errs.InvalidAction))

	// Creation/move rules need a usage status; deletion rules refuse one.
	_, err = svc.CreateRule(ctx, RuleIn{DstSystemTypeID: &st.ID})
	assert.True(t, errs.Is(err, errs.InvalidAction))
	_, err = svc.CreateRule(ctx, RuleIn{SrcSystemTypeID: &st.ID, DstUsageStatusID: &status.ID})
	assert.True(t, errs.Is(err, errs.InvalidAction))

	creation, err := svc.CreateRule(ctx, RuleIn{DstSystemTypeID: &st.ID, DstUsageStatusID: &status.ID})
	require.NoError(t, err)
	assert.Nil(t, creation.SrcSystemTypeID)

	// Duplicates collide on the triple index.
	_, err = svc.CreateRule(ctx, RuleIn{DstSystemTypeID: &st.ID, DstUsageStatusID: &status.ID})
	assert.True(t, errs.Is(err, errs.DuplicateRecord))

	move, err := svc.CreateRule(ctx, RuleIn{
		SrcSystemTypeID:  &st.ID,
		DstSystemTypeID:  &op.ID,
		DstUsageStatusID: &status.ID,
	})
	require.NoError(t, err)
	deletion, err := svc.CreateRule(ctx, RuleIn{SrcSystemTypeID: &st.ID})
	require.NoError(t, err)

	rules, err := svc.ListRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 3)

	require.NoError(t, svc.DeleteRule(ctx, move.ID))
	require.NoError(t, svc.DeleteRule(ctx, deletion.ID))
}

func TestSystemTypeDeleteGuards(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store)
	ctx := context.Background()

	st, err := svc.CreateSystemType(ctx, "Storage")
	require.NoError(t, err)
	op, err := svc.CreateSystemType(ctx, "Operational")
	require.NoError(t, err)
	status, err := svc.CreateUsageStatus(ctx, "New")
	require.NoError(t, err)

	_, err = svc.CreateRule(ctx, RuleIn{DstSystemTypeID: &st.ID, DstUsageStatusID: &status.ID})
	require.NoError(t, err)

	err = svc.DeleteSystemType(ctx, st.ID)
	assert.True(t, errs.Is(err, errs.ChildElementsExist), "referenced by a rule")

	err = svc.DeleteUsageStatus(ctx, status.ID)
	assert.True(t, errs.Is(err, errs.ChildElementsExist), "referenced by a rule")

	require.NoError(t, svc.DeleteSystemType(ctx, op.ID))
}

func TestSetSparesDefinitionValidation(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store)
	ctx := context.Background()

	_, err := svc.SetSparesDefinition(ctx, types.SparesDefinition{})
	assert.True(t, errs.Is(err, errs.InvalidAction))

	_, err = svc.SetSparesDefinition(ctx, types.SparesDefinition{
		UsageStatusIDs: []string{"ffffffffffffffffffffffff"},
	})
	assert.True(t, errs.Is(err, errs.MissingRecord))

	scrapped, err := svc.CreateUsageStatus(ctx, "Scrapped")
	require.NoError(t, err)
	def, err := svc.SetSparesDefinition(ctx, types.SparesDefinition{
		UsageStatusIDs: []string{scrapped.ID, scrapped.ID},
	})
	require.NoError(t, err)
	assert.Len(t, def.UsageStatusIDs, 1, "duplicates collapsed")

	got, err := svc.GetSparesDefinition(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{scrapped.ID}, got.UsageStatusIDs)

	// The definition now guards its usage status against deletion.
	err = svc.DeleteUsageStatus(ctx, scrapped.ID)
	assert.True(t, errs.Is(err, errs.ChildElementsExist))
}

func TestManufacturerLifecycle(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store)
	ctx := context.Background()

	_, err := svc.CreateManufacturer(ctx, ManufacturerIn{Name: "Acme"})
	assert.True(t, errs.Is(err, errs.InvalidAction), "incomplete address")

	m, err := svc.CreateManufacturer(ctx, ManufacturerIn{
		Name: "Acme Optics",
		Address: types.Address{
			AddressLine: "1 Example Road",
			Country:     "United Kingdom",
			Postcode:    "AB1 2CD",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "acme-optics", m.Code)

	name := "Acme Optics Ltd"
	got, err := svc.UpdateManufacturer(ctx, m.ID, ManufacturerPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "acme-optics-ltd", got.Code)

	require.NoError(t, svc.DeleteManufacturer(ctx, m.ID))
}
