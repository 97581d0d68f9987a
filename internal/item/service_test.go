package item

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beamtime/ims/internal/catalogue"
	"github.com/beamtime/ims/internal/errs"
	"github.com/beamtime/ims/internal/lookup"
	"github.com/beamtime/ims/internal/storage"
	"github.com/beamtime/ims/internal/storage/sqlite"
	"github.com/beamtime/ims/internal/system"
	"github.com/beamtime/ims/internal/types"
)

func strp(s string) *string { return &s }

// world is the fixture every item test needs: a catalogue item in a leaf
// category, two system types with systems, usage statuses, and rules
// permitting creation, cross-type moves and deletion.
type world struct {
	store       storage.Storage
	items       *Service
	lookups     *lookup.Service
	catalogue   *catalogue.Service
	catItem     *types.CatalogueItem
	storeRoom   *types.System
	beamline    *types.System
	storageType *types.SystemType
	opType      *types.SystemType
	statusNew   *types.UsageStatus
	scrapped    *types.UsageStatus
}

func newWorld(t *testing.T) *world {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.New(ctx, storage.Config{
		Path:           filepath.Join(t.TempDir(), "test.db"),
		MaxTrailLength: 5,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	w := &world{
		store:     store,
		items:     NewService(store, true),
		lookups:   lookup.NewService(store),
		catalogue: catalogue.NewService(store),
	}

	w.statusNew, err = w.lookups.CreateUsageStatus(ctx, "New")
	require.NoError(t, err)
	w.scrapped, err = w.lookups.CreateUsageStatus(ctx, "Scrapped")
	require.NoError(t, err)

	w.storageType, err = w.lookups.CreateSystemType(ctx, "Storage")
	require.NoError(t, err)
	w.opType, err = w.lookups.CreateSystemType(ctx, "Operational")
	require.NoError(t, err)

	systems := system.NewService(store, nil)
	w.storeRoom, err = systems.Create(ctx, system.In{Name: "Store Room", TypeID: w.storageType.ID, Importance: types.ImportanceLow})
	require.NoError(t, err)
	w.beamline, err = systems.Create(ctx, system.In{Name: "Beamline", TypeID: w.opType.ID, Importance: types.ImportanceHigh})
	require.NoError(t, err)

	m, err := w.lookups.CreateManufacturer(ctx, lookup.ManufacturerIn{
		Name: "Acme Optics",
		Address: types.Address{
			AddressLine: "1 Example Road",
			Country:     "United Kingdom",
			Postcode:    "AB1 2CD",
		},
	})
	require.NoError(t, err)

	cat, err := w.catalogue.CreateCategory(ctx, catalogue.CategoryIn{
		Name:   "Lenses",
		IsLeaf: true,
		Properties: []catalogue.PropertyIn{
			{Name: "Diameter", Type: types.PropertyTypeNumber, Mandatory: true},
			{Name: "Coated", Type: types.PropertyTypeBoolean},
		},
	})
	require.NoError(t, err)

	w.catItem, err = w.catalogue.CreateItem(ctx, catalogue.ItemIn{
		CatalogueCategoryID: cat.ID,
		ManufacturerID:      m.ID,
		Name:                "Lens 50mm",
		Properties: []catalogue.ValueIn{
			{Name: strp("Diameter"), Value: 50},
			{Name: strp("Coated"), Value: true},
		},
	})
	require.NoError(t, err)

	// Creation into either type, moves both ways, deletion from both.
	for _, r := range []lookup.RuleIn{
		{DstSystemTypeID: &w.storageType.ID, DstUsageStatusID: &w.statusNew.ID},
		{DstSystemTypeID: &w.opType.ID, DstUsageStatusID: &w.statusNew.ID},
		{SrcSystemTypeID: &w.storageType.ID, DstSystemTypeID: &w.opType.ID, DstUsageStatusID: &w.statusNew.ID},
		{SrcSystemTypeID: &w.opType.ID, DstSystemTypeID: &w.storageType.ID, DstUsageStatusID: &w.statusNew.ID},
		{SrcSystemTypeID: &w.storageType.ID},
		{SrcSystemTypeID: &w.opType.ID},
	} {
		_, err := w.lookups.CreateRule(ctx, r)
		require.NoError(t, err)
	}

	return w
}

func (w *world) create(t *testing.T, systemID, statusID string) *types.Item {
	t.Helper()
	it, err := w.items.Create(context.Background(), In{
		CatalogueItemID: w.catItem.ID,
		SystemID:        systemID,
		UsageStatusID:   statusID,
	})
	require.NoError(t, err)
	return it
}

func TestCreateItemRuleValidation(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	it := w.create(t, w.storeRoom.ID, w.statusNew.ID)
	assert.Equal(t, w.storeRoom.ID, it.SystemID)

	// No creation rule exists for the Scrapped status.
	_, err := w.items.Create(ctx, In{
		CatalogueItemID: w.catItem.ID,
		SystemID:        w.storeRoom.ID,
		UsageStatusID:   w.scrapped.ID,
	})
	require.True(t, errs.Is(err, errs.InvalidAction))
	assert.Contains(t, err.Error(), "no transition rule")
}

// Unsupplied item properties inherit the catalogue item's values.
func TestCreateItemPropertyDefaults(t *testing.T) {
	w := newWorld(t)

	it := w.create(t, w.storeRoom.ID, w.statusNew.ID)
	require.Len(t, it.Properties, 2)
	assert.Equal(t, float64(50), it.Properties[0].Value, "Diameter inherited")
	assert.Equal(t, true, it.Properties[1].Value, "Coated inherited")

	over, err := w.items.Create(context.Background(), In{
		CatalogueItemID: w.catItem.ID,
		SystemID:        w.storeRoom.ID,
		UsageStatusID:   w.statusNew.ID,
		Properties:      []catalogue.ValueIn{{Name: strp("Diameter"), Value: 55}},
	})
	require.NoError(t, err)
	assert.Equal(t, float64(55), over.Properties[0].Value, "supplied value wins")
	assert.Equal(t, true, over.Properties[1].Value)
}

func TestMoveItemAcrossTypes(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	it := w.create(t, w.storeRoom.ID, w.statusNew.ID)

	got, err := w.items.Update(ctx, it.ID, Patch{SystemID: &w.beamline.ID})
	require.NoError(t, err)
	assert.Equal(t, w.beamline.ID, got.SystemID)

	// With the status flipped to Scrapped no move rule matches.
	_, err = w.items.Update(ctx, it.ID, Patch{
		SystemID:      &w.storeRoom.ID,
		UsageStatusID: &w.scrapped.ID,
	})
	require.True(t, errs.Is(err, errs.InvalidAction))
	assert.Contains(t, err.Error(), "no transition rule")

	// A status change within the same system needs no rule.
	got, err = w.items.Update(ctx, it.ID, Patch{UsageStatusID: &w.scrapped.ID})
	require.NoError(t, err)
	assert.Equal(t, w.scrapped.ID, got.UsageStatusID)
}

func TestDeleteItemRuleValidation(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	it := w.create(t, w.storeRoom.ID, w.statusNew.ID)
	require.NoError(t, w.items.Delete(ctx, it.ID))

	_, err := w.items.Get(ctx, it.ID)
	assert.True(t, errs.Is(err, errs.MissingRecord))

	// Drop the storage-type deletion rule and try again.
	rules, err := w.lookups.ListRules(ctx)
	require.NoError(t, err)
	for _, r := range rules {
		if r.SrcSystemTypeID != nil && *r.SrcSystemTypeID == w.storageType.ID && r.DstSystemTypeID == nil {
			require.NoError(t, w.lookups.DeleteRule(ctx, r.ID))
		}
	}

	it = w.create(t, w.storeRoom.ID, w.statusNew.ID)
	err = w.items.Delete(ctx, it.ID)
	require.True(t, errs.Is(err, errs.InvalidAction))
	assert.Contains(t, err.Error(), "no transition rule")
}

// Spares definition = {Scrapped}. Status changes recompute the owning
// catalogue item's spares count in the same transaction.
func TestSparesRecomputeOnStatusChange(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	i1 := w.create(t, w.storeRoom.ID, w.statusNew.ID)
	i2 := w.create(t, w.storeRoom.ID, w.statusNew.ID)

	_, err := w.lookups.SetSparesDefinition(ctx, types.SparesDefinition{
		UsageStatusIDs: []string{w.scrapped.ID},
	})
	require.NoError(t, err)

	ci, err := w.catalogue.GetItem(ctx, w.catItem.ID)
	require.NoError(t, err)
	require.NotNil(t, ci.NumberOfSpares)
	assert.Equal(t, 0, *ci.NumberOfSpares)

	_, err = w.items.Update(ctx, i1.ID, Patch{UsageStatusID: &w.scrapped.ID})
	require.NoError(t, err)
	ci, _ = w.catalogue.GetItem(ctx, w.catItem.ID)
	assert.Equal(t, 1, *ci.NumberOfSpares)

	_, err = w.items.Update(ctx, i2.ID, Patch{UsageStatusID: &w.scrapped.ID})
	require.NoError(t, err)
	ci, _ = w.catalogue.GetItem(ctx, w.catItem.ID)
	assert.Equal(t, 2, *ci.NumberOfSpares)

	// Deleting a scrapped item brings the count back down.
	require.NoError(t, w.items.Delete(ctx, i2.ID))
	ci, _ = w.catalogue.GetItem(ctx, w.catItem.ID)
	assert.Equal(t, 1, *ci.NumberOfSpares)
}

// With recomputing disabled the stored count goes stale rather than
// being recomputed on item changes.
func TestSparesRecomputeDisabled(t *testing.T) {
	w := newWorld(t)
	frozen := NewService(w.store, false)
	ctx := context.Background()

	_, err := w.lookups.SetSparesDefinition(ctx, types.SparesDefinition{
		UsageStatusIDs: []string{w.scrapped.ID},
	})
	require.NoError(t, err)

	it := w.create(t, w.storeRoom.ID, w.statusNew.ID)
	_, err = frozen.Update(ctx, it.ID, Patch{UsageStatusID: &w.scrapped.ID})
	require.NoError(t, err)

	ci, err := w.catalogue.GetItem(ctx, w.catItem.ID)
	require.NoError(t, err)
	require.NotNil(t, ci.NumberOfSpares)
	assert.Equal(t, 0, *ci.NumberOfSpares, "count left stale on purpose")
}

func TestListItemsFilters(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	w.create(t, w.storeRoom.ID, w.statusNew.ID)
	w.create(t, w.beamline.ID, w.statusNew.ID)

	all, err := w.items.List(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	inStore, err := w.items.List(ctx, &w.storeRoom.ID, nil)
	require.NoError(t, err)
	assert.Len(t, inStore, 1)

	byCat, err := w.items.List(ctx, nil, &w.catItem.ID)
	require.NoError(t, err)
	assert.Len(t, byCat, 2)

	none, err := w.items.List(ctx, strp("garbage"), nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

// A system containing items cannot be deleted.
func TestSystemDeleteBlockedByItems(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	w.create(t, w.storeRoom.ID, w.statusNew.ID)

	systems := system.NewService(w.store, nil)
	err := systems.Delete(ctx, w.storeRoom.ID)
	assert.True(t, errs.Is(err, errs.ChildElementsExist))
}
