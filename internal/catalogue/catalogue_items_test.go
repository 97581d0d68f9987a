package catalogue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beamtime/ims/internal/errs"
	"github.com/beamtime/ims/internal/lookup"
	"github.com/beamtime/ims/internal/types"
)

func newManufacturer(t *testing.T, lookups *lookup.Service) *types.Manufacturer {
	t.Helper()
	m, err := lookups.CreateManufacturer(context.Background(), lookup.ManufacturerIn{
		Name: "Acme Optics",
		Address: types.Address{
			AddressLine: "1 Example Road",
			Country:     "United Kingdom",
			Postcode:    "AB1 2CD",
		},
	})
	require.NoError(t, err)
	return m
}

func TestCreateCatalogueItem(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store)
	lookups := lookup.NewService(store)
	ctx := context.Background()

	m := newManufacturer(t, lookups)
	mm, err := lookups.CreateUnit(ctx, "mm")
	require.NoError(t, err)

	cat, err := svc.CreateCategory(ctx, CategoryIn{
		Name:   "Lenses",
		IsLeaf: true,
		Properties: []PropertyIn{
			{Name: "Diameter", Type: types.PropertyTypeNumber, UnitID: &mm.ID, Mandatory: true},
			{Name: "Coated", Type: types.PropertyTypeBoolean},
		},
	})
	require.NoError(t, err)

	ci, err := svc.CreateItem(ctx, ItemIn{
		CatalogueCategoryID: cat.ID,
		ManufacturerID:      m.ID,
		Name:                "Lens 50mm",
		CostGBP:             120,
		DaysToReplace:       14,
		Properties: []ValueIn{
			{Name: strp("Diameter"), Value: 50},
		},
	})
	require.NoError(t, err)
	require.Len(t, ci.Properties, 2)
	assert.Equal(t, float64(50), ci.Properties[0].Value)
	require.NotNil(t, ci.Properties[0].Unit)
	assert.Equal(t, "mm", *ci.Properties[0].Unit)
	assert.Nil(t, ci.Properties[1].Value, "unsupplied non-mandatory defaults to null")
	assert.Nil(t, ci.NumberOfSpares, "no spares definition configured yet")

	got, err := svc.GetItem(ctx, ci.ID)
	require.NoError(t, err)
	assert.Equal(t, ci.ID, got.ID)
}

func TestCreateCatalogueItemRejections(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store)
	lookups := lookup.NewService(store)
	ctx := context.Background()

	m := newManufacturer(t, lookups)
	nonLeaf, err := svc.CreateCategory(ctx, CategoryIn{Name: "Optics"})
	require.NoError(t, err)

	_, err = svc.CreateItem(ctx, ItemIn{
		CatalogueCategoryID: nonLeaf.ID,
		ManufacturerID:      m.ID,
		Name:                "Lens",
	})
	assert.True(t, errs.Is(err, errs.InvalidAction), "non-leaf category")

	leaf, err := svc.CreateCategory(ctx, CategoryIn{
		Name:   "Lenses",
		IsLeaf: true,
		Properties: []PropertyIn{
			{Name: "Diameter", Type: types.PropertyTypeNumber, Mandatory: true},
			{
				Name:          "Mount",
				Type:          types.PropertyTypeString,
				AllowedValues: &types.AllowedValues{Kind: "list", Values: []interface{}{"C", "CS"}},
			},
		},
	})
	require.NoError(t, err)

	_, err = svc.CreateItem(ctx, ItemIn{
		CatalogueCategoryID: leaf.ID,
		ManufacturerID:      m.ID,
		Name:                "Lens",
	})
	assert.True(t, errs.Is(err, errs.MissingMandatoryProperty))

	_, err = svc.CreateItem(ctx, ItemIn{
		CatalogueCategoryID: leaf.ID,
		ManufacturerID:      m.ID,
		Name:                "Lens",
		Properties:          []ValueIn{{Name: strp("Diameter"), Value: "fifty"}},
	})
	assert.True(t, errs.Is(err, errs.InvalidPropertyType))

	_, err = svc.CreateItem(ctx, ItemIn{
		CatalogueCategoryID: leaf.ID,
		ManufacturerID:      m.ID,
		Name:                "Lens",
		Properties: []ValueIn{
			{Name: strp("Diameter"), Value: 50},
			{Name: strp("Mount"), Value: "F"},
		},
	})
	assert.True(t, errs.Is(err, errs.InvalidPropertyType), "value outside allowed list")

	_, err = svc.CreateItem(ctx, ItemIn{
		CatalogueCategoryID: leaf.ID,
		ManufacturerID:      "ffffffffffffffffffffffff",
		Name:                "Lens",
		Properties:          []ValueIn{{Name: strp("Diameter"), Value: 50}},
	})
	assert.True(t, errs.Is(err, errs.MissingRecord), "missing manufacturer")

	_, err = svc.CreateItem(ctx, ItemIn{
		CatalogueCategoryID: leaf.ID,
		ManufacturerID:      m.ID,
		Name:                "Lens",
		CostGBP:             -1,
		Properties:          []ValueIn{{Name: strp("Diameter"), Value: 50}},
	})
	assert.True(t, errs.Is(err, errs.InvalidAction), "negative cost")

	_, err = svc.CreateItem(ctx, ItemIn{
		CatalogueCategoryID: leaf.ID,
		ManufacturerID:      m.ID,
		Name:                "Lens",
		ObsoleteReason:      strp("superseded"),
		Properties:          []ValueIn{{Name: strp("Diameter"), Value: 50}},
	})
	assert.True(t, errs.Is(err, errs.InvalidAction), "obsolete fields without is_obsolete")
}

// Undeclared supplied properties are dropped rather than rejected.
func TestCreateCatalogueItemDropsUndeclared(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store)
	lookups := lookup.NewService(store)
	ctx := context.Background()

	m := newManufacturer(t, lookups)
	cat, err := svc.CreateCategory(ctx, CategoryIn{
		Name:       "Lenses",
		IsLeaf:     true,
		Properties: []PropertyIn{{Name: "Diameter", Type: types.PropertyTypeNumber}},
	})
	require.NoError(t, err)

	ci, err := svc.CreateItem(ctx, ItemIn{
		CatalogueCategoryID: cat.ID,
		ManufacturerID:      m.ID,
		Name:                "Lens",
		Properties: []ValueIn{
			{Name: strp("Diameter"), Value: 50},
			{Name: strp("Bogus"), Value: "ignored"},
		},
	})
	require.NoError(t, err)
	require.Len(t, ci.Properties, 1)
	assert.Equal(t, "Diameter", ci.Properties[0].Name)
}

func TestUpdateCatalogueItemGuards(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store)
	lookups := lookup.NewService(store)
	ctx := context.Background()

	m := newManufacturer(t, lookups)
	cat, err := svc.CreateCategory(ctx, CategoryIn{
		Name:       "Lenses",
		IsLeaf:     true,
		Properties: []PropertyIn{{Name: "Diameter", Type: types.PropertyTypeNumber}},
	})
	require.NoError(t, err)
	ci, err := svc.CreateItem(ctx, ItemIn{
		CatalogueCategoryID: cat.ID,
		ManufacturerID:      m.ID,
		Name:                "Lens 50mm",
		Properties:          []ValueIn{{Name: strp("Diameter"), Value: 50}},
	})
	require.NoError(t, err)

	// Plain field edits are fine.
	got, err := svc.UpdateItem(ctx, ci.ID, ItemPatch{Name: strp("Lens 50mm v2")})
	require.NoError(t, err)
	assert.Equal(t, "Lens 50mm v2", got.Name)

	// Property replacement revalidates against the schema.
	got, err = svc.UpdateItem(ctx, ci.ID, ItemPatch{
		Properties: []ValueIn{{Name: strp("Diameter"), Value: 55}},
	})
	require.NoError(t, err)
	assert.Equal(t, float64(55), got.Properties[0].Value)

	// A category move without supplied properties needs an identical
	// schema on the destination.
	other, err := svc.CreateCategory(ctx, CategoryIn{
		Name:       "Mirrors",
		IsLeaf:     true,
		Properties: []PropertyIn{{Name: "Reflectivity", Type: types.PropertyTypeNumber}},
	})
	require.NoError(t, err)
	_, err = svc.UpdateItem(ctx, ci.ID, ItemPatch{CatalogueCategoryID: &other.ID})
	assert.True(t, errs.Is(err, errs.InvalidAction))

	_, err = svc.UpdateItem(ctx, ci.ID, ItemPatch{
		CatalogueCategoryID: &other.ID,
		Properties:          []ValueIn{{Name: strp("Reflectivity"), Value: 0.98}},
	})
	require.NoError(t, err)
}

func TestObsoleteReplacementChain(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store)
	lookups := lookup.NewService(store)
	ctx := context.Background()

	m := newManufacturer(t, lookups)
	cat, err := svc.CreateCategory(ctx, CategoryIn{Name: "Lenses", IsLeaf: true})
	require.NoError(t, err)

	old, err := svc.CreateItem(ctx, ItemIn{CatalogueCategoryID: cat.ID, ManufacturerID: m.ID, Name: "Mark I"})
	require.NoError(t, err)
	replacement, err := svc.CreateItem(ctx, ItemIn{CatalogueCategoryID: cat.ID, ManufacturerID: m.ID, Name: "Mark II"})
	require.NoError(t, err)

	got, err := svc.UpdateItem(ctx, old.ID, ItemPatch{
		IsObsolete:                         boolp(true),
		ObsoleteReason:                     strp("superseded by Mark II"),
		ObsoleteReplacementCatalogueItemID: &replacement.ID,
	})
	require.NoError(t, err)
	assert.True(t, got.IsObsolete)
	require.NotNil(t, got.ObsoleteReplacementCatalogueItemID)
	assert.Equal(t, replacement.ID, *got.ObsoleteReplacementCatalogueItemID)

	// The replacement target is now referenced and cannot be deleted.
	err = svc.DeleteItem(ctx, replacement.ID)
	assert.True(t, errs.Is(err, errs.ChildElementsExist))

	// Clearing the obsolete flag clears the reference and unblocks it.
	got, err = svc.UpdateItem(ctx, old.ID, ItemPatch{IsObsolete: boolp(false)})
	require.NoError(t, err)
	assert.Nil(t, got.ObsoleteReplacementCatalogueItemID)
	require.NoError(t, svc.DeleteItem(ctx, replacement.ID))
}
