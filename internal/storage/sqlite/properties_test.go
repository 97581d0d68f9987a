package sqlite

import (
	"context"
	"testing"

	"github.com/beamtime/ims/internal/idgen"
	"github.com/beamtime/ims/internal/storage"
	"github.com/beamtime/ims/internal/types"
)

// Adding a property cascades it, with the default value, onto every
// catalogue item and item under the category, all sharing one property
// id.
func TestAddCategoryPropertyCascades(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	mm := seedUnit(t, store, "mm")
	propB := types.CategoryProperty{
		ID:   idgen.New(),
		Name: "Property B",
		Type: types.PropertyTypeBoolean,
	}
	cat := seedCategory(t, store, "Lenses", nil, true, []types.CategoryProperty{propB})
	m := seedManufacturer(t, store, "Acme")
	ci := seedCatalogueItem(t, store, cat.ID, m.ID, "Lens 50mm", []types.PropertyValue{
		{ID: propB.ID, Name: propB.Name, Value: false},
	})
	st := seedSystemType(t, store, "Storage")
	sys := seedSystem(t, store, "Store Room", nil, st.ID)
	status := seedUsageStatus(t, store, "New")
	it := seedItem(t, store, ci.ID, sys.ID, status.ID, []types.PropertyValue{
		{ID: propB.ID, Name: propB.Name, Value: false},
	})

	diameter := types.CategoryProperty{
		ID:        idgen.New(),
		Name:      "Diameter",
		Type:      types.PropertyTypeNumber,
		UnitID:    &mm.ID,
		Unit:      &mm.Value,
		Mandatory: true,
	}
	err := store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		return tx.AddCategoryProperty(ctx, cat.ID, diameter, float64(42))
	})
	if err != nil {
		t.Fatalf("AddCategoryProperty failed: %v", err)
	}

	gotCat, err := store.GetCategory(ctx, cat.ID)
	if err != nil {
		t.Fatalf("GetCategory failed: %v", err)
	}
	if len(gotCat.Properties) != 2 {
		t.Fatalf("category has %d properties, want 2", len(gotCat.Properties))
	}
	if gotCat.Properties[1].ID != diameter.ID || gotCat.Properties[1].Name != "Diameter" {
		t.Errorf("schema tail = %+v, want Diameter", gotCat.Properties[1])
	}

	gotCI, err := store.GetCatalogueItem(ctx, ci.ID)
	if err != nil {
		t.Fatalf("GetCatalogueItem failed: %v", err)
	}
	checkPropagated := func(name string, props []types.PropertyValue) {
		t.Helper()
		if len(props) != 2 {
			t.Fatalf("%s has %d properties, want 2", name, len(props))
		}
		if props[0].ID != propB.ID || props[0].Value != false || props[0].Unit != nil {
			t.Errorf("%s props[0] = %+v, want Property B false", name, props[0])
		}
		p := props[1]
		if p.ID != diameter.ID {
			t.Errorf("%s props[1].ID = %s, want the new property id", name, p.ID)
		}
		if p.Name != "Diameter" || p.Unit == nil || *p.Unit != "mm" {
			t.Errorf("%s props[1] = %+v, want Diameter in mm", name, p)
		}
		if v, ok := p.Value.(float64); !ok || v != 42 {
			t.Errorf("%s props[1].Value = %v, want 42", name, p.Value)
		}
	}
	checkPropagated("catalogue item", gotCI.Properties)

	gotItem, err := store.GetItem(ctx, it.ID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	checkPropagated("item", gotItem.Properties)
}

// Renames follow the property id: after a sequence of adds and renames
// every denormalised copy carries the schema's current name.
func TestRenameCategoryPropertyCascades(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	prop := types.CategoryProperty{
		ID:   idgen.New(),
		Name: "Diamater",
		Type: types.PropertyTypeNumber,
	}
	cat := seedCategory(t, store, "Lenses", nil, true, []types.CategoryProperty{prop})
	m := seedManufacturer(t, store, "Acme")
	ci := seedCatalogueItem(t, store, cat.ID, m.ID, "Lens 50mm", []types.PropertyValue{
		{ID: prop.ID, Name: prop.Name, Value: float64(50)},
	})
	st := seedSystemType(t, store, "Storage")
	sys := seedSystem(t, store, "Store Room", nil, st.ID)
	status := seedUsageStatus(t, store, "New")
	it := seedItem(t, store, ci.ID, sys.ID, status.ID, []types.PropertyValue{
		{ID: prop.ID, Name: prop.Name, Value: float64(50)},
	})

	err := store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		return tx.RenameCategoryProperty(ctx, cat.ID, prop.ID, "Diameter")
	})
	if err != nil {
		t.Fatalf("RenameCategoryProperty failed: %v", err)
	}

	gotCat, _ := store.GetCategory(ctx, cat.ID)
	if gotCat.Properties[0].Name != "Diameter" {
		t.Errorf("schema name = %s, want Diameter", gotCat.Properties[0].Name)
	}
	gotCI, _ := store.GetCatalogueItem(ctx, ci.ID)
	if gotCI.Properties[0].Name != "Diameter" {
		t.Errorf("catalogue item name = %s, want Diameter", gotCI.Properties[0].Name)
	}
	gotItem, _ := store.GetItem(ctx, it.ID)
	if gotItem.Properties[0].Name != "Diameter" {
		t.Errorf("item name = %s, want Diameter", gotItem.Properties[0].Name)
	}
	if gotItem.Properties[0].Value != float64(50) {
		t.Errorf("item value = %v, want 50 (untouched by rename)", gotItem.Properties[0].Value)
	}
}
