package sqlite

import (
	"context"
	"testing"

	"github.com/beamtime/ims/internal/errs"
	"github.com/beamtime/ims/internal/storage"
	"github.com/beamtime/ims/internal/types"
)

func TestRecomputeNumberOfSpares(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	cat := seedCategory(t, store, "Lenses", nil, true, nil)
	m := seedManufacturer(t, store, "Acme")
	ci := seedCatalogueItem(t, store, cat.ID, m.ID, "Lens 50mm", nil)

	st := seedSystemType(t, store, "Storage")
	sys := seedSystem(t, store, "Store Room", nil, st.ID)
	scrapped := seedUsageStatus(t, store, "Scrapped")
	fresh := seedUsageStatus(t, store, "New")

	i1 := seedItem(t, store, ci.ID, sys.ID, fresh.ID, nil)
	seedItem(t, store, ci.ID, sys.ID, scrapped.ID, nil)

	def := &types.SparesDefinition{UsageStatusIDs: []string{scrapped.ID}}

	n, err := store.RecomputeNumberOfSpares(ctx, ci.ID, def)
	if err != nil {
		t.Fatalf("RecomputeNumberOfSpares failed: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}

	got, err := store.GetCatalogueItem(ctx, ci.ID)
	if err != nil {
		t.Fatalf("GetCatalogueItem failed: %v", err)
	}
	if got.NumberOfSpares == nil || *got.NumberOfSpares != 1 {
		t.Errorf("stored NumberOfSpares = %v, want 1", got.NumberOfSpares)
	}

	// Flip the other item to Scrapped under write-lock, in a transaction.
	err = store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		if err := tx.WriteLockCatalogueItem(ctx, ci.ID); err != nil {
			return err
		}
		it, err := tx.GetItem(ctx, i1.ID)
		if err != nil {
			return err
		}
		it.UsageStatusID = scrapped.ID
		if err := tx.UpdateItem(ctx, it); err != nil {
			return err
		}
		n, err := tx.RecomputeNumberOfSpares(ctx, ci.ID, def)
		if err != nil {
			return err
		}
		if n != 2 {
			t.Errorf("count in transaction = %d, want 2", n)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transactional recompute failed: %v", err)
	}

	got, _ = store.GetCatalogueItem(ctx, ci.ID)
	if got.NumberOfSpares == nil || *got.NumberOfSpares != 2 {
		t.Errorf("NumberOfSpares after commit = %v, want 2", got.NumberOfSpares)
	}

	// Idempotent: recounting with no item changes gives the same number.
	n, err = store.RecomputeNumberOfSpares(ctx, ci.ID, def)
	if err != nil {
		t.Fatalf("second recompute failed: %v", err)
	}
	if n != 2 {
		t.Errorf("second recompute = %d, want 2", n)
	}
}

func TestRecomputeNumberOfSparesTypeScope(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	cat := seedCategory(t, store, "Lenses", nil, true, nil)
	m := seedManufacturer(t, store, "Acme")
	ci := seedCatalogueItem(t, store, cat.ID, m.ID, "Lens 50mm", nil)

	storageType := seedSystemType(t, store, "Storage")
	operational := seedSystemType(t, store, "Operational")
	storeRoom := seedSystem(t, store, "Store Room", nil, storageType.ID)
	beamline := seedSystem(t, store, "Beamline", nil, operational.ID)
	fresh := seedUsageStatus(t, store, "New")

	seedItem(t, store, ci.ID, storeRoom.ID, fresh.ID, nil)
	seedItem(t, store, ci.ID, beamline.ID, fresh.ID, nil)

	scoped := &types.SparesDefinition{
		UsageStatusIDs: []string{fresh.ID},
		SystemTypeIDs:  []string{storageType.ID},
	}
	n, err := store.RecomputeNumberOfSpares(ctx, ci.ID, scoped)
	if err != nil {
		t.Fatalf("RecomputeNumberOfSpares failed: %v", err)
	}
	if n != 1 {
		t.Errorf("scoped count = %d, want 1", n)
	}

	unscoped := &types.SparesDefinition{UsageStatusIDs: []string{fresh.ID}}
	n, err = store.RecomputeNumberOfSpares(ctx, ci.ID, unscoped)
	if err != nil {
		t.Fatalf("RecomputeNumberOfSpares failed: %v", err)
	}
	if n != 2 {
		t.Errorf("unscoped count = %d, want 2", n)
	}
}

func TestRecomputeNumberOfSparesRequiresDefinition(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	cat := seedCategory(t, store, "Lenses", nil, true, nil)
	m := seedManufacturer(t, store, "Acme")
	ci := seedCatalogueItem(t, store, cat.ID, m.ID, "Lens 50mm", nil)

	if _, err := store.RecomputeNumberOfSpares(ctx, ci.ID, nil); !errs.Is(err, errs.InvalidAction) {
		t.Errorf("nil definition = %v, want invalid-action", err)
	}
	empty := &types.SparesDefinition{}
	if _, err := store.RecomputeNumberOfSpares(ctx, ci.ID, empty); !errs.Is(err, errs.InvalidAction) {
		t.Errorf("empty definition = %v, want invalid-action", err)
	}
}

func TestSparesDefinitionSetting(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	def, err := store.GetSparesDefinition(ctx)
	if err != nil {
		t.Fatalf("GetSparesDefinition failed: %v", err)
	}
	if def != nil {
		t.Fatalf("unset definition = %+v, want nil", def)
	}

	scrapped := seedUsageStatus(t, store, "Scrapped")
	want := &types.SparesDefinition{UsageStatusIDs: []string{scrapped.ID}}
	if err := store.SetSparesDefinition(ctx, want); err != nil {
		t.Fatalf("SetSparesDefinition failed: %v", err)
	}

	def, err = store.GetSparesDefinition(ctx)
	if err != nil {
		t.Fatalf("GetSparesDefinition failed: %v", err)
	}
	if def == nil || len(def.UsageStatusIDs) != 1 || def.UsageStatusIDs[0] != scrapped.ID {
		t.Errorf("round-tripped definition = %+v", def)
	}

	// With the row present the settings write-lock succeeds.
	err = store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		return tx.WriteLockSetting(ctx, types.SettingSparesDefinition)
	})
	if err != nil {
		t.Errorf("WriteLockSetting on configured row failed: %v", err)
	}
}
