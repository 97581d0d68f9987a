package catalogue

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

func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }

func TestCreateCategory(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store)
	ctx := context.Background()

	root, err := svc.CreateCategory(ctx, CategoryIn{Name: "Beamline Components"})
	require.NoError(t, err)
	assert.Equal(t, "beamline-components", root.Code)
	assert.False(t, root.IsLeaf)
	assert.Nil(t, root.ParentID)

	leaf, err := svc.CreateCategory(ctx, CategoryIn{
		Name:     "Cameras",
		ParentID: &root.ID,
		IsLeaf:   true,
		Properties: []PropertyIn{
			{Name: "Resolution", Type: types.PropertyTypeNumber, Mandatory: true},
			{Name: "Colour", Type: types.PropertyTypeBoolean},
		},
	})
	require.NoError(t, err)
	require.Len(t, leaf.Properties, 2)
	assert.Equal(t, "Resolution", leaf.Properties[0].Name)

	got, err := svc.GetCategory(ctx, leaf.ID)
	require.NoError(t, err)
	assert.Equal(t, leaf.ID, got.ID)
	assert.Len(t, got.Properties, 2)
}

func TestCreateCategoryRejections(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store)
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, CategoryIn{Name: "  "})
	assert.True(t, errs.Is(err, errs.InvalidAction))

	_, err = svc.CreateCategory(ctx, CategoryIn{
		Name:       "Widgets",
		Properties: []PropertyIn{{Name: "X", Type: types.PropertyTypeString}},
	})
	assert.True(t, errs.Is(err, errs.InvalidAction), "properties on non-leaf")

	_, err = svc.CreateCategory(ctx, CategoryIn{
		Name:   "Widgets",
		IsLeaf: true,
		Properties: []PropertyIn{
			{Name: "X", Type: types.PropertyTypeString},
			{Name: "X", Type: types.PropertyTypeNumber},
		},
	})
	assert.True(t, errs.Is(err, errs.DuplicatePropertyName))

	leaf, err := svc.CreateCategory(ctx, CategoryIn{Name: "Leaf", IsLeaf: true})
	require.NoError(t, err)
	_, err = svc.CreateCategory(ctx, CategoryIn{Name: "Child", ParentID: &leaf.ID})
	assert.True(t, errs.Is(err, errs.LeafParent))

	_, err = svc.CreateCategory(ctx, CategoryIn{Name: "Orphan", ParentID: strp("ffffffffffffffffffffffff")})
	assert.True(t, errs.Is(err, errs.MissingRecord))

	_, err = svc.CreateCategory(ctx, CategoryIn{Name: "Bad Parent", ParentID: strp("not-an-id")})
	assert.True(t, errs.Is(err, errs.InvalidID))
}

// Converting a non-leaf with a child category to a leaf is refused and
// leaves the tree untouched.
func TestLeafConversionBlocked(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store)
	ctx := context.Background()

	root, err := svc.CreateCategory(ctx, CategoryIn{Name: "Optics"})
	require.NoError(t, err)
	_, err = svc.CreateCategory(ctx, CategoryIn{Name: "Lenses", ParentID: &root.ID, IsLeaf: true})
	require.NoError(t, err)

	_, err = svc.UpdateCategory(ctx, root.ID, CategoryPatch{IsLeaf: boolp(true)})
	assert.True(t, errs.Is(err, errs.ChildElementsExist))

	got, err := svc.GetCategory(ctx, root.ID)
	require.NoError(t, err)
	assert.False(t, got.IsLeaf)
}

// Converting a childless leaf to a non-leaf clears its schema.
func TestLeafConversionClearsProperties(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store)
	ctx := context.Background()

	leaf, err := svc.CreateCategory(ctx, CategoryIn{
		Name:       "Cameras",
		IsLeaf:     true,
		Properties: []PropertyIn{{Name: "Resolution", Type: types.PropertyTypeNumber}},
	})
	require.NoError(t, err)

	got, err := svc.UpdateCategory(ctx, leaf.ID, CategoryPatch{IsLeaf: boolp(false)})
	require.NoError(t, err)
	assert.False(t, got.IsLeaf)
	assert.Empty(t, got.Properties)
}

func TestCategoryMove(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store)
	ctx := context.Background()

	a, err := svc.CreateCategory(ctx, CategoryIn{Name: "A"})
	require.NoError(t, err)
	b, err := svc.CreateCategory(ctx, CategoryIn{Name: "B", ParentID: &a.ID})
	require.NoError(t, err)
	c, err := svc.CreateCategory(ctx, CategoryIn{Name: "C", ParentID: &b.ID})
	require.NoError(t, err)

	_, err = svc.UpdateCategory(ctx, a.ID, CategoryPatch{MoveParent: true, ParentID: &c.ID})
	require.True(t, errs.Is(err, errs.InvalidAction))
	assert.Contains(t, err.Error(), "cycle")

	got, err := svc.GetCategory(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ParentID)

	// Moving C to the root is fine.
	got, err = svc.UpdateCategory(ctx, c.ID, CategoryPatch{MoveParent: true})
	require.NoError(t, err)
	assert.Nil(t, got.ParentID)
}

func TestRenameRegeneratesCode(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store)
	ctx := context.Background()

	cat, err := svc.CreateCategory(ctx, CategoryIn{Name: "Old Name"})
	require.NoError(t, err)
	assert.Equal(t, "old-name", cat.Code)

	got, err := svc.UpdateCategory(ctx, cat.ID, CategoryPatch{Name: strp("Shiny New Name")})
	require.NoError(t, err)
	assert.Equal(t, "shiny-new-name", got.Code)
}

func TestDeleteCategoryGuard(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store)
	ctx := context.Background()

	root, err := svc.CreateCategory(ctx, CategoryIn{Name: "Optics"})
	require.NoError(t, err)
	child, err := svc.CreateCategory(ctx, CategoryIn{Name: "Lenses", ParentID: &root.ID, IsLeaf: true})
	require.NoError(t, err)

	err = svc.DeleteCategory(ctx, root.ID)
	assert.True(t, errs.Is(err, errs.ChildElementsExist))

	require.NoError(t, svc.DeleteCategory(ctx, child.ID))
	require.NoError(t, svc.DeleteCategory(ctx, root.ID))

	err = svc.DeleteCategory(ctx, root.ID)
	assert.True(t, errs.Is(err, errs.MissingRecord))
}

func TestListCategoriesFilters(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store)
	ctx := context.Background()

	root, err := svc.CreateCategory(ctx, CategoryIn{Name: "Optics"})
	require.NoError(t, err)
	_, err = svc.CreateCategory(ctx, CategoryIn{Name: "Lenses", ParentID: &root.ID, IsLeaf: true})
	require.NoError(t, err)

	all, err := svc.ListCategories(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	roots, err := svc.ListCategories(ctx, strp("null"))
	require.NoError(t, err)
	assert.Len(t, roots, 1)

	children, err := svc.ListCategories(ctx, &root.ID)
	require.NoError(t, err)
	assert.Len(t, children, 1)

	// Unparseable filter ids mean "no such parent", not an error.
	empty, err := svc.ListCategories(ctx, strp("garbage"))
	require.NoError(t, err)
	assert.Empty(t, empty)
}
