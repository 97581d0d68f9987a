// Package storage defines the interface for inventory storage backends.
package storage

import (
	"context"

	"github.com/beamtime/ims/internal/types"
)

// ParentFilter is the three-valued parent filter for tree listings:
//
//   - zero value: no filter, list every node
//   - Roots():   list root nodes only (parent is the literal null)
//   - Of(id):    list direct children of id
type ParentFilter struct {
	set bool
	id  *string
}

// Roots returns the filter selecting root nodes only.
func Roots() ParentFilter {
	return ParentFilter{set: true}
}

// ChildrenOf returns the filter selecting direct children of parentID.
func ChildrenOf(parentID string) ParentFilter {
	return ParentFilter{set: true, id: &parentID}
}

// Match returns (filtering?, parentID or nil for roots).
func (f ParentFilter) Match() (bool, *string) {
	return f.set, f.id
}

// ItemFilter narrows item listings. Nil fields are unfiltered.
type ItemFilter struct {
	SystemID        *string
	CatalogueItemID *string
}

// Transaction exposes the subset of operations that execute within a
// single database transaction. Multi-record changes (property
// propagation, moves that trigger spares recomputes, item lifecycle
// changes) must run through Storage.RunInTransaction so that either
// every write commits or none does.
//
// Transaction semantics:
//
//   - all operations share one database connection
//   - changes become visible to other connections only after commit
//   - an error return from the callback rolls the transaction back
//   - a panic in the callback rolls back and re-raises
//   - SQLite transactions open with BEGIN IMMEDIATE, acquiring the write
//     lock early so concurrent writers serialise instead of deadlocking
type Transaction interface {
	// Catalogue categories (tree)
	CreateCategory(ctx context.Context, c *types.CatalogueCategory) error
	GetCategory(ctx context.Context, id string) (*types.CatalogueCategory, error)
	ListCategories(ctx context.Context, parent ParentFilter) ([]*types.CatalogueCategory, error)
	UpdateCategory(ctx context.Context, c *types.CatalogueCategory) error
	DeleteCategory(ctx context.Context, id string) error
	CategoryBreadcrumbs(ctx context.Context, id string) (*types.Breadcrumbs, error)
	CategoryHasChildElements(ctx context.Context, id string) (bool, error)
	CategoryMoveCreatesCycle(ctx context.Context, id, newParentID string) (bool, error)

	// Property propagation. Each call cascades to every catalogue item
	// and item under the category in bulk, joined on the property id.
	AddCategoryProperty(ctx context.Context, categoryID string, p types.CategoryProperty, defaultValue interface{}) error
	RenameCategoryProperty(ctx context.Context, categoryID, propertyID, newName string) error
	SetCategoryPropertyAllowedValues(ctx context.Context, categoryID, propertyID string, av *types.AllowedValues) error
	// DeleteCategoryProperties drops every descriptor of a category; used
	// when a childless leaf is converted to a non-leaf (invariant I2).
	DeleteCategoryProperties(ctx context.Context, categoryID string) error

	// Catalogue items
	CreateCatalogueItem(ctx context.Context, ci *types.CatalogueItem) error
	GetCatalogueItem(ctx context.Context, id string) (*types.CatalogueItem, error)
	ListCatalogueItems(ctx context.Context, categoryID *string) ([]*types.CatalogueItem, error)
	ListCatalogueItemIDs(ctx context.Context) ([]string, error)
	UpdateCatalogueItem(ctx context.Context, ci *types.CatalogueItem) error
	DeleteCatalogueItem(ctx context.Context, id string) error
	CatalogueItemHasChildElements(ctx context.Context, id string) (bool, error)
	// CatalogueItemHasItems checks only for items, ignoring
	// obsolete-replacement references; used by the update guard.
	CatalogueItemHasItems(ctx context.Context, id string) (bool, error)

	// WriteLockCatalogueItem issues a no-op self-update on the catalogue
	// item row to force document-level serialisation of derived-state
	// recomputes. Must be called before reading the recompute inputs.
	WriteLockCatalogueItem(ctx context.Context, id string) error
	// RecomputeNumberOfSpares recounts and stores number_of_spares for
	// the catalogue item under the given definition, returning the count.
	RecomputeNumberOfSpares(ctx context.Context, catalogueItemID string, def *types.SparesDefinition) (int, error)

	// Items
	CreateItem(ctx context.Context, it *types.Item) error
	GetItem(ctx context.Context, id string) (*types.Item, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]*types.Item, error)
	UpdateItem(ctx context.Context, it *types.Item) error
	DeleteItem(ctx context.Context, id string) error

	// Systems (tree)
	CreateSystem(ctx context.Context, s *types.System) error
	GetSystem(ctx context.Context, id string) (*types.System, error)
	ListSystems(ctx context.Context, parent ParentFilter) ([]*types.System, error)
	UpdateSystem(ctx context.Context, s *types.System) error
	DeleteSystem(ctx context.Context, id string) error
	SystemBreadcrumbs(ctx context.Context, id string) (*types.Breadcrumbs, error)
	SystemHasChildElements(ctx context.Context, id string) (bool, error)
	SystemMoveCreatesCycle(ctx context.Context, id, newParentID string) (bool, error)
	WriteLockSystem(ctx context.Context, id string) error

	// Units
	CreateUnit(ctx context.Context, u *types.Unit) error
	GetUnit(ctx context.Context, id string) (*types.Unit, error)
	ListUnits(ctx context.Context) ([]*types.Unit, error)
	DeleteUnit(ctx context.Context, id string) error
	UnitInUse(ctx context.Context, id string) (bool, error)

	// Usage statuses
	CreateUsageStatus(ctx context.Context, u *types.UsageStatus) error
	GetUsageStatus(ctx context.Context, id string) (*types.UsageStatus, error)
	ListUsageStatuses(ctx context.Context) ([]*types.UsageStatus, error)
	DeleteUsageStatus(ctx context.Context, id string) error
	UsageStatusInUse(ctx context.Context, id string) (bool, error)

	// System types
	CreateSystemType(ctx context.Context, st *types.SystemType) error
	GetSystemType(ctx context.Context, id string) (*types.SystemType, error)
	ListSystemTypes(ctx context.Context) ([]*types.SystemType, error)
	DeleteSystemType(ctx context.Context, id string) error
	SystemTypeInUse(ctx context.Context, id string) (bool, error)

	// Manufacturers
	CreateManufacturer(ctx context.Context, m *types.Manufacturer) error
	GetManufacturer(ctx context.Context, id string) (*types.Manufacturer, error)
	ListManufacturers(ctx context.Context) ([]*types.Manufacturer, error)
	UpdateManufacturer(ctx context.Context, m *types.Manufacturer) error
	DeleteManufacturer(ctx context.Context, id string) error
	ManufacturerInUse(ctx context.Context, id string) (bool, error)

	// Rules
	CreateRule(ctx context.Context, r *types.Rule) error
	GetRule(ctx context.Context, id string) (*types.Rule, error)
	ListRules(ctx context.Context) ([]*types.Rule, error)
	DeleteRule(ctx context.Context, id string) error
	// RuleExists reports whether a rule with exactly these (possibly
	// nil) endpoints exists. Nil matches the stored SQL NULL.
	RuleExists(ctx context.Context, src, dst, usageStatus *string) (bool, error)

	// Settings
	GetSparesDefinition(ctx context.Context) (*types.SparesDefinition, error)
	SetSparesDefinition(ctx context.Context, def *types.SparesDefinition) error
	// WriteLockSetting serialises concurrent transactions that read a
	// settings record before acting on it.
	WriteLockSetting(ctx context.Context, key string) error
}

// Storage defines the interface for inventory storage backends. All of
// the Transaction operations are also available outside an explicit
// transaction; single-record mutations may run that way.
type Storage interface {
	Transaction

	// RunInTransaction executes fn within a database transaction.
	//
	//   - fn returns nil: commit
	//   - fn returns an error: rollback, error is surfaced
	//   - fn panics: rollback, panic is re-raised
	RunInTransaction(ctx context.Context, fn func(tx Transaction) error) error

	// Lifecycle
	Close() error

	// Path returns the backing database path.
	Path() string
}

// Config holds database configuration.
type Config struct {
	// Path is the SQLite database file path.
	Path string
	// MaxTrailLength bounds breadcrumb trails (self + ancestors).
	// Values below 2 are treated as the default of 5.
	MaxTrailLength int
}
