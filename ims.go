// Package ims provides a minimal public API for embedding the inventory
// management system in other Go programs.
//
// It exports the storage layer and the domain services over it; the
// internal packages carry the implementation. Most integrations only
// need NewSQLiteStorage plus the service constructors.
package ims

import (
	"context"

	"github.com/beamtime/ims/internal/catalogue"
	"github.com/beamtime/ims/internal/item"
	"github.com/beamtime/ims/internal/lookup"
	"github.com/beamtime/ims/internal/storage"
	"github.com/beamtime/ims/internal/storage/sqlite"
	"github.com/beamtime/ims/internal/system"
	"github.com/beamtime/ims/internal/types"
)

// Storage is the interface for inventory storage operations.
type Storage = storage.Storage

// Transaction provides atomic multi-operation support within a database
// transaction. Use Storage.RunInTransaction() to obtain one.
type Transaction = storage.Transaction

// StorageConfig configures a storage instance.
type StorageConfig = storage.Config

// NewSQLiteStorage opens (creating if necessary) a SQLite-backed storage
// instance at the given path.
func NewSQLiteStorage(ctx context.Context, dbPath string) (Storage, error) {
	return sqlite.New(ctx, storage.Config{Path: dbPath})
}

// Service constructors. The item service takes a flag enabling automatic
// spares recomputing; the system service takes an optional object
// storage collaborator (nil disables cleanup on system deletion).
var (
	NewCatalogueService = catalogue.NewService
	NewSystemService    = system.NewService
	NewItemService      = item.NewService
	NewLookupService    = lookup.NewService
)

// Core types from internal/types.
type (
	CatalogueCategory = types.CatalogueCategory
	CategoryProperty  = types.CategoryProperty
	AllowedValues     = types.AllowedValues
	PropertyType      = types.PropertyType
	PropertyValue     = types.PropertyValue
	CatalogueItem     = types.CatalogueItem
	Item              = types.Item
	System            = types.System
	SystemType        = types.SystemType
	Importance        = types.Importance
	UsageStatus       = types.UsageStatus
	Unit              = types.Unit
	Manufacturer      = types.Manufacturer
	Address           = types.Address
	Rule              = types.Rule
	SparesDefinition  = types.SparesDefinition
	Breadcrumbs       = types.Breadcrumbs
	BreadcrumbEntry   = types.BreadcrumbEntry
)

// PropertyType constants
const (
	PropertyTypeString  = types.PropertyTypeString
	PropertyTypeNumber  = types.PropertyTypeNumber
	PropertyTypeBoolean = types.PropertyTypeBoolean
)

// Importance constants
const (
	ImportanceLow    = types.ImportanceLow
	ImportanceMedium = types.ImportanceMedium
	ImportanceHigh   = types.ImportanceHigh
)
