// Package types defines the core data model: the catalogue hierarchy, the
// system tree, the item population, and the flat lookup entities.
//
// Two conventions hold throughout:
//
//   - Optional fields are pointers; nil means "not set".
//   - Denormalised copies (property name/unit on catalogue items and
//     items) are reconciled by property id, never by name.
package types

import "time"

// PropertyType is the closed set of value types a category property may
// declare.
type PropertyType string

const (
	PropertyTypeString  PropertyType = "string"
	PropertyTypeNumber  PropertyType = "number"
	PropertyTypeBoolean PropertyType = "boolean"
)

// IsValid reports whether t is one of the declared property types.
func (t PropertyType) IsValid() bool {
	switch t {
	case PropertyTypeString, PropertyTypeNumber, PropertyTypeBoolean:
		return true
	}
	return false
}

// CheckValue reports whether v conforms to t. nil is accepted here; the
// mandatory check happens separately so that the caller can distinguish
// "wrong type" from "missing".
func (t PropertyType) CheckValue(v interface{}) bool {
	if v == nil {
		return true
	}
	switch t {
	case PropertyTypeString:
		_, ok := v.(string)
		return ok
	case PropertyTypeNumber:
		switch v.(type) {
		case float64, float32, int, int32, int64:
			return true
		}
		return false
	case PropertyTypeBoolean:
		_, ok := v.(bool)
		return ok
	}
	return false
}

// NormalizeValue coerces numeric values to float64 so that stored values
// compare consistently regardless of how the caller supplied them.
func NormalizeValue(v interface{}) interface{} {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	}
	return v
}

// AllowedValuesKindList is the only allowed-values kind. The field exists
// so the stored form remains forward-compatible.
const AllowedValuesKindList = "list"

// AllowedValues constrains a property to a fixed set of values. Once set,
// the list may only ever be extended.
type AllowedValues struct {
	Kind   string        `json:"type"`
	Values []interface{} `json:"values"`
}

// Contains reports whether v is a member of the list. Numeric members are
// compared after normalisation.
func (a *AllowedValues) Contains(v interface{}) bool {
	v = NormalizeValue(v)
	for _, m := range a.Values {
		if NormalizeValue(m) == v {
			return true
		}
	}
	return false
}

// CategoryProperty is a property descriptor owned by a leaf catalogue
// category. The category is authoritative for every field; copies on
// catalogue items and items are denormalised views keyed by ID.
type CategoryProperty struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Type          PropertyType   `json:"type"`
	UnitID        *string        `json:"unit_id,omitempty"`
	Unit          *string        `json:"unit,omitempty"` // denormalised unit value, resolved at declaration time
	Mandatory     bool           `json:"mandatory"`
	AllowedValues *AllowedValues `json:"allowed_values,omitempty"`
}

// PropertyValue is a stored property on a catalogue item or item. ID is
// the owning category's property-descriptor id; Name and Unit are the
// denormalised copies the propagation engine keeps coherent.
type PropertyValue struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Unit  *string     `json:"unit,omitempty"`
	Value interface{} `json:"value"`
}

// CatalogueCategory is a node in the catalogue forest. Leaves own property
// schemas; non-leaves never carry properties (invariant I2).
type CatalogueCategory struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Code       string             `json:"code"`
	ParentID   *string            `json:"parent_id,omitempty"`
	IsLeaf     bool               `json:"is_leaf"`
	Properties []CategoryProperty `json:"properties,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// CatalogueItem is an abstract item model under a leaf category. Its
// Properties mirror the category schema one-to-one. NumberOfSpares is
// derived state, recomputed under write-lock; nil means no spares
// definition has ever been applied.
type CatalogueItem struct {
	ID                                 string          `json:"id"`
	CatalogueCategoryID                string          `json:"catalogue_category_id"`
	ManufacturerID                     string          `json:"manufacturer_id"`
	Name                               string          `json:"name"`
	Description                        *string         `json:"description,omitempty"`
	CostGBP                            float64         `json:"cost_gbp"`
	DaysToReplace                      float64         `json:"days_to_replace"`
	DrawingLink                        *string         `json:"drawing_link,omitempty"`
	DrawingNumber                      *string         `json:"drawing_number,omitempty"`
	ModelNumber                        *string         `json:"model_number,omitempty"`
	IsObsolete                         bool            `json:"is_obsolete"`
	ObsoleteReason                     *string         `json:"obsolete_reason,omitempty"`
	ObsoleteReplacementCatalogueItemID *string         `json:"obsolete_replacement_catalogue_item_id,omitempty"`
	Notes                              *string         `json:"notes,omitempty"`
	NumberOfSpares                     *int            `json:"number_of_spares"`
	Properties                         []PropertyValue `json:"properties"`
	CreatedAt                          time.Time       `json:"created_at"`
	UpdatedAt                          time.Time       `json:"updated_at"`
}

// Item is a physical instance of a catalogue item placed within a system.
type Item struct {
	ID                  string          `json:"id"`
	CatalogueItemID     string          `json:"catalogue_item_id"`
	SystemID            string          `json:"system_id"`
	UsageStatusID       string          `json:"usage_status_id"`
	IsDefective         bool            `json:"is_defective"`
	SerialNumber        *string         `json:"serial_number,omitempty"`
	AssetNumber         *string         `json:"asset_number,omitempty"`
	PurchaseOrderNumber *string         `json:"purchase_order_number,omitempty"`
	WarrantyEndDate     *time.Time      `json:"warranty_end_date,omitempty"`
	DeliveredDate       *time.Time      `json:"delivered_date,omitempty"`
	Notes               *string         `json:"notes,omitempty"`
	Properties          []PropertyValue `json:"properties"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// Importance is the coarse priority of a system.
type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceMedium Importance = "medium"
	ImportanceHigh   Importance = "high"
)

// IsValid reports whether i is a declared importance level.
func (i Importance) IsValid() bool {
	switch i {
	case ImportanceLow, ImportanceMedium, ImportanceHigh:
		return true
	}
	return false
}

// System is a node in the deployment forest. Children share their
// parent's TypeID (invariant I7; enforced, not stored redundantly).
type System struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Code        string     `json:"code"`
	ParentID    *string    `json:"parent_id,omitempty"`
	TypeID      string     `json:"type_id"`
	Description *string    `json:"description,omitempty"`
	Location    *string    `json:"location,omitempty"`
	Owner       *string    `json:"owner,omitempty"`
	Importance  Importance `json:"importance"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// SystemType is a fixed coarse classification of systems (e.g. Storage,
// Operational, Scrapped).
type SystemType struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// UsageStatus is the lifecycle state of an item (e.g. New, Used, In Use,
// Scrapped).
type UsageStatus struct {
	ID    string `json:"id"`
	Value string `json:"value"`
	Code  string `json:"code"`
}

// Unit is a measurement unit referenced by property descriptors.
type Unit struct {
	ID    string `json:"id"`
	Value string `json:"value"`
	Code  string `json:"code"`
}

// Address is a manufacturer's postal address.
type Address struct {
	AddressLine string  `json:"address_line"`
	Town        *string `json:"town,omitempty"`
	County      *string `json:"county,omitempty"`
	Country     string  `json:"country"`
	Postcode    string  `json:"postcode"`
}

// Manufacturer is a flat CRUD entity referenced by catalogue items.
type Manufacturer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	URL       *string   `json:"url,omitempty"`
	Address   Address   `json:"address"`
	Telephone *string   `json:"telephone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Rule encodes a permitted item transition:
//
//   - creation: Src nil, Dst and UsageStatus set
//   - move:     Src and Dst set (and distinct), UsageStatus set
//   - deletion: Src set, Dst and UsageStatus nil
type Rule struct {
	ID               string  `json:"id"`
	SrcSystemTypeID  *string `json:"src_system_type_id"`
	DstSystemTypeID  *string `json:"dst_system_type_id"`
	DstUsageStatusID *string `json:"dst_usage_status_id"`
}

// SparesDefinition is the settings record driving the spares recompute.
// An item counts as a spare when its usage status is in UsageStatusIDs
// and (if SystemTypeIDs is non-empty) its system's type is in scope.
type SparesDefinition struct {
	UsageStatusIDs []string `json:"usage_status_ids"`
	SystemTypeIDs  []string `json:"system_type_ids,omitempty"`
}

// SettingSparesDefinition is the fixed settings key for the spares
// definition record.
const SettingSparesDefinition = "spares_definition"

// BreadcrumbEntry is one (id, name) hop of a breadcrumb trail.
type BreadcrumbEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Breadcrumbs is a root-to-node trail. When the node has more ancestors
// than the configured maximum trail length allows, the oldest are dropped
// and FullTrail is false.
type Breadcrumbs struct {
	Trail     []BreadcrumbEntry `json:"trail"`
	FullTrail bool              `json:"full_trail"`
}
