package sqlite

const schema = `
-- Catalogue category tree
CREATE TABLE IF NOT EXISTS catalogue_categories (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL CHECK(length(name) <= 255),
    code TEXT NOT NULL,
    parent_id TEXT REFERENCES catalogue_categories(id),
    is_leaf INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Sibling-code uniqueness (invariant I1). SQLite treats NULLs as distinct
-- in unique indexes, so roots are folded onto the empty string.
CREATE UNIQUE INDEX IF NOT EXISTS idx_catalogue_categories_parent_code
    ON catalogue_categories(IFNULL(parent_id, ''), code);
CREATE INDEX IF NOT EXISTS idx_catalogue_categories_parent ON catalogue_categories(parent_id);

-- Property descriptors, owned by leaf categories (invariant I2 is
-- enforced by the engine, not the schema: a non-leaf simply has no rows).
CREATE TABLE IF NOT EXISTS catalogue_category_properties (
    id TEXT PRIMARY KEY,
    category_id TEXT NOT NULL REFERENCES catalogue_categories(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    type TEXT NOT NULL CHECK(type IN ('string', 'number', 'boolean')),
    unit_id TEXT REFERENCES units(id),
    unit TEXT,
    mandatory INTEGER NOT NULL DEFAULT 0,
    allowed_values TEXT,          -- JSON {"type":"list","values":[...]}
    position INTEGER NOT NULL DEFAULT 0,
    UNIQUE(category_id, name)
);

CREATE INDEX IF NOT EXISTS idx_category_properties_category
    ON catalogue_category_properties(category_id);

-- Catalogue items
CREATE TABLE IF NOT EXISTS catalogue_items (
    id TEXT PRIMARY KEY,
    catalogue_category_id TEXT NOT NULL REFERENCES catalogue_categories(id),
    manufacturer_id TEXT NOT NULL REFERENCES manufacturers(id),
    name TEXT NOT NULL,
    description TEXT,
    cost_gbp REAL NOT NULL DEFAULT 0,
    days_to_replace REAL NOT NULL DEFAULT 0,
    drawing_link TEXT,
    drawing_number TEXT,
    model_number TEXT,
    is_obsolete INTEGER NOT NULL DEFAULT 0,
    obsolete_reason TEXT,
    obsolete_replacement_catalogue_item_id TEXT REFERENCES catalogue_items(id),
    notes TEXT,
    number_of_spares INTEGER,     -- derived; NULL until a spares definition is applied
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_catalogue_items_category ON catalogue_items(catalogue_category_id);
CREATE INDEX IF NOT EXISTS idx_catalogue_items_manufacturer ON catalogue_items(manufacturer_id);

-- Denormalised property copies on catalogue items (invariant I4: the set
-- of property_id values mirrors the owning category's descriptors).
CREATE TABLE IF NOT EXISTS catalogue_item_properties (
    catalogue_item_id TEXT NOT NULL REFERENCES catalogue_items(id) ON DELETE CASCADE,
    property_id TEXT NOT NULL,
    name TEXT NOT NULL,
    unit TEXT,
    value TEXT,                   -- JSON-encoded; NULL means null
    position INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (catalogue_item_id, property_id)
);

CREATE INDEX IF NOT EXISTS idx_catalogue_item_properties_property
    ON catalogue_item_properties(property_id);

-- Items (physical instances)
CREATE TABLE IF NOT EXISTS items (
    id TEXT PRIMARY KEY,
    catalogue_item_id TEXT NOT NULL REFERENCES catalogue_items(id),
    system_id TEXT NOT NULL REFERENCES systems(id),
    usage_status_id TEXT NOT NULL REFERENCES usage_statuses(id),
    is_defective INTEGER NOT NULL DEFAULT 0,
    serial_number TEXT,
    asset_number TEXT,
    purchase_order_number TEXT,
    warranty_end_date DATETIME,
    delivered_date DATETIME,
    notes TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_items_catalogue_item ON items(catalogue_item_id);
CREATE INDEX IF NOT EXISTS idx_items_system ON items(system_id);
CREATE INDEX IF NOT EXISTS idx_items_usage_status ON items(usage_status_id);

CREATE TABLE IF NOT EXISTS item_properties (
    item_id TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    property_id TEXT NOT NULL,
    name TEXT NOT NULL,
    unit TEXT,
    value TEXT,
    position INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (item_id, property_id)
);

CREATE INDEX IF NOT EXISTS idx_item_properties_property ON item_properties(property_id);

-- System tree
CREATE TABLE IF NOT EXISTS systems (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL CHECK(length(name) <= 255),
    code TEXT NOT NULL,
    parent_id TEXT REFERENCES systems(id),
    type_id TEXT NOT NULL REFERENCES system_types(id),
    description TEXT,
    location TEXT,
    owner TEXT,
    importance TEXT NOT NULL CHECK(importance IN ('low', 'medium', 'high')),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_systems_parent_code
    ON systems(IFNULL(parent_id, ''), code);
CREATE INDEX IF NOT EXISTS idx_systems_parent ON systems(parent_id);
CREATE INDEX IF NOT EXISTS idx_systems_type ON systems(type_id);

-- Flat lookups
CREATE TABLE IF NOT EXISTS system_types (
    id TEXT PRIMARY KEY,
    value TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS units (
    id TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    code TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS usage_statuses (
    id TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    code TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS manufacturers (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    code TEXT NOT NULL UNIQUE,
    url TEXT,
    address_line TEXT NOT NULL DEFAULT '',
    town TEXT,
    county TEXT,
    country TEXT NOT NULL DEFAULT '',
    postcode TEXT NOT NULL DEFAULT '',
    telephone TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Transition rules. NULL endpoints encode creation (src NULL) and
-- deletion (dst NULL) rules; uniqueness folds NULLs onto ''.
CREATE TABLE IF NOT EXISTS rules (
    id TEXT PRIMARY KEY,
    src_system_type_id TEXT REFERENCES system_types(id),
    dst_system_type_id TEXT REFERENCES system_types(id),
    dst_usage_status_id TEXT REFERENCES usage_statuses(id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_rules_triple
    ON rules(IFNULL(src_system_type_id, ''), IFNULL(dst_system_type_id, ''), IFNULL(dst_usage_status_id, ''));

-- Settings, keyed by a fixed string id per setting (e.g. spares_definition)
CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL             -- JSON
);
`
