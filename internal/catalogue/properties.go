package catalogue

import (
	"context"
	"strings"

	"github.com/beamtime/ims/internal/errs"
	"github.com/beamtime/ims/internal/idgen"
	"github.com/beamtime/ims/internal/storage"
	"github.com/beamtime/ims/internal/types"
)

// PropertyIn declares a property on a leaf category. Default is only
// consulted when the property is added to an existing category: it seeds
// the denormalised copies on every catalogue item and item already under
// the category. Mandatory additions require one.
type PropertyIn struct {
	Name          string
	Type          types.PropertyType
	UnitID        *string
	Mandatory     bool
	AllowedValues *types.AllowedValues
	Default       interface{}
}

// AddProperty declares a new property on a leaf category and propagates
// it, inside one transaction, to every catalogue item and item below.
func (s *Service) AddProperty(ctx context.Context, rawCategoryID string, in PropertyIn) (*types.CategoryProperty, error) {
	categoryID, err := parseID(rawCategoryID)
	if err != nil {
		return nil, err
	}

	var out *types.CategoryProperty
	err = s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		cat, err := tx.GetCategory(ctx, categoryID)
		if err != nil {
			return err
		}
		if !cat.IsLeaf {
			return errs.New(errs.InvalidAction, "properties are not allowed on a non-leaf catalogue category")
		}
		for _, existing := range cat.Properties {
			if existing.Name == in.Name {
				return errs.Newf(errs.DuplicatePropertyName, "duplicate property name: %s", in.Name)
			}
		}

		p, err := buildProperty(ctx, tx, in)
		if err != nil {
			return err
		}

		def := types.NormalizeValue(in.Default)
		if in.Mandatory && def == nil {
			return errs.Newf(errs.InvalidAction, "a default value is required when adding mandatory property %s", in.Name)
		}
		if def != nil {
			if !p.Type.CheckValue(def) {
				return errs.Newf(errs.InvalidPropertyType, "default value for property %s is not a valid %s", in.Name, p.Type)
			}
			if p.AllowedValues != nil && !p.AllowedValues.Contains(def) {
				return errs.Newf(errs.InvalidPropertyType, "default value for property %s is not an allowed value", in.Name)
			}
		}

		if err := tx.AddCategoryProperty(ctx, categoryID, p, def); err != nil {
			return err
		}
		out = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PropertyPatch is a partial property update. Only the name and the
// allowed-values list are mutable; type, unit and mandatory are frozen
// at declaration time.
type PropertyPatch struct {
	Name          *string
	AllowedValues *types.AllowedValues
}

// UpdateProperty renames a property and/or extends its allowed-values
// list. Renames cascade to the denormalised copies keyed by property id;
// allowed-values changes never need a cascade because extension keeps
// every stored value legal.
func (s *Service) UpdateProperty(ctx context.Context, rawCategoryID, rawPropertyID string, patch PropertyPatch) (*types.CategoryProperty, error) {
	categoryID, err := parseID(rawCategoryID)
	if err != nil {
		return nil, err
	}
	propertyID, err := parseID(rawPropertyID)
	if err != nil {
		return nil, err
	}

	var out *types.CategoryProperty
	err = s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		cat, err := tx.GetCategory(ctx, categoryID)
		if err != nil {
			return err
		}
		var cur *types.CategoryProperty
		for i := range cat.Properties {
			if cat.Properties[i].ID == propertyID {
				cur = &cat.Properties[i]
				break
			}
		}
		if cur == nil {
			return errs.Newf(errs.MissingRecord, "category property not found: %s", propertyID)
		}

		if patch.Name != nil && *patch.Name != cur.Name {
			for _, other := range cat.Properties {
				if other.ID != propertyID && other.Name == *patch.Name {
					return errs.Newf(errs.DuplicatePropertyName, "duplicate property name: %s", *patch.Name)
				}
			}
			if err := tx.RenameCategoryProperty(ctx, categoryID, propertyID, *patch.Name); err != nil {
				return err
			}
			cur.Name = *patch.Name
		}

		if patch.AllowedValues != nil {
			if err := checkAllowedValuesExtension(cur, patch.AllowedValues); err != nil {
				return err
			}
			if err := tx.SetCategoryPropertyAllowedValues(ctx, categoryID, propertyID, patch.AllowedValues); err != nil {
				return err
			}
			cur.AllowedValues = patch.AllowedValues
		}

		p := *cur
		out = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// buildProperties validates and materialises a creation-time schema.
func buildProperties(ctx context.Context, tx storage.Transaction, ins []PropertyIn) ([]types.CategoryProperty, error) {
	seen := make(map[string]struct{}, len(ins))
	props := make([]types.CategoryProperty, 0, len(ins))
	for _, in := range ins {
		if _, dup := seen[in.Name]; dup {
			return nil, errs.Newf(errs.DuplicatePropertyName, "duplicate property name: %s", in.Name)
		}
		seen[in.Name] = struct{}{}
		p, err := buildProperty(ctx, tx, in)
		if err != nil {
			return nil, err
		}
		props = append(props, p)
	}
	return props, nil
}

// buildProperty validates one declaration and resolves its unit. The
// unit value is denormalised onto the descriptor here; it never changes
// afterwards.
func buildProperty(ctx context.Context, tx storage.Transaction, in PropertyIn) (types.CategoryProperty, error) {
	var p types.CategoryProperty
	if strings.TrimSpace(in.Name) == "" {
		return p, errs.New(errs.InvalidAction, "property name must not be empty")
	}
	if !in.Type.IsValid() {
		return p, errs.Newf(errs.InvalidPropertyType, "invalid property type: %s", in.Type)
	}
	if err := validateAllowedValues(in.Type, in.AllowedValues); err != nil {
		return p, err
	}

	p = types.CategoryProperty{
		ID:            idgen.New(),
		Name:          in.Name,
		Type:          in.Type,
		Mandatory:     in.Mandatory,
		AllowedValues: in.AllowedValues,
	}
	if in.UnitID != nil {
		unitID, err := parseID(*in.UnitID)
		if err != nil {
			return p, err
		}
		unit, err := tx.GetUnit(ctx, unitID)
		if err != nil {
			return p, err
		}
		p.UnitID = &unitID
		p.Unit = &unit.Value
	}
	return p, nil
}

// validateAllowedValues checks a declaration: list kind only, non-empty,
// members matching the property type, no duplicates. Boolean properties
// cannot declare one.
func validateAllowedValues(t types.PropertyType, av *types.AllowedValues) error {
	if av == nil {
		return nil
	}
	if t == types.PropertyTypeBoolean {
		return errs.New(errs.InvalidAction, "allowed values are not supported on boolean properties")
	}
	if av.Kind != types.AllowedValuesKindList {
		return errs.Newf(errs.InvalidAction, "unsupported allowed values kind: %s", av.Kind)
	}
	if len(av.Values) == 0 {
		return errs.New(errs.InvalidAction, "allowed values list must not be empty")
	}
	seen := make(map[interface{}]struct{}, len(av.Values))
	for i, v := range av.Values {
		v = types.NormalizeValue(v)
		if v == nil || !t.CheckValue(v) {
			return errs.Newf(errs.InvalidPropertyType, "allowed value %v is not a valid %s", v, t)
		}
		if _, dup := seen[v]; dup {
			return errs.Newf(errs.InvalidAction, "duplicate allowed value: %v", v)
		}
		seen[v] = struct{}{}
		av.Values[i] = v
	}
	return nil
}

// checkAllowedValuesExtension enforces the only legal allowed-values
// change: extending an existing list with additional values.
func checkAllowedValuesExtension(cur *types.CategoryProperty, next *types.AllowedValues) error {
	if cur.AllowedValues == nil {
		return errs.Newf(errs.InvalidAction, "cannot introduce allowed values on property %s", cur.Name)
	}
	if err := validateAllowedValues(cur.Type, next); err != nil {
		return err
	}
	for _, v := range cur.AllowedValues.Values {
		if !next.Contains(v) {
			return errs.Newf(errs.InvalidAction, "allowed values for property %s may only add more values", cur.Name)
		}
	}
	return nil
}
