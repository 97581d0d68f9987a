package catalogue

import (
	"github.com/beamtime/ims/internal/errs"
	"github.com/beamtime/ims/internal/idgen"
	"github.com/beamtime/ims/internal/types"
)

// ValueIn is a supplied property value, addressed by descriptor id or,
// failing that, by name. Supplied entries that match no declared
// property are dropped silently.
type ValueIn struct {
	ID    *string
	Name  *string
	Value interface{}
}

// ResolveValues checks supplied values against a category schema and
// returns the full stored value list, one entry per declared property in
// declaration order. Properties the caller did not supply fall back to
// defaults (keyed by property id; the item service passes the owning
// catalogue item's values there) and otherwise to null.
//
// Name and unit on the result always come from the declaration, never
// from the caller.
func ResolveValues(defined []types.CategoryProperty, supplied []ValueIn, defaults map[string]interface{}) ([]types.PropertyValue, error) {
	byID := make(map[string]int, len(defined))
	byName := make(map[string]int, len(defined))
	for i, d := range defined {
		byID[d.ID] = i
		byName[d.Name] = i
	}

	// Last supplied entry for a property wins.
	values := make(map[string]interface{}, len(supplied))
	for _, in := range supplied {
		idx := -1
		if in.ID != nil {
			if id, err := idgen.Parse(*in.ID); err == nil {
				if i, ok := byID[id]; ok {
					idx = i
				}
			}
		}
		if idx < 0 && in.Name != nil {
			if i, ok := byName[*in.Name]; ok {
				idx = i
			}
		}
		if idx < 0 {
			continue
		}
		values[defined[idx].ID] = types.NormalizeValue(in.Value)
	}

	out := make([]types.PropertyValue, 0, len(defined))
	for _, d := range defined {
		value, ok := values[d.ID]
		if !ok {
			value = types.NormalizeValue(defaults[d.ID])
		}
		if value == nil {
			if d.Mandatory {
				return nil, errs.Newf(errs.MissingMandatoryProperty, "missing mandatory property: %s", d.Name)
			}
		} else {
			if !d.Type.CheckValue(value) {
				return nil, errs.Newf(errs.InvalidPropertyType, "invalid value for property %s: expected %s", d.Name, d.Type)
			}
			if d.AllowedValues != nil && !d.AllowedValues.Contains(value) {
				return nil, errs.Newf(errs.InvalidPropertyType, "invalid value for property %s: not an allowed value", d.Name)
			}
		}
		out = append(out, types.PropertyValue{ID: d.ID, Name: d.Name, Unit: d.Unit, Value: value})
	}
	return out, nil
}
