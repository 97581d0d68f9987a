package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/beamtime/ims/internal/catalogue"
	"github.com/beamtime/ims/internal/types"
)

// changedString returns a pointer to the flag value when the flag was
// given on the command line, nil otherwise. Patch structs use nil for
// "leave unchanged", so flag defaults must not leak into them.
func changedString(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func changedBool(cmd *cobra.Command, name string) *bool {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetBool(name)
	return &v
}

func changedFloat64(cmd *cobra.Command, name string) *float64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetFloat64(name)
	return &v
}

// parseScalar interprets a flag value as JSON where possible, so that
// `--property diameter=50` yields a number and `--property coated=true`
// a boolean. Anything that does not parse is taken as a plain string;
// "null" clears the value.
func parseScalar(raw string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

// parsePropertyFlags turns repeated name=value pairs into supplied
// property values addressed by name.
func parsePropertyFlags(pairs []string) ([]catalogue.ValueIn, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make([]catalogue.ValueIn, 0, len(pairs))
	for _, p := range pairs {
		name, raw, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid property %q (want name=value)", p)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("invalid property %q (empty name)", p)
		}
		n := name
		out = append(out, catalogue.ValueIn{Name: &n, Value: parseScalar(raw)})
	}
	return out, nil
}

// parseAllowedValues decodes a JSON array into an allowed-values list.
func parseAllowedValues(raw string) (*types.AllowedValues, error) {
	var values []interface{}
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("invalid allowed values %q: want a JSON array", raw)
	}
	return &types.AllowedValues{Kind: types.AllowedValuesKindList, Values: values}, nil
}

var dateParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// parseDate accepts ISO dates and casual English ("next friday",
// "in 3 months").
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	r, err := dateParser.Parse(s, time.Now())
	if err == nil && r != nil {
		return r.Time, nil
	}
	return time.Time{}, fmt.Errorf("cannot parse date %q", s)
}

// changedDate is changedString for date-valued flags.
func changedDate(cmd *cobra.Command, name string) (*time.Time, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	v, _ := cmd.Flags().GetString(name)
	t, err := parseDate(v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
