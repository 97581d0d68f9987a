package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/beamtime/ims/internal/ui"
)

// output renders v according to --format. The table form uses headers
// and rows; json and yaml marshal v directly (yaml goes through the
// json tags so both share the same field names).
func output(v interface{}, headers []string, rows [][]string) error {
	switch outputFormat {
	case "json":
		return outputJSON(v)
	case "yaml":
		return outputYAML(v)
	case "table", "":
		fmt.Println(ui.RenderTable(headers, rows))
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", outputFormat)
	}
}

func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func outputYAML(v interface{}) error {
	// Round-trip through JSON so the yaml keys follow the json tags.
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var plain interface{}
	if err := json.Unmarshal(data, &plain); err != nil {
		return err
	}
	out, err := yaml.Marshal(plain)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

func renderTableString(headers []string, rows [][]string) string {
	return ui.RenderTable(headers, rows)
}

func strOrDash(p *string) string {
	if p == nil || *p == "" {
		return "-"
	}
	return *p
}

func dateOrDash(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
