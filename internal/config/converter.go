package config

import (
	"fmt"
)

// ConvertToApp overlays a validated document on Default().
// Fields absent from the document keep their defaults.
func ConvertToApp(data map[string]interface{}) (*App, error) {
	if data == nil {
		return nil, fmt.Errorf("configuration data is nil")
	}

	app := Default()

	if v, ok := data["schemaVersion"].(string); ok {
		app.SchemaVersion = v
	}

	if ds, ok := data["dataset"].(map[string]interface{}); ok {
		setString(ds, "path", &app.Dataset.Path)
		setString(ds, "encoding", &app.Dataset.Encoding)
		setString(ds, "delimiter", &app.Dataset.Delimiter)
	}

	if cols, ok := data["columns"].(map[string]interface{}); ok {
		setString(cols, "region", &app.Columns.Region)
		setString(cols, "category", &app.Columns.Category)
		setString(cols, "state", &app.Columns.State)
		setString(cols, "sales", &app.Columns.Sales)
		setString(cols, "profit", &app.Columns.Profit)
	}

	if out, ok := data["output"].(map[string]interface{}); ok {
		setString(out, "format", &app.Output.Format)
		if raw, present := out["limit"]; present {
			limit, ok := toInt(raw)
			if !ok {
				return nil, fmt.Errorf("output.limit: expected integer, got %T", raw)
			}
			app.Output.Limit = limit
		}
		if raw, present := out["maxWidth"]; present {
			width, ok := toInt(raw)
			if !ok {
				return nil, fmt.Errorf("output.maxWidth: expected integer, got %T", raw)
			}
			app.Output.MaxWidth = width
		}
		if raw, present := out["columns"]; present {
			cols, err := toStrings(raw)
			if err != nil {
				return nil, fmt.Errorf("output.columns: %w", err)
			}
			app.Output.Columns = cols
		}
	}

	if lg, ok := data["logging"].(map[string]interface{}); ok {
		setString(lg, "level", &app.Logging.Level)
		setString(lg, "format", &app.Logging.Format)
		setString(lg, "file", &app.Logging.File)
	}

	if raw, ok := data["presets"].([]interface{}); ok {
		seen := make(map[string]bool, len(raw))
		for i, item := range raw {
			m, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("presets[%d]: expected object, got %T", i, item)
			}
			p, err := convertPreset(m)
			if err != nil {
				return nil, fmt.Errorf("presets[%d]: %w", i, err)
			}
			if seen[p.Name] {
				return nil, fmt.Errorf("presets[%d]: duplicate preset name %q", i, p.Name)
			}
			seen[p.Name] = true
			app.Presets = append(app.Presets, p)
		}
	}

	return app, nil
}

func convertPreset(m map[string]interface{}) (Preset, error) {
	var p Preset
	name, ok := m["name"].(string)
	if !ok || name == "" {
		return p, fmt.Errorf("missing required field 'name'")
	}
	p.Name = name

	kind, ok := m["kind"].(string)
	if !ok || kind == "" {
		return p, fmt.Errorf("preset %q: missing required field 'kind'", name)
	}
	p.Kind = kind

	setString(m, "value", &p.Value)
	setString(m, "where", &p.Where)
	setString(m, "script", &p.Script)
	setString(m, "scriptFile", &p.ScriptFile)
	if p.Script != "" && p.ScriptFile != "" {
		return p, fmt.Errorf("preset %q: cannot specify both 'script' and 'scriptFile'", name)
	}
	setString(m, "onError", &p.OnError)

	for _, key := range []string{"min", "max"} {
		raw, present := m[key]
		if !present {
			continue
		}
		f, ok := toFloat(raw)
		if !ok {
			return p, fmt.Errorf("preset %q: %s must be a number, got %T", name, key, raw)
		}
		if key == "min" {
			p.Min = &f
		} else {
			p.Max = &f
		}
	}

	return p, nil
}

func setString(m map[string]interface{}, key string, dst *string) {
	if v, ok := m[key].(string); ok {
		*dst = v
	}
}

// toFloat accepts the numeric types produced by encoding/json and yaml.v3.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

func toStrings(v interface{}) ([]string, error) {
	items, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected list, got %T", v)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("item %d: expected string, got %T", i, item)
		}
		out = append(out, s)
	}
	return out, nil
}
