// Package config parses, validates and converts application configuration
// files (JSON or YAML) into a typed App.
//
// Loading is a three step pipeline: ParseConfig reads the document into a
// generic map, ValidateConfig checks it against the embedded JSON Schema,
// and ConvertToApp overlays it on the defaults.
package config

// SchemaVersion is the configuration format version this build understands.
const SchemaVersion = "1.0.0"

// App is the complete application configuration.
type App struct {
	SchemaVersion string
	Dataset       Dataset
	Columns       Columns
	Output        Output
	Logging       Logging
	Presets       []Preset
}

// Dataset locates and describes the input file.
type Dataset struct {
	Path      string
	Encoding  string
	Delimiter string
}

// Columns maps filter kinds to dataset column names.
type Columns struct {
	Region   string
	Category string
	State    string
	Sales    string
	Profit   string
}

// Output controls how filter results are printed.
type Output struct {
	// Format is table, csv or json
	Format string
	// Limit caps printed rows; 0 prints all
	Limit int
	// Columns restricts printed columns; empty prints all
	Columns []string
	// MaxWidth truncates table cells wider than this; 0 keeps them whole
	MaxWidth int
}

// Logging configures the logger.
type Logging struct {
	Level  string
	Format string
	File   string
}

// Preset is a named, reusable filter.
type Preset struct {
	Name  string
	Kind  string
	Value string
	// Min and Max are set for range kinds
	Min     *float64
	Max     *float64
	Where string
	// Script and ScriptFile hold a JavaScript match(row) refinement
	Script     string
	ScriptFile string
	OnError    string
}

// Default returns the configuration used when no file is given.
func Default() *App {
	return &App{
		SchemaVersion: SchemaVersion,
		Dataset: Dataset{
			Path:      "Sample - Superstore.csv",
			Encoding:  "latin1",
			Delimiter: ",",
		},
		Columns: Columns{
			Region:   "Region",
			Category: "Category",
			State:    "State",
			Sales:    "Sales",
			Profit:   "Profit",
		},
		Output: Output{Format: "table"},
		Logging: Logging{
			Level:  "info",
			Format: "human",
		},
	}
}

// Preset looks up a preset by name.
func (a *App) Preset(name string) (Preset, bool) {
	for _, p := range a.Presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}
