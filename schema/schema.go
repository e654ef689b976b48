// Package schema documents the column families of the primary store: key
// encodings, value layouts, expected schema versions, and relationships.
// Definitions are embedded YAML, one file per category.
package schema

import (
	"embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed definitions/*.yaml
var definitionsFS embed.FS

// ColumnFamilySchema documents a single column family.
type ColumnFamilySchema struct {
	// Name is the column family name (e.g. "block_info").
	Name string `yaml:"name" json:"name"`

	// Category groups related column families: "blocks", "transactions",
	// "contracts", "classes", "meta".
	Category string `yaml:"category" json:"category"`

	// Purpose describes what the column family stores.
	Purpose string `yaml:"purpose" json:"purpose"`

	// SchemaVersion is the value schema version expected at decode time.
	SchemaVersion uint32 `yaml:"schema_version" json:"schema_version"`

	Key           KeySchema      `yaml:"key" json:"key"`
	Value         ValueSchema    `yaml:"value" json:"value"`
	Relationships []Relationship `yaml:"relationships" json:"relationships"`
}

// KeySchema documents a column family's key encoding.
type KeySchema struct {
	GoType         string `yaml:"go_type" json:"go_type"`
	Encoding       string `yaml:"encoding" json:"encoding"`
	SizeBytes      *int   `yaml:"size_bytes" json:"size_bytes"`
	Description    string `yaml:"description" json:"description"`
	ExampleRaw     string `yaml:"example_raw" json:"example_raw"`
	ExampleDecoded string `yaml:"example_decoded" json:"example_decoded"`
}

// ValueSchema documents a column family's value layout.
type ValueSchema struct {
	GoType      string        `yaml:"go_type" json:"go_type"`
	Encoding    string        `yaml:"encoding" json:"encoding"`
	Description string        `yaml:"description" json:"description"`
	Fields      []FieldSchema `yaml:"fields" json:"fields"`
}

// FieldSchema documents one field within a value record.
type FieldSchema struct {
	Name        string `yaml:"name" json:"name"`
	GoType      string `yaml:"go_type" json:"go_type"`
	Description string `yaml:"description" json:"description"`
}

// Relationship documents a link between column families.
type Relationship struct {
	TargetCF string `yaml:"target_cf" json:"target_cf"`
	// Type is one of "inverse", "references", "contains", "indexed_by".
	Type        string `yaml:"relationship_type" json:"relationship_type"`
	Description string `yaml:"description" json:"description"`
}

// Category summarizes one schema category.
type Category struct {
	Name              string `json:"name"`
	ColumnFamilyCount int    `json:"column_family_count"`
	Description       string `json:"description"`
}

var categoryDescriptions = map[string]string{
	"blocks":       "Block headers, hash indexes, and per-block state diffs",
	"transactions": "Transaction records with receipts and emitted events",
	"contracts":    "Contract state: class hashes, nonces, and storage slots",
	"classes":      "Declared class definitions and compiled artifacts",
	"meta":         "Store-level metadata such as the chain tip",
}

// Load parses all embedded definitions into a single schema list.
func Load() ([]ColumnFamilySchema, error) {
	entries, err := definitionsFS.ReadDir("definitions")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded definitions: %w", err)
	}

	var all []ColumnFamilySchema
	for _, entry := range entries {
		data, err := definitionsFS.ReadFile("definitions/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		var schemas []ColumnFamilySchema
		if err := yaml.Unmarshal(data, &schemas); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", entry.Name(), err)
		}
		all = append(all, schemas...)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all, nil
}

// ByCategory returns the schemas of one category.
func ByCategory(category string) ([]ColumnFamilySchema, error) {
	all, err := Load()
	if err != nil {
		return nil, err
	}
	var filtered []ColumnFamilySchema
	for _, cf := range all {
		if cf.Category == category {
			filtered = append(filtered, cf)
		}
	}
	return filtered, nil
}

// ByName returns the schema of one column family, or nil if unknown.
func ByName(name string) (*ColumnFamilySchema, error) {
	all, err := Load()
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Name == name {
			return &all[i], nil
		}
	}
	return nil, nil
}

// Categories summarizes all schema categories.
func Categories() ([]Category, error) {
	all, err := Load()
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, cf := range all {
		counts[cf.Category]++
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	categories := make([]Category, 0, len(names))
	for _, name := range names {
		categories = append(categories, Category{
			Name:              name,
			ColumnFamilyCount: counts[name],
			Description:       categoryDescriptions[name],
		})
	}
	return categories, nil
}
