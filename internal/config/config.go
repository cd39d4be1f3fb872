// =============================================================================
// TCD Bridge - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing all configuration files.
// Two documents drive a reconciliation run:
//   1. Main Config (config.yaml): directories, logging and server settings
//   2. Mapping Config (mapping.yaml): how a TCD workbook maps onto a
//      destination template (establishment patterns, data-element labels,
//      category columns, value remaps)
//
// Both follow the same pipeline: read, parse, apply defaults, validate.
//
// =============================================================================

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
// This is loaded from the main config.yaml file.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is the directory scanned for TCD workbooks to process.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir is the directory where payloads and reports are written.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// ArchiveDir is the directory where processed workbooks are moved.
	// Files are only moved here after successful processing.
	// Default: "./archive"
	ArchiveDir string `yaml:"archive_dir"`

	// TemplatesDir is the directory holding destination template workbooks.
	// Default: "./templates"
	TemplatesDir string `yaml:"templates_dir"`

	// ArchiveTimestampSubdirs files archived workbooks under
	// year/month/day subdirectories instead of the archive root.
	ArchiveTimestampSubdirs bool `yaml:"archive_timestamp_subdirs"`

	// ArchiveRetentionDays removes archived workbooks older than this many
	// days after each processing run. 0 keeps archives forever.
	ArchiveRetentionDays int `yaml:"archive_retention_days"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is the path to the application log file. Empty logs to the
	// console only.
	LogFile string `yaml:"log_file"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputNameFormat defines the format for output file names.
	// Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	// Default: "payload_{timestamp}_{uuid}.json"
	OutputNameFormat string `yaml:"output_name_format"`

	// =========================================================================
	// SERVER SETTINGS
	// =========================================================================

	// Server configures the destination DHIS2 instance. Only needed for
	// metadata fetching and payload pushing; file-only runs leave it empty.
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds the connection settings of the destination instance.
type ServerConfig struct {
	// BaseURL is the instance root, e.g. "https://play.dhis2.org/demo".
	BaseURL string `yaml:"base_url"`

	// Username and Password authenticate with HTTP basic auth.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// APIToken authenticates with a personal access token instead of
	// basic auth. Takes precedence over Username/Password when set.
	APIToken string `yaml:"api_token"`

	// TimeoutSeconds bounds every request. Default: 30.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// =============================================================================
// MAPPING CONFIGURATION STRUCTURE
// =============================================================================

// DataElementMapping binds one raw TCD label to its template coordinates.
type DataElementMapping struct {
	// Section is the template section the element belongs to.
	Section string `yaml:"section"`

	// DataElement is the exact data element name used in the template.
	DataElement string `yaml:"data_element"`
}

// MappingConfig describes how one family of TCD workbooks maps onto a
// destination template. This is loaded from a mapping.yaml file.
type MappingConfig struct {
	// EstablishmentPatterns maps a TCD acronym to a fragment of the
	// template organisation name, matched case-insensitively.
	// Example: {"HGR": "Hopital General"}
	EstablishmentPatterns map[string]string `yaml:"establishment_patterns"`

	// DataElements maps a raw TCD label to its template coordinates.
	DataElements map[string]DataElementMapping `yaml:"data_elements"`

	// TemplateHeaderRow is the 0-based header row of the template sheet.
	// A pointer so that an explicit 0 stays distinguishable from unset.
	// Default: 5 (the generator writes headers on workbook row 6).
	TemplateHeaderRow *int `yaml:"template_header_row"`

	// SheetHeaderRow is the 0-based header row of the TCD sheet.
	// Default: 0.
	SheetHeaderRow int `yaml:"sheet_header_row"`

	// EstablishmentColumn is the TCD column carrying establishment names.
	// Default: "NOM_ETAB"
	EstablishmentColumn string `yaml:"establishment_column"`

	// EstablishmentCodeColumn is the TCD column carrying establishment
	// codes, when present.
	// Default: "CODE_ETAB"
	EstablishmentCodeColumn string `yaml:"establishment_code_column"`

	// CategoryColumns are the TCD columns combined into the composite
	// category key, in any order.
	// Default: ["GROUP_AGE", "SEXE"]
	CategoryColumns []string `yaml:"category_columns"`

	// ValueRemaps overrides normalization per column: the value found in
	// the named column is replaced before any other rule applies.
	// Example: {"SEXE": {"Masculin": "M"}}
	ValueRemaps map[string]map[string]string `yaml:"value_remaps"`

	// EmitZeroValues emits records for literal zero cells instead of
	// treating them like blanks. Default: false.
	EmitZeroValues bool `yaml:"emit_zero_values"`

	// CollisionPolicy decides what happens when two template rows share a
	// reconciliation key. Valid values: "last", "first", "reject".
	// Default: "last"
	CollisionPolicy string `yaml:"collision_policy"`
}

// =============================================================================
// LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main application configuration.
//
// PARAMETERS:
//   - configPath: The path to the main config.yaml file.
//
// RETURNS:
//   - A pointer to the MainConfig struct with defaults applied.
//   - An error if the file cannot be read or parsed.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.ArchiveDir == "" {
		config.ArchiveDir = "./archive"
	}
	if config.TemplatesDir == "" {
		config.TemplatesDir = "./templates"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "payload_{timestamp}_{uuid}.json"
	}
	if config.Server.TimeoutSeconds == 0 {
		config.Server.TimeoutSeconds = 30
	}
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	switch config.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", config.LogLevel)
	}

	if config.ArchiveRetentionDays < 0 {
		return fmt.Errorf("archive_retention_days must not be negative, got %d", config.ArchiveRetentionDays)
	}

	dirs := []string{
		config.InputDir,
		config.OutputDir,
		config.ArchiveDir,
		config.TemplatesDir,
	}
	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}

// LoadMappingConfig loads a mapping configuration file.
//
// PARAMETERS:
//   - configPath: The path to the mapping.yaml file.
//
// RETURNS:
//   - A pointer to the MappingConfig struct with defaults applied.
//   - An error if the file cannot be read, parsed or validated.
func LoadMappingConfig(configPath string) (*MappingConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}

	var config MappingConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse mapping file: %w", err)
	}

	ApplyMappingDefaults(&config)

	if err := validateMappingConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid mapping configuration: %w", err)
	}

	return &config, nil
}

// ApplyMappingDefaults sets default values for any unset mapping options.
// Exported because in-memory configurations take the same defaults.
func ApplyMappingDefaults(config *MappingConfig) {
	if config.TemplateHeaderRow == nil {
		row := 5
		config.TemplateHeaderRow = &row
	}
	if config.EstablishmentColumn == "" {
		config.EstablishmentColumn = "NOM_ETAB"
	}
	if config.EstablishmentCodeColumn == "" {
		config.EstablishmentCodeColumn = "CODE_ETAB"
	}
	if len(config.CategoryColumns) == 0 {
		config.CategoryColumns = []string{"GROUP_AGE", "SEXE"}
	}
	if config.CollisionPolicy == "" {
		config.CollisionPolicy = "last"
	}
}

// validateMappingConfig validates the mapping configuration.
func validateMappingConfig(config *MappingConfig) error {
	switch config.CollisionPolicy {
	case "last", "first", "reject":
	default:
		return fmt.Errorf("unknown collision policy %q", config.CollisionPolicy)
	}

	for label, mapping := range config.DataElements {
		if mapping.Section == "" || mapping.DataElement == "" {
			return fmt.Errorf("data element mapping %q needs both section and data_element", label)
		}
	}

	if config.SheetHeaderRow < 0 || (config.TemplateHeaderRow != nil && *config.TemplateHeaderRow < 0) {
		return fmt.Errorf("header rows must not be negative")
	}

	return nil
}
