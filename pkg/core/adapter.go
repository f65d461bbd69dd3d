package core

// AdapterConfig holds configuration for connecting to a database.
type AdapterConfig struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
	Params   map[string]any
}

// TargetConfig holds database target configuration as it appears in reetl.yaml.
type TargetConfig struct {
	Type string `koanf:"type"` // mysql, postgres, duckdb, sqlite

	// File-based databases (DuckDB, SQLite) use Database as a path.
	Database string `koanf:"database"`

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	// Schema receives the raw tables.
	Schema string `koanf:"schema"`

	// Options are appended to the driver DSN.
	Options map[string]string `koanf:"options"`

	// Params holds adapter-specific configuration (e.g. DuckDB settings).
	Params map[string]any `koanf:"params"`
}

// AdapterConfig converts the target into the adapter connection config.
func (t *TargetConfig) AdapterConfig() AdapterConfig {
	return AdapterConfig{
		Type:     t.Type,
		Path:     t.Database,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.User,
		Password: t.Password,
		Schema:   t.Schema,
		Options:  t.Options,
		Params:   t.Params,
	}
}
