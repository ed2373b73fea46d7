package store

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Dialect names a supported SQL engine family. Helpers are resolved from
// this enum explicitly; the store never sniffs a live connection for its
// driver name.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// ParseDialect maps a configuration string to a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch Dialect(strings.ToLower(strings.TrimSpace(s))) {
	case DialectSQLite:
		return DialectSQLite, nil
	case DialectPostgres:
		return DialectPostgres, nil
	case DialectMySQL:
		return DialectMySQL, nil
	default:
		return "", eris.Wrapf(ErrUnsupportedDialect, "dialect %q", s)
	}
}

// TableNames holds the five table names of the relational schema, already
// carrying any multi-tenancy prefix.
type TableNames struct {
	Place      string
	Address    string
	AdminLevel string
	Polygon    string
	ActualKeys string
}

// NamesWithPrefix derives table names from the configured global prefix
// segments. Segments are joined and lowercased so the names stay valid
// unquoted identifiers on every dialect.
func NamesWithPrefix(prefix []string) TableNames {
	p := strings.ToLower(strings.Join(prefix, "_"))
	if p != "" {
		p += "_"
	}
	return TableNames{
		Place:      p + "place",
		Address:    p + "address",
		AdminLevel: p + "admin_level",
		Polygon:    p + "polygon",
		ActualKeys: p + "actual_keys",
	}
}

// Helper renders the five-table schema's DDL and statement templates for a
// concrete SQL engine. Helpers only change syntax (placeholders, column
// types, autoincrement spelling), never the column set.
type Helper interface {
	Dialect() Dialect

	// CreateDDL returns the CREATE TABLE statements, one per table.
	CreateDDL(t TableNames) []string

	// Rebind translates ?-style placeholders to the dialect's own form.
	Rebind(query string) string
}

// helperRegistry resolves helpers by dialect. Custom helpers may be added
// with RegisterHelper before opening a store.
var helperRegistry = map[Dialect]Helper{
	DialectSQLite:   sqliteHelper{},
	DialectPostgres: postgresHelper{},
	DialectMySQL:    mysqlHelper{},
}

// RegisterHelper installs (or replaces) the helper for a dialect. A nil
// helper is rejected so the registry never hands out a broken contract.
func RegisterHelper(d Dialect, h Helper) error {
	if h == nil {
		return eris.Wrapf(ErrUnsupportedDialect, "nil helper for dialect %q", d)
	}
	helperRegistry[d] = h
	return nil
}

// HelperFor resolves the helper for a dialect, failing fast when none is
// registered.
func HelperFor(d Dialect) (Helper, error) {
	h, ok := helperRegistry[d]
	if !ok {
		return nil, eris.Wrapf(ErrUnsupportedDialect, "no helper registered for dialect %q", d)
	}
	return h, nil
}

// sqliteHelper targets SQLite-family engines.
type sqliteHelper struct{}

func (sqliteHelper) Dialect() Dialect { return DialectSQLite }

func (sqliteHelper) Rebind(query string) string { return query }

func (sqliteHelper) CreateDDL(t TableNames) []string {
	return ddlStatements(t, ddlTypes{
		blob:    "BLOB",
		real:    "REAL",
		autoinc: "INTEGER PRIMARY KEY AUTOINCREMENT",
		created: "DATETIME NOT NULL",
	})
}

// postgresHelper targets PostgreSQL-family engines.
type postgresHelper struct{}

func (postgresHelper) Dialect() Dialect { return DialectPostgres }

// Rebind numbers the placeholders left to right ($1, $2, ...).
func (postgresHelper) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (postgresHelper) CreateDDL(t TableNames) []string {
	return ddlStatements(t, ddlTypes{
		blob:    "BYTEA",
		real:    "DOUBLE PRECISION",
		autoinc: "BIGSERIAL PRIMARY KEY",
		created: "TIMESTAMPTZ NOT NULL",
	})
}

// mysqlHelper targets MySQL-family engines.
type mysqlHelper struct{}

func (mysqlHelper) Dialect() Dialect { return DialectMySQL }

func (mysqlHelper) Rebind(query string) string { return query }

func (mysqlHelper) CreateDDL(t TableNames) []string {
	return ddlStatements(t, ddlTypes{
		blob:    "LONGBLOB",
		real:    "DOUBLE",
		autoinc: "BIGINT PRIMARY KEY AUTO_INCREMENT",
		created: "DATETIME NOT NULL",
	})
}

// ddlTypes captures the per-dialect column type spellings. The column set
// itself is fixed.
type ddlTypes struct {
	blob    string
	real    string
	autoinc string
	created string
}

func ddlStatements(t TableNames, ty ddlTypes) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	object_hash     VARCHAR(64) PRIMARY KEY,
	compressed_data %s NOT NULL,
	created_at      %s
)`, t.Place, ty.blob, ty.created),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	object_hash      VARCHAR(64) NOT NULL,
	locale           VARCHAR(16) NOT NULL,
	provided_by      VARCHAR(128),
	coordinates_lat  %[2]s,
	coordinates_long %[2]s,
	bounds_south     %[2]s,
	bounds_west      %[2]s,
	bounds_north     %[2]s,
	bounds_east      %[2]s,
	street_number    VARCHAR(128),
	street_name      VARCHAR(255),
	postal_code      VARCHAR(32),
	locality         VARCHAR(255),
	sub_locality     VARCHAR(255),
	country_code     VARCHAR(8),
	country_name     VARCHAR(255),
	timezone         VARCHAR(64),
	PRIMARY KEY (object_hash, locale)
)`, t.Address, ty.real),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	object_hash VARCHAR(64) NOT NULL,
	locale      VARCHAR(16) NOT NULL,
	level       INTEGER NOT NULL,
	name        VARCHAR(255) NOT NULL,
	code        VARCHAR(64),
	PRIMARY KEY (object_hash, locale, level)
)`, t.AdminLevel),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	object_hash    VARCHAR(64) NOT NULL,
	polygon_number INTEGER NOT NULL,
	point_number   INTEGER NOT NULL,
	latitude       %[2]s NOT NULL,
	longitude      %[2]s NOT NULL,
	PRIMARY KEY (object_hash, polygon_number, point_number)
)`, t.Polygon, ty.real),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id          %s,
	object_hash VARCHAR(64) NOT NULL,
	locale      VARCHAR(16) NOT NULL,
	search_text VARCHAR(512) NOT NULL
)`, t.ActualKeys, ty.autoinc),
	}
}
