package store

import (
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDialect(t *testing.T) {
	tests := []struct {
		in      string
		want    Dialect
		wantErr bool
	}{
		{in: "sqlite", want: DialectSQLite},
		{in: "Postgres", want: DialectPostgres},
		{in: " mysql ", want: DialectMySQL},
		{in: "oracle", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDialect(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, eris.Is(err, ErrUnsupportedDialect))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHelperFor_Unregistered(t *testing.T) {
	_, err := HelperFor(Dialect("oracle"))
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnsupportedDialect))
}

func TestRegisterHelper_Nil(t *testing.T) {
	err := RegisterHelper(Dialect("custom"), nil)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnsupportedDialect))
}

func TestPostgresRebind(t *testing.T) {
	h, err := HelperFor(DialectPostgres)
	require.NoError(t, err)

	assert.Equal(t,
		"INSERT INTO place (a, b, c) VALUES ($1, $2, $3)",
		h.Rebind("INSERT INTO place (a, b, c) VALUES (?, ?, ?)"),
	)
	assert.Equal(t, "SELECT 1", h.Rebind("SELECT 1"))
}

func TestSQLiteRebindIsIdentity(t *testing.T) {
	h, err := HelperFor(DialectSQLite)
	require.NoError(t, err)
	q := "DELETE FROM place WHERE object_hash = ?"
	assert.Equal(t, q, h.Rebind(q))
}

func TestCreateDDL_ColumnSetFixedAcrossDialects(t *testing.T) {
	names := NamesWithPrefix(nil)
	for _, d := range []Dialect{DialectSQLite, DialectPostgres, DialectMySQL} {
		h, err := HelperFor(d)
		require.NoError(t, err)
		ddl := h.CreateDDL(names)
		require.Len(t, ddl, 5, "one statement per table for %s", d)

		joined := strings.Join(ddl, "\n")
		for _, col := range []string{
			"object_hash", "compressed_data", "created_at",
			"coordinates_lat", "coordinates_long",
			"bounds_south", "bounds_west", "bounds_north", "bounds_east",
			"street_number", "street_name", "postal_code", "locality", "sub_locality",
			"country_code", "country_name", "timezone",
			"level", "name", "code",
			"polygon_number", "point_number", "latitude", "longitude",
			"search_text",
		} {
			assert.Contains(t, joined, col, "dialect %s must carry column %s", d, col)
		}
	}
}
