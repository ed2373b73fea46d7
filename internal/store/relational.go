package store

import (
	"context"
	"database/sql"
	"encoding/json"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/atlasgeo/placestore/internal/config"
	"github.com/atlasgeo/placestore/internal/model"
	"github.com/atlasgeo/placestore/internal/search"
	"github.com/atlasgeo/placestore/internal/storekey"
)

// polygonBatch is the page size for reading polygon vertices.
const polygonBatch = 1000

// driverNames maps dialects to the database/sql driver each one expects.
// MySQL has a helper but no compiled-in driver; callers wanting it must
// register one under "mysql" before opening.
var driverNames = map[Dialect]string{
	DialectSQLite:   "sqlite",
	DialectPostgres: "pgx",
	DialectMySQL:    "mysql",
}

// RelationalStore normalizes each place into five related tables. Identity
// is the content hash of the serialized place; the searchable inventory
// lives in the actual_keys table. All multi-row writes run in one
// transaction.
type RelationalStore struct {
	db       *sql.DB
	helper   Helper
	names    TableNames
	cfg      config.KeyConfig
	compiler *storekey.Compiler
	codec    codec
	clock    clockwork.Clock
}

// RelationalOption configures a RelationalStore.
type RelationalOption func(*RelationalStore)

// WithRelationalClock replaces the time source used for created_at stamps
// and the prune cutoff.
func WithRelationalClock(c clockwork.Clock) RelationalOption {
	return func(s *RelationalStore) { s.clock = c }
}

// NewRelational wraps an open database handle. The dialect must have a
// registered helper and the handle must not be nil.
func NewRelational(db *sql.DB, dialect Dialect, cfg config.KeyConfig, opts ...RelationalOption) (*RelationalStore, error) {
	if db == nil {
		return nil, eris.Wrap(model.ErrInvalidArgument, "relational store: nil database handle")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	helper, err := HelperFor(dialect)
	if err != nil {
		return nil, err
	}
	s := &RelationalStore{
		db:       db,
		helper:   helper,
		names:    NamesWithPrefix(cfg.Prefix),
		cfg:      cfg,
		compiler: storekey.New(cfg),
		codec:    newCodec(cfg.Compress, cfg.CompressLevel),
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// OpenRelational opens a connection for the dialect and wraps it. SQLite
// handles get the WAL pragmas applied.
func OpenRelational(ctx context.Context, dialect Dialect, dsn string, cfg config.KeyConfig, opts ...RelationalOption) (*RelationalStore, error) {
	driver, ok := driverNames[dialect]
	if !ok {
		return nil, eris.Wrapf(ErrUnsupportedDialect, "no driver mapping for dialect %q", dialect)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, eris.Wrapf(err, "relational store: open %s", driver)
	}
	if dialect == DialectSQLite {
		for _, pragma := range []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA busy_timeout=5000",
			"PRAGMA synchronous=NORMAL",
		} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				db.Close()
				return nil, eris.Wrapf(err, "relational store: exec %s", pragma)
			}
		}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "relational store: ping")
	}
	s, err := NewRelational(db, dialect, cfg, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the five-table schema if missing.
func (s *RelationalStore) Migrate(ctx context.Context) error {
	for _, ddl := range s.helper.CreateDDL(s.names) {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return eris.Wrap(err, "relational store: migrate")
		}
	}
	return nil
}

// CompileKey implements Store.
func (s *RelationalStore) CompileKey(place model.Place) string {
	return s.compiler.Compile(place, true, true, true)
}

// Config implements Store.
func (s *RelationalStore) Config() config.KeyConfig { return s.cfg }

// Close implements Store.
func (s *RelationalStore) Close() error { return s.db.Close() }

// localeOf picks the locale the place's rows are stored under, falling back
// to the configured default.
func (s *RelationalStore) localeOf(place model.Place) string {
	if place.Locale != "" {
		return place.Locale
	}
	return s.cfg.Locale
}

// Add implements Store. Like the cache backend it appends to the inventory
// unconditionally; Update is the replacing path.
func (s *RelationalStore) Add(ctx context.Context, place model.Place) error {
	return s.put(ctx, place, false)
}

// Update implements Store. Rows belonging to the place's compiled key are
// replaced wholesale, including places whose content hash changed.
func (s *RelationalStore) Update(ctx context.Context, place model.Place) error {
	return s.put(ctx, place, true)
}

func (s *RelationalStore) put(ctx context.Context, place model.Place, replace bool) error {
	key := s.CompileKey(place)
	hash := place.ObjectHash()
	locale := s.localeOf(place)

	payload, err := json.Marshal(place)
	if err != nil {
		return eris.Wrap(err, "relational store: marshal place")
	}
	encoded, err := s.codec.Encode(payload)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "relational store: begin tx")
	}
	defer tx.Rollback()

	if replace {
		// Drop every place previously stored under this key; the content
		// hash may have changed with the content.
		hashes, err := s.hashesForKey(ctx, tx, key)
		if err != nil {
			return err
		}
		for _, h := range hashes {
			if err := s.deleteRows(ctx, tx, h); err != nil {
				return err
			}
		}
		if err := s.exec(ctx, tx, "DELETE FROM "+s.names.ActualKeys+" WHERE search_text = ?", key); err != nil {
			return err
		}
	} else if err := s.deleteRows(ctx, tx, hash); err != nil {
		// Re-adding identical content replaces the previous projection of
		// the same hash.
		return err
	}

	if err := s.exec(ctx, tx,
		"INSERT INTO "+s.names.Place+" (object_hash, compressed_data, created_at) VALUES (?, ?, ?)",
		hash, encoded, s.clock.Now().UTC(),
	); err != nil {
		return err
	}

	var lat, lon, south, west, north, east any
	if place.Coordinates != nil {
		lat, lon = place.Coordinates.Latitude, place.Coordinates.Longitude
	}
	if place.Bounds != nil {
		south, west = place.Bounds.South, place.Bounds.West
		north, east = place.Bounds.North, place.Bounds.East
	}
	if err := s.exec(ctx, tx,
		"INSERT INTO "+s.names.Address+` (object_hash, locale, provided_by,
			coordinates_lat, coordinates_long,
			bounds_south, bounds_west, bounds_north, bounds_east,
			street_number, street_name, postal_code, locality, sub_locality,
			country_code, country_name, timezone)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		hash, locale, place.ProvidedBy,
		lat, lon, south, west, north, east,
		place.StreetNumber, place.StreetName, place.PostalCode,
		place.Locality, place.SubLocality,
		place.Country.Code, place.Country.Name, place.Timezone,
	); err != nil {
		return err
	}

	for _, level := range place.AdminLevels.All() {
		if err := s.exec(ctx, tx,
			"INSERT INTO "+s.names.AdminLevel+" (object_hash, locale, level, name, code) VALUES (?, ?, ?, ?, ?)",
			hash, locale, level.Level, level.Name, level.Code,
		); err != nil {
			return err
		}
	}

	for pi, polygon := range place.Polygons {
		for vi, pt := range polygon.Points {
			if err := s.exec(ctx, tx,
				"INSERT INTO "+s.names.Polygon+" (object_hash, polygon_number, point_number, latitude, longitude) VALUES (?, ?, ?, ?, ?)",
				hash, pi, vi, pt.Latitude, pt.Longitude,
			); err != nil {
				return err
			}
		}
	}

	if err := s.exec(ctx, tx,
		"INSERT INTO "+s.names.ActualKeys+" (object_hash, locale, search_text) VALUES (?, ?, ?)",
		hash, locale, key,
	); err != nil {
		return err
	}

	return eris.Wrap(tx.Commit(), "relational store: commit")
}

// Get implements Store. Inventory rows are ranked in Go by the shared
// search engine so both backends produce identical orderings.
func (s *RelationalStore) Get(ctx context.Context, phrase string, page, maxResults int) (map[string]model.Place, error) {
	maxResults = clamp(maxResults, s.cfg.MaxResults)

	rows, err := s.query(ctx, "SELECT object_hash, search_text FROM "+s.names.ActualKeys+" ORDER BY id")
	if err != nil {
		return nil, eris.Wrap(err, "relational store: select keys")
	}
	defer rows.Close()

	hashByKey := make(map[string]string)
	var keys []string
	for rows.Next() {
		var hash, key string
		if err := rows.Scan(&hash, &key); err != nil {
			return nil, eris.Wrap(err, "relational store: scan key")
		}
		if _, seen := hashByKey[key]; !seen {
			keys = append(keys, key)
		}
		hashByKey[key] = hash
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "relational store: iterate keys")
	}

	ranked := search.Rank(keys, s.cfg.JoinedPrefix()+s.cfg.SectionGlue, phrase)
	hits := search.Paginate(ranked, page, maxResults)

	found := make(map[string]model.Place, len(hits))
	for _, hit := range hits {
		place, ok, err := s.loadPlace(ctx, hashByKey[hit.Key])
		if err != nil {
			return nil, err
		}
		if ok {
			found[hit.Key] = place
		}
	}
	return found, nil
}

// AllPlaces implements Store.
func (s *RelationalStore) AllPlaces(ctx context.Context, offset, limit int) ([]model.Place, error) {
	if offset < 0 {
		offset = 0
	}
	limit = clamp(limit, s.cfg.PageLimit)

	rows, err := s.query(ctx,
		"SELECT object_hash FROM "+s.names.ActualKeys+" ORDER BY id LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "relational store: select all keys")
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, eris.Wrap(err, "relational store: scan hash")
		}
		hashes = append(hashes, h)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "relational store: iterate hashes")
	}

	places := make([]model.Place, 0, len(hashes))
	for _, h := range hashes {
		place, ok, err := s.loadPlace(ctx, h)
		if err != nil {
			return nil, err
		}
		if ok {
			places = append(places, place)
		}
	}
	return places, nil
}

// Delete implements Store. Every place stored under the compiled key is
// removed; admin_level rows go with their place, so the level registry
// reflects what remains stored.
func (s *RelationalStore) Delete(ctx context.Context, place model.Place) error {
	key := s.CompileKey(place)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "relational store: begin tx")
	}
	defer tx.Rollback()

	hashes, err := s.hashesForKey(ctx, tx, key)
	if err != nil {
		return err
	}
	for _, h := range hashes {
		if err := s.deleteRows(ctx, tx, h); err != nil {
			return err
		}
	}
	if err := s.exec(ctx, tx, "DELETE FROM "+s.names.ActualKeys+" WHERE search_text = ?", key); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "relational store: commit")
}

// AdminLevels implements Store.
func (s *RelationalStore) AdminLevels(ctx context.Context) ([]int, error) {
	rows, err := s.query(ctx, "SELECT DISTINCT level FROM "+s.names.AdminLevel+" ORDER BY level")
	if err != nil {
		return nil, eris.Wrap(err, "relational store: distinct levels")
	}
	defer rows.Close()

	var levels []int
	for rows.Next() {
		var l int
		if err := rows.Scan(&l); err != nil {
			return nil, eris.Wrap(err, "relational store: scan level")
		}
		levels = append(levels, l)
	}
	return levels, eris.Wrap(rows.Err(), "relational store: iterate levels")
}

// PruneExpired deletes places older than the configured TTL and returns the
// number removed. The relational backend has no implicit expiry; this sweep
// is the explicit, caller-driven counterpart of the cache backend's TTL.
func (s *RelationalStore) PruneExpired(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().UTC().Add(-s.cfg.TTL)

	rows, err := s.query(ctx, "SELECT object_hash FROM "+s.names.Place+" WHERE created_at <= ?", cutoff)
	if err != nil {
		return 0, eris.Wrap(err, "relational store: select expired")
	}
	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			rows.Close()
			return 0, eris.Wrap(err, "relational store: scan expired hash")
		}
		hashes = append(hashes, h)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, eris.Wrap(err, "relational store: iterate expired")
	}
	rows.Close()

	if len(hashes) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "relational store: begin tx")
	}
	defer tx.Rollback()

	for _, h := range hashes {
		if err := s.deleteRows(ctx, tx, h); err != nil {
			return 0, err
		}
		if err := s.exec(ctx, tx, "DELETE FROM "+s.names.ActualKeys+" WHERE object_hash = ?", h); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "relational store: commit")
	}
	zap.L().Info("relational store: pruned expired places", zap.Int("count", len(hashes)))
	return len(hashes), nil
}

// loadPlace reassembles one place from the address, admin_level and polygon
// tables. A missing address row reports ok=false, matching the cache
// backend's treatment of expired records.
func (s *RelationalStore) loadPlace(ctx context.Context, hash string) (model.Place, bool, error) {
	var place model.Place
	var locale string
	var providedBy, streetNumber, streetName, postalCode sql.NullString
	var locality, subLocality, countryCode, countryName, timezone sql.NullString
	var lat, lon, south, west, north, east sql.NullFloat64

	row := s.db.QueryRowContext(ctx, s.helper.Rebind(
		"SELECT locale, provided_by, coordinates_lat, coordinates_long, "+
			"bounds_south, bounds_west, bounds_north, bounds_east, "+
			"street_number, street_name, postal_code, locality, sub_locality, "+
			"country_code, country_name, timezone FROM "+s.names.Address+" WHERE object_hash = ?"),
		hash,
	)
	err := row.Scan(&locale, &providedBy, &lat, &lon,
		&south, &west, &north, &east,
		&streetNumber, &streetName, &postalCode, &locality, &subLocality,
		&countryCode, &countryName, &timezone)
	if err == sql.ErrNoRows {
		return model.Place{}, false, nil
	}
	if err != nil {
		return model.Place{}, false, eris.Wrapf(err, "relational store: select address %s", hash)
	}

	place.Locale = locale
	place.ProvidedBy = providedBy.String
	place.StreetNumber = streetNumber.String
	place.StreetName = streetName.String
	place.PostalCode = postalCode.String
	place.Locality = locality.String
	place.SubLocality = subLocality.String
	place.Country = model.Country{Code: countryCode.String, Name: countryName.String}
	place.Timezone = timezone.String
	if lat.Valid && lon.Valid {
		place.Coordinates = &model.Coordinates{Latitude: lat.Float64, Longitude: lon.Float64}
	}
	if south.Valid && west.Valid && north.Valid && east.Valid {
		place.Bounds = &model.Bounds{South: south.Float64, West: west.Float64, North: north.Float64, East: east.Float64}
	}

	levels, err := s.loadAdminLevels(ctx, hash, locale)
	if err != nil {
		return model.Place{}, false, err
	}
	place.AdminLevels = levels

	polygons, err := s.loadPolygons(ctx, hash)
	if err != nil {
		return model.Place{}, false, err
	}
	place.Polygons = polygons

	return place, true, nil
}

func (s *RelationalStore) loadAdminLevels(ctx context.Context, hash, locale string) (model.AdminLevels, error) {
	rows, err := s.query(ctx,
		"SELECT level, name, code FROM "+s.names.AdminLevel+" WHERE object_hash = ? AND locale = ? ORDER BY level",
		hash, locale,
	)
	if err != nil {
		return model.AdminLevels{}, eris.Wrapf(err, "relational store: select admin levels %s", hash)
	}
	defer rows.Close()

	var parsed []model.AdminLevel
	for rows.Next() {
		var l model.AdminLevel
		var code sql.NullString
		if err := rows.Scan(&l.Level, &l.Name, &code); err != nil {
			return model.AdminLevels{}, eris.Wrap(err, "relational store: scan admin level")
		}
		l.Code = code.String
		parsed = append(parsed, l)
	}
	if err := rows.Err(); err != nil {
		return model.AdminLevels{}, eris.Wrap(err, "relational store: iterate admin levels")
	}
	return model.NewAdminLevels(parsed...)
}

// loadPolygons pages through the vertex rows in (polygon_number,
// point_number) order, rebuilding each ring with its original vertex order.
func (s *RelationalStore) loadPolygons(ctx context.Context, hash string) ([]model.Polygon, error) {
	var polygons []model.Polygon
	for offset := 0; ; offset += polygonBatch {
		rows, err := s.query(ctx,
			"SELECT polygon_number, latitude, longitude FROM "+s.names.Polygon+
				" WHERE object_hash = ? ORDER BY polygon_number, point_number LIMIT ? OFFSET ?",
			hash, polygonBatch, offset,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "relational store: select polygon points %s", hash)
		}

		n := 0
		for rows.Next() {
			var num int
			var pt model.Point
			if err := rows.Scan(&num, &pt.Latitude, &pt.Longitude); err != nil {
				rows.Close()
				return nil, eris.Wrap(err, "relational store: scan polygon point")
			}
			for len(polygons) <= num {
				polygons = append(polygons, model.Polygon{})
			}
			polygons[num].Points = append(polygons[num].Points, pt)
			n++
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "relational store: iterate polygon points")
		}
		rows.Close()

		if n < polygonBatch {
			return polygons, nil
		}
	}
}

func (s *RelationalStore) hashesForKey(ctx context.Context, tx *sql.Tx, key string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, s.helper.Rebind(
		"SELECT DISTINCT object_hash FROM "+s.names.ActualKeys+" WHERE search_text = ?"), key)
	if err != nil {
		return nil, eris.Wrap(err, "relational store: select hashes for key")
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, eris.Wrap(err, "relational store: scan hash for key")
		}
		hashes = append(hashes, h)
	}
	return hashes, eris.Wrap(rows.Err(), "relational store: iterate hashes for key")
}

// deleteRows removes one place's projection from the four content tables.
func (s *RelationalStore) deleteRows(ctx context.Context, tx *sql.Tx, hash string) error {
	for _, table := range []string{s.names.Place, s.names.Address, s.names.AdminLevel, s.names.Polygon} {
		if err := s.exec(ctx, tx, "DELETE FROM "+table+" WHERE object_hash = ?", hash); err != nil {
			return err
		}
	}
	return nil
}

func (s *RelationalStore) exec(ctx context.Context, tx *sql.Tx, query string, args ...any) error {
	_, err := tx.ExecContext(ctx, s.helper.Rebind(query), args...)
	return eris.Wrapf(err, "relational store: exec %s", firstWords(query))
}

func (s *RelationalStore) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.helper.Rebind(query), args...)
}

// firstWords trims a statement to its leading clause for error messages.
func firstWords(query string) string {
	const max = 40
	if len(query) > max {
		return query[:max]
	}
	return query
}
