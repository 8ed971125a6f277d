// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/holomush/plotshop/internal/region"
)

// CodeSchemaMissing marks queries against a database that was never migrated.
const CodeSchemaMissing = "SCHEMA_MISSING"

// DB is the subset of *pgxpool.Pool the repository needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Indexer receives the cuboid of every loaded region.
// *spatial.Memory satisfies it.
type Indexer interface {
	Create(ctx context.Context, world, name string, cuboid region.Cuboid) error
}

// RegionRepository reads and writes regions and groups.
type RegionRepository struct {
	db DB
}

// NewRegionRepository creates a RegionRepository.
func NewRegionRepository(db DB) *RegionRepository {
	return &RegionRepository{db: db}
}

const regionColumns = `display_name, world, kind, min_x, min_y, min_z, max_x, max_y, max_z,
	groups, settings, friends, owner, owner_name, rented_until, times_extended, last_warning,
	resell_mode, resell_price, created_at`

// LoadRegions returns every stored region ordered by name.
func (r *RegionRepository) LoadRegions(ctx context.Context) ([]*region.Region, error) {
	rows, err := r.db.Query(ctx, `SELECT `+regionColumns+` FROM regions ORDER BY name`)
	if err != nil {
		return nil, wrapPgError(err, "load regions")
	}
	defer rows.Close()

	var regions []*region.Region
	for rows.Next() {
		reg, err := scanRegion(rows)
		if err != nil {
			return nil, err
		}
		regions = append(regions, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgError(err, "iterate regions")
	}
	return regions, nil
}

// LoadGroups returns every stored group ordered by name.
func (r *RegionRepository) LoadGroups(ctx context.Context) ([]region.GroupSnapshot, error) {
	rows, err := r.db.Query(ctx, `SELECT display_name, settings, members FROM region_groups ORDER BY name`)
	if err != nil {
		return nil, wrapPgError(err, "load groups")
	}
	defer rows.Close()

	var groups []region.GroupSnapshot
	for rows.Next() {
		var (
			g        region.GroupSnapshot
			settings []byte
		)
		if err := rows.Scan(&g.Name, &settings, &g.Members); err != nil {
			return nil, oops.With("operation", "scan group").Wrap(err)
		}
		if err := json.Unmarshal(settings, &g.Settings); err != nil {
			return nil, oops.With("operation", "decode group settings").With("group", g.Name).Wrap(err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgError(err, "iterate groups")
	}
	return groups, nil
}

// Load fills reg with the stored groups and regions and feeds each region's
// cuboid to idx when idx is non-nil. Loading does not mark anything dirty.
func (r *RegionRepository) Load(ctx context.Context, reg *region.Registry, idx Indexer) (int, error) {
	groups, err := r.LoadGroups(ctx)
	if err != nil {
		return 0, err
	}
	regions, err := r.LoadRegions(ctx)
	if err != nil {
		return 0, err
	}
	for _, g := range groups {
		reg.AddGroup(g.Name, g.Settings)
	}
	for _, loaded := range regions {
		if err := reg.Add(loaded); err != nil {
			return 0, oops.With("operation", "register loaded region").With("region", loaded.Name).Wrap(err)
		}
		if idx == nil {
			continue
		}
		if err := idx.Create(ctx, loaded.World, loaded.Name, loaded.Cuboid); err != nil {
			return 0, oops.With("operation", "index loaded region").With("region", loaded.Name).Wrap(err)
		}
	}
	return len(regions), nil
}

// Apply writes a batch of changes in one transaction.
func (r *RegionRepository) Apply(ctx context.Context, c region.Changes) (err error) {
	if c.Empty() {
		return nil
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return wrapPgError(err, "begin flush")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx) //nolint:errcheck // original error takes precedence
		}
	}()

	for _, reg := range c.Regions {
		if err = upsertRegion(ctx, tx, reg); err != nil {
			return err
		}
	}
	for _, name := range c.Deleted {
		if _, err = tx.Exec(ctx, `DELETE FROM regions WHERE name = $1`, strings.ToLower(name)); err != nil {
			return oops.With("operation", "delete region").With("region", name).Wrap(err)
		}
	}
	for _, g := range c.Groups {
		if err = upsertGroup(ctx, tx, g); err != nil {
			return err
		}
	}
	for _, name := range c.DeletedGroups {
		if _, err = tx.Exec(ctx, `DELETE FROM region_groups WHERE name = $1`, strings.ToLower(name)); err != nil {
			return oops.With("operation", "delete group").With("group", name).Wrap(err)
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return wrapPgError(err, "commit flush")
	}
	return nil
}

func upsertRegion(ctx context.Context, tx pgx.Tx, reg *region.Region) error {
	settings, err := json.Marshal(reg.Settings)
	if err != nil {
		return oops.With("operation", "encode region settings").With("region", reg.Name).Wrap(err)
	}
	friends := make([]string, len(reg.Friends))
	for i, f := range reg.Friends {
		friends[i] = f.String()
	}
	groups := reg.Groups
	if groups == nil {
		groups = []string{}
	}

	var (
		rentedUntil, lastWarning *time.Time
		timesExtended            int
		resellMode               bool
		resellPrice              float64
	)
	if reg.Rent != nil {
		rentedUntil = timePtr(reg.Rent.RentedUntil)
		lastWarning = timePtr(reg.Rent.LastWarning)
		timesExtended = reg.Rent.TimesExtended
	}
	if reg.Buy != nil {
		resellMode = reg.Buy.ResellMode
		resellPrice = reg.Buy.ResellPrice
	}

	c := reg.Cuboid
	_, err = tx.Exec(ctx, `
		INSERT INTO regions (name, `+regionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT (name) DO UPDATE SET
			display_name = EXCLUDED.display_name, world = EXCLUDED.world, kind = EXCLUDED.kind,
			min_x = EXCLUDED.min_x, min_y = EXCLUDED.min_y, min_z = EXCLUDED.min_z,
			max_x = EXCLUDED.max_x, max_y = EXCLUDED.max_y, max_z = EXCLUDED.max_z,
			groups = EXCLUDED.groups, settings = EXCLUDED.settings, friends = EXCLUDED.friends,
			owner = EXCLUDED.owner, owner_name = EXCLUDED.owner_name,
			rented_until = EXCLUDED.rented_until, times_extended = EXCLUDED.times_extended,
			last_warning = EXCLUDED.last_warning, resell_mode = EXCLUDED.resell_mode,
			resell_price = EXCLUDED.resell_price, updated_at = now()
	`, strings.ToLower(reg.Name), reg.Name, reg.World, string(reg.Kind),
		c.Min.X, c.Min.Y, c.Min.Z, c.Max.X, c.Max.Y, c.Max.Z,
		groups, settings, friends, ownerPtr(reg.Owner()), reg.OwnerName(),
		rentedUntil, timesExtended, lastWarning, resellMode, resellPrice, reg.CreatedAt)
	if err != nil {
		return wrapPgError(oops.With("region", reg.Name).Wrap(err), "upsert region")
	}
	return nil
}

func upsertGroup(ctx context.Context, tx pgx.Tx, g region.GroupSnapshot) error {
	settings, err := json.Marshal(g.Settings)
	if err != nil {
		return oops.With("operation", "encode group settings").With("group", g.Name).Wrap(err)
	}
	members := g.Members
	if members == nil {
		members = []string{}
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO region_groups (name, display_name, settings, members)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET
			display_name = EXCLUDED.display_name, settings = EXCLUDED.settings,
			members = EXCLUDED.members, updated_at = now()
	`, strings.ToLower(g.Name), g.Name, settings, members)
	if err != nil {
		return wrapPgError(oops.With("group", g.Name).Wrap(err), "upsert group")
	}
	return nil
}

// scanRegion rebuilds a region from one row of regionColumns.
func scanRegion(row pgx.Row) (*region.Region, error) {
	var (
		name, world, kind   string
		c                   region.Cuboid
		groups, friends     []string
		settings            []byte
		owner               *string
		ownerName           string
		rentedUntil, warned *time.Time
		timesExtended       int
		resellMode          bool
		resellPrice         float64
		createdAt           time.Time
	)
	err := row.Scan(&name, &world, &kind,
		&c.Min.X, &c.Min.Y, &c.Min.Z, &c.Max.X, &c.Max.Y, &c.Max.Z,
		&groups, &settings, &friends, &owner, &ownerName,
		&rentedUntil, &timesExtended, &warned, &resellMode, &resellPrice, &createdAt)
	if err != nil {
		return nil, oops.With("operation", "scan region").Wrap(err)
	}

	k, err := region.ParseKind(kind)
	if err != nil {
		return nil, oops.With("operation", "decode region kind").With("region", name).Wrap(err)
	}
	reg := region.New(name, world, k, c, createdAt)
	reg.Groups = groups
	if err := json.Unmarshal(settings, &reg.Settings); err != nil {
		return nil, oops.With("operation", "decode region settings").With("region", name).Wrap(err)
	}
	for _, f := range friends {
		id, err := uuid.Parse(f)
		if err != nil {
			return nil, oops.With("operation", "parse friend id").With("region", name).Wrap(err)
		}
		reg.Friends = append(reg.Friends, id)
	}
	if owner != nil {
		id, err := uuid.Parse(*owner)
		if err != nil {
			return nil, oops.With("operation", "parse owner id").With("region", name).Wrap(err)
		}
		reg.SetOwner(id, ownerName)
	}
	if reg.Rent != nil {
		reg.Rent.RentedUntil = deref(rentedUntil)
		reg.Rent.LastWarning = deref(warned)
		reg.Rent.TimesExtended = timesExtended
	}
	if reg.Buy != nil && resellMode {
		reg.Buy.ResellMode = true
		reg.Buy.ResellPrice = resellPrice
	}
	return reg, nil
}

func ownerPtr(id uuid.UUID) *string {
	if id == uuid.Nil {
		return nil
	}
	s := id.String()
	return &s
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// wrapPgError tags undefined-table errors so operators are told to migrate.
func wrapPgError(err error, operation string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable {
		return oops.Code(CodeSchemaMissing).
			With("operation", operation).
			With("hint", "run 'plotshop migrate up'").
			Wrap(err)
	}
	return oops.With("operation", operation).Wrap(err)
}
