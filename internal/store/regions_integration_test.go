// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package store_test

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/holomush/plotshop/internal/economy"
	ledgerpg "github.com/holomush/plotshop/internal/economy/postgres"
	"github.com/holomush/plotshop/internal/region"
	"github.com/holomush/plotshop/internal/spatial"
	"github.com/holomush/plotshop/internal/store"
)

// startPostgres runs a throwaway PostgreSQL container.
func startPostgres(ctx context.Context) (string, func(), error) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("plotshop_test"),
		postgres.WithUsername("plotshop"),
		postgres.WithPassword("plotshop"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return "", nil, err
	}
	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return "", nil, err
	}
	return connStr, func() { _ = container.Terminate(ctx) }, nil
}

// setupDatabase starts a container, migrates it and opens a pool.
func setupDatabase(ctx context.Context) (*pgxpool.Pool, func(), error) {
	connStr, terminate, err := startPostgres(ctx)
	if err != nil {
		return nil, nil, err
	}
	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		terminate()
		return nil, nil, err
	}
	defer migrator.Close()
	if err := migrator.Up(); err != nil {
		terminate()
		return nil, nil, err
	}
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		terminate()
		return nil, nil, err
	}
	return pool, func() {
		pool.Close()
		terminate()
	}, nil
}

var _ = Describe("RegionRepository", func() {
	var (
		ctx     context.Context
		pool    *pgxpool.Pool
		cleanup func()
		repo    *store.RegionRepository
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		pool, cleanup, err = setupDatabase(ctx)
		Expect(err).NotTo(HaveOccurred())
		repo = store.NewRegionRepository(pool)
	})

	AfterEach(func() {
		cleanup()
	})

	It("round-trips regions and groups through the flusher", func() {
		reg := region.NewRegistry(region.Settings{})
		shop := region.New("Shop01", "overworld", region.KindRent,
			region.NewCuboid(region.Point{Y: 64}, region.Point{X: 9, Y: 70, Z: 9}),
			time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
		shop.Settings = region.NewSettings(map[string]any{region.KeyRentDuration: "48h"})
		renter := uuid.New()
		shop.SetOwner(renter, "alice")
		shop.Rent.RentedUntil = time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC)
		shop.Rent.TimesExtended = 1
		Expect(reg.Add(shop)).To(Succeed())
		Expect(reg.AddToGroup("Shop01", "Market")).To(Succeed())
		reg.MarkDirty("Shop01")

		f := store.NewFlusher(reg, repo, store.DefaultFlusherConfig())
		f.Start(ctx)
		Expect(f.Close(ctx)).To(Succeed())

		loaded := region.NewRegistry(region.Settings{})
		idx := spatial.NewMemory()
		n, err := repo.Load(ctx, loaded, idx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))

		got, ok := loaded.Get("shop01")
		Expect(ok).To(BeTrue())
		Expect(got.Name).To(Equal("Shop01"))
		Expect(got.Owner()).To(Equal(renter))
		Expect(got.Rent.RentedUntil.Equal(shop.Rent.RentedUntil)).To(BeTrue())
		Expect(got.Rent.TimesExtended).To(Equal(1))
		Expect(loaded.Layers(got).Duration(region.KeyRentDuration)).To(Equal(48 * time.Hour))
		Expect(loaded.GroupNames()).To(ConsistOf("Market"))
		_, indexed := idx.Lookup("overworld", "Shop01")
		Expect(indexed).To(BeTrue())
	})

	It("deletes removed regions and groups", func() {
		reg := region.NewRegistry(region.Settings{})
		Expect(reg.Add(region.New("plot01", "overworld", region.KindBuy,
			region.NewCuboid(region.Point{}, region.Point{X: 1, Y: 1, Z: 1}), time.Now()))).To(Succeed())
		Expect(reg.AddToGroup("plot01", "old")).To(Succeed())
		Expect(repo.Apply(ctx, reg.DrainDirty())).To(Succeed())

		reg.Remove("plot01")
		reg.DeleteGroup("old")
		Expect(repo.Apply(ctx, reg.DrainDirty())).To(Succeed())

		regions, err := repo.LoadRegions(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(regions).To(BeEmpty())
		groups, err := repo.LoadGroups(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(groups).To(BeEmpty())
	})

	It("keeps economy balances in the journaled ledger", func() {
		ledger := ledgerpg.NewLedger(pool, false)
		player := uuid.New()

		Expect(ledger.Deposit(ctx, player, "overworld", 100)).To(Succeed())
		Expect(ledger.Withdraw(ctx, player, "nether", 40)).To(Succeed())
		err := ledger.Withdraw(ctx, player, "overworld", 100)
		Expect(errors.Is(err, economy.ErrInsufficientFunds)).To(BeTrue())

		balance, err := ledger.Balance(ctx, player, "overworld")
		Expect(err).NotTo(HaveOccurred())
		Expect(balance).To(BeNumerically("~", 60, 0.001))

		var entries int
		Expect(pool.QueryRow(ctx, `SELECT count(*) FROM economy_journal WHERE player = $1`,
			player.String()).Scan(&entries)).To(Succeed())
		Expect(entries).To(Equal(2))
	})
})
