//go:build integration

package store

import (
	"context"
	"fmt"
	"os/exec"
	"testing"
	"time"

	"grocery-companion/internal/core/analytics"
	"grocery-companion/internal/infrastructure/config"
	"grocery-companion/internal/infrastructure/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// 執行方式: go test -tags integration ./internal/store/...

func dockerAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return exec.CommandContext(ctx, "docker", "info").Run() == nil
}

// startPostgres 啟動 Postgres 容器並回傳已遷移的 Store
func startPostgres(t *testing.T) *Store {
	t.Helper()
	if !dockerAvailable() {
		t.Skip("Skipping test: Docker not available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "grocery",
				"POSTGRES_PASSWORD": "grocery",
				"POSTGRES_DB":       "grocery",
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
				wait.ForListeningPort("5432/tcp"),
			).WithDeadline(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	db, err := database.Open(config.DatabaseConfig{
		DSN:          fmt.Sprintf("host=%s port=%s user=grocery password=grocery dbname=grocery sslmode=disable", host, port.Port()),
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		AutoMigrate:  true,
	}, Models()...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	return New(db)
}

func at(month time.Month, day, hour int) *time.Time {
	t := time.Date(2024, month, day, hour, 15, 30, 0, time.UTC)
	return &t
}

func TestStore_PostgresRoundTrip(t *testing.T) {
	s := startPostgres(t)
	ctx := context.Background()

	orders := []struct {
		id        string
		delivered *time.Time
		items     []analytics.OrderItem
	}{
		{"o1", at(time.March, 30, 10), []analytics.OrderItem{{ProductID: "s1", ProductName: "Melk", Quantity: 2, UnitPrice: intPtr(119)}}},
		{"o2", at(time.April, 6, 9), []analytics.OrderItem{{ProductID: "s1", ProductName: "Melk", Quantity: 1, UnitPrice: intPtr(119)}, {ProductName: "Losse bananen", Quantity: 3}}},
		{"o3", at(time.April, 13, 23), []analytics.OrderItem{{ProductID: "s1", ProductName: "Melk", Quantity: 1, UnitPrice: intPtr(119)}}},
	}
	for _, o := range orders {
		for i := range o.items {
			o.items[i].DeliveredAt = o.delivered
		}
		require.NoError(t, s.SaveOrder(ctx, "u1", analytics.OrderMeta{OrderID: o.id, DeliveredAt: o.delivered}, map[string]interface{}{"id": o.id}))
		_, err := s.SaveOrderItems(ctx, "u1", o.id, o.items)
		require.NoError(t, err)
	}

	// 重複寫入被忽略
	n, err := s.SaveOrderItems(ctx, "u1", "o1", orders[0].items)
	require.NoError(t, err)
	assert.Zero(t, n)

	purchases, err := s.ProductPurchases(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	milk := purchases[0]
	assert.Equal(t, "s1", milk.ProductID)
	assert.Equal(t, 3, milk.PurchaseCount)
	assert.Equal(t, 4, milk.TotalQuantity)
	require.Len(t, milk.PurchaseDates, 3)

	// 彙總出的時間字串必須能被解析回原始時間
	for i, raw := range milk.PurchaseDates {
		parsed, ok := analytics.ParseTimestamp(raw)
		require.True(t, ok, raw)
		assert.True(t, orders[i].delivered.Equal(parsed), raw)
	}

	rec, ok := analytics.BuildRecord("u1", milk, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	require.NoError(t, s.UpsertFrequency(ctx, rec))
	require.NoError(t, s.UpsertFrequency(ctx, rec))

	freqs, err := s.Frequencies(ctx, "u1", 3)
	require.NoError(t, err)
	require.Len(t, freqs, 1)
	assert.Equal(t, rec.AvgDaysBetween, freqs[0].AvgDaysBetween)

	spending, err := s.MonthlySpending(ctx, "u1", 6)
	require.NoError(t, err)
	require.Len(t, spending, 2)
	assert.Equal(t, analytics.MonthlySpending{Month: "2024-04", OrderCount: 2, TotalSpent: 238, TotalItems: 5}, spending[0])
	assert.Equal(t, analytics.MonthlySpending{Month: "2024-03", OrderCount: 1, TotalSpent: 238, TotalItems: 2}, spending[1])

	top, err := s.TopProducts(ctx, "u1", 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "s1", top[0].ProductID)
	assert.Equal(t, 3, top[0].OrderCount)
}
