package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/minishop-chapa/internal/domain/catalog"
)

func seedProduct(t *testing.T, repo *ProductRepository, id string, stock int) {
	t.Helper()
	p, err := catalog.NewProduct(id, "", "Product "+id, "", 1000, stock, "")
	require.NoError(t, err)
	require.NoError(t, repo.Insert(context.Background(), p))
}

func TestReserveIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	products, _ := NewCatalogRepositories()
	seedProduct(t, products, "a", 5)
	seedProduct(t, products, "b", 1)

	err := products.Reserve(ctx, []catalog.StockLine{{ProductID: "a", Quantity: 2}, {ProductID: "b", Quantity: 2}})
	require.ErrorIs(t, err, catalog.ErrInsufficientStock)
	var rerr *catalog.ReservationError
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, "b", rerr.ProductID)

	a, err := products.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, 5, a.Stock)

	require.NoError(t, products.Reserve(ctx, []catalog.StockLine{{ProductID: "a", Quantity: 2}, {ProductID: "b", Quantity: 1}, {ProductID: "a", Quantity: 1}}))
	a, _ = products.Get(ctx, "a")
	require.Equal(t, 2, a.Stock)

	require.NoError(t, products.Release(ctx, []catalog.StockLine{{ProductID: "a", Quantity: 3}, {ProductID: "gone", Quantity: 1}}))
	a, _ = products.Get(ctx, "a")
	require.Equal(t, 5, a.Stock)
}

func TestReserveNeverOversells(t *testing.T) {
	ctx := context.Background()
	products, _ := NewCatalogRepositories()
	seedProduct(t, products, "a", 10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if products.Reserve(ctx, []catalog.StockLine{{ProductID: "a", Quantity: 1}}) == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 10, succeeded)
	a, _ := products.Get(ctx, "a")
	require.Equal(t, 0, a.Stock)
}

func TestCategoryDeleteInUse(t *testing.T) {
	ctx := context.Background()
	products, categories := NewCatalogRepositories()

	c, err := catalog.NewCategory("c1", "Coffee Beans", "", "")
	require.NoError(t, err)
	require.NoError(t, categories.Insert(ctx, c))

	dup, _ := catalog.NewCategory("c2", "Coffee beans!", "", "")
	require.ErrorIs(t, categories.Insert(ctx, dup), catalog.ErrSlugTaken)

	p, _ := catalog.NewProduct("p1", "c1", "Yirgacheffe", "", 1000, 1, "")
	require.NoError(t, products.Insert(ctx, p))
	require.ErrorIs(t, categories.Delete(ctx, "c1"), catalog.ErrCategoryInUse)

	require.NoError(t, products.Delete(ctx, "p1"))
	require.NoError(t, categories.Delete(ctx, "c1"))
}

func TestProductListFilters(t *testing.T) {
	ctx := context.Background()
	products, _ := NewCatalogRepositories()
	for _, name := range []string{"Arabica", "Robusta", "Green Tea"} {
		p, _ := catalog.NewProduct(name, "", name, "roasted", 1000, 3, "")
		require.NoError(t, products.Insert(ctx, p))
	}
	hidden, _ := catalog.NewProduct("h", "", "Hidden Arabica", "", 1000, 0, "")
	hidden.Active = false
	require.NoError(t, products.Insert(ctx, hidden))

	page, err := products.List(ctx, catalog.ProductFilter{Query: "ARAB", ActiveOnly: true})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	require.Equal(t, "Arabica", page.Items[0].Name)

	page, err = products.List(ctx, catalog.ProductFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 4, page.Total)
	require.Len(t, page.Items, 2)

	low, err := products.LowStock(ctx, 3)
	require.NoError(t, err)
	require.Len(t, low, 3)
}

func TestProductUpdateLeavesStockAlone(t *testing.T) {
	ctx := context.Background()
	products, _ := NewCatalogRepositories()
	seedProduct(t, products, "a", 5)

	p, err := products.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, products.Reserve(ctx, []catalog.StockLine{{ProductID: "a", Quantity: 3}}))

	p.Name = "Renamed"
	require.NoError(t, products.Update(ctx, p))
	require.Equal(t, 2, p.Stock)

	stored, err := products.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, 2, stored.Stock)
	require.Equal(t, "Renamed", stored.Name)
}
