package composer

import (
	"context"
	"errors"
	"testing"

	"github.com/fjod/go_giftpack/internal/cart"
	"github.com/fjod/go_giftpack/internal/domain"
	"github.com/fjod/go_giftpack/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mockCatalog struct {
	products []domain.Product
	err      error
}

func (m mockCatalog) AllProducts(context.Context) ([]domain.Product, error) {
	return m.products, m.err
}

var (
	cravate      = domain.Product{ID: 1, Name: "Cravate soie", ItemGroup: "cravates", Price: 45}
	cravateRouge = domain.Product{ID: 2, Name: "Cravate rouge", ItemGroup: "cravates", Price: 49, Discount: "10"}
	portefeuille = domain.Product{ID: 3, Name: "Portefeuille cuir", ItemGroup: "portefeuilles", Price: 89}
	ceinture     = domain.Product{ID: 4, Name: "Ceinture", ItemGroup: "ceintures", Price: 69}
	chemise      = domain.Product{ID: 5, Name: "Chemise Oxford", ItemGroup: "chemises", Category: "homme", Price: 119}
	chemisier    = domain.Product{ID: 6, Name: "Chemisier lin", ItemGroup: "chemises", Category: "femme", Price: 99}
)

func catalogFixture() mockCatalog {
	return mockCatalog{products: []domain.Product{cravate, cravateRouge, portefeuille, ceinture, chemise, chemisier}}
}

func TestNew_UnknownTemplate(t *testing.T) {
	_, err := New("Pack Surprise", catalogFixture())
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestOffer(t *testing.T) {
	c, err := New(domain.PackPremium, catalogFixture())
	require.NoError(t, err)
	ctx := context.Background()

	filters, products, err := c.Offer(ctx, 0, "")
	require.NoError(t, err)
	require.Len(t, filters, 1)
	assert.Equal(t, "cravates", filters[0].Value)
	assert.Equal(t, []domain.Product{cravate, cravateRouge}, products)

	_, products, err = c.Offer(ctx, 0, "ROUGE")
	require.NoError(t, err)
	assert.Equal(t, []domain.Product{cravateRouge}, products)

	_, _, err = c.Offer(ctx, 7, "")
	assert.ErrorIs(t, err, ErrSlotOutOfRange)
}

func TestOffer_PrestigeOnlyMenShirts(t *testing.T) {
	c, err := New(domain.PackPrestige, catalogFixture())
	require.NoError(t, err)

	_, products, err := c.Offer(context.Background(), 0, "")
	require.NoError(t, err)
	assert.Equal(t, []domain.Product{chemise}, products)
}

func TestOffer_CatalogError(t *testing.T) {
	c, err := New(domain.PackDuo, mockCatalog{err: errors.New("db down")})
	require.NoError(t, err)

	_, _, err = c.Offer(context.Background(), 0, "")
	assert.Error(t, err)
}

func TestPlace(t *testing.T) {
	c, err := New(domain.PackPremium, catalogFixture())
	require.NoError(t, err)

	assert.ErrorIs(t, c.Place(0, portefeuille), ErrCategoryNotAllowed)
	require.NoError(t, c.Place(0, cravate))
	assert.ErrorIs(t, c.Place(0, cravateRouge), ErrSlotOccupied)
	assert.ErrorIs(t, c.Place(3, ceinture), ErrSlotOutOfRange)
	require.NoError(t, c.Place(1, portefeuille))
	assert.False(t, c.Complete())
	require.NoError(t, c.Place(2, ceinture))
	assert.True(t, c.Complete())

	_, products, err := c.Offer(context.Background(), 2, "")
	require.NoError(t, err)
	assert.Empty(t, products, "complete pack offers nothing")
}

func TestClearSlot(t *testing.T) {
	c, err := New(domain.PackDuo, catalogFixture())
	require.NoError(t, err)

	require.NoError(t, c.Place(0, portefeuille))
	require.NoError(t, c.Clear(0))
	assert.Empty(t, c.Placed())
	assert.ErrorIs(t, c.Clear(-1), ErrSlotOutOfRange)

	slots := c.Slots()
	require.Len(t, slots, 2)
	assert.Nil(t, slots[0].Product)
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	store := cart.NewStore(ctx, "p1", cart.Deps{KV: storage.NewMemoryKV(), Logger: zaptest.NewLogger(t)})

	c, err := New(domain.PackPremium, catalogFixture())
	require.NoError(t, err)

	assert.ErrorIs(t, c.Submit(ctx, store, SubmitOptions{}), ErrPackIncomplete)

	require.NoError(t, c.Place(0, cravateRouge))
	require.NoError(t, c.Place(1, portefeuille))
	require.NoError(t, c.Place(2, ceinture))
	require.NoError(t, c.Submit(ctx, store, SubmitOptions{}))

	lines := store.Lines()
	require.Len(t, lines, 4)
	for _, l := range lines[:3] {
		assert.True(t, l.FromPack)
		assert.Equal(t, domain.PackPremium, l.Pack)
	}
	assert.InDelta(t, 44.1, lines[0].Price, 1e-9)

	fee := lines[3]
	assert.Equal(t, domain.TypePack, fee.TypeProduct)
	assert.Equal(t, domain.PackPremium, fee.Pack)
	assert.Equal(t, "Pack Premium - Frais de packaging", fee.Name)
	assert.Equal(t, 30.0, fee.Price)

	assert.Empty(t, c.Placed(), "composer resets after submit")

	// removing any single part takes the whole pack with it
	store.Remove(ctx, portefeuille.ID)
	assert.Empty(t, store.Lines())
}

func TestSubmit_TwiceIsGuarded(t *testing.T) {
	ctx := context.Background()
	store := cart.NewStore(ctx, "p1", cart.Deps{KV: storage.NewMemoryKV(), Logger: zaptest.NewLogger(t)})

	for i := 0; i < 2; i++ {
		c, err := New(domain.PackDuo, catalogFixture())
		require.NoError(t, err)
		require.NoError(t, c.Place(0, portefeuille))
		require.NoError(t, c.Place(1, ceinture))
		require.NoError(t, c.Submit(ctx, store, SubmitOptions{WithBox: true}))
	}

	assert.Len(t, store.Lines(), 3)
}
