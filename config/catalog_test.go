package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/ticket-storefront/models"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog(395)
	assert.Equal(t, 7, c.Len())

	brons, ok := c.Lookup("brons")
	require.True(t, ok)
	assert.Equal(t, "Rang 2", brons.Name)
	assert.Equal(t, models.Money(7900), brons.Price)
	assert.Equal(t, models.Money(395), brons.ServiceCharge)

	_, ok = c.Lookup("vip")
	assert.True(t, ok)
}

const sampleCatalog = `
serviceCharge: 2.50
tickets:
  floor:
    name: Floor
    price: 65.00
    color: "#ff0000"
  balcony:
    name: Balcony
    price: 45.005
    serviceCharge: 0
`

func TestParseCatalog(t *testing.T) {
	c, err := ParseCatalog([]byte(sampleCatalog), 395)
	require.NoError(t, err)
	assert.Equal(t, []string{"balcony", "floor"}, c.IDs())

	floor, _ := c.Lookup("floor")
	assert.Equal(t, models.Money(6500), floor.Price)
	assert.Equal(t, models.Money(250), floor.ServiceCharge)
	assert.Equal(t, "#ff0000", floor.Color)

	balcony, _ := c.Lookup("balcony")
	assert.Equal(t, models.Money(4501), balcony.Price, "half-up rounding")
	assert.Equal(t, models.Money(0), balcony.ServiceCharge)
}

func TestParseCatalog_Invalid(t *testing.T) {
	cases := map[string]string{
		"empty":         `tickets: {}`,
		"missing name":  "tickets:\n  a:\n    price: 1\n",
		"missing price": "tickets:\n  a:\n    name: A\n",
		"negative":      "tickets:\n  a:\n    name: A\n    price: -1\n",
		"bad id":        "tickets:\n  \"Bad Id\":\n    name: A\n    price: 1\n",
		"not yaml":      "tickets: [",
	}
	for name, doc := range cases {
		_, err := ParseCatalog([]byte(doc), 0)
		assert.Error(t, err, name)
	}
}

func TestLoadCatalog(t *testing.T) {
	c, err := LoadCatalog("", 395)
	require.NoError(t, err)
	assert.Equal(t, 7, c.Len())

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o600))
	c, err = LoadCatalog(path, 395)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"), 395)
	assert.Error(t, err)
}
