package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	entry, ok := Lookup("binance")
	require.True(t, ok)
	assert.Equal(t, "binance", entry.Driver)
	assert.Equal(t, "binanceusdm", entry.Perpetual)
	assert.Equal(t, 1500, entry.MaxRecords)
	assert.Equal(t, 200*time.Millisecond, entry.Spacing())

	entry, ok = Lookup("  GATE ")
	require.True(t, ok, "lookup normalizes case and whitespace")
	assert.Equal(t, "gate", entry.Driver)
	assert.Equal(t, "usdt", entry.Settle)

	_, ok = Lookup("nyse")
	assert.False(t, ok)
}

func TestVenueName(t *testing.T) {
	assert.Equal(t, "binance", VenueName("binance", false))
	assert.Equal(t, "binanceusdm", VenueName("binance", true))
	assert.Equal(t, "gateio", VenueName("gate", true))
	assert.Equal(t, "kucoinfutures", VenueName("kucoin", true))
	assert.Equal(t, "huobipro", VenueName("huobi", true))
	assert.Equal(t, "bitfinex2", VenueName("bitfinex", true))
	assert.Equal(t, "mexc3", VenueName("mexc", true))
	// Unknown venues pass through unchanged.
	assert.Equal(t, "okx", VenueName("okx", true))
}

func TestNewVendors(t *testing.T) {
	t.Run("binance driver", func(t *testing.T) {
		vendor, err := New("binanceusdm", Options{})
		require.NoError(t, err)
		assert.Equal(t, "binanceusdm", vendor.Name())
		assert.Equal(t, 200*time.Millisecond, vendor.RateLimit())
		assert.Equal(t, 1500, vendor.MaxRecords())
	})

	t.Run("gate driver", func(t *testing.T) {
		vendor, err := New("gateio", Options{})
		require.NoError(t, err)
		assert.Equal(t, "gateio", vendor.Name())
		assert.Equal(t, 100*time.Millisecond, vendor.RateLimit())
		assert.Equal(t, 2000, vendor.MaxRecords())
	})

	t.Run("options override catalog defaults", func(t *testing.T) {
		vendor, err := New("binanceusdm", Options{
			Spacing:    time.Second,
			MaxRecords: 400,
		})
		require.NoError(t, err)
		assert.Equal(t, time.Second, vendor.RateLimit())
		assert.Equal(t, 400, vendor.MaxRecords())
	})

	t.Run("alias-only exchange", func(t *testing.T) {
		_, err := New("kucoin", Options{})
		assert.Error(t, err)
	})

	t.Run("unknown exchange", func(t *testing.T) {
		_, err := New("nyse", Options{})
		assert.Error(t, err)
	})
}
