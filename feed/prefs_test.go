package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefeed/api/models"
)

func TestPreferences_City(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	p := NewPreferences(kv, stepClock(), 0)

	assert.Nil(t, p.City(ctx))

	require.NoError(t, p.SetCity(ctx, models.CityPreference{City: " Tetouan ", Region: "Tanger-Tetouan"}))
	assert.Equal(t, &models.CityPreference{City: "Tetouan", Region: "Tanger-Tetouan"}, p.City(ctx))

	require.NoError(t, p.SetCity(ctx, models.CityPreference{City: "Rabat"}))
	assert.Equal(t, &models.CityPreference{City: "Rabat"}, p.City(ctx))
	_, hasRegion := kv.m[keyRegion]
	assert.False(t, hasRegion)

	require.NoError(t, p.SetCity(ctx, models.CityPreference{City: ""}))
	assert.Nil(t, p.City(ctx))
	assert.Empty(t, kv.m)
}

func TestPreferences_Pin(t *testing.T) {
	ctx := context.Background()
	now := baseTime
	clock := func() time.Time { return now }
	p := NewPreferences(newMemKV(), clock, time.Hour)

	_, ok := p.Pin(ctx)
	assert.False(t, ok)

	require.NoError(t, p.SetPin(ctx, "home/rugs"))
	pin, ok := p.Pin(ctx)
	require.True(t, ok)
	assert.Equal(t, "home/rugs", pin.Path)

	now = now.Add(59 * time.Minute)
	_, ok = p.Pin(ctx)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok = p.Pin(ctx)
	assert.False(t, ok, "pin expires after its TTL")
}

func TestPreferences_MalformedPinIsAbsent(t *testing.T) {
	kv := newMemKV()
	kv.m[keyPinnedPath] = "not json"
	_, ok := NewPreferences(kv, stepClock(), 0).Pin(context.Background())
	assert.False(t, ok)
}
