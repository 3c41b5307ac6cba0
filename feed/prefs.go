package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"storefeed/api/models"
)

const (
	keyCity       = "feed.city"
	keyRegion     = "feed.region"
	keyPinnedPath = "feed.because_pin"
	DefaultPinTTL = 7 * 24 * time.Hour
)

// Preferences reads and writes the visitor's persisted city and anchor pin.
type Preferences struct {
	kv     KV
	now    func() time.Time
	pinTTL time.Duration
}

func NewPreferences(kv KV, now func() time.Time, pinTTL time.Duration) *Preferences {
	if now == nil {
		now = time.Now
	}
	if pinTTL <= 0 {
		pinTTL = DefaultPinTTL
	}
	return &Preferences{kv: kv, now: now, pinTTL: pinTTL}
}

// City returns the persisted city preference, or nil when none is set.
func (p *Preferences) City(ctx context.Context) *models.CityPreference {
	city, ok, err := p.kv.Get(ctx, keyCity)
	if err != nil {
		log.Warn().Err(err).Msg("reading city preference")
		return nil
	}
	city = strings.TrimSpace(city)
	if !ok || city == "" {
		return nil
	}
	pref := &models.CityPreference{City: city}
	if region, ok, err := p.kv.Get(ctx, keyRegion); err == nil && ok {
		pref.Region = strings.TrimSpace(region)
	}
	return pref
}

// SetCity persists pref. An empty city removes the preference.
func (p *Preferences) SetCity(ctx context.Context, pref models.CityPreference) error {
	city := strings.TrimSpace(pref.City)
	if city == "" {
		if err := p.kv.Remove(ctx, keyCity); err != nil {
			return fmt.Errorf("failed to remove city preference: %w", err)
		}
		if err := p.kv.Remove(ctx, keyRegion); err != nil {
			return fmt.Errorf("failed to remove region preference: %w", err)
		}
		return nil
	}
	if err := p.kv.Set(ctx, keyCity, city); err != nil {
		return fmt.Errorf("failed to persist city preference: %w", err)
	}
	if region := strings.TrimSpace(pref.Region); region != "" {
		if err := p.kv.Set(ctx, keyRegion, region); err != nil {
			return fmt.Errorf("failed to persist region preference: %w", err)
		}
	} else if err := p.kv.Remove(ctx, keyRegion); err != nil {
		return fmt.Errorf("failed to remove region preference: %w", err)
	}
	return nil
}

// Pin returns the live anchor pin. Expired or malformed pins are reported as absent.
func (p *Preferences) Pin(ctx context.Context) (models.PinnedCategoryPath, bool) {
	raw, ok, err := p.kv.Get(ctx, keyPinnedPath)
	if err != nil || !ok {
		return models.PinnedCategoryPath{}, false
	}
	var pin models.PinnedCategoryPath
	if err := json.Unmarshal([]byte(raw), &pin); err != nil || pin.Path == "" {
		return models.PinnedCategoryPath{}, false
	}
	pinnedAt := time.UnixMilli(pin.PinnedAt)
	if !p.now().Before(pinnedAt.Add(p.pinTTL)) {
		return models.PinnedCategoryPath{}, false
	}
	return pin, true
}

// SetPin pins path as of now.
func (p *Preferences) SetPin(ctx context.Context, path string) error {
	raw, err := json.Marshal(models.PinnedCategoryPath{Path: path, PinnedAt: p.now().UnixMilli()})
	if err != nil {
		return fmt.Errorf("failed to encode anchor pin: %w", err)
	}
	return p.kv.Set(ctx, keyPinnedPath, string(raw))
}
