package geocode

import (
	"fmt"

	"github.com/flushfinder/flushfinder/internal/config"
)

// New returns the Geocoder selected by cfg.Provider.
func New(cfg config.GeocodeConfig, opts ...Option) (Geocoder, error) {
	if cfg.Timeout > 0 {
		opts = append([]Option{WithTimeout(cfg.Timeout)}, opts...)
	}

	switch cfg.Provider {
	case config.ProviderNominatim:
		return NewNominatim(cfg.NominatimURL, cfg.UserAgent, cfg.RequestsPerSecond, opts...), nil
	case config.ProviderGoogle:
		if cfg.GoogleAPIKey == "" {
			return nil, fmt.Errorf("google geocoder requires an API key")
		}
		return NewGoogle(cfg.GoogleURL, cfg.GoogleAPIKey, opts...), nil
	case config.ProviderNone, "":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown geocoder %q", cfg.Provider)
	}
}
