package cache

import "time"

// Tier classifies how quickly an endpoint's data goes stale.
type Tier int

const (
	// Volatile covers feeds that change within the hour, such as
	// collection schedules and meter readings.
	Volatile Tier = iota
	// Short covers open complaints and air quality readings.
	Short
	// Medium covers semi-stable regulatory data: permits, violations, emissions.
	Medium
	// Long covers reference data: footprints, landmarks, assessments.
	Long
)

func (t Tier) String() string {
	switch t {
	case Volatile:
		return "volatile"
	case Short:
		return "short"
	case Medium:
		return "medium"
	case Long:
		return "long"
	default:
		return "unknown"
	}
}

// TTLPolicy maps each tier to an expiry duration.
type TTLPolicy struct {
	Volatile time.Duration
	Short    time.Duration
	Medium   time.Duration
	Long     time.Duration
}

// DefaultTTLPolicy returns the stock durations for each tier.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		Volatile: 15 * time.Minute,
		Short:    45 * time.Minute,
		Medium:   2 * time.Hour,
		Long:     24 * time.Hour,
	}
}

// TTL returns the expiry for tier t. Unset durations fall back to the defaults.
func (p TTLPolicy) TTL(t Tier) time.Duration {
	def := DefaultTTLPolicy()
	pick := func(v, d time.Duration) time.Duration {
		if v > 0 {
			return v
		}
		return d
	}
	switch t {
	case Volatile:
		return pick(p.Volatile, def.Volatile)
	case Short:
		return pick(p.Short, def.Short)
	case Long:
		return pick(p.Long, def.Long)
	default:
		return pick(p.Medium, def.Medium)
	}
}
