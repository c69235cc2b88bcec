package property

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"suffix with period", "142 W 17th St.", "142 W 17th Street"},
		{"suffix without period", "142 W 17th St", "142 W 17th Street"},
		{"collapse spaces", "  350   5th   Ave  ", "350 5th Avenue"},
		{"saint kept mid-string", "10 St. Marks Pl", "10 St. Marks Place"},
		{"boulevard", "1 Grand Concourse Blvd", "1 Grand Concourse Boulevard"},
		{"diacritics", "12 Cañada Rd", "12 Canada Road"},
		{"already full", "142 West 17th Street", "142 West 17th Street"},
		{"empty", "   ", ""},
		{"segments expanded", "142 W 17th St, New York", "142 W 17th Street, New York"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeAddress(tt.in))
		})
	}
}

func TestNormalizeAddress_NonBuildingExtractsStreet(t *testing.T) {
	got := NormalizeAddress("Pier 17, 89 South St, Manhattan")
	assert.Equal(t, "89 South Street", got)
}

func TestNormalizeAddress_NonBuildingFallback(t *testing.T) {
	got := NormalizeAddress("Central  Park,  Manhattan")
	assert.Equal(t, "Central Park, Manhattan", got)
}

func TestSplitAddress(t *testing.T) {
	house, street := SplitAddress("142 W 17th Street")
	assert.Equal(t, "142", house)
	assert.Equal(t, "W 17th Street", street)

	house, street = SplitAddress("37-10 30th Street")
	assert.Equal(t, "37-10", house)
	assert.Equal(t, "30th Street", street)

	house, street = SplitAddress("Broadway")
	assert.Empty(t, house)
	assert.Equal(t, "Broadway", street)
}

func TestStreetCore(t *testing.T) {
	assert.Equal(t, "W 17TH", StreetCore("W 17th Street"))
	assert.Equal(t, "W 17TH", StreetCore("W 17th St."))
	assert.Equal(t, "BROADWAY", StreetCore("Broadway"))
}
