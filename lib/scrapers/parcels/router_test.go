package parcels

import (
	"testing"

	"github.com/stretchr/testify/require"

	"deedscout-backend/lib/addressutil"
)

func TestRouteByCountyState(t *testing.T) {
	router := NewRouter()

	portal, err := router.Route(addressutil.New("6409 Winding Arch Dr", "Durham", "NC"))
	require.NoError(t, err)
	require.Equal(t, Durham, portal)

	portal, err = router.Route(addressutil.New("1 Fake St", "wake", "nc"))
	require.NoError(t, err)
	require.Equal(t, Wake, portal)
}

func TestRouteByRawAddress(t *testing.T) {
	router := NewRouter()

	portal, err := router.Route(addressutil.New("6409 Winding Arch Dr Durham NC 27713", "", ""))
	require.NoError(t, err)
	require.Equal(t, Durham, portal)
}

func TestRouteUnsupported(t *testing.T) {
	router := NewRouter()

	_, err := router.Route(addressutil.New("1 Somewhere Else Rd Austin TX", "Travis", "TX"))
	require.ErrorIs(t, err, ErrUnsupportedJurisdiction)
}

func TestRouteSuggestsNearestCounty(t *testing.T) {
	router := NewRouter()

	// "Durnam" is a typo one edit away from Durham, but the state is
	// wrong so routing misses
	_, err := router.Route(addressutil.New("6409 Winding Arch Dr", "Durnam", "SC"))
	require.ErrorIs(t, err, ErrUnsupportedJurisdiction)
	require.Contains(t, err.Error(), "Durham")
}
