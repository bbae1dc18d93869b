package openreview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-feed-service/internal/domain"
)

func TestExpandVenues_Defaults(t *testing.T) {
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	venues := ExpandVenues(DefaultBaseVenues(), now)

	// six conferences over two years plus two journals
	require.Len(t, venues, 14)

	assert.Equal(t, Venue{
		ID:       "ICLR.cc/2024/Conference",
		Name:     "ICLR 2024",
		JobName:  "openreview_fetcher_ICLR_2024",
		Strategy: domain.SyncFullResync,
	}, venues[0])
	assert.Equal(t, "ICLR.cc/2025/Conference", venues[1].ID)
	assert.Equal(t, "rl-conference.cc/RLC/2025/Conference", venues[7].ID)

	tmlr := venues[12]
	assert.Equal(t, Venue{
		ID:       "TMLR",
		Name:     "TMLR",
		JobName:  "openreview_fetcher_TMLR",
		Strategy: domain.SyncIncremental,
	}, tmlr)
	assert.Equal(t, "DMLR", venues[13].ID)
}

func TestExpandVenues_Custom(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	venues := ExpandVenues([]BaseVenue{
		{NamePrefix: "ICML.cc", DisplayName: "ICML", VenueIDPattern: "ICML.cc/{year}/Conference", StartYear: 2026, Type: VenueConference, Strategy: domain.SyncIncremental},
		{NamePrefix: "JMLR", DisplayName: "JMLR", Type: VenueJournal},
		{NamePrefix: "Future.cc", DisplayName: "Future", StartYear: 2030},
	}, now)

	require.Len(t, venues, 2)
	assert.Equal(t, "ICML.cc/2026/Conference", venues[0].ID)
	assert.Equal(t, domain.SyncIncremental, venues[0].Strategy)
	assert.Equal(t, "JMLR", venues[1].ID)
	assert.Equal(t, domain.SyncIncremental, venues[1].Strategy)
}
