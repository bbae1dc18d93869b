package openreview

import (
	"strconv"
	"strings"
	"time"

	"github.com/helixir/paper-feed-service/internal/domain"
)

// VenueType distinguishes yearly conferences from rolling journals.
type VenueType string

const (
	VenueConference VenueType = "conference"
	VenueJournal    VenueType = "journal"
)

// DefaultConferenceStartYear is the first conference year fetched.
const DefaultConferenceStartYear = 2024

// jobNamePrefix prefixes every OpenReview checkpoint key.
const jobNamePrefix = "openreview_fetcher_"

// BaseVenue describes one venue family before year expansion.
type BaseVenue struct {
	NamePrefix     string
	DisplayName    string
	VenueIDPattern string
	StartYear      int
	Type           VenueType
	Strategy       domain.SyncStrategy
}

// Venue is one concrete venue id fetched by its own job.
type Venue struct {
	// ID is the content.venueid filter value, e.g. ICLR.cc/2025/Conference.
	ID string
	// Name labels papers, e.g. "ICLR 2025".
	Name     string
	JobName  string
	Strategy domain.SyncStrategy
}

// DefaultBaseVenues returns the built-in venue families.
func DefaultBaseVenues() []BaseVenue {
	conference := func(prefix, display string) BaseVenue {
		return BaseVenue{
			NamePrefix:     prefix,
			DisplayName:    display,
			VenueIDPattern: "{base}/{year}/Conference",
			StartYear:      DefaultConferenceStartYear,
			Type:           VenueConference,
			Strategy:       domain.SyncFullResync,
		}
	}
	journal := func(name string) BaseVenue {
		return BaseVenue{
			NamePrefix:     name,
			DisplayName:    name,
			VenueIDPattern: name,
			Type:           VenueJournal,
			Strategy:       domain.SyncIncremental,
		}
	}
	return []BaseVenue{
		conference("ICLR.cc", "ICLR"),
		conference("NeurIPS.cc", "NeurIPS"),
		conference("ICML.cc", "ICML"),
		conference("rl-conference.cc/RLC", "RLC"),
		conference("robot-learning.org/CoRL", "CoRL"),
		conference("aistats.org/AISTATS", "AISTATS"),
		journal("TMLR"),
		journal("DMLR"),
	}
}

// ExpandVenues turns venue families into concrete venues. Conferences get one
// venue per year from StartYear through the year of now; journals get one.
func ExpandVenues(bases []BaseVenue, now time.Time) []Venue {
	currentYear := now.Year()
	var venues []Venue
	for _, b := range bases {
		strategy := b.Strategy
		switch b.Type {
		case VenueJournal:
			if strategy == "" {
				strategy = domain.SyncIncremental
			}
			id := b.VenueIDPattern
			if id == "" {
				id = b.NamePrefix
			}
			venues = append(venues, newVenue(expandPattern(id, b.NamePrefix, 0), b.DisplayName, strategy))
		default:
			if strategy == "" {
				strategy = domain.SyncFullResync
			}
			pattern := b.VenueIDPattern
			if pattern == "" {
				pattern = "{base}/{year}/Conference"
			}
			start := b.StartYear
			if start == 0 {
				start = DefaultConferenceStartYear
			}
			for year := start; year <= currentYear; year++ {
				name := b.DisplayName + " " + strconv.Itoa(year)
				venues = append(venues, newVenue(expandPattern(pattern, b.NamePrefix, year), name, strategy))
			}
		}
	}
	return venues
}

func newVenue(id, name string, strategy domain.SyncStrategy) Venue {
	return Venue{
		ID:       id,
		Name:     name,
		JobName:  jobNamePrefix + strings.ReplaceAll(name, " ", "_"),
		Strategy: strategy,
	}
}

func expandPattern(pattern, base string, year int) string {
	r := strings.NewReplacer("{base}", base, "{year}", strconv.Itoa(year))
	return r.Replace(pattern)
}
