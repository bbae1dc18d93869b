package reputation

import "strings"

// TopTierVenues maps each top-tier venue to the lowercase variations that
// identify it inside a free-text venue string.
var TopTierVenues = map[string][]string{
	// General AI & machine learning
	"NeurIPS": {"neurips", "nips", "neural information processing systems"},
	"ICML":    {"icml", "international conference on machine learning"},
	"ICLR":    {"iclr", "international conference on learning representations"},
	"AISTATS": {"aistats", "artificial intelligence and statistics"},
	"UAI":     {"uai", "conference on uncertainty in artificial intelligence"},
	"COLT":    {"colt", "conference on learning theory"},
	"AAAI":    {"aaai", "conference on artificial intelligence"},
	"IJCAI":   {"ijcai", "international joint conference on artificial intelligence"},
	"RLC":     {"rlc", "reinforcement learning conference"},
	"JMLR":    {"jmlr", "journal of machine learning research"},
	"TMLR":    {"tmlr", "transactions on machine learning research"},

	// Computer vision
	"CVPR": {"cvpr", "conference on computer vision and pattern recognition"},
	"ICCV": {"iccv", "international conference on computer vision"},
	"ECCV": {"eccv", "european conference on computer vision"},
	"WACV": {"wacv", "winter conference on applications of computer vision"},

	// Natural language processing
	"ACL":   {"acl", "association for computational linguistics"},
	"EMNLP": {"emnlp", "empirical methods in natural language processing"},
	"NAACL": {"naacl", "north american chapter of the association for computational linguistics"},
	"TACL":  {"tacl", "transactions of the association for computational linguistics"},

	// Robotics
	"ICRA": {"icra", "international conference on robotics and automation"},
	"IROS": {"iros", "intelligent robots and systems"},
	"CoRL": {"corl", "conference on robot learning"},
	"RSS":  {"rss", "robotics: science and systems"},

	// Human-computer interaction
	"CHI": {"acm chi", "chi conference on human factors in computing systems"},

	// Information retrieval & data mining
	"KDD":        {"kdd", "conference on knowledge discovery and data mining"},
	"SIGIR":      {"sigir", "conference on research and development in information retrieval"},
	"TheWebConf": {"www", "the web conference"},

	// Multi-agent systems
	"AAMAS": {"aamas", "autonomous agents and multiagent systems"},

	// Audio
	"ICASSP": {"icassp", "acoustics, speech, and signal processing"},
}

// Catalogue matches venue strings against a set of variations.
type Catalogue struct {
	variations []string
}

// NewCatalogue flattens a venue map into a matcher.
func NewCatalogue(venues map[string][]string) *Catalogue {
	c := &Catalogue{}
	for _, vs := range venues {
		for _, v := range vs {
			if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
				c.variations = append(c.variations, v)
			}
		}
	}
	return c
}

// DefaultCatalogue returns the catalogue of TopTierVenues.
func DefaultCatalogue() *Catalogue {
	return NewCatalogue(TopTierVenues)
}

// IsTopTier reports whether venue contains any variation, case-insensitively.
func (c *Catalogue) IsTopTier(venue string) bool {
	venue = strings.ToLower(venue)
	if venue == "" {
		return false
	}
	for _, v := range c.variations {
		if strings.Contains(venue, v) {
			return true
		}
	}
	return false
}

// Count returns how many venues are top tier.
func (c *Catalogue) Count(venues []string) int {
	n := 0
	for _, v := range venues {
		if c.IsTopTier(v) {
			n++
		}
	}
	return n
}
