package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenReviewCategory(t *testing.T) {
	tests := []struct {
		name      string
		venue     string
		certs     []string
		decisions []string
		want      string
	}{
		{name: "oral in venue", venue: "ICLR 2025 Oral", want: "Oral"},
		{name: "spotlight in venue", venue: "NeurIPS 2024 spotlight", want: "Spotlight"},
		{name: "poster in venue", venue: "ICML 2024 Poster", want: "Poster"},
		{name: "venue wins over certification", venue: "ICLR 2025 Oral", certs: []string{"Featured Certification"}, want: "Oral"},
		{name: "certification keyword", venue: "Accepted by TMLR", certs: []string{"Reproducibility", "featured certification"}, want: "Featured Certification"},
		{name: "certification without the keyword is ignored", venue: "TMLR", certs: []string{"", "Reproducibility"}},
		{name: "plain certification falls through to decisions", venue: "TMLR", certs: []string{"survey"}, decisions: []string{"Accept (Oral)"}, want: "Oral"},
		{name: "reply decision", venue: "ICLR 2024", decisions: []string{"Reject", "Accept (Spotlight)"}, want: "Spotlight"},
		{name: "nothing", venue: "ICLR 2024 Conference Submission"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OpenReviewCategory(tt.venue, tt.certs, tt.decisions)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestKeywords(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want []string
	}{
		{name: "delimited string", raw: "Deep Learning; RL,  graph   neural nets ", want: []string{"deep learning", "rl", "graph neural nets"}},
		{name: "string list", raw: []string{"Transformers", "LLM;Agents"}, want: []string{"transformers", "llm", "agents"}},
		{name: "any list skips non-strings", raw: []any{"Vision", 3, "vision"}, want: []string{"vision"}},
		{name: "repeats collapse in first-seen order", raw: "RL, vision; rl ,Vision", want: []string{"rl", "vision"}},
		{name: "empty", raw: "", want: []string{}},
		{name: "nil", raw: nil, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Keywords(tt.raw))
		})
	}
}

func TestArchiveKeywords(t *testing.T) {
	assert.Equal(t, []string{"cs.lg", "stat.ml"}, ArchiveKeywords([]string{"cs.LG", "stat.ML", "CS.lg"}))
	assert.Equal(t, []string{DefaultArchiveKeyword}, ArchiveKeywords(nil))
	assert.Equal(t, []string{DefaultArchiveKeyword}, ArchiveKeywords([]string{" "}))
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Outstanding Paper Certification", TitleCase("outstanding PAPER certification"))
	assert.Equal(t, "", TitleCase("  "))
}
