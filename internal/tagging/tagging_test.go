package tagging

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/fintool/internal/database/repository"
)

func TestApplyUnion(t *testing.T) {
	t.Parallel()

	rules := []repository.TagRule{
		{Concept: "amzn mktp us", Match: repository.MatchExact, Tags: []string{"shopping", "online"}},
		{Concept: "amzn", Match: repository.MatchContains, Tags: []string{"amazon", "online"}},
		{Concept: "uber eats", Match: repository.MatchExact, Tags: []string{"food"}},
	}

	got := Apply("amzn mktp us", rules)
	require.Equal(t, []string{"amazon", "online", "shopping"}, got)
}

func TestApplyNoMatch(t *testing.T) {
	t.Parallel()

	rules := []repository.TagRule{
		{Concept: "uber eats", Match: repository.MatchExact, Tags: []string{"food"}},
	}
	require.Nil(t, Apply("oxxo gas", rules))
	require.Nil(t, Apply("oxxo gas", nil))
}

func TestApplyOrderIndependent(t *testing.T) {
	t.Parallel()

	a := repository.TagRule{Concept: "oxxo", Match: repository.MatchContains, Tags: []string{"convenience"}}
	b := repository.TagRule{Concept: "oxxo gas", Match: repository.MatchExact, Tags: []string{"fuel"}}

	forward := Apply("oxxo gas", []repository.TagRule{a, b})
	reversed := Apply("oxxo gas", []repository.TagRule{b, a})
	require.Equal(t, forward, reversed)
	require.Equal(t, []string{"convenience", "fuel"}, forward)
}

func TestMatches(t *testing.T) {
	t.Parallel()

	exact := repository.TagRule{Concept: "oxxo gas", Match: repository.MatchExact}
	require.True(t, Matches(exact, "oxxo gas"))
	require.False(t, Matches(exact, "oxxo gas norte"))

	contains := repository.TagRule{Concept: "oxxo", Match: repository.MatchContains}
	require.True(t, Matches(contains, "oxxo gas norte"))
	require.False(t, Matches(contains, "uber eats"))

	// A contains rule with an empty concept would match everything.
	empty := repository.TagRule{Concept: "", Match: repository.MatchContains}
	require.False(t, Matches(empty, "anything"))
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"food", "online"}, Normalize([]string{"online", " food ", "online", ""}))
	require.Nil(t, Normalize([]string{"", "  "}))
	require.Nil(t, Normalize(nil))
}

func TestSplit(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"a", "b", "c"}, Split("c|a|b|a"))
	require.Nil(t, Split(""))
}
