package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"guild-jukebox/internal/music/track"
)

func TestCandidatesCollapses(t *testing.T) {
	a := track.New("u/a", "A", "", 0, "")
	b := track.New("u/b", "B", "", 0, "")

	assert.Equal(t, KindNotFound, Candidates(nil).Kind)
	assert.Equal(t, KindSingle, Candidates([]track.Track{a}).Kind)

	r := Candidates([]track.Track{a, b})
	assert.Equal(t, KindCandidates, r.Kind)
	assert.Len(t, r.Tracks, 2)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "Single", KindSingle.String())
	assert.Equal(t, "Candidates", KindCandidates.String())
	assert.Equal(t, "InvalidQuery", KindInvalid.String())
	assert.Equal(t, "NotFound", KindNotFound.String())
}
