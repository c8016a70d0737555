package fixture

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderksmi/doffin-hunter/internal/model"
	"github.com/alexanderksmi/doffin-hunter/internal/scoring"
)

func TestLoad_Sample(t *testing.T) {
	set, err := Load(filepath.Join("testdata", "sample.yaml"))
	require.NoError(t, err)

	require.Len(t, set.Profiles, 2)
	require.Len(t, set.Tenders, 3)
	assert.Equal(t, []string{"org-demo"}, set.Organizations())

	own := model.OwnProfile(set.Profiles)
	require.NotNil(t, own)
	assert.Equal(t, "demo-own", own.ID)
	assert.Equal(t, "org-demo", own.OrganizationID)
	assert.Equal(t, []model.WeightedKeyword{{Keyword: "vedlikehold", Weight: -3}}, own.NegativeKeywords)
	assert.Equal(t, []model.CPVCode{{Code: "7200", Weight: 1}}, own.CPVCodes)

	t1 := set.Tenders[0]
	assert.Equal(t, "org-demo", t1.OrganizationID)
	assert.Equal(t, []string{"72000000"}, t1.CPVCodes)
	require.NotNil(t, t1.Deadline)
	assert.True(t, t1.Deadline.Equal(time.Date(2026, 11, 30, 12, 0, 0, 0, time.UTC)))
	assert.Nil(t, set.Tenders[1].Deadline)
}

func TestLoad_SampleScores(t *testing.T) {
	set, err := Load(filepath.Join("testdata", "sample.yaml"))
	require.NoError(t, err)
	own := model.OwnProfile(set.Profiles)

	ev := scoring.Score(set.Tenders[0], *own)
	assert.True(t, ev.AllMinimumRequirementsMet)
	assert.Equal(t, 6, ev.TotalScore)

	ev = scoring.Score(set.Tenders[2], *own)
	assert.False(t, ev.AllMinimumRequirementsMet)
	assert.Equal(t, 0, ev.TotalScore)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fixture: read")
}

func TestParse_OwnOrganizationWins(t *testing.T) {
	set, err := Parse([]byte(`
organization_id: org-a
profiles:
  - id: p1
    organization_id: org-b
tenders:
  - id: t1
`))
	require.NoError(t, err)
	assert.Equal(t, "org-b", set.Profiles[0].OrganizationID)
	assert.Equal(t, "org-a", set.Tenders[0].OrganizationID)
	assert.Equal(t, []string{"org-b", "org-a"}, set.Organizations())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad yaml", "profiles: [", "parse yaml"},
		{"missing profile id", "organization_id: o\nprofiles:\n  - name: x\n", "profiles[0]: id is required"},
		{"missing org", "tenders:\n  - id: t1\n", "tender t1: organization_id is required"},
		{"duplicate tender", "organization_id: o\ntenders:\n  - id: t1\n  - id: t1\n", "tender t1: duplicate id"},
		{"two own profiles", "organization_id: o\nprofiles:\n  - id: a\n    is_own_profile: true\n  - id: b\n    is_own_profile: true\n", "2 own profiles"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	set, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, set.Profiles)
	assert.Empty(t, set.Tenders)
	assert.Empty(t, set.Organizations())
}
