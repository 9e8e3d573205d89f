package compose

import (
	"testing"
	"time"

	"carepath/internal/model"
	"carepath/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectLegacy(t *testing.T) {
	s := testutil.LevelledDay(1)
	s.Version = 4
	es := &model.DynamicDayTranslation{
		DayNumber:    1,
		Language:     "es",
		Version:      2,
		LevelContent: []model.LevelTranslation{{LevelKey: testutil.Mild, LevelLabel: "Leve"}},
	}
	other := &model.DynamicDayTranslation{DayNumber: 9, Language: "de"}

	rec, err := ProjectLegacy(s, []*model.DynamicDayTranslation{es, other}, []string{"fr", "en"}, testutil.T0)
	require.NoError(t, err)

	assert.Equal(t, "day-1", rec.ID)
	assert.Equal(t, int64(4), rec.StructureVersion)
	require.Len(t, rec.Languages, 3)
	assert.Equal(t, "en", rec.Languages[0].Language)
	assert.Equal(t, "es", rec.Languages[1].Language)
	assert.Equal(t, "fr", rec.Languages[2].Language)
	assert.Equal(t, "Leve", rec.Languages[1].Config.ContentLevels[0].LevelLabel)
	assert.False(t, rec.Languages[2].Config.Translated, "a language without an overlay falls back to the structure")
	assert.Equal(t, []model.SourceVersion{{Language: "es", Version: 2}}, rec.TranslationVersions)
	assert.Len(t, rec.Checksum, 64)
}

func TestProjectLegacy_DerivableChecksum(t *testing.T) {
	s := testutil.LevelledDay(2)
	es := &model.DynamicDayTranslation{DayNumber: 2, Language: "es",
		LevelContent: []model.LevelTranslation{{LevelKey: testutil.Severe, LevelLabel: "Severa"}}}

	a, err := ProjectLegacy(s, []*model.DynamicDayTranslation{es}, nil, testutil.T0)
	require.NoError(t, err)
	b, err := ProjectLegacy(s, []*model.DynamicDayTranslation{es}, nil, testutil.T0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, a.Checksum, b.Checksum)

	sum, err := Checksum(a.Languages)
	require.NoError(t, err)
	assert.Equal(t, a.Checksum, sum)

	es.LevelContent[0].LevelLabel = "Grave"
	c, err := ProjectLegacy(s, []*model.DynamicDayTranslation{es}, nil, testutil.T0)
	require.NoError(t, err)
	assert.NotEqual(t, a.Checksum, c.Checksum)
}
