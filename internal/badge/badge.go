// Package badge decides which achievement badges a child has earned.
package badge

import "github.com/dukerupert/familypoints/internal/level"

// Badge codes. The rows themselves are seeded by migration.
const (
	Level2       = "LEVEL_2"
	Level3       = "LEVEL_3"
	Level4       = "LEVEL_4"
	Level5       = "LEVEL_5"
	BibleReader  = "BIBLE_READER"
	HomeworkHero = "HOMEWORK_HERO"
	KindHeart    = "KIND_HEART"
)

const (
	bibleReaderDays   = 5
	homeworkHeroCount = 10
	kindHeartCount    = 10
)

// Stats is what the rules look at. LifetimePoints counts task credits only,
// so spending points never takes a level badge out of reach.
type Stats struct {
	LifetimePoints   int
	FaithDays        int
	SchoolApproved   int
	KindnessApproved int
}

var levelCodes = [level.MaxLevel]string{"", Level2, Level3, Level4, Level5}

// Earned returns the codes of every badge the stats qualify for, level
// badges first.
func Earned(s Stats) []string {
	var codes []string
	for i := 1; i < level.MaxLevel; i++ {
		if s.LifetimePoints >= level.Thresholds[i] {
			codes = append(codes, levelCodes[i])
		}
	}
	if s.FaithDays >= bibleReaderDays {
		codes = append(codes, BibleReader)
	}
	if s.SchoolApproved >= homeworkHeroCount {
		codes = append(codes, HomeworkHero)
	}
	if s.KindnessApproved >= kindHeartCount {
		codes = append(codes, KindHeart)
	}
	return codes
}
