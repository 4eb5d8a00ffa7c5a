package services

import (
	"fmt"

	"trivia-progression-service/models"
)

// LevelConfig: XP needed to go from level N to N+1 is BaseXPPerLevel * N,
// so the cumulative XP to reach level L is 100*(1+2+...+(L-1)).
const BaseXPPerLevel = 100

// maxLevelIterations bounds LevelOf. The reward tables cannot push a user
// anywhere near level 1000; hitting the cap means corrupted XP.
const maxLevelIterations = 1000

// RequiredXP returns the XP needed to advance from level to level+1.
func RequiredXP(level int) int64 {
	if level < 1 {
		level = 1
	}
	return int64(BaseXPPerLevel) * int64(level)
}

// LevelOf maps accumulated XP to a level, starting at level 1 with 0 XP.
func LevelOf(xp int64) (int, error) {
	level := 1
	var threshold int64
	for i := 0; i < maxLevelIterations; i++ {
		next := threshold + RequiredXP(level)
		if next > xp {
			return level, nil
		}
		threshold = next
		level++
	}
	return 0, fmt.Errorf("%w: level curve exceeded %d iterations for xp=%d",
		models.ErrInvariantViolation, maxLevelIterations, xp)
}

// XPToNextLevel returns XP remaining until the next level-up.
func XPToNextLevel(xp int64) (int64, error) {
	level, err := LevelOf(xp)
	if err != nil {
		return 0, err
	}
	var threshold int64
	for l := 1; l <= level; l++ {
		threshold += RequiredXP(l)
	}
	return threshold - xp, nil
}
