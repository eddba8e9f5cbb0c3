package model

// DefaultXPPerLevel is the XP needed for each level.
const DefaultXPPerLevel int64 = 500

// ModuleProgress is one user's progression in one feature module.
// Level is derived from TotalXP on every read.
type ModuleProgress struct {
	UserID          string   `json:"user_id"`
	ModuleName      string   `json:"module_name"`
	Level           int64    `json:"level"`
	TotalXP         int64    `json:"total_xp"`
	UnlockedItemIDs []string `json:"unlocked_item_ids"`
}

// LevelFor returns floor(total/perLevel)+1.
func LevelFor(total, perLevel int64) int64 {
	if perLevel <= 0 {
		perLevel = DefaultXPPerLevel
	}
	if total < 0 {
		total = 0
	}
	return total/perLevel + 1
}

// XPGrant is the result of granting XP.
type XPGrant struct {
	Level     int64 `json:"level"`
	LeveledUp bool  `json:"leveled_up"`
	TotalXP   int64 `json:"total_xp"`
}
