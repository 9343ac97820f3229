// Package learner holds the User aggregate of Codevia and the rules that move
// it forward: experience points, levels and the sets of unlocked skills and
// earned achievements.
//
// The package defines:
//
//   - Value objects: XP, Level
//   - Entity: User
//   - Level policies: CumulativePolicy, RolloverPolicy
//   - Progression: applies XP gains and reports level changes
//   - Directory: the port through which users are stored and looked up
//
// # Level policies
//
// Two ways of turning XP into a level are supported and selected once at
// startup:
//
//	cumulative  level = xp/100 + 1, XP is never reduced
//	rollover    while xp >= level*100 { xp -= level*100; level++ }
//
// Progression never rejects a gain. A negative amount is ignored:
//
//	prog := learner.NewProgression(learner.CumulativePolicy{})
//	gain := prog.Gain(user, 120)
//	if gain.LeveledUp() {
//	    // publish one LevelUp event per level in gain.Levels()
//	}
//
// # Directory
//
// Directory is implemented in infrastructure/persistence/directory. It keeps
// users in memory and mirrors writes to a document store without waiting for
// the result.
package learner
