// Package skill defines the fixed skill catalog and the XP-gated unlock rule.
package skill

import (
	"fmt"
	"strings"

	"github.com/codevia/codevia/internal/domain/learner"
	"github.com/codevia/codevia/internal/domain/shared"
)

// DefaultUnlockBonusXP is granted after a successful unlock.
const DefaultUnlockBonusXP = 50

// Skill is an unlockable topic gated by an XP threshold.
type Skill struct {
	ID          string
	Name        string
	Description string
	RequiredXP  learner.XP
}

// View is a skill as seen by one user.
type View struct {
	Skill
	Unlocked bool
}

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// Catalog is an ordered, immutable list of skills with unique names.
type Catalog struct {
	skills []Skill
}

// NewCatalog builds a catalog. Names must be unique ignoring case.
func NewCatalog(skills ...Skill) (*Catalog, error) {
	seen := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		key := strings.ToLower(strings.TrimSpace(s.Name))
		if key == "" {
			return nil, shared.NewDomainError("skill", "NewCatalog", shared.ErrEmptyValue, "skill name cannot be empty")
		}
		if _, dup := seen[key]; dup {
			return nil, shared.NewDomainError("skill", "NewCatalog", shared.ErrAlreadyExists,
				fmt.Sprintf("duplicate skill %q", s.Name))
		}
		if s.RequiredXP < 0 {
			return nil, shared.NewDomainError("skill", "NewCatalog", shared.ErrNegativeValue,
				fmt.Sprintf("skill %q requires negative XP", s.Name))
		}
		seen[key] = struct{}{}
	}
	return &Catalog{skills: append([]Skill(nil), skills...)}, nil
}

// DefaultCatalog returns the built-in skills.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(
		Skill{ID: "s1", Name: "Java Basics", Description: "Learn variables, loops, and conditions.", RequiredXP: 0},
		Skill{ID: "s2", Name: "OOP", Description: "Learn classes, inheritance, and polymorphism.", RequiredXP: 100},
		Skill{ID: "s3", Name: "File I/O", Description: "Learn how to read and write files in Java.", RequiredXP: 200},
	)
	if err != nil {
		panic(err)
	}
	return c
}

// All returns the skills in catalog order.
func (c *Catalog) All() []Skill {
	return append([]Skill(nil), c.skills...)
}

// Len returns the number of skills.
func (c *Catalog) Len() int {
	return len(c.skills)
}

// Find looks a skill up by name, ignoring case and surrounding space.
func (c *Catalog) Find(name string) (Skill, error) {
	name = strings.TrimSpace(name)
	for _, s := range c.skills {
		if strings.EqualFold(s.Name, name) {
			return s, nil
		}
	}
	return Skill{}, shared.ErrSkillNotFound
}

// ForUser returns every skill with its unlocked flag for u.
func (c *Catalog) ForUser(u *learner.User) []View {
	views := make([]View, 0, len(c.skills))
	for _, s := range c.skills {
		views = append(views, View{Skill: s, Unlocked: u != nil && u.HasSkill(s.Name)})
	}
	return views
}

// ══════════════════════════════════════════════════════════════════════════════
// UNLOCK RULE
// ══════════════════════════════════════════════════════════════════════════════

// Unlock is the outcome of a successful unlock.
type Unlock struct {
	Skill Skill
	Bonus learner.Gain
}

// Unlocker applies the XP-gated unlock policy.
type Unlocker struct {
	catalog     *Catalog
	progression *learner.Progression
	bonusXP     int
}

// NewUnlocker creates an Unlocker. A negative bonus is treated as zero.
func NewUnlocker(catalog *Catalog, progression *learner.Progression, bonusXP int) *Unlocker {
	if bonusXP < 0 {
		bonusXP = 0
	}
	return &Unlocker{
		catalog:     catalog,
		progression: progression,
		bonusXP:     bonusXP,
	}
}

// Catalog returns the catalog the unlocker works on.
func (u *Unlocker) Catalog() *Catalog {
	return u.catalog
}

// Unlock unlocks the named skill for user.
//
// Errors, in order of checking: shared.ErrSkillNotFound,
// shared.ErrSkillAlreadyUnlocked, and an ErrInsufficientXP domain error when
// the user's XP is below the threshold. On failure the user is unchanged.
func (u *Unlocker) Unlock(user *learner.User, name string) (Unlock, error) {
	s, err := u.catalog.Find(name)
	if err != nil {
		return Unlock{}, err
	}

	if user.HasSkill(s.Name) {
		return Unlock{}, shared.ErrSkillAlreadyUnlocked
	}

	if user.XP < s.RequiredXP {
		return Unlock{}, shared.NewDomainError("skill", "Unlock", shared.ErrInsufficientXP,
			fmt.Sprintf("%s requires %d XP, you have %d", s.Name, s.RequiredXP, user.XP))
	}

	user.AddSkill(s.Name)
	gain := u.progression.Gain(user, u.bonusXP)

	return Unlock{Skill: s, Bonus: gain}, nil
}
