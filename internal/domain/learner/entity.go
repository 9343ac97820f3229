package learner

import (
	"strings"
	"time"

	"github.com/codevia/codevia/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// XP is an amount of experience points.
type XP int

// IsValid reports whether x is non-negative.
func (x XP) IsValid() bool {
	return x >= 0
}

// Add returns x increased by delta.
func (x XP) Add(delta XP) XP {
	return x + delta
}

// Level is a user's level. The first level is 1.
type Level int

// MinLevel is the level every new user starts at.
const MinLevel Level = 1

// Threshold returns the XP needed to leave this level under the rollover
// policy.
func (l Level) Threshold() XP {
	return XP(int(l) * XPPerLevel)
}

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: USER
// ══════════════════════════════════════════════════════════════════════════════

// User is a registered learner.
type User struct {
	ID       string
	Username string
	Email    string

	// Password is an opaque credential. Freshly registered users carry a
	// bcrypt hash; records imported from older stores may hold plain text.
	Password string

	XP    XP
	Level Level

	// FirebaseUID links the user to an external identity provider record.
	// Kept so records round-trip through the document store unchanged.
	FirebaseUID string

	// UnlockedSkills and Achievements are sets kept in insertion order.
	UnlockedSkills []string
	Achievements   []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUserParams contains the parameters for creating a user.
type NewUserParams struct {
	ID       string
	Username string
	Email    string
	Password string
	Now      time.Time
}

// NewUser creates a user at level 1 with no XP.
// Password must already be the stored credential; length rules apply to the
// raw password and are checked by ValidatePassword before hashing.
func NewUser(params NewUserParams) (*User, error) {
	username := strings.TrimSpace(params.Username)
	email := strings.TrimSpace(params.Email)

	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if params.Password == "" {
		return nil, shared.NewDomainError("learner", "Validate", shared.ErrEmptyValue, "password cannot be empty")
	}

	now := params.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	return &User{
		ID:             params.ID,
		Username:       username,
		Email:          email,
		Password:       params.Password,
		XP:             0,
		Level:          MinLevel,
		UnlockedSkills: []string{},
		Achievements:   []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// ValidateUsername requires a non-blank username.
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return shared.ErrEmptyUsername
	}
	return nil
}

// ValidateEmail applies the minimal format check: the address must contain
// both '@' and '.'.
func ValidateEmail(email string) error {
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return shared.ErrInvalidEmail
	}
	return nil
}

// ValidatePassword checks the raw password length.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return shared.ErrPasswordTooShort
	}
	return nil
}

// ValidateRegistration runs all registration rules in order and returns the
// first failure.
func ValidateRegistration(username, email, password string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if err := ValidateEmail(strings.TrimSpace(email)); err != nil {
		return err
	}
	return ValidatePassword(password)
}

// ─────────────────────────────────────────────────────────────────────────────
// Skill and achievement sets
// ─────────────────────────────────────────────────────────────────────────────

// HasSkill reports whether the named skill is unlocked. Names compare
// case-insensitively.
func (u *User) HasSkill(name string) bool {
	return containsFold(u.UnlockedSkills, name)
}

// AddSkill adds a skill name to the unlocked set. It returns false if the
// name was already present.
func (u *User) AddSkill(name string) bool {
	if u.HasSkill(name) {
		return false
	}
	u.UnlockedSkills = append(u.UnlockedSkills, name)
	return true
}

// HasAchievement reports whether the named achievement was earned.
func (u *User) HasAchievement(name string) bool {
	return containsFold(u.Achievements, name)
}

// AddAchievement records an earned achievement. It returns false if the
// name was already present.
func (u *User) AddAchievement(name string) bool {
	if u.HasAchievement(name) {
		return false
	}
	u.Achievements = append(u.Achievements, name)
	return true
}

// MatchesEmail compares emails case-insensitively, ignoring surrounding space.
func (u *User) MatchesEmail(email string) bool {
	return strings.EqualFold(strings.TrimSpace(u.Email), strings.TrimSpace(email))
}

// Touch updates the modification timestamp.
func (u *User) Touch(now time.Time) {
	u.UpdatedAt = now
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.UnlockedSkills = append([]string(nil), u.UnlockedSkills...)
	c.Achievements = append([]string(nil), u.Achievements...)
	if c.UnlockedSkills == nil {
		c.UnlockedSkills = []string{}
	}
	if c.Achievements == nil {
		c.Achievements = []string{}
	}
	return &c
}

func containsFold(set []string, name string) bool {
	for _, s := range set {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}
