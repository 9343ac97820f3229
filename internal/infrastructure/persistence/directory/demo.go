package directory

import (
	"fmt"

	"github.com/codevia/codevia/internal/domain/learner"
)

type demoAccount struct {
	id, username, email, password string
}

var demoAccounts = []demoAccount{
	{"1", "admin", "admin@codevia.com", "admin123"},
	{"2", "student", "student@codevia.com", "student123"},
}

// DemoUsers builds the two built-in accounts with passwords run through hash.
// They keep the fixed ids "1" and "2".
func DemoUsers(hash func(password string) (string, error)) ([]*learner.User, error) {
	users := make([]*learner.User, 0, len(demoAccounts))
	for _, a := range demoAccounts {
		credential, err := hash(a.password)
		if err != nil {
			return nil, fmt.Errorf("directory: hash demo password for %s: %w", a.username, err)
		}
		u, err := learner.NewUser(learner.NewUserParams{
			ID:       a.id,
			Username: a.username,
			Email:    a.email,
			Password: credential,
		})
		if err != nil {
			return nil, fmt.Errorf("directory: demo user %s: %w", a.username, err)
		}
		users = append(users, u)
	}
	return users, nil
}
