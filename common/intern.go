package common

import "sync"

// UserInternTable deduplicate equal User values within one operation.
//
// Manifests with many annotations repeat the same handful of authors; the
// table returns one canonical copy per distinct value so decoded entities
// share string backing instead of holding per-annotation duplicates. A table
// is scoped to one encode or decode pass, never shared process-wide.
type UserInternTable struct {
	lock    sync.Mutex
	entries map[User]User
}

// NewUserInternTable define a new empty interning table
func NewUserInternTable() *UserInternTable {
	return &UserInternTable{entries: make(map[User]User)}
}

/*
Intern return the canonical copy of a user value

	@param user User - value to intern
	@returns canonical copy, equal by value to the input
*/
func (t *UserInternTable) Intern(user User) User {
	t.lock.Lock()
	defer t.lock.Unlock()
	if canonical, ok := t.entries[user]; ok {
		return canonical
	}
	t.entries[user] = user
	return user
}

// Len number of distinct users seen so far
func (t *UserInternTable) Len() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.entries)
}
