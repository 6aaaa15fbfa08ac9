// Package storefake is an in-memory store.Repository for tests.
package storefake

import (
	"encoding/xml"
	"fmt"
	"sort"
	"sync"

	"github.com/billboardcp/billboard-server/billboard"
	"github.com/billboardcp/billboard-server/store"
	"github.com/billboardcp/billboard-server/users"
)

var _ store.Repository = (*FakeStore)(nil)

type FakeStore struct {
	lock       sync.RWMutex
	users      map[string]users.User
	salts      map[string]string
	billboards map[string]billboard.Billboard
	schedules  []billboard.Schedule

	// FailWith, when set, is returned by every method to exercise the
	// data-layer failure path.
	FailWith error
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		users:      make(map[string]users.User),
		salts:      make(map[string]string),
		billboards: make(map[string]billboard.Billboard),
	}
}

func (f *FakeStore) GetSalt(username string) (string, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()
	if f.FailWith != nil {
		return "", f.FailWith
	}
	salt, ok := f.salts[username]
	if !ok {
		return "", store.ErrNotFound
	}
	return salt, nil
}

func (f *FakeStore) GetPassword(username string) (string, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()
	if f.FailWith != nil {
		return "", f.FailWith
	}
	u, ok := f.users[username]
	if !ok {
		return "", store.ErrNotFound
	}
	return u.Password, nil
}

func (f *FakeStore) GetPermission(username string) (users.Permission, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()
	if f.FailWith != nil {
		return "", f.FailWith
	}
	u, ok := f.users[username]
	if !ok {
		return "", store.ErrNotFound
	}
	return u.Permission, nil
}

func (f *FakeStore) GetUsers() ([]users.User, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	list := make([]users.User, 0, len(f.users))
	for _, u := range f.users {
		list = append(list, u)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Username < list[j].Username })
	return list, nil
}

func (f *FakeStore) AddUser(u users.User) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.FailWith != nil {
		return f.FailWith
	}
	if _, ok := f.users[u.Username]; ok {
		return store.ErrUsernameExists
	}
	f.users[u.Username] = u
	return nil
}

func (f *FakeStore) UpdateUser(u users.User) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.FailWith != nil {
		return f.FailWith
	}
	if _, ok := f.users[u.Username]; !ok {
		return store.ErrNotFound
	}
	f.users[u.Username] = u
	return nil
}

func (f *FakeStore) DeleteUser(username string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.FailWith != nil {
		return f.FailWith
	}
	delete(f.users, username)
	delete(f.salts, username)
	return nil
}

func (f *FakeStore) AddSalt(username, salt string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.FailWith != nil {
		return f.FailWith
	}
	f.salts[username] = salt
	return nil
}

func (f *FakeStore) GetBillboards() ([]billboard.Billboard, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	list := make([]billboard.Billboard, 0, len(f.billboards))
	for _, b := range f.billboards {
		list = append(list, b)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (f *FakeStore) AddBillboard(b billboard.Billboard) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.FailWith != nil {
		return f.FailWith
	}
	f.billboards[b.Name] = b
	return nil
}

func (f *FakeStore) UpdateBillboard(b billboard.Billboard) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.FailWith != nil {
		return f.FailWith
	}
	existing, ok := f.billboards[b.Name]
	if !ok {
		return store.ErrNotFound
	}
	existing.Content = b.Content
	f.billboards[b.Name] = existing
	return nil
}

func (f *FakeStore) DeleteBillboard(name string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.FailWith != nil {
		return f.FailWith
	}
	delete(f.billboards, name)
	return nil
}

func (f *FakeStore) GetRenderedContent(name string) ([]byte, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	b, ok := f.billboards[name]
	if !ok {
		return nil, store.ErrNotFound
	}
	type rendered struct {
		XMLName xml.Name `xml:"billboard"`
		Name    string   `xml:"name"`
		Message string   `xml:"message"`
	}
	out, err := xml.Marshal(rendered{Name: b.Name, Message: b.Content})
	if err != nil {
		return nil, fmt.Errorf("render %q: %w", name, err)
	}
	return out, nil
}

func (f *FakeStore) IsScheduled(name string) (bool, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()
	if f.FailWith != nil {
		return false, f.FailWith
	}
	for _, s := range f.schedules {
		if s.BillboardName == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *FakeStore) GetSchedules() ([]billboard.Schedule, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	return append([]billboard.Schedule(nil), f.schedules...), nil
}

func (f *FakeStore) AddSchedule(s billboard.Schedule) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.FailWith != nil {
		return f.FailWith
	}
	f.schedules = append(f.schedules, s)
	return nil
}

// StoredUser returns the raw stored user row, for asserting on stored
// hashes.
func (f *FakeStore) StoredUser(username string) (users.User, bool) {
	f.lock.RLock()
	defer f.lock.RUnlock()
	u, ok := f.users[username]
	return u, ok
}

// StoredSalt returns the raw stored salt row.
func (f *FakeStore) StoredSalt(username string) (string, bool) {
	f.lock.RLock()
	defer f.lock.RUnlock()
	s, ok := f.salts[username]
	return s, ok
}

// StoredBillboard returns the raw stored billboard row.
func (f *FakeStore) StoredBillboard(name string) (billboard.Billboard, bool) {
	f.lock.RLock()
	defer f.lock.RUnlock()
	b, ok := f.billboards[name]
	return b, ok
}
