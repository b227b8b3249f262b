package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"collabtodo/internal/model"
	"collabtodo/pkg/rbac"
)

// memDB is an in-memory stand-in for the PostgreSQL repositories. It keeps
// the same invariants: one membership per (project, profile), at least one
// owner per project, and cascading deletes.
type memDB struct {
	mu       sync.Mutex
	seq      int
	clock    time.Time
	accounts map[string]*model.Account
	profiles map[string]*model.Profile
	projects map[string]*model.Project
	members  map[string]*model.ProjectMember
	tasks    map[string]*model.Task

	calls          int
	failUsername   error
	failGetByEmail error

	// runs under the lock right before a membership row is locked for
	// Remove or UpdateRole, to model a concurrent writer
	beforeMemberLock func(db *memDB)
}

func newMemDB() *memDB {
	return &memDB{
		clock:    time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		accounts: map[string]*model.Account{},
		profiles: map[string]*model.Profile{},
		projects: map[string]*model.Project{},
		members:  map[string]*model.ProjectMember{},
		tasks:    map[string]*model.Task{},
	}
}

func (db *memDB) nextID(prefix string) string {
	db.seq++
	return fmt.Sprintf("%s-%d", prefix, db.seq)
}

func (db *memDB) tick() time.Time {
	db.clock = db.clock.Add(time.Minute)
	return db.clock
}

func (db *memDB) addProfile(id, username, email string) *model.Profile {
	db.mu.Lock()
	defer db.mu.Unlock()
	p := &model.Profile{ID: id, Username: username, Email: email, CreatedAt: db.tick()}
	db.profiles[id] = p
	db.accounts[id] = &model.Account{ID: id, Email: email, Username: username, CreatedAt: p.CreatedAt}
	return p
}

type projectStore struct{ *memDB }
type taskStore struct{ *memDB }
type memberStore struct{ *memDB }
type profileStore struct{ *memDB }
type accountStore struct{ *memDB }

// projects

func (s projectStore) CreateWithOwner(ctx context.Context, p *model.Project) (*model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	created := *p
	created.ID = s.nextID("proj")
	created.CreatedAt = s.tick()
	s.projects[created.ID] = &created
	mid := s.nextID("mem")
	s.members[mid] = &model.ProjectMember{ID: mid, ProjectID: created.ID, ProfileID: p.OwnerID, Role: rbac.RoleOwner, JoinedAt: created.CreatedAt}
	out := created
	return &out, nil
}

func (s projectStore) Get(ctx context.Context, id string) (*model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (s projectStore) ListOwnedBy(ctx context.Context, profileID string) ([]model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Project
	for _, p := range s.projects {
		if p.OwnerID == profileID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s projectStore) ListMemberOf(ctx context.Context, profileID string) ([]model.MembershipProject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.MembershipProject
	for _, m := range s.members {
		if m.ProfileID == profileID {
			out = append(out, model.MembershipProject{Project: *s.projects[m.ProjectID], Role: m.Role})
		}
	}
	return out, nil
}

func (s projectStore) Stats(ctx context.Context, ids []string) (map[string]model.ProjectStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]model.ProjectStats{}
	for _, id := range ids {
		if _, ok := s.projects[id]; !ok {
			continue
		}
		var st model.ProjectStats
		for _, t := range s.tasks {
			if t.ProjectID == id {
				st.TotalTasks++
				if t.Completed {
					st.CompletedTasks++
				}
			}
		}
		for _, m := range s.members {
			if m.ProjectID == id {
				st.MemberCount++
			}
		}
		out[id] = st
	}
	return out, nil
}

func (s projectStore) Update(ctx context.Context, p *model.Project) (*model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	cur, ok := s.projects[p.ID]
	if !ok {
		return nil, model.ErrNotFound
	}
	cur.Title, cur.Description = p.Title, p.Description
	out := *cur
	return &out, nil
}

func (s projectStore) Delete(ctx context.Context, id, deletedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if _, ok := s.projects[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.projects, id)
	for k, m := range s.members {
		if m.ProjectID == id {
			delete(s.members, k)
		}
	}
	for k, t := range s.tasks {
		if t.ProjectID == id {
			delete(s.tasks, k)
		}
	}
	return nil
}

// tasks

func (s taskStore) ListByProject(ctx context.Context, projectID string) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Task{}
	for _, t := range s.tasks {
		if t.ProjectID == projectID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s taskStore) Get(ctx context.Context, id string) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	out := *t
	return &out, nil
}

func (s taskStore) Insert(ctx context.Context, t *model.Task, createdBy string) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	created := *t
	created.ID = s.nextID("task")
	created.CreatedAt = s.tick()
	s.tasks[created.ID] = &created
	out := created
	return &out, nil
}

func (s taskStore) Update(ctx context.Context, t *model.Task) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	cur, ok := s.tasks[t.ID]
	if !ok {
		return nil, model.ErrNotFound
	}
	cur.Title, cur.Description, cur.Completed = t.Title, t.Description, t.Completed
	out := *cur
	return &out, nil
}

func (s taskStore) SetCompleted(ctx context.Context, id string, completed bool) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	cur, ok := s.tasks[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cur.Completed = completed
	out := *cur
	return &out, nil
}

func (s taskStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if _, ok := s.tasks[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

// members

func (s memberStore) RoleOf(ctx context.Context, projectID, profileID string) (rbac.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		if m.ProjectID == projectID && m.ProfileID == profileID {
			return m.Role, nil
		}
	}
	return "", model.ErrNotFound
}

func (s memberStore) Get(ctx context.Context, projectID, memberID string) (*model.ProjectMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[memberID]
	if !ok || m.ProjectID != projectID {
		return nil, model.ErrNotFound
	}
	out := *m
	return &out, nil
}

func (s memberStore) ListByProject(ctx context.Context, projectID string) ([]model.ProjectMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ProjectMember
	for _, m := range s.members {
		if m.ProjectID == projectID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (s memberStore) Insert(ctx context.Context, m *model.ProjectMember, invitedBy string) (*model.ProjectMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	for _, existing := range s.members {
		if existing.ProjectID == m.ProjectID && existing.ProfileID == m.ProfileID {
			return nil, model.ErrAlreadyMember
		}
	}
	created := *m
	created.ID = s.nextID("mem")
	created.JoinedAt = s.tick()
	s.members[created.ID] = &created
	out := created
	return &out, nil
}

func (s memberStore) ownersLocked(projectID string) []*model.ProjectMember {
	var owners []*model.ProjectMember
	for _, m := range s.members {
		if m.ProjectID == projectID && m.Role == rbac.RoleOwner {
			owners = append(owners, m)
		}
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i].JoinedAt.Before(owners[j].JoinedAt) })
	return owners
}

// ownerCountLocked also counts a primary owner without a membership row.
func (s memberStore) ownerCountLocked(projectID string) int {
	owners := s.ownersLocked(projectID)
	primary := s.projects[projectID].OwnerID
	for _, m := range s.members {
		if m.ProjectID == projectID && m.ProfileID == primary {
			return len(owners)
		}
	}
	return len(owners) + 1
}

func (s memberStore) lockMemberLocked(projectID, memberID string, allowPrivileged bool) (*model.ProjectMember, error) {
	if s.beforeMemberLock != nil {
		s.beforeMemberLock(s.memDB)
	}
	m, ok := s.members[memberID]
	if !ok || m.ProjectID != projectID {
		return nil, model.ErrNotFound
	}
	if !allowPrivileged && rbac.Privileged(m.Role) {
		return nil, model.ErrPermissionDenied
	}
	return m, nil
}

func (s memberStore) reassignLocked(projectID string) {
	if owners := s.ownersLocked(projectID); len(owners) > 0 {
		s.projects[projectID].OwnerID = owners[0].ProfileID
	}
}

func (s memberStore) Remove(ctx context.Context, projectID, memberID, removedBy string, allowPrivileged bool) (*model.ProjectMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	project, ok := s.projects[projectID]
	if !ok {
		return nil, model.ErrNotFound
	}
	m, err := s.lockMemberLocked(projectID, memberID, allowPrivileged)
	if err != nil {
		return nil, err
	}
	if m.Role == rbac.RoleOwner && s.ownerCountLocked(projectID) <= 1 {
		return nil, model.ErrLastOwner
	}
	delete(s.members, memberID)
	if m.ProfileID == project.OwnerID {
		s.reassignLocked(projectID)
	}
	out := *m
	return &out, nil
}

func (s memberStore) UpdateRole(ctx context.Context, projectID, memberID string, role rbac.Role, changedBy string, allowPrivileged bool) (*model.ProjectMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	project, ok := s.projects[projectID]
	if !ok {
		return nil, model.ErrNotFound
	}
	m, err := s.lockMemberLocked(projectID, memberID, allowPrivileged)
	if err != nil {
		return nil, err
	}
	demoting := m.Role == rbac.RoleOwner && role != rbac.RoleOwner
	if demoting && s.ownerCountLocked(projectID) <= 1 {
		return nil, model.ErrLastOwner
	}
	m.Role = role
	if demoting && m.ProfileID == project.OwnerID {
		s.reassignLocked(projectID)
	}
	out := *m
	return &out, nil
}

// profiles

func (s profileStore) Get(ctx context.Context, id string) (*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (s profileStore) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGetByEmail != nil {
		return nil, s.failGetByEmail
	}
	for _, p := range s.profiles {
		if strings.EqualFold(p.Email, strings.TrimSpace(email)) {
			out := *p
			return &out, nil
		}
	}
	return nil, model.ErrNotFound
}

func (s profileStore) GetMany(ctx context.Context, ids []string) (map[string]*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]*model.Profile{}
	for _, id := range ids {
		if p, ok := s.profiles[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

func (s profileStore) Create(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if existing, ok := s.profiles[p.ID]; ok {
		out := *existing
		return &out, nil
	}
	created := *p
	created.CreatedAt = s.tick()
	s.profiles[p.ID] = &created
	out := created
	return &out, nil
}

func (s profileStore) Update(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	cur, ok := s.profiles[p.ID]
	if !ok {
		return nil, model.ErrNotFound
	}
	cur.Username, cur.AvatarURL = p.Username, p.AvatarURL
	out := *cur
	return &out, nil
}

func (s profileStore) Search(ctx context.Context, query string) ([]model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := strings.ToLower(query)
	out := []model.Profile{}
	for _, p := range s.profiles {
		if strings.Contains(strings.ToLower(p.Email), q) || strings.Contains(strings.ToLower(p.Username), q) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if len(out) > 10 {
		out = out[:10]
	}
	return out, nil
}

// accounts

func (s accountStore) CreateWithProfile(ctx context.Context, a *model.Account) (*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	for _, existing := range s.accounts {
		if strings.EqualFold(existing.Email, a.Email) {
			return nil, model.ErrEmailTaken
		}
	}
	a.ID = s.nextID("acc")
	a.CreatedAt = s.tick()
	acc := *a
	s.accounts[a.ID] = &acc
	p := &model.Profile{ID: a.ID, Username: a.Username, Email: a.Email, CreatedAt: a.CreatedAt}
	s.profiles[a.ID] = p
	out := *p
	return &out, nil
}

func (s accountStore) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if strings.EqualFold(a.Email, strings.TrimSpace(email)) {
			out := *a
			return &out, nil
		}
	}
	return nil, model.ErrNotFound
}

func (s accountStore) FindByID(ctx context.Context, id string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	out := *a
	return &out, nil
}

func (s accountStore) UpdateUsername(ctx context.Context, id, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUsername != nil {
		return s.failUsername
	}
	a, ok := s.accounts[id]
	if !ok {
		return model.ErrNotFound
	}
	a.Username = username
	return nil
}

func (s accountStore) UpdatePassword(ctx context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return model.ErrNotFound
	}
	a.PasswordHash = hash
	return nil
}

func (s accountStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	delete(s.accounts, id)
	delete(s.profiles, id)
	for k, m := range s.members {
		if m.ProfileID == id {
			delete(s.members, k)
		}
	}
	return nil
}
