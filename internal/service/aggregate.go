package service

import (
	"sort"

	"collabtodo/internal/model"
	"collabtodo/pkg/rbac"
)

const unknownProfileField = "Unknown"

// mergeProjects combines owned-by and member-of results into one list,
// one entry per project id. The membership role wins; a project that is
// only owned gets role owner. The result is ordered by created_at, then id.
func mergeProjects(owned []model.Project, memberOf []model.MembershipProject) []model.MembershipProject {
	byID := make(map[string]model.MembershipProject, len(owned)+len(memberOf))
	for _, mp := range memberOf {
		byID[mp.Project.ID] = mp
	}
	for _, p := range owned {
		if _, ok := byID[p.ID]; !ok {
			byID[p.ID] = model.MembershipProject{Project: p, Role: rbac.RoleOwner}
		}
	}

	merged := make([]model.MembershipProject, 0, len(byID))
	for _, mp := range byID {
		merged = append(merged, mp)
	}
	sort.Slice(merged, func(i, j int) bool {
		a, b := merged[i].Project, merged[j].Project
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return merged
}

// withStats annotates each project. Projects missing from stats were
// deleted between the two queries and are dropped.
func withStats(projects []model.MembershipProject, stats map[string]model.ProjectStats) []model.ProjectWithStats {
	out := make([]model.ProjectWithStats, 0, len(projects))
	for _, mp := range projects {
		s, ok := stats[mp.Project.ID]
		if !ok {
			continue
		}
		out = append(out, model.ProjectWithStats{
			Project:      mp.Project,
			ProjectStats: s,
			UserRole:     mp.Role,
			IsOwner:      mp.Role == rbac.RoleOwner,
		})
	}
	return out
}

// joinMembers flattens profile fields onto memberships, keeping their
// order. A membership whose profile is gone shows "Unknown". The primary
// owner always reports role owner.
func joinMembers(members []model.ProjectMember, profiles map[string]*model.Profile, primaryOwner string) []model.MemberWithProfile {
	out := make([]model.MemberWithProfile, 0, len(members))
	for _, m := range members {
		mwp := model.MemberWithProfile{
			ProjectMember: m,
			Username:      unknownProfileField,
			Email:         unknownProfileField,
		}
		if m.ProfileID == primaryOwner {
			mwp.Role = rbac.RoleOwner
		}
		if p, ok := profiles[m.ProfileID]; ok {
			mwp.Username = p.Username
			mwp.Email = p.Email
			mwp.AvatarURL = p.AvatarURL
		}
		out = append(out, mwp)
	}
	return out
}

func profileIDs(members []model.ProjectMember) []string {
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ProfileID)
	}
	return ids
}
