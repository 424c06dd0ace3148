package store

import "time"

// Seed builds the initial state used when no snapshot exists yet: one default
// community so the feed is not empty on first launch.
func Seed() *State {
	st := &State{}
	now := time.Now().UTC()
	st.Tenants = append(st.Tenants, &Tenant{
		ID:          st.NextID(),
		Name:        "SignalScope HQ",
		Tagline:     "Open investigations, shared leads",
		Description: "The default community for cross-checking public signals: post a lead, attach sources, and work cases together.",
		Channels:    []string{"general", "leads", "cases", "remote-viewing"},
		Rooms: []Room{
			{Name: "Daily Sync", Topic: "What moved overnight", Schedule: "09:30 UTC", Attendees: "open floor"},
			{Name: "Case Review", Topic: "Stalled checklists", Schedule: "Thu 17:00 UTC", Attendees: "case owners"},
		},
		Theme:     Theme{Brand: "#0b3a53", Accent: "#d07a2f", Glow: "rgba(11, 58, 83, 0.16)"},
		CreatedAt: now,
	})
	tenantID := st.Tenants[0].ID
	st.Posts = append(st.Posts, &Post{
		ID:        st.NextID(),
		TenantID:  tenantID,
		Type:      "brief",
		Title:     "Welcome: how leads become cases",
		Summary:   "Post a source, let others cross-check it, and promote confirmed leads into a case with a checklist.",
		URL:       "https://example.com/signalscope-field-guide",
		Source:    "example.com",
		Status:    "open",
		Tags:      []string{"meta", "howto"},
		CreatedAt: now,
	})
	caseID := st.NextID()
	st.Cases = append(st.Cases, &Case{
		ID:        caseID,
		TenantID:  tenantID,
		Title:     "Calibrate the daily remote viewing round",
		State:     "active",
		CreatedAt: now,
	})
	st.Tasks = append(st.Tasks, &Task{
		ID:        st.NextID(),
		CaseID:    caseID,
		Label:     "Submit a prediction before midnight UTC",
		CreatedAt: now,
	})
	return st
}
