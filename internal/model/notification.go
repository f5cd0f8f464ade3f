package model

// NotificationData holds the unread counters shown as sidebar badges.
type NotificationData struct {
	NewApprovals       int `json:"new_approvals"`
	NewRequests        int `json:"new_requests"`
	TotalNotifications int `json:"total_notifications"`
}

// Stats aggregates the tool and request counters for the dashboard banner.
// The two backend endpoints fill disjoint subsets of the fields.
type Stats struct {
	TotalTools       int `json:"total_tools,omitempty"`
	TotalUsers       int `json:"total_users,omitempty"`
	TotalRequests    int `json:"total_requests,omitempty"`
	TotalLent        int `json:"total_lent,omitempty"`
	TotalBorrowed    int `json:"total_borrowed,omitempty"`
	AvailableTools   int `json:"available_tools,omitempty"`
	MyTools          int `json:"my_tools,omitempty"`
	PendingRequests  int `json:"pending_requests,omitempty"`
	ApprovedRequests int `json:"approved_requests,omitempty"`
	IncomingPending  int `json:"incoming_pending,omitempty"`
}

// Merge overlays the non-zero counters of other onto s.
func (s Stats) Merge(other Stats) Stats {
	pick := func(a, b int) int {
		if b != 0 {
			return b
		}
		return a
	}
	return Stats{
		TotalTools:       pick(s.TotalTools, other.TotalTools),
		TotalUsers:       pick(s.TotalUsers, other.TotalUsers),
		TotalRequests:    pick(s.TotalRequests, other.TotalRequests),
		TotalLent:        pick(s.TotalLent, other.TotalLent),
		TotalBorrowed:    pick(s.TotalBorrowed, other.TotalBorrowed),
		AvailableTools:   pick(s.AvailableTools, other.AvailableTools),
		MyTools:          pick(s.MyTools, other.MyTools),
		PendingRequests:  pick(s.PendingRequests, other.PendingRequests),
		ApprovedRequests: pick(s.ApprovedRequests, other.ApprovedRequests),
		IncomingPending:  pick(s.IncomingPending, other.IncomingPending),
	}
}
