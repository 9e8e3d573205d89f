package model

import "time"

// UnlockMethod records how a day became available
type UnlockMethod string

const (
	UnlockAutomatic UnlockMethod = "automatic" // scheduled time reached
	UnlockManual    UnlockMethod = "manual"    // operator fast-track
)

// NotificationKind classifies program notifications
type NotificationKind string

const (
	NotificationDayUnlocked       NotificationKind = "day_unlocked"
	NotificationSupportEscalation NotificationKind = "support_escalation"
)

// ModuleState is the derived lifecycle state of a day module
type ModuleState string

const (
	ModuleLocked             ModuleState = "locked"
	ModuleScheduledForUnlock ModuleState = "scheduled_for_unlock"
	ModuleUnlocked           ModuleState = "unlocked"
	ModuleCompleted          ModuleState = "completed"
)

// ResponseData is a participant's answer to a task
type ResponseData struct {
	Text            string   `json:"text,omitempty" bson:"text,omitempty"`                       // Free text / reflection
	SelectedOption  string   `json:"selectedOption,omitempty" bson:"selectedOption,omitempty"`   // Single choice
	SelectedOptions []string `json:"selectedOptions,omitempty" bson:"selectedOptions,omitempty"` // Checklist
	Rating          *int     `json:"rating,omitempty" bson:"rating,omitempty"`                   // Rating scale
	Viewed          bool     `json:"viewed,omitempty" bson:"viewed,omitempty"`                   // Video/text acknowledged
}

// IsEmpty reports whether the response carries no answer at all
func (r ResponseData) IsEmpty() bool {
	return r.Text == "" && r.SelectedOption == "" && len(r.SelectedOptions) == 0 && r.Rating == nil && !r.Viewed
}

// TaskResponse is one recorded answer within a day module
type TaskResponse struct {
	TaskID     string       `json:"taskId" bson:"taskId"`
	Response   ResponseData `json:"response" bson:"response"`
	AnsweredAt time.Time    `json:"answeredAt" bson:"answeredAt"`
}

// BoundTask is a task reference fixed onto a module when its level is assigned
type BoundTask struct {
	TaskID   string   `json:"taskId" bson:"taskId"`
	TaskType TaskType `json:"taskType" bson:"taskType"`
	Title    string   `json:"title" bson:"title"`
	Required bool     `json:"required" bson:"required"`
	Followup bool     `json:"followup,omitempty" bson:"followup,omitempty"` // Reached through an assessment answer
}

// DayModule is the participant's state for one program day
type DayModule struct {
	Day               int            `json:"day" bson:"day"`
	Unlocked          bool           `json:"unlocked" bson:"unlocked"`
	UnlockedAt        *time.Time     `json:"unlockedAt,omitempty" bson:"unlockedAt,omitempty"`
	ScheduledUnlockAt *time.Time     `json:"scheduledUnlockAt,omitempty" bson:"scheduledUnlockAt,omitempty"`
	Completed         bool           `json:"completed" bson:"completed"`
	CompletedAt       *time.Time     `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	ProgressPercent   float64        `json:"progressPercent" bson:"progressPercent"` // 0-100
	TaskResponses     []TaskResponse `json:"taskResponses" bson:"taskResponses"`

	// Content binding, set once
	Bound    bool        `json:"bound" bson:"bound"`
	LevelKey string      `json:"levelKey,omitempty" bson:"levelKey,omitempty"`
	Tasks    []BoundTask `json:"tasks,omitempty" bson:"tasks,omitempty"`
}

// State derives the module lifecycle state
func (m *DayModule) State() ModuleState {
	switch {
	case m.Completed:
		return ModuleCompleted
	case m.Unlocked:
		return ModuleUnlocked
	case m.ScheduledUnlockAt != nil:
		return ModuleScheduledForUnlock
	default:
		return ModuleLocked
	}
}

// Response returns the recorded response for a task, if any
func (m *DayModule) Response(taskID string) (ResponseData, bool) {
	for _, r := range m.TaskResponses {
		if r.TaskID == taskID {
			return r.Response, true
		}
	}
	return ResponseData{}, false
}

// BoundTask returns the bound task with the given ID
func (m *DayModule) BoundTask(taskID string) (BoundTask, bool) {
	for _, t := range m.Tasks {
		if t.TaskID == taskID {
			return t, true
		}
	}
	return BoundTask{}, false
}

// BranchingResult is the immutable outcome of the branching assessment
type BranchingResult struct {
	Responses    map[string]int `json:"responses" bson:"responses"`
	TotalScore   int            `json:"totalScore" bson:"totalScore"`
	OutcomeLevel string         `json:"outcomeLevel" bson:"outcomeLevel"`
	Percentage   float64        `json:"percentage" bson:"percentage"`
	HighestTier  bool           `json:"highestTier" bson:"highestTier"` // Gates escalation
	CompletedAt  time.Time      `json:"completedAt" bson:"completedAt"`
}

// UnlockScheduleEntry is the append-only audit record for one day's unlock
type UnlockScheduleEntry struct {
	Day               int          `json:"day" bson:"day"`
	ScheduledUnlockAt time.Time    `json:"scheduledUnlockAt" bson:"scheduledUnlockAt"`
	ActualUnlockedAt  *time.Time   `json:"actualUnlockedAt,omitempty" bson:"actualUnlockedAt,omitempty"`
	UnlockMethod      UnlockMethod `json:"unlockMethod" bson:"unlockMethod"`
}

// WaitOverrides replaces the global wait-time policy for one participant
type WaitOverrides struct {
	WaitHours    *float64          `json:"waitHours,omitempty" bson:"waitHours,omitempty"`       // All days
	DayWaitHours map[string]float64 `json:"dayWaitHours,omitempty" bson:"dayWaitHours,omitempty"` // day number -> hours
}

// Notification is an append-only program event surfaced to operators or the participant
type Notification struct {
	ID        string           `json:"id" bson:"id"`
	Kind      NotificationKind `json:"kind" bson:"kind"`
	Day       int              `json:"day" bson:"day"`
	Message   string           `json:"message" bson:"message"`
	CreatedAt time.Time        `json:"createdAt" bson:"createdAt"`
}

// ParticipantProgram is the per-participant progression document
type ParticipantProgram struct {
	ID              string      `json:"id" bson:"_id"` // Participant ID
	Language        string      `json:"language" bson:"language"`
	CurrentDay      int         `json:"currentDay" bson:"currentDay"`
	OverallProgress float64     `json:"overallProgress" bson:"overallProgress"`
	DayModules      []DayModule `json:"dayModules" bson:"dayModules"`

	BranchingAssessment *BranchingResult `json:"branchingAssessment,omitempty" bson:"branchingAssessment,omitempty"`
	OutcomeLevel        string           `json:"outcomeLevel,omitempty" bson:"outcomeLevel,omitempty"`

	UnlockSchedule []UnlockScheduleEntry `json:"unlockSchedule" bson:"unlockSchedule"`
	WaitPlanHours  []float64             `json:"waitPlanHours,omitempty" bson:"waitPlanHours,omitempty"` // index = day, resolved at assessment

	ConsecutiveNegativeCount int            `json:"consecutiveNegativeCount" bson:"consecutiveNegativeCount"`
	LastSignalDay            *int           `json:"lastSignalDay,omitempty" bson:"lastSignalDay,omitempty"` // module last counted in the streak
	EscalationTriggered      bool           `json:"escalationTriggered" bson:"escalationTriggered"`
	CustomWaitOverrides      *WaitOverrides `json:"customWaitOverrides,omitempty" bson:"customWaitOverrides,omitempty"`
	Notifications            []Notification `json:"notifications" bson:"notifications"`

	Version   int64     `json:"version" bson:"version"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Module returns the module for a day index
func (p *ParticipantProgram) Module(day int) (*DayModule, bool) {
	if day < 0 || day >= len(p.DayModules) {
		return nil, false
	}
	return &p.DayModules[day], true
}

// ScheduleEntry returns the unlock schedule entry for a day
func (p *ParticipantProgram) ScheduleEntry(day int) (*UnlockScheduleEntry, bool) {
	for i := range p.UnlockSchedule {
		if p.UnlockSchedule[i].Day == day {
			return &p.UnlockSchedule[i], true
		}
	}
	return nil, false
}

// NextPendingUnlock returns the earliest scheduled time of a locked module
// whose previous day is completed. Modules still waiting on their
// predecessor are not due regardless of their time.
func (p *ParticipantProgram) NextPendingUnlock() (time.Time, bool) {
	var next time.Time
	found := false
	for i := range p.DayModules {
		m := &p.DayModules[i]
		if m.Unlocked || m.ScheduledUnlockAt == nil {
			continue
		}
		if i > 0 && !p.DayModules[i-1].Completed {
			continue
		}
		if !found || m.ScheduledUnlockAt.Before(next) {
			next = *m.ScheduledUnlockAt
			found = true
		}
	}
	return next, found
}

// Clone returns a deep copy so a failed mutation never leaks into the loaded document
func (p *ParticipantProgram) Clone() *ParticipantProgram {
	if p == nil {
		return nil
	}
	c := *p
	if p.DayModules != nil {
		c.DayModules = make([]DayModule, len(p.DayModules))
	}
	for i, m := range p.DayModules {
		cm := m
		cm.UnlockedAt = cloneTime(m.UnlockedAt)
		cm.ScheduledUnlockAt = cloneTime(m.ScheduledUnlockAt)
		cm.CompletedAt = cloneTime(m.CompletedAt)
		if m.TaskResponses != nil {
			cm.TaskResponses = make([]TaskResponse, len(m.TaskResponses))
		}
		for j, r := range m.TaskResponses {
			cr := r
			cr.Response.SelectedOptions = cloneSlice(r.Response.SelectedOptions)
			if r.Response.Rating != nil {
				v := *r.Response.Rating
				cr.Response.Rating = &v
			}
			cm.TaskResponses[j] = cr
		}
		cm.Tasks = cloneSlice(m.Tasks)
		c.DayModules[i] = cm
	}
	if p.BranchingAssessment != nil {
		b := *p.BranchingAssessment
		b.Responses = make(map[string]int, len(p.BranchingAssessment.Responses))
		for k, v := range p.BranchingAssessment.Responses {
			b.Responses[k] = v
		}
		c.BranchingAssessment = &b
	}
	if p.UnlockSchedule != nil {
		c.UnlockSchedule = make([]UnlockScheduleEntry, len(p.UnlockSchedule))
	}
	for i, e := range p.UnlockSchedule {
		ce := e
		ce.ActualUnlockedAt = cloneTime(e.ActualUnlockedAt)
		c.UnlockSchedule[i] = ce
	}
	c.WaitPlanHours = cloneSlice(p.WaitPlanHours)
	if p.CustomWaitOverrides != nil {
		o := WaitOverrides{}
		if p.CustomWaitOverrides.WaitHours != nil {
			v := *p.CustomWaitOverrides.WaitHours
			o.WaitHours = &v
		}
		if p.CustomWaitOverrides.DayWaitHours != nil {
			o.DayWaitHours = make(map[string]float64, len(p.CustomWaitOverrides.DayWaitHours))
			for k, v := range p.CustomWaitOverrides.DayWaitHours {
				o.DayWaitHours[k] = v
			}
		}
		c.CustomWaitOverrides = &o
	}
	c.Notifications = cloneSlice(p.Notifications)
	c.LastSignalDay = cloneInt(p.LastSignalDay)
	return &c
}

// cloneSlice keeps nil and empty distinct so [] survives a round trip as []
func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
