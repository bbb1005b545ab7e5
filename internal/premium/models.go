package premium

import "time"

// Kind scopes a grant to a single user or a whole population unit.
type Kind string

const (
	KindUser   Kind = "user"
	KindServer Kind = "server"
)

func (k Kind) String() string {
	return string(k)
}

func (k Kind) IsValid() bool {
	return k == KindUser || k == KindServer
}

// Grant is one time-bounded entitlement. The notified flags are monotone:
// once true they never revert. A grant past its expiry is deleted right after
// its terminal notification.
type Grant struct {
	ID          int        `json:"id"`
	Kind        Kind       `json:"kind"`
	SubjectID   string     `json:"subject_id"`
	ExpiresAt   *time.Time `json:"expires_at"`
	Notified7d  bool       `json:"notified_7d"`
	Notified48h bool       `json:"notified_48h"`
	GrantedBy   string     `json:"granted_by"`
	Reason      string     `json:"reason"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Reminder thresholds for the expiry pipeline.
const (
	ReminderWindow7d  = 7 * 24 * time.Hour
	ReminderWindow48h = 48 * time.Hour
)
