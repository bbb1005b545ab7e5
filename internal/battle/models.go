package battle

import "time"

// Kind discriminates player-versus-environment from player-versus-player.
type Kind string

const (
	KindPvE Kind = "pve"
	KindPvP Kind = "pvp"
)

func (k Kind) String() string {
	return string(k)
}

func (k Kind) IsValid() bool {
	return k == KindPvE || k == KindPvP
}

// Status is the battle state machine: active is initial, finished is
// terminal with no outgoing transitions.
type Status string

const (
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

func (s Status) String() string {
	return string(s)
}

// Action is the closed set of moves an actor may resolve.
type Action string

const (
	ActionAttack  Action = "attack"
	ActionDefend  Action = "defend"
	ActionSpecial Action = "special"
)

func (a Action) String() string {
	return string(a)
}

func (a Action) IsValid() bool {
	return a == ActionAttack || a == ActionDefend || a == ActionSpecial
}

func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionAttack:
		return ActionAttack, true
	case ActionDefend:
		return ActionDefend, true
	case ActionSpecial:
		return ActionSpecial, true
	default:
		return "", false
	}
}

// Outcome is the result of one resolution step.
type Outcome string

const (
	OutcomeWin      Outcome = "win"
	OutcomeContinue Outcome = "continue"
)

func (o Outcome) String() string {
	return string(o)
}

type Battle struct {
	ID           int        `json:"id"`
	PopulationID string     `json:"population_id"`
	Kind         Kind       `json:"kind"`
	ChallengerID string     `json:"challenger_id"`
	OpponentRef  string     `json:"opponent_ref"`
	Status       Status     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at"`
}

// LogEntry is one appended resolution step. SequenceIndex is strictly
// increasing per battle with no gaps.
type LogEntry struct {
	BattleID      int       `json:"battle_id"`
	SequenceIndex int       `json:"sequence_index"`
	ActorID       string    `json:"actor_id"`
	Action        Action    `json:"action"`
	Outcome       Outcome   `json:"outcome"`
	Narrative     string    `json:"narrative"`
	CreatedAt     time.Time `json:"created_at"`
}
