// Package lifecycle decides which order status transitions are legal and
// for whom. AttemptTransition is a pure function of the current status,
// the requested action and the actor's role; persisting the result is the
// caller's job.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/Lixing-Zhang/furniture-store/backend/internal/models"
)

// Kind classifies a rejected transition.
type Kind string

const (
	KindAlreadyInTargetState Kind = "ALREADY_IN_TARGET_STATE"
	KindTerminalState        Kind = "TERMINAL_STATE"
	KindNotPermitted         Kind = "NOT_PERMITTED"
	KindInvalidSourceState   Kind = "INVALID_SOURCE_STATE"
	KindUnknownAction        Kind = "UNKNOWN_ACTION"
)

// Sentinels for errors.Is. A *TransitionError matches the one for its Kind.
var (
	ErrAlreadyInTargetState = errors.New("order is already in the target state")
	ErrTerminalState        = errors.New("order is in a terminal state")
	ErrNotPermitted         = errors.New("role may not perform this action")
	ErrInvalidSourceState   = errors.New("order is not in a state this action applies to")
	ErrUnknownAction        = errors.New("unknown action")
)

// TransitionError explains why a requested transition was rejected.
type TransitionError struct {
	Kind   Kind
	Action models.Action
	From   models.OrderStatus
	To     models.OrderStatus
	Role   models.Role
}

func (e *TransitionError) Error() string {
	switch e.Kind {
	case KindAlreadyInTargetState:
		return fmt.Sprintf("order is already %s", Label(e.From))
	case KindTerminalState:
		return fmt.Sprintf("order is %s and can no longer change", Label(e.From))
	case KindNotPermitted:
		return fmt.Sprintf("%s may not %s", roleName(e.Role), actionPhrase(e.Action))
	case KindInvalidSourceState:
		return fmt.Sprintf("cannot %s while it is %s; it must be %s",
			actionPhrase(e.Action), Label(e.From), labels(rules[e.Action].from))
	default:
		return fmt.Sprintf("unknown action %q", e.Action)
	}
}

// Is lets errors.Is match a TransitionError against the Kind sentinels.
func (e *TransitionError) Is(target error) bool {
	switch target {
	case ErrAlreadyInTargetState:
		return e.Kind == KindAlreadyInTargetState
	case ErrTerminalState:
		return e.Kind == KindTerminalState
	case ErrNotPermitted:
		return e.Kind == KindNotPermitted
	case ErrInvalidSourceState:
		return e.Kind == KindInvalidSourceState
	case ErrUnknownAction:
		return e.Kind == KindUnknownAction
	}
	return false
}

type rule struct {
	from  []models.OrderStatus
	to    models.OrderStatus
	roles []models.Role
}

// rules is the full transition table. Cancellation from PENDING or
// CONFIRMED only is a policy default.
var rules = map[models.Action]rule{
	models.ActionConfirm: {
		from:  []models.OrderStatus{models.StatusPending},
		to:    models.StatusConfirmed,
		roles: []models.Role{models.RoleVendor, models.RoleAdmin},
	},
	models.ActionInProgress: {
		from:  []models.OrderStatus{models.StatusConfirmed},
		to:    models.StatusInProcessing,
		roles: []models.Role{models.RoleVendor},
	},
	models.ActionDelivered: {
		from:  []models.OrderStatus{models.StatusInProcessing},
		to:    models.StatusDelivered,
		roles: []models.Role{models.RoleVendor},
	},
	models.ActionCancel: {
		from:  []models.OrderStatus{models.StatusPending, models.StatusConfirmed},
		to:    models.StatusCancelled,
		roles: []models.Role{models.RoleCustomer, models.RoleAdmin},
	},
}

// actionOrder fixes the order AvailableActions reports in.
var actionOrder = []models.Action{
	models.ActionConfirm,
	models.ActionInProgress,
	models.ActionDelivered,
	models.ActionCancel,
}

// Target returns the status an action leads to.
func Target(action models.Action) (models.OrderStatus, bool) {
	r, ok := rules[action]
	return r.to, ok
}

// AttemptTransition returns the status the order moves to, or a
// *TransitionError. Checks run in order: unknown action, already in
// target, terminal source, role, source state.
func AttemptTransition(current models.OrderStatus, action models.Action, role models.Role) (models.OrderStatus, error) {
	r, ok := rules[action]
	if !ok {
		return current, &TransitionError{Kind: KindUnknownAction, Action: action, From: current, Role: role}
	}

	reject := func(kind Kind) (models.OrderStatus, error) {
		return current, &TransitionError{Kind: kind, Action: action, From: current, To: r.to, Role: role}
	}

	if current == r.to {
		return reject(KindAlreadyInTargetState)
	}
	if current.IsTerminal() {
		return reject(KindTerminalState)
	}
	if !containsRole(r.roles, role) {
		return reject(KindNotPermitted)
	}
	if !containsStatus(r.from, current) {
		return reject(KindInvalidSourceState)
	}

	return r.to, nil
}

// AvailableActions lists the actions the role could take right now.
func AvailableActions(current models.OrderStatus, role models.Role) []models.Action {
	actions := []models.Action{}
	for _, action := range actionOrder {
		if _, err := AttemptTransition(current, action, role); err == nil {
			actions = append(actions, action)
		}
	}
	return actions
}

func containsRole(roles []models.Role, role models.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func containsStatus(statuses []models.OrderStatus, status models.OrderStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
