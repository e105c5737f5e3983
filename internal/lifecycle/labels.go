package lifecycle

import (
	"strings"

	"github.com/Lixing-Zhang/furniture-store/backend/internal/models"
)

var statusLabels = map[models.OrderStatus]string{
	models.StatusPending:      "Pending",
	models.StatusConfirmed:    "Confirmed",
	models.StatusInProcessing: "In Processing",
	models.StatusDelivered:    "Delivered",
	models.StatusCancelled:    "Cancelled",
}

var actionPhrases = map[models.Action]string{
	models.ActionConfirm:    "confirm this order",
	models.ActionInProgress: "start processing this order",
	models.ActionDelivered:  "mark this order as delivered",
	models.ActionCancel:     "cancel this order",
}

var roleNames = map[models.Role]string{
	models.RoleCustomer: "customer",
	models.RoleVendor:   "vendor",
	models.RoleAdmin:    "admin",
}

// Label is the display name of a status. Unknown statuses are echoed back.
func Label(s models.OrderStatus) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// Valid reports whether s is a known status.
func Valid(s models.OrderStatus) bool {
	_, ok := statusLabels[s]
	return ok
}

func actionPhrase(a models.Action) string {
	if phrase, ok := actionPhrases[a]; ok {
		return phrase
	}
	return string(a) + " this order"
}

func roleName(r models.Role) string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	if r == "" {
		return "anonymous"
	}
	return strings.ToLower(string(r))
}

func labels(statuses []models.OrderStatus) string {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = Label(s)
	}
	return strings.Join(names, " or ")
}
