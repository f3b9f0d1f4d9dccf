package models

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusRejected  = "rejected"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

const (
	SortByID      = "id"
	SortByClient  = "client"
	SortByEvent   = "event"
	SortByVenue   = "venue"
	SortByBudget  = "budget"
	SortByStatus  = "status"
	SortByArrival = "arrival"

	SortAsc  = "asc"
	SortDesc = "desc"
)

const (
	// DefaultRedisTTL время жизни состояния оператора в Redis
	DefaultRedisTTL = 24 * 60 * 60 // 24 часа в секундах

	// DefaultGracePeriodHours сколько часов терминальные заявки остаются в активном списке
	DefaultGracePeriodHours = 24

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 1000

	// RateLimitRequests количество запросов в окне
	RateLimitRequests = 20

	// RateLimitWindow окно ограничения частоты запросов
	RateLimitWindow = 60 // 1 минута в секундах
)

// transitions lists the legal forward status changes for an inquiry.
// Terminal states have no outgoing edges.
var transitions = map[string][]string{
	StatusPending:   {StatusConfirmed, StatusRejected, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether an inquiry may move from one status to another.
func CanTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether a status admits no further transitions.
func IsTerminalStatus(status string) bool {
	return len(transitions[status]) == 0
}

// ValidStatus reports whether the string is a known inquiry status.
func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusConfirmed, StatusRejected, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}
