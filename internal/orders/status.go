package orders

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrUnknownStatus     = errors.New("unknown order status")
)

type Status string

const (
	StatusNew            Status = "new"
	StatusPendingPayment Status = "pending_payment"
	StatusProcessing     Status = "processing"
	StatusPaid           Status = "paid"
	StatusDelivering     Status = "delivering"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
)

// pending_payment never goes straight to paid; it passes through processing.
var validNext = map[Status]map[Status]bool{
	StatusNew:            {StatusProcessing: true, StatusCancelled: true},
	StatusPendingPayment: {StatusProcessing: true, StatusCancelled: true},
	StatusProcessing:     {StatusPaid: true, StatusDelivering: true, StatusCancelled: true},
	StatusPaid:           {StatusDelivering: true, StatusCancelled: true},
	StatusDelivering:     {StatusCompleted: true, StatusCancelled: true},
	StatusCompleted:      {},
	StatusCancelled:      {},
}

var ordinals = map[Status]int{
	StatusNew:            0,
	StatusPendingPayment: 0,
	StatusProcessing:     1,
	StatusPaid:           2,
	StatusDelivering:     3,
	StatusCompleted:      4,
	StatusCancelled:      -1,
}

// AllStatuses lists every stored value in forward order, cancelled last.
func AllStatuses() []Status {
	return []Status{
		StatusNew, StatusPendingPayment, StatusProcessing, StatusPaid,
		StatusDelivering, StatusCompleted, StatusCancelled,
	}
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := validNext[st]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Ordinal places the status on the progress line. Cancelled is -1.
func (s Status) Ordinal() int {
	if n, ok := ordinals[s]; ok {
		return n
	}
	return -1
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	st, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// ForwardPath returns the shortest chain of legal transitions leading from
// `from` to `to`, excluding `from` itself. Cancellation is never part of a
// path. It returns ErrInvalidTransition when `to` is unreachable.
func ForwardPath(from, to Status) ([]Status, error) {
	if from == to {
		return nil, nil
	}
	prev := map[Status]Status{from: from}
	queue := []Status{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range AllStatuses() {
			if next == StatusCancelled || !validNext[cur][next] {
				continue
			}
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = cur
			if next == to {
				var path []Status
				for s := to; s != from; s = prev[s] {
					path = append([]Status{s}, path...)
				}
				return path, nil
			}
			queue = append(queue, next)
		}
	}
	return nil, fmt.Errorf("%w: no forward path %s -> %s", ErrInvalidTransition, from, to)
}
