package domain

import "strings"

type EventState string

const (
	StatePending   EventState = "PENDING"
	StatePublished EventState = "PUBLISHED"
	StateCanceled  EventState = "CANCELED"
	StateRejected  EventState = "REJECTED"
)

func (s EventState) Valid() bool {
	switch s {
	case StatePending, StatePublished, StateCanceled, StateRejected:
		return true
	}
	return false
}

func ParseEventState(s string) (EventState, error) {
	st := EventState(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", ErrValidationMeta("unknown event state", map[string]string{"state": s})
	}
	return st, nil
}

type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestConfirmed RequestStatus = "CONFIRMED"
	RequestRejected  RequestStatus = "REJECTED"
	RequestCanceled  RequestStatus = "CANCELED"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestConfirmed, RequestRejected, RequestCanceled:
		return true
	}
	return false
}

// ParseModerationStatus accepts only the two outcomes an initiator may assign.
func ParseModerationStatus(s string) (RequestStatus, error) {
	switch st := RequestStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case RequestConfirmed, RequestRejected:
		return st, nil
	}
	return "", ErrValidationMeta("status must be CONFIRMED or REJECTED", map[string]string{"status": s})
}

// OwnerStateAction is what an initiator may ask for when patching an unpublished event.
type OwnerStateAction string

const (
	SendToReview OwnerStateAction = "SEND_TO_REVIEW"
	CancelReview OwnerStateAction = "CANCEL_REVIEW"
)

func ParseOwnerStateAction(s string) (OwnerStateAction, error) {
	switch a := OwnerStateAction(strings.ToUpper(strings.TrimSpace(s))); a {
	case SendToReview, CancelReview:
		return a, nil
	}
	return "", ErrValidationMeta("unknown stateAction", map[string]string{"stateAction": s})
}

// AdminStateAction is what an admin may ask for when patching any event.
type AdminStateAction string

const (
	PublishEvent AdminStateAction = "PUBLISH_EVENT"
	RejectEvent  AdminStateAction = "REJECT_EVENT"
)

func ParseAdminStateAction(s string) (AdminStateAction, error) {
	switch a := AdminStateAction(strings.ToUpper(strings.TrimSpace(s))); a {
	case PublishEvent, RejectEvent:
		return a, nil
	}
	return "", ErrValidationMeta("unknown stateAction", map[string]string{"stateAction": s})
}
