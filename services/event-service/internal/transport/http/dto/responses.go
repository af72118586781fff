package dto

type CategoryDto struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type UserDto struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type UserShortDto struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type LocationResp struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type EventShortDto struct {
	ID                string       `json:"id"`
	Annotation        string       `json:"annotation"`
	Category          CategoryDto  `json:"category"`
	ConfirmedRequests int64        `json:"confirmedRequests"`
	EventDate         string       `json:"eventDate"`
	Initiator         UserShortDto `json:"initiator"`
	Paid              bool         `json:"paid"`
	Title             string       `json:"title"`
	Views             int64        `json:"views"`
}

type EventFullDto struct {
	EventShortDto
	CreatedOn         string       `json:"createdOn"`
	Description       string       `json:"description"`
	Location          LocationResp `json:"location"`
	ParticipantLimit  int          `json:"participantLimit"`
	PublishedOn       *string      `json:"publishedOn"`
	RequestModeration bool         `json:"requestModeration"`
	State             string       `json:"state"`
}

type ParticipationRequestDto struct {
	ID        string `json:"id"`
	Created   string `json:"created"`
	Event     string `json:"event"`
	Requester string `json:"requester"`
	Status    string `json:"status"`
}

type RequestStatusUpdateResult struct {
	ConfirmedRequests []ParticipationRequestDto `json:"confirmedRequests"`
	RejectedRequests  []ParticipationRequestDto `json:"rejectedRequests"`
}
