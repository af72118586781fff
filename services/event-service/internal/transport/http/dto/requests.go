package dto

// Dates travel as "2006-01-02 15:04:05" strings.

type LocationDto struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
}

type NewEventReq struct {
	Annotation        string       `json:"annotation" validate:"notblank,min=20,max=2000"`
	Category          string       `json:"category" validate:"required,id"`
	Description       string       `json:"description" validate:"notblank,min=20,max=7000"`
	EventDate         string       `json:"eventDate" validate:"required,datetime=2006-01-02 15:04:05"`
	Location          *LocationDto `json:"location" validate:"required"`
	Paid              *bool        `json:"paid"`
	ParticipantLimit  *int         `json:"participantLimit" validate:"omitempty,gte=0"`
	RequestModeration *bool        `json:"requestModeration"`
	Title             string       `json:"title" validate:"notblank,min=3,max=120"`
}

// UpdateEventReq is shared by the owner and admin patch endpoints; absent fields stay unchanged.
type UpdateEventReq struct {
	Annotation        *string      `json:"annotation" validate:"omitempty,notblank,min=20,max=2000"`
	Category          *string      `json:"category" validate:"omitempty,id"`
	Description       *string      `json:"description" validate:"omitempty,notblank,min=20,max=7000"`
	EventDate         *string      `json:"eventDate" validate:"omitempty,datetime=2006-01-02 15:04:05"`
	Location          *LocationDto `json:"location"`
	Paid              *bool        `json:"paid"`
	ParticipantLimit  *int         `json:"participantLimit" validate:"omitempty,gte=0"`
	RequestModeration *bool        `json:"requestModeration"`
	StateAction       *string      `json:"stateAction"`
	Title             *string      `json:"title" validate:"omitempty,notblank,min=3,max=120"`
}

type RequestStatusUpdateReq struct {
	RequestIDs []string `json:"requestIds" validate:"dive,id"`
	Status     string   `json:"status" validate:"required"`
}

type NewUserReq struct {
	Name  string `json:"name" validate:"notblank,min=2,max=250"`
	Email string `json:"email" validate:"required,email,min=6,max=254"`
}

type CategoryReq struct {
	Name string `json:"name" validate:"notblank,max=50"`
}
