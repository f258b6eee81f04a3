// internal/platform/models.go
package platform

// SlotSearchRequest is the first-available-slot request body.
type SlotSearchRequest struct {
	Dates                          []string            `json:"dates"`
	CustomerInformation            CustomerInformation `json:"customerInformation"`
	VehicleInformation             VehicleInformation  `json:"vehicleInformation"`
	LaborOpcodeList                []string            `json:"laborOpcodeList"`
	SelectedAvailabilityAttributes map[string]string   `json:"selectedAvailabilityAttributes"`
	AllAvailabilityAttributes      map[string]string   `json:"allAvailabilityAttributes"`
}

type CustomerInformation struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	UUID      string `json:"uuid"`
	Key       string `json:"key"`
}

type VehicleInformation struct {
	UUID string `json:"uuid"`
	VIN  string `json:"vin"`
}

// SlotSearchResponse carries an optional combined date-time string; an empty
// value means no slot was found for the requested date.
type SlotSearchResponse struct {
	DateTime string `json:"dateTime"`
}

// AppointmentRequest is the appointment-create request body.
type AppointmentRequest struct {
	CustomerUUID           string                 `json:"customerUuid"`
	VehicleInformation     AppointmentVehicle     `json:"vehicleInformation"`
	AppointmentInformation AppointmentInformation `json:"appointmentInformation"`
}

type AppointmentVehicle struct {
	VehicleUUID string `json:"vehicleUuid"`
	VIN         string `json:"vin"`
}

type AppointmentInformation struct {
	AppointmentStartDateTime string                `json:"appointmentStartDateTime"`
	AppointmentEndDateTime   string                `json:"appointmentEndDateTime"`
	ServiceList              []ServiceItem         `json:"serviceList"`
	Comments                 string                `json:"comments"`
	InternalNotes            string                `json:"internalNotes"`
	CustomerPreference       AppointmentPreference `json:"customerAppointmentPreference"`
	Status                   *string               `json:"status"`
	Recall                   bool                  `json:"recall"`
	PushToDMS                bool                  `json:"pushToDms"`
}

type ServiceItem struct {
	Title         string `json:"title"`
	OperationType string `json:"operationType"`
	Description   string `json:"description,omitempty"`
}

type AppointmentPreference struct {
	NotifyCustomer    bool `json:"notifyCustomer"`
	EmailConfirmation bool `json:"emailConfirmation"`
	TextConfirmation  bool `json:"textConfirmation"`
	EmailReminder     bool `json:"emailReminder"`
	TextReminder      bool `json:"textReminder"`
}

// AppointmentResponse carries the created appointment identifier.
type AppointmentResponse struct {
	AppointmentUUID string `json:"appointmentUuid"`
}

// MessageRequest is the communication-send request body.
type MessageRequest struct {
	MessageAttributes        MessageAttributes        `json:"messageAttributes"`
	MessageSendingAttributes MessageSendingAttributes `json:"messageSendingAttributes"`
}

type MessageAttributes struct {
	Body           string `json:"body"`
	Subject        string `json:"subject,omitempty"`
	IsManual       bool   `json:"isManual"`
	Protocol       string `json:"protocol"` // "TEXT" or "EMAIL"
	Type           string `json:"type"`     // "OUTGOING"
	MessageType    string `json:"messageType"`
	IsRead         bool   `json:"isRead"`
	MessagePurpose string `json:"messagePurpose"` // "AC" = appointment confirmation
}

type MessageSendingAttributes struct {
	SendSynchronously bool `json:"sendSynchronously"`
	AddTCPAFooter     bool `json:"addTCPAFooter,omitempty"`
	AddSignature      bool `json:"addSignature"`
	AddFooter         bool `json:"addFooter"`
	SendVCard         bool `json:"sendVCard"`
}

// MessageResponse is the communication-send response.
type MessageResponse struct {
	Status string `json:"status"`
}

// DealerAssociateResponse is the default-associate lookup response. A
// populated errors list or an empty user UUID is treated as a lookup miss.
type DealerAssociateResponse struct {
	DealerAssociate struct {
		UserUUID string `json:"userUuid"`
	} `json:"dealerAssociate"`
	Errors []APIError `json:"errors"`
}

type APIError struct {
	ErrorMessage string `json:"errorMessage"`
}

// HoursOfOperationResponse carries the dealer's scheduling slot granularity.
type HoursOfOperationResponse struct {
	SlotSizeInMins int `json:"slotSizeInMins"`
}
