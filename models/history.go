package models

// CarHistory is the vehicle history report from the government registry.
// Either section may be missing when the report could not be parsed.
type CarHistory struct {
	TechnicalData *TechnicalData `json:"technicalData,omitempty"`
	EventSummary  *EventSummary  `json:"eventSummary,omitempty"`
}

// Complete reports whether both sections needed for scoring are present.
func (h *CarHistory) Complete() bool {
	return h != nil && h.TechnicalData != nil && h.EventSummary != nil
}

type TechnicalData struct {
	EngineCapacity  string `json:"engineCapacity"`
	EnginePower     string `json:"enginePower"`
	EuroNorm        string `json:"euroNorm"`
	FuelType        string `json:"fuelType"`
	TotalSeats      int    `json:"totalSeats"`
	SeatingCapacity int    `json:"seatingCapacity"`
	VehicleWeight   string `json:"vehicleWeight"`
	MaxLoad         string `json:"maxLoad"`
	TotalMass       string `json:"totalMass"`
	AxlesCount      int    `json:"axlesCount"`
	MaxAxlePressure string `json:"maxAxlePressure"`
}

type EventSummary struct {
	OwnersCount                int                 `json:"ownersCount"`
	CoOwnersCount              int                 `json:"coOwnersCount"`
	RegistrationProvince       string              `json:"registrationProvince"`
	CurrentInsurance           Insurance           `json:"currentInsurance"`
	CurrentTechnicalInspection TechnicalInspection `json:"currentTechnicalInspection"`
	CurrentOwnersCount         int                 `json:"currentOwnersCount"`
	CurrentCoOwnersCount       int                 `json:"currentCoOwnersCount"`
}

type Insurance struct {
	Status         string `json:"status"`
	ExpirationDate string `json:"expirationDate"`
}

type TechnicalInspection struct {
	Status              string `json:"status"`
	LastOdometerReading string `json:"lastOdometerReading"`
}
