package portal

import (
	"context"
	"strings"
)

// VehicleData is the vehicle part of an order submission. The tags apply to the normalized
// identifiers and are checked by the vehicle resolver, not by order validation.
type VehicleData struct {
	VIN                string `json:"vin" validate:"omitempty,max=17,alphanum"`
	RegistrationNumber string `json:"registration_number" validate:"omitempty,max=12"`
	Make               string `json:"make" validate:"omitempty,max=64"`
	Model              string `json:"model" validate:"omitempty,max=64"`
	Year               int    `json:"year" validate:"omitempty,min=1900,max=2100"`
	FuelType           string `json:"fuel_type" validate:"omitempty,max=32"`
	Engine             string `json:"engine" validate:"omitempty,max=64"`
}

// Empty reports whether neither identifier is present.
func (data VehicleData) Empty() bool {
	return strings.TrimSpace(data.VIN) == "" && strings.TrimSpace(data.RegistrationNumber) == ""
}

// Normalized returns data with canonical identifiers and trimmed attributes.
func (data VehicleData) Normalized() VehicleData {
	return VehicleData{
		VIN:                NormalizeVIN(data.VIN),
		RegistrationNumber: NormalizeRegistration(data.RegistrationNumber),
		Make:               strings.TrimSpace(data.Make),
		Model:              strings.TrimSpace(data.Model),
		Year:               data.Year,
		FuelType:           strings.TrimSpace(data.FuelType),
		Engine:             strings.TrimSpace(data.Engine),
	}
}

// ResolveOrCreateVehicle returns the vehicle id for the submitted identifiers.
// With a VIN the existing row wins and its attributes are left as they are.
func (service *Service) ResolveOrCreateVehicle(ctx context.Context, data VehicleData) (string, error) {
	if data.Empty() {
		return "", nil
	}
	normalized := data.Normalized()
	if err := service.validateStruct(normalized); err != nil {
		return "", err
	}
	vehicle := Vehicle{
		VIN:                normalized.VIN,
		RegistrationNumber: normalized.RegistrationNumber,
		Make:               normalized.Make,
		Model:              normalized.Model,
		Year:               normalized.Year,
		FuelType:           normalized.FuelType,
		Engine:             normalized.Engine,
		CreatedAt:          service.now(),
	}
	var (
		stored Vehicle
		err    error
	)
	if vehicle.VIN != "" {
		stored, err = service.store.UpsertVehicleByVIN(ctx, vehicle)
	} else {
		stored, err = service.store.InsertVehicle(ctx, vehicle)
	}
	if err != nil {
		return "", WrapError("service", "vehicle", operationResolveVehicle, err)
	}
	return stored.ID, nil
}
