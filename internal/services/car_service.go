package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"carassist-backend/internal/models"
	"carassist-backend/internal/store"
)

// CarService handles catalog CRUD.
type CarService struct {
	store store.Store
}

// NewCarService creates a new CarService.
func NewCarService(store store.Store) *CarService {
	return &CarService{store: store}
}

func mapCarToResponse(car *models.Car) models.CarResponse {
	return models.CarResponse{
		ID:           car.ID,
		Brand:        car.Brand,
		Model:        car.Model,
		BodyType:     car.BodyType,
		EngineType:   car.EngineType,
		Transmission: car.Transmission,
		Drive:        car.Drive,
		Seats:        car.Seats,
		Year:         car.Year,
		Price:        car.Price,
		CreatedAt:    car.CreatedAt,
	}
}

// CreateCar validates and inserts a new catalog entry.
func (s *CarService) CreateCar(ctx context.Context, req models.CreateCarRequest) (*models.CarResponse, error) {
	if req.Brand == "" || req.Model == "" {
		return nil, fmt.Errorf("%w: brand and model are required", ErrValidation)
	}
	if req.Price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrValidation)
	}
	if req.Year < 1900 {
		return nil, fmt.Errorf("%w: year is out of range", ErrValidation)
	}

	car, err := s.store.CreateCar(ctx, store.CreateCarParams{
		ID:           uuid.New(),
		Brand:        req.Brand,
		Model:        req.Model,
		BodyType:     req.BodyType,
		EngineType:   req.EngineType,
		Transmission: req.Transmission,
		Drive:        req.Drive,
		Seats:        req.Seats,
		Year:         req.Year,
		Price:        req.Price,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create car in store: %w", err)
	}

	resp := mapCarToResponse(car)
	return &resp, nil
}

// GetCarByID retrieves a single catalog entry.
func (s *CarService) GetCarByID(ctx context.Context, carID uuid.UUID) (*models.CarResponse, error) {
	car, err := s.store.GetCarByID(ctx, carID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get car from store: %w", err)
	}

	resp := mapCarToResponse(car)
	return &resp, nil
}

// ListCars retrieves a page of catalog entries.
func (s *CarService) ListCars(ctx context.Context, limit, offset int) (*models.ListCarsResponse, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	cars, err := s.store.ListCars(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list cars from store: %w", err)
	}

	responseCars := make([]models.CarResponse, 0, len(cars))
	for i := range cars {
		responseCars = append(responseCars, mapCarToResponse(&cars[i]))
	}

	return &models.ListCarsResponse{Cars: responseCars}, nil
}
