package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"carassist-backend/internal/models"
	"carassist-backend/internal/services"
	"carassist-backend/internal/store"
)

// CarHandlers handles HTTP requests for the car catalog.
type CarHandlers struct {
	carService *services.CarService
}

// NewCarHandlers creates a new CarHandlers instance.
func NewCarHandlers(carService *services.CarService) *CarHandlers {
	return &CarHandlers{
		carService: carService,
	}
}

// HandleCreateCar handles requests to add a catalog entry.
func (h *CarHandlers) HandleCreateCar(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	car, err := h.carService.CreateCar(r.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		RespondWithError(w, http.StatusInternalServerError, "Failed to create car: "+err.Error())
		return
	}

	RespondWithJSON(w, http.StatusCreated, car)
}

// HandleGetCarByID handles requests to get a catalog entry by ID.
func (h *CarHandlers) HandleGetCarByID(w http.ResponseWriter, r *http.Request) {
	carID, err := uuid.Parse(chi.URLParam(r, "carID"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid car ID")
		return
	}

	car, err := h.carService.GetCarByID(r.Context(), carID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			RespondWithError(w, http.StatusNotFound, "Car not found")
			return
		}
		RespondWithError(w, http.StatusInternalServerError, "Failed to get car: "+err.Error())
		return
	}

	RespondWithJSON(w, http.StatusOK, car)
}

// HandleListCars handles requests to list catalog entries.
func (h *CarHandlers) HandleListCars(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r, 20)
	cars, err := h.carService.ListCars(r.Context(), limit, offset)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to list cars: "+err.Error())
		return
	}

	RespondWithJSON(w, http.StatusOK, cars)
}
