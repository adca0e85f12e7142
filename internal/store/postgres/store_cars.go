package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"carassist-backend/internal/models"
	"carassist-backend/internal/store"
)

// --- Car Catalog Methods ---

const carColumns = "id, brand, model, body_type, engine_type, transmission, drive, seats, year, price, created_at"

func scanCar(row pgx.Row) (*models.Car, error) {
	car := &models.Car{}
	err := row.Scan(
		&car.ID,
		&car.Brand,
		&car.Model,
		&car.BodyType,
		&car.EngineType,
		&car.Transmission,
		&car.Drive,
		&car.Seats,
		&car.Year,
		&car.Price,
		&car.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return car, nil
}

// CreateCar inserts a new catalog entry.
func (s *PostgresStore) CreateCar(ctx context.Context, arg store.CreateCarParams) (*models.Car, error) {
	query := `
        INSERT INTO cars (id, brand, model, body_type, engine_type, transmission, drive, seats, year, price)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING ` + carColumns

	car, err := scanCar(s.db.QueryRow(ctx, query,
		arg.ID,
		arg.Brand,
		arg.Model,
		arg.BodyType,
		arg.EngineType,
		arg.Transmission,
		arg.Drive,
		arg.Seats,
		arg.Year,
		arg.Price,
	))
	if err != nil {
		log.Printf("ERROR [PostgresStore] CreateCar: Failed exec/scan for %s %s: %v", arg.Brand, arg.Model, err)
		return nil, fmt.Errorf("database error creating car: %w", err)
	}

	log.Printf("[PostgresStore] CreateCar: Inserted car ID %s (%s %s)", car.ID, car.Brand, car.Model)
	return car, nil
}

// GetCarByID retrieves a single catalog entry.
func (s *PostgresStore) GetCarByID(ctx context.Context, id uuid.UUID) (*models.Car, error) {
	query := `SELECT ` + carColumns + ` FROM cars WHERE id = $1`

	car, err := scanCar(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] GetCarByID: Failed query/scan for ID %s: %v", id, err)
		return nil, fmt.Errorf("database error fetching car: %w", err)
	}

	return car, nil
}

// ListCars retrieves a page of catalog entries.
func (s *PostgresStore) ListCars(ctx context.Context, limit, offset int) ([]models.Car, error) {
	query := `SELECT ` + carColumns + ` FROM cars ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := s.db.Query(ctx, query, limit, offset)
	if err != nil {
		log.Printf("ERROR [PostgresStore] ListCars: Failed query: %v", err)
		return nil, fmt.Errorf("database error listing cars: %w", err)
	}
	defer rows.Close()

	return collectCars(rows)
}

// SearchCars executes a bounded catalog search for the given criteria.
// Returns up to limit matches ordered by price plus the total match count.
// Zero matches is a normal outcome, not an error.
func (s *PostgresStore) SearchCars(ctx context.Context, criteria models.SearchCriteria, limit int) ([]models.Car, int, error) {
	where, args := buildCarFilter(criteria)

	countQuery := `SELECT COUNT(*) FROM cars` + where
	var total int
	if err := s.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		log.Printf("ERROR [PostgresStore] SearchCars: Failed count query: %v", err)
		return nil, 0, fmt.Errorf("database error counting car matches: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM cars%s ORDER BY price ASC LIMIT $%d`, carColumns, where, len(args)+1)
	rows, err := s.db.Query(ctx, query, append(args, limit)...)
	if err != nil {
		log.Printf("ERROR [PostgresStore] SearchCars: Failed query: %v", err)
		return nil, 0, fmt.Errorf("database error searching cars: %w", err)
	}
	defer rows.Close()

	cars, err := collectCars(rows)
	if err != nil {
		return nil, 0, err
	}

	log.Printf("[PostgresStore] SearchCars: %d total matches, returning %d", total, len(cars))
	return cars, total, nil
}

// buildCarFilter assembles the WHERE clause for SearchCars from whichever
// criteria fields are set. Text fields match case-insensitively.
func buildCarFilter(criteria models.SearchCriteria) (string, []any) {
	clauses := []string{}
	args := []any{}

	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if criteria.PriceMax != nil {
		add("price <= $%d", *criteria.PriceMax)
	}
	if criteria.PriceMin != nil {
		add("price >= $%d", *criteria.PriceMin)
	}
	if criteria.BodyType != nil {
		add("LOWER(body_type) = LOWER($%d)", *criteria.BodyType)
	}
	if criteria.EngineType != nil {
		add("LOWER(engine_type) = LOWER($%d)", *criteria.EngineType)
	}
	if criteria.Brand != nil {
		add("LOWER(brand) = LOWER($%d)", *criteria.Brand)
	}
	if criteria.Seats != nil {
		add("seats = $%d", *criteria.Seats)
	}
	if criteria.Transmission != nil {
		add("LOWER(transmission) = LOWER($%d)", *criteria.Transmission)
	}
	if criteria.Drive != nil {
		add("LOWER(drive) = LOWER($%d)", *criteria.Drive)
	}
	if criteria.YearMin != nil {
		add("year >= $%d", *criteria.YearMin)
	}
	if criteria.YearMax != nil {
		add("year <= $%d", *criteria.YearMax)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func collectCars(rows pgx.Rows) ([]models.Car, error) {
	cars := []models.Car{}
	for rows.Next() {
		car, err := scanCar(rows)
		if err != nil {
			log.Printf("ERROR [PostgresStore] collectCars: Failed scan: %v", err)
			return nil, fmt.Errorf("database error scanning car: %w", err)
		}
		cars = append(cars, *car)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating cars: %w", err)
	}
	return cars, nil
}
