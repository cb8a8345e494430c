// Package repository реализует хранилище данных на основе PostgreSQL
// для пользователей, сессий и одноразовых кодов. Транзакционные единицы
// работы — создание сессии с вытеснением, потребление кода, переходы
// статуса учётной записи — выполняются целиком внутри методов репозитория,
// чтобы инварианты держались под конкурентными запросами.
package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Код ошибки PostgreSQL для нарушения уникальности.
const uniqueViolationCode = "23505"

// Storage инкапсулирует соединение с базой данных PostgreSQL
// и реализует методы работы с пользователями, сессиями и кодами.
type Storage struct {
	DB *sql.DB
}

// New создаёт репозиторий поверх открытого соединения.
func New(db *sql.DB) *Storage {
	return &Storage{DB: db}
}

// isUniqueViolation распознаёт нарушение уникального ограничения.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
