package storage

import (
	"github.com/salonbook/salonbook/libs/db"
	"github.com/salonbook/salonbook/libs/hours"
)

type Repository struct {
	conn        db.Conn
	defaultWeek hours.Week
}

// NewRepository serves defaultWeek for tenants that never stored their own hours.
func NewRepository(conn db.Conn, defaultWeek hours.Week) *Repository {
	return &Repository{conn: conn, defaultWeek: defaultWeek}
}

func (r *Repository) DefaultWeek() hours.Week {
	return r.defaultWeek
}

const defaultListLimit = 100

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return defaultListLimit
	}
	return limit
}
