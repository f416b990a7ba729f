package store

import (
	"database/sql"
	"time"
)

// localLayout stores local wall-clock times without a zone offset
const localLayout = "2006-01-02T15:04:05"

func parseLocal(s string) (time.Time, error) {
	return time.Parse(localLayout, s)
}

func ptrToNullFloat64(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func nullFloat64ToPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
