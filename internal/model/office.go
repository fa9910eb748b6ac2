package model

import "time"

// Office is the unit of staff access scoping and owns inventory records.
type Office struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Department string    `json:"department"`
	CreatedAt  time.Time `json:"created_at"`
}
