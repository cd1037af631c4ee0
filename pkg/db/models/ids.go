package models

import "github.com/google/uuid"

// assignID fills a zero primary key before insert so rows get ids on every driver.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
