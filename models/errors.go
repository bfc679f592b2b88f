package models

import "errors"

var (
	// ErrValidation wraps every rejected NewTransaction / NewProduct.
	ErrValidation = errors.New("validation failed")

	ErrProductNotFound = errors.New("product not found")
	ErrProductExists   = errors.New("product already exists")
	ErrRecipeNotFound  = errors.New("recipe not found")

	// ErrStoreUnavailable means a backing table (sheet, MySQL table) could not be read or written.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotificationSkipped is returned when no Telegram token/chat id is configured.
	ErrNotificationSkipped = errors.New("notification skipped: telegram is not configured")
)
