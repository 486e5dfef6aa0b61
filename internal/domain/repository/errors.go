package repository

import "errors"

var (
	// ErrDuplicateQueueNumber is returned when (doctor, date, queue_number) is already taken.
	ErrDuplicateQueueNumber = errors.New("queue number already taken for doctor and date")
	// ErrDuplicateEmail is returned when a user with the same email exists.
	ErrDuplicateEmail = errors.New("email already registered")
)
