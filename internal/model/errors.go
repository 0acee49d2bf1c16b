package model

import "errors"

var (
	// ErrModelUnavailable means the classifier failed to load at startup.
	ErrModelUnavailable = errors.New("classification model unavailable")
	// ErrOCRUnavailable means the text recognition engine failed to initialize.
	ErrOCRUnavailable = errors.New("text recognition engine unavailable")
	// ErrInvalidImage means the input could not be decoded into a 3-channel image.
	ErrInvalidImage = errors.New("invalid image")
	// ErrMalformedDetection marks a single OCR entry that lacks box, text or confidence.
	ErrMalformedDetection = errors.New("malformed text detection")
	// ErrQueueFull is returned when every worker is busy and the queue has no room.
	ErrQueueFull = errors.New("processing queue full")
)
