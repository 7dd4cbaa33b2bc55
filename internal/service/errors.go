package service

import "errors"

var (
	ErrNotFound     = errors.New("task not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrNotReady     = errors.New("task not yet completed")
	ErrRegistryNil  = errors.New("task registry is nil")
	ErrPoolNil      = errors.New("worker pool is nil")
)
