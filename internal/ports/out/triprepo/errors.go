package triprepo

import "errors"

var (
	ErrTripNotFound        = errors.New("trip not found")
	ErrDayNotFound         = errors.New("trip day not found")
	ErrItemNotFound        = errors.New("trip item not found")
	ErrDependencyNotFound  = errors.New("item dependency not found")
	ErrAlreadyExists       = errors.New("trip already exists")
	ErrDuplicateDependency = errors.New("item dependency already exists")
)
