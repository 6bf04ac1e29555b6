package acquire

import (
	"errors"
	"fmt"

	"github.com/rshade/cvindex/internal/remote"
)

// ErrBusy is returned when another flow is still running.
var ErrBusy = errors.New("another operation is in progress")

// ErrEmptyFoodName is the local precondition failure of the lookup flow.
var ErrEmptyFoodName = fmt.Errorf("%w: food name is empty", remote.ErrPrecondition)
