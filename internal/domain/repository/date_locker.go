package repository

import "context"

// DateLocker serializes updates to the schedule of one date
type DateLocker interface {
	Lock(ctx context.Context, date string) (unlock func(), err error)
}
