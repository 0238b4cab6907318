package jukebox

import (
	"errors"

	"guild-jukebox/internal/music/queue"
	"guild-jukebox/internal/music/scheduler"
	"guild-jukebox/internal/music/selection"
)

// UserInputError is a problem with what the user asked for. It is reported
// back as is and never retried.
type UserInputError struct {
	msg string
}

func (e *UserInputError) Error() string { return e.msg }

var (
	ErrNotInVoice       = &UserInputError{msg: "you need to be in the voice channel"}
	ErrUnsupportedQuery = &UserInputError{msg: "that link is not supported"}
	ErrNoResults        = &UserInputError{msg: "nothing found for that query"}
)

var (
	ErrResolution     = errors.New("could not process that link")
	ErrNothingPlaying = errors.New("nothing is playing")

	ErrConnectFailed     = scheduler.ErrConnectFailed
	ErrSelectionTimedOut = selection.ErrSelectionTimedOut
	ErrNotAuthorized     = queue.ErrNotAuthorized
	ErrNotFound          = queue.ErrNotFound
)

// IsUserInput reports whether err is a UserInputError.
func IsUserInput(err error) bool {
	var u *UserInputError
	return errors.As(err, &u)
}
