package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")

	ErrNameTaken   = fmt.Errorf("username already taken")
	ErrInvalidName = fmt.Errorf("invalid username")

	ErrGroupExists    = fmt.Errorf("group already exists")
	ErrGroupNotFound  = fmt.Errorf("group does not exist")
	ErrNotGroupAdmin  = fmt.Errorf("only the admin can do this")
	ErrNotGroupMember = fmt.Errorf("not a member of the group")
	ErrAlreadyMember  = fmt.Errorf("user is already in the group")
	ErrUserOffline    = fmt.Errorf("user is not online")
	ErrUserNotFound   = fmt.Errorf("user not found")

	ErrCorruptedLog = fmt.Errorf("conversation log is corrupted")
	ErrLineTooLong  = fmt.Errorf("line exceeds the maximum allowed length")
)
