package constants

// User-facing messages shown inline by the login, list and form screens.
const (
	MsgNameAndUnitRequired    = "Name and unit are required."
	MsgDefaultQuantityNumeric = "Default quantity must be a number."
	MsgWeeklyLimitNumeric     = "Weekly limit must be a number."
	MsgLoginRequired          = "You must be logged in."
	MsgDuplicateName          = "You already have a habit with that name."
	MsgSaveHabitFailed        = "Could not save habit. Please try again."
	MsgSaveChangesFailed      = "Could not save changes."
	MsgDeleteHabitFailed      = "Could not delete habit. Please try again."
	MsgLoadHabitFailed        = "Could not load habit."
	MsgLoadHabitsFailed       = "Could not load habits."
	MsgLoadStatsFailed        = "Could not load stats."
	MsgLogHabitFailed         = "Could not log habit. Please try again."
)
