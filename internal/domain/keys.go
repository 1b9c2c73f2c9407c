package domain

type CtxKey string

const (
	KeyUserID    CtxKey = "UserID"
	KeyUserEmail CtxKey = "Email"
	KeyUserName  CtxKey = "Name"
	KeyUserRole  CtxKey = "Role"
)

// Session keys persisted per user in the local store. The names match what
// the web client reads back, so they must not change.
const (
	SessionUserUID  = "userUID"
	SessionUserName = "userName"
	SessionEmail    = "userEmail"
	SessionRole     = "role_passed"
	SessionNameSur  = "nameSur"
)
