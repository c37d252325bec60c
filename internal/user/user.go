package user

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledger/internal/apperror"
)

var (
	ErrNotFound      = apperror.New(apperror.KindNotFound, "USER", "USER_NOT_FOUND", "User not found")
	ErrUsernameTaken = apperror.New(apperror.KindConflict, "USER", "USERNAME_EXISTS", "Username already exists")
)

// User is the acting principal of ledger operations. Registration and
// credentials live outside the ledger.
type User struct {
	ID        uuid.UUID
	Username  string
	Email     string
	CreatedAt time.Time
}
