package profile

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kipimo/core"
)

// Roles
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

var (
	Roles = []string{RoleTeacher, RoleStudent}

	roleTag  = "role"
	roleText = "invalid role"
)

// RegisterValidators registers the profile validation tags.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(roleTag, func(fl validator.FieldLevel) bool {
		return IsValidRole(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, roleTag, roleText)
}

func IsValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

type Profile struct {
	ID        string    `json:"id" db:"id"`
	FullName  string    `json:"full_name" db:"full_name"`
	Email     string    `json:"email" db:"email"`
	Role      string    `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
}

func (p Profile) IsTeacher() bool { return p.Role == RoleTeacher }
func (p Profile) IsStudent() bool { return p.Role == RoleStudent }

// Principal returns the identity used to tag logs.
func (p Profile) Principal() core.Principal {
	return core.Principal{ID: p.ID, Name: p.FullName, Email: p.Email, Role: p.Role}
}

// NewProfile contains information needed to create a new Profile.
type NewProfile struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Role     string `json:"role" validate:"required,role"`
}

func (np *NewProfile) Validate(validate *validator.Validate) error {
	np.FullName = core.CleanString(np.FullName)
	np.Email = core.CleanString(np.Email, true /* lower */)
	np.Role = core.CleanString(np.Role, true /* lower */)
	return validate.Struct(np)
}

type QueryFilter struct {
	Role   string   `query:"role"`
	IDs    []string `query:"id"`
	Search string   `query:"search"`
}

func (qf *QueryFilter) Clean() {
	qf.Role = core.CleanString(qf.Role, true /* lower */)
	qf.Search = core.CleanString(qf.Search)
}
