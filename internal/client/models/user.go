package models

import (
	"fmt"

	"github.com/asaskevich/govalidator"
	"github.com/dmitrijs2005/sitekeeper/internal/common"
)

type Role string

const (
	RoleTechnician     Role = "technician"
	RoleForeman        Role = "foreman"
	RoleSuperintendent Role = "superintendent"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleTechnician, RoleForeman, RoleSuperintendent:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     Role   `json:"role,omitempty"`
	Company  string `json:"company,omitempty"`
}

// Credentials is the body of a login request.
type Credentials struct {
	Username string `json:"username" valid:"required"`
	Password string `json:"password" valid:"required"`
}

// Registration is the body of a register request.
type Registration struct {
	Username string `json:"username" valid:"required"`
	Email    string `json:"email" valid:"required,email"`
	Password string `json:"password" valid:"required"`
	Company  string `json:"company,omitempty" valid:"optional"`
}

func (c Credentials) Validate() error {
	return validate(c)
}

func (r Registration) Validate() error {
	return validate(r)
}

func validate(v any) error {
	ok, err := govalidator.ValidateStruct(v)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrValidation, err)
	}
	if !ok {
		return common.ErrValidation
	}
	return nil
}
