package access

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// Context is the resolved identity every data operation is parameterized by.
// It is built once per request and never mutated afterwards.
type Context struct {
	UserID    uuid.UUID  `json:"user_id"`
	Role      model.Role `json:"role"`
	PatientID *uuid.UUID `json:"patient_id,omitempty"`
	DoctorID  *uuid.UUID `json:"doctor_id,omitempty"`
	StaffID   *uuid.UUID `json:"staff_id,omitempty"`
}

// Subject selects which identifier of the context a rule compares against.
type Subject int

const (
	SubjectUser Subject = iota
	SubjectPatient
	SubjectDoctor
	SubjectStaff
)

func (s Subject) String() string {
	switch s {
	case SubjectPatient:
		return "patient"
	case SubjectDoctor:
		return "doctor"
	case SubjectStaff:
		return "staff"
	default:
		return "user"
	}
}

// ID returns the identifier for subject, nil when the profile is missing.
func (c *Context) ID(subject Subject) *uuid.UUID {
	if c == nil {
		return nil
	}
	switch subject {
	case SubjectPatient:
		return c.PatientID
	case SubjectDoctor:
		return c.DoctorID
	case SubjectStaff:
		return c.StaffID
	default:
		id := c.UserID
		return &id
	}
}

func (c *Context) Is(roles ...model.Role) bool {
	if c == nil {
		return false
	}
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}

// Privileged is true for staff and admin.
func (c *Context) Privileged() bool {
	return c != nil && c.Role.Privileged()
}

// Require fails with AccessDenied unless the context holds one of roles.
func Require(c *Context, roles ...model.Role) error {
	if c == nil {
		return apperrors.AccessDenied("no access context")
	}
	if !c.Role.Valid() {
		return apperrors.AccessDenied("unrecognized role")
	}
	if !c.Is(roles...) {
		return apperrors.AccessDenied("")
	}
	return nil
}

// Matches reports whether id equals the profile id for subject. A missing profile
// never matches.
func Matches(c *Context, subject Subject, id uuid.UUID) bool {
	own := c.ID(subject)
	return own != nil && *own == id
}

type ctxKey struct{}

// NewContext attaches ac to ctx.
func NewContext(ctx context.Context, ac *Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, ac)
}

// FromContext returns the access context stored by NewContext, or nil.
func FromContext(ctx context.Context) *Context {
	ac, _ := ctx.Value(ctxKey{}).(*Context)
	return ac
}
