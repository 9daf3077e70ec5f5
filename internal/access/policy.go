package access

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type RuleType int

const (
	RuleDeny RuleType = iota
	RuleAll
	RuleOwn
	RuleVia
	RuleWhere
)

// Rule is one visibility predicate. Column names are fixed at compile time
// and never come from request input.
type Rule struct {
	Type    RuleType
	Column  string
	Subject Subject
	// Via only: Column IN (SELECT ParentKey FROM Parent WHERE ParentColumn = id)
	Parent       model.Kind
	ParentKey    string
	ParentColumn string
}

func Deny() Rule { return Rule{Type: RuleDeny} }

func All() Rule { return Rule{Type: RuleAll} }

// Own matches rows whose column equals the caller's subject id.
func Own(column string, subject Subject) Rule {
	return Rule{Type: RuleOwn, Column: column, Subject: subject}
}

// Self is Own against the caller's user id.
func Self(column string) Rule {
	return Own(column, SubjectUser)
}

// Via matches rows reachable through a parent row owned by the caller.
func Via(column string, parent model.Kind, parentKey, parentColumn string, subject Subject) Rule {
	return Rule{
		Type:         RuleVia,
		Column:       column,
		Subject:      subject,
		Parent:       parent,
		ParentKey:    parentKey,
		ParentColumn: parentColumn,
	}
}

// Where matches rows whose boolean column is true.
func Where(flag string) Rule {
	return Rule{Type: RuleWhere, Column: flag}
}

func (r Rule) String() string {
	switch r.Type {
	case RuleAll:
		return "all"
	case RuleOwn:
		return fmt.Sprintf("own(%s=%s)", r.Column, r.Subject)
	case RuleVia:
		return fmt.Sprintf("via(%s->%s.%s, %s=%s)", r.Column, r.Parent, r.ParentKey, r.ParentColumn, r.Subject)
	case RuleWhere:
		return fmt.Sprintf("where(%s)", r.Column)
	default:
		return "deny"
	}
}

// Scope is a rule bound to a concrete caller.
type Scope struct {
	Rule  Rule
	Value uuid.UUID
	// Empty is set when the rule needs a profile the caller does not have.
	// Such a scope matches no rows and must not reach the store.
	Empty bool
}

// Unrestricted scopes add no predicate.
func (s Scope) Unrestricted() bool {
	return s.Rule.Type == RuleAll
}

// Unscoped is used by system paths that run without a caller.
var Unscoped = Scope{Rule: All()}

// Policy maps each entity kind and role to its visibility rule. A role
// missing from a kind's entry is denied.
type Policy map[model.Kind]map[model.Role]Rule

// Scope resolves the rule for ac on kind.
func (p Policy) Scope(ac *Context, kind model.Kind) (Scope, error) {
	if ac == nil {
		return Scope{}, apperrors.AccessDenied("no access context")
	}
	if !ac.Role.Valid() {
		return Scope{}, apperrors.AccessDenied("unrecognized role")
	}
	rules, ok := p[kind]
	if !ok {
		return Scope{}, apperrors.AccessDenied(fmt.Sprintf("no access policy for %s", kind))
	}
	rule, ok := rules[ac.Role]
	if !ok || rule.Type == RuleDeny {
		return Scope{}, apperrors.AccessDenied("")
	}

	scope := Scope{Rule: rule}
	switch rule.Type {
	case RuleOwn, RuleVia:
		id := ac.ID(rule.Subject)
		if id == nil {
			scope.Empty = true
			return scope, nil
		}
		scope.Value = *id
	}
	return scope, nil
}

func privileged(rules map[model.Role]Rule) map[model.Role]Rule {
	rules[model.RoleStaff] = All()
	rules[model.RoleAdmin] = All()
	return rules
}

// Default is the clinic's visibility table. Staff and admin see everything.
var Default = Policy{
	model.KindUser: privileged(map[model.Role]Rule{
		model.RolePatient: Self("id"),
		model.RoleDoctor:  Self("id"),
	}),
	model.KindPatient: privileged(map[model.Role]Rule{
		model.RolePatient: Own("id", SubjectPatient),
		model.RoleDoctor:  Via("id", model.KindAppointment, "patient_id", "doctor_id", SubjectDoctor),
	}),
	model.KindDoctor: privileged(map[model.Role]Rule{
		model.RolePatient: All(),
		model.RoleDoctor:  All(),
	}),
	model.KindStaff: privileged(map[model.Role]Rule{}),
	model.KindAppointment: privileged(map[model.Role]Rule{
		model.RolePatient: Own("patient_id", SubjectPatient),
		model.RoleDoctor:  Own("doctor_id", SubjectDoctor),
	}),
	model.KindMedicalRecord: privileged(map[model.Role]Rule{
		model.RolePatient: Own("patient_id", SubjectPatient),
		model.RoleDoctor:  Own("doctor_id", SubjectDoctor),
	}),
	model.KindPrescription: privileged(map[model.Role]Rule{
		model.RolePatient: Via("medical_record_id", model.KindMedicalRecord, "id", "patient_id", SubjectPatient),
		model.RoleDoctor:  Via("medical_record_id", model.KindMedicalRecord, "id", "doctor_id", SubjectDoctor),
	}),
	model.KindLabTest: privileged(map[model.Role]Rule{
		model.RolePatient: Own("patient_id", SubjectPatient),
		model.RoleDoctor:  Own("doctor_id", SubjectDoctor),
	}),
	model.KindPayment: privileged(map[model.Role]Rule{
		model.RolePatient: Via("appointment_id", model.KindAppointment, "id", "patient_id", SubjectPatient),
		model.RoleDoctor:  Via("appointment_id", model.KindAppointment, "id", "doctor_id", SubjectDoctor),
	}),
	model.KindService: privileged(map[model.Role]Rule{
		model.RolePatient: Where("is_available"),
		model.RoleDoctor:  Where("is_available"),
	}),
	model.KindServicePackage: privileged(map[model.Role]Rule{
		model.RolePatient: Where("is_available"),
		model.RoleDoctor:  Where("is_available"),
	}),
	model.KindHealthMetric: privileged(map[model.Role]Rule{
		model.RolePatient: Own("patient_id", SubjectPatient),
		model.RoleDoctor:  Via("patient_id", model.KindAppointment, "patient_id", "doctor_id", SubjectDoctor),
	}),
	model.KindNotification: privileged(map[model.Role]Rule{
		model.RolePatient: Self("user_id"),
		model.RoleDoctor:  Self("user_id"),
	}),
	model.KindTask: privileged(map[model.Role]Rule{
		model.RoleDoctor: Self("assigned_to"),
	}),
	model.KindEquipment: privileged(map[model.Role]Rule{}),
	model.KindVideoCall: privileged(map[model.Role]Rule{
		model.RolePatient: Own("patient_id", SubjectPatient),
		model.RoleDoctor:  Own("doctor_id", SubjectDoctor),
	}),
}
