package model

import "strings"

// Kind names an entity collection. The value doubles as the URL segment.
type Kind string

const (
	KindUser           Kind = "users"
	KindPatient        Kind = "patients"
	KindDoctor         Kind = "doctors"
	KindStaff          Kind = "staff"
	KindAppointment    Kind = "appointments"
	KindMedicalRecord  Kind = "medical-records"
	KindPrescription   Kind = "prescriptions"
	KindLabTest        Kind = "lab-tests"
	KindPayment        Kind = "payments"
	KindService        Kind = "services"
	KindServicePackage Kind = "service-packages"
	KindHealthMetric   Kind = "health-metrics"
	KindNotification   Kind = "notifications"
	KindTask           Kind = "tasks"
	KindEquipment      Kind = "equipment"
	KindVideoCall      Kind = "video-calls"
	KindOutboxEvent    Kind = "outbox-events"
)

type kindMeta struct {
	table     string
	orderBy   string
	versioned bool
}

var kinds = map[Kind]kindMeta{
	KindUser:           {table: "users", orderBy: "created_at DESC"},
	KindPatient:        {table: "patient_profiles", orderBy: "created_at DESC"},
	KindDoctor:         {table: "doctor_profiles", orderBy: "created_at DESC"},
	KindStaff:          {table: "staff_profiles", orderBy: "created_at DESC"},
	KindAppointment:    {table: "appointments", orderBy: "appointment_date DESC, appointment_time DESC", versioned: true},
	KindMedicalRecord:  {table: "medical_records", orderBy: "created_at DESC"},
	KindPrescription:   {table: "prescriptions", orderBy: "created_at DESC"},
	KindLabTest:        {table: "lab_tests", orderBy: "created_at DESC", versioned: true},
	KindPayment:        {table: "payments", orderBy: "created_at DESC", versioned: true},
	KindService:        {table: "services", orderBy: "created_at DESC"},
	KindServicePackage: {table: "service_packages", orderBy: "created_at DESC"},
	KindHealthMetric:   {table: "health_metrics", orderBy: "recorded_at DESC"},
	KindNotification:   {table: "notifications", orderBy: "created_at DESC"},
	KindTask:           {table: "tasks", orderBy: "created_at DESC", versioned: true},
	KindEquipment:      {table: "equipment", orderBy: "created_at DESC", versioned: true},
	KindVideoCall:      {table: "video_calls", orderBy: "created_at DESC", versioned: true},
	KindOutboxEvent:    {table: "outbox_events", orderBy: "created_at ASC"},
}

func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// Table is the backing table name.
func (k Kind) Table() string {
	return kinds[k].table
}

// OrderBy is the natural listing order, most recent first.
func (k Kind) OrderBy() string {
	return kinds[k].orderBy
}

// Versioned reports whether rows of this kind carry an optimistic version.
func (k Kind) Versioned() bool {
	return kinds[k].versioned
}

func (k Kind) String() string {
	return string(k)
}

// Resource is the singular name used in error messages.
func (k Kind) Resource() string {
	return strings.ReplaceAll(strings.TrimSuffix(string(k), "s"), "-", " ")
}
