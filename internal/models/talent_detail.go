package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	appErrors "github.com/noah-isme/sipodi-api/pkg/errors"
)

// DateLayout is the wire format for calendar dates in talent details.
const DateLayout = "2006-01-02"

// Date is a calendar date without time of day.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// MarshalJSON renders the date as YYYY-MM-DD.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(DateLayout))
}

// UnmarshalJSON parses YYYY-MM-DD. Null or "" leave the zero date.
func (d *Date) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil || *raw == "" {
		d.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(DateLayout, *raw)
	if err != nil {
		return fmt.Errorf("date must use format %s", DateLayout)
	}
	d.Time = parsed
	return nil
}

// CompetitionLevel is the reach of a competition.
type CompetitionLevel string

const (
	LevelKota          CompetitionLevel = "kota"
	LevelProvinsi      CompetitionLevel = "provinsi"
	LevelNasional      CompetitionLevel = "nasional"
	LevelInternasional CompetitionLevel = "internasional"
)

// CompetitionLevels lists the allowed levels.
var CompetitionLevels = []CompetitionLevel{LevelKota, LevelProvinsi, LevelNasional, LevelInternasional}

// Valid reports membership in CompetitionLevels.
func (l CompetitionLevel) Valid() bool {
	for _, v := range CompetitionLevels {
		if v == l {
			return true
		}
	}
	return false
}

// TalentField is one of the seven fixed competition categories.
type TalentField string

const (
	FieldAkademik     TalentField = "akademik"
	FieldInovasi      TalentField = "inovasi"
	FieldTeknologi    TalentField = "teknologi"
	FieldSosial       TalentField = "sosial"
	FieldOlahraga     TalentField = "olahraga"
	FieldSeni         TalentField = "seni"
	FieldKepemimpinan TalentField = "kepemimpinan"
)

// TalentFields lists the allowed categories.
var TalentFields = []TalentField{FieldAkademik, FieldInovasi, FieldTeknologi, FieldSosial, FieldOlahraga, FieldSeni, FieldKepemimpinan}

// Valid reports membership in TalentFields.
func (f TalentField) Valid() bool {
	for _, v := range TalentFields {
		if v == f {
			return true
		}
	}
	return false
}

// TalentDetail is the closed set of kind-specific payloads. Only the four types in this
// file implement it.
type TalentDetail interface {
	Kind() TalentKind
	Validate() []appErrors.FieldError
	talentDetail()
}

// TrainingDetail describes participation in a training activity.
type TrainingDetail struct {
	ActivityName string `json:"activity_name"`
	Organizer    string `json:"organizer"`
	StartDate    Date   `json:"start_date"`
	DurationDays int    `json:"duration_days"`
}

// MentorDetail describes mentoring students for a competition.
type MentorDetail struct {
	CompetitionName string           `json:"competition_name"`
	Level           CompetitionLevel `json:"level"`
	Organizer       string           `json:"organizer"`
	Field           TalentField      `json:"field"`
	Achievement     string           `json:"achievement"`
}

// ParticipantDetail describes competing personally.
type ParticipantDetail struct {
	CompetitionName  string           `json:"competition_name"`
	Level            CompetitionLevel `json:"level"`
	Organizer        string           `json:"organizer"`
	Field            TalentField      `json:"field"`
	StartDate        Date             `json:"start_date"`
	DurationDays     int              `json:"duration_days"`
	CompetitionField string           `json:"competition_field"`
	Achievement      string           `json:"achievement"`
}

// InterestDetail describes a personal interest or hobby.
type InterestDetail struct {
	InterestName string `json:"interest_name"`
	Description  string `json:"description"`
}

func (TrainingDetail) Kind() TalentKind    { return KindTraining }
func (MentorDetail) Kind() TalentKind      { return KindCompetitionMentor }
func (ParticipantDetail) Kind() TalentKind { return KindCompetitionParticipant }
func (InterestDetail) Kind() TalentKind    { return KindInterest }

func (TrainingDetail) talentDetail()    {}
func (MentorDetail) talentDetail()      {}
func (ParticipantDetail) talentDetail() {}
func (InterestDetail) talentDetail()    {}

type fieldChecker struct {
	errs []appErrors.FieldError
}

func (c *fieldChecker) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		c.add(field, field+" is required")
	}
}

func (c *fieldChecker) date(field string, value Date) {
	if value.IsZero() {
		c.add(field, field+" is required")
	}
}

func (c *fieldChecker) positive(field string, value int) {
	if value < 1 {
		c.add(field, field+" must be at least 1")
	}
}

func (c *fieldChecker) level(value CompetitionLevel) {
	if value == "" {
		c.add("level", "level is required")
	} else if !value.Valid() {
		c.add("level", "level must be one of kota, provinsi, nasional, internasional")
	}
}

func (c *fieldChecker) field(value TalentField) {
	if value == "" {
		c.add("field", "field is required")
	} else if !value.Valid() {
		c.add("field", "field must be one of akademik, inovasi, teknologi, sosial, olahraga, seni, kepemimpinan")
	}
}

func (c *fieldChecker) add(field, message string) {
	c.errs = append(c.errs, appErrors.FieldError{Field: "detail." + field, Message: message})
}

// Validate checks required fields.
func (d TrainingDetail) Validate() []appErrors.FieldError {
	var c fieldChecker
	c.required("activity_name", d.ActivityName)
	c.required("organizer", d.Organizer)
	c.date("start_date", d.StartDate)
	c.positive("duration_days", d.DurationDays)
	return c.errs
}

// Validate checks required fields and enumerations.
func (d MentorDetail) Validate() []appErrors.FieldError {
	var c fieldChecker
	c.required("competition_name", d.CompetitionName)
	c.level(d.Level)
	c.required("organizer", d.Organizer)
	c.field(d.Field)
	c.required("achievement", d.Achievement)
	return c.errs
}

// Validate checks required fields and enumerations.
func (d ParticipantDetail) Validate() []appErrors.FieldError {
	var c fieldChecker
	c.required("competition_name", d.CompetitionName)
	c.level(d.Level)
	c.required("organizer", d.Organizer)
	c.field(d.Field)
	c.date("start_date", d.StartDate)
	c.positive("duration_days", d.DurationDays)
	c.required("competition_field", d.CompetitionField)
	c.required("achievement", d.Achievement)
	return c.errs
}

// Validate checks required fields.
func (d InterestDetail) Validate() []appErrors.FieldError {
	var c fieldChecker
	c.required("interest_name", d.InterestName)
	c.required("description", d.Description)
	return c.errs
}

// newDetail returns an empty payload for kind. Adding a kind means extending this switch.
func newDetail(kind TalentKind) (TalentDetail, bool) {
	switch kind {
	case KindTraining:
		return &TrainingDetail{}, true
	case KindCompetitionMentor:
		return &MentorDetail{}, true
	case KindCompetitionParticipant:
		return &ParticipantDetail{}, true
	case KindInterest:
		return &InterestDetail{}, true
	}
	return nil, false
}

// deref returns the value form so callers always see TrainingDetail rather than *TrainingDetail.
func deref(d TalentDetail) TalentDetail {
	switch v := d.(type) {
	case *TrainingDetail:
		return *v
	case *MentorDetail:
		return *v
	case *ParticipantDetail:
		return *v
	case *InterestDetail:
		return *v
	}
	return d
}

// DecodeTalentDetail strictly decodes raw into the payload for kind. Unknown fields, wrong
// types and missing required fields are reported as a validation error with field details.
func DecodeTalentDetail(kind TalentKind, raw json.RawMessage) (TalentDetail, error) {
	target, ok := newDetail(kind)
	if !ok {
		return nil, appErrors.Validation("invalid talent payload", appErrors.FieldError{Field: "kind", Message: "unknown talent kind"})
	}
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, appErrors.Validation("invalid talent payload", appErrors.FieldError{Field: "detail", Message: "detail is required"})
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return nil, appErrors.Validation("invalid talent payload", decodeFieldError(err))
	}
	if dec.More() {
		return nil, appErrors.Validation("invalid talent payload", appErrors.FieldError{Field: "detail", Message: "detail must be a single JSON object"})
	}

	detail := deref(target)
	if errs := detail.Validate(); len(errs) > 0 {
		return nil, appErrors.Validation("invalid talent payload", errs...)
	}
	return detail, nil
}

// LoadTalentDetail decodes a stored payload without strictness checks.
func LoadTalentDetail(kind TalentKind, raw []byte) (TalentDetail, error) {
	target, ok := newDetail(kind)
	if !ok {
		return nil, fmt.Errorf("unknown talent kind %q", kind)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, target); err != nil {
			return nil, fmt.Errorf("decode %s detail: %w", kind, err)
		}
	}
	return deref(target), nil
}

func decodeFieldError(err error) appErrors.FieldError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return appErrors.FieldError{Field: "detail." + typeErr.Field, Message: fmt.Sprintf("%s must be %s", typeErr.Field, typeErr.Type.String())}
	}
	msg := err.Error()
	if strings.HasPrefix(msg, "json: unknown field ") {
		name := strings.Trim(strings.TrimPrefix(msg, "json: unknown field "), `"`)
		return appErrors.FieldError{Field: "detail." + name, Message: "unknown field " + name}
	}
	return appErrors.FieldError{Field: "detail", Message: strings.TrimPrefix(msg, "json: ")}
}
