package workforce

import (
	"strings"

	"github.com/occhealth/occhealth/internal/platform/apperr"
)

// EmployeePatch is a partial update of an employee. Nil fields are left alone.
// Company, department and site changes go through their own operations because
// they move counters.
type EmployeePatch struct {
	FirstName   *string           `json:"first_name,omitempty"`
	LastName    *string           `json:"last_name,omitempty"`
	Email       *string           `json:"email,omitempty"`
	JobTitle    *string           `json:"job_title,omitempty"`
	Status      *string           `json:"status,omitempty"`
	MedicalInfo *MedicalInfoPatch `json:"medical_info,omitempty"`
}

// MedicalInfoPatch replaces individual medical fields. A non-nil empty slice
// clears the list.
type MedicalInfoPatch struct {
	Allergies   *[]string `json:"allergies,omitempty"`
	Conditions  *[]string `json:"conditions,omitempty"`
	Medications *[]string `json:"medications,omitempty"`
	BloodType   *string   `json:"blood_type,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p *EmployeePatch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil &&
		p.JobTitle == nil && p.Status == nil && p.MedicalInfo == nil
}

// Apply validates the patch and writes it onto e. e is untouched on error.
func (p *EmployeePatch) Apply(e *Employee) error {
	if p.FirstName != nil && strings.TrimSpace(*p.FirstName) == "" {
		return apperr.Invalid("first_name", "must not be blank")
	}
	if p.LastName != nil && strings.TrimSpace(*p.LastName) == "" {
		return apperr.Invalid("last_name", "must not be blank")
	}
	if p.Status != nil && !validEmployeeStatuses[*p.Status] {
		return apperr.Invalid("status", "unknown status %q", *p.Status)
	}

	if p.FirstName != nil {
		e.FirstName = strings.TrimSpace(*p.FirstName)
	}
	if p.LastName != nil {
		e.LastName = strings.TrimSpace(*p.LastName)
	}
	if p.Email != nil {
		e.Email = p.Email
	}
	if p.JobTitle != nil {
		e.JobTitle = p.JobTitle
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.MedicalInfo != nil {
		p.MedicalInfo.apply(&e.MedicalInfo)
	}
	return nil
}

func (p *MedicalInfoPatch) apply(m *MedicalInfo) {
	if p.Allergies != nil {
		m.Allergies = append([]string(nil), (*p.Allergies)...)
	}
	if p.Conditions != nil {
		m.Conditions = append([]string(nil), (*p.Conditions)...)
	}
	if p.Medications != nil {
		m.Medications = append([]string(nil), (*p.Medications)...)
	}
	if p.BloodType != nil {
		m.BloodType = p.BloodType
	}
	if p.Notes != nil {
		m.Notes = p.Notes
	}
}
