package workforce

import (
	"testing"

	"github.com/occhealth/occhealth/internal/platform/apperr"
)

func strPtr(s string) *string { return &s }

func TestEmployeePatch_Empty(t *testing.T) {
	if !(&EmployeePatch{}).Empty() {
		t.Error("zero patch should be empty")
	}
	if (&EmployeePatch{Email: strPtr("a@b.c")}).Empty() {
		t.Error("patch with email should not be empty")
	}
}

func TestEmployeePatch_Apply(t *testing.T) {
	tests := []struct {
		name    string
		patch   EmployeePatch
		wantErr bool
		check   func(t *testing.T, e *Employee)
	}{
		{
			name:  "trims names",
			patch: EmployeePatch{FirstName: strPtr("  Grace ")},
			check: func(t *testing.T, e *Employee) {
				if e.FirstName != "Grace" {
					t.Errorf("got %q", e.FirstName)
				}
			},
		},
		{
			name:    "blank last name",
			patch:   EmployeePatch{LastName: strPtr("  ")},
			wantErr: true,
		},
		{
			name:    "unknown status leaves record alone",
			patch:   EmployeePatch{FirstName: strPtr("Grace"), Status: strPtr("fired")},
			wantErr: true,
		},
		{
			name:  "status",
			patch: EmployeePatch{Status: strPtr(StatusOnLeave)},
			check: func(t *testing.T, e *Employee) {
				if e.Status != StatusOnLeave {
					t.Errorf("got %q", e.Status)
				}
			},
		},
		{
			name: "clear allergies keep conditions",
			patch: EmployeePatch{MedicalInfo: &MedicalInfoPatch{
				Allergies: &[]string{},
				BloodType: strPtr("O+"),
			}},
			check: func(t *testing.T, e *Employee) {
				if len(e.MedicalInfo.Allergies) != 0 {
					t.Errorf("allergies not cleared: %v", e.MedicalInfo.Allergies)
				}
				if len(e.MedicalInfo.Conditions) != 1 {
					t.Errorf("conditions changed: %v", e.MedicalInfo.Conditions)
				}
				if e.MedicalInfo.BloodType == nil || *e.MedicalInfo.BloodType != "O+" {
					t.Errorf("blood type not set")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Employee{
				FirstName: "Ada",
				LastName:  "Lovelace",
				Status:    StatusActive,
				MedicalInfo: MedicalInfo{
					Allergies:  []string{"penicillin"},
					Conditions: []string{"asthma"},
				},
			}
			err := tt.patch.Apply(e)
			if tt.wantErr {
				if !apperr.IsUserError(err) {
					t.Fatalf("expected user error, got %v", err)
				}
				if e.FirstName != "Ada" || e.Status != StatusActive {
					t.Errorf("employee modified on error: %+v", e)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, e)
		})
	}
}

func TestEmployee_FullName(t *testing.T) {
	cases := map[string]Employee{
		"Ada Lovelace": {FirstName: "Ada", LastName: "Lovelace"},
		"Ada":          {FirstName: "Ada"},
		"Lovelace":     {LastName: "Lovelace"},
	}
	for want, e := range cases {
		if got := e.FullName(); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}
