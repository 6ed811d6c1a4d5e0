package workforce

import (
	"context"

	"github.com/google/uuid"

	"github.com/occhealth/occhealth/internal/platform/apperr"
	"github.com/occhealth/occhealth/internal/platform/auth"
)

// MembershipIndex expands departments and sites into the employees actively
// assigned to them. It only reads.
type MembershipIndex struct {
	departments DepartmentRepository
	sites       SiteRepository
	assignments AssignmentRepository
}

func NewMembershipIndex(d DepartmentRepository, s SiteRepository, a AssignmentRepository) *MembershipIndex {
	return &MembershipIndex{departments: d, sites: s, assignments: a}
}

// ExpandDepartment returns the distinct employees assigned to the department.
// An existing department without members yields an empty, non-nil slice.
func (m *MembershipIndex) ExpandDepartment(ctx context.Context, departmentID uuid.UUID) ([]uuid.UUID, error) {
	if _, err := m.department(ctx, departmentID); err != nil {
		return nil, err
	}
	return m.departmentMembers(ctx, departmentID)
}

// ExpandDepartmentInCompany is ExpandDepartment restricted to a department of
// companyID. A department of another company is reported as not found.
func (m *MembershipIndex) ExpandDepartmentInCompany(ctx context.Context, companyID, departmentID uuid.UUID) ([]uuid.UUID, error) {
	d, err := m.department(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	if d.CompanyID != companyID {
		return nil, apperr.NotFound("department", departmentID)
	}
	return m.departmentMembers(ctx, departmentID)
}

// ExpandSite returns the distinct employees assigned to the site.
func (m *MembershipIndex) ExpandSite(ctx context.Context, siteID uuid.UUID) ([]uuid.UUID, error) {
	if _, err := m.site(ctx, siteID); err != nil {
		return nil, err
	}
	return m.siteMembers(ctx, siteID)
}

// ExpandSiteInCompany is ExpandSite restricted to a site of companyID.
func (m *MembershipIndex) ExpandSiteInCompany(ctx context.Context, companyID, siteID uuid.UUID) ([]uuid.UUID, error) {
	s, err := m.site(ctx, siteID)
	if err != nil {
		return nil, err
	}
	if s.CompanyID != companyID {
		return nil, apperr.NotFound("site", siteID)
	}
	return m.siteMembers(ctx, siteID)
}

func (m *MembershipIndex) department(ctx context.Context, id uuid.UUID) (*Department, error) {
	d, err := m.departments.GetByID(ctx, id)
	return auth.RequireOwner(ctx, "department", id, d, err)
}

func (m *MembershipIndex) site(ctx context.Context, id uuid.UUID) (*Site, error) {
	s, err := m.sites.GetByID(ctx, id)
	return auth.RequireOwner(ctx, "site", id, s, err)
}

func (m *MembershipIndex) departmentMembers(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	ids, err := m.assignments.DepartmentEmployeeIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	return dedupe(ids), nil
}

func (m *MembershipIndex) siteMembers(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	ids, err := m.assignments.SiteEmployeeIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	return dedupe(ids), nil
}

// dedupe keeps the first occurrence of every id.
func dedupe(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
