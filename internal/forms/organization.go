package forms

import (
	"strings"

	"github.com/tgienger/phub/internal/models"
	"github.com/tgienger/phub/internal/validation"
)

// OrgTab selects what the organization form submits
type OrgTab int

const (
	TabCreate OrgTab = iota
	TabJoin
)

func (t OrgTab) String() string {
	if t == TabJoin {
		return "Join"
	}
	return "Create"
}

// OrganizationForm creates an organization or joins one by invite code
type OrganizationForm struct {
	Form
	Tab         OrgTab
	Name        string
	Description string
	Code        string

	joined *models.Organization
}

// NewOrganizationForm starts on the create tab
func NewOrganizationForm() *OrganizationForm {
	return &OrganizationForm{}
}

// Toggle switches tabs, dropping any inline error from the other tab
func (f *OrganizationForm) Toggle() {
	if f.submitting {
		return
	}
	if f.Tab == TabCreate {
		f.Tab = TabJoin
	} else {
		f.Tab = TabCreate
	}
	f.err = nil
}

// Begin validates the fields of the active tab and starts a submission
func (f *OrganizationForm) Begin() bool {
	if f.Tab == TabJoin {
		return f.start(validation.ValidateInviteCode(f.Code))
	}
	return f.start(validation.ValidateOrganizationName(f.Name))
}

// Trimmed values for the mutation
func (f *OrganizationForm) NameValue() string        { return strings.TrimSpace(f.Name) }
func (f *OrganizationForm) DescriptionValue() string { return strings.TrimSpace(f.Description) }
func (f *OrganizationForm) CodeValue() string        { return strings.TrimSpace(f.Code) }

// Finish settles the submission with the created or joined organization
func (f *OrganizationForm) Finish(org *models.Organization, err error) {
	if !f.finish(err) {
		return
	}
	f.joined = org
	f.Name, f.Description, f.Code = "", "", ""
}

// Result is the organization from the last successful submission
func (f *OrganizationForm) Result() *models.Organization { return f.joined }
