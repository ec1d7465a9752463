// README: Transport plan model: the staffing, equipment and mode decisions a quote is priced from.
package plan

import (
	"errors"
	"fmt"
	"slices"
)

type Category string

const (
	CategoryAir      Category = "AIR_TRANSPORT"
	CategoryDeceased Category = "DECEASED_TRANSPORT"
	CategoryEvent    Category = "EVENT_SUPPORT"
)

var Categories = []Category{CategoryAir, CategoryDeceased, CategoryEvent}

func (c Category) Valid() bool { return slices.Contains(Categories, c) }

type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

type TransportMode string

const (
	ModeCivil        TransportMode = "civil"
	ModeAirAmbulance TransportMode = "airAmbulance"
	ModeCharter      TransportMode = "charter"
	ModeShip         TransportMode = "ship"
)

var TransportModes = []TransportMode{ModeCivil, ModeAirAmbulance, ModeCharter, ModeShip}

func (m TransportMode) Valid() bool { return slices.Contains(TransportModes, m) }

type SeatClass string

const (
	SeatBusiness  SeatClass = "business"
	SeatStretcher SeatClass = "stretcher"
	SeatCoffin    SeatClass = "coffin"
)

type Role string

const (
	RoleDoctor  Role = "doctor"
	RoleNurse   Role = "nurse"
	RoleHandler Role = "handler"
	RoleStaff   Role = "staff"
)

var Roles = []Role{RoleDoctor, RoleNurse, RoleHandler, RoleStaff}

type MedicationLevel string

const (
	MedicationLow    MedicationLevel = "low"
	MedicationMedium MedicationLevel = "medium"
	MedicationHigh   MedicationLevel = "high"
)

type Equipment struct {
	Ventilator bool `json:"ventilator"`
	ECMO       bool `json:"ecmo"`
}

// Crew is a set of roles kept in canonical role order.
type Crew []Role

// NewCrew deduplicates roles and orders them canonically. Unknown roles are dropped.
func NewCrew(roles ...Role) Crew {
	crew := make(Crew, 0, len(roles))
	for _, r := range Roles {
		if slices.Contains(roles, r) {
			crew = append(crew, r)
		}
	}
	return crew
}

func (c Crew) Has(r Role) bool { return slices.Contains(c, r) }

func (c Crew) Size() int { return len(c) }

type TransportPlan struct {
	Category        Category        `json:"category"`
	Cremated        bool            `json:"cremated,omitempty"`
	Risk            Risk            `json:"risk"`
	TransportMode   TransportMode   `json:"transportMode"`
	SeatClass       SeatClass       `json:"seatClass"`
	Crew            Crew            `json:"crew"`
	Equipment       Equipment       `json:"equipment"`
	MedicationLevel MedicationLevel `json:"medicationLevel"`
	Notes           []string        `json:"notes"`
}

var (
	ErrEmptyCrew       = errors.New("crew must not be empty")
	ErrCoffinForLiving = errors.New("coffin seat class is only valid for deceased transport")
	ErrMissingCoffin   = errors.New("deceased transport requires coffin seat class")
)

// Validate checks the cross-field invariants that the JSON schema cannot express.
func (p TransportPlan) Validate() error {
	if len(p.Crew) == 0 {
		return ErrEmptyCrew
	}
	if !p.Category.Valid() {
		return fmt.Errorf("unknown category %q", p.Category)
	}
	if !p.TransportMode.Valid() {
		return fmt.Errorf("unknown transport mode %q", p.TransportMode)
	}
	if p.Category == CategoryDeceased && p.SeatClass != SeatCoffin {
		return ErrMissingCoffin
	}
	if p.Category != CategoryDeceased && p.SeatClass == SeatCoffin {
		return ErrCoffinForLiving
	}
	return nil
}

// DefaultPlan is substituted whenever the generated plan fails validation.
func DefaultPlan() TransportPlan {
	return TransportPlan{
		Category:        CategoryAir,
		Risk:            RiskMedium,
		TransportMode:   ModeCivil,
		SeatClass:       SeatStretcher,
		Crew:            NewCrew(RoleDoctor, RoleNurse),
		Equipment:       Equipment{Ventilator: true},
		MedicationLevel: MedicationMedium,
		Notes:           []string{},
	}
}

// EventPlan staffs an on-site medical coverage engagement. No patient is moved.
func EventPlan() TransportPlan {
	return TransportPlan{
		Category:        CategoryEvent,
		Risk:            RiskLow,
		TransportMode:   ModeCivil,
		SeatClass:       SeatStretcher,
		Crew:            NewCrew(RoleDoctor, RoleNurse, RoleStaff),
		MedicationLevel: MedicationLow,
		Notes:           []string{},
	}
}

// ForCategory applies the caller's category decision to a derived plan. Only
// seat class, cremation and equipment change; crew is never altered since it
// drives every per-crew rate item.
func ForCategory(p TransportPlan, category Category, cremated bool) TransportPlan {
	out := p.clone()
	out.Category = category
	switch category {
	case CategoryDeceased:
		out.SeatClass = SeatCoffin
		out.Cremated = cremated
		// no medical equipment travels with remains; crew stays as derived
		out.Equipment = Equipment{}
	default:
		out.Cremated = false
		if out.SeatClass == SeatCoffin {
			out.SeatClass = SeatStretcher
		}
	}
	return out
}

func (p TransportPlan) clone() TransportPlan {
	out := p
	out.Crew = slices.Clone(p.Crew)
	out.Notes = slices.Clone(p.Notes)
	return out
}
