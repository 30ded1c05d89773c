package domain

import (
	"fmt"
	"strings"
)

// Plan is a purchasable tier bounding a server's resources.
type Plan struct {
	ID          int64  `json:"id"`
	Name        string `json:"nombre"`
	Description string `json:"descripcion"`
	Price       Cents  `json:"precio"`
	PlayerSlots int    `json:"slots_jugadores"`
	RAMMB       int    `json:"ram"`
	StorageMB   int    `json:"almacenamiento"`
	Active      bool   `json:"activo"`
}

// PlanInput carries admin create/update fields. A nil Active keeps the
// stored flag on update and means active on create.
type PlanInput struct {
	Name        string `json:"nombre"`
	Description string `json:"descripcion"`
	Price       *Cents `json:"precio"`
	PlayerSlots int    `json:"slots_jugadores"`
	RAMMB       int    `json:"ram"`
	StorageMB   int    `json:"almacenamiento"`
	Active      *bool  `json:"activo"`
}

// Validate normalizes and checks the input.
func (in *PlanInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return fmt.Errorf("nombre is required")
	}
	if len(in.Name) > 100 {
		return fmt.Errorf("nombre must not exceed 100 characters")
	}
	if in.Price == nil {
		return fmt.Errorf("precio is required")
	}
	if *in.Price < 0 {
		return fmt.Errorf("precio must not be negative")
	}
	if *in.Price > MaxCents {
		return fmt.Errorf("precio must not exceed %s", MaxCents)
	}
	if in.PlayerSlots <= 0 {
		return fmt.Errorf("slots_jugadores must be positive")
	}
	if in.RAMMB <= 0 {
		return fmt.Errorf("ram must be positive")
	}
	if in.StorageMB <= 0 {
		return fmt.Errorf("almacenamiento must be positive")
	}
	return nil
}

// ToPlan builds a new Plan from validated input. Active defaults to true.
func (in PlanInput) ToPlan() Plan {
	p := Plan{Active: true}
	in.ApplyTo(&p)
	return p
}

// ApplyTo overwrites p with validated input, leaving p.Active alone when
// the input omits it.
func (in PlanInput) ApplyTo(p *Plan) {
	p.Name = in.Name
	p.Description = in.Description
	if in.Price != nil {
		p.Price = *in.Price
	}
	p.PlayerSlots = in.PlayerSlots
	p.RAMMB = in.RAMMB
	p.StorageMB = in.StorageMB
	if in.Active != nil {
		p.Active = *in.Active
	}
}
