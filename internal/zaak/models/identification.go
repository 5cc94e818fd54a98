package models

import (
	"fmt"
	"strings"

	dErrors "zac/pkg/domain-errors"
)

// Identification identifies a case initiator. The set of implementations is
// closed: BSN, Vestiging and RSIN.
type Identification interface {
	isIdentification()
	Validate() error
}

// BSN is a citizen service number.
type BSN struct {
	Number string
}

// Vestiging is a business establishment in the chamber of commerce registry.
type Vestiging struct {
	KvKNumber       string
	VestigingNumber string
}

// RSIN identifies a legal entity without a specific establishment.
type RSIN struct {
	Number string
}

func (BSN) isIdentification()       {}
func (Vestiging) isIdentification() {}
func (RSIN) isIdentification()      {}

func (b BSN) Validate() error {
	if !digits(b.Number, 9) {
		return dErrors.New(dErrors.CodeValidation, "bsn must be 9 digits")
	}
	if !elevenProof(b.Number) {
		return dErrors.New(dErrors.CodeValidation, "bsn fails the eleven test")
	}
	return nil
}

func (v Vestiging) Validate() error {
	if !digits(v.KvKNumber, 8) {
		return dErrors.New(dErrors.CodeValidation, "kvk number must be 8 digits")
	}
	if !digits(v.VestigingNumber, 12) {
		return dErrors.New(dErrors.CodeValidation, "vestiging number must be 12 digits")
	}
	return nil
}

func (r RSIN) Validate() error {
	if !digits(r.Number, 9) {
		return dErrors.New(dErrors.CodeValidation, "rsin must be 9 digits")
	}
	return nil
}

// InitiatorType is the registry-side role subject type.
type InitiatorType string

const (
	InitiatorNatuurlijkPersoon     InitiatorType = "natuurlijk_persoon"
	InitiatorVestiging             InitiatorType = "vestiging"
	InitiatorNietNatuurlijkPersoon InitiatorType = "niet_natuurlijk_persoon"
)

// InitiatorRole is the initiator role to be written to the case registry.
type InitiatorRole struct {
	Type            InitiatorType `json:"type"`
	BSN             string        `json:"bsn,omitempty"`
	KvKNumber       string        `json:"kvk_number,omitempty"`
	VestigingNumber string        `json:"vestiging_number,omitempty"`
	RSIN            string        `json:"rsin,omitempty"`
}

// UsesCitizenRegistry reports whether ident is resolved through the citizen
// registry rather than the business registry.
func UsesCitizenRegistry(ident Identification) bool {
	_, ok := ident.(BSN)
	return ok
}

// NewInitiatorRole builds the registry role for ident.
func NewInitiatorRole(ident Identification) (InitiatorRole, error) {
	if ident == nil {
		return InitiatorRole{}, dErrors.New(dErrors.CodeValidation, "identification is required")
	}
	if err := ident.Validate(); err != nil {
		return InitiatorRole{}, err
	}
	switch v := ident.(type) {
	case BSN:
		return InitiatorRole{Type: InitiatorNatuurlijkPersoon, BSN: v.Number}, nil
	case Vestiging:
		return InitiatorRole{Type: InitiatorVestiging, KvKNumber: v.KvKNumber, VestigingNumber: v.VestigingNumber}, nil
	case RSIN:
		return InitiatorRole{Type: InitiatorNietNatuurlijkPersoon, RSIN: v.Number}, nil
	default:
		panic(fmt.Sprintf("unhandled identification %T", ident))
	}
}

// ParseIdentification builds an Identification from its wire type name.
func ParseIdentification(kind, number, vestigingNumber string) (Identification, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "bsn":
		return BSN{Number: number}, nil
	case "vestiging":
		return Vestiging{KvKNumber: number, VestigingNumber: vestigingNumber}, nil
	case "rsin":
		return RSIN{Number: number}, nil
	default:
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown identification type %q", kind)
	}
}

func digits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// elevenProof applies the BSN check: sum of digit*weight with weights 9..2
// and -1 for the last digit must be divisible by 11.
func elevenProof(s string) bool {
	sum := 0
	for i, r := range s {
		d := int(r - '0')
		if i == len(s)-1 {
			sum -= d
		} else {
			sum += d * (len(s) - i)
		}
	}
	return sum%11 == 0 && sum != 0
}
