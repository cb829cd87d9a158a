package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind discriminates the three structurally different account collections.
type Kind string

const (
	KindCandidate Kind = "candidate"
	KindPartner   Kind = "partner"
	KindAdmin     Kind = "admin"
)

// Identity is a resolved account record for exactly one of the three user
// kinds. Values are immutable snapshots; callers must switch exhaustively on
// the concrete type (or Kind) rather than probe for fields.
type Identity interface {
	Kind() Kind
	ID() string
	Email() string
}

// CandidateIdentity is a candidate or volunteer account. The two roles share
// one collection upstream; promotion from candidate to volunteer is an
// explicit update of the same record, never a re-resolution.
type CandidateIdentity struct {
	AccountID       string `json:"id"`
	Username        string `json:"username"`
	EmailAddr       string `json:"email"`
	Password        string `json:"password"`
	RawRole         string `json:"role"`
	ProfileID       string `json:"profileId,omitempty"`
	ProfileComplete bool   `json:"profileComplete"`
}

func (c CandidateIdentity) Kind() Kind    { return KindCandidate }
func (c CandidateIdentity) ID() string    { return c.AccountID }
func (c CandidateIdentity) Email() string { return c.EmailAddr }

// PartnerIdentity is a partner-organization account. Two legacy field names
// both mean "this account is usable"; either one being true is enough.
type PartnerIdentity struct {
	AccountID    string `json:"id"`
	EmailAddr    string `json:"email"`
	TempPassword string `json:"tempPassword"`
	OrgName      string `json:"orgName"`
	Active       *bool  `json:"active,omitempty"`
	Enabled      *bool  `json:"enabled,omitempty"`
}

func (p PartnerIdentity) Kind() Kind    { return KindPartner }
func (p PartnerIdentity) ID() string    { return p.AccountID }
func (p PartnerIdentity) Email() string { return p.EmailAddr }

// Usable reports whether the partner account may log in, honouring both
// legacy activity flags.
func (p PartnerIdentity) Usable() bool {
	if p.Active != nil && *p.Active {
		return true
	}
	return p.Enabled != nil && *p.Enabled
}

// AdminIdentity is an administrator account, either admin or super-admin.
type AdminIdentity struct {
	AccountID string `json:"id"`
	Username  string `json:"username"`
	EmailAddr string `json:"email"`
	Password  string `json:"password"`
	RawRole   string `json:"role"`
}

func (a AdminIdentity) Kind() Kind    { return KindAdmin }
func (a AdminIdentity) ID() string    { return a.AccountID }
func (a AdminIdentity) Email() string { return a.EmailAddr }

// CanonicalRole derives the canonical role of an identity. Partners have no
// role field upstream; their kind is their role.
func CanonicalRole(id Identity) Role {
	switch v := id.(type) {
	case CandidateIdentity:
		if role := NormalizeRole(v.RawRole); role != RoleNone {
			return role
		}
		return RoleCandidate
	case PartnerIdentity:
		return RolePartner
	case AdminIdentity:
		return NormalizeRole(v.RawRole)
	default:
		return RoleNone
	}
}

// ErrUnknownKind reports an identity envelope with an unrecognized kind tag.
var ErrUnknownKind = errors.New("domain: unknown identity kind")

// identityEnvelope is the serialized form of an Identity: the kind tag plus
// the variant payload. Decoding an envelope with a missing or unknown tag
// fails rather than guessing a shape.
type identityEnvelope struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// EncodeIdentity serializes an identity with its kind tag.
func EncodeIdentity(id Identity) ([]byte, error) {
	payload, err := json.Marshal(id)
	if err != nil {
		return nil, fmt.Errorf("domain: encode %s identity: %w", id.Kind(), err)
	}
	return json.Marshal(identityEnvelope{Kind: id.Kind(), Payload: payload})
}

// DecodeIdentity reconstructs an identity from its tagged serialized form.
func DecodeIdentity(data []byte) (Identity, error) {
	var env identityEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("domain: decode identity envelope: %w", err)
	}

	switch env.Kind {
	case KindCandidate:
		var c CandidateIdentity
		if err := json.Unmarshal(env.Payload, &c); err != nil {
			return nil, fmt.Errorf("domain: decode candidate identity: %w", err)
		}
		return c, nil
	case KindPartner:
		var p PartnerIdentity
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("domain: decode partner identity: %w", err)
		}
		return p, nil
	case KindAdmin:
		var a AdminIdentity
		if err := json.Unmarshal(env.Payload, &a); err != nil {
			return nil, fmt.Errorf("domain: decode admin identity: %w", err)
		}
		return a, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Kind)
	}
}
