package event

import (
	"errors"
	"fmt"
	"sort"
)

// RegistryVersion is bumped whenever a type is added to or retired from the
// registry. Deferred tasks carry it so workers can detect a mismatch.
const RegistryVersion = 1

type EventType string

const (
	ProductCreated      EventType = "product.created"
	ChallengeCreated    EventType = "challenge.created"
	ChallengeUpdated    EventType = "challenge.updated"
	BountyClaimCreated  EventType = "bounty.claim_created"
	BountyClaimAccepted EventType = "bounty.claim_accepted"
	BountyClaimRejected EventType = "bounty.claim_rejected"
	WorkSubmitted       EventType = "work.submitted"
	WorkApproved        EventType = "work.approved"
	WorkRejected        EventType = "work.rejected"
)

var ErrUnknownEventType = errors.New("unknown event type")

// TypeInfo describes a registered event type.
type TypeInfo struct {
	Type        EventType
	Since       int
	Description string
}

var knownTypes = map[EventType]TypeInfo{
	ProductCreated:      {Type: ProductCreated, Since: 1, Description: "a product was created"},
	ChallengeCreated:    {Type: ChallengeCreated, Since: 1, Description: "a challenge was created on a product"},
	ChallengeUpdated:    {Type: ChallengeUpdated, Since: 1, Description: "a challenge changed"},
	BountyClaimCreated:  {Type: BountyClaimCreated, Since: 1, Description: "a contributor claimed a bounty"},
	BountyClaimAccepted: {Type: BountyClaimAccepted, Since: 1, Description: "a bounty claim was accepted"},
	BountyClaimRejected: {Type: BountyClaimRejected, Since: 1, Description: "a bounty claim was rejected"},
	WorkSubmitted:       {Type: WorkSubmitted, Since: 1, Description: "work was submitted for a bounty"},
	WorkApproved:        {Type: WorkApproved, Since: 1, Description: "submitted work was approved"},
	WorkRejected:        {Type: WorkRejected, Since: 1, Description: "submitted work was rejected"},
}

// Lookup returns the registry entry for t.
func Lookup(t EventType) (TypeInfo, bool) {
	info, ok := knownTypes[t]
	return info, ok
}

// Validate returns ErrUnknownEventType when t is outside the registry.
func (t EventType) Validate() error {
	if _, ok := knownTypes[t]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEventType, string(t))
	}
	return nil
}

func (t EventType) String() string {
	return string(t)
}

// ParseType converts a raw string into a registered EventType.
func ParseType(s string) (EventType, error) {
	t := EventType(s)
	if err := t.Validate(); err != nil {
		return "", err
	}
	return t, nil
}

// Types returns all registered types in lexical order.
func Types() []EventType {
	types := make([]EventType, 0, len(knownTypes))
	for t := range knownTypes {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
