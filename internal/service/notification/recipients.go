package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/engagement-hub/internal/repository"
	"github.com/jwalitptl/engagement-hub/pkg/event"
)

var errInvalidRecipientID = errors.New("payload field is not a valid id")

type sourceKind int

const (
	person sourceKind = iota
	productManagers
	organisationManagers
)

// source names one payload field and how it maps to recipients.
type source struct {
	kind sourceKind
	key  string
}

var (
	fromPerson       = source{person, "person_id"}
	fromProduct      = source{productManagers, "product_id"}
	fromOrganisation = source{organisationManagers, "organisation_id"}
)

// rules lists who is notified for each event type.
var rules = map[event.EventType][]source{
	event.ProductCreated:      {fromPerson, fromProduct, fromOrganisation},
	event.ChallengeCreated:    {fromProduct},
	event.ChallengeUpdated:    {fromProduct},
	event.BountyClaimCreated:  {fromProduct},
	event.WorkSubmitted:       {fromProduct},
	event.BountyClaimAccepted: {fromPerson},
	event.BountyClaimRejected: {fromPerson},
	event.WorkApproved:        {fromPerson},
	event.WorkRejected:        {fromPerson},
}

// resolveRecipients returns each qualifying recipient once, in the order
// they were first found. Sources whose payload field is absent are skipped.
func resolveRecipients(ctx context.Context, dir repository.RecipientDirectory, eventType event.EventType, payload event.Payload) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	add := func(ids ...uuid.UUID) {
		for _, id := range ids {
			if id == uuid.Nil {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}

	for _, src := range rules[eventType] {
		if _, ok := payload[src.key]; !ok {
			continue
		}
		if src.kind == person {
			ids := payload.UUIDs(src.key)
			if len(ids) == 0 {
				return nil, fmt.Errorf("%w: %s", errInvalidRecipientID, src.key)
			}
			add(ids...)
			continue
		}

		id, ok := payload.UUID(src.key)
		if !ok {
			return nil, fmt.Errorf("%w: %s", errInvalidRecipientID, src.key)
		}
		var (
			ids []uuid.UUID
			err error
		)
		if src.kind == productManagers {
			ids, err = dir.ProductManagers(ctx, id)
		} else {
			ids, err = dir.OrganisationManagers(ctx, id)
		}
		if err != nil {
			return nil, err
		}
		add(ids...)
	}
	return out, nil
}
