package statusplattform

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Status is the reported service status.
// Values are upper case as expected by the portal backend.
type Status string

const (
	// StatusOK service is ready for traffic
	StatusOK Status = "OK"
	// StatusDown service has no ready endpoints
	StatusDown Status = "DOWN"
)

// StatusFromReadiness maps a readiness verdict to a status
func StatusFromReadiness(ready bool) Status {
	if ready {
		return StatusOK
	}
	return StatusDown
}

// RecordSource identifies who produced a status record.
// Only GCP polling is produced by this operator.
type RecordSource string

// SourceGCPPoll status obtained by polling a GCP cluster
const SourceGCPPoll RecordSource = "GCP_POLL"

// ServiceTypeTjeneste is the service type of every service created by this operator
const ServiceTypeTjeneste = "TJENESTE"

// RecordDto is a single status record
type RecordDto struct {
	ServiceID   uuid.UUID    `json:"service_id"`
	Status      Status       `json:"status"`
	Source      RecordSource `json:"source"`
	Description string       `json:"description"`
}

// AreaDto is reserved, areas are never populated
type AreaDto struct{}

// ServiceDto is the request body used to create a service
type ServiceDto struct {
	Name                             string       `json:"name"`
	Type                             string       `json:"type"`
	Team                             string       `json:"team"`
	ServiceDependencies              []ServiceDto `json:"service_dependencies"`
	ComponentDependencies            []ServiceDto `json:"component_dependencies"`
	AreasContainingThisService       []AreaDto    `json:"areas_containing_this_service"`
	ServicesDependentOnThisComponent []ServiceDto `json:"services_dependent_on_this_component"`
}

// NewServiceDto creates a service of type TJENESTE with empty dependency collections
func NewServiceDto(name, team string) ServiceDto {
	return ServiceDto{
		Name:                             name,
		Type:                             ServiceTypeTjeneste,
		Team:                             team,
		ServiceDependencies:              []ServiceDto{},
		ComponentDependencies:            []ServiceDto{},
		AreasContainingThisService:       []AreaDto{},
		ServicesDependentOnThisComponent: []ServiceDto{},
	}
}

// ServiceRef is the part of a registry service this operator cares about
type ServiceRef struct {
	Name string        `json:"name"`
	ID   uuid.NullUUID `json:"id"`
}

// serviceRefs accepts both a single object and an array of objects
type serviceRefs []ServiceRef

func (s *serviceRefs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var refs []ServiceRef
		if err := json.Unmarshal(data, &refs); err != nil {
			return err
		}
		*s = refs
		return nil
	}

	var ref ServiceRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return err
	}
	*s = serviceRefs{ref}
	return nil
}

// pick returns the id of the entry matching name,
// falling back to the only entry when the response carries a single one
func (s serviceRefs) pick(name string) (uuid.UUID, error) {
	for _, ref := range s {
		if ref.Name == name && ref.ID.Valid {
			return ref.ID.UUID, nil
		}
	}
	if len(s) == 1 && s[0].ID.Valid {
		return s[0].ID.UUID, nil
	}
	return uuid.Nil, fmt.Errorf("no service id for %q in response of %d entries", name, len(s))
}
