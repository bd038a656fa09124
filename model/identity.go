package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	discoveryv1 "k8s.io/api/discovery/v1"
)

const (
	// AppLabel carries the application name, as set by naiserator on generated resources
	AppLabel = "app"
	// TeamLabel carries the owning team name
	TeamLabel = "team"

	serviceOwnerAPIVersion = "v1"
	serviceOwnerKind       = "Service"
)

// Identity of an application an EndpointSlice belongs to
type Identity struct {
	App  string
	Team string
}

// Disqualification reason codes
const (
	ReasonMissingNamespace  = "MissingNamespace"
	ReasonMissingLabels     = "MissingLabels"
	ReasonNoServiceOwner    = "NoServiceOwner"
	ReasonNoApplication     = "ApplicationNotFound"
	ReasonApplicationLookup = "ApplicationLookupFailed"
)

// Disqualification explains why an object is not eligible for status reporting.
// It is not a failure: the object is skipped and processing continues.
type Disqualification struct {
	Reason  string
	Message string
}

func (d *Disqualification) Error() string {
	return fmt.Sprintf("%s: %s", d.Reason, d.Message)
}

// Disqualify creates a new disqualification
func Disqualify(reason, format string, args ...any) *Disqualification {
	return &Disqualification{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// IdentifyEndpointSlice derives the application identity of a slice.
// The slice must be namespaced, carry non-empty app and team labels,
// and be owned by a v1 Service named after the app label.
// A *Disqualification is returned otherwise.
func IdentifyEndpointSlice(slice *discoveryv1.EndpointSlice) (Identity, error) {
	if slice.Namespace == "" {
		return Identity{}, Disqualify(ReasonMissingNamespace, "unable to ascertain namespace of EndpointSlice")
	}

	id, err := IdentityFromLabels(slice.Labels)
	if err != nil {
		return Identity{}, err
	}

	if !HasServiceOwner(slice, id.App) {
		return Identity{}, Disqualify(ReasonNoServiceOwner, "EndpointSlice has no owner reference to %s/%s %s",
			serviceOwnerAPIVersion, serviceOwnerKind, id.App)
	}

	return id, nil
}

// IdentityFromLabels reads app and team labels, reporting all that are missing
func IdentityFromLabels(labels map[string]string) (Identity, error) {
	id := Identity{App: labels[AppLabel], Team: labels[TeamLabel]}

	var missing []string
	if id.App == "" {
		missing = append(missing, AppLabel)
	}
	if id.Team == "" {
		missing = append(missing, TeamLabel)
	}
	if len(missing) > 0 {
		return Identity{}, Disqualify(ReasonMissingLabels, "missing required label(s): %s", strings.Join(missing, ", "))
	}
	return id, nil
}

// HasServiceOwner returns true if the slice is owned by a core v1 Service named appName
func HasServiceOwner(slice *discoveryv1.EndpointSlice, appName string) bool {
	for _, owner := range slice.OwnerReferences {
		if owner.APIVersion == serviceOwnerAPIVersion &&
			owner.Kind == serviceOwnerKind &&
			owner.Name == appName {
			return true
		}
	}
	return false
}

// Correlation identifies a single reconciliation in logs and events.
// It is passed explicitly through the pipeline stages.
type Correlation struct {
	TraceID   string
	Namespace string
	Name      string
	App       string
	Team      string
}

// NewCorrelation starts a correlation for the given slice with a fresh trace id
func NewCorrelation(slice *discoveryv1.EndpointSlice) Correlation {
	return Correlation{
		TraceID:   uuid.NewString(),
		Namespace: slice.Namespace,
		Name:      slice.Name,
	}
}

// WithIdentity returns a copy of the correlation annotated with app and team
func (c Correlation) WithIdentity(id Identity) Correlation {
	c.App = id.App
	c.Team = id.Team
	return c
}

// KeysAndValues returns the non-empty correlation fields as logr key/value pairs
func (c Correlation) KeysAndValues() []any {
	kvs := []any{"traceID", c.TraceID, "namespace", c.Namespace, "endpointSlice", c.Name}
	if c.App != "" {
		kvs = append(kvs, "app", c.App)
	}
	if c.Team != "" {
		kvs = append(kvs, "team", c.Team)
	}
	return kvs
}
