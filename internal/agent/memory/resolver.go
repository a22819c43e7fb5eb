package memory

import (
	"context"
	"fmt"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/services"
)

var owners = map[model.EntityType]struct {
	service model.ServiceName
	key     string
}{
	model.EntityOrderID:        {model.ServiceOrder, model.CtxOrderID},
	model.EntityUserID:         {model.ServiceOrder, model.CtxUserID},
	model.EntityTrackingNumber: {model.ServiceLogistics, model.CtxTrackingNumber},
	model.EntityTransactionID:  {model.ServicePayment, model.CtxTransactionID},
	model.EntityTicketID:       {model.ServiceSupport, model.CtxTicketID},
}

// RegistryResolver resolves references with a direct lookup on the owning
// service.
type RegistryResolver struct {
	Registry *services.Registry
}

func (r RegistryResolver) Resolve(ctx context.Context, t model.EntityType, id string) (model.Record, error) {
	owner, ok := owners[t]
	if !ok {
		return nil, fmt.Errorf("no owning service for entity type %q", t)
	}
	svc, ok := r.Registry.Get(owner.service)
	if !ok {
		return nil, fmt.Errorf("service %s not registered", owner.service)
	}
	res := svc.Execute(ctx, model.ServiceRequest{
		Query:   string(t) + " " + id,
		Context: map[string]string{owner.key: id},
		Mode:    model.ModeDirect,
		Limit:   1,
	})
	if !res.Success {
		return nil, fmt.Errorf("%s lookup: %s", owner.service, res.Error)
	}
	if len(res.Data) == 0 {
		return nil, nil
	}
	return res.Data[0], nil
}

// Identifiers lists the entity types re-resolved from session references,
// with the context key each one seeds.
var Identifiers = []struct {
	Type  model.EntityType
	Field string
}{
	{model.EntityOrderID, model.CtxOrderID},
	{model.EntityTrackingNumber, model.CtxTrackingNumber},
	{model.EntityTransactionID, model.CtxTransactionID},
	{model.EntityTicketID, model.CtxTicketID},
}
