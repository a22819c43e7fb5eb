package model

import (
	"fmt"
	"strings"

	errx "github.com/Chative-core-poc-v1/orchestrator/internal/core/error"
)

// ServiceName identifies one of the four domain services.
type ServiceName string

const (
	ServiceOrder     ServiceName = "order"
	ServiceLogistics ServiceName = "logistics"
	ServicePayment   ServiceName = "payment"
	ServiceSupport   ServiceName = "support"
)

// AllServices lists the known services in dependency-table order.
func AllServices() []ServiceName {
	return []ServiceName{ServiceOrder, ServiceLogistics, ServicePayment, ServiceSupport}
}

// serviceAliases accepts the names a classifier is likely to produce.
var serviceAliases = map[string]ServiceName{
	"order":     ServiceOrder,
	"orders":    ServiceOrder,
	"logistics": ServiceLogistics,
	"shipping":  ServiceLogistics,
	"shipment":  ServiceLogistics,
	"payment":   ServicePayment,
	"payments":  ServicePayment,
	"support":   ServiceSupport,
	"tickets":   ServiceSupport,
}

func (s ServiceName) String() string {
	return string(s)
}

// Valid reports whether s is one of the four known services.
func (s ServiceName) Valid() bool {
	switch s {
	case ServiceOrder, ServiceLogistics, ServicePayment, ServiceSupport:
		return true
	}
	return false
}

// ParseServiceName resolves a (possibly aliased) name to a known service.
func ParseServiceName(name string) (ServiceName, error) {
	if s, ok := serviceAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", errx.ErrUnknownService, name)
}
