package inventory

import (
	"context"
	"fmt"

	"multinic-bond/internal/domain/entities"
	"multinic-bond/internal/domain/errors"
	"multinic-bond/internal/domain/interfaces"
	"multinic-bond/internal/domain/services"

	"github.com/sirupsen/logrus"
)

// Inventory enumerates active, non-virtual interfaces through a LinkLister.
// It is a pure read of OS state.
type Inventory struct {
	lister interfaces.LinkLister
	filter *services.InterfaceFilter
	logger *logrus.Logger
}

// NewInventory creates a new Inventory
func NewInventory(lister interfaces.LinkLister, filter *services.InterfaceFilter, logger *logrus.Logger) *Inventory {
	return &Inventory{
		lister: lister,
		filter: filter,
		logger: logger,
	}
}

// ListActive returns the interfaces reporting "up" whose names do not match the
// virtual/loopback prefixes, in the order the OS reported them.
func (inv *Inventory) ListActive(ctx context.Context) ([]entities.Interface, error) {
	links, err := inv.lister.Links(ctx)
	if err != nil {
		return nil, errors.NewSystemError("failed to enumerate network interfaces", err)
	}

	active := make([]entities.Interface, 0, len(links))
	for _, link := range links {
		if !inv.filter.Accept(link) {
			continue
		}
		active = append(active, link.ToInterface())
	}

	inv.logger.WithFields(logrus.Fields{
		"reported": len(links),
		"active":   len(active),
	}).Debug("Interface inventory refreshed")

	return active, nil
}

// Counters returns the byte counters of an interface. An interface that is
// unknown or has no counters yet reports (0,0) rather than an error.
func (inv *Inventory) Counters(ctx context.Context, name string) (uint64, uint64, error) {
	link, ok, err := inv.find(ctx, name)
	if err != nil {
		return 0, 0, err
	}
	if !ok || !link.HasCounters {
		return 0, 0, nil
	}
	return link.SentBytes, link.RecvBytes, nil
}

// Addresses returns the address entries of an interface
func (inv *Inventory) Addresses(ctx context.Context, name string) ([]entities.AddressInfo, error) {
	link, ok, err := inv.find(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("interface %q not found", name))
	}
	return link.Addresses, nil
}

func (inv *Inventory) find(ctx context.Context, name string) (entities.LinkInfo, bool, error) {
	links, err := inv.lister.Links(ctx)
	if err != nil {
		return entities.LinkInfo{}, false, errors.NewSystemError("failed to enumerate network interfaces", err)
	}
	for _, link := range links {
		if link.Name == name {
			return link, true, nil
		}
	}
	return entities.LinkInfo{}, false, nil
}
