package scan

import (
	"context"

	"github.com/gvmrun/gvmrun/internal/errors"
	"github.com/gvmrun/gvmrun/internal/gmp"
	"github.com/gvmrun/gvmrun/internal/logging"
)

// DefaultPortListName is the port list a fresh GVM install ships with.
const DefaultPortListName = "OpenVAS Default"

// Resolver resolves or creates the named objects a scan needs. Resolution is
// lookup-before-create: an object that already exists under the wanted name
// is reused, which is what makes repeated runs idempotent.
type Resolver struct {
	client Client
	log    *logging.Logger
}

// NewResolver creates a resolver over the given client.
func NewResolver(client Client, log *logging.Logger) *Resolver {
	return &Resolver{
		client: client,
		log:    log.WithComponent("resolver"),
	}
}

type listFunc func(ctx context.Context, filter string) (*gmp.Node, error)
type createFunc func(ctx context.Context) (*gmp.Node, error)

// resolveOrCreate looks up objects of one kind by exact name and returns the
// first match's id, creating the object on a miss. A creation response
// without an id is a hard failure, not retried.
func (r *Resolver) resolveOrCreate(
	ctx context.Context,
	element, name string,
	list listFunc,
	create createFunc,
) (string, error) {
	resp, err := list(ctx, gmp.NameFilter(name))
	if err != nil {
		return "", err
	}

	if matches := resp.FindAll(element); len(matches) > 0 {
		// First match, server ordering. The filter language may do partial
		// matching, so flag results whose names differ from what we asked for.
		for _, match := range matches {
			if got := match.Find("name").Text(); got != "" && got != name {
				r.log.Warn("Name filter returned an inexact match",
					"kind", element, "wanted", name, "got", got)
			}
		}
		id := matches[0].Attr("id")
		r.log.Info("Reusing existing object", "kind", element, "name", name, "id", id)
		return id, nil
	}

	r.log.Info("Object not found, creating", "kind", element, "name", name)
	resp, err = create(ctx)
	if err != nil {
		return "", err
	}
	id := resp.Attr("id")
	if id == "" {
		return "", errors.NewScanErrorWithResource(errors.CodeResourceCreationFailed,
			"creation response carried no id", name)
	}
	r.log.Info("Created object", "kind", element, "name", name, "id", id)
	return id, nil
}

// ResolvePortList returns the id of the default port list. If the named
// lookup finds nothing the query is widened to all port lists and the first
// one is taken; port lists are never created by this client.
func (r *Resolver) ResolvePortList(ctx context.Context) (string, error) {
	resp, err := r.client.GetPortLists(ctx, gmp.NameFilter(DefaultPortListName))
	if err != nil {
		return "", err
	}
	matches := resp.FindAll("port_list")

	if len(matches) == 0 {
		r.log.Warn("Default port list not found, falling back to any port list",
			"name", DefaultPortListName)
		resp, err = r.client.GetPortLists(ctx, "")
		if err != nil {
			return "", err
		}
		matches = resp.FindAll("port_list")
	}

	if len(matches) == 0 {
		return "", errors.NewScanError(errors.CodeNoPortListsAvailable,
			"no port lists available on the server")
	}

	id := matches[0].Attr("id")
	r.log.Info("Using port list", "id", id)
	return id, nil
}

// ResolveTarget returns the id of the target with the given name, creating
// it over hosts and the resolved port list when it does not exist yet.
func (r *Resolver) ResolveTarget(ctx context.Context, name, hosts, portListID string) (string, error) {
	return r.resolveOrCreate(ctx, "target", name,
		r.client.GetTargets,
		func(ctx context.Context) (*gmp.Node, error) {
			return r.client.CreateTarget(ctx, name, hosts, portListID)
		})
}
