package backend

import (
	"context"
	"net/url"
	"strings"

	"github.com/consultacerta/portal/internal/config"
)

// Resource is one REST collection rooted at a base URL.
type Resource struct {
	Base   string
	client *Client
}

func NewResource(c *Client, base string) Resource {
	return Resource{Base: strings.TrimRight(base, "/"), client: c}
}

// Configured reports whether the collection has a base URL.
func (r Resource) Configured() bool { return r.Base != "" }

// At joins escaped path segments onto the base URL.
func (r Resource) At(parts ...string) string {
	if len(parts) == 0 {
		return r.Base
	}
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return r.Base + "/" + strings.Join(escaped, "/")
}

// Sub is the collection nested under parts, e.g. ubs/perto.
func (r Resource) Sub(parts ...string) Resource {
	return Resource{Base: r.At(parts...), client: r.client}
}

func (r Resource) List(ctx context.Context, query url.Values, out interface{}) error {
	u := r.Base
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return r.client.Get(ctx, u, out)
}

func (r Resource) Get(ctx context.Context, id string, out interface{}) error {
	return r.client.Get(ctx, r.At(id), out)
}

func (r Resource) Create(ctx context.Context, body, out interface{}) error {
	return r.client.Post(ctx, r.Base, body, out)
}

// PostTo posts to a sub path of the collection, e.g. patients/login.
func (r Resource) PostTo(ctx context.Context, sub string, body, out interface{}) error {
	return r.client.Post(ctx, r.At(sub), body, out)
}

func (r Resource) Update(ctx context.Context, id string, body, out interface{}) error {
	return r.client.Put(ctx, r.At(id), body, out)
}

func (r Resource) Remove(ctx context.Context, id string) error {
	return r.client.Delete(ctx, r.At(id))
}

// API groups the collections the portal talks to.
type API struct {
	Patients       Resource
	Companions     Resource
	Consultations  Resource
	HealthData     Resource
	Prediction     Resource
	Contacts       Resource
	Ratings        Resource
	ReminderNotify Resource
	Content        Resource
	Locator        Resource
}

func NewAPI(c *Client, ep config.Endpoints) *API {
	return &API{
		Patients:       NewResource(c, ep.Patients),
		Companions:     NewResource(c, ep.Companions),
		Consultations:  NewResource(c, ep.Consultations),
		HealthData:     NewResource(c, ep.HealthData),
		Prediction:     NewResource(c, ep.Prediction),
		Contacts:       NewResource(c, ep.Contacts),
		Ratings:        NewResource(c, ep.Ratings),
		ReminderNotify: NewResource(c, ep.ReminderNotify),
		Content:        NewResource(c, ep.Content),
		Locator:        NewResource(c, ep.Locator),
	}
}
