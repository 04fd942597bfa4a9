package callable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dmitrijs2005/pocketbank/internal/common"
	"github.com/dmitrijs2005/pocketbank/internal/logging"
	"github.com/dmitrijs2005/pocketbank/internal/models"
	"github.com/dmitrijs2005/pocketbank/internal/services"
)

// ErrUnknownProcedure is returned for names nobody registered.
var ErrUnknownProcedure = errors.New("unknown procedure")

// Handler runs one procedure. data is the raw JSON request object; the
// result must encode as a JSON object.
type Handler func(ctx context.Context, data json.RawMessage) (any, error)

// TokenVerifier turns an access token into the user it was issued for.
type TokenVerifier func(token string) (*models.User, error)

type procedure struct {
	handler Handler
	public  bool
}

// Registry maps procedure names to handlers.
type Registry struct {
	mu     sync.RWMutex
	procs  map[string]procedure
	logger logging.Logger
}

func NewRegistry(l logging.Logger) *Registry {
	if l == nil {
		l = logging.Nop()
	}
	return &Registry{procs: map[string]procedure{}, logger: l.With("module", "callable")}
}

// Register adds a procedure that needs a signed-in caller.
func (r *Registry) Register(name string, h Handler) {
	r.add(name, h, false)
}

// RegisterPublic adds a procedure callable without a token.
func (r *Registry) RegisterPublic(name string, h Handler) {
	r.add(name, h, true)
}

func (r *Registry) add(name string, h Handler, public bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.procs[name] = procedure{handler: h, public: public}
}

// Names lists registered procedures, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.procs))
	for n := range r.procs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) lookup(name string) (procedure, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.procs[name]
	return p, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.lookup(name)
	return ok
}

// Authorize resolves the caller of name. Public procedures pass through;
// others need a valid token, whose user is attached to the returned
// context.
func (r *Registry) Authorize(ctx context.Context, name, token string, verify TokenVerifier) (context.Context, error) {
	p, ok := r.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProcedure, name)
	}
	if p.public {
		return ctx, nil
	}
	if token == "" {
		return nil, common.ErrUnauthenticated
	}
	u, err := verify(token)
	if err != nil {
		return nil, err
	}
	return services.WithUser(ctx, u), nil
}

// Call runs name and wraps the outcome into an envelope. Errors of the
// procedure never escape as Go errors.
func (r *Registry) Call(ctx context.Context, name string, data json.RawMessage) Envelope {
	p, ok := r.lookup(name)
	if !ok {
		return Failure(fmt.Errorf("%w: %s", ErrUnknownProcedure, name))
	}
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}

	ctx = logging.WithFields(ctx, "procedure", name)
	if u, ok := services.UserFromContext(ctx); ok {
		ctx = logging.WithFields(ctx, "user_id", u.ID)
	}

	result, err := p.handler(ctx, data)
	if err != nil {
		if common.Code(err) == common.CodeInternal || errors.Is(err, common.ErrStorageFailure) {
			r.logger.Error(ctx, "procedure failed", "error", err)
		} else {
			r.logger.Debug(ctx, "procedure rejected", "code", common.Code(err))
		}
		return Failure(err)
	}

	env, err := Success(result)
	if err != nil {
		r.logger.Error(ctx, "procedure result not encodable", "error", err)
		return Failure(err)
	}
	return env
}

// ErrRateLimited is returned by transports when the server sheds load.
var ErrRateLimited = errors.New("too many requests")

// Transport carries one procedure call to a server. data must encode as
// a JSON object. Failures of the procedure come back inside the
// envelope; the error is for the transport itself.
type Transport interface {
	Call(ctx context.Context, procedure string, data any, token string) (Envelope, error)
}
