// Package rpc serves supertype queries over JSON-RPC 2.0.
package rpc

import (
	"context"
	"errors"
	"log/slog"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/google/uuid"
	"github.com/vito/supertypes/pkg/atm"
	"github.com/vito/supertypes/pkg/classpath"
	"github.com/vito/supertypes/pkg/defaults"
	"github.com/vito/supertypes/pkg/supertypes"
)

const (
	MethodDirect = "supertypes.direct"
	MethodDecls  = "supertypes.decls"
)

// DirectParams selects the subject of a supertypes.direct request. Exactly
// one of Type and Decl must be set.
type DirectParams struct {
	Type string `json:"type,omitempty"`
	Decl string `json:"decl,omitempty"`
}

type DirectResult struct {
	Subject    string   `json:"subject"`
	Supertypes []string `json:"supertypes"`
}

// Service answers queries against one classpath. Requests may be served
// concurrently: each parses its own type graph.
type Service struct {
	cp     *classpath.Classpath
	policy defaults.Policy
	logger *slog.Logger
}

func NewService(cp *classpath.Classpath, policy defaults.Policy, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cp: cp, policy: policy, logger: logger}
}

// Methods returns the service's method table.
func (s *Service) Methods() handler.Map {
	return handler.Map{
		MethodDirect: handler.New(s.Direct),
		MethodDecls:  handler.New(s.Decls),
	}
}

// Direct resolves the direct supertypes of the requested subject.
func (s *Service) Direct(ctx context.Context, params DirectParams) (*DirectResult, error) {
	logger := s.logger.With("request", uuid.NewString())

	subject, err := s.cp.Subject(params.Type, params.Decl)
	if err != nil {
		return nil, jrpc2.Errorf(jrpc2.InvalidParams, "%v", err)
	}

	// resolution splices the subject's arguments into its supertypes
	label := subject.String()

	finder := supertypes.New(s.cp, s.policy)
	var supers []atm.Type
	err = supertypes.Guard(func() error {
		var err error
		supers, err = finder.DirectSupertypes(subject)
		return err
	})
	if err != nil {
		logger.DebugContext(ctx, "resolution failed", "subject", label, "error", err)
		var internal *supertypes.InternalError
		if errors.As(err, &internal) {
			return nil, jrpc2.Errorf(jrpc2.InternalError, "%v", err)
		}
		return nil, jrpc2.Errorf(jrpc2.InvalidParams, "%v", err)
	}

	result := &DirectResult{Subject: label, Supertypes: make([]string, len(supers))}
	for i, st := range supers {
		result.Supertypes[i] = st.String()
	}
	logger.DebugContext(ctx, "resolved", "subject", result.Subject, "supertypes", len(supers))
	return result, nil
}

// Decls lists every declaration on the classpath.
func (s *Service) Decls(ctx context.Context) ([]string, error) {
	decls := s.cp.Decls()
	out := make([]string, len(decls))
	for i, d := range decls {
		out[i] = s.cp.Describe(d)
	}
	return out, nil
}
