package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Sessions   *SessionHandler
	Hooks      *HookHandler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Sessions != nil {
		mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Sessions.List(w, r)
			case http.MethodPost:
				cfg.Sessions.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/sessions/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/sessions/"), "/")
			if rest == "" {
				http.NotFound(w, r)
				return
			}
			parts := strings.Split(rest, "/")
			ctx := ContextWithSessionID(r.Context(), parts[0])
			r = r.WithContext(ctx)

			switch {
			case len(parts) == 1:
				if r.Method != http.MethodPatch {
					methodNotAllowed(w, http.MethodPatch)
					return
				}
				cfg.Sessions.UpdateFields(w, r)
			case len(parts) == 2 && parts[1] == "status":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Sessions.Status(w, r)
			case len(parts) == 2 && parts[1] == "summary":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Sessions.Summary(w, r)
			case len(parts) == 2 && parts[1] == "proposal":
				switch r.Method {
				case http.MethodPost:
					cfg.Sessions.Propose(w, r)
				case http.MethodDelete:
					cfg.Sessions.ClearProposal(w, r)
				default:
					methodNotAllowed(w, http.MethodPost, http.MethodDelete)
				}
			case len(parts) == 4 && parts[1] == "evaluators" && parts[3] == "responses":
				if r.Method != http.MethodPut {
					methodNotAllowed(w, http.MethodPut)
					return
				}
				r = r.WithContext(ContextWithEvaluatorID(r.Context(), parts[2]))
				cfg.Sessions.UpdateEvaluatorResponses(w, r)
			case len(parts) == 4 && parts[1] == "slots" && parts[3] == "everyone-ok":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				r = r.WithContext(ContextWithSlotID(r.Context(), parts[2]))
				cfg.Sessions.EveryoneOk(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Hooks != nil {
		mux.HandleFunc("/hooks/evaluator-response", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Hooks.EvaluatorResponse(w, r)
		})
		mux.HandleFunc("/hooks/facility-response", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Hooks.FacilityResponse(w, r)
		})
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
