// Package api assembles the HTTP surface of the ledger assistant.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-assistant/internal/agent"
	"github.com/dvloznov/ledger-assistant/internal/api/handlers"
	"github.com/dvloznov/ledger-assistant/internal/api/middleware"
	"github.com/dvloznov/ledger-assistant/internal/events"
	"github.com/dvloznov/ledger-assistant/internal/jobs"
	"github.com/dvloznov/ledger-assistant/internal/ledger"
)

// Deps are the services the router exposes. Exporter and Jobs may be nil.
type Deps struct {
	Ledger   ledger.Store
	Sessions *agent.Manager
	Bus      *events.Bus
	Exporter handlers.ExportEnqueuer
	Jobs     jobs.JobStore
	Backend  string
	Log      zerolog.Logger
}

// NewRouter builds the mux and wraps it in the middleware chain.
func NewRouter(d Deps) http.Handler {
	chatHandler := handlers.NewChatHandler(d.Sessions, d.Log)
	transactionsHandler := handlers.NewTransactionsHandler(d.Ledger, d.Log)
	categoriesHandler := handlers.NewCategoriesHandler()
	reportsHandler := handlers.NewReportsHandler(d.Ledger, d.Exporter, d.Log)
	eventsHandler := handlers.NewEventsHandler(d.Bus, d.Log)

	mux := http.NewServeMux()

	// Chat endpoints
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			chatHandler.SendMessage(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/chat/credentials", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			chatHandler.SetCredentials(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/chat/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			methodNotAllowed(w)
			return
		}
		sessionID, ok := pathID(w, r, "/api/chat/", "Session ID is required")
		if ok {
			chatHandler.EndSession(w, r, sessionID)
		}
	})

	// Transactions endpoints
	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.ListTransactions(w, r)
		case http.MethodPost:
			transactionsHandler.CreateTransaction(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/transactions/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch && r.Method != http.MethodDelete {
			methodNotAllowed(w)
			return
		}
		id, ok := pathID(w, r, "/api/transactions/", "Transaction ID is required")
		if !ok {
			return
		}
		if r.Method == http.MethodPatch {
			transactionsHandler.UpdateTransaction(w, r, id)
		} else {
			transactionsHandler.DeleteTransaction(w, r, id)
		}
	})

	// Categories endpoints
	mux.HandleFunc("/api/categories", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			categoriesHandler.ListCategories(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	// Reports endpoints
	mux.HandleFunc("/api/reports", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			reportsHandler.GetReport(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/reports/export", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			reportsHandler.ExportReport(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/ledger/reset", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			reportsHandler.ResetLedger(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	// Live updates
	if d.Bus != nil {
		mux.HandleFunc("/api/events", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				eventsHandler.Stream(w, r)
			} else {
				methodNotAllowed(w)
			}
		})
	}

	// Jobs endpoints
	if d.Jobs != nil {
		jobsHandler := handlers.NewJobsHandler(d.Jobs, d.Log)

		mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				jobsHandler.ListJobs(w, r)
			} else {
				methodNotAllowed(w)
			}
		})

		mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w)
				return
			}
			jobID, ok := pathID(w, r, "/api/jobs/", "Job ID is required")
			if ok {
				jobsHandler.GetJob(w, r, jobID)
			}
		})
	}

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"backend":  d.Backend,
			"sessions": d.Sessions.Len(),
			"time":     time.Now().Format(time.RFC3339),
		})
	})

	return middleware.Chain(mux, d.Log)
}

func methodNotAllowed(w http.ResponseWriter) {
	middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// pathID extracts the trailing id of a /prefix/{id} path.
func pathID(w http.ResponseWriter, r *http.Request, prefix, missing string) (string, bool) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if id == "" || strings.Contains(id, "/") {
		middleware.WriteError(w, http.StatusBadRequest, missing)
		return "", false
	}
	return id, true
}
