package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewHandler(
	jwtSecret []byte,
	electionHandler *ElectionHandler,
	linkHandler *LinkHandler,
	ballotHandler *BallotHandler,
	resultsHandler *ResultsHandler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	requireCap := CapabilityMiddleware(jwtSecret)
	optionalCap := OptionalCapabilityMiddleware(jwtSecret)

	r.Route("/api", func(r chi.Router) {
		r.Route("/elections", func(r chi.Router) {
			// Administrative surface.
			r.Group(func(r chi.Router) {
				r.Use(requireCap)
				r.Post("/", electionHandler.Create)
				r.Get("/", electionHandler.ListByChapter)
				r.Delete("/{id}", electionHandler.Delete)
				r.Post("/{id}/positions", electionHandler.AddPosition)
				r.Post("/{id}/submit", electionHandler.Submit)
				r.Post("/{id}/approve", electionHandler.Approve)
				r.Post("/{id}/start", electionHandler.Start)
				r.Post("/{id}/close", electionHandler.Close)
				r.Post("/{id}/links", linkHandler.GenerateLinks)
				r.Post("/{id}/links/revoke", linkHandler.Revoke)
				r.Get("/{id}/results.csv", resultsHandler.ExportCSV)
			})

			// Readable without a capability; gating happens in the services.
			r.Group(func(r chi.Router) {
				r.Use(optionalCap)
				r.Get("/{id}", electionHandler.Get)
				r.Get("/{id}/results", resultsHandler.Live)
				r.Get("/{id}/results/final", resultsHandler.Final)
			})
		})

		r.Route("/positions", func(r chi.Router) {
			r.Use(requireCap)
			r.Post("/{id}/candidates", electionHandler.AddCandidate)
		})

		r.Route("/candidates", func(r chi.Router) {
			r.Use(requireCap)
			r.Post("/{id}/approve", electionHandler.ApproveCandidate)
		})

		// Voter-facing: the token is the credential, no session required.
		r.Route("/ballots", func(r chi.Router) {
			r.Post("/redeem", ballotHandler.Redeem)
			r.Post("/", ballotHandler.Cast)
		})

		r.Get("/dashboard/stats", resultsHandler.Stats)
	})

	return r
}
