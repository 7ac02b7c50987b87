package httpapi

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is an optional structured logger. If unset, falls back to log.Printf.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

// logTransition records the outcome of a transition request. Transitions are
// rare and operationally significant, so every one is logged.
func logTransition(r *http.Request, mode string, status int, dur time.Duration, err error) {
	if zlog != nil {
		z := zlog.Info().Str("mode", mode).Int("status", status).Dur("dur", dur)
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		if err != nil {
			z = z.Err(err)
		}
		z.Msg("transition handled")
		return
	}
	if err != nil {
		log.Printf("transition mode=%s status=%d dur=%s err=%v", mode, status, dur, err)
		return
	}
	log.Printf("transition mode=%s status=%d dur=%s", mode, status, dur)
}
